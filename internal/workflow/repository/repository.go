package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 工作流仓库集合
type Repositories struct {
	Stage           *StageRepository
	Transition      *TransitionRepository
	StagePermission *StagePermissionRepository
	Permission      *PermissionRepository
	History         *HistoryRepository
}

// NewRepositories 创建工作流仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Stage:           NewStageRepository(db),
		Transition:      NewTransitionRepository(db),
		StagePermission: NewStagePermissionRepository(db),
		Permission:      NewPermissionRepository(db),
		History:         NewHistoryRepository(db),
	}
}
