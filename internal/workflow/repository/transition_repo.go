package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"gorm.io/gorm"
)

// TransitionRepository 迁移规则仓库
type TransitionRepository struct {
	db *gorm.DB
}

func NewTransitionRepository(db *gorm.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

// Create 创建迁移规则
func (r *TransitionRepository) Create(ctx context.Context, t *entity.WorkflowTransition) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// Update 更新迁移规则
func (r *TransitionRepository) Update(ctx context.Context, t *entity.WorkflowTransition) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// Delete 删除迁移规则
func (r *TransitionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.WorkflowTransition{}).Error
}

// FindByID 按ID查找
func (r *TransitionRepository) FindByID(ctx context.Context, id string) (*entity.WorkflowTransition, error) {
	var t entity.WorkflowTransition
	err := r.db.WithContext(ctx).
		Preload("FromStage").
		Preload("ToStage").
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Find 条件查询；空字段为通配；created_at 升序保证重复边取首条的确定性
func (r *TransitionRepository) Find(ctx context.Context, filter service.TransitionFilter) ([]entity.WorkflowTransition, error) {
	var items []entity.WorkflowTransition
	query := r.db.WithContext(ctx).Model(&entity.WorkflowTransition{})

	if filter.FromStageID != "" {
		query = query.Where("from_stage_id = ?", filter.FromStageID)
	}
	if filter.ToStageID != "" {
		query = query.Where("to_stage_id = ?", filter.ToStageID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	err := query.Order("created_at ASC").Find(&items).Error
	return items, err
}

// CountByStage 统计以该阶段为起点或终点的规则数
func (r *TransitionRepository) CountByStage(ctx context.Context, stageID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.WorkflowTransition{}).
		Where("from_stage_id = ? OR to_stage_id = ?", stageID, stageID).
		Count(&count).Error
	return count, err
}
