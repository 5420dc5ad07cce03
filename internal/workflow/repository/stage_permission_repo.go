package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StagePermissionRepository 阶段授权仓库
type StagePermissionRepository struct {
	db *gorm.DB
}

func NewStagePermissionRepository(db *gorm.DB) *StagePermissionRepository {
	return &StagePermissionRepository{db: db}
}

// Upsert 按 (user_id, stage_id) 唯一键原子插入或更新
// 并发写同一键时由数据库约束收敛为一条记录（last write wins）
func (r *StagePermissionRepository) Upsert(ctx context.Context, grant *entity.StagePermission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "stage_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"permissions", "expiry_date", "assigned_by", "is_active", "remarks", "updated_at",
		}),
	}).Create(grant).Error
}

// Save 更新已有授权
func (r *StagePermissionRepository) Save(ctx context.Context, grant *entity.StagePermission) error {
	return r.db.WithContext(ctx).Save(grant).Error
}

// Find 按 (user, stage) 查找
func (r *StagePermissionRepository) Find(ctx context.Context, userID, stageID string) (*entity.StagePermission, error) {
	var grant entity.StagePermission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND stage_id = ?", userID, stageID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// FindByStage 某阶段的全部授权
func (r *StagePermissionRepository) FindByStage(ctx context.Context, stageID string) ([]entity.StagePermission, error) {
	var grants []entity.StagePermission
	err := r.db.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Order("created_at ASC").
		Find(&grants).Error
	return grants, err
}

// FindByUser 某用户的全部授权
func (r *StagePermissionRepository) FindByUser(ctx context.Context, userID string) ([]entity.StagePermission, error) {
	var grants []entity.StagePermission
	err := r.db.WithContext(ctx).
		Preload("Stage").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&grants).Error
	return grants, err
}

// ActiveUserIDs 持有该阶段有效授权（激活且未过期）的用户
func (r *StagePermissionRepository) ActiveUserIDs(ctx context.Context, stageID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).Model(&entity.StagePermission{}).
		Where("stage_id = ? AND is_active = true", stageID).
		Where("expiry_date IS NULL OR expiry_date > ?", time.Now()).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}
