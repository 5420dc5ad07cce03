package repository

import (
	"context"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"gorm.io/gorm"
)

// HistoryRepository 工作流历史仓库（仅追加）
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append 追加历史记录
func (r *HistoryRepository) Append(ctx context.Context, h *entity.WorkflowHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// Find 倒序分页查询某实体的历史
func (r *HistoryRepository) Find(ctx context.Context, entityType, entityID string, page, limit int) ([]entity.WorkflowHistory, int64, error) {
	var items []entity.WorkflowHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.WorkflowHistory{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.
		Order("action_date DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// CountByStage 统计停留记录（阶段删除前引用检查的兜底口径）
func (r *HistoryRepository) CountByStage(ctx context.Context, stageID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.WorkflowHistory{}).
		Where("stage_id = ?", stageID).
		Count(&count).Error
	return count, err
}
