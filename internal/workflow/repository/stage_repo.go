package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"gorm.io/gorm"
)

// StageRepository 工作流阶段仓库
type StageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

// Create 创建阶段
func (r *StageRepository) Create(ctx context.Context, stage *entity.WorkflowStage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

// Update 更新阶段
func (r *StageRepository) Update(ctx context.Context, stage *entity.WorkflowStage) error {
	return r.db.WithContext(ctx).Save(stage).Error
}

// Delete 删除阶段
func (r *StageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.WorkflowStage{}).Error
}

// FindByID 按ID查找阶段
func (r *StageRepository) FindByID(ctx context.Context, id string) (*entity.WorkflowStage, error) {
	var stage entity.WorkflowStage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&stage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &stage, nil
}

// FindByCode 按code查找阶段
func (r *StageRepository) FindByCode(ctx context.Context, code string) (*entity.WorkflowStage, error) {
	var stage entity.WorkflowStage
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&stage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &stage, nil
}

// FindByIDs 批量查找
func (r *StageRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.WorkflowStage, error) {
	var stages []entity.WorkflowStage
	if len(ids) == 0 {
		return stages, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&stages).Error
	return stages, err
}

// FindAll 分页查询阶段列表
func (r *StageRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WorkflowStage, int64, error) {
	var items []entity.WorkflowStage
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.WorkflowStage{})

	if isActive := filters["is_active"]; isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}
	if search := filters["search"]; search != "" {
		query = query.Where("code ILIKE ? OR name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("sequence ASC, created_at ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// ListAll 全量阶段（可视化/改序用）
func (r *StageRepository) ListAll(ctx context.Context) ([]entity.WorkflowStage, error) {
	var stages []entity.WorkflowStage
	err := r.db.WithContext(ctx).Order("sequence ASC").Find(&stages).Error
	return stages, err
}

// UpdateSequences 批量改序，单事务原子生效
func (r *StageRepository) UpdateSequences(ctx context.Context, sequences map[string]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, seq := range sequences {
			result := tx.Model(&entity.WorkflowStage{}).Where("id = ?", id).Update("sequence", seq)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

// CountReferencing 统计 next_stages 包含该阶段的其他阶段数（JSONB包含查询）
func (r *StageRepository) CountReferencing(ctx context.Context, stageID string) (int64, error) {
	ref, err := json.Marshal([]string{stageID})
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).Model(&entity.WorkflowStage{}).
		Where("next_stages @> ?", string(ref)).
		Where("id <> ?", stageID).
		Count(&count).Error
	return count, err
}
