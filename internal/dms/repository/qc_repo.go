package repository

import (
	"context"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"gorm.io/gorm"
)

// QualityControlRepository 质检仓库
type QualityControlRepository struct {
	db *gorm.DB
}

func NewQualityControlRepository(db *gorm.DB) *QualityControlRepository {
	return &QualityControlRepository{db: db}
}

// FindAll 质检单列表
func (r *QualityControlRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QualityControl, int64, error) {
	var items []entity.QualityControl
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.QualityControl{})
	if receivingID := filters["receiving_id"]; receivingID != "" {
		query = query.Where("receiving_id = ?", receivingID)
	}
	if stageID := filters["stage_id"]; stageID != "" {
		query = query.Where("current_stage_id = ?", stageID)
	}
	if result := filters["overall_result"]; result != "" {
		query = query.Where("overall_result = ?", result)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// FindByID 质检单详情
func (r *QualityControlRepository) FindByID(ctx context.Context, id string) (*entity.QualityControl, error) {
	var qc entity.QualityControl
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&qc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &qc, nil
}

// Create 创建质检单
func (r *QualityControlRepository) Create(ctx context.Context, qc *entity.QualityControl) error {
	return r.db.WithContext(ctx).Create(qc).Error
}

// Update 更新质检单
func (r *QualityControlRepository) Update(ctx context.Context, qc *entity.QualityControl) error {
	return r.db.WithContext(ctx).Save(qc).Error
}
