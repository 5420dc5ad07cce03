package repository

import (
	"context"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"gorm.io/gorm"
)

// InvoiceReceivingRepository 发票收货仓库
type InvoiceReceivingRepository struct {
	db *gorm.DB
}

func NewInvoiceReceivingRepository(db *gorm.DB) *InvoiceReceivingRepository {
	return &InvoiceReceivingRepository{db: db}
}

// FindAll 收货单列表
func (r *InvoiceReceivingRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InvoiceReceiving, int64, error) {
	var items []entity.InvoiceReceiving
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InvoiceReceiving{})
	if poID := filters["po_id"]; poID != "" {
		query = query.Where("po_id = ?", poID)
	}
	if stageID := filters["stage_id"]; stageID != "" {
		query = query.Where("current_stage_id = ?", stageID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("receiving_code ILIKE ? OR invoice_number ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// FindByID 收货单详情
func (r *InvoiceReceivingRepository) FindByID(ctx context.Context, id string) (*entity.InvoiceReceiving, error) {
	var rec entity.InvoiceReceiving
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("PO").
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Create 创建收货单（含行项）
func (r *InvoiceReceivingRepository) Create(ctx context.Context, rec *entity.InvoiceReceiving) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// Update 更新收货单
func (r *InvoiceReceivingRepository) Update(ctx context.Context, rec *entity.InvoiceReceiving) error {
	return r.db.WithContext(ctx).Save(rec).Error
}
