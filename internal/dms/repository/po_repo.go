package repository

import (
	"context"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"gorm.io/gorm"
)

// PurchaseOrderRepository 采购订单仓库
type PurchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// FindAll 采购订单列表
func (r *PurchaseOrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if principalID := filters["principal_id"]; principalID != "" {
		query = query.Where("principal_id = ?", principalID)
	}
	if stageID := filters["stage_id"]; stageID != "" {
		query = query.Where("current_stage_id = ?", stageID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("po_number ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Principal").
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 采购订单详情（含行项）
func (r *PurchaseOrderRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Principal").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// Create 创建采购订单（含行项，单事务）
func (r *PurchaseOrderRepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

// Update 更新采购订单
func (r *PurchaseOrderRepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Save(po).Error
}

// AddReceivedQty 行项收货累计
func (r *PurchaseOrderRepository) AddReceivedQty(ctx context.Context, poItemID string, qty float64) error {
	result := r.db.WithContext(ctx).Model(&entity.POItem{}).
		Where("id = ?", poItemID).
		Update("received_qty", gorm.Expr("received_qty + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ItemsFullyReceived 全部行项是否收满
func (r *PurchaseOrderRepository) ItemsFullyReceived(ctx context.Context, poID string) (bool, error) {
	var pending int64
	err := r.db.WithContext(ctx).Model(&entity.POItem{}).
		Where("po_id = ? AND received_qty < quantity", poID).
		Count(&pending).Error
	return pending == 0, err
}
