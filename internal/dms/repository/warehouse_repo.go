package repository

import (
	"context"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"gorm.io/gorm"
)

// WarehouseRepository 仓库与入库审批仓库
type WarehouseRepository struct {
	db *gorm.DB
}

func NewWarehouseRepository(db *gorm.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

// CreateWarehouse 创建仓库
func (r *WarehouseRepository) CreateWarehouse(ctx context.Context, w *entity.Warehouse) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// FindWarehouse 仓库详情
func (r *WarehouseRepository) FindWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// ListWarehouses 仓库列表
func (r *WarehouseRepository) ListWarehouses(ctx context.Context) ([]entity.Warehouse, error) {
	var items []entity.Warehouse
	err := r.db.WithContext(ctx).Where("is_active = true").Order("code ASC").Find(&items).Error
	return items, err
}

// === 入库审批 ===

// CreateApproval 创建入库审批单
func (r *WarehouseRepository) CreateApproval(ctx context.Context, a *entity.WarehouseApproval) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// FindApproval 入库审批详情
func (r *WarehouseRepository) FindApproval(ctx context.Context, id string) (*entity.WarehouseApproval, error) {
	var a entity.WarehouseApproval
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// UpdateApproval 更新入库审批
func (r *WarehouseRepository) UpdateApproval(ctx context.Context, a *entity.WarehouseApproval) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// ListApprovals 入库审批列表
func (r *WarehouseRepository) ListApprovals(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WarehouseApproval, int64, error) {
	var items []entity.WarehouseApproval
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.WarehouseApproval{})
	if warehouseID := filters["warehouse_id"]; warehouseID != "" {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	if stageID := filters["stage_id"]; stageID != "" {
		query = query.Where("current_stage_id = ?", stageID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}
