package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository 库存仓库
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// FindAll 库存列表
func (r *InventoryRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Inventory, int64, error) {
	var items []entity.Inventory
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Inventory{})
	if productID := filters["product_id"]; productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if warehouseID := filters["warehouse_id"]; warehouseID != "" {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	if batch := filters["batch_number"]; batch != "" {
		query = query.Where("batch_number = ?", batch)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("product_name ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize
	err := query.
		Preload("Product").
		Preload("Warehouse").
		Order("updated_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// FindByID 库存详情
func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Warehouse").
		Where("id = ?", id).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ApplyMovement 单事务落账：行级锁定位库存槽，校验余量，更新数量并追加流水。
// delta/reservedDelta 为有符号变化量；槽不存在且 delta>0 时自动建槽，
// 建槽时从 seed 复制产品名/单位/效期。
func (r *InventoryRepository) ApplyMovement(ctx context.Context, mv *entity.InventoryMovement, delta, reservedDelta float64, seed *entity.Inventory) (*entity.Inventory, error) {
	var out *entity.Inventory
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv entity.Inventory
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND warehouse_id = ? AND batch_number = ?",
				mv.ProductID, mv.WarehouseID, mv.BatchNumber).
			First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if delta <= 0 {
				return ErrNotFound
			}
			inv = entity.Inventory{
				ID:          uuid.New().String(),
				ProductID:   mv.ProductID,
				WarehouseID: mv.WarehouseID,
				BatchNumber: mv.BatchNumber,
			}
			if seed != nil {
				inv.ProductName = seed.ProductName
				inv.Unit = seed.Unit
				inv.ExpiryDate = seed.ExpiryDate
			}
			if err := tx.Create(&inv).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		newQty := inv.Quantity + delta
		newReserved := inv.ReservedQty + reservedDelta
		if newQty < 0 || newReserved < 0 || newReserved > newQty {
			return ErrInsufficientStock
		}

		now := time.Now()
		inv.Quantity = newQty
		inv.ReservedQty = newReserved
		inv.LastMovedAt = &now
		if err := tx.Save(&inv).Error; err != nil {
			return err
		}

		mv.InventoryID = inv.ID
		if err := tx.Create(mv).Error; err != nil {
			return err
		}
		out = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListMovements 库存流水
func (r *InventoryRepository) ListMovements(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryMovement, int64, error) {
	var items []entity.InventoryMovement
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InventoryMovement{})
	if inventoryID := filters["inventory_id"]; inventoryID != "" {
		query = query.Where("inventory_id = ?", inventoryID)
	}
	if productID := filters["product_id"]; productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if warehouseID := filters["warehouse_id"]; warehouseID != "" {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	if mvType := filters["movement_type"]; mvType != "" {
		query = query.Where("movement_type = ?", mvType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// AllMovements 导出用：按时间升序取全部流水
func (r *InventoryRepository) AllMovements(ctx context.Context, filters map[string]string) ([]entity.InventoryMovement, error) {
	var items []entity.InventoryMovement
	query := r.db.WithContext(ctx).Model(&entity.InventoryMovement{})
	if warehouseID := filters["warehouse_id"]; warehouseID != "" {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	if productID := filters["product_id"]; productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	err := query.Order("created_at ASC").Find(&items).Error
	return items, err
}
