package entity

import "time"

// 库存变动类型
const (
	MovementReceive  = "RECEIVE"  // 入库（入库审批通过）
	MovementAdjust   = "ADJUST"   // 盘点调整
	MovementReserve  = "RESERVE"  // 预留
	MovementRelease  = "RELEASE"  // 解除预留
	MovementTransfer = "TRANSFER" // 调拨
	MovementUtilize  = "UTILIZE"  // 领用/出库
)

// Inventory 库存记录（按 产品+仓库+批号 归集）
type Inventory struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	ProductID   string `json:"product_id" gorm:"size:36;not null;index:idx_inventory_slot,unique"`
	WarehouseID string `json:"warehouse_id" gorm:"size:36;not null;index:idx_inventory_slot,unique"`
	BatchNumber string `json:"batch_number" gorm:"size:50;index:idx_inventory_slot,unique"`

	ProductName string     `json:"product_name" gorm:"size:200"`
	Quantity    float64    `json:"quantity" gorm:"type:decimal(12,2);not null;default:0"`
	ReservedQty float64    `json:"reserved_qty" gorm:"type:decimal(12,2);default:0"`
	Unit        string     `json:"unit" gorm:"size:20;default:pcs"`
	ExpiryDate  *time.Time `json:"expiry_date"`

	LastMovedAt *time.Time `json:"last_moved_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 关联
	Product   *Product   `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Warehouse *Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
}

func (Inventory) TableName() string {
	return "inventories"
}

// AvailableQty 可用数量 = 在库 - 预留
func (i *Inventory) AvailableQty() float64 {
	return i.Quantity - i.ReservedQty
}

// InventoryMovement 库存流水（仅追加）
type InventoryMovement struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	InventoryID string `json:"inventory_id" gorm:"size:36;not null;index"`
	ProductID   string `json:"product_id" gorm:"size:36;not null;index"`
	WarehouseID string `json:"warehouse_id" gorm:"size:36;not null;index"`

	MovementType string  `json:"movement_type" gorm:"size:20;not null"`
	Quantity     float64 `json:"quantity" gorm:"type:decimal(12,2);not null"` // 正=入，负=出
	BatchNumber  string  `json:"batch_number" gorm:"size:50"`

	// 业务来源
	ReferenceType string `json:"reference_type" gorm:"size:50"` // warehouse_approval/manual/...
	ReferenceID   string `json:"reference_id" gorm:"size:36"`

	PerformedBy string    `json:"performed_by" gorm:"size:36;not null"`
	Remarks     string    `json:"remarks" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (InventoryMovement) TableName() string {
	return "inventory_movements"
}
