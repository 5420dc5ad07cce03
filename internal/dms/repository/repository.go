package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Repositories 业务仓库集合
type Repositories struct {
	User             *UserRepository
	Master           *MasterRepository
	PurchaseOrder    *PurchaseOrderRepository
	InvoiceReceiving *InvoiceReceivingRepository
	QualityControl   *QualityControlRepository
	Warehouse        *WarehouseRepository
	Inventory        *InventoryRepository
	EntityStage      *EntityStageRepository
}

// NewRepositories 创建业务仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:             NewUserRepository(db),
		Master:           NewMasterRepository(db),
		PurchaseOrder:    NewPurchaseOrderRepository(db),
		InvoiceReceiving: NewInvoiceReceivingRepository(db),
		QualityControl:   NewQualityControlRepository(db),
		Warehouse:        NewWarehouseRepository(db),
		Inventory:        NewInventoryRepository(db),
		EntityStage:      NewEntityStageRepository(db),
	}
}
