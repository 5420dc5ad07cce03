package entity

import "time"

// WarehouseApproval 入库审批单
type WarehouseApproval struct {
	ID           string  `json:"id" gorm:"primaryKey;size:36"`
	ApprovalCode string  `json:"approval_code" gorm:"size:32;uniqueIndex;not null"`
	QCID         string  `json:"qc_id" gorm:"size:36;not null;index"`
	ReceivingID  *string `json:"receiving_id" gorm:"size:36;index"`
	WarehouseID  string  `json:"warehouse_id" gorm:"size:36;not null;index"`

	CurrentStageID string `json:"current_stage_id" gorm:"size:36;not null;index"`

	ApprovedBy *string    `json:"approved_by" gorm:"size:36"`
	ApprovedAt *time.Time `json:"approved_at"`

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (WarehouseApproval) TableName() string {
	return "warehouse_approvals"
}

// Warehouse 仓库
type Warehouse struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	City      string    `json:"city" gorm:"size:50"`
	Address   string    `json:"address" gorm:"size:500"`
	ColdChain bool      `json:"cold_chain" gorm:"default:false"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Warehouse) TableName() string {
	return "warehouses"
}
