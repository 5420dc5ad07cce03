package entity

import "time"

// InvoiceReceiving 发票收货单
type InvoiceReceiving struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	ReceivingCode string    `json:"receiving_code" gorm:"size:32;uniqueIndex;not null"`
	POID          string    `json:"po_id" gorm:"size:36;not null;index"`
	InvoiceNumber string     `json:"invoice_number" gorm:"size:50;not null"`
	InvoiceDate   time.Time  `json:"invoice_date" gorm:"not null"`
	ReceivedDate  *time.Time `json:"received_date"` // 收货确认时写入

	CurrentStageID string `json:"current_stage_id" gorm:"size:36;not null;index"`

	InvoiceAmount float64 `json:"invoice_amount" gorm:"type:decimal(15,2);default:0"`

	ReceivedBy *string   `json:"received_by" gorm:"size:36"`
	CreatedBy  string    `json:"created_by" gorm:"size:36;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Notes      string    `json:"notes" gorm:"type:text"`

	// 关联
	Items []InvoiceReceivingItem `json:"items,omitempty" gorm:"foreignKey:ReceivingID"`
	PO    *PurchaseOrder         `json:"po,omitempty" gorm:"foreignKey:POID"`
}

func (InvoiceReceiving) TableName() string {
	return "invoice_receivings"
}

// InvoiceReceivingItem 收货行项
type InvoiceReceivingItem struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	ReceivingID string `json:"receiving_id" gorm:"size:36;not null;index"`
	POItemID    string `json:"po_item_id" gorm:"size:36;not null"`
	ProductID   string `json:"product_id" gorm:"size:36;not null"`

	ProductName string     `json:"product_name" gorm:"size:200;not null"`
	BatchNumber string     `json:"batch_number" gorm:"size:50"`
	ExpiryDate  *time.Time `json:"expiry_date"`
	ReceivedQty float64    `json:"received_qty" gorm:"type:decimal(12,2);not null"`
	Unit        string     `json:"unit" gorm:"size:20;default:pcs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InvoiceReceivingItem) TableName() string {
	return "invoice_receiving_items"
}
