package entity

import "time"

// 工作流实体类型标识（EntityStageStore 路由键）
const (
	EntityTypePurchaseOrder     = "purchase_order"
	EntityTypeInvoiceReceiving  = "invoice_receiving"
	EntityTypeQualityControl    = "quality_control"
	EntityTypeWarehouseApproval = "warehouse_approval"
)

// PurchaseOrder 采购订单
// 阶段状态归工作流引擎管：current_stage_id 只能经 ExecuteTransition 变更
type PurchaseOrder struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	PONumber    string  `json:"po_number" gorm:"size:32;uniqueIndex;not null"`
	PrincipalID string  `json:"principal_id" gorm:"size:36;not null;index"`
	HospitalID  *string `json:"hospital_id" gorm:"size:36;index"`

	CurrentStageID string `json:"current_stage_id" gorm:"size:36;not null;index"`

	// 金额
	TotalAmount float64 `json:"total_amount" gorm:"type:decimal(15,2);default:0"`
	Currency    string  `json:"currency" gorm:"size:10;default:INR"`

	// 交期与收货
	ExpectedDate    *time.Time `json:"expected_date"`
	ShippingAddress string     `json:"shipping_address" gorm:"size:500"`
	PaymentTerms    string     `json:"payment_terms" gorm:"size:100"`

	CreatedBy string    `json:"created_by" gorm:"size:36;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Items     []POItem   `json:"items,omitempty" gorm:"foreignKey:POID"`
	Principal *Principal `json:"principal,omitempty" gorm:"foreignKey:PrincipalID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// POItem 采购订单行项
type POItem struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	POID      string `json:"po_id" gorm:"size:36;not null;index"`
	ProductID string `json:"product_id" gorm:"size:36;not null"`

	ProductName string  `json:"product_name" gorm:"size:200;not null"`
	Quantity    float64 `json:"quantity" gorm:"type:decimal(12,2);not null"`
	Unit        string  `json:"unit" gorm:"size:20;default:pcs"`
	UnitPrice   float64 `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	TotalAmount float64 `json:"total_amount" gorm:"type:decimal(15,2);default:0"`

	// 收货累计
	ReceivedQty float64 `json:"received_qty" gorm:"type:decimal(12,2);default:0"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (POItem) TableName() string {
	return "purchase_order_items"
}
