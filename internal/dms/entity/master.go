package entity

import "time"

// 主数据：医院/医生/供应商/产品
// 这些是工作流实体的协作方，本系统只做轻量维护

// Hospital 医院
type Hospital struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	City      string    `json:"city" gorm:"size:50"`
	Address   string    `json:"address" gorm:"size:500"`
	GSTNumber string    `json:"gst_number" gorm:"size:50"`
	PANNumber string    `json:"pan_number" gorm:"size:20"`
	Email     string    `json:"email" gorm:"size:100"`
	Phone     string    `json:"phone" gorm:"size:20"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Hospital) TableName() string {
	return "hospitals"
}

// Doctor 医生
type Doctor struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Name           string    `json:"name" gorm:"size:100;not null"`
	Specialization string    `json:"specialization" gorm:"size:100"`
	HospitalID     *string   `json:"hospital_id" gorm:"size:36;index"`
	Email          string    `json:"email" gorm:"size:100"`
	Phone          string    `json:"phone" gorm:"size:20"`
	Location       string    `json:"location" gorm:"size:200"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	CreatedBy      string    `json:"created_by" gorm:"size:36"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Hospital *Hospital `json:"hospital,omitempty" gorm:"foreignKey:HospitalID"`
}

func (Doctor) TableName() string {
	return "doctors"
}

// Principal 供应商（厂商）
type Principal struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Code          string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name          string    `json:"name" gorm:"size:200;not null"`
	GSTNumber     string    `json:"gst_number" gorm:"size:50"`
	PANNumber     string    `json:"pan_number" gorm:"size:20"`
	Email         string    `json:"email" gorm:"size:100"`
	Phone         string    `json:"phone" gorm:"size:20"`
	Address       string    `json:"address" gorm:"size:500"`
	PaymentTerms  string    `json:"payment_terms" gorm:"size:100"`
	CreditDays    int       `json:"credit_days" gorm:"default:0"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedBy     string    `json:"created_by" gorm:"size:36"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Principal) TableName() string {
	return "principals"
}

// Product 产品（药品）
type Product struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	Code            string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name            string    `json:"name" gorm:"size:200;not null"`
	GenericName     string    `json:"generic_name" gorm:"size:200"`
	PrincipalID     string    `json:"principal_id" gorm:"size:36;not null;index"`
	DosageForm      string    `json:"dosage_form" gorm:"size:50"` // tablet/capsule/injection/syrup
	Strength        string    `json:"strength" gorm:"size:50"`
	Unit            string    `json:"unit" gorm:"size:20;default:pcs"`
	HSNCode         string    `json:"hsn_code" gorm:"size:20"`
	StorageCondition string   `json:"storage_condition" gorm:"size:100"` // ambient/cold_chain
	RequiresBatch   bool      `json:"requires_batch" gorm:"default:true"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedBy       string    `json:"created_by" gorm:"size:36"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Principal *Principal `json:"principal,omitempty" gorm:"foreignKey:PrincipalID"`
}

func (Product) TableName() string {
	return "products"
}
