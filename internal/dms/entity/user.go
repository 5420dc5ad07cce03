package entity

import "time"

// User 用户目录（协作方：只供 assigned_by/performed_by 展示与存在性校验）
type User struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Username    string     `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Name        string     `json:"name" gorm:"size:100;not null"`
	Email       string     `json:"email" gorm:"size:100;uniqueIndex"`
	Phone       string     `json:"phone" gorm:"size:20"`
	Role        string     `json:"role" gorm:"size:50;default:operator"` // admin/manager/operator/qc_inspector/warehouse_keeper
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
