package entity

import "time"

// 权限动作常量（闭合枚举）
const (
	ActionView            = "view"
	ActionCreate          = "create"
	ActionUpdate          = "update"
	ActionDelete          = "delete"
	ActionSubmit          = "submit"
	ActionApprove         = "approve"
	ActionStatistics      = "statistics"
	ActionAdjust          = "adjust"
	ActionReserve         = "reserve"
	ActionTransfer        = "transfer"
	ActionUtilize         = "utilize"
	ActionMovementHistory = "movement_history"
)

// PermissionActions 权限动作全集
var PermissionActions = []string{
	ActionView, ActionCreate, ActionUpdate, ActionDelete,
	ActionSubmit, ActionApprove, ActionStatistics,
	ActionAdjust, ActionReserve, ActionTransfer,
	ActionUtilize, ActionMovementHistory,
}

// IsValidPermissionAction 判断动作是否在闭合枚举内
func IsValidPermissionAction(action string) bool {
	for _, a := range PermissionActions {
		if a == action {
			return true
		}
	}
	return false
}

// Permission 权限（资源+动作的能力令牌）
// 参考数据：由种子/管理工具创建，引擎只读
type Permission struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Resource    string    `json:"resource" gorm:"size:50;not null;index"` // purchase_orders/invoice_receivings/...
	Action      string    `json:"action" gorm:"size:30;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Permission) TableName() string {
	return "permissions"
}
