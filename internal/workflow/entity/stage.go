package entity

import "time"

// 工作流动作常量（阶段内允许的动作，闭合枚举，可按部署扩展）
const (
	StageActionSubmit   = "submit"
	StageActionApprove  = "approve"
	StageActionReject   = "reject"
	StageActionReturn   = "return"
	StageActionCancel   = "cancel"
	StageActionReceive  = "receive"
	StageActionQCCheck  = "qc_check"
	StageActionComplete = "complete"
	// 库存侧扩展动作
	StageActionAdjust   = "adjust"
	StageActionReserve  = "reserve"
	StageActionTransfer = "transfer"
	StageActionUtilize  = "utilize"
)

// StageActions 工作流动作全集
var StageActions = []string{
	StageActionSubmit, StageActionApprove, StageActionReject,
	StageActionReturn, StageActionCancel, StageActionReceive,
	StageActionQCCheck, StageActionComplete,
	StageActionAdjust, StageActionReserve, StageActionTransfer, StageActionUtilize,
}

// IsValidStageAction 判断动作是否在闭合枚举内
func IsValidStageAction(action string) bool {
	for _, a := range StageActions {
		if a == action {
			return true
		}
	}
	return false
}

// WorkflowStage 工作流阶段
// code 全局唯一（大写字母+下划线），sequence 为排序元数据（不强制唯一）
type WorkflowStage struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	Code        string `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"type:text"`
	Sequence    int    `json:"sequence" gorm:"not null;default:1"`

	// 实体停在本阶段时：操作者必须持有的权限、可执行的动作、可达的下一阶段
	RequiredPermissions StringArray `json:"required_permissions" gorm:"type:jsonb;default:'[]'"`
	AllowedActions      StringArray `json:"allowed_actions" gorm:"type:jsonb;not null;default:'[]'"`
	NextStages          StringArray `json:"next_stages" gorm:"type:jsonb;default:'[]'"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkflowStage) TableName() string {
	return "workflow_stages"
}

// IsTerminal 末端阶段：无后继（约定，如 COMPLETED/CANCELLED/REJECTED）
func (s *WorkflowStage) IsTerminal() bool {
	return len(s.NextStages) == 0
}
