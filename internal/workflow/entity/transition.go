package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 条件类型常量（带标签的谓词，不做动态求值）
const (
	ConditionFieldEquals   = "field_equals"
	ConditionFieldNotEmpty = "field_not_empty"
	ConditionFieldGT       = "field_gt"
	ConditionFieldLT       = "field_lt"
	ConditionFieldIn       = "field_in"
)

// TransitionCondition 迁移条件：对实体载荷字段的类型化谓词
type TransitionCondition struct {
	Kind   string        `json:"kind"`
	Field  string        `json:"field"`
	Value  interface{}   `json:"value,omitempty"`
	Values []interface{} `json:"values,omitempty"` // field_in 用
}

// ConditionList 条件列表，存为JSONB，全部满足才放行
type ConditionList []TransitionCondition

func (c ConditionList) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal([]TransitionCondition{})
	}
	return json.Marshal(c)
}

func (c *ConditionList) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan ConditionList: %v", value)
	}
	return json.Unmarshal(bytes, c)
}

// WorkflowTransition 工作流迁移规则（有向边：fromStage --action--> toStage）
// (from,to,action) 业务上视作唯一，但不做库级约束；重复边按 created_at 取第一条
type WorkflowTransition struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	FromStageID string `json:"from_stage_id" gorm:"size:36;not null;index"`
	ToStageID   string `json:"to_stage_id" gorm:"size:36;not null;index"`
	Action      string `json:"action" gorm:"size:30;not null;index"`

	Conditions           ConditionList `json:"conditions" gorm:"type:jsonb;default:'[]'"`
	AutoTransition       bool          `json:"auto_transition" gorm:"default:false"`
	RequiredFields       StringArray   `json:"required_fields" gorm:"type:jsonb;default:'[]'"`
	NotificationTemplate string        `json:"notification_template" gorm:"size:100"`

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	FromStage *WorkflowStage `json:"from_stage,omitempty" gorm:"foreignKey:FromStageID"`
	ToStage   *WorkflowStage `json:"to_stage,omitempty" gorm:"foreignKey:ToStageID"`
}

func (WorkflowTransition) TableName() string {
	return "workflow_transitions"
}
