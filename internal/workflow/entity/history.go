package entity

import "time"

// WorkflowHistory 工作流历史（仅追加的迁移审计流水）
// 按 (entity_type, entity_id) 归属一条实体流水；最新一条的 stage 恒等于实体的 current_stage
type WorkflowHistory struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	EntityType string `json:"entity_type" gorm:"size:50;not null;index:idx_wf_history_entity"`
	EntityID   string `json:"entity_id" gorm:"size:36;not null;index:idx_wf_history_entity"`

	StageID   string `json:"stage_id" gorm:"size:36;not null"`
	StageCode string `json:"stage_code" gorm:"size:50;not null"`
	Action    string `json:"action" gorm:"size:30;not null"`

	ActionBy   string    `json:"action_by" gorm:"size:36;not null"`
	ActionDate time.Time `json:"action_date" gorm:"not null;index"`
	Remarks    string    `json:"remarks" gorm:"type:text"`
	Changes    JSONB     `json:"changes" gorm:"type:jsonb"` // 迁移时提交字段的结构化差异

	CreatedAt time.Time `json:"created_at"`
}

func (WorkflowHistory) TableName() string {
	return "workflow_histories"
}
