package entity

import (
	"encoding/json"
	"time"
)

// QC总体结论（由工作流 qc_check 迁移驱动，不得手工改写）
const (
	QCResultPassed      = "passed"
	QCResultFailed      = "failed"
	QCResultConditional = "conditional"
)

// QualityControl 质检单
type QualityControl struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	QCCode      string `json:"qc_code" gorm:"size:32;uniqueIndex;not null"`
	ReceivingID string `json:"receiving_id" gorm:"size:36;not null;index"`
	POID        *string `json:"po_id" gorm:"size:36;index"`

	CurrentStageID string `json:"current_stage_id" gorm:"size:36;not null;index"`

	// 跟随 qc_check 迁移落影，不提供手工改写入口
	OverallResult string `json:"overall_result" gorm:"size:20"`

	// 逐行检验明细
	CheckedItems json.RawMessage `json:"checked_items" gorm:"type:jsonb"`
	SampleQty    *int            `json:"sample_qty"`

	InspectorID *string    `json:"inspector_id" gorm:"size:36"`
	InspectedAt *time.Time `json:"inspected_at"`

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (QualityControl) TableName() string {
	return "quality_controls"
}
