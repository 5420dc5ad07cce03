package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionSpec 迁移规则创建/更新入参
type TransitionSpec struct {
	FromStageID          string                       `json:"from_stage_id" binding:"required"`
	ToStageID            string                       `json:"to_stage_id" binding:"required"`
	Action               string                       `json:"action"`
	Conditions           []entity.TransitionCondition `json:"conditions"`
	AutoTransition       bool                         `json:"auto_transition"`
	RequiredFields       []string                     `json:"required_fields"`
	NotificationTemplate string                       `json:"notification_template"`
}

// TransitionService 迁移规则表管理
type TransitionService struct {
	transitions TransitionStore
	stages      StageStore
	logger      *zap.Logger
}

// NewTransitionService 创建迁移规则服务
func NewTransitionService(transitions TransitionStore, stages StageStore, logger *zap.Logger) *TransitionService {
	return &TransitionService{transitions: transitions, stages: stages, logger: logger}
}

func (s *TransitionService) validateSpec(ctx context.Context, spec *TransitionSpec) error {
	vb := NewValidationBuilder()

	// 空动作仅自动迁移边允许（进入源阶段即触发，无用户动作）
	if spec.Action == "" {
		if !spec.AutoTransition {
			vb.Add("action", "required unless auto_transition is set")
		}
	} else if !entity.IsValidStageAction(spec.Action) {
		vb.Add("action", fmt.Sprintf("unknown action: %s", spec.Action))
	}
	if _, err := s.stages.FindByID(ctx, spec.FromStageID); err != nil {
		vb.Add("from_stage_id", "unknown stage id")
	}
	if _, err := s.stages.FindByID(ctx, spec.ToStageID); err != nil {
		vb.Add("to_stage_id", "unknown stage id")
	}
	for i, c := range spec.Conditions {
		switch c.Kind {
		case entity.ConditionFieldEquals, entity.ConditionFieldGT, entity.ConditionFieldLT:
			if c.Field == "" || c.Value == nil {
				vb.Add(fmt.Sprintf("conditions[%d]", i), "field and value are required")
			}
		case entity.ConditionFieldNotEmpty:
			if c.Field == "" {
				vb.Add(fmt.Sprintf("conditions[%d]", i), "field is required")
			}
		case entity.ConditionFieldIn:
			if c.Field == "" || len(c.Values) == 0 {
				vb.Add(fmt.Sprintf("conditions[%d]", i), "field and values are required")
			}
		default:
			vb.Add(fmt.Sprintf("conditions[%d]", i), fmt.Sprintf("unknown condition kind: %s", c.Kind))
		}
	}

	return vb.Err()
}

// CreateTransition 创建迁移规则
// (from,to,action) 不做库级唯一约束；引擎按 created_at 取首条匹配
func (s *TransitionService) CreateTransition(ctx context.Context, actorID string, spec *TransitionSpec) (*entity.WorkflowTransition, error) {
	if err := s.validateSpec(ctx, spec); err != nil {
		return nil, err
	}

	t := &entity.WorkflowTransition{
		ID:                   uuid.New().String(),
		FromStageID:          spec.FromStageID,
		ToStageID:            spec.ToStageID,
		Action:               spec.Action,
		Conditions:           spec.Conditions,
		AutoTransition:       spec.AutoTransition,
		RequiredFields:       spec.RequiredFields,
		NotificationTemplate: spec.NotificationTemplate,
		CreatedBy:            actorID,
	}
	if err := s.transitions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("创建迁移规则失败: %w", err)
	}
	s.logger.Info("workflow transition created",
		zap.String("transition_id", t.ID),
		zap.String("from", t.FromStageID), zap.String("to", t.ToStageID), zap.String("action", t.Action))
	return t, nil
}

// UpdateTransition 更新迁移规则
func (s *TransitionService) UpdateTransition(ctx context.Context, id string, spec *TransitionSpec) (*entity.WorkflowTransition, error) {
	t, err := s.transitions.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Kind: "transition", ID: id}
	}
	if err := s.validateSpec(ctx, spec); err != nil {
		return nil, err
	}

	t.FromStageID = spec.FromStageID
	t.ToStageID = spec.ToStageID
	t.Action = spec.Action
	t.Conditions = spec.Conditions
	t.AutoTransition = spec.AutoTransition
	t.RequiredFields = spec.RequiredFields
	t.NotificationTemplate = spec.NotificationTemplate
	if err := s.transitions.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("更新迁移规则失败: %w", err)
	}
	return t, nil
}

// ListTransitions 按条件查询迁移规则
func (s *TransitionService) ListTransitions(ctx context.Context, filter TransitionFilter) ([]entity.WorkflowTransition, error) {
	return s.transitions.Find(ctx, filter)
}

// DeleteTransition 删除迁移规则
func (s *TransitionService) DeleteTransition(ctx context.Context, id string) error {
	if _, err := s.transitions.FindByID(ctx, id); err != nil {
		return &NotFoundError{Kind: "transition", ID: id}
	}
	if err := s.transitions.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除迁移规则失败: %w", err)
	}
	return nil
}
