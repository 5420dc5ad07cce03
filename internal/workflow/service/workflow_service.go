package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxAutoTransitionDepth 自动迁移链深度上限，超出判定为配置环路
const maxAutoTransitionDepth = 10

// SystemActor 系统身份：自动迁移与服务内部重算使用，跳过阶段级授权
const SystemActor = "system"

// TransitionRequest 执行迁移入参
type TransitionRequest struct {
	EntityType    string                 `json:"entity_type" binding:"required"`
	EntityID      string                 `json:"entity_id" binding:"required"`
	Action        string                 `json:"action" binding:"required"`
	TargetStageID string                 `json:"target_stage_id"` // 同一动作多个出边时指定目标
	Remarks       string                 `json:"remarks"`
	Fields        map[string]interface{} `json:"fields"`
}

// TransitionResult 迁移结果：新阶段 + 本次历史，含自动链尾随的历史
type TransitionResult struct {
	Stage   *entity.WorkflowStage    `json:"stage"`
	History *entity.WorkflowHistory  `json:"history"`
	Chained []entity.WorkflowHistory `json:"chained,omitempty"`
}

// ValidationOutcome 预检结果
type ValidationOutcome struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// WorkflowService 工作流引擎核心：校验并执行阶段迁移，记录历史，派发通知
type WorkflowService struct {
	stages      StageStore
	transitions TransitionStore
	grants      *StagePermissionService
	history     HistoryStore
	entities    EntityStageStore
	audit       AuditSink
	notify      NotificationSink
	logger      *zap.Logger
}

// NewWorkflowService 创建工作流引擎
func NewWorkflowService(
	stages StageStore,
	transitions TransitionStore,
	grants *StagePermissionService,
	history HistoryStore,
	entities EntityStageStore,
	audit AuditSink,
	notify NotificationSink,
	logger *zap.Logger,
) *WorkflowService {
	return &WorkflowService{
		stages:      stages,
		transitions: transitions,
		grants:      grants,
		history:     history,
		entities:    entities,
		audit:       audit,
		notify:      notify,
		logger:      logger,
	}
}

// resolvedTransition 预检通过后的迁移上下文
type resolvedTransition struct {
	current *entity.WorkflowStage
	rule    *entity.WorkflowTransition
	scope   map[string]interface{} // 实体快照 + 载荷覆盖
}

// resolve 迁移预检：定位当前阶段、校验动作/授权/路由/必填字段/条件
// 全程无副作用，Execute 与 Validate 共用
func (s *WorkflowService) resolve(ctx context.Context, actingUser string, req *TransitionRequest) (*resolvedTransition, error) {
	// 1. 读实体当前阶段
	currentStageID, err := s.entities.CurrentStage(ctx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, &NotFoundError{Kind: req.EntityType, ID: req.EntityID}
	}

	// 2. 解析阶段记录，失活视同缺失
	current, err := s.stages.FindByID(ctx, currentStageID)
	if err != nil || !current.IsActive {
		return nil, &NotFoundError{Kind: "stage", ID: currentStageID}
	}

	// 3. 动作必须在当前阶段的 allowed_actions 内
	if !current.AllowedActions.Contains(req.Action) {
		return nil, &TransitionRejectedError{
			Reason:  ReasonInvalidAction,
			Message: fmt.Sprintf("action %s is not allowed on stage %s", req.Action, current.Code),
		}
	}

	// 4. 阶段级授权（系统身份与自动迁移同权，免检）
	if actingUser != SystemActor {
		allowed, err := s.grants.CanPerformAction(ctx, actingUser, currentStageID, req.Action)
		if err != nil {
			return nil, err
		}
		if !allowed {
			missing, _ := s.grants.MissingPermissions(ctx, actingUser, currentStageID)
			return nil, &ForbiddenError{UserID: actingUser, StageID: currentStageID, Action: req.Action, Missing: missing}
		}
	}

	// 5. 路由：按 (from, action[, target]) 取首条规则
	rules, err := s.transitions.Find(ctx, TransitionFilter{
		FromStageID: currentStageID,
		ToStageID:   req.TargetStageID,
		Action:      req.Action,
	})
	if err != nil {
		return nil, fmt.Errorf("查询迁移规则失败: %w", err)
	}
	if len(rules) == 0 {
		return nil, &TransitionRejectedError{
			Reason:  ReasonNoRoute,
			Message: fmt.Sprintf("no transition from stage %s for action %s", current.Code, req.Action),
		}
	}
	rule := rules[0]

	// 6. 必填字段：载荷必须给出且非空
	if missing := missingFields(rule.RequiredFields, req.Fields); len(missing) > 0 {
		return nil, &TransitionRejectedError{
			Reason:  ReasonMissingField,
			Message: "required fields are missing",
			Fields:  missing,
		}
	}

	// 7. 条件谓词：在实体快照+载荷的合并视图上求值
	scope, err := s.entities.Snapshot(ctx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, &NotFoundError{Kind: req.EntityType, ID: req.EntityID}
	}
	if scope == nil {
		scope = map[string]interface{}{}
	}
	for k, v := range req.Fields {
		scope[k] = v
	}
	if ok, why := evaluateConditions(rule.Conditions, scope); !ok {
		return nil, &TransitionRejectedError{Reason: ReasonConditionNotMet, Message: why}
	}

	return &resolvedTransition{current: current, rule: &rule, scope: scope}, nil
}

// ExecuteTransition 执行迁移
// 阶段写回为 check-and-set：当前阶段自读取后被他人推进则返回
// ConcurrentModificationError，调用方可安全重试
func (s *WorkflowService) ExecuteTransition(ctx context.Context, actingUser string, req *TransitionRequest) (*TransitionResult, error) {
	resolved, err := s.resolve(ctx, actingUser, req)
	if err != nil {
		return nil, err
	}

	// 8. CAS 写回 + 追加历史
	hist, err := s.apply(ctx, req.EntityType, req.EntityID, resolved.current.ID, resolved.rule, req.Action, actingUser, req.Remarks, req.Fields)
	if err != nil {
		return nil, err
	}

	target, err := s.stages.FindByID(ctx, resolved.rule.ToStageID)
	if err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: resolved.rule.ToStageID}
	}

	// 9. 旁路副作用：审计吞错、通知异步
	s.recordAudit(ctx, req.Action, req.EntityType, req.EntityID, actingUser, req.Fields)
	s.dispatchNotification(resolved.rule, target, req, actingUser)

	result := &TransitionResult{Stage: target, History: hist}

	// 10. 自动迁移链
	chained, finalStage, err := s.runAutoChain(ctx, req.EntityType, req.EntityID, target)
	if err != nil {
		return nil, err
	}
	if len(chained) > 0 {
		result.Chained = chained
		result.Stage = finalStage
	}
	return result, nil
}

// apply 单步落库：条件写回阶段 + 追加历史
func (s *WorkflowService) apply(ctx context.Context, entityType, entityID, fromStageID string, rule *entity.WorkflowTransition, action, actingUser, remarks string, fields map[string]interface{}) (*entity.WorkflowHistory, error) {
	ok, err := s.entities.CompareAndSetStage(ctx, entityType, entityID, fromStageID, rule.ToStageID)
	if err != nil {
		return nil, fmt.Errorf("写回实体阶段失败: %w", err)
	}
	if !ok {
		return nil, &ConcurrentModificationError{EntityType: entityType, EntityID: entityID}
	}

	target, err := s.stages.FindByID(ctx, rule.ToStageID)
	if err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: rule.ToStageID}
	}

	hist := &entity.WorkflowHistory{
		ID:         uuid.New().String(),
		EntityType: entityType,
		EntityID:   entityID,
		StageID:    target.ID,
		StageCode:  target.Code,
		Action:     action,
		ActionBy:   actingUser,
		ActionDate: time.Now(),
		Remarks:    remarks,
		Changes:    entity.JSONB(fields),
	}
	if err := s.history.Append(ctx, hist); err != nil {
		return nil, fmt.Errorf("记录工作流历史失败: %w", err)
	}

	s.logger.Info("workflow transition applied",
		zap.String("entity_type", entityType), zap.String("entity_id", entityID),
		zap.String("from_stage", fromStageID), zap.String("to_stage", target.ID),
		zap.String("action", action), zap.String("by", actingUser))
	return hist, nil
}

// runAutoChain 进入新阶段后继续触发 auto_transition 出边，直至无边可走
// 超过 maxAutoTransitionDepth 判定为环路配置，报 WorkflowLoopError
func (s *WorkflowService) runAutoChain(ctx context.Context, entityType, entityID string, from *entity.WorkflowStage) ([]entity.WorkflowHistory, *entity.WorkflowStage, error) {
	var chained []entity.WorkflowHistory
	current := from

	for depth := 0; ; depth++ {
		if depth >= maxAutoTransitionDepth {
			s.logger.Error("auto-transition loop detected",
				zap.String("entity_type", entityType), zap.String("entity_id", entityID),
				zap.String("stage", current.Code), zap.Int("depth", depth))
			return chained, current, &WorkflowLoopError{EntityType: entityType, EntityID: entityID, Depth: maxAutoTransitionDepth}
		}

		rules, err := s.transitions.Find(ctx, TransitionFilter{FromStageID: current.ID})
		if err != nil {
			return chained, current, fmt.Errorf("查询自动迁移规则失败: %w", err)
		}

		var auto *entity.WorkflowTransition
		for i := range rules {
			if rules[i].AutoTransition {
				auto = &rules[i]
				break
			}
		}
		if auto == nil {
			return chained, current, nil
		}

		// 条件不满足则链在此停住（不是错误）
		scope, err := s.entities.Snapshot(ctx, entityType, entityID)
		if err != nil {
			return chained, current, &NotFoundError{Kind: entityType, ID: entityID}
		}
		if ok, _ := evaluateConditions(auto.Conditions, scope); !ok {
			return chained, current, nil
		}

		action := auto.Action
		if action == "" {
			action = "auto"
		}
		hist, err := s.apply(ctx, entityType, entityID, current.ID, auto, action, SystemActor, "自动迁移", nil)
		if err != nil {
			return chained, current, err
		}
		chained = append(chained, *hist)

		next, err := s.stages.FindByID(ctx, auto.ToStageID)
		if err != nil {
			return chained, current, &NotFoundError{Kind: "stage", ID: auto.ToStageID}
		}
		s.recordAudit(ctx, action, entityType, entityID, SystemActor, nil)
		current = next
	}
}

// ValidateAction 预检（resolve 但不落库），供UI提前判定
func (s *WorkflowService) ValidateAction(ctx context.Context, actingUser string, req *TransitionRequest) (*ValidationOutcome, error) {
	_, err := s.resolve(ctx, actingUser, req)
	if err == nil {
		return &ValidationOutcome{Valid: true}, nil
	}
	// 预检把拒绝类错误折叠为 {valid:false, reason}；畸形输入仍按错误上抛
	switch err.(type) {
	case *TransitionRejectedError, *ForbiddenError, *NotFoundError:
		return &ValidationOutcome{Valid: false, Reason: err.Error()}, nil
	default:
		return nil, err
	}
}

// GetHistory 工作流历史，倒序分页
func (s *WorkflowService) GetHistory(ctx context.Context, entityType, entityID string, page, limit int) ([]entity.WorkflowHistory, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	return s.history.Find(ctx, entityType, entityID, page, limit)
}

// recordAudit 审计失败只记日志，绝不影响已提交的迁移
func (s *WorkflowService) recordAudit(ctx context.Context, action, entityType, entityID, actingUser string, changes map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, entityType, entityID, actingUser, changes); err != nil {
		s.logger.Warn("audit sink failed",
			zap.String("entity_type", entityType), zap.String("entity_id", entityID), zap.Error(err))
	}
}

// dispatchNotification 异步派发通知（不阻断主流程）
func (s *WorkflowService) dispatchNotification(rule *entity.WorkflowTransition, target *entity.WorkflowStage, req *TransitionRequest, actingUser string) {
	if s.notify == nil || rule.NotificationTemplate == "" {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		recipients, err := s.grants.grants.ActiveUserIDs(bgCtx, target.ID)
		if err != nil {
			s.logger.Warn("resolve notification recipients failed", zap.Error(err))
			return
		}
		payload := map[string]interface{}{
			"entity_type": req.EntityType,
			"entity_id":   req.EntityID,
			"action":      req.Action,
			"stage_code":  target.Code,
			"stage_name":  target.Name,
			"action_by":   actingUser,
			"remarks":     req.Remarks,
		}
		if err := s.notify.Dispatch(bgCtx, rule.NotificationTemplate, recipients, payload); err != nil {
			s.logger.Warn("notification dispatch failed",
				zap.String("template", rule.NotificationTemplate), zap.Error(err))
		}
	}()
}

func missingFields(required entity.StringArray, fields map[string]interface{}) []string {
	var missing []string
	for _, f := range required {
		v, ok := fields[f]
		if !ok || isEmptyValue(v) {
			missing = append(missing, f)
		}
	}
	return missing
}
