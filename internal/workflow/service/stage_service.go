package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var stageCodePattern = regexp.MustCompile(`^[A-Z][A-Z_]*$`)

// StageSpec 阶段创建/更新入参
type StageSpec struct {
	Code                string   `json:"code" binding:"required"`
	Name                string   `json:"name" binding:"required"`
	Description         string   `json:"description"`
	Sequence            int      `json:"sequence"`
	RequiredPermissions []string `json:"required_permissions"`
	AllowedActions      []string `json:"allowed_actions"`
	NextStages          []string `json:"next_stages"`
	IsActive            *bool    `json:"is_active"`
}

// StageService 阶段登记表：工作流阶段的管理操作
type StageService struct {
	stages      StageStore
	transitions TransitionStore
	permissions PermissionStore
	entities    EntityStageStore
	logger      *zap.Logger
}

// NewStageService 创建阶段服务
func NewStageService(stages StageStore, transitions TransitionStore, permissions PermissionStore, entities EntityStageStore, logger *zap.Logger) *StageService {
	return &StageService{
		stages:      stages,
		transitions: transitions,
		permissions: permissions,
		entities:    entities,
		logger:      logger,
	}
}

// validateSpec 收集所有字段违规后一次性上报
func (s *StageService) validateSpec(ctx context.Context, spec *StageSpec) error {
	vb := NewValidationBuilder()

	if l := len(spec.Name); l < 2 || l > 100 {
		vb.Add("name", "length must be between 2 and 100")
	}
	if l := len(spec.Code); l < 2 || l > 50 {
		vb.Add("code", "length must be between 2 and 50")
	} else if !stageCodePattern.MatchString(spec.Code) {
		vb.Add("code", "must contain uppercase letters and underscores only")
	}
	if spec.Sequence < 1 {
		vb.Add("sequence", "must be >= 1")
	}
	if len(spec.AllowedActions) == 0 {
		vb.Add("allowed_actions", "must not be empty")
	}
	for _, a := range spec.AllowedActions {
		if !entity.IsValidStageAction(a) {
			vb.Add("allowed_actions", fmt.Sprintf("unknown action: %s", a))
		}
	}

	if len(spec.RequiredPermissions) > 0 {
		perms, err := s.permissions.FindByIDs(ctx, spec.RequiredPermissions)
		if err != nil {
			return fmt.Errorf("查询权限失败: %w", err)
		}
		if len(perms) != len(uniqueStrings(spec.RequiredPermissions)) {
			vb.Add("required_permissions", "contains unknown permission ids")
		}
	}
	if len(spec.NextStages) > 0 {
		found, err := s.stages.FindByIDs(ctx, spec.NextStages)
		if err != nil {
			return fmt.Errorf("查询阶段失败: %w", err)
		}
		if len(found) != len(uniqueStrings(spec.NextStages)) {
			vb.Add("next_stages", "contains unknown stage ids")
		}
	}

	return vb.Err()
}

// CreateStage 创建阶段
func (s *StageService) CreateStage(ctx context.Context, actorID string, spec *StageSpec) (*entity.WorkflowStage, error) {
	if err := s.validateSpec(ctx, spec); err != nil {
		return nil, err
	}
	if existing, err := s.stages.FindByCode(ctx, spec.Code); err == nil && existing != nil {
		return nil, NewValidationError("code", "already exists")
	}

	stage := &entity.WorkflowStage{
		ID:                  uuid.New().String(),
		Code:                spec.Code,
		Name:                spec.Name,
		Description:         spec.Description,
		Sequence:            spec.Sequence,
		RequiredPermissions: spec.RequiredPermissions,
		AllowedActions:      spec.AllowedActions,
		NextStages:          spec.NextStages,
		IsActive:            true,
		CreatedBy:           actorID,
	}
	if spec.IsActive != nil {
		stage.IsActive = *spec.IsActive
	}
	if err := s.stages.Create(ctx, stage); err != nil {
		return nil, fmt.Errorf("创建阶段失败: %w", err)
	}
	s.logger.Info("workflow stage created",
		zap.String("stage_id", stage.ID), zap.String("code", stage.Code), zap.String("by", actorID))
	return stage, nil
}

// UpdateStage 更新阶段
// code 变更在仍被引用时拒绝（ConflictError），避免悬空引用
func (s *StageService) UpdateStage(ctx context.Context, id string, spec *StageSpec) (*entity.WorkflowStage, error) {
	stage, err := s.stages.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: id}
	}
	if err := s.validateSpec(ctx, spec); err != nil {
		return nil, err
	}
	for _, next := range spec.NextStages {
		if next == id {
			return nil, NewValidationError("next_stages", "stage cannot reference itself")
		}
	}

	if spec.Code != stage.Code {
		if existing, err := s.stages.FindByCode(ctx, spec.Code); err == nil && existing != nil {
			return nil, NewValidationError("code", "already exists")
		}
		referenced, err := s.isReferenced(ctx, id)
		if err != nil {
			return nil, err
		}
		if referenced {
			return nil, &ConflictError{Message: fmt.Sprintf("阶段[%s]仍被引用，不允许修改code", stage.Code)}
		}
	}

	stage.Code = spec.Code
	stage.Name = spec.Name
	stage.Description = spec.Description
	stage.Sequence = spec.Sequence
	stage.RequiredPermissions = spec.RequiredPermissions
	stage.AllowedActions = spec.AllowedActions
	stage.NextStages = spec.NextStages
	if spec.IsActive != nil {
		stage.IsActive = *spec.IsActive
	}
	if err := s.stages.Update(ctx, stage); err != nil {
		return nil, fmt.Errorf("更新阶段失败: %w", err)
	}
	return stage, nil
}

// DeleteStage 删除阶段：被实体、迁移规则或其他阶段引用时拒绝
func (s *StageService) DeleteStage(ctx context.Context, id string) error {
	stage, err := s.stages.FindByID(ctx, id)
	if err != nil {
		return &NotFoundError{Kind: "stage", ID: id}
	}

	liveEntities, err := s.entities.CountByStage(ctx, id)
	if err != nil {
		return fmt.Errorf("检查实体引用失败: %w", err)
	}
	if liveEntities > 0 {
		return &ConflictError{Message: fmt.Sprintf("阶段[%s]仍有%d个实体停留，不允许删除", stage.Code, liveEntities)}
	}

	referenced, err := s.isReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return &ConflictError{Message: fmt.Sprintf("阶段[%s]仍被迁移规则或其他阶段引用，不允许删除", stage.Code)}
	}

	if err := s.stages.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除阶段失败: %w", err)
	}
	s.logger.Info("workflow stage deleted", zap.String("stage_id", id), zap.String("code", stage.Code))
	return nil
}

// isReferenced 阶段是否被迁移规则或其他阶段的 next_stages 引用
func (s *StageService) isReferenced(ctx context.Context, id string) (bool, error) {
	inTransitions, err := s.transitions.CountByStage(ctx, id)
	if err != nil {
		return false, fmt.Errorf("检查迁移规则引用失败: %w", err)
	}
	if inTransitions > 0 {
		return true, nil
	}
	inStages, err := s.stages.CountReferencing(ctx, id)
	if err != nil {
		return false, fmt.Errorf("检查阶段引用失败: %w", err)
	}
	return inStages > 0, nil
}

// ReorderItem 改序入参项
type ReorderItem struct {
	ID       string `json:"id" binding:"required"`
	Sequence int    `json:"sequence" binding:"required"`
}

// ReorderStages 批量改序，原子生效；序号冲突时整体拒绝
func (s *StageService) ReorderStages(ctx context.Context, items []ReorderItem) error {
	if len(items) == 0 {
		return NewValidationError("items", "must not be empty")
	}

	vb := NewValidationBuilder()
	seen := map[int]string{}
	sequences := make(map[string]int, len(items))
	for _, item := range items {
		if item.Sequence < 1 {
			vb.Add(item.ID, "sequence must be >= 1")
		}
		if prev, dup := seen[item.Sequence]; dup {
			vb.Add(item.ID, fmt.Sprintf("sequence %d collides with stage %s", item.Sequence, prev))
		}
		seen[item.Sequence] = item.ID
		sequences[item.ID] = item.Sequence
	}

	// 与未参与改序的阶段比对，避免落库后出现重号
	all, err := s.stages.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("查询阶段失败: %w", err)
	}
	known := map[string]bool{}
	for _, st := range all {
		known[st.ID] = true
		if _, included := sequences[st.ID]; included {
			continue
		}
		if prev, dup := seen[st.Sequence]; dup {
			vb.Add(prev, fmt.Sprintf("sequence %d collides with existing stage %s", st.Sequence, st.Code))
		}
	}
	for id := range sequences {
		if !known[id] {
			vb.Add(id, "unknown stage id")
		}
	}
	if err := vb.Err(); err != nil {
		return err
	}

	if err := s.stages.UpdateSequences(ctx, sequences); err != nil {
		return fmt.Errorf("批量改序失败: %w", err)
	}
	return nil
}

// CloneStage 克隆阶段：复制动作/权限/后继到新的 name/code
func (s *StageService) CloneStage(ctx context.Context, id, newName, newCode, actorID string) (*entity.WorkflowStage, error) {
	src, err := s.stages.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: id}
	}
	spec := &StageSpec{
		Code:                newCode,
		Name:                newName,
		Description:         src.Description,
		Sequence:            src.Sequence + 1,
		RequiredPermissions: src.RequiredPermissions,
		AllowedActions:      src.AllowedActions,
		NextStages:          src.NextStages,
	}
	return s.CreateStage(ctx, actorID, spec)
}

// GetStage 阶段详情
func (s *StageService) GetStage(ctx context.Context, id string) (*entity.WorkflowStage, error) {
	stage, err := s.stages.FindByID(ctx, id)
	if err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: id}
	}
	return stage, nil
}

// ListStages 阶段列表
func (s *StageService) ListStages(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WorkflowStage, int64, error) {
	return s.stages.FindAll(ctx, page, pageSize, filters)
}

func uniqueStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
