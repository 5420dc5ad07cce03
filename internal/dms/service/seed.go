package service

import (
	"context"
	"errors"

	wfentity "github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"github.com/bitfantasy/pharma-dms/internal/workflow/repository"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 各单据的阶段编码。阶段归属按前缀区分，迁移规则只在同一单据的阶段之间连边。
const (
	StagePODraft             = "PO_DRAFT"
	StagePOPendingApproval   = "PO_PENDING_APPROVAL"
	StagePOApproved          = "PO_APPROVED"
	StagePOPartiallyReceived = "PO_PARTIALLY_RECEIVED"
	StagePOReceived          = "PO_RECEIVED"
	StagePOCancelled         = "PO_CANCELLED"

	StageRcvDraft    = "RCV_DRAFT"
	StageRcvReceived = "RCV_RECEIVED"

	StageQCPending = "QC_PENDING"
	StageQCPassed  = "QC_PASSED"
	StageQCFailed  = "QC_FAILED"

	StageWHPending  = "WH_PENDING"
	StageWHApproved = "WH_APPROVED"
	StageWHRejected = "WH_REJECTED"
)

// Seeder 初始化权限目录与默认工作流（阶段 + 迁移规则），可重复执行
type Seeder struct {
	stageSvc    *wf.StageService
	transSvc    *wf.TransitionService
	stages      wf.StageStore
	transitions wf.TransitionStore
	permissions wf.PermissionStore
	logger      *zap.Logger
}

func NewSeeder(stageSvc *wf.StageService, transSvc *wf.TransitionService,
	stages wf.StageStore, transitions wf.TransitionStore,
	permissions wf.PermissionStore, logger *zap.Logger) *Seeder {
	return &Seeder{
		stageSvc:    stageSvc,
		transSvc:    transSvc,
		stages:      stages,
		transitions: transitions,
		permissions: permissions,
		logger:      logger,
	}
}

// Seed 执行全部种子步骤
func (s *Seeder) Seed(ctx context.Context) error {
	perms, err := s.SeedPermissions(ctx)
	if err != nil {
		return err
	}
	stageIDs, err := s.seedStages(ctx, perms)
	if err != nil {
		return err
	}
	if err := s.seedTransitions(ctx, stageIDs); err != nil {
		return err
	}
	return s.syncNextStages(ctx, stageIDs)
}

// SeedPermissions 资源×动作权限目录，返回 name→id
func (s *Seeder) SeedPermissions(ctx context.Context) (map[string]string, error) {
	matrix := map[string][]string{
		"purchase_orders":     {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionUpdate, wfentity.ActionDelete, wfentity.ActionSubmit, wfentity.ActionApprove},
		"invoice_receivings":  {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionUpdate, wfentity.ActionSubmit},
		"quality_controls":    {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionUpdate, wfentity.ActionSubmit},
		"warehouse_approvals": {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionApprove},
		"inventory":           {wfentity.ActionView, wfentity.ActionStatistics, wfentity.ActionAdjust, wfentity.ActionReserve, wfentity.ActionTransfer, wfentity.ActionUtilize, wfentity.ActionMovementHistory},
		"hospitals":           {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionUpdate},
		"doctors":             {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionUpdate},
		"principals":          {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionUpdate},
		"products":            {wfentity.ActionView, wfentity.ActionCreate, wfentity.ActionUpdate},
	}

	out := make(map[string]string)
	for resource, actions := range matrix {
		for _, action := range actions {
			name := resource + "." + action
			existing, err := s.permissions.FindByName(ctx, name)
			if err == nil {
				out[name] = existing.ID
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			p := &wfentity.Permission{
				ID:       uuid.New().String(),
				Name:     name,
				Resource: resource,
				Action:   action,
			}
			if err := s.permissions.Create(ctx, p); err != nil {
				return nil, err
			}
			out[name] = p.ID
		}
	}
	s.logger.Info("权限目录就绪", zap.Int("count", len(out)))
	return out, nil
}

type stageSeed struct {
	code     string
	name     string
	sequence int
	actions  []string
	perms    []string // 权限名，落库前换成 ID
}

func (s *Seeder) seedStages(ctx context.Context, perms map[string]string) (map[string]string, error) {
	seeds := []stageSeed{
		{StagePODraft, "订单草稿", 10, []string{wfentity.StageActionSubmit, wfentity.StageActionCancel}, []string{"purchase_orders.submit"}},
		{StagePOPendingApproval, "订单待审批", 20, []string{wfentity.StageActionApprove, wfentity.StageActionReject, wfentity.StageActionCancel}, []string{"purchase_orders.approve"}},
		{StagePOApproved, "订单已批准", 30, []string{wfentity.StageActionReceive, wfentity.StageActionCancel}, []string{"invoice_receivings.create"}},
		{StagePOPartiallyReceived, "订单部分收货", 40, []string{wfentity.StageActionReceive}, []string{"invoice_receivings.create"}},
		{StagePOReceived, "订单收货完成", 50, []string{wfentity.StageActionComplete}, nil},
		{StagePOCancelled, "订单已取消", 60, []string{wfentity.StageActionComplete}, nil},

		{StageRcvDraft, "收货单草稿", 110, []string{wfentity.StageActionReceive, wfentity.StageActionCancel}, []string{"invoice_receivings.submit"}},
		{StageRcvReceived, "收货完成", 120, []string{wfentity.StageActionComplete}, nil},

		{StageQCPending, "质检待检", 210, []string{wfentity.StageActionQCCheck}, []string{"quality_controls.submit"}},
		{StageQCPassed, "质检通过", 220, []string{wfentity.StageActionComplete}, nil},
		{StageQCFailed, "质检不合格", 230, []string{wfentity.StageActionComplete}, nil},

		{StageWHPending, "入库待审批", 310, []string{wfentity.StageActionApprove, wfentity.StageActionReject}, []string{"warehouse_approvals.approve"}},
		{StageWHApproved, "入库完成", 320, []string{wfentity.StageActionComplete}, nil},
		{StageWHRejected, "入库驳回", 330, []string{wfentity.StageActionComplete}, nil},
	}

	ids := make(map[string]string)
	for _, seed := range seeds {
		existing, err := s.stages.FindByCode(ctx, seed.code)
		if err == nil {
			ids[seed.code] = existing.ID
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		var permIDs []string
		for _, name := range seed.perms {
			if id, ok := perms[name]; ok {
				permIDs = append(permIDs, id)
			}
		}
		spec := &wf.StageSpec{
			Code:                seed.code,
			Name:                seed.name,
			Sequence:            seed.sequence,
			AllowedActions:      seed.actions,
			RequiredPermissions: permIDs,
		}
		created, err := s.stageSvc.CreateStage(ctx, wf.SystemActor, spec)
		if err != nil {
			return nil, err
		}
		ids[seed.code] = created.ID
	}
	s.logger.Info("阶段注册表就绪", zap.Int("count", len(ids)))
	return ids, nil
}

type transitionSeed struct {
	from, to, action string
	conditions       []wfentity.TransitionCondition
	auto             bool
	requiredFields   []string
	template         string
}

func defaultTransitionSeeds() []transitionSeed {
	return []transitionSeed{
		// 采购订单
		{from: StagePODraft, to: StagePOPendingApproval, action: wfentity.StageActionSubmit, template: "po_submitted"},
		{from: StagePODraft, to: StagePOCancelled, action: wfentity.StageActionCancel},
		{from: StagePOPendingApproval, to: StagePOApproved, action: wfentity.StageActionApprove, template: "po_approved"},
		{from: StagePOPendingApproval, to: StagePODraft, action: wfentity.StageActionReject},
		{from: StagePOPendingApproval, to: StagePOCancelled, action: wfentity.StageActionCancel},
		{from: StagePOApproved, to: StagePOReceived, action: wfentity.StageActionReceive,
			conditions: []wfentity.TransitionCondition{{Kind: wfentity.ConditionFieldEquals, Field: "fully_received", Value: true}}},
		{from: StagePOApproved, to: StagePOPartiallyReceived, action: wfentity.StageActionReceive,
			conditions: []wfentity.TransitionCondition{{Kind: wfentity.ConditionFieldEquals, Field: "fully_received", Value: false}}},
		{from: StagePOApproved, to: StagePOCancelled, action: wfentity.StageActionCancel},
		{from: StagePOPartiallyReceived, to: StagePOReceived, action: wfentity.StageActionReceive,
			conditions: []wfentity.TransitionCondition{{Kind: wfentity.ConditionFieldEquals, Field: "fully_received", Value: true}}},

		// 收货单
		{from: StageRcvDraft, to: StageRcvReceived, action: wfentity.StageActionReceive,
			requiredFields: []string{"received_date"}, template: "goods_received"},

		// 质检
		{from: StageQCPending, to: StageQCPassed, action: wfentity.StageActionQCCheck,
			conditions: []wfentity.TransitionCondition{{Kind: wfentity.ConditionFieldEquals, Field: "overall_result", Value: "passed"}},
			template:   "qc_passed"},
		{from: StageQCPending, to: StageQCFailed, action: wfentity.StageActionQCCheck,
			conditions: []wfentity.TransitionCondition{{Kind: wfentity.ConditionFieldIn, Field: "overall_result", Values: []interface{}{"failed", "conditional"}}},
			template:   "qc_failed"},

		// 入库审批
		{from: StageWHPending, to: StageWHApproved, action: wfentity.StageActionApprove, template: "stock_posted"},
		{from: StageWHPending, to: StageWHRejected, action: wfentity.StageActionReject},
	}
}

func (s *Seeder) seedTransitions(ctx context.Context, ids map[string]string) error {
	for _, seed := range defaultTransitionSeeds() {
		fromID, toID := ids[seed.from], ids[seed.to]
		if fromID == "" || toID == "" {
			continue
		}
		existing, err := s.transitions.Find(ctx, wf.TransitionFilter{
			FromStageID: fromID,
			ToStageID:   toID,
			Action:      seed.action,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		spec := &wf.TransitionSpec{
			FromStageID:          fromID,
			ToStageID:            toID,
			Action:               seed.action,
			Conditions:           seed.conditions,
			AutoTransition:       seed.auto,
			RequiredFields:       seed.requiredFields,
			NotificationTemplate: seed.template,
		}
		if _, err := s.transSvc.CreateTransition(ctx, wf.SystemActor, spec); err != nil {
			return err
		}
	}
	s.logger.Info("默认迁移规则就绪")
	return nil
}

// syncNextStages 按迁移规则回填各阶段的 next_stages（终态判定与可视化依赖它）
func (s *Seeder) syncNextStages(ctx context.Context, ids map[string]string) error {
	nexts := make(map[string][]string)
	for _, seed := range defaultTransitionSeeds() {
		fromID, toID := ids[seed.from], ids[seed.to]
		if fromID == "" || toID == "" {
			continue
		}
		dup := false
		for _, existing := range nexts[fromID] {
			if existing == toID {
				dup = true
				break
			}
		}
		if !dup {
			nexts[fromID] = append(nexts[fromID], toID)
		}
	}

	for fromID, toIDs := range nexts {
		stage, err := s.stages.FindByID(ctx, fromID)
		if err != nil {
			return err
		}
		if len(stage.NextStages) > 0 {
			continue
		}
		isActive := stage.IsActive
		spec := &wf.StageSpec{
			Code:                stage.Code,
			Name:                stage.Name,
			Description:         stage.Description,
			Sequence:            stage.Sequence,
			RequiredPermissions: stage.RequiredPermissions,
			AllowedActions:      stage.AllowedActions,
			NextStages:          toIDs,
			IsActive:            &isActive,
		}
		if _, err := s.stageSvc.UpdateStage(ctx, stage.ID, spec); err != nil {
			return err
		}
	}
	return nil
}
