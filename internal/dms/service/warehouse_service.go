package service

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"github.com/bitfantasy/pharma-dms/internal/dms/repository"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApprovalSpec 入库审批单入参
type ApprovalSpec struct {
	QCID        string `json:"qc_id" binding:"required"`
	WarehouseID string `json:"warehouse_id" binding:"required"`
	Notes       string `json:"notes"`
}

// WarehouseApprovalService 入库审批服务
// 审批通过后按收货行项逐批入账库存
type WarehouseApprovalService struct {
	repos  *repository.Repositories
	engine *wf.WorkflowService
	stages wf.StageStore
	logger *zap.Logger
}

func NewWarehouseApprovalService(repos *repository.Repositories, engine *wf.WorkflowService, stages wf.StageStore, logger *zap.Logger) *WarehouseApprovalService {
	return &WarehouseApprovalService{repos: repos, engine: engine, stages: stages, logger: logger}
}

// CreateApproval 创建入库审批单，质检须已通过
func (s *WarehouseApprovalService) CreateApproval(ctx context.Context, userID string, spec *ApprovalSpec) (*entity.WarehouseApproval, error) {
	qc, err := s.repos.QualityControl.FindByID(ctx, spec.QCID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "quality_control", ID: spec.QCID}
		}
		return nil, err
	}
	qcStage, err := s.stages.FindByID(ctx, qc.CurrentStageID)
	if err != nil {
		return nil, err
	}
	if qcStage.Code != StageQCPassed {
		return nil, &wf.ConflictError{Message: "质检未通过，不能申请入库"}
	}

	warehouse, err := s.repos.Warehouse.FindWarehouse(ctx, spec.WarehouseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "warehouse", ID: spec.WarehouseID}
		}
		return nil, err
	}
	if !warehouse.IsActive {
		return nil, &wf.ConflictError{Message: "仓库已停用"}
	}

	pending, err := s.stages.FindByCode(ctx, StageWHPending)
	if err != nil {
		return nil, err
	}

	approval := &entity.WarehouseApproval{
		ID:             uuid.New().String(),
		ApprovalCode:   generateCode("WH"),
		QCID:           spec.QCID,
		ReceivingID:    &qc.ReceivingID,
		WarehouseID:    spec.WarehouseID,
		CurrentStageID: pending.ID,
		CreatedBy:      userID,
		Notes:          spec.Notes,
	}
	if err := s.repos.Warehouse.CreateApproval(ctx, approval); err != nil {
		return nil, err
	}
	s.logger.Info("入库审批单已创建",
		zap.String("approval_id", approval.ID),
		zap.String("qc_id", spec.QCID),
		zap.String("warehouse_id", spec.WarehouseID))
	return approval, nil
}

// Approve 审批通过并入账库存：每个收货行项按批号记一笔 RECEIVE 流水
func (s *WarehouseApprovalService) Approve(ctx context.Context, id, userID, remarks string) (*wf.TransitionResult, error) {
	approval, err := s.GetApproval(ctx, id)
	if err != nil {
		return nil, err
	}
	qc, err := s.repos.QualityControl.FindByID(ctx, approval.QCID)
	if err != nil {
		return nil, err
	}
	rec, err := s.repos.InvoiceReceiving.FindByID(ctx, qc.ReceivingID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypeWarehouseApproval,
		EntityID:   id,
		Action:     "approve",
		Remarks:    remarks,
	})
	if err != nil {
		return nil, err
	}

	for _, item := range rec.Items {
		mv := &entity.InventoryMovement{
			ID:            uuid.New().String(),
			ProductID:     item.ProductID,
			WarehouseID:   approval.WarehouseID,
			MovementType:  entity.MovementReceive,
			Quantity:      item.ReceivedQty,
			BatchNumber:   item.BatchNumber,
			ReferenceType: entity.EntityTypeWarehouseApproval,
			ReferenceID:   approval.ID,
			PerformedBy:   userID,
		}
		seed := &entity.Inventory{
			ProductName: item.ProductName,
			Unit:        item.Unit,
			ExpiryDate:  item.ExpiryDate,
		}
		if _, err := s.repos.Inventory.ApplyMovement(ctx, mv, item.ReceivedQty, 0, seed); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	approval.ApprovedBy = &userID
	approval.ApprovedAt = &now
	if err := s.repos.Warehouse.UpdateApproval(ctx, approval); err != nil {
		return nil, err
	}
	s.logger.Info("入库完成",
		zap.String("approval_id", approval.ID),
		zap.Int("movements", len(rec.Items)))
	return result, nil
}

// Reject 审批驳回
func (s *WarehouseApprovalService) Reject(ctx context.Context, id, userID, remarks string) (*wf.TransitionResult, error) {
	return s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypeWarehouseApproval,
		EntityID:   id,
		Action:     "reject",
		Remarks:    remarks,
	})
}

// GetApproval 入库审批详情
func (s *WarehouseApprovalService) GetApproval(ctx context.Context, id string) (*entity.WarehouseApproval, error) {
	approval, err := s.repos.Warehouse.FindApproval(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "warehouse_approval", ID: id}
		}
		return nil, err
	}
	return approval, nil
}

// ListApprovals 入库审批分页列表
func (s *WarehouseApprovalService) ListApprovals(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WarehouseApproval, int64, error) {
	return s.repos.Warehouse.ListApprovals(ctx, page, pageSize, filters)
}

// CreateWarehouse 创建仓库
func (s *WarehouseApprovalService) CreateWarehouse(ctx context.Context, spec *WarehouseSpec) (*entity.Warehouse, error) {
	vb := wf.NewValidationBuilder()
	if spec.Code == "" {
		vb.Add("code", "仓库编码不能为空")
	}
	if spec.Name == "" {
		vb.Add("name", "仓库名称不能为空")
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}
	w := &entity.Warehouse{
		ID:        uuid.New().String(),
		Code:      spec.Code,
		Name:      spec.Name,
		City:      spec.City,
		Address:   spec.Address,
		ColdChain: spec.ColdChain,
		IsActive:  true,
	}
	if err := s.repos.Warehouse.CreateWarehouse(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// WarehouseSpec 仓库入参
type WarehouseSpec struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	City      string `json:"city"`
	Address   string `json:"address"`
	ColdChain bool   `json:"cold_chain"`
}

// ListWarehouses 可用仓库列表
func (s *WarehouseApprovalService) ListWarehouses(ctx context.Context) ([]entity.Warehouse, error) {
	return s.repos.Warehouse.ListWarehouses(ctx)
}
