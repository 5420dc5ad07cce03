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

// ReceivingItemSpec 收货行项入参
type ReceivingItemSpec struct {
	POItemID    string     `json:"po_item_id" binding:"required"`
	BatchNumber string     `json:"batch_number" binding:"required"`
	ExpiryDate  *time.Time `json:"expiry_date"`
	ReceivedQty float64    `json:"received_qty" binding:"required"`
}

// ReceivingSpec 收货单入参
type ReceivingSpec struct {
	POID          string              `json:"po_id" binding:"required"`
	InvoiceNumber string              `json:"invoice_number" binding:"required"`
	InvoiceDate   time.Time           `json:"invoice_date" binding:"required"`
	InvoiceAmount float64             `json:"invoice_amount"`
	Notes         string              `json:"notes"`
	Items         []ReceivingItemSpec `json:"items" binding:"required"`
}

// InvoiceReceivingService 发票收货服务
// 收货确认走引擎迁移，确认后累计订单行项收货量并重算订单阶段
type InvoiceReceivingService struct {
	repos  *repository.Repositories
	engine *wf.WorkflowService
	stages wf.StageStore
	poSvc  *PurchaseOrderService
	logger *zap.Logger
}

func NewInvoiceReceivingService(repos *repository.Repositories, engine *wf.WorkflowService, stages wf.StageStore, poSvc *PurchaseOrderService, logger *zap.Logger) *InvoiceReceivingService {
	return &InvoiceReceivingService{repos: repos, engine: engine, stages: stages, poSvc: poSvc, logger: logger}
}

// CreateReceiving 创建收货单草稿，订单须处于已批准/部分收货阶段
func (s *InvoiceReceivingService) CreateReceiving(ctx context.Context, userID string, spec *ReceivingSpec) (*entity.InvoiceReceiving, error) {
	po, err := s.repos.PurchaseOrder.FindByID(ctx, spec.POID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "purchase_order", ID: spec.POID}
		}
		return nil, err
	}
	poStage, err := s.stages.FindByID(ctx, po.CurrentStageID)
	if err != nil {
		return nil, err
	}
	if poStage.Code != StagePOApproved && poStage.Code != StagePOPartiallyReceived {
		return nil, &wf.ConflictError{Message: "订单尚未批准，不能收货"}
	}

	poItems := make(map[string]*entity.POItem, len(po.Items))
	for i := range po.Items {
		poItems[po.Items[i].ID] = &po.Items[i]
	}

	vb := wf.NewValidationBuilder()
	if len(spec.Items) == 0 {
		vb.Add("items", "至少需要一个收货行项")
	}
	for _, item := range spec.Items {
		poItem, ok := poItems[item.POItemID]
		if !ok {
			vb.Add("items", "收货行项不属于该订单")
			break
		}
		if item.ReceivedQty <= 0 {
			vb.Add("items", "收货数量必须大于 0")
			break
		}
		if item.ReceivedQty > poItem.Quantity-poItem.ReceivedQty {
			vb.Add("items", "收货数量超过订单剩余数量")
			break
		}
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	draft, err := s.stages.FindByCode(ctx, StageRcvDraft)
	if err != nil {
		return nil, err
	}

	rec := &entity.InvoiceReceiving{
		ID:             uuid.New().String(),
		ReceivingCode:  generateCode("RCV"),
		POID:           spec.POID,
		InvoiceNumber:  spec.InvoiceNumber,
		InvoiceDate:    spec.InvoiceDate,
		CurrentStageID: draft.ID,
		InvoiceAmount:  spec.InvoiceAmount,
		Notes:          spec.Notes,
		CreatedBy:      userID,
	}
	for _, item := range spec.Items {
		poItem := poItems[item.POItemID]
		rec.Items = append(rec.Items, entity.InvoiceReceivingItem{
			ID:          uuid.New().String(),
			ReceivingID: rec.ID,
			POItemID:    item.POItemID,
			ProductID:   poItem.ProductID,
			ProductName: poItem.ProductName,
			BatchNumber: item.BatchNumber,
			ExpiryDate:  item.ExpiryDate,
			ReceivedQty: item.ReceivedQty,
			Unit:        poItem.Unit,
		})
	}

	if err := s.repos.InvoiceReceiving.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("收货单已创建",
		zap.String("receiving_id", rec.ID),
		zap.String("po_id", spec.POID))
	return rec, nil
}

// Receive 确认收货：引擎迁移成功后累计订单收货量并重算订单阶段
func (s *InvoiceReceivingService) Receive(ctx context.Context, id, userID, remarks string) (*wf.TransitionResult, error) {
	rec, err := s.GetReceiving(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypeInvoiceReceiving,
		EntityID:   id,
		Action:     "receive",
		Remarks:    remarks,
		Fields:     map[string]interface{}{"received_date": now.Format(time.RFC3339)},
	})
	if err != nil {
		return nil, err
	}

	rec.ReceivedDate = &now
	rec.ReceivedBy = &userID
	if err := s.repos.InvoiceReceiving.Update(ctx, rec); err != nil {
		return nil, err
	}
	for _, item := range rec.Items {
		if err := s.repos.PurchaseOrder.AddReceivedQty(ctx, item.POItemID, item.ReceivedQty); err != nil {
			return nil, err
		}
	}
	if err := s.poSvc.RecomputePOStatus(ctx, rec.POID); err != nil {
		return nil, err
	}
	return result, nil
}

// GetReceiving 收货单详情
func (s *InvoiceReceivingService) GetReceiving(ctx context.Context, id string) (*entity.InvoiceReceiving, error) {
	rec, err := s.repos.InvoiceReceiving.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "invoice_receiving", ID: id}
		}
		return nil, err
	}
	return rec, nil
}

// ListReceivings 收货单分页列表
func (s *InvoiceReceivingService) ListReceivings(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InvoiceReceiving, int64, error) {
	return s.repos.InvoiceReceiving.FindAll(ctx, page, pageSize, filters)
}
