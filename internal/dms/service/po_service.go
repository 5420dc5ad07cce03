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

// POItemSpec 采购订单行项入参
type POItemSpec struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
	Notes     string  `json:"notes"`
}

// POSpec 采购订单入参
type POSpec struct {
	PrincipalID     string       `json:"principal_id" binding:"required"`
	HospitalID      *string      `json:"hospital_id"`
	ExpectedDate    *time.Time   `json:"expected_date"`
	ShippingAddress string       `json:"shipping_address"`
	PaymentTerms    string       `json:"payment_terms"`
	Notes           string       `json:"notes"`
	Items           []POItemSpec `json:"items" binding:"required"`
}

// PurchaseOrderService 采购订单服务
// 阶段流转全部走工作流引擎，本服务只管单据数据
type PurchaseOrderService struct {
	repos  *repository.Repositories
	engine *wf.WorkflowService
	stages wf.StageStore
	logger *zap.Logger
}

func NewPurchaseOrderService(repos *repository.Repositories, engine *wf.WorkflowService, stages wf.StageStore, logger *zap.Logger) *PurchaseOrderService {
	return &PurchaseOrderService{repos: repos, engine: engine, stages: stages, logger: logger}
}

func (s *PurchaseOrderService) validateSpec(ctx context.Context, spec *POSpec) error {
	vb := wf.NewValidationBuilder()

	if _, err := s.repos.Master.FindPrincipal(ctx, spec.PrincipalID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			vb.Add("principal_id", "供应商不存在")
		} else {
			return err
		}
	}
	if spec.HospitalID != nil {
		if _, err := s.repos.Master.FindHospital(ctx, *spec.HospitalID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				vb.Add("hospital_id", "医院不存在")
			} else {
				return err
			}
		}
	}
	if len(spec.Items) == 0 {
		vb.Add("items", "至少需要一个行项")
	}
	for _, item := range spec.Items {
		if item.Quantity <= 0 {
			vb.Add("items", "行项数量必须大于 0")
			break
		}
		if _, err := s.repos.Master.FindProduct(ctx, item.ProductID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				vb.Add("items", "行项产品不存在")
				break
			}
			return err
		}
	}
	return vb.Err()
}

// CreatePO 创建采购订单，落在草稿阶段
func (s *PurchaseOrderService) CreatePO(ctx context.Context, userID string, spec *POSpec) (*entity.PurchaseOrder, error) {
	if err := s.validateSpec(ctx, spec); err != nil {
		return nil, err
	}
	draft, err := s.stages.FindByCode(ctx, StagePODraft)
	if err != nil {
		return nil, err
	}

	po := &entity.PurchaseOrder{
		ID:              uuid.New().String(),
		PONumber:        generateCode("PO"),
		PrincipalID:     spec.PrincipalID,
		HospitalID:      spec.HospitalID,
		CurrentStageID:  draft.ID,
		Currency:        "INR",
		ExpectedDate:    spec.ExpectedDate,
		ShippingAddress: spec.ShippingAddress,
		PaymentTerms:    spec.PaymentTerms,
		Notes:           spec.Notes,
		CreatedBy:       userID,
	}
	for i, item := range spec.Items {
		product, err := s.repos.Master.FindProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		unit := item.Unit
		if unit == "" {
			unit = "pcs"
		}
		line := entity.POItem{
			ID:          uuid.New().String(),
			POID:        po.ID,
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			Unit:        unit,
			UnitPrice:   item.UnitPrice,
			TotalAmount: item.Quantity * item.UnitPrice,
			SortOrder:   i + 1,
			Notes:       item.Notes,
		}
		po.TotalAmount += line.TotalAmount
		po.Items = append(po.Items, line)
	}

	if err := s.repos.PurchaseOrder.Create(ctx, po); err != nil {
		return nil, err
	}
	s.logger.Info("采购订单已创建",
		zap.String("po_id", po.ID),
		zap.String("po_number", po.PONumber),
		zap.Float64("total_amount", po.TotalAmount))
	return po, nil
}

// UpdatePO 更新订单抬头信息，仅草稿阶段允许
func (s *PurchaseOrderService) UpdatePO(ctx context.Context, id string, spec *POSpec) (*entity.PurchaseOrder, error) {
	po, err := s.GetPO(ctx, id)
	if err != nil {
		return nil, err
	}
	stage, err := s.stages.FindByID(ctx, po.CurrentStageID)
	if err != nil {
		return nil, err
	}
	if stage.Code != StagePODraft {
		return nil, &wf.ConflictError{Message: "仅草稿阶段的订单允许修改"}
	}

	po.HospitalID = spec.HospitalID
	po.ExpectedDate = spec.ExpectedDate
	po.ShippingAddress = spec.ShippingAddress
	po.PaymentTerms = spec.PaymentTerms
	po.Notes = spec.Notes
	if err := s.repos.PurchaseOrder.Update(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// Submit 草稿 → 待审批
func (s *PurchaseOrderService) Submit(ctx context.Context, id, userID, remarks string) (*wf.TransitionResult, error) {
	return s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypePurchaseOrder,
		EntityID:   id,
		Action:     "submit",
		Remarks:    remarks,
	})
}

// Approve 待审批 → 已批准
func (s *PurchaseOrderService) Approve(ctx context.Context, id, userID, remarks string) (*wf.TransitionResult, error) {
	return s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypePurchaseOrder,
		EntityID:   id,
		Action:     "approve",
		Remarks:    remarks,
	})
}

// Reject 待审批 → 退回草稿
func (s *PurchaseOrderService) Reject(ctx context.Context, id, userID, remarks string) (*wf.TransitionResult, error) {
	return s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypePurchaseOrder,
		EntityID:   id,
		Action:     "reject",
		Remarks:    remarks,
	})
}

// Cancel 取消订单
func (s *PurchaseOrderService) Cancel(ctx context.Context, id, userID, remarks string) (*wf.TransitionResult, error) {
	return s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypePurchaseOrder,
		EntityID:   id,
		Action:     "cancel",
		Remarks:    remarks,
	})
}

// RecomputePOStatus 收货之后重算订单阶段。
// 全部收满 → 收货完成；已批准且部分收货 → 部分收货。
// 没有可走的迁移边时视为无需变更。
func (s *PurchaseOrderService) RecomputePOStatus(ctx context.Context, poID string) error {
	po, err := s.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	stage, err := s.stages.FindByID(ctx, po.CurrentStageID)
	if err != nil {
		return err
	}
	fully, err := s.repos.PurchaseOrder.ItemsFullyReceived(ctx, poID)
	if err != nil {
		return err
	}

	needsMove := (fully && stage.Code != StagePOReceived) ||
		(!fully && stage.Code == StagePOApproved)
	if !needsMove {
		return nil
	}

	_, err = s.engine.ExecuteTransition(ctx, wf.SystemActor, &wf.TransitionRequest{
		EntityType: entity.EntityTypePurchaseOrder,
		EntityID:   poID,
		Action:     "receive",
		Remarks:    "收货重算",
		Fields:     map[string]interface{}{"fully_received": fully},
	})
	var rejected *wf.TransitionRejectedError
	if errors.As(err, &rejected) && rejected.Reason == wf.ReasonNoRoute {
		s.logger.Warn("收货重算无可用迁移边",
			zap.String("po_id", poID),
			zap.String("stage", stage.Code))
		return nil
	}
	return err
}

// GetPO 订单详情
func (s *PurchaseOrderService) GetPO(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PurchaseOrder.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "purchase_order", ID: id}
		}
		return nil, err
	}
	return po, nil
}

// ListPOs 订单分页列表
func (s *PurchaseOrderService) ListPOs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.repos.PurchaseOrder.FindAll(ctx, page, pageSize, filters)
}
