package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"github.com/bitfantasy/pharma-dms/internal/dms/repository"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QCSpec 质检单入参
type QCSpec struct {
	ReceivingID string `json:"receiving_id" binding:"required"`
	SampleQty   *int   `json:"sample_qty"`
	Notes       string `json:"notes"`
}

// QCResultSpec 检验结论入参
type QCResultSpec struct {
	Result       string          `json:"result" binding:"required"` // passed/failed/conditional
	CheckedItems json.RawMessage `json:"checked_items"`
	Remarks      string          `json:"remarks"`
}

// QualityControlService 质检服务
// 总体结论字段只跟随 qc_check 迁移落影，不提供手工改写入口
type QualityControlService struct {
	repos  *repository.Repositories
	engine *wf.WorkflowService
	stages wf.StageStore
	logger *zap.Logger
}

func NewQualityControlService(repos *repository.Repositories, engine *wf.WorkflowService, stages wf.StageStore, logger *zap.Logger) *QualityControlService {
	return &QualityControlService{repos: repos, engine: engine, stages: stages, logger: logger}
}

// CreateQC 创建质检单，收货单须已完成收货
func (s *QualityControlService) CreateQC(ctx context.Context, userID string, spec *QCSpec) (*entity.QualityControl, error) {
	rec, err := s.repos.InvoiceReceiving.FindByID(ctx, spec.ReceivingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "invoice_receiving", ID: spec.ReceivingID}
		}
		return nil, err
	}
	recStage, err := s.stages.FindByID(ctx, rec.CurrentStageID)
	if err != nil {
		return nil, err
	}
	if recStage.Code != StageRcvReceived {
		return nil, &wf.ConflictError{Message: "收货单尚未完成收货，不能质检"}
	}

	pending, err := s.stages.FindByCode(ctx, StageQCPending)
	if err != nil {
		return nil, err
	}

	qc := &entity.QualityControl{
		ID:             uuid.New().String(),
		QCCode:         generateCode("QC"),
		ReceivingID:    spec.ReceivingID,
		POID:           &rec.POID,
		CurrentStageID: pending.ID,
		SampleQty:      spec.SampleQty,
		CreatedBy:      userID,
		Notes:          spec.Notes,
	}
	if err := s.repos.QualityControl.Create(ctx, qc); err != nil {
		return nil, err
	}
	s.logger.Info("质检单已创建",
		zap.String("qc_id", qc.ID),
		zap.String("receiving_id", spec.ReceivingID))
	return qc, nil
}

// RecordResult 录入检验结论：qc_check 迁移按结论路由，成功后落影结论字段
func (s *QualityControlService) RecordResult(ctx context.Context, id, userID string, spec *QCResultSpec) (*wf.TransitionResult, error) {
	switch spec.Result {
	case entity.QCResultPassed, entity.QCResultFailed, entity.QCResultConditional:
	default:
		return nil, wf.NewValidationError("result", "检验结论必须是 passed/failed/conditional")
	}

	qc, err := s.GetQC(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ExecuteTransition(ctx, userID, &wf.TransitionRequest{
		EntityType: entity.EntityTypeQualityControl,
		EntityID:   id,
		Action:     "qc_check",
		Remarks:    spec.Remarks,
		Fields:     map[string]interface{}{"overall_result": spec.Result},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	qc.OverallResult = spec.Result
	qc.CheckedItems = spec.CheckedItems
	qc.InspectorID = &userID
	qc.InspectedAt = &now
	if err := s.repos.QualityControl.Update(ctx, qc); err != nil {
		return nil, err
	}
	return result, nil
}

// GetQC 质检单详情
func (s *QualityControlService) GetQC(ctx context.Context, id string) (*entity.QualityControl, error) {
	qc, err := s.repos.QualityControl.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "quality_control", ID: id}
		}
		return nil, err
	}
	return qc, nil
}

// ListQCs 质检单分页列表
func (s *QualityControlService) ListQCs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.QualityControl, int64, error) {
	return s.repos.QualityControl.FindAll(ctx, page, pageSize, filters)
}
