package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"github.com/bitfantasy/pharma-dms/internal/dms/repository"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// MovementSpec 库存变动入参（调整/预留/解除/领用）
type MovementSpec struct {
	ProductID   string  `json:"product_id" binding:"required"`
	WarehouseID string  `json:"warehouse_id" binding:"required"`
	BatchNumber string  `json:"batch_number"`
	Quantity    float64 `json:"quantity" binding:"required"`
	Remarks     string  `json:"remarks"`
}

// TransferSpec 调拨入参
type TransferSpec struct {
	ProductID       string  `json:"product_id" binding:"required"`
	FromWarehouseID string  `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   string  `json:"to_warehouse_id" binding:"required"`
	BatchNumber     string  `json:"batch_number"`
	Quantity        float64 `json:"quantity" binding:"required"`
	Remarks         string  `json:"remarks"`
}

// InventoryService 库存服务：数量变更一律走流水落账
type InventoryService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewInventoryService(repos *repository.Repositories, logger *zap.Logger) *InventoryService {
	return &InventoryService{repos: repos, logger: logger}
}

func (s *InventoryService) movement(spec *MovementSpec, movementType, userID string, qty float64) *entity.InventoryMovement {
	return &entity.InventoryMovement{
		ID:            uuid.New().String(),
		ProductID:     spec.ProductID,
		WarehouseID:   spec.WarehouseID,
		MovementType:  movementType,
		Quantity:      qty,
		BatchNumber:   spec.BatchNumber,
		ReferenceType: "manual",
		PerformedBy:   userID,
		Remarks:       spec.Remarks,
	}
}

func wrapStockErr(err error) error {
	if errors.Is(err, repository.ErrInsufficientStock) {
		return &wf.ConflictError{Message: "库存不足"}
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &wf.NotFoundError{Kind: "inventory"}
	}
	return err
}

// Adjust 盘点调整，数量为有符号变化量
func (s *InventoryService) Adjust(ctx context.Context, userID string, spec *MovementSpec) (*entity.Inventory, error) {
	if spec.Quantity == 0 {
		return nil, wf.NewValidationError("quantity", "调整数量不能为 0")
	}
	inv, err := s.repos.Inventory.ApplyMovement(ctx,
		s.movement(spec, entity.MovementAdjust, userID, spec.Quantity),
		spec.Quantity, 0, nil)
	if err != nil {
		return nil, wrapStockErr(err)
	}
	s.logger.Info("库存调整",
		zap.String("inventory_id", inv.ID),
		zap.Float64("delta", spec.Quantity))
	return inv, nil
}

// Reserve 预留，不改变在库数量
func (s *InventoryService) Reserve(ctx context.Context, userID string, spec *MovementSpec) (*entity.Inventory, error) {
	if spec.Quantity <= 0 {
		return nil, wf.NewValidationError("quantity", "预留数量必须大于 0")
	}
	inv, err := s.repos.Inventory.ApplyMovement(ctx,
		s.movement(spec, entity.MovementReserve, userID, spec.Quantity),
		0, spec.Quantity, nil)
	if err != nil {
		return nil, wrapStockErr(err)
	}
	return inv, nil
}

// Release 解除预留
func (s *InventoryService) Release(ctx context.Context, userID string, spec *MovementSpec) (*entity.Inventory, error) {
	if spec.Quantity <= 0 {
		return nil, wf.NewValidationError("quantity", "解除数量必须大于 0")
	}
	inv, err := s.repos.Inventory.ApplyMovement(ctx,
		s.movement(spec, entity.MovementRelease, userID, -spec.Quantity),
		0, -spec.Quantity, nil)
	if err != nil {
		return nil, wrapStockErr(err)
	}
	return inv, nil
}

// Utilize 领用出库，消耗可用数量
func (s *InventoryService) Utilize(ctx context.Context, userID string, spec *MovementSpec) (*entity.Inventory, error) {
	if spec.Quantity <= 0 {
		return nil, wf.NewValidationError("quantity", "领用数量必须大于 0")
	}
	inv, err := s.repos.Inventory.ApplyMovement(ctx,
		s.movement(spec, entity.MovementUtilize, userID, -spec.Quantity),
		-spec.Quantity, 0, nil)
	if err != nil {
		return nil, wrapStockErr(err)
	}
	return inv, nil
}

// Transfer 跨仓调拨：出库与入库各记一笔 TRANSFER 流水
func (s *InventoryService) Transfer(ctx context.Context, userID string, spec *TransferSpec) error {
	if spec.Quantity <= 0 {
		return wf.NewValidationError("quantity", "调拨数量必须大于 0")
	}
	if spec.FromWarehouseID == spec.ToWarehouseID {
		return wf.NewValidationError("to_warehouse_id", "源仓库与目标仓库不能相同")
	}

	out := &entity.InventoryMovement{
		ID:            uuid.New().String(),
		ProductID:     spec.ProductID,
		WarehouseID:   spec.FromWarehouseID,
		MovementType:  entity.MovementTransfer,
		Quantity:      -spec.Quantity,
		BatchNumber:   spec.BatchNumber,
		ReferenceType: "transfer",
		PerformedBy:   userID,
		Remarks:       spec.Remarks,
	}
	source, err := s.repos.Inventory.ApplyMovement(ctx, out, -spec.Quantity, 0, nil)
	if err != nil {
		return wrapStockErr(err)
	}

	in := &entity.InventoryMovement{
		ID:            uuid.New().String(),
		ProductID:     spec.ProductID,
		WarehouseID:   spec.ToWarehouseID,
		MovementType:  entity.MovementTransfer,
		Quantity:      spec.Quantity,
		BatchNumber:   spec.BatchNumber,
		ReferenceType: "transfer",
		ReferenceID:   out.ID,
		PerformedBy:   userID,
		Remarks:       spec.Remarks,
	}
	seed := &entity.Inventory{
		ProductName: source.ProductName,
		Unit:        source.Unit,
		ExpiryDate:  source.ExpiryDate,
	}
	if _, err := s.repos.Inventory.ApplyMovement(ctx, in, spec.Quantity, 0, seed); err != nil {
		return wrapStockErr(err)
	}

	s.logger.Info("库存调拨",
		zap.String("product_id", spec.ProductID),
		zap.String("from", spec.FromWarehouseID),
		zap.String("to", spec.ToWarehouseID),
		zap.Float64("qty", spec.Quantity))
	return nil
}

// GetInventory 库存详情
func (s *InventoryService) GetInventory(ctx context.Context, id string) (*entity.Inventory, error) {
	inv, err := s.repos.Inventory.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &wf.NotFoundError{Kind: "inventory", ID: id}
		}
		return nil, err
	}
	return inv, nil
}

// ListInventory 库存分页列表
func (s *InventoryService) ListInventory(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Inventory, int64, error) {
	return s.repos.Inventory.FindAll(ctx, page, pageSize, filters)
}

// ListMovements 流水分页列表
func (s *InventoryService) ListMovements(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InventoryMovement, int64, error) {
	return s.repos.Inventory.ListMovements(ctx, page, pageSize, filters)
}

// ExportMovements 导出流水为 Excel
func (s *InventoryService) ExportMovements(ctx context.Context, filters map[string]string) (*excelize.File, error) {
	movements, err := s.repos.Inventory.AllMovements(ctx, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Movements"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"时间", "变动类型", "产品", "仓库", "批号", "数量", "来源类型", "来源单据", "操作人", "备注"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, mv := range movements {
		values := []interface{}{
			mv.CreatedAt.Format("2006-01-02 15:04:05"),
			mv.MovementType,
			mv.ProductID,
			mv.WarehouseID,
			mv.BatchNumber,
			mv.Quantity,
			mv.ReferenceType,
			mv.ReferenceID,
			mv.PerformedBy,
			mv.Remarks,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	s.logger.Info("库存流水导出", zap.Int("rows", len(movements)))
	return f, nil
}

// ExportFilename 导出文件名
func ExportFilename(prefix string) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format("20060102_150405"))
}
