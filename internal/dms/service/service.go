package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/dms/repository"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Services 业务服务集合
type Services struct {
	PurchaseOrder *PurchaseOrderService
	Receiving     *InvoiceReceivingService
	QC            *QualityControlService
	Warehouse     *WarehouseApprovalService
	Inventory     *InventoryService
	Master        *MasterService
}

// NewServices 创建业务服务集合
func NewServices(repos *repository.Repositories, engine *wf.WorkflowService, stages wf.StageStore, logger *zap.Logger) *Services {
	po := NewPurchaseOrderService(repos, engine, stages, logger)
	return &Services{
		PurchaseOrder: po,
		Receiving:     NewInvoiceReceivingService(repos, engine, stages, po, logger),
		QC:            NewQualityControlService(repos, engine, stages, logger),
		Warehouse:     NewWarehouseApprovalService(repos, engine, stages, logger),
		Inventory:     NewInventoryService(repos, logger),
		Master:        NewMasterService(repos, logger),
	}
}

// generateCode 生成业务单号：前缀 + 日期 + 随机段
func generateCode(prefix string) string {
	return fmt.Sprintf("%s%s%s", prefix,
		time.Now().Format("20060102"),
		strings.ToUpper(uuid.New().String()[:6]))
}
