package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"github.com/bitfantasy/pharma-dms/internal/testutil"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
)

// setupApprovedPO 造齐用户授权与主数据，把一张订单推到已批准阶段
func setupApprovedPO(t *testing.T, qty float64) (*serviceTestEnv, *masterFixture, *entity.PurchaseOrder) {
	t.Helper()
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	ctx := context.Background()

	users := map[string]string{
		"buyer-1":     "采购员",
		"approver-1":  "审批人",
		"clerk-1":     "收货员",
		"inspector-1": "质检员",
		"keeper-1":    "库管员",
	}
	for id, name := range users {
		testutil.SeedTestUser(t, env.db, id, name)
	}
	env.grantStage(t, "buyer-1", StagePODraft, "purchase_orders.submit")
	env.grantStage(t, "approver-1", StagePOPendingApproval, "purchase_orders.approve")
	env.grantStage(t, "clerk-1", StageRcvDraft, "invoice_receivings.submit")
	env.grantStage(t, "inspector-1", StageQCPending, "quality_controls.submit")
	env.grantStage(t, "keeper-1", StageWHPending, "warehouse_approvals.approve")

	po, err := env.services.PurchaseOrder.CreatePO(ctx, "buyer-1", &POSpec{
		PrincipalID: m.principal.ID,
		Items:       []POItemSpec{{ProductID: m.product.ID, Quantity: qty, UnitPrice: 50}},
	})
	if err != nil {
		t.Fatalf("CreatePO failed: %v", err)
	}
	if _, err := env.services.PurchaseOrder.Submit(ctx, po.ID, "buyer-1", ""); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := env.services.PurchaseOrder.Approve(ctx, po.ID, "approver-1", ""); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	return env, m, po
}

// receiveGoods 建收货单并确认收货
func receiveGoods(t *testing.T, env *serviceTestEnv, po *entity.PurchaseOrder, qty float64, batch string) *entity.InvoiceReceiving {
	t.Helper()
	ctx := context.Background()

	rec, err := env.services.Receiving.CreateReceiving(ctx, "clerk-1", &ReceivingSpec{
		POID:          po.ID,
		InvoiceNumber: fmt.Sprintf("INV-%s", batch),
		InvoiceDate:   time.Now(),
		Items: []ReceivingItemSpec{
			{POItemID: po.Items[0].ID, BatchNumber: batch, ReceivedQty: qty},
		},
	})
	if err != nil {
		t.Fatalf("CreateReceiving failed: %v", err)
	}
	if _, err := env.services.Receiving.Receive(ctx, rec.ID, "clerk-1", ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	return rec
}

func TestProcurementFlowEndToEnd(t *testing.T) {
	env, m, po := setupApprovedPO(t, 10)
	ctx := context.Background()

	// 部分收货：订单转部分收货阶段
	rec1 := receiveGoods(t, env, po, 4, "B240801")
	rec1, err := env.services.Receiving.GetReceiving(ctx, rec1.ID)
	if err != nil {
		t.Fatalf("GetReceiving failed: %v", err)
	}
	if got := env.stageCode(t, rec1.CurrentStageID); got != StageRcvReceived {
		t.Errorf("receiving stage = %s, want %s", got, StageRcvReceived)
	}
	if rec1.ReceivedDate == nil || rec1.ReceivedBy == nil {
		t.Error("receiving must record date and operator")
	}
	if got := env.poStageCode(t, po.ID); got != StagePOPartiallyReceived {
		t.Errorf("po stage = %s, want %s", got, StagePOPartiallyReceived)
	}

	// 补足剩余数量：订单收货完成
	receiveGoods(t, env, po, 6, "B240802")
	if got := env.poStageCode(t, po.ID); got != StagePOReceived {
		t.Errorf("po stage = %s, want %s", got, StagePOReceived)
	}

	// 质检通过
	qc, err := env.services.QC.CreateQC(ctx, "inspector-1", &QCSpec{ReceivingID: rec1.ID})
	if err != nil {
		t.Fatalf("CreateQC failed: %v", err)
	}
	result, err := env.services.QC.RecordResult(ctx, qc.ID, "inspector-1", &QCResultSpec{
		Result: entity.QCResultPassed, Remarks: "外观合格",
	})
	if err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}
	if result.Stage.Code != StageQCPassed {
		t.Errorf("qc stage = %s, want %s", result.Stage.Code, StageQCPassed)
	}
	qc, _ = env.services.QC.GetQC(ctx, qc.ID)
	if qc.OverallResult != entity.QCResultPassed || qc.InspectorID == nil {
		t.Errorf("qc result not recorded: %+v", qc)
	}

	// 入库审批通过：按收货行项落库存
	approval, err := env.services.Warehouse.CreateApproval(ctx, "keeper-1", &ApprovalSpec{
		QCID: qc.ID, WarehouseID: m.warehouse.ID,
	})
	if err != nil {
		t.Fatalf("CreateApproval failed: %v", err)
	}
	result, err = env.services.Warehouse.Approve(ctx, approval.ID, "keeper-1", "")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if result.Stage.Code != StageWHApproved {
		t.Errorf("approval stage = %s, want %s", result.Stage.Code, StageWHApproved)
	}
	approval, _ = env.services.Warehouse.GetApproval(ctx, approval.ID)
	if approval.ApprovedBy == nil || approval.ApprovedAt == nil {
		t.Error("approval must record approver and time")
	}

	// 库存槽：产品+仓库+批号，数量等于该收货单数量
	slots, total, err := env.repos.Inventory.FindAll(ctx, 1, 20, map[string]string{
		"product_id": m.product.ID, "warehouse_id": m.warehouse.ID,
	})
	if err != nil {
		t.Fatalf("inventory lookup failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("inventory slots = %d, want 1", total)
	}
	if slots[0].BatchNumber != "B240801" || slots[0].Quantity != 4 {
		t.Errorf("unexpected slot: %+v", slots[0])
	}
	if slots[0].ProductName != m.product.Name {
		t.Errorf("slot product name = %s, want %s", slots[0].ProductName, m.product.Name)
	}

	// 入库流水挂在审批单上
	movements, _, err := env.repos.Inventory.ListMovements(ctx, 1, 20, map[string]string{
		"movement_type": entity.MovementReceive,
	})
	if err != nil {
		t.Fatalf("movement lookup failed: %v", err)
	}
	if len(movements) != 1 || movements[0].ReferenceID != approval.ID {
		t.Errorf("unexpected receive movements: %+v", movements)
	}
	if movements[0].ReferenceType != entity.EntityTypeWarehouseApproval {
		t.Errorf("reference type = %s", movements[0].ReferenceType)
	}
}

func TestCreateReceivingRequiresApprovedPO(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	testutil.SeedTestUser(t, env.db, "buyer-1", "采购员")

	po := newDraftPO(t, env, m, "buyer-1")

	_, err := env.services.Receiving.CreateReceiving(context.Background(), "buyer-1", &ReceivingSpec{
		POID:          po.ID,
		InvoiceNumber: "INV-1",
		InvoiceDate:   time.Now(),
		Items:         []ReceivingItemSpec{{POItemID: po.Items[0].ID, BatchNumber: "B1", ReceivedQty: 1}},
	})
	var ce *wf.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError for draft po, got %T: %v", err, err)
	}
}

func TestCreateReceivingOverReceipt(t *testing.T) {
	env, _, po := setupApprovedPO(t, 10)
	receiveGoods(t, env, po, 8, "B1")

	// 剩余 2，收 5 超量
	_, err := env.services.Receiving.CreateReceiving(context.Background(), "clerk-1", &ReceivingSpec{
		POID:          po.ID,
		InvoiceNumber: "INV-over",
		InvoiceDate:   time.Now(),
		Items:         []ReceivingItemSpec{{POItemID: po.Items[0].ID, BatchNumber: "B2", ReceivedQty: 5}},
	})
	var ve *wf.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if _, ok := ve.Fields["items"]; !ok {
		t.Errorf("missing items violation: %v", ve.Fields)
	}
}

func TestCreateQCRequiresReceivedReceiving(t *testing.T) {
	env, _, po := setupApprovedPO(t, 10)
	ctx := context.Background()

	// 只建单不确认收货
	rec, err := env.services.Receiving.CreateReceiving(ctx, "clerk-1", &ReceivingSpec{
		POID:          po.ID,
		InvoiceNumber: "INV-1",
		InvoiceDate:   time.Now(),
		Items:         []ReceivingItemSpec{{POItemID: po.Items[0].ID, BatchNumber: "B1", ReceivedQty: 2}},
	})
	if err != nil {
		t.Fatalf("CreateReceiving failed: %v", err)
	}

	_, err = env.services.QC.CreateQC(ctx, "inspector-1", &QCSpec{ReceivingID: rec.ID})
	var ce *wf.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func TestRecordResultRejectsUnknownValue(t *testing.T) {
	env, _, po := setupApprovedPO(t, 10)
	rec := receiveGoods(t, env, po, 10, "B1")
	ctx := context.Background()

	qc, err := env.services.QC.CreateQC(ctx, "inspector-1", &QCSpec{ReceivingID: rec.ID})
	if err != nil {
		t.Fatalf("CreateQC failed: %v", err)
	}
	_, err = env.services.QC.RecordResult(ctx, qc.ID, "inspector-1", &QCResultSpec{Result: "maybe"})
	var ve *wf.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestQCFailedRouteBlocksWarehouse(t *testing.T) {
	env, m, po := setupApprovedPO(t, 10)
	rec := receiveGoods(t, env, po, 10, "B1")
	ctx := context.Background()

	qc, err := env.services.QC.CreateQC(ctx, "inspector-1", &QCSpec{ReceivingID: rec.ID})
	if err != nil {
		t.Fatalf("CreateQC failed: %v", err)
	}
	result, err := env.services.QC.RecordResult(ctx, qc.ID, "inspector-1", &QCResultSpec{
		Result: entity.QCResultFailed, Remarks: "含量不合格",
	})
	if err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}
	if result.Stage.Code != StageQCFailed {
		t.Errorf("qc stage = %s, want %s", result.Stage.Code, StageQCFailed)
	}

	// 不合格批次不能申请入库
	_, err = env.services.Warehouse.CreateApproval(ctx, "keeper-1", &ApprovalSpec{
		QCID: qc.ID, WarehouseID: m.warehouse.ID,
	})
	var ce *wf.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func TestCreateApprovalRejectsInactiveWarehouse(t *testing.T) {
	env, m, po := setupApprovedPO(t, 10)
	rec := receiveGoods(t, env, po, 10, "B1")
	ctx := context.Background()

	qc, err := env.services.QC.CreateQC(ctx, "inspector-1", &QCSpec{ReceivingID: rec.ID})
	if err != nil {
		t.Fatalf("CreateQC failed: %v", err)
	}
	if _, err := env.services.QC.RecordResult(ctx, qc.ID, "inspector-1", &QCResultSpec{
		Result: entity.QCResultPassed,
	}); err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}

	env.db.Model(&entity.Warehouse{}).Where("id = ?", m.warehouse.ID).Update("is_active", false)

	_, err = env.services.Warehouse.CreateApproval(ctx, "keeper-1", &ApprovalSpec{
		QCID: qc.ID, WarehouseID: m.warehouse.ID,
	})
	var ce *wf.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError for inactive warehouse, got %T: %v", err, err)
	}
}
