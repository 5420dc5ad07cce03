package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
)

func TestAdjustCreatesSlot(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	ctx := context.Background()

	inv, err := env.services.Inventory.Adjust(ctx, "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1",
		Quantity: 100, Remarks: "期初盘点",
	})
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if inv.Quantity != 100 || inv.ReservedQty != 0 {
		t.Errorf("slot = %+v, want qty 100", inv)
	}
	if inv.AvailableQty() != 100 {
		t.Errorf("available = %v, want 100", inv.AvailableQty())
	}

	// 负向调整在同一槽上累加
	inv, err = env.services.Inventory.Adjust(ctx, "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1",
		Quantity: -30,
	})
	if err != nil {
		t.Fatalf("negative adjust failed: %v", err)
	}
	if inv.Quantity != 70 {
		t.Errorf("qty = %v, want 70", inv.Quantity)
	}

	movements, total, err := env.services.Inventory.ListMovements(ctx, 1, 20, map[string]string{
		"movement_type": entity.MovementAdjust,
	})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if total != 2 || len(movements) != 2 {
		t.Errorf("adjust movements = %d, want 2", total)
	}
}

func TestAdjustZeroRejected(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)

	_, err := env.services.Inventory.Adjust(context.Background(), "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, Quantity: 0,
	})
	var ve *wf.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestAdjustMissingSlotNegative(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)

	// 槽不存在时负向调整没有建槽余地
	_, err := env.services.Inventory.Adjust(context.Background(), "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B-nope",
		Quantity: -5,
	})
	var nfe *wf.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestReserveReleaseUtilize(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	ctx := context.Background()

	slot := &MovementSpec{ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1"}
	adjust := *slot
	adjust.Quantity = 50
	if _, err := env.services.Inventory.Adjust(ctx, "keeper-1", &adjust); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	reserve := *slot
	reserve.Quantity = 20
	inv, err := env.services.Inventory.Reserve(ctx, "keeper-1", &reserve)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if inv.Quantity != 50 || inv.ReservedQty != 20 || inv.AvailableQty() != 30 {
		t.Errorf("after reserve: %+v", inv)
	}

	// 领用 40 会把在库压到 10，低于预留 20
	utilize := *slot
	utilize.Quantity = 40
	_, err = env.services.Inventory.Utilize(ctx, "keeper-1", &utilize)
	var ce *wf.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}

	release := *slot
	release.Quantity = 20
	inv, err = env.services.Inventory.Release(ctx, "keeper-1", &release)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if inv.ReservedQty != 0 {
		t.Errorf("reserved = %v, want 0", inv.ReservedQty)
	}

	// 解除后同样的领用可以过
	inv, err = env.services.Inventory.Utilize(ctx, "keeper-1", &utilize)
	if err != nil {
		t.Fatalf("Utilize failed: %v", err)
	}
	if inv.Quantity != 10 {
		t.Errorf("qty = %v, want 10", inv.Quantity)
	}
}

func TestReserveBeyondStock(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	ctx := context.Background()

	if _, err := env.services.Inventory.Adjust(ctx, "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1", Quantity: 10,
	}); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	_, err := env.services.Inventory.Reserve(ctx, "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1", Quantity: 11,
	})
	var ce *wf.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func TestTransferBetweenWarehouses(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	ctx := context.Background()

	if _, err := env.services.Inventory.Adjust(ctx, "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1", Quantity: 30,
	}); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	if err := env.services.Inventory.Transfer(ctx, "keeper-1", &TransferSpec{
		ProductID:       m.product.ID,
		FromWarehouseID: m.warehouse.ID,
		ToWarehouseID:   m.warehouse2.ID,
		BatchNumber:     "B1",
		Quantity:        10,
	}); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	src, _, err := env.repos.Inventory.FindAll(ctx, 1, 20, map[string]string{
		"warehouse_id": m.warehouse.ID, "batch_number": "B1",
	})
	if err != nil || len(src) != 1 {
		t.Fatalf("source slot lookup failed: %v (%d)", err, len(src))
	}
	if src[0].Quantity != 20 {
		t.Errorf("source qty = %v, want 20", src[0].Quantity)
	}

	dst, _, err := env.repos.Inventory.FindAll(ctx, 1, 20, map[string]string{
		"warehouse_id": m.warehouse2.ID, "batch_number": "B1",
	})
	if err != nil || len(dst) != 1 {
		t.Fatalf("dest slot lookup failed: %v (%d)", err, len(dst))
	}
	if dst[0].Quantity != 10 {
		t.Errorf("dest qty = %v, want 10", dst[0].Quantity)
	}
	// 建槽时从源槽带过来产品名/单位
	if dst[0].ProductName != src[0].ProductName || dst[0].Unit != src[0].Unit {
		t.Errorf("dest slot metadata not seeded: %+v", dst[0])
	}

	// 出入两笔流水，入库那笔引用出库流水
	movements, _, err := env.services.Inventory.ListMovements(ctx, 1, 20, map[string]string{
		"movement_type": entity.MovementTransfer,
	})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("transfer movements = %d, want 2", len(movements))
	}
	var out, in *entity.InventoryMovement
	for i := range movements {
		if movements[i].Quantity < 0 {
			out = &movements[i]
		} else {
			in = &movements[i]
		}
	}
	if out == nil || in == nil {
		t.Fatal("expected one outbound and one inbound movement")
	}
	if in.ReferenceID != out.ID {
		t.Errorf("inbound reference = %s, want %s", in.ReferenceID, out.ID)
	}
}

func TestTransferValidation(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	ctx := context.Background()

	err := env.services.Inventory.Transfer(ctx, "keeper-1", &TransferSpec{
		ProductID:       m.product.ID,
		FromWarehouseID: m.warehouse.ID,
		ToWarehouseID:   m.warehouse.ID,
		Quantity:        5,
	})
	var ve *wf.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for same warehouse, got %T: %v", err, err)
	}

	// 源仓没货
	err = env.services.Inventory.Transfer(ctx, "keeper-1", &TransferSpec{
		ProductID:       m.product.ID,
		FromWarehouseID: m.warehouse.ID,
		ToWarehouseID:   m.warehouse2.ID,
		Quantity:        5,
	})
	var nfe *wf.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError for empty source, got %T: %v", err, err)
	}
}

func TestExportMovements(t *testing.T) {
	env := setupServiceTest(t)
	m := env.seedMaster(t)
	ctx := context.Background()

	if _, err := env.services.Inventory.Adjust(ctx, "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1", Quantity: 100,
	}); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if _, err := env.services.Inventory.Utilize(ctx, "keeper-1", &MovementSpec{
		ProductID: m.product.ID, WarehouseID: m.warehouse.ID, BatchNumber: "B1", Quantity: 30,
	}); err != nil {
		t.Fatalf("Utilize failed: %v", err)
	}

	f, err := env.services.Inventory.ExportMovements(ctx, map[string]string{
		"warehouse_id": m.warehouse.ID,
	})
	if err != nil {
		t.Fatalf("ExportMovements failed: %v", err)
	}
	rows, err := f.GetRows("Movements")
	if err != nil {
		t.Fatalf("read export sheet failed: %v", err)
	}
	// 表头 + 两笔流水
	if len(rows) != 3 {
		t.Fatalf("export rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "时间" {
		t.Errorf("unexpected header: %v", rows[0])
	}
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename("movements")
	if !strings.HasPrefix(name, "movements_") || !strings.HasSuffix(name, ".xlsx") {
		t.Errorf("unexpected filename: %s", name)
	}
}
