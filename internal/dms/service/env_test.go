package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"github.com/bitfantasy/pharma-dms/internal/dms/repository"
	"github.com/bitfantasy/pharma-dms/internal/testutil"
	wfrepo "github.com/bitfantasy/pharma-dms/internal/workflow/repository"
	wf "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// serviceTestEnv 完整服务图：真实数据库 + 种子工作流 + 业务服务
type serviceTestEnv struct {
	db       *gorm.DB
	wfRepos  *wfrepo.Repositories
	repos    *repository.Repositories
	grantSvc *wf.StagePermissionService
	engine   *wf.WorkflowService
	seeder   *Seeder
	services *Services
	perms    map[string]string // 权限名 → ID
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	wfRepos := wfrepo.NewRepositories(db)
	repos := repository.NewRepositories(db)

	stageSvc := wf.NewStageService(wfRepos.Stage, wfRepos.Transition, wfRepos.Permission, repos.EntityStage, logger)
	transSvc := wf.NewTransitionService(wfRepos.Transition, wfRepos.Stage, logger)
	grantSvc := wf.NewStagePermissionService(wfRepos.StagePermission, wfRepos.Stage, wfRepos.Permission, repos.User, logger)
	engine := wf.NewWorkflowService(wfRepos.Stage, wfRepos.Transition, grantSvc, wfRepos.History, repos.EntityStage, nil, nil, logger)

	seeder := NewSeeder(stageSvc, transSvc, wfRepos.Stage, wfRepos.Transition, wfRepos.Permission, logger)
	ctx := context.Background()
	if err := seeder.Seed(ctx); err != nil {
		t.Fatalf("seed workflow failed: %v", err)
	}
	// 再跑一遍拿 name→id 映射（幂等，不追加记录）
	perms, err := seeder.SeedPermissions(ctx)
	if err != nil {
		t.Fatalf("load permission catalog failed: %v", err)
	}

	return &serviceTestEnv{
		db:       db,
		wfRepos:  wfRepos,
		repos:    repos,
		grantSvc: grantSvc,
		engine:   engine,
		seeder:   seeder,
		services: NewServices(repos, engine, wfRepos.Stage, logger),
		perms:    perms,
	}
}

// grantStage 按阶段编码给用户发阶段授权，权限按目录名解析
func (e *serviceTestEnv) grantStage(t *testing.T, userID, stageCode string, permNames ...string) {
	t.Helper()
	ctx := context.Background()
	stage, err := e.wfRepos.Stage.FindByCode(ctx, stageCode)
	if err != nil {
		t.Fatalf("stage %s not found: %v", stageCode, err)
	}
	var permIDs []string
	for _, name := range permNames {
		id, ok := e.perms[name]
		if !ok {
			t.Fatalf("permission %s not in catalog", name)
		}
		permIDs = append(permIDs, id)
	}
	if _, err := e.grantSvc.Assign(ctx, "admin", &wf.AssignSpec{
		UserID:      userID,
		StageID:     stage.ID,
		Permissions: permIDs,
	}); err != nil {
		t.Fatalf("assign %s@%s failed: %v", userID, stageCode, err)
	}
}

// stageCode 解析阶段 ID 为编码
func (e *serviceTestEnv) stageCode(t *testing.T, stageID string) string {
	t.Helper()
	stage, err := e.wfRepos.Stage.FindByID(context.Background(), stageID)
	if err != nil {
		t.Fatalf("stage %s not found: %v", stageID, err)
	}
	return stage.Code
}

// poStageCode 读取订单当前阶段编码
func (e *serviceTestEnv) poStageCode(t *testing.T, poID string) string {
	t.Helper()
	po, err := e.services.PurchaseOrder.GetPO(context.Background(), poID)
	if err != nil {
		t.Fatalf("po %s not found: %v", poID, err)
	}
	return e.stageCode(t, po.CurrentStageID)
}

type masterFixture struct {
	principal  *entity.Principal
	hospital   *entity.Hospital
	product    *entity.Product
	warehouse  *entity.Warehouse
	warehouse2 *entity.Warehouse
}

// seedMaster 造一套主数据：供应商、医院、产品、两个仓库
func (e *serviceTestEnv) seedMaster(t *testing.T) *masterFixture {
	t.Helper()
	ctx := context.Background()
	m := &masterFixture{}
	var err error

	m.principal, err = e.services.Master.CreatePrincipal(ctx, "admin", &PrincipalSpec{
		Code: "SUP001", Name: "华东医药供应链", GSTNumber: "27AAAAA0000A1Z5",
	})
	if err != nil {
		t.Fatalf("seed principal failed: %v", err)
	}
	m.hospital, err = e.services.Master.CreateHospital(ctx, "admin", &HospitalSpec{
		Code: "HSP001", Name: "市第一人民医院", City: "杭州",
	})
	if err != nil {
		t.Fatalf("seed hospital failed: %v", err)
	}
	m.product, err = e.services.Master.CreateProduct(ctx, "admin", &ProductSpec{
		Code: "PRD001", Name: "阿莫西林胶囊", PrincipalID: m.principal.ID,
		DosageForm: "胶囊", Strength: "0.25g", Unit: "盒",
	})
	if err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	m.warehouse, err = e.services.Warehouse.CreateWarehouse(ctx, &WarehouseSpec{
		Code: "WH001", Name: "中心仓", City: "杭州",
	})
	if err != nil {
		t.Fatalf("seed warehouse failed: %v", err)
	}
	m.warehouse2, err = e.services.Warehouse.CreateWarehouse(ctx, &WarehouseSpec{
		Code: "WH002", Name: "冷链仓", City: "杭州", ColdChain: true,
	})
	if err != nil {
		t.Fatalf("seed warehouse2 failed: %v", err)
	}
	return m
}
