package handler

import (
	"net/http"
	"testing"

	dmsentity "github.com/bitfantasy/pharma-dms/internal/dms/entity"
	dmsrepo "github.com/bitfantasy/pharma-dms/internal/dms/repository"
	"github.com/bitfantasy/pharma-dms/internal/testutil"
	"github.com/bitfantasy/pharma-dms/internal/workflow/repository"
	"github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"go.uber.org/zap"
)

func setupStageHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	wfRepos := repository.NewRepositories(db)
	dmsRepos := dmsrepo.NewRepositories(db)
	svc := service.NewStageService(wfRepos.Stage, wfRepos.Transition, wfRepos.Permission, dmsRepos.EntityStage, logger)
	h := NewStageHandler(svc)

	r := testutil.SetupRouter()
	g := testutil.AuthGroup(r, "/api/v1/workflow")
	g.GET("/stages", h.ListStages)
	g.POST("/stages", h.CreateStage)
	g.GET("/stages/:id", h.GetStage)
	g.PUT("/stages/:id", h.UpdateStage)
	g.DELETE("/stages/:id", h.DeleteStage)
	g.POST("/stages/reorder", h.ReorderStages)
	g.POST("/stages/:id/clone", h.CloneStage)

	return &testutil.TestEnv{DB: db, Router: r, T: t}
}

func createStageViaAPI(t *testing.T, env *testutil.TestEnv, code string, sequence int) string {
	t.Helper()
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/workflow/stages", map[string]interface{}{
		"code":            code,
		"name":            "阶段 " + code,
		"sequence":        sequence,
		"allowed_actions": []string{"submit", "cancel"},
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("create stage %s: status %d, body %s", code, w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestStageHandlerCreateAndGet(t *testing.T) {
	env := setupStageHandlerTest(t)

	id := createStageViaAPI(t, env, "PO_DRAFT", 10)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/workflow/stages/"+id, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("get stage: status %d, body %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["code"] != "PO_DRAFT" || data["is_active"] != true {
		t.Errorf("unexpected stage: %v", data)
	}
	if data["created_by"] != "test-user-001" {
		t.Errorf("created_by = %v", data["created_by"])
	}
}

func TestStageHandlerRequiresAuth(t *testing.T) {
	env := setupStageHandlerTest(t)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/workflow/stages", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestStageHandlerValidationErrors(t *testing.T) {
	env := setupStageHandlerTest(t)

	// 小写编码 + 非法序号，422 之前先在服务层聚合为 400
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/workflow/stages", map[string]interface{}{
		"code":            "bad_code",
		"name":            "坏阶段",
		"sequence":        0,
		"allowed_actions": []string{"submit"},
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
	body := testutil.ParseResponse(w)
	fields := body["fields"].(map[string]interface{})
	for _, want := range []string{"code", "sequence"} {
		if _, ok := fields[want]; !ok {
			t.Errorf("missing violation for %s: %v", want, fields)
		}
	}
}

func TestStageHandlerDuplicateCode(t *testing.T) {
	env := setupStageHandlerTest(t)
	createStageViaAPI(t, env, "PO_DRAFT", 10)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/workflow/stages", map[string]interface{}{
		"code":            "PO_DRAFT",
		"name":            "重复草稿",
		"sequence":        20,
		"allowed_actions": []string{"submit"},
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
}

func TestStageHandlerGetUnknown(t *testing.T) {
	env := setupStageHandlerTest(t)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/workflow/stages/nope", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStageHandlerReorderAndList(t *testing.T) {
	env := setupStageHandlerTest(t)
	id1 := createStageViaAPI(t, env, "PO_DRAFT", 10)
	id2 := createStageViaAPI(t, env, "PO_APPROVED", 20)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/workflow/stages/reorder", map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": id1, "sequence": 20},
			{"id": id2, "sequence": 10},
		},
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("reorder: status %d, body %s", w.Code, w.Body.String())
	}

	// 列表按新序号返回
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/workflow/stages", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d, body %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["code"] != "PO_APPROVED" {
		t.Errorf("first item = %v, want PO_APPROVED", first["code"])
	}
}

func TestStageHandlerCloneAndDelete(t *testing.T) {
	env := setupStageHandlerTest(t)
	id := createStageViaAPI(t, env, "PO_DRAFT", 10)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/workflow/stages/"+id+"/clone", map[string]interface{}{
		"name": "草稿副本",
		"code": "PO_DRAFT_COPY",
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("clone: status %d, body %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	cloneID := data["id"].(string)
	if data["sequence"].(float64) != 11 {
		t.Errorf("clone sequence = %v, want source+1", data["sequence"])
	}

	w = testutil.DoRequest(env.Router, "DELETE", "/api/v1/workflow/stages/"+cloneID, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d, body %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/workflow/stages/"+cloneID, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted stage still reachable: %d", w.Code)
	}
}

// 确保删除阶段时对在途实体的引用检查生效
func TestStageHandlerDeleteBlockedByEntity(t *testing.T) {
	env := setupStageHandlerTest(t)
	id := createStageViaAPI(t, env, "PO_DRAFT", 10)

	po := &dmsentity.PurchaseOrder{
		ID:             "po-1",
		PONumber:       "PO20260823X",
		PrincipalID:    "sup-1",
		CurrentStageID: id,
		Currency:       "INR",
		CreatedBy:      "test-user-001",
	}
	if err := env.DB.Create(po).Error; err != nil {
		t.Fatalf("seed po failed: %v", err)
	}

	w := testutil.DoRequest(env.Router, "DELETE", "/api/v1/workflow/stages/"+id, nil, testutil.DefaultTestToken())
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409, body %s", w.Code, w.Body.String())
	}
}
