package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"go.uber.org/zap"
)

func newStageServiceFixture(t *testing.T) (*StageService, *engineFixture) {
	t.Helper()
	f := newEngineFixture(t)
	svc := NewStageService(f.stages, f.transitions, f.perms, f.entities, zap.NewNop())
	return svc, f
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	return ve.Fields
}

func TestCreateStage(t *testing.T) {
	svc, f := newStageServiceFixture(t)
	ctx := context.Background()

	stage, err := svc.CreateStage(ctx, "admin", &StageSpec{
		Code:           "QC_HOLD",
		Name:           "质检待定",
		Sequence:       5,
		AllowedActions: []string{entity.StageActionApprove, entity.StageActionReject},
	})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}
	if stage.ID == "" || !stage.IsActive || stage.CreatedBy != "admin" {
		t.Errorf("unexpected stage: %+v", stage)
	}

	saved, err := f.stages.FindByCode(ctx, "QC_HOLD")
	if err != nil || saved.Name != "质检待定" {
		t.Errorf("stage not persisted: %v", err)
	}
}

func TestCreateStageCollectsAllViolations(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	_, err := svc.CreateStage(context.Background(), "admin", &StageSpec{
		Code:           "bad_code1",
		Name:           "x",
		Sequence:       0,
		AllowedActions: nil,
	})
	fields := validationFields(t, err)
	for _, want := range []string{"code", "name", "sequence", "allowed_actions"} {
		if _, ok := fields[want]; !ok {
			t.Errorf("missing violation for %s: %v", want, fields)
		}
	}
}

func TestCreateStageRejectsUnknownAction(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	_, err := svc.CreateStage(context.Background(), "admin", &StageSpec{
		Code:           "QC_HOLD",
		Name:           "质检待定",
		Sequence:       5,
		AllowedActions: []string{"escalate"},
	})
	fields := validationFields(t, err)
	if _, ok := fields["allowed_actions"]; !ok {
		t.Errorf("expected allowed_actions violation: %v", fields)
	}
}

func TestCreateStageRejectsDuplicateCode(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	_, err := svc.CreateStage(context.Background(), "admin", &StageSpec{
		Code:           "DRAFT",
		Name:           "重复草稿",
		Sequence:       9,
		AllowedActions: []string{entity.StageActionSubmit},
	})
	fields := validationFields(t, err)
	if fields["code"] != "already exists" {
		t.Errorf("code violation = %q, want already exists", fields["code"])
	}
}

func TestCreateStageRejectsUnknownPermissionIDs(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	_, err := svc.CreateStage(context.Background(), "admin", &StageSpec{
		Code:                "QC_HOLD",
		Name:                "质检待定",
		Sequence:            5,
		AllowedActions:      []string{entity.StageActionApprove},
		RequiredPermissions: []string{"perm-review", "perm-nope"},
	})
	fields := validationFields(t, err)
	if _, ok := fields["required_permissions"]; !ok {
		t.Errorf("expected required_permissions violation: %v", fields)
	}
}

func TestUpdateStageRejectsSelfReference(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	_, err := svc.UpdateStage(context.Background(), "st-approved", &StageSpec{
		Code:           "APPROVED",
		Name:           "已批准",
		Sequence:       3,
		AllowedActions: []string{entity.StageActionComplete},
		NextStages:     []string{"st-approved"},
	})
	fields := validationFields(t, err)
	if _, ok := fields["next_stages"]; !ok {
		t.Errorf("expected next_stages violation: %v", fields)
	}
}

func TestUpdateStageCodeChangeBlockedWhileReferenced(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	// st-review 被迁移规则引用，改 code 拒绝
	_, err := svc.UpdateStage(context.Background(), "st-review", &StageSpec{
		Code:           "IN_REVIEW",
		Name:           "评审中",
		Sequence:       2,
		AllowedActions: []string{entity.StageActionApprove, entity.StageActionReject},
	})
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func TestUpdateStageAllowsRenameKeepingCode(t *testing.T) {
	svc, f := newStageServiceFixture(t)
	ctx := context.Background()

	updated, err := svc.UpdateStage(ctx, "st-review", &StageSpec{
		Code:           "REVIEW",
		Name:           "复核中",
		Sequence:       2,
		AllowedActions: []string{entity.StageActionApprove, entity.StageActionReject},
	})
	if err != nil {
		t.Fatalf("UpdateStage failed: %v", err)
	}
	if updated.Name != "复核中" {
		t.Errorf("name = %s", updated.Name)
	}
	saved, _ := f.stages.FindByID(ctx, "st-review")
	if saved.Name != "复核中" {
		t.Errorf("rename not persisted")
	}
}

func TestDeleteStageBlockedByLiveEntities(t *testing.T) {
	svc, f := newStageServiceFixture(t)
	f.seedEntity("doc-1", "st-approved", nil)

	err := svc.DeleteStage(context.Background(), "st-approved")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func TestDeleteStageBlockedByTransitionReference(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	err := svc.DeleteStage(context.Background(), "st-review")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func TestDeleteStageUnreferenced(t *testing.T) {
	svc, f := newStageServiceFixture(t)
	ctx := context.Background()

	orphan, err := svc.CreateStage(ctx, "admin", &StageSpec{
		Code:           "ORPHAN",
		Name:           "孤立阶段",
		Sequence:       99,
		AllowedActions: []string{entity.StageActionComplete},
	})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}
	if err := svc.DeleteStage(ctx, orphan.ID); err != nil {
		t.Fatalf("DeleteStage failed: %v", err)
	}
	if _, err := f.stages.FindByID(ctx, orphan.ID); err == nil {
		t.Error("stage still exists after delete")
	}
}

func TestReorderStagesRejectsCollision(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	err := svc.ReorderStages(context.Background(), []ReorderItem{
		{ID: "st-draft", Sequence: 2},
		{ID: "st-review", Sequence: 2},
	})
	if _, ok := validationFields(t, err)["st-review"]; !ok {
		t.Errorf("expected collision violation on st-review")
	}
}

func TestReorderStagesRejectsCollisionWithUntouchedStage(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	// st-approved 未参与改序且占着 sequence 3
	err := svc.ReorderStages(context.Background(), []ReorderItem{
		{ID: "st-draft", Sequence: 3},
	})
	if err == nil {
		t.Fatal("expected collision with untouched stage")
	}
}

func TestReorderStagesRejectsUnknownID(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	err := svc.ReorderStages(context.Background(), []ReorderItem{
		{ID: "st-nope", Sequence: 50},
	})
	if _, ok := validationFields(t, err)["st-nope"]; !ok {
		t.Errorf("expected unknown id violation")
	}
}

func TestReorderStagesAtomic(t *testing.T) {
	svc, f := newStageServiceFixture(t)
	ctx := context.Background()

	err := svc.ReorderStages(ctx, []ReorderItem{
		{ID: "st-draft", Sequence: 7},
		{ID: "st-review", Sequence: 8},
		{ID: "st-approved", Sequence: 9},
	})
	if err != nil {
		t.Fatalf("ReorderStages failed: %v", err)
	}
	st, _ := f.stages.FindByID(ctx, "st-review")
	if st.Sequence != 8 {
		t.Errorf("sequence = %d, want 8", st.Sequence)
	}
}

func TestCloneStage(t *testing.T) {
	svc, _ := newStageServiceFixture(t)

	clone, err := svc.CloneStage(context.Background(), "st-review", "复核副本", "REVIEW_COPY", "admin")
	if err != nil {
		t.Fatalf("CloneStage failed: %v", err)
	}
	if clone.Code != "REVIEW_COPY" || clone.Name != "复核副本" {
		t.Errorf("unexpected clone: %+v", clone)
	}
	if !clone.AllowedActions.Contains(entity.StageActionApprove) {
		t.Error("clone lost allowed actions")
	}
	if !clone.RequiredPermissions.Contains("perm-review") {
		t.Error("clone lost required permissions")
	}
	if clone.Sequence != 3 {
		t.Errorf("sequence = %d, want source+1", clone.Sequence)
	}
}

func TestStageIsTerminal(t *testing.T) {
	terminal := &entity.WorkflowStage{NextStages: nil}
	if !terminal.IsTerminal() {
		t.Error("stage without next stages must be terminal")
	}
	open := &entity.WorkflowStage{NextStages: entity.StringArray{"st-x"}}
	if open.IsTerminal() {
		t.Error("stage with next stages must not be terminal")
	}
}
