package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"go.uber.org/zap"
)

var errFakeNotFound = errors.New("not found")

// ---------------------------------------------------------------------------
// 内存版存储实现，测试引擎语义时不依赖数据库
// ---------------------------------------------------------------------------

type memStageStore struct {
	mu     sync.Mutex
	stages map[string]*entity.WorkflowStage
}

func newMemStageStore() *memStageStore {
	return &memStageStore{stages: map[string]*entity.WorkflowStage{}}
}

func (m *memStageStore) Create(ctx context.Context, stage *entity.WorkflowStage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *stage
	m.stages[stage.ID] = &cp
	return nil
}

func (m *memStageStore) Update(ctx context.Context, stage *entity.WorkflowStage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stages[stage.ID]; !ok {
		return errFakeNotFound
	}
	cp := *stage
	m.stages[stage.ID] = &cp
	return nil
}

func (m *memStageStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stages[id]; !ok {
		return errFakeNotFound
	}
	delete(m.stages, id)
	return nil
}

func (m *memStageStore) FindByID(ctx context.Context, id string) (*entity.WorkflowStage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stages[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *memStageStore) FindByCode(ctx context.Context, code string) (*entity.WorkflowStage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.stages {
		if st.Code == code {
			cp := *st
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

func (m *memStageStore) FindByIDs(ctx context.Context, ids []string) ([]entity.WorkflowStage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.WorkflowStage
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if st, ok := m.stages[id]; ok {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *memStageStore) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WorkflowStage, int64, error) {
	all, _ := m.ListAll(ctx)
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *memStageStore) ListAll(ctx context.Context) ([]entity.WorkflowStage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.WorkflowStage, 0, len(m.stages))
	for _, st := range m.stages {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *memStageStore) UpdateSequences(ctx context.Context, sequences map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, seq := range sequences {
		st, ok := m.stages[id]
		if !ok {
			return errFakeNotFound
		}
		st.Sequence = seq
	}
	return nil
}

func (m *memStageStore) CountReferencing(ctx context.Context, stageID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, st := range m.stages {
		if st.ID != stageID && st.NextStages.Contains(stageID) {
			n++
		}
	}
	return n, nil
}

type memTransitionStore struct {
	mu          sync.Mutex
	transitions []entity.WorkflowTransition
}

func newMemTransitionStore() *memTransitionStore {
	return &memTransitionStore{}
}

func (m *memTransitionStore) Create(ctx context.Context, t *entity.WorkflowTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, *t)
	return nil
}

func (m *memTransitionStore) Update(ctx context.Context, t *entity.WorkflowTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.transitions {
		if m.transitions[i].ID == t.ID {
			m.transitions[i] = *t
			return nil
		}
	}
	return errFakeNotFound
}

func (m *memTransitionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.transitions {
		if m.transitions[i].ID == id {
			m.transitions = append(m.transitions[:i], m.transitions[i+1:]...)
			return nil
		}
	}
	return errFakeNotFound
}

func (m *memTransitionStore) FindByID(ctx context.Context, id string) (*entity.WorkflowTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.transitions {
		if m.transitions[i].ID == id {
			cp := m.transitions[i]
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

// Find 保持插入顺序，等价于 created_at 升序
func (m *memTransitionStore) Find(ctx context.Context, filter TransitionFilter) ([]entity.WorkflowTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.WorkflowTransition
	for _, t := range m.transitions {
		if filter.FromStageID != "" && t.FromStageID != filter.FromStageID {
			continue
		}
		if filter.ToStageID != "" && t.ToStageID != filter.ToStageID {
			continue
		}
		if filter.Action != "" && t.Action != filter.Action {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTransitionStore) CountByStage(ctx context.Context, stageID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.transitions {
		if t.FromStageID == stageID || t.ToStageID == stageID {
			n++
		}
	}
	return n, nil
}

type memGrantStore struct {
	mu     sync.Mutex
	grants map[string]*entity.StagePermission // user|stage
}

func newMemGrantStore() *memGrantStore {
	return &memGrantStore{grants: map[string]*entity.StagePermission{}}
}

func grantKey(userID, stageID string) string { return userID + "|" + stageID }

func (m *memGrantStore) Upsert(ctx context.Context, grant *entity.StagePermission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := grantKey(grant.UserID, grant.StageID)
	if existing, ok := m.grants[key]; ok {
		grant.ID = existing.ID
	}
	cp := *grant
	m.grants[key] = &cp
	return nil
}

func (m *memGrantStore) Save(ctx context.Context, grant *entity.StagePermission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *grant
	m.grants[grantKey(grant.UserID, grant.StageID)] = &cp
	return nil
}

func (m *memGrantStore) Find(ctx context.Context, userID, stageID string) (*entity.StagePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[grantKey(userID, stageID)]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memGrantStore) FindByStage(ctx context.Context, stageID string) ([]entity.StagePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.StagePermission
	for _, g := range m.grants {
		if g.StageID == stageID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memGrantStore) FindByUser(ctx context.Context, userID string) ([]entity.StagePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.StagePermission
	for _, g := range m.grants {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memGrantStore) ActiveUserIDs(ctx context.Context, stageID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, g := range m.grants {
		if g.StageID == stageID && g.IsValid() {
			out = append(out, g.UserID)
		}
	}
	return out, nil
}

type memPermissionStore struct {
	mu    sync.Mutex
	perms map[string]*entity.Permission
}

func newMemPermissionStore() *memPermissionStore {
	return &memPermissionStore{perms: map[string]*entity.Permission{}}
}

func (m *memPermissionStore) Create(ctx context.Context, p *entity.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.perms[p.ID] = &cp
	return nil
}

func (m *memPermissionStore) FindByID(ctx context.Context, id string) (*entity.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perms[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPermissionStore) FindByIDs(ctx context.Context, ids []string) ([]entity.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Permission
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := m.perms[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPermissionStore) FindByName(ctx context.Context, name string) (*entity.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errFakeNotFound
}

func (m *memPermissionStore) FindAll(ctx context.Context, resource string) ([]entity.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Permission
	for _, p := range m.perms {
		if resource == "" || p.Resource == resource {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memHistoryStore struct {
	mu      sync.Mutex
	entries []entity.WorkflowHistory
}

func newMemHistoryStore() *memHistoryStore {
	return &memHistoryStore{}
}

func (m *memHistoryStore) Append(ctx context.Context, h *entity.WorkflowHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *h)
	return nil
}

func (m *memHistoryStore) Find(ctx context.Context, entityType, entityID string, page, limit int) ([]entity.WorkflowHistory, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []entity.WorkflowHistory
	for i := len(m.entries) - 1; i >= 0; i-- {
		h := m.entries[i]
		if h.EntityType == entityType && h.EntityID == entityID {
			matched = append(matched, h)
		}
	}
	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memHistoryStore) CountByStage(ctx context.Context, stageID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, h := range m.entries {
		if h.StageID == stageID {
			n++
		}
	}
	return n, nil
}

type memEntityStore struct {
	mu          sync.Mutex
	stages      map[string]string                 // type|id -> stageID
	snapshots   map[string]map[string]interface{} // type|id -> fields
	failNextCAS bool
}

func newMemEntityStore() *memEntityStore {
	return &memEntityStore{
		stages:    map[string]string{},
		snapshots: map[string]map[string]interface{}{},
	}
}

func entityKey(entityType, entityID string) string { return entityType + "|" + entityID }

func (m *memEntityStore) put(entityType, entityID, stageID string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[entityKey(entityType, entityID)] = stageID
	if fields == nil {
		fields = map[string]interface{}{}
	}
	m.snapshots[entityKey(entityType, entityID)] = fields
}

func (m *memEntityStore) CurrentStage(ctx context.Context, entityType, entityID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stageID, ok := m.stages[entityKey(entityType, entityID)]
	if !ok {
		return "", errFakeNotFound
	}
	return stageID, nil
}

func (m *memEntityStore) CompareAndSetStage(ctx context.Context, entityType, entityID, fromStageID, toStageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextCAS {
		m.failNextCAS = false
		return false, nil
	}
	key := entityKey(entityType, entityID)
	current, ok := m.stages[key]
	if !ok {
		return false, errFakeNotFound
	}
	if current != fromStageID {
		return false, nil
	}
	m.stages[key] = toStageID
	return true, nil
}

func (m *memEntityStore) Snapshot(ctx context.Context, entityType, entityID string) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[entityKey(entityType, entityID)]
	if !ok {
		return nil, errFakeNotFound
	}
	out := map[string]interface{}{}
	for k, v := range snap {
		out[k] = v
	}
	return out, nil
}

func (m *memEntityStore) CountByStage(ctx context.Context, stageID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.stages {
		if s == stageID {
			n++
		}
	}
	return n, nil
}

type memUserDirectory struct {
	users map[string]string // id -> name
}

func newMemUserDirectory(users ...string) *memUserDirectory {
	m := &memUserDirectory{users: map[string]string{}}
	for _, u := range users {
		m.users[u] = "User " + u
	}
	return m
}

func (m *memUserDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	_, ok := m.users[userID]
	return ok, nil
}

func (m *memUserDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	name, ok := m.users[userID]
	if !ok {
		return "", errFakeNotFound
	}
	return name, nil
}

// ---------------------------------------------------------------------------
// 测试夹具：文档审批流 DRAFT --submit--> REVIEW --approve/reject--> APPROVED/DRAFT
// ---------------------------------------------------------------------------

type engineFixture struct {
	stages      *memStageStore
	transitions *memTransitionStore
	grants      *memGrantStore
	perms       *memPermissionStore
	history     *memHistoryStore
	entities    *memEntityStore
	users       *memUserDirectory

	grantSvc *StagePermissionService
	engine   *WorkflowService
}

func stageFixture(id, code string, seq int, actions, requiredPerms, next []string) *entity.WorkflowStage {
	return &entity.WorkflowStage{
		ID:                  id,
		Code:                code,
		Name:                code,
		Sequence:            seq,
		AllowedActions:      actions,
		RequiredPermissions: requiredPerms,
		NextStages:          next,
		IsActive:            true,
	}
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		stages:      newMemStageStore(),
		transitions: newMemTransitionStore(),
		grants:      newMemGrantStore(),
		perms:       newMemPermissionStore(),
		history:     newMemHistoryStore(),
		entities:    newMemEntityStore(),
		users:       newMemUserDirectory("alice", "bob", "carol"),
	}
	logger := zap.NewNop()
	f.grantSvc = NewStagePermissionService(f.grants, f.stages, f.perms, f.users, logger)
	f.engine = NewWorkflowService(f.stages, f.transitions, f.grantSvc, f.history, f.entities, nil, nil, logger)

	ctx := context.Background()
	f.perms.Create(ctx, &entity.Permission{ID: "perm-review", Name: "documents.approve", Resource: "documents", Action: entity.ActionApprove})

	f.stages.Create(ctx, stageFixture("st-draft", "DRAFT", 1,
		[]string{entity.StageActionSubmit, entity.StageActionCancel}, nil, []string{"st-review"}))
	f.stages.Create(ctx, stageFixture("st-review", "REVIEW", 2,
		[]string{entity.StageActionApprove, entity.StageActionReject}, []string{"perm-review"}, []string{"st-approved", "st-draft"}))
	f.stages.Create(ctx, stageFixture("st-approved", "APPROVED", 3,
		[]string{entity.StageActionComplete}, nil, nil))

	f.transitions.Create(ctx, &entity.WorkflowTransition{
		ID: "tr-submit", FromStageID: "st-draft", ToStageID: "st-review",
		Action: entity.StageActionSubmit, RequiredFields: []string{"title"},
	})
	f.transitions.Create(ctx, &entity.WorkflowTransition{
		ID: "tr-approve", FromStageID: "st-review", ToStageID: "st-approved",
		Action: entity.StageActionApprove,
		Conditions: entity.ConditionList{
			{Kind: entity.ConditionFieldEquals, Field: "qa_done", Value: true},
		},
	})
	f.transitions.Create(ctx, &entity.WorkflowTransition{
		ID: "tr-reject", FromStageID: "st-review", ToStageID: "st-draft",
		Action: entity.StageActionReject,
	})

	// alice 全阶段授权；bob 无任何授权
	f.grants.Upsert(ctx, &entity.StagePermission{
		ID: "g-alice-draft", UserID: "alice", StageID: "st-draft", IsActive: true, AssignedBy: "admin",
	})
	f.grants.Upsert(ctx, &entity.StagePermission{
		ID: "g-alice-review", UserID: "alice", StageID: "st-review",
		Permissions: []string{"perm-review"}, IsActive: true, AssignedBy: "admin",
	})

	return f
}

// seedEntity 在指定阶段放置一个实体
func (f *engineFixture) seedEntity(id, stageID string, fields map[string]interface{}) {
	f.entities.put("document", id, stageID, fields)
}

func (f *engineFixture) mustStage(t *testing.T, entityID, wantStageID string) {
	t.Helper()
	got, err := f.entities.CurrentStage(context.Background(), "document", entityID)
	if err != nil {
		t.Fatalf("CurrentStage failed: %v", err)
	}
	if got != wantStageID {
		t.Fatalf("entity %s: stage = %s, want %s", entityID, got, wantStageID)
	}
}

func rejectedReason(t *testing.T, err error) string {
	t.Helper()
	var tre *TransitionRejectedError
	if !errors.As(err, &tre) {
		t.Fatalf("expected TransitionRejectedError, got %T: %v", err, err)
	}
	return tre.Reason
}
