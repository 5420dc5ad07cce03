package service

import (
	"context"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
)

// 注入式仓库接口：引擎不持有全局单例，按进程构造一次显式传入，
// 便于用内存实现做测试（gorm 实现见 internal/workflow/repository）

// StageStore 阶段登记表存取
type StageStore interface {
	Create(ctx context.Context, stage *entity.WorkflowStage) error
	Update(ctx context.Context, stage *entity.WorkflowStage) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.WorkflowStage, error)
	FindByCode(ctx context.Context, code string) (*entity.WorkflowStage, error)
	FindByIDs(ctx context.Context, ids []string) ([]entity.WorkflowStage, error)
	FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WorkflowStage, int64, error)
	ListAll(ctx context.Context) ([]entity.WorkflowStage, error)
	// UpdateSequences 批量改序，原子生效
	UpdateSequences(ctx context.Context, sequences map[string]int) error
	// CountReferencing 统计 next_stages 中引用了该阶段的其他阶段数
	CountReferencing(ctx context.Context, stageID string) (int64, error)
}

// TransitionFilter 迁移规则查询条件
type TransitionFilter struct {
	FromStageID string
	ToStageID   string
	Action      string
}

// TransitionStore 迁移规则表存取
type TransitionStore interface {
	Create(ctx context.Context, t *entity.WorkflowTransition) error
	Update(ctx context.Context, t *entity.WorkflowTransition) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.WorkflowTransition, error)
	// Find 按条件查询，created_at 升序（重复边取第一条）
	Find(ctx context.Context, filter TransitionFilter) ([]entity.WorkflowTransition, error)
	// CountByStage 统计以该阶段为起点或终点的规则数
	CountByStage(ctx context.Context, stageID string) (int64, error)
}

// GrantStore 阶段授权存取
type GrantStore interface {
	// Upsert 按 (user_id, stage_id) 唯一键原子插入或更新
	Upsert(ctx context.Context, grant *entity.StagePermission) error
	Save(ctx context.Context, grant *entity.StagePermission) error
	Find(ctx context.Context, userID, stageID string) (*entity.StagePermission, error)
	FindByStage(ctx context.Context, stageID string) ([]entity.StagePermission, error)
	FindByUser(ctx context.Context, userID string) ([]entity.StagePermission, error)
	// ActiveUserIDs 持有该阶段有效授权的用户（通知接收人）
	ActiveUserIDs(ctx context.Context, stageID string) ([]string, error)
}

// PermissionStore 权限目录（只读参考数据）
type PermissionStore interface {
	Create(ctx context.Context, p *entity.Permission) error
	FindByID(ctx context.Context, id string) (*entity.Permission, error)
	FindByIDs(ctx context.Context, ids []string) ([]entity.Permission, error)
	FindByName(ctx context.Context, name string) (*entity.Permission, error)
	FindAll(ctx context.Context, resource string) ([]entity.Permission, error)
}

// HistoryStore 工作流历史（仅追加）
type HistoryStore interface {
	Append(ctx context.Context, h *entity.WorkflowHistory) error
	// Find 倒序分页
	Find(ctx context.Context, entityType, entityID string, page, limit int) ([]entity.WorkflowHistory, int64, error)
	CountByStage(ctx context.Context, stageID string) (int64, error)
}

// EntityStageStore 实体当前阶段的读取与条件写回（适配各业务实体表）
type EntityStageStore interface {
	// CurrentStage 读取实体当前阶段ID
	CurrentStage(ctx context.Context, entityType, entityID string) (string, error)
	// CompareAndSetStage 仅当当前阶段仍为 fromStageID 时写入 toStageID；
	// 返回 false 表示并发冲突（阶段已被他人推进）
	CompareAndSetStage(ctx context.Context, entityType, entityID, fromStageID, toStageID string) (bool, error)
	// Snapshot 实体字段快照（条件求值用）
	Snapshot(ctx context.Context, entityType, entityID string) (map[string]interface{}, error)
	// CountByStage 统计停在该阶段上的存活实体数（删除阶段前的引用检查）
	CountByStage(ctx context.Context, stageID string) (int64, error)
}

// UserDirectory 用户目录协作方（只需存在性与展示名）
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	DisplayName(ctx context.Context, userID string) (string, error)
}

// AuditSink 审计落点：失败只记日志，绝不影响迁移本身
type AuditSink interface {
	Record(ctx context.Context, action, entityType, entityID, actingUser string, changes map[string]interface{}) error
}

// NotificationSink 通知落点：异步派发，不阻塞、不回滚迁移
type NotificationSink interface {
	Dispatch(ctx context.Context, template string, recipients []string, payload map[string]interface{}) error
}
