package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignSpec 授权入参
type AssignSpec struct {
	UserID      string     `json:"user_id" binding:"required"`
	StageID     string     `json:"stage_id" binding:"required"`
	Permissions []string   `json:"permissions"`
	ExpiryDate  *time.Time `json:"expiry_date"`
	Remarks     string     `json:"remarks"`
}

// BulkAssignResult 批量授权的单项结果
type BulkAssignResult struct {
	UserID  string                  `json:"user_id"`
	StageID string                  `json:"stage_id"`
	Grant   *entity.StagePermission `json:"grant,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// StagePermissionService 阶段授权存储：按 (user, stage) 维护限时权限子集
type StagePermissionService struct {
	grants      GrantStore
	stages      StageStore
	permissions PermissionStore
	users       UserDirectory
	logger      *zap.Logger
}

// NewStagePermissionService 创建阶段授权服务
func NewStagePermissionService(grants GrantStore, stages StageStore, permissions PermissionStore, users UserDirectory, logger *zap.Logger) *StagePermissionService {
	return &StagePermissionService{
		grants:      grants,
		stages:      stages,
		permissions: permissions,
		users:       users,
		logger:      logger,
	}
}

func (s *StagePermissionService) validateAssign(ctx context.Context, spec *AssignSpec) error {
	vb := NewValidationBuilder()

	if exists, err := s.users.Exists(ctx, spec.UserID); err != nil {
		return fmt.Errorf("查询用户失败: %w", err)
	} else if !exists {
		vb.Add("user_id", "unknown user id")
	}
	if _, err := s.stages.FindByID(ctx, spec.StageID); err != nil {
		vb.Add("stage_id", "unknown stage id")
	}
	// 过去的有效期在写入时即拒绝
	if spec.ExpiryDate != nil && spec.ExpiryDate.Before(time.Now()) {
		vb.Add("expiry_date", "must not be in the past")
	}
	// 空权限集合法：仅挂靠阶段
	if len(spec.Permissions) > 0 {
		perms, err := s.permissions.FindByIDs(ctx, spec.Permissions)
		if err != nil {
			return fmt.Errorf("查询权限失败: %w", err)
		}
		if len(perms) != len(uniqueStrings(spec.Permissions)) {
			vb.Add("permissions", "contains unknown permission ids")
		}
	}

	return vb.Err()
}

// Assign 授权（upsert语义，(user, stage) 唯一）
func (s *StagePermissionService) Assign(ctx context.Context, assignedBy string, spec *AssignSpec) (*entity.StagePermission, error) {
	if err := s.validateAssign(ctx, spec); err != nil {
		return nil, err
	}

	grant := &entity.StagePermission{
		ID:          uuid.New().String(),
		UserID:      spec.UserID,
		StageID:     spec.StageID,
		Permissions: uniqueStrings(spec.Permissions),
		ExpiryDate:  spec.ExpiryDate,
		AssignedBy:  assignedBy,
		IsActive:    true,
		Remarks:     spec.Remarks,
	}
	if err := s.grants.Upsert(ctx, grant); err != nil {
		return nil, fmt.Errorf("保存阶段授权失败: %w", err)
	}
	s.logger.Info("stage permission assigned",
		zap.String("user_id", spec.UserID), zap.String("stage_id", spec.StageID),
		zap.Int("permissions", len(grant.Permissions)), zap.String("by", assignedBy))

	saved, err := s.grants.Find(ctx, spec.UserID, spec.StageID)
	if err != nil {
		return grant, nil
	}
	return saved, nil
}

// Revoke 撤销授权
// permissions 为空：整条授权停用；给出子集：仅移除这些权限，
// 移空后授权保持激活（与"空权限集合法"的授权语义对称）
func (s *StagePermissionService) Revoke(ctx context.Context, userID, stageID string, permissions []string) (*entity.StagePermission, error) {
	grant, err := s.grants.Find(ctx, userID, stageID)
	if err != nil {
		return nil, &NotFoundError{Kind: "stage permission", ID: userID + "/" + stageID}
	}

	if len(permissions) == 0 {
		grant.IsActive = false
	} else {
		drop := map[string]bool{}
		for _, p := range permissions {
			drop[p] = true
		}
		kept := make([]string, 0, len(grant.Permissions))
		for _, p := range grant.Permissions {
			if !drop[p] {
				kept = append(kept, p)
			}
		}
		grant.Permissions = kept
	}

	if err := s.grants.Save(ctx, grant); err != nil {
		return nil, fmt.Errorf("更新阶段授权失败: %w", err)
	}
	s.logger.Info("stage permission revoked",
		zap.String("user_id", userID), zap.String("stage_id", stageID),
		zap.Bool("deactivated", !grant.IsActive))
	return grant, nil
}

// BulkAssign 批量授权：逐项独立 upsert，互不回滚，返回逐项结果
func (s *StagePermissionService) BulkAssign(ctx context.Context, assignedBy string, specs []AssignSpec) []BulkAssignResult {
	results := make([]BulkAssignResult, 0, len(specs))
	for i := range specs {
		spec := specs[i]
		res := BulkAssignResult{UserID: spec.UserID, StageID: spec.StageID}
		grant, err := s.Assign(ctx, assignedBy, &spec)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Grant = grant
		}
		results = append(results, res)
	}
	return results
}

// GetActivePermissions 有效授权：激活且未过期才返回；无授权返回 nil 而非错误
func (s *StagePermissionService) GetActivePermissions(ctx context.Context, userID, stageID string) (*entity.StagePermission, error) {
	if _, err := s.stages.FindByID(ctx, stageID); err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: stageID}
	}
	grant, err := s.grants.Find(ctx, userID, stageID)
	if err != nil {
		return nil, nil
	}
	if !grant.IsValid() {
		return nil, nil
	}
	return grant, nil
}

// CanPerformAction 组合判定：
// (a) 授权存在且有效 (b) action ∈ 阶段 allowed_actions (c) 阶段 required_permissions ⊆ 授权 permissions
// 判否不报错；仅在阶段/用户ID非法时返回错误
func (s *StagePermissionService) CanPerformAction(ctx context.Context, userID, stageID, action string) (bool, error) {
	stage, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return false, &NotFoundError{Kind: "stage", ID: stageID}
	}
	if exists, err := s.users.Exists(ctx, userID); err != nil {
		return false, fmt.Errorf("查询用户失败: %w", err)
	} else if !exists {
		return false, &NotFoundError{Kind: "user", ID: userID}
	}

	grant, err := s.GetActivePermissions(ctx, userID, stageID)
	if err != nil || grant == nil {
		return false, err
	}
	if !stage.AllowedActions.Contains(action) {
		return false, nil
	}
	for _, required := range stage.RequiredPermissions {
		if !grant.Permissions.Contains(required) {
			return false, nil
		}
	}
	return true, nil
}

// MissingPermissions 阶段要求中授权未覆盖的权限（错误提示用）
func (s *StagePermissionService) MissingPermissions(ctx context.Context, userID, stageID string) ([]string, error) {
	stage, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: stageID}
	}
	grant, err := s.GetActivePermissions(ctx, userID, stageID)
	if err != nil {
		return nil, err
	}
	missing := []string{}
	for _, required := range stage.RequiredPermissions {
		if grant == nil || !grant.Permissions.Contains(required) {
			missing = append(missing, required)
		}
	}
	return missing, nil
}

// ListByStage 某阶段的全部授权
func (s *StagePermissionService) ListByStage(ctx context.Context, stageID string) ([]entity.StagePermission, error) {
	if _, err := s.stages.FindByID(ctx, stageID); err != nil {
		return nil, &NotFoundError{Kind: "stage", ID: stageID}
	}
	return s.grants.FindByStage(ctx, stageID)
}

// ListByUser 某用户的全部授权
func (s *StagePermissionService) ListByUser(ctx context.Context, userID string) ([]entity.StagePermission, error) {
	return s.grants.FindByUser(ctx, userID)
}
