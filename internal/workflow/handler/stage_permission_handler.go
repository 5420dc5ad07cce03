package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// StagePermissionHandler 阶段授权处理器
type StagePermissionHandler struct {
	svc *service.StagePermissionService
}

func NewStagePermissionHandler(svc *service.StagePermissionService) *StagePermissionHandler {
	return &StagePermissionHandler{svc: svc}
}

// Assign 授权
// POST /api/v1/workflow/stage-permissions
func (h *StagePermissionHandler) Assign(c *gin.Context) {
	var spec service.AssignSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	grant, err := h.svc.Assign(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, grant)
}

// BulkAssign 批量授权：逐项独立结果，不整体回滚
// POST /api/v1/workflow/stage-permissions/bulk
func (h *StagePermissionHandler) BulkAssign(c *gin.Context) {
	var req struct {
		Assignments []service.AssignSpec `json:"assignments" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	results := h.svc.BulkAssign(c.Request.Context(), GetUserID(c), req.Assignments)
	Success(c, results)
}

// Revoke 撤销授权（可选权限子集）
// POST /api/v1/workflow/stage-permissions/revoke
func (h *StagePermissionHandler) Revoke(c *gin.Context) {
	var req struct {
		UserID      string   `json:"user_id" binding:"required"`
		StageID     string   `json:"stage_id" binding:"required"`
		Permissions []string `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	grant, err := h.svc.Revoke(c.Request.Context(), req.UserID, req.StageID, req.Permissions)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, grant)
}

// GetActivePermissions 有效授权查询（无授权返回空data，而非404）
// GET /api/v1/workflow/stage-permissions/active?user_id=xxx&stage_id=xxx
func (h *StagePermissionHandler) GetActivePermissions(c *gin.Context) {
	userID := c.Query("user_id")
	stageID := c.Query("stage_id")
	if userID == "" || stageID == "" {
		BadRequest(c, "user_id和stage_id不能为空")
		return
	}

	grant, err := h.svc.GetActivePermissions(c.Request.Context(), userID, stageID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, grant)
}

// CanPerformAction 组合判定
// GET /api/v1/workflow/stage-permissions/can-perform?user_id=xxx&stage_id=xxx&action=xxx
func (h *StagePermissionHandler) CanPerformAction(c *gin.Context) {
	userID := c.Query("user_id")
	stageID := c.Query("stage_id")
	action := c.Query("action")
	if userID == "" || stageID == "" || action == "" {
		BadRequest(c, "user_id、stage_id和action不能为空")
		return
	}

	allowed, err := h.svc.CanPerformAction(c.Request.Context(), userID, stageID, action)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"allowed": allowed})
}

// ListByStage 某阶段的授权列表
// GET /api/v1/workflow/stages/:id/permissions
func (h *StagePermissionHandler) ListByStage(c *gin.Context) {
	grants, err := h.svc.ListByStage(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, grants)
}

// ListByUser 某用户的授权列表
// GET /api/v1/workflow/users/:userId/stage-permissions
func (h *StagePermissionHandler) ListByUser(c *gin.Context) {
	grants, err := h.svc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, grants)
}
