package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// TransitionHandler 迁移规则处理器
type TransitionHandler struct {
	svc *service.TransitionService
}

func NewTransitionHandler(svc *service.TransitionService) *TransitionHandler {
	return &TransitionHandler{svc: svc}
}

// ListTransitions 迁移规则列表
// GET /api/v1/workflow/transitions?from_stage_id=xxx&to_stage_id=xxx&action=xxx
func (h *TransitionHandler) ListTransitions(c *gin.Context) {
	filter := service.TransitionFilter{
		FromStageID: c.Query("from_stage_id"),
		ToStageID:   c.Query("to_stage_id"),
		Action:      c.Query("action"),
	}

	items, err := h.svc.ListTransitions(c.Request.Context(), filter)
	if err != nil {
		InternalError(c, "获取迁移规则失败: "+err.Error())
		return
	}
	Success(c, items)
}

// CreateTransition 创建迁移规则
// POST /api/v1/workflow/transitions
func (h *TransitionHandler) CreateTransition(c *gin.Context) {
	var spec service.TransitionSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	t, err := h.svc.CreateTransition(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, t)
}

// UpdateTransition 更新迁移规则
// PUT /api/v1/workflow/transitions/:id
func (h *TransitionHandler) UpdateTransition(c *gin.Context) {
	var spec service.TransitionSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	t, err := h.svc.UpdateTransition(c.Request.Context(), c.Param("id"), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, t)
}

// DeleteTransition 删除迁移规则
// DELETE /api/v1/workflow/transitions/:id
func (h *TransitionHandler) DeleteTransition(c *gin.Context) {
	if err := h.svc.DeleteTransition(c.Request.Context(), c.Param("id")); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}
