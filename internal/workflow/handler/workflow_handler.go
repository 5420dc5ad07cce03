package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// WorkflowHandler 工作流引擎处理器
type WorkflowHandler struct {
	svc *service.WorkflowService
}

func NewWorkflowHandler(svc *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

// ExecuteTransition 执行迁移
// POST /api/v1/workflow/execute
func (h *WorkflowHandler) ExecuteTransition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.ExecuteTransition(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// ValidateAction 迁移预检（不落库）
// POST /api/v1/workflow/validate
func (h *WorkflowHandler) ValidateAction(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	outcome, err := h.svc.ValidateAction(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, outcome)
}

// GetHistory 工作流历史（倒序分页）
// GET /api/v1/workflow/history/:entityType/:entityId
func (h *WorkflowHandler) GetHistory(c *gin.Context) {
	page, limit := GetPagination(c)
	items, total, err := h.svc.GetHistory(c.Request.Context(), c.Param("entityType"), c.Param("entityId"), page, limit)
	if err != nil {
		InternalError(c, "获取工作流历史失败: "+err.Error())
		return
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   limit,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GetVisualization 阶段/迁移图导出
// GET /api/v1/workflow/visualization?format=json|mermaid|graphviz
func (h *WorkflowHandler) GetVisualization(c *gin.Context) {
	graph, err := h.svc.GetVisualization(c.Request.Context(), c.Query("format"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, graph)
}
