package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// StageHandler 工作流阶段处理器
type StageHandler struct {
	svc *service.StageService
}

func NewStageHandler(svc *service.StageService) *StageHandler {
	return &StageHandler{svc: svc}
}

// ListStages 阶段列表
// GET /api/v1/workflow/stages?is_active=true&search=xxx
func (h *StageHandler) ListStages(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"is_active": c.Query("is_active"),
		"search":    c.Query("search"),
	}

	items, total, err := h.svc.ListStages(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取阶段列表失败: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GetStage 阶段详情
// GET /api/v1/workflow/stages/:id
func (h *StageHandler) GetStage(c *gin.Context) {
	stage, err := h.svc.GetStage(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, stage)
}

// CreateStage 创建阶段
// POST /api/v1/workflow/stages
func (h *StageHandler) CreateStage(c *gin.Context) {
	var spec service.StageSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	stage, err := h.svc.CreateStage(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, stage)
}

// UpdateStage 更新阶段
// PUT /api/v1/workflow/stages/:id
func (h *StageHandler) UpdateStage(c *gin.Context) {
	var spec service.StageSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	stage, err := h.svc.UpdateStage(c.Request.Context(), c.Param("id"), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, stage)
}

// DeleteStage 删除阶段
// DELETE /api/v1/workflow/stages/:id
func (h *StageHandler) DeleteStage(c *gin.Context) {
	if err := h.svc.DeleteStage(c.Request.Context(), c.Param("id")); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}

// ReorderStages 批量改序
// POST /api/v1/workflow/stages/reorder
func (h *StageHandler) ReorderStages(c *gin.Context) {
	var req struct {
		Items []service.ReorderItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.svc.ReorderStages(c.Request.Context(), req.Items); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}

// CloneStage 克隆阶段
// POST /api/v1/workflow/stages/:id/clone
func (h *StageHandler) CloneStage(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	stage, err := h.svc.CloneStage(c.Request.Context(), c.Param("id"), req.Name, req.Code, GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, stage)
}
