package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/dms/service"
	"github.com/gin-gonic/gin"
)

// QCHandler 质检处理器
type QCHandler struct {
	svc *service.QualityControlService
}

func NewQCHandler(svc *service.QualityControlService) *QCHandler {
	return &QCHandler{svc: svc}
}

// List 质检单列表
// GET /api/v1/quality-controls?receiving_id=&stage_id=&overall_result=
func (h *QCHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"receiving_id":   c.Query("receiving_id"),
		"stage_id":       c.Query("stage_id"),
		"overall_result": c.Query("overall_result"),
	}
	items, total, err := h.svc.ListQCs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// Get 质检单详情
// GET /api/v1/quality-controls/:id
func (h *QCHandler) Get(c *gin.Context) {
	qc, err := h.svc.GetQC(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, qc)
}

// Create 创建质检单
// POST /api/v1/quality-controls
func (h *QCHandler) Create(c *gin.Context) {
	var spec service.QCSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	qc, err := h.svc.CreateQC(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, qc)
}

// RecordResult 录入检验结论
// POST /api/v1/quality-controls/:id/result
func (h *QCHandler) RecordResult(c *gin.Context) {
	var spec service.QCResultSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	result, err := h.svc.RecordResult(c.Request.Context(), c.Param("id"), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}
