package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/dms/service"
	"github.com/gin-gonic/gin"
)

// ReceivingHandler 发票收货处理器
type ReceivingHandler struct {
	svc *service.InvoiceReceivingService
}

func NewReceivingHandler(svc *service.InvoiceReceivingService) *ReceivingHandler {
	return &ReceivingHandler{svc: svc}
}

// List 收货单列表
// GET /api/v1/invoice-receivings?po_id=&stage_id=&search=
func (h *ReceivingHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"po_id":    c.Query("po_id"),
		"stage_id": c.Query("stage_id"),
		"search":   c.Query("search"),
	}
	items, total, err := h.svc.ListReceivings(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// Get 收货单详情
// GET /api/v1/invoice-receivings/:id
func (h *ReceivingHandler) Get(c *gin.Context) {
	rec, err := h.svc.GetReceiving(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, rec)
}

// Create 创建收货单
// POST /api/v1/invoice-receivings
func (h *ReceivingHandler) Create(c *gin.Context) {
	var spec service.ReceivingSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	rec, err := h.svc.CreateReceiving(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, rec)
}

// Receive 确认收货
// POST /api/v1/invoice-receivings/:id/receive
func (h *ReceivingHandler) Receive(c *gin.Context) {
	var body actionBody
	_ = c.ShouldBindJSON(&body)
	result, err := h.svc.Receive(c.Request.Context(), c.Param("id"), GetUserID(c), body.Remarks)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}
