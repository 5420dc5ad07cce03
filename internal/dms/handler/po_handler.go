package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/dms/service"
	"github.com/gin-gonic/gin"
)

// PurchaseOrderHandler 采购订单处理器
type PurchaseOrderHandler struct {
	svc *service.PurchaseOrderService
}

func NewPurchaseOrderHandler(svc *service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{svc: svc}
}

// List 订单列表
// GET /api/v1/purchase-orders?principal_id=&stage_id=&search=
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"principal_id": c.Query("principal_id"),
		"stage_id":     c.Query("stage_id"),
		"search":       c.Query("search"),
	}
	items, total, err := h.svc.ListPOs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// Get 订单详情
// GET /api/v1/purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	po, err := h.svc.GetPO(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, po)
}

// Create 创建订单
// POST /api/v1/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var spec service.POSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	po, err := h.svc.CreatePO(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, po)
}

// Update 更新订单（仅草稿）
// PUT /api/v1/purchase-orders/:id
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	var spec service.POSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	po, err := h.svc.UpdatePO(c.Request.Context(), c.Param("id"), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, po)
}

type actionBody struct {
	Remarks string `json:"remarks"`
}

// Submit 提交审批
// POST /api/v1/purchase-orders/:id/submit
func (h *PurchaseOrderHandler) Submit(c *gin.Context) {
	var body actionBody
	_ = c.ShouldBindJSON(&body)
	result, err := h.svc.Submit(c.Request.Context(), c.Param("id"), GetUserID(c), body.Remarks)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// Approve 审批通过
// POST /api/v1/purchase-orders/:id/approve
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	var body actionBody
	_ = c.ShouldBindJSON(&body)
	result, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c), body.Remarks)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// Reject 审批退回
// POST /api/v1/purchase-orders/:id/reject
func (h *PurchaseOrderHandler) Reject(c *gin.Context) {
	var body actionBody
	_ = c.ShouldBindJSON(&body)
	result, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c), body.Remarks)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// Cancel 取消订单
// POST /api/v1/purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	var body actionBody
	_ = c.ShouldBindJSON(&body)
	result, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), GetUserID(c), body.Remarks)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}
