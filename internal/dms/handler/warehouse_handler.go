package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/dms/service"
	"github.com/gin-gonic/gin"
)

// WarehouseHandler 入库审批与仓库处理器
type WarehouseHandler struct {
	svc *service.WarehouseApprovalService
}

func NewWarehouseHandler(svc *service.WarehouseApprovalService) *WarehouseHandler {
	return &WarehouseHandler{svc: svc}
}

// ListApprovals 入库审批列表
// GET /api/v1/warehouse-approvals?warehouse_id=&stage_id=
func (h *WarehouseHandler) ListApprovals(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"warehouse_id": c.Query("warehouse_id"),
		"stage_id":     c.Query("stage_id"),
	}
	items, total, err := h.svc.ListApprovals(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// GetApproval 入库审批详情
// GET /api/v1/warehouse-approvals/:id
func (h *WarehouseHandler) GetApproval(c *gin.Context) {
	approval, err := h.svc.GetApproval(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, approval)
}

// CreateApproval 创建入库审批单
// POST /api/v1/warehouse-approvals
func (h *WarehouseHandler) CreateApproval(c *gin.Context) {
	var spec service.ApprovalSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	approval, err := h.svc.CreateApproval(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, approval)
}

// Approve 审批通过并入账库存
// POST /api/v1/warehouse-approvals/:id/approve
func (h *WarehouseHandler) Approve(c *gin.Context) {
	var body actionBody
	_ = c.ShouldBindJSON(&body)
	result, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c), body.Remarks)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// Reject 审批驳回
// POST /api/v1/warehouse-approvals/:id/reject
func (h *WarehouseHandler) Reject(c *gin.Context) {
	var body actionBody
	_ = c.ShouldBindJSON(&body)
	result, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c), body.Remarks)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// ListWarehouses 仓库列表
// GET /api/v1/warehouses
func (h *WarehouseHandler) ListWarehouses(c *gin.Context) {
	items, err := h.svc.ListWarehouses(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, items)
}

// CreateWarehouse 创建仓库
// POST /api/v1/warehouses
func (h *WarehouseHandler) CreateWarehouse(c *gin.Context) {
	var spec service.WarehouseSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	w, err := h.svc.CreateWarehouse(c.Request.Context(), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, w)
}
