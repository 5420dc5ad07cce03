package handler

import (
	"net/http"

	"github.com/bitfantasy/pharma-dms/internal/dms/service"
	"github.com/gin-gonic/gin"
)

// InventoryHandler 库存处理器
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// List 库存列表
// GET /api/v1/inventory?product_id=&warehouse_id=&batch_number=&search=
func (h *InventoryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"product_id":   c.Query("product_id"),
		"warehouse_id": c.Query("warehouse_id"),
		"batch_number": c.Query("batch_number"),
		"search":       c.Query("search"),
	}
	items, total, err := h.svc.ListInventory(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// Get 库存详情
// GET /api/v1/inventory/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	inv, err := h.svc.GetInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Adjust 盘点调整
// POST /api/v1/inventory/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var spec service.MovementSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	inv, err := h.svc.Adjust(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Reserve 预留
// POST /api/v1/inventory/reserve
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var spec service.MovementSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	inv, err := h.svc.Reserve(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Release 解除预留
// POST /api/v1/inventory/release
func (h *InventoryHandler) Release(c *gin.Context) {
	var spec service.MovementSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	inv, err := h.svc.Release(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Utilize 领用出库
// POST /api/v1/inventory/utilize
func (h *InventoryHandler) Utilize(c *gin.Context) {
	var spec service.MovementSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	inv, err := h.svc.Utilize(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Transfer 跨仓调拨
// POST /api/v1/inventory/transfer
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var spec service.TransferSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.Transfer(c.Request.Context(), GetUserID(c), &spec); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"transferred": spec.Quantity})
}

// ListMovements 流水列表
// GET /api/v1/inventory/movements?inventory_id=&product_id=&warehouse_id=&movement_type=
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"inventory_id":  c.Query("inventory_id"),
		"product_id":    c.Query("product_id"),
		"warehouse_id":  c.Query("warehouse_id"),
		"movement_type": c.Query("movement_type"),
	}
	items, total, err := h.svc.ListMovements(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// ExportMovements 导出流水 Excel
// GET /api/v1/inventory/movements/export?product_id=&warehouse_id=
func (h *InventoryHandler) ExportMovements(c *gin.Context) {
	filters := map[string]string{
		"product_id":   c.Query("product_id"),
		"warehouse_id": c.Query("warehouse_id"),
	}
	f, err := h.svc.ExportMovements(c.Request.Context(), filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	filename := service.ExportFilename("inventory_movements")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
