package handler

import (
	"net/http"
	"strconv"

	"github.com/bitfantasy/pharma-dms/internal/dms/service"
	wfhandler "github.com/bitfantasy/pharma-dms/internal/workflow/handler"
	"github.com/gin-gonic/gin"
)

// Handlers 业务处理器集合
type Handlers struct {
	PurchaseOrder *PurchaseOrderHandler
	Receiving     *ReceivingHandler
	QC            *QCHandler
	Warehouse     *WarehouseHandler
	Inventory     *InventoryHandler
	Master        *MasterHandler
}

// NewHandlers 创建业务处理器集合
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		PurchaseOrder: NewPurchaseOrderHandler(services.PurchaseOrder),
		Receiving:     NewReceivingHandler(services.Receiving),
		QC:            NewQCHandler(services.QC),
		Warehouse:     NewWarehouseHandler(services.Warehouse),
		Inventory:     NewInventoryHandler(services.Inventory),
		Master:        NewMasterHandler(services.Master),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, pageSize int, total int64) *Pagination {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: totalPages}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: 40000, Message: message})
}

// GetPagination 解析分页参数
func GetPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return page, pageSize
}

// GetUserID 从认证中间件取当前用户
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// HandleServiceError 错误映射与工作流模块保持一致
func HandleServiceError(c *gin.Context, err error) {
	wfhandler.HandleServiceError(c, err)
}
