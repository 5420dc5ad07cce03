package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/gin-gonic/gin"
)

// Handlers 工作流处理器集合
type Handlers struct {
	Stage           *StageHandler
	Transition      *TransitionHandler
	StagePermission *StagePermissionHandler
	Workflow        *WorkflowHandler
}

// NewHandlers 创建工作流处理器集合
func NewHandlers(
	stageSvc *service.StageService,
	transitionSvc *service.TransitionService,
	grantSvc *service.StagePermissionService,
	workflowSvc *service.WorkflowService,
) *Handlers {
	return &Handlers{
		Stage:           NewStageHandler(stageSvc),
		Transition:      NewTransitionHandler(transitionSvc),
		StagePermission: NewStagePermissionHandler(grantSvc),
		Workflow:        NewWorkflowHandler(workflowSvc),
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

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: 40000, Message: message})
}

func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{Code: 40400, Message: message})
}

func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 50000, Message: message})
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

// HandleServiceError 把服务层类型化错误映射为结构化响应
// 拒绝类错误给出可执行的原因码，不泄漏存储层细节
func HandleServiceError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		conflictErr   *service.ConflictError
		forbiddenErr  *service.ForbiddenError
		rejectedErr   *service.TransitionRejectedError
		concurrentErr *service.ConcurrentModificationError
		loopErr       *service.WorkflowLoopError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    40001,
			"message": "参数校验失败",
			"fields":  validationErr.Fields,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    40400,
			"message": notFoundErr.Error(),
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"code":    40900,
			"message": conflictErr.Message,
		})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, gin.H{
			"code":    40301,
			"message": "缺少该阶段的操作授权",
			"missing": forbiddenErr.Missing,
			"action":  forbiddenErr.Action,
		})
	case errors.As(err, &rejectedErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    42200,
			"message": rejectedErr.Message,
			"reason":  rejectedErr.Reason,
			"fields":  rejectedErr.Fields,
		})
	case errors.As(err, &concurrentErr):
		c.JSON(http.StatusConflict, gin.H{
			"code":      40901,
			"message":   "实体阶段已被并发修改，请重试",
			"retryable": true,
		})
	case errors.As(err, &loopErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    50010,
			"message": loopErr.Error(),
		})
	default:
		InternalError(c, "内部错误: "+err.Error())
	}
}
