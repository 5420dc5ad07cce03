package handler

import (
	"github.com/bitfantasy/pharma-dms/internal/dms/service"
	"github.com/gin-gonic/gin"
)

// MasterHandler 主数据处理器
type MasterHandler struct {
	svc *service.MasterService
}

func NewMasterHandler(svc *service.MasterService) *MasterHandler {
	return &MasterHandler{svc: svc}
}

// === 医院 ===

// ListHospitals GET /api/v1/hospitals?search=
func (h *MasterHandler) ListHospitals(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListHospitals(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// GetHospital GET /api/v1/hospitals/:id
func (h *MasterHandler) GetHospital(c *gin.Context) {
	item, err := h.svc.GetHospital(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// CreateHospital POST /api/v1/hospitals
func (h *MasterHandler) CreateHospital(c *gin.Context) {
	var spec service.HospitalSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.CreateHospital(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, item)
}

// UpdateHospital PUT /api/v1/hospitals/:id
func (h *MasterHandler) UpdateHospital(c *gin.Context) {
	var spec service.HospitalSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.UpdateHospital(c.Request.Context(), c.Param("id"), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// === 医生 ===

// ListDoctors GET /api/v1/doctors?hospital_id=&search=
func (h *MasterHandler) ListDoctors(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListDoctors(c.Request.Context(), page, pageSize,
		c.Query("hospital_id"), c.Query("search"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// GetDoctor GET /api/v1/doctors/:id
func (h *MasterHandler) GetDoctor(c *gin.Context) {
	item, err := h.svc.GetDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// CreateDoctor POST /api/v1/doctors
func (h *MasterHandler) CreateDoctor(c *gin.Context) {
	var spec service.DoctorSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.CreateDoctor(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, item)
}

// UpdateDoctor PUT /api/v1/doctors/:id
func (h *MasterHandler) UpdateDoctor(c *gin.Context) {
	var spec service.DoctorSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.UpdateDoctor(c.Request.Context(), c.Param("id"), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// === 供应商 ===

// ListPrincipals GET /api/v1/principals?search=
func (h *MasterHandler) ListPrincipals(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListPrincipals(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// GetPrincipal GET /api/v1/principals/:id
func (h *MasterHandler) GetPrincipal(c *gin.Context) {
	item, err := h.svc.GetPrincipal(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// CreatePrincipal POST /api/v1/principals
func (h *MasterHandler) CreatePrincipal(c *gin.Context) {
	var spec service.PrincipalSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.CreatePrincipal(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, item)
}

// UpdatePrincipal PUT /api/v1/principals/:id
func (h *MasterHandler) UpdatePrincipal(c *gin.Context) {
	var spec service.PrincipalSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.UpdatePrincipal(c.Request.Context(), c.Param("id"), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// === 产品 ===

// ListProducts GET /api/v1/products?principal_id=&search=
func (h *MasterHandler) ListProducts(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListProducts(c.Request.Context(), page, pageSize,
		c.Query("principal_id"), c.Query("search"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// GetProduct GET /api/v1/products/:id
func (h *MasterHandler) GetProduct(c *gin.Context) {
	item, err := h.svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// CreateProduct POST /api/v1/products
func (h *MasterHandler) CreateProduct(c *gin.Context) {
	var spec service.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.CreateProduct(c.Request.Context(), GetUserID(c), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, item)
}

// UpdateProduct PUT /api/v1/products/:id
func (h *MasterHandler) UpdateProduct(c *gin.Context) {
	var spec service.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.UpdateProduct(c.Request.Context(), c.Param("id"), &spec)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}
