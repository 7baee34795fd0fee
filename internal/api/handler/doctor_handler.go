package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/service"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/response"
)

// DoctorHandler 医生模块 HTTP 处理器
type DoctorHandler struct {
	doctorSvc service.DoctorService
}

// NewDoctorHandler 创建 DoctorHandler
func NewDoctorHandler(doctorSvc service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctorSvc: doctorSvc}
}

// CreateDoctor 创建医生
// POST /api/v1/doctors
func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req dto.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.doctorSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleDoctorError(c, err)
		return
	}

	response.Created(c, result)
}

// GetDoctor 获取医生详情
// GET /api/v1/doctors/:id
func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	result, err := h.doctorSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleDoctorError(c, err)
		return
	}

	response.OK(c, result)
}

// ListDoctors 医生列表（默认仅在职医生）
// GET /api/v1/doctors
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	var req dto.CatalogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.doctorSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UpdateDoctor 更新医生
// PUT /api/v1/doctors/:id
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	var req dto.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.doctorSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleDoctorError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteDoctor 删除医生
// DELETE /api/v1/doctors/:id
func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.doctorSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleDoctorError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleDoctorError 统一处理医生模块业务错误
func (h *DoctorHandler) handleDoctorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDoctorNotFound):
		response.NotFound(c, 21001, "医生不存在")
	case errors.Is(err, service.ErrDoctorHasBooking):
		response.Conflict(c, 21003, "该医生仍有未完成的预约，无法删除")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, pkgerrors.ErrOptimisticLock.Error())
	default:
		response.InternalError(c)
	}
}
