package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/service"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/response"
)

// TreatmentHandler 治疗项目模块 HTTP 处理器
type TreatmentHandler struct {
	treatmentSvc service.TreatmentService
}

// NewTreatmentHandler 创建 TreatmentHandler
func NewTreatmentHandler(treatmentSvc service.TreatmentService) *TreatmentHandler {
	return &TreatmentHandler{treatmentSvc: treatmentSvc}
}

// CreateTreatment 创建治疗项目
// POST /api/v1/treatments
func (h *TreatmentHandler) CreateTreatment(c *gin.Context) {
	var req dto.CreateTreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.treatmentSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleTreatmentError(c, err)
		return
	}

	response.Created(c, result)
}

// GetTreatment 获取治疗项目详情
// GET /api/v1/treatments/:id
func (h *TreatmentHandler) GetTreatment(c *gin.Context) {
	result, err := h.treatmentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTreatmentError(c, err)
		return
	}

	response.OK(c, result)
}

// ListTreatments 治疗项目列表
// GET /api/v1/treatments
func (h *TreatmentHandler) ListTreatments(c *gin.Context) {
	var req dto.CatalogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.treatmentSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UpdateTreatment 更新治疗项目
// PUT /api/v1/treatments/:id
func (h *TreatmentHandler) UpdateTreatment(c *gin.Context) {
	var req dto.UpdateTreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.treatmentSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleTreatmentError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteTreatment 删除治疗项目
// DELETE /api/v1/treatments/:id
func (h *TreatmentHandler) DeleteTreatment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.treatmentSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleTreatmentError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *TreatmentHandler) handleTreatmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTreatmentNotFound):
		response.NotFound(c, 23001, "治疗项目不存在")
	case errors.Is(err, service.ErrTreatmentHasBooking):
		response.Conflict(c, 23003, "该治疗项目仍有未完成的预约，无法删除")
	case errors.Is(err, service.ErrInvalidPrice):
		response.BadRequest(c, 23004, "价格不能为负数")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, pkgerrors.ErrOptimisticLock.Error())
	default:
		response.InternalError(c)
	}
}
