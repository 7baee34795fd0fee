package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/service"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/response"
)

// PatientHandler 患者模块 HTTP 处理器
type PatientHandler struct {
	patientSvc     service.PatientService
	appointmentSvc service.AppointmentService
}

// NewPatientHandler 创建 PatientHandler
func NewPatientHandler(patientSvc service.PatientService, appointmentSvc service.AppointmentService) *PatientHandler {
	return &PatientHandler{patientSvc: patientSvc, appointmentSvc: appointmentSvc}
}

// CreatePatient 登记患者
// POST /api/v1/patients
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req dto.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.patientSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePatientError(c, err)
		return
	}

	response.Created(c, result)
}

// GetPatient 获取患者详情
// GET /api/v1/patients/:id
func (h *PatientHandler) GetPatient(c *gin.Context) {
	result, err := h.patientSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handlePatientError(c, err)
		return
	}

	response.OK(c, result)
}

// ListPatients 患者列表，支持姓名 / 电话 / 证件号模糊搜索
// GET /api/v1/patients
func (h *PatientHandler) ListPatients(c *gin.Context) {
	var req dto.PatientListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.patientSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UpdatePatient 更新患者信息
// PUT /api/v1/patients/:id
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var req dto.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.patientSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePatientError(c, err)
		return
	}

	response.OK(c, result)
}

// DeletePatient 删除患者
// DELETE /api/v1/patients/:id
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.patientSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handlePatientError(c, err)
		return
	}

	response.OK(c, nil)
}

// BlockPatient 停用患者（停用后不可新建预约）
// POST /api/v1/patients/:id/block
func (h *PatientHandler) BlockPatient(c *gin.Context) {
	var req dto.BlockPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.patientSvc.Block(c.Request.Context(), c.Param("id"), req.Reason, callerID)
	if err != nil {
		h.handlePatientError(c, err)
		return
	}

	response.OK(c, result)
}

// UnblockPatient 恢复患者
// POST /api/v1/patients/:id/unblock
func (h *PatientHandler) UnblockPatient(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.patientSvc.Unblock(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handlePatientError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportPatients 通过 Excel 批量导入患者
// POST /api/v1/patients/import
//
// multipart/form-data, field="file"
func (h *PatientHandler) ImportPatients(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.patientSvc.ParseImportFile(file)
	if err != nil {
		h.handlePatientError(c, err)
		return
	}

	result, err := h.patientSvc.ImportPatients(c.Request.Context(), rows, callerID)
	if err != nil {
		h.handlePatientError(c, err)
		return
	}

	response.Created(c, result)
}

// GetPatientHistory 患者预约历史（按开始时间倒序）
// GET /api/v1/patients/:id/appointments
func (h *PatientHandler) GetPatientHistory(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	patientID := c.Param("id")
	if _, err := h.patientSvc.GetByID(c.Request.Context(), patientID); err != nil {
		h.handlePatientError(c, err)
		return
	}

	list, total, err := h.appointmentSvc.PatientHistory(c.Request.Context(), patientID, &page)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// handlePatientError 统一处理患者模块业务错误
func (h *PatientHandler) handlePatientError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPatientNotFound):
		response.NotFound(c, 24001, "患者不存在")
	case errors.Is(err, service.ErrPatientHasBooking):
		response.Conflict(c, 24003, "该患者仍有未完成的预约，无法删除")
	case errors.Is(err, service.ErrDocumentIDExists):
		response.Conflict(c, 24004, "证件号已登记")
	case errors.Is(err, service.ErrInvalidBirthDate):
		response.BadRequest(c, 24005, service.ErrInvalidBirthDate.Error())
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 24101, service.ErrImportNoData.Error())
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 24102, service.ErrImportTooManyRows.Error())
	case errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 24103, service.ErrImportBadHeader.Error())
	case errors.Is(err, service.ErrImportUnreadable):
		response.BadRequest(c, 24104, service.ErrImportUnreadable.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, pkgerrors.ErrOptimisticLock.Error())
	default:
		response.InternalError(c)
	}
}
