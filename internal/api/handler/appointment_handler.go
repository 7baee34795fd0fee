package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/service"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/response"
)

// AppointmentHandler 预约模块 HTTP 处理器
type AppointmentHandler struct {
	appointmentSvc service.AppointmentService
}

// NewAppointmentHandler 创建 AppointmentHandler
func NewAppointmentHandler(appointmentSvc service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentSvc: appointmentSvc}
}

// ────────────────────── 预约 CRUD ──────────────────────

// CreateAppointment 新建预约（含诊室 / 医生冲突检测）
// POST /api/v1/appointments
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.appointmentSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.Created(c, result)
}

// GetAppointment 获取预约详情
// GET /api/v1/appointments/:id
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	result, ok := h.loadVisible(c, scope)
	if !ok {
		return
	}

	response.OK(c, result)
}

// ListAppointments 预约列表；医生账号只能看到本人的预约
// GET /api/v1/appointments
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	var req dto.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	list, total, err := h.appointmentSvc.List(c.Request.Context(), &req, scope)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UpdateAppointment 修改 / 改期预约
// PATCH /api/v1/appointments/:id
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req dto.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.appointmentSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteAppointment 删除已结束或已过期的预约
// DELETE /api/v1/appointments/:id
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.appointmentSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 状态流转 ──────────────────────

// ChangeStatus 变更预约状态；医生只能变更本人的预约
// PATCH /api/v1/appointments/:id/status
func (h *AppointmentHandler) ChangeStatus(c *gin.Context) {
	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}
	if _, ok := h.loadVisible(c, scope); !ok {
		return
	}

	result, err := h.appointmentSvc.ChangeStatus(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, result)
}

// ConfirmAppointment 标记患者已确认到诊
// POST /api/v1/appointments/:id/confirm
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.appointmentSvc.Confirm(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 排期查询 ──────────────────────

// CheckAvailability 检查诊室与医生在指定时段是否空闲
// POST /api/v1/appointments/check-availability
func (h *AppointmentHandler) CheckAvailability(c *gin.Context) {
	var req dto.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.appointmentSvc.CheckAvailability(c.Request.Context(), &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, result)
}

// AvailableSlots 医生某日的可预约时段
// GET /api/v1/appointments/available-slots
func (h *AppointmentHandler) AvailableSlots(c *gin.Context) {
	var req dto.AvailableSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	slots, err := h.appointmentSvc.AvailableSlots(c.Request.Context(), &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, slots)
}

// Calendar 日历视图事件
// GET /api/v1/appointments/calendar
func (h *AppointmentHandler) Calendar(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	events, err := h.appointmentSvc.Calendar(c.Request.Context(), &req, scope)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, events)
}

// loadVisible 读取预约并校验医生账号的可见范围；不可见时按不存在处理
func (h *AppointmentHandler) loadVisible(c *gin.Context, scope service.AccessScope) (*dto.AppointmentResponse, bool) {
	appt, err := h.appointmentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAppointmentError(c, err)
		return nil, false
	}
	if scope.Role == model.RoleDoctor && (appt.Doctor == nil || appt.Doctor.ID != scope.DoctorID) {
		response.NotFound(c, 30001, "预约不存在")
		return nil, false
	}
	return appt, true
}

// handleAppointmentError 统一处理预约模块业务错误
func (h *AppointmentHandler) handleAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 30001, "预约不存在")
	case errors.Is(err, service.ErrAppointmentConflict):
		response.Conflict(c, 30002, service.ErrAppointmentConflict.Error())
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 30003, service.ErrInvalidTimeRange.Error())
	case errors.Is(err, service.ErrInvalidDateTime):
		response.BadRequest(c, 30004, service.ErrInvalidDateTime.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 30005, service.ErrInvalidDateRange.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 30006, service.ErrInvalidStatus.Error())
	case errors.Is(err, service.ErrInvalidStatusTransition):
		response.BadRequest(c, 30007, service.ErrInvalidStatusTransition.Error())
	case errors.Is(err, service.ErrAppointmentClosed):
		response.BadRequest(c, 30008, service.ErrAppointmentClosed.Error())
	case errors.Is(err, service.ErrAppointmentNotDeletable):
		response.BadRequest(c, 30009, service.ErrAppointmentNotDeletable.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 30010, pkgerrors.ErrOptimisticLock.Error())

	// 关联资源
	case errors.Is(err, service.ErrPatientNotFound):
		response.NotFound(c, 24001, "患者不存在")
	case errors.Is(err, service.ErrPatientBlocked):
		response.BadRequest(c, 24002, service.ErrPatientBlocked.Error())
	case errors.Is(err, service.ErrDoctorNotFound):
		response.NotFound(c, 21001, "医生不存在")
	case errors.Is(err, service.ErrDoctorInactive):
		response.BadRequest(c, 21002, service.ErrDoctorInactive.Error())
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 22001, "诊室不存在")
	case errors.Is(err, service.ErrRoomInactive):
		response.BadRequest(c, 22002, service.ErrRoomInactive.Error())
	case errors.Is(err, service.ErrTreatmentNotFound):
		response.NotFound(c, 23001, "治疗项目不存在")
	case errors.Is(err, service.ErrTreatmentInactive):
		response.BadRequest(c, 23002, service.ErrTreatmentInactive.Error())
	default:
		response.InternalError(c)
	}
}
