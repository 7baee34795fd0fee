package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/service"
	"clinica-estetica/pkg/response"
)

// ReminderHandler 预约提醒 HTTP 处理器
type ReminderHandler struct {
	reminderSvc service.ReminderService
}

// NewReminderHandler 创建 ReminderHandler
func NewReminderHandler(reminderSvc service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderSvc: reminderSvc}
}

// RunReminders 手动触发提醒任务，date 为空时取明天
// POST /api/v1/reminders/run?date=2030-03-15
func (h *ReminderHandler) RunReminders(c *gin.Context) {
	result, err := h.reminderSvc.Run(c.Request.Context(), c.Query("date"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateTime) {
			response.BadRequest(c, 30004, service.ErrInvalidDateTime.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
