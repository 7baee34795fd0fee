package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/model"
	"clinica-estetica/internal/service"
	"clinica-estetica/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDailyAgenda 导出当日全部预约
// GET /api/v1/export/agenda?date=2030-03-15
func (h *ExportHandler) ExportDailyAgenda(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.BadRequest(c, 10001, "date 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.DailyAgenda(c.Request.Context(), date)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportDoctorAgenda 导出医生日程（iCalendar），医生账号只能导出本人
// GET /api/v1/export/doctors/:id/agenda.ics?from=&to=
func (h *ExportHandler) ExportDoctorAgenda(c *gin.Context) {
	scope, ok := MustGetScope(c)
	if !ok {
		return
	}

	doctorID := c.Param("id")
	if scope.Role == model.RoleDoctor && scope.DoctorID != doctorID {
		response.Forbidden(c, 10003, "只能导出本人日程")
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		response.BadRequest(c, 10001, "from 与 to 不能为空")
		return
	}

	data, filename, err := h.exportSvc.DoctorAgenda(c.Request.Context(), doctorID, from, to)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeICS, data)
}

// writeAttachment 写出下载响应
func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportRangeTooWide):
		response.BadRequest(c, 31001, service.ErrExportRangeTooWide.Error())
	case errors.Is(err, service.ErrInvalidDateTime):
		response.BadRequest(c, 30004, service.ErrInvalidDateTime.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 30005, service.ErrInvalidDateRange.Error())
	case errors.Is(err, service.ErrDoctorNotFound):
		response.NotFound(c, 21001, "医生不存在")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
