package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/service"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/response"
)

// RoomHandler 诊室模块 HTTP 处理器
type RoomHandler struct {
	roomSvc service.RoomService
}

// NewRoomHandler 创建 RoomHandler
func NewRoomHandler(roomSvc service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// CreateRoom 创建诊室
// POST /api/v1/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.roomSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.Created(c, result)
}

// GetRoom 获取诊室详情
// GET /api/v1/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	result, err := h.roomSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, result)
}

// ListRooms 诊室列表
// GET /api/v1/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var req dto.CatalogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.roomSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UpdateRoom 更新诊室
// PUT /api/v1/rooms/:id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.roomSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteRoom 删除诊室
// DELETE /api/v1/rooms/:id
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.roomSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleRoomError 统一处理诊室模块业务错误
func (h *RoomHandler) handleRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 22001, "诊室不存在")
	case errors.Is(err, service.ErrRoomNameExists):
		response.Conflict(c, 22003, "诊室名称已存在")
	case errors.Is(err, service.ErrRoomHasBooking):
		response.Conflict(c, 22004, "该诊室仍有未完成的预约，无法删除")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, pkgerrors.ErrOptimisticLock.Error())
	default:
		response.InternalError(c)
	}
}
