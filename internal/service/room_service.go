package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
	pkgerrors "clinica-estetica/pkg/errors"
)

// ── 诊室模块业务错误 ──

var (
	ErrRoomNotFound   = errors.New("诊室不存在")
	ErrRoomInactive   = errors.New("诊室已停用")
	ErrRoomNameExists = errors.New("诊室名称已存在")
	ErrRoomHasBooking = errors.New("该诊室仍有未完成的预约，无法删除")
)

// RoomService 诊室业务接口
type RoomService interface {
	Create(ctx context.Context, req *dto.CreateRoomRequest, callerID string) (*dto.RoomResponse, error)
	GetByID(ctx context.Context, id string) (*dto.RoomResponse, error)
	List(ctx context.Context, req *dto.CatalogListRequest) ([]dto.RoomResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateRoomRequest, callerID string) (*dto.RoomResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type roomService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, logger *zap.Logger) RoomService {
	return &roomService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *roomService) Create(ctx context.Context, req *dto.CreateRoomRequest, callerID string) (*dto.RoomResponse, error) {
	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	room := &model.Room{
		Name:           req.Name,
		Description:    req.Description,
		IsActive:       true,
		VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}}},
	}
	if err := s.repo.Room.Create(ctx, room); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrRoomNameExists
		}
		s.logger.Error("创建诊室失败", zap.Error(err))
		return nil, err
	}
	return toRoomResponse(room), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *roomService) GetByID(ctx context.Context, id string) (*dto.RoomResponse, error) {
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRoomResponse(room), nil
}

// ────────────────────── List ──────────────────────

func (s *roomService) List(ctx context.Context, req *dto.CatalogListRequest) ([]dto.RoomResponse, int64, error) {
	filters := &repository.CatalogFilters{Keyword: req.Keyword, IncludeInactive: req.IncludeInactive}
	rooms, total, err := s.repo.Room.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出诊室失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, *toRoomResponse(&rooms[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *roomService) Update(ctx context.Context, id string, req *dto.UpdateRoomRequest, callerID string) (*dto.RoomResponse, error) {
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != room.Name {
		if err := s.ensureNameFree(ctx, *req.Name, id); err != nil {
			return nil, err
		}
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = *req.Description
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	room.UpdatedBy = &callerID

	if err := s.repo.Room.Update(ctx, room); err != nil {
		s.logger.Error("更新诊室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toRoomResponse(room), nil
}

// ────────────────────── Delete ──────────────────────

func (s *roomService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.getRoom(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.Appointment.CountActiveFrom(ctx, "room_id", id, time.Now())
	if err != nil {
		s.logger.Error("统计诊室未完成预约失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrRoomHasBooking
	}

	if err := s.repo.Room.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除诊室失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *roomService) getRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询诊室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

func (s *roomService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.Room.GetByName(ctx, name)
	if err == nil && existing.RoomID != selfID {
		return ErrRoomNameExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func toRoomResponse(r *model.Room) *dto.RoomResponse {
	return &dto.RoomResponse{
		ID:          r.RoomID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		Version:     r.Version,
		CreatedAt:   formatTime(r.CreatedAt),
		UpdatedAt:   formatTime(r.UpdatedAt),
	}
}
