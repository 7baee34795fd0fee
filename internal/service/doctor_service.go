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
)

// ── 医生模块业务错误 ──

var (
	ErrDoctorNotFound   = errors.New("医生不存在")
	ErrDoctorInactive   = errors.New("医生已停诊")
	ErrDoctorHasBooking = errors.New("该医生仍有未完成的预约，无法删除")
)

// DoctorService 医生业务接口
type DoctorService interface {
	Create(ctx context.Context, req *dto.CreateDoctorRequest, callerID string) (*dto.DoctorResponse, error)
	GetByID(ctx context.Context, id string) (*dto.DoctorResponse, error)
	List(ctx context.Context, req *dto.CatalogListRequest) ([]dto.DoctorResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateDoctorRequest, callerID string) (*dto.DoctorResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type doctorService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDoctorService 创建 DoctorService 实例
func NewDoctorService(repo *repository.Repository, logger *zap.Logger) DoctorService {
	return &doctorService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *doctorService) Create(ctx context.Context, req *dto.CreateDoctorRequest, callerID string) (*dto.DoctorResponse, error) {
	doctor := &model.Doctor{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Specialty:      req.Specialty,
		LicenseNumber:  req.LicenseNumber,
		Phone:          req.Phone,
		Email:          req.Email,
		IsActive:       true,
		VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}}},
	}

	if err := s.repo.Doctor.Create(ctx, doctor); err != nil {
		s.logger.Error("创建医生失败", zap.Error(err))
		return nil, err
	}
	return toDoctorResponse(doctor), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *doctorService) GetByID(ctx context.Context, id string) (*dto.DoctorResponse, error) {
	doctor, err := s.getDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDoctorResponse(doctor), nil
}

// ────────────────────── List ──────────────────────

func (s *doctorService) List(ctx context.Context, req *dto.CatalogListRequest) ([]dto.DoctorResponse, int64, error) {
	filters := &repository.CatalogFilters{Keyword: req.Keyword, IncludeInactive: req.IncludeInactive}
	doctors, total, err := s.repo.Doctor.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出医生失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.DoctorResponse, 0, len(doctors))
	for i := range doctors {
		result = append(result, *toDoctorResponse(&doctors[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *doctorService) Update(ctx context.Context, id string, req *dto.UpdateDoctorRequest, callerID string) (*dto.DoctorResponse, error) {
	doctor, err := s.getDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		doctor.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		doctor.LastName = *req.LastName
	}
	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}
	if req.LicenseNumber != nil {
		doctor.LicenseNumber = *req.LicenseNumber
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}
	if req.Email != nil {
		doctor.Email = *req.Email
	}
	if req.IsActive != nil {
		doctor.IsActive = *req.IsActive
	}
	doctor.UpdatedBy = &callerID

	if err := s.repo.Doctor.Update(ctx, doctor); err != nil {
		s.logger.Error("更新医生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toDoctorResponse(doctor), nil
}

// ────────────────────── Delete ──────────────────────

func (s *doctorService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.getDoctor(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.Appointment.CountActiveFrom(ctx, "doctor_id", id, time.Now())
	if err != nil {
		s.logger.Error("统计医生未完成预约失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrDoctorHasBooking
	}

	if err := s.repo.Doctor.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除医生失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *doctorService) getDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	doctor, err := s.repo.Doctor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("查询医生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return doctor, nil
}

func toDoctorResponse(d *model.Doctor) *dto.DoctorResponse {
	return &dto.DoctorResponse{
		ID:            d.DoctorID,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		FullName:      d.FullName(),
		Specialty:     d.Specialty,
		LicenseNumber: d.LicenseNumber,
		Phone:         d.Phone,
		Email:         d.Email,
		IsActive:      d.IsActive,
		Version:       d.Version,
		CreatedAt:     formatTime(d.CreatedAt),
		UpdatedAt:     formatTime(d.UpdatedAt),
	}
}
