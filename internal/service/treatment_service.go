package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
)

// ── 治疗项目模块业务错误 ──

var (
	ErrTreatmentNotFound   = errors.New("治疗项目不存在")
	ErrTreatmentInactive   = errors.New("治疗项目已停用")
	ErrTreatmentHasBooking = errors.New("该治疗项目仍有未完成的预约，无法删除")
	ErrInvalidPrice        = errors.New("价格不能为负数")
)

// TreatmentService 治疗项目业务接口
type TreatmentService interface {
	Create(ctx context.Context, req *dto.CreateTreatmentRequest, callerID string) (*dto.TreatmentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TreatmentResponse, error)
	List(ctx context.Context, req *dto.CatalogListRequest) ([]dto.TreatmentResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateTreatmentRequest, callerID string) (*dto.TreatmentResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type treatmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTreatmentService 创建 TreatmentService 实例
func NewTreatmentService(repo *repository.Repository, logger *zap.Logger) TreatmentService {
	return &treatmentService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *treatmentService) Create(ctx context.Context, req *dto.CreateTreatmentRequest, callerID string) (*dto.TreatmentResponse, error) {
	price := decimal.Zero
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		price = req.Price.Round(2)
	}

	treatment := &model.Treatment{
		Name:           req.Name,
		Description:    req.Description,
		Duration:       req.Duration,
		Price:          price,
		IsActive:       true,
		VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}}},
	}
	if err := s.repo.Treatment.Create(ctx, treatment); err != nil {
		s.logger.Error("创建治疗项目失败", zap.Error(err))
		return nil, err
	}
	return toTreatmentResponse(treatment), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *treatmentService) GetByID(ctx context.Context, id string) (*dto.TreatmentResponse, error) {
	treatment, err := s.getTreatment(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTreatmentResponse(treatment), nil
}

// ────────────────────── List ──────────────────────

func (s *treatmentService) List(ctx context.Context, req *dto.CatalogListRequest) ([]dto.TreatmentResponse, int64, error) {
	filters := &repository.CatalogFilters{Keyword: req.Keyword, IncludeInactive: req.IncludeInactive}
	treatments, total, err := s.repo.Treatment.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出治疗项目失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TreatmentResponse, 0, len(treatments))
	for i := range treatments {
		result = append(result, *toTreatmentResponse(&treatments[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *treatmentService) Update(ctx context.Context, id string, req *dto.UpdateTreatmentRequest, callerID string) (*dto.TreatmentResponse, error) {
	treatment, err := s.getTreatment(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		treatment.Name = *req.Name
	}
	if req.Description != nil {
		treatment.Description = *req.Description
	}
	if req.Duration != nil {
		treatment.Duration = req.Duration
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		treatment.Price = req.Price.Round(2)
	}
	if req.IsActive != nil {
		treatment.IsActive = *req.IsActive
	}
	treatment.UpdatedBy = &callerID

	if err := s.repo.Treatment.Update(ctx, treatment); err != nil {
		s.logger.Error("更新治疗项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toTreatmentResponse(treatment), nil
}

// ────────────────────── Delete ──────────────────────

func (s *treatmentService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.getTreatment(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.Appointment.CountActiveFrom(ctx, "treatment_id", id, time.Now())
	if err != nil {
		s.logger.Error("统计治疗项目未完成预约失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrTreatmentHasBooking
	}

	if err := s.repo.Treatment.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除治疗项目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *treatmentService) getTreatment(ctx context.Context, id string) (*model.Treatment, error) {
	treatment, err := s.repo.Treatment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTreatmentNotFound
		}
		s.logger.Error("查询治疗项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return treatment, nil
}

func toTreatmentResponse(t *model.Treatment) *dto.TreatmentResponse {
	return &dto.TreatmentResponse{
		ID:          t.TreatmentID,
		Name:        t.Name,
		Description: t.Description,
		Duration:    t.Duration,
		Price:       t.Price,
		IsActive:    t.IsActive,
		Version:     t.Version,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}
