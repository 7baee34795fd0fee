package repository

import (
	"context"

	"gorm.io/gorm"

	"clinica-estetica/internal/model"
	pkgerrors "clinica-estetica/pkg/errors"
)

// TreatmentRepository 治疗项目数据访问接口
type TreatmentRepository interface {
	Create(ctx context.Context, treatment *model.Treatment) error
	GetByID(ctx context.Context, id string) (*model.Treatment, error)
	List(ctx context.Context, filters *CatalogFilters, offset, limit int) ([]model.Treatment, int64, error)
	Update(ctx context.Context, treatment *model.Treatment) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type treatmentRepo struct {
	db *gorm.DB
}

// NewTreatmentRepo 创建 TreatmentRepository 实例
func NewTreatmentRepo(db *gorm.DB) TreatmentRepository {
	return &treatmentRepo{db: db}
}

func (r *treatmentRepo) Create(ctx context.Context, treatment *model.Treatment) error {
	return r.db.WithContext(ctx).Create(treatment).Error
}

func (r *treatmentRepo) GetByID(ctx context.Context, id string) (*model.Treatment, error) {
	var treatment model.Treatment
	err := r.db.WithContext(ctx).
		Where("treatment_id = ?", id).
		First(&treatment).Error
	if err != nil {
		return nil, err
	}
	return &treatment, nil
}

func (r *treatmentRepo) List(ctx context.Context, filters *CatalogFilters, offset, limit int) ([]model.Treatment, int64, error) {
	var treatments []model.Treatment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Treatment{})
	if filters != nil {
		if !filters.IncludeInactive {
			db = db.Where("is_active = ?", true)
		}
		if filters.Keyword != "" {
			kw := keywordPattern(filters.Keyword)
			db = db.Where("name ILIKE ? OR description ILIKE ?", kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).
		Order("name ASC").
		Find(&treatments).Error; err != nil {
		return nil, 0, err
	}
	return treatments, total, nil
}

func (r *treatmentRepo) Update(ctx context.Context, treatment *model.Treatment) error {
	oldVersion := treatment.Version
	result := r.db.WithContext(ctx).
		Model(treatment).
		Where("treatment_id = ? AND version = ?", treatment.TreatmentID, oldVersion).
		Updates(map[string]interface{}{
			"name":        treatment.Name,
			"description": treatment.Description,
			"duration":    treatment.Duration,
			"price":       treatment.Price,
			"is_active":   treatment.IsActive,
			"updated_by":  treatment.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	treatment.Version = oldVersion + 1
	return nil
}

func (r *treatmentRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Treatment{}).
		Where("treatment_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
