package repository

import (
	"context"

	"gorm.io/gorm"

	"clinica-estetica/internal/model"
	pkgerrors "clinica-estetica/pkg/errors"
)

// DoctorRepository 医生数据访问接口
type DoctorRepository interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	GetByID(ctx context.Context, id string) (*model.Doctor, error)
	List(ctx context.Context, filters *CatalogFilters, offset, limit int) ([]model.Doctor, int64, error)
	Update(ctx context.Context, doctor *model.Doctor) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

// CatalogFilters 医生 / 诊室 / 治疗项目列表通用过滤条件
type CatalogFilters struct {
	Keyword         string
	IncludeInactive bool
}

type doctorRepo struct {
	db *gorm.DB
}

// NewDoctorRepo 创建 DoctorRepository 实例
func NewDoctorRepo(db *gorm.DB) DoctorRepository {
	return &doctorRepo{db: db}
}

func (r *doctorRepo) Create(ctx context.Context, doctor *model.Doctor) error {
	return translateError(r.db.WithContext(ctx).Create(doctor).Error)
}

func (r *doctorRepo) GetByID(ctx context.Context, id string) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", id).
		First(&doctor).Error
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepo) List(ctx context.Context, filters *CatalogFilters, offset, limit int) ([]model.Doctor, int64, error) {
	var doctors []model.Doctor
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Doctor{})
	if filters != nil {
		if !filters.IncludeInactive {
			db = db.Where("is_active = ?", true)
		}
		if filters.Keyword != "" {
			kw := keywordPattern(filters.Keyword)
			db = db.Where("first_name ILIKE ? OR last_name ILIKE ? OR specialty ILIKE ?", kw, kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).
		Order("last_name ASC, first_name ASC").
		Find(&doctors).Error; err != nil {
		return nil, 0, err
	}
	return doctors, total, nil
}

func (r *doctorRepo) Update(ctx context.Context, doctor *model.Doctor) error {
	oldVersion := doctor.Version
	result := r.db.WithContext(ctx).
		Model(doctor).
		Where("doctor_id = ? AND version = ?", doctor.DoctorID, oldVersion).
		Updates(map[string]interface{}{
			"first_name":     doctor.FirstName,
			"last_name":      doctor.LastName,
			"specialty":      doctor.Specialty,
			"license_number": doctor.LicenseNumber,
			"phone":          doctor.Phone,
			"email":          doctor.Email,
			"is_active":      doctor.IsActive,
			"updated_by":     doctor.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	doctor.Version = oldVersion + 1
	return nil
}

func (r *doctorRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Doctor{}).
		Where("doctor_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
