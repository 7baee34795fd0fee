package repository

import (
	"context"

	"gorm.io/gorm"

	"clinica-estetica/internal/model"
	pkgerrors "clinica-estetica/pkg/errors"
)

// PatientRepository 患者数据访问接口
type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	BatchCreate(ctx context.Context, patients []model.Patient) error
	GetByID(ctx context.Context, id string) (*model.Patient, error)
	GetByDocumentID(ctx context.Context, documentID string) (*model.Patient, error)
	List(ctx context.Context, filters *PatientListFilters, offset, limit int) ([]model.Patient, int64, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

// PatientListFilters 患者列表过滤条件
type PatientListFilters struct {
	Keyword        string // 匹配姓名 / 证件号 / 电话
	IncludeBlocked bool
}

type patientRepo struct {
	db *gorm.DB
}

// NewPatientRepo 创建 PatientRepository 实例
func NewPatientRepo(db *gorm.DB) PatientRepository {
	return &patientRepo{db: db}
}

func (r *patientRepo) Create(ctx context.Context, patient *model.Patient) error {
	return translateError(r.db.WithContext(ctx).Create(patient).Error)
}

func (r *patientRepo) BatchCreate(ctx context.Context, patients []model.Patient) error {
	if len(patients) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).CreateInBatches(&patients, 100).Error)
}

func (r *patientRepo) GetByID(ctx context.Context, id string) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", id).
		First(&patient).Error
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepo) GetByDocumentID(ctx context.Context, documentID string) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&patient).Error
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepo) List(ctx context.Context, filters *PatientListFilters, offset, limit int) ([]model.Patient, int64, error) {
	var patients []model.Patient
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Patient{})
	if filters != nil {
		if !filters.IncludeBlocked {
			db = db.Where("is_blocked = ?", false)
		}
		if filters.Keyword != "" {
			kw := keywordPattern(filters.Keyword)
			db = db.Where(
				"first_name ILIKE ? OR last_name ILIKE ? OR document_id ILIKE ? OR phone ILIKE ?",
				kw, kw, kw, kw,
			)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).
		Order("last_name ASC, first_name ASC").
		Find(&patients).Error; err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *patientRepo) Update(ctx context.Context, patient *model.Patient) error {
	oldVersion := patient.Version
	result := r.db.WithContext(ctx).
		Model(patient).
		Where("patient_id = ? AND version = ?", patient.PatientID, oldVersion).
		Updates(map[string]interface{}{
			"first_name":     patient.FirstName,
			"last_name":      patient.LastName,
			"document_id":    patient.DocumentID,
			"birth_date":     patient.BirthDate,
			"phone":          patient.Phone,
			"email":          patient.Email,
			"address":        patient.Address,
			"allergies":      patient.Allergies,
			"notes":          patient.Notes,
			"is_blocked":     patient.IsBlocked,
			"blocked_reason": patient.BlockedReason,
			"updated_by":     patient.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	patient.Version = oldVersion + 1
	return nil
}

func (r *patientRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Patient{}).
		Where("patient_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
