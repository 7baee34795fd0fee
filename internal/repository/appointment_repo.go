package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"clinica-estetica/internal/model"
	pkgerrors "clinica-estetica/pkg/errors"
)

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	List(ctx context.Context, filter *model.AppointmentFilter, offset, limit int) ([]model.Appointment, int64, error)
	// ListAll 不分页，按开始时间升序，预加载关联实体
	ListAll(ctx context.Context, filter *model.AppointmentFilter) ([]model.Appointment, error)
	// ListForConflict 指定日期内与诊室或医生相关的未取消预约
	ListForConflict(ctx context.Context, date time.Time, roomID, doctorID string) ([]model.Appointment, error)
	// ListByDoctorOnDate 指定医生指定日期的未取消预约（任意诊室）
	ListByDoctorOnDate(ctx context.Context, doctorID string, date time.Time) ([]model.Appointment, error)
	// CountActiveFrom 统计 from 之后仍未结束的进行中预约，column 取 doctor_id / room_id / patient_id / treatment_id
	CountActiveFrom(ctx context.Context, column, id string, from time.Time) (int64, error)
	Update(ctx context.Context, appt *model.Appointment) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// LockResources 在当前事务内获取 advisory lock，事务结束自动释放
	LockResources(ctx context.Context, keys ...string) error
}

// 活跃状态：占用时间段且未结束流程
var activeStatuses = []model.AppointmentStatus{
	model.StatusScheduled,
	model.StatusConfirmed,
	model.StatusInProgress,
}

type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo 创建 AppointmentRepository 实例
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	return translateError(r.db.WithContext(ctx).Omit("Patient", "Doctor", "Room", "Treatment").Create(appt).Error)
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.preload(r.db.WithContext(ctx)).
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepo) List(ctx context.Context, filter *model.AppointmentFilter, offset, limit int) ([]model.Appointment, int64, error) {
	var appts []model.Appointment
	var total int64

	db := applyFilter(r.db.WithContext(ctx).Model(&model.Appointment{}), filter)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.preload(db).
		Offset(offset).Limit(limit).
		Order("start_time DESC").
		Find(&appts).Error; err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

func (r *appointmentRepo) ListAll(ctx context.Context, filter *model.AppointmentFilter) ([]model.Appointment, error) {
	var appts []model.Appointment
	db := applyFilter(r.db.WithContext(ctx).Model(&model.Appointment{}), filter)
	err := r.preload(db).
		Order("start_time ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) ListForConflict(ctx context.Context, date time.Time, roomID, doctorID string) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Where("date = ?", dateOnly(date)).
		Where("(room_id = ? OR doctor_id = ?)", roomID, doctorID).
		Where("status <> ?", model.StatusCancelled).
		Order("start_time ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) ListByDoctorOnDate(ctx context.Context, doctorID string, date time.Time) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Where("date = ? AND doctor_id = ?", dateOnly(date), doctorID).
		Where("status <> ?", model.StatusCancelled).
		Order("start_time ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) CountActiveFrom(ctx context.Context, column, id string, from time.Time) (int64, error) {
	switch column {
	case "doctor_id", "room_id", "patient_id", "treatment_id":
	default:
		return 0, gorm.ErrInvalidField
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where(column+" = ?", id).
		Where("status IN ?", activeStatuses).
		Where("end_time > ?", from).
		Count(&count).Error
	return count, err
}

func (r *appointmentRepo) Update(ctx context.Context, appt *model.Appointment) error {
	oldVersion := appt.Version
	result := r.db.WithContext(ctx).
		Model(appt).
		Where("appointment_id = ? AND version = ?", appt.AppointmentID, oldVersion).
		Updates(map[string]interface{}{
			"patient_id":        appt.PatientID,
			"doctor_id":         appt.DoctorID,
			"room_id":           appt.RoomID,
			"treatment_id":      appt.TreatmentID,
			"date":              dateOnly(appt.Date),
			"start_time":        appt.StartTime,
			"end_time":          appt.EndTime,
			"status":            appt.Status,
			"observations":      appt.Observations,
			"confirmed":         appt.Confirmed,
			"confirmation_date": appt.ConfirmationDate,
			"updated_by":        appt.UpdatedBy,
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	appt.Version = oldVersion + 1
	return nil
}

func (r *appointmentRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("appointment_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *appointmentRepo) LockResources(ctx context.Context, keys ...string) error {
	// 固定加锁顺序，避免两个事务交叉等待
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k != "" && !seen[k] {
			seen[k] = true
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", k).Error; err != nil {
			return err
		}
	}
	return nil
}

// ── 内部辅助 ──

func (r *appointmentRepo) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Patient").
		Preload("Doctor").
		Preload("Room").
		Preload("Treatment")
}

func applyFilter(db *gorm.DB, filter *model.AppointmentFilter) *gorm.DB {
	if filter == nil {
		return db
	}
	if filter.From != nil {
		db = db.Where("date >= ?", dateOnly(*filter.From))
	}
	if filter.To != nil {
		db = db.Where("date <= ?", dateOnly(*filter.To))
	}
	if filter.DoctorID != "" {
		db = db.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.RoomID != "" {
		db = db.Where("room_id = ?", filter.RoomID)
	}
	if filter.PatientID != "" {
		db = db.Where("patient_id = ?", filter.PatientID)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	return db
}

// dateOnly 以 "YYYY-MM-DD" 传参，避免 DATE 列受会话时区影响
func dateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
