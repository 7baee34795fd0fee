package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinica-estetica/internal/model"
)

// ReminderRepository 预约提醒记录数据访问接口
type ReminderRepository interface {
	// CreateIfAbsent 按 (appointment_id, channel) 幂等写入，返回是否新建
	CreateIfAbsent(ctx context.Context, reminder *model.AppointmentReminder) (bool, error)
	GetByAppointment(ctx context.Context, appointmentID, channel string) (*model.AppointmentReminder, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

type reminderRepo struct {
	db *gorm.DB
}

// NewReminderRepo 创建 ReminderRepository 实例
func NewReminderRepo(db *gorm.DB) ReminderRepository {
	return &reminderRepo{db: db}
}

func (r *reminderRepo) CreateIfAbsent(ctx context.Context, reminder *model.AppointmentReminder) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit("Appointment").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "appointment_id"}, {Name: "channel"}},
			DoNothing: true,
		}).
		Create(reminder)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *reminderRepo) GetByAppointment(ctx context.Context, appointmentID, channel string) (*model.AppointmentReminder, error) {
	var reminder model.AppointmentReminder
	err := r.db.WithContext(ctx).
		Where("appointment_id = ? AND channel = ?", appointmentID, channel).
		First(&reminder).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *reminderRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.AppointmentReminder{}).
		Where("reminder_id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.ReminderPublished,
			"published_at": at,
			"last_error":   "",
			"updated_at":   gorm.Expr("NOW()"),
		}).Error
}

func (r *reminderRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	return r.db.WithContext(ctx).
		Model(&model.AppointmentReminder{}).
		Where("reminder_id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.ReminderFailed,
			"last_error": reason,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}
