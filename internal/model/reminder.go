package model

import "time"

// 提醒发布状态
const (
	ReminderQueued    = "queued"
	ReminderPublished = "published"
	ReminderFailed    = "failed"
)

// AppointmentReminder 预约提醒记录表 — 对应 appointment_reminders
// (appointment_id, channel) 唯一，保证每日任务重复执行时不重复提醒
type AppointmentReminder struct {
	ReminderID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"reminder_id"`
	AppointmentID string     `gorm:"type:uuid;not null"                             json:"appointment_id"`
	PatientID     string     `gorm:"type:uuid;not null"                             json:"patient_id"`
	Channel       string     `gorm:"type:varchar(20);not null;default:'whatsapp'"   json:"channel"`
	Status        string     `gorm:"type:varchar(20);not null;default:'queued'"     json:"status"` // queued | published | failed
	PublishedAt   *time.Time `gorm:"type:timestamptz"                               json:"published_at,omitempty"`
	LastError     string     `gorm:"type:varchar(500)"                              json:"last_error,omitempty"`
	BaseModel

	// 关联
	Appointment *Appointment `gorm:"foreignKey:AppointmentID;references:AppointmentID" json:"appointment,omitempty"`
}

// TableName 指定表名
func (AppointmentReminder) TableName() string { return "appointment_reminders" }
