package model

import "time"

// Appointment 预约表 — 对应 appointments
// 不变量：StartTime < EndTime，Date 为 StartTime 在诊所时区的日历日
type Appointment struct {
	AppointmentID    string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	PatientID        string            `gorm:"type:uuid;not null;index"                       json:"patient_id"`
	DoctorID         string            `gorm:"type:uuid;not null"                             json:"doctor_id"`
	RoomID           string            `gorm:"type:uuid;not null"                             json:"room_id"`
	TreatmentID      string            `gorm:"type:uuid;not null"                             json:"treatment_id"`
	Date             time.Time         `gorm:"type:date;not null"                             json:"date"`
	StartTime        time.Time         `gorm:"type:timestamptz;not null"                      json:"start_time"`
	EndTime          time.Time         `gorm:"type:timestamptz;not null"                      json:"end_time"`
	Status           AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled'"  json:"status"`
	Observations     string            `gorm:"type:text"                                      json:"observations,omitempty"`
	Confirmed        bool              `gorm:"not null;default:false"                         json:"confirmed"`
	ConfirmationDate *time.Time        `gorm:"type:timestamptz"                               json:"confirmation_date,omitempty"`
	VersionedModel

	// 关联
	Patient   *Patient   `gorm:"foreignKey:PatientID;references:PatientID"     json:"patient,omitempty"`
	Doctor    *Doctor    `gorm:"foreignKey:DoctorID;references:DoctorID"       json:"doctor,omitempty"`
	Room      *Room      `gorm:"foreignKey:RoomID;references:RoomID"           json:"room,omitempty"`
	Treatment *Treatment `gorm:"foreignKey:TreatmentID;references:TreatmentID" json:"treatment,omitempty"`
}

// TableName 指定表名
func (Appointment) TableName() string { return "appointments" }

// AppointmentFilter 预约列表查询条件（零值字段不参与过滤）
type AppointmentFilter struct {
	From      *time.Time // Date >= From
	To        *time.Time // Date <= To
	DoctorID  string
	RoomID    string
	PatientID string
	Statuses  []AppointmentStatus
}
