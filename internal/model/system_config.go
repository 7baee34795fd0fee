package model

// SystemConfig 诊所配置表 — 对应 system_config（单行强类型）
type SystemConfig struct {
	Singleton               bool   `gorm:"primaryKey;default:true"                         json:"-"`
	ClinicName              string `gorm:"type:varchar(150);not null;default:'Clínica'"    json:"clinic_name"`
	StartHour               int    `gorm:"type:smallint;not null;default:9"                json:"start_hour"`
	EndHour                 int    `gorm:"type:smallint;not null;default:20"               json:"end_hour"`
	SlotGranularityMinutes  int    `gorm:"type:smallint;not null;default:30"               json:"slot_granularity_minutes"`
	DefaultTreatmentMinutes int    `gorm:"type:smallint;not null;default:60"               json:"default_treatment_minutes"`
	ReminderEnabled         bool   `gorm:"not null;default:true"                           json:"reminder_enabled"`
	BaseModel
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }
