package dto

// ── 诊所配置模块 DTO ──

// UpdateSystemConfigRequest 更新诊所配置请求
type UpdateSystemConfigRequest struct {
	ClinicName              *string `json:"clinic_name"               binding:"omitempty,min=1,max=150"`
	StartHour               *int    `json:"start_hour"                binding:"omitempty,min=0,max=23"`
	EndHour                 *int    `json:"end_hour"                  binding:"omitempty,min=1,max=24"`
	SlotGranularityMinutes  *int    `json:"slot_granularity_minutes"  binding:"omitempty,min=5,max=240"`
	DefaultTreatmentMinutes *int    `json:"default_treatment_minutes" binding:"omitempty,min=5,max=480"`
	ReminderEnabled         *bool   `json:"reminder_enabled"`
}

// SystemConfigResponse 诊所配置响应
type SystemConfigResponse struct {
	ClinicName              string `json:"clinic_name"`
	Timezone                string `json:"timezone"`
	StartHour               int    `json:"start_hour"`
	EndHour                 int    `json:"end_hour"`
	SlotGranularityMinutes  int    `json:"slot_granularity_minutes"`
	DefaultTreatmentMinutes int    `json:"default_treatment_minutes"`
	ReminderEnabled         bool   `json:"reminder_enabled"`
	ReminderRunAt           string `json:"reminder_run_at"`
	UpdatedAt               string `json:"updated_at,omitempty"`
}
