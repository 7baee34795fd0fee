package dto

// ── 预约模块 DTO ──
//
// 日期统一为 "YYYY-MM-DD"，时刻为诊所时区下的 "HH:MM"

// CreateAppointmentRequest 创建预约请求
// EndTime 为空时按治疗项目时长推算
type CreateAppointmentRequest struct {
	PatientID    string `json:"patient_id"   binding:"required,uuid"`
	DoctorID     string `json:"doctor_id"    binding:"required,uuid"`
	RoomID       string `json:"room_id"      binding:"required,uuid"`
	TreatmentID  string `json:"treatment_id" binding:"required,uuid"`
	Date         string `json:"date"         binding:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time"   binding:"required,datetime=15:04"`
	EndTime      string `json:"end_time"     binding:"omitempty,datetime=15:04"`
	Observations string `json:"observations" binding:"omitempty,max=4000"`
}

// UpdateAppointmentRequest 修改 / 改期预约请求
type UpdateAppointmentRequest struct {
	PatientID    *string `json:"patient_id"   binding:"omitempty,uuid"`
	DoctorID     *string `json:"doctor_id"    binding:"omitempty,uuid"`
	RoomID       *string `json:"room_id"      binding:"omitempty,uuid"`
	TreatmentID  *string `json:"treatment_id" binding:"omitempty,uuid"`
	Date         *string `json:"date"         binding:"omitempty,datetime=2006-01-02"`
	StartTime    *string `json:"start_time"   binding:"omitempty,datetime=15:04"`
	EndTime      *string `json:"end_time"     binding:"omitempty,datetime=15:04"`
	Observations *string `json:"observations" binding:"omitempty,max=4000"`
	Version      int     `json:"version"      binding:"omitempty,min=1"` // 非零时做乐观锁校验
}

// ChangeStatusRequest 变更预约状态请求
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=scheduled confirmed in_progress completed cancelled no_show"`
}

// CheckAvailabilityRequest 可用性检查请求
type CheckAvailabilityRequest struct {
	Date                 string `json:"date"                   binding:"required,datetime=2006-01-02"`
	StartTime            string `json:"start_time"             binding:"required,datetime=15:04"`
	EndTime              string `json:"end_time"               binding:"required,datetime=15:04"`
	RoomID               string `json:"room_id"                binding:"required,uuid"`
	DoctorID             string `json:"doctor_id"              binding:"required,uuid"`
	ExcludeAppointmentID string `json:"exclude_appointment_id" binding:"omitempty,uuid"`
}

// CheckAvailabilityResponse 可用性检查响应
type CheckAvailabilityResponse struct {
	Available bool              `json:"available"`
	Conflicts []ConflictSummary `json:"conflicts,omitempty"`
}

// ConflictSummary 冲突预约摘要
type ConflictSummary struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	DoctorID  string `json:"doctor_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

// AvailableSlotsRequest 可预约时段查询参数
type AvailableSlotsRequest struct {
	Date        string `form:"date"         binding:"required,datetime=2006-01-02"`
	DoctorID    string `form:"doctor_id"    binding:"required,uuid"`
	TreatmentID string `form:"treatment_id" binding:"omitempty,uuid"`
}

// SlotResponse 可预约时段
type SlotResponse struct {
	Start   string `json:"start"` // RFC3339
	End     string `json:"end"`
	Display string `json:"display"` // "HH:MM - HH:MM"
}

// AppointmentListRequest 预约列表查询参数
type AppointmentListRequest struct {
	PaginationRequest
	From      string `form:"from"       binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         binding:"omitempty,datetime=2006-01-02"`
	DoctorID  string `form:"doctor_id"  binding:"omitempty,uuid"`
	RoomID    string `form:"room_id"    binding:"omitempty,uuid"`
	PatientID string `form:"patient_id" binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=scheduled confirmed in_progress completed cancelled no_show"`
}

// CalendarRequest 日历视图查询参数
type CalendarRequest struct {
	From     string `form:"from"      binding:"required,datetime=2006-01-02"`
	To       string `form:"to"        binding:"required,datetime=2006-01-02"`
	DoctorID string `form:"doctor_id" binding:"omitempty,uuid"`
	RoomID   string `form:"room_id"   binding:"omitempty,uuid"`
}

// CalendarEvent 日历事件
type CalendarEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Status    string `json:"status"`
	Color     string `json:"color"`
	DoctorID  string `json:"doctor_id"`
	RoomID    string `json:"room_id"`
	PatientID string `json:"patient_id"`
}

// AppointmentResponse 预约详情响应
type AppointmentResponse struct {
	ID               string   `json:"id"`
	Patient          *RefItem `json:"patient"`
	Doctor           *RefItem `json:"doctor"`
	Room             *RefItem `json:"room"`
	Treatment        *RefItem `json:"treatment"`
	Date             string   `json:"date"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	Status           string   `json:"status"`
	Color            string   `json:"color"`
	Observations     string   `json:"observations,omitempty"`
	Confirmed        bool     `json:"confirmed"`
	ConfirmationDate string   `json:"confirmation_date,omitempty"`
	Version          int      `json:"version"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// ── 提醒 ──

// ReminderRunResponse 提醒任务执行结果
type ReminderRunResponse struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Published int    `json:"published"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}
