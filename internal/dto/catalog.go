package dto

import "github.com/shopspring/decimal"

// CatalogListRequest 医生 / 诊室 / 治疗项目列表查询参数
type CatalogListRequest struct {
	PaginationRequest
	Keyword         string `form:"keyword"          binding:"omitempty,max=50"`
	IncludeInactive bool   `form:"include_inactive"`
}

// ── 医生 ──

// CreateDoctorRequest 创建医生请求
type CreateDoctorRequest struct {
	FirstName     string `json:"first_name"     binding:"required,min=1,max=100"`
	LastName      string `json:"last_name"      binding:"required,min=1,max=100"`
	Specialty     string `json:"specialty"      binding:"omitempty,max=100"`
	LicenseNumber string `json:"license_number" binding:"omitempty,max=50"`
	Phone         string `json:"phone"          binding:"omitempty,max=30"`
	Email         string `json:"email"          binding:"omitempty,email"`
}

// UpdateDoctorRequest 更新医生请求
type UpdateDoctorRequest struct {
	FirstName     *string `json:"first_name"     binding:"omitempty,min=1,max=100"`
	LastName      *string `json:"last_name"      binding:"omitempty,min=1,max=100"`
	Specialty     *string `json:"specialty"      binding:"omitempty,max=100"`
	LicenseNumber *string `json:"license_number" binding:"omitempty,max=50"`
	Phone         *string `json:"phone"          binding:"omitempty,max=30"`
	Email         *string `json:"email"          binding:"omitempty,email"`
	IsActive      *bool   `json:"is_active"`
}

// DoctorResponse 医生信息响应
type DoctorResponse struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	Specialty     string `json:"specialty,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	IsActive      bool   `json:"is_active"`
	Version       int    `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ── 诊室 ──

// CreateRoomRequest 创建诊室请求
type CreateRoomRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// UpdateRoomRequest 更新诊室请求
type UpdateRoomRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
}

// RoomResponse 诊室信息响应
type RoomResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ── 治疗项目 ──

// CreateTreatmentRequest 创建治疗项目请求
type CreateTreatmentRequest struct {
	Name        string           `json:"name"        binding:"required,min=1,max=150"`
	Description string           `json:"description" binding:"omitempty,max=2000"`
	Duration    *int             `json:"duration"    binding:"omitempty,min=5,max=480"` // 分钟
	Price       *decimal.Decimal `json:"price"`
}

// UpdateTreatmentRequest 更新治疗项目请求
type UpdateTreatmentRequest struct {
	Name        *string          `json:"name"        binding:"omitempty,min=1,max=150"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	Duration    *int             `json:"duration"    binding:"omitempty,min=5,max=480"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"is_active"`
}

// TreatmentResponse 治疗项目信息响应
type TreatmentResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Duration    *int            `json:"duration,omitempty"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	Version     int             `json:"version"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}
