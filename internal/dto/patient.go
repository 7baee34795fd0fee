package dto

// ── 患者模块 DTO ──

// CreatePatientRequest 创建患者请求
type CreatePatientRequest struct {
	FirstName  string `json:"first_name"  binding:"required,min=1,max=100"`
	LastName   string `json:"last_name"   binding:"required,min=1,max=100"`
	DocumentID string `json:"document_id" binding:"omitempty,max=30"`
	BirthDate  string `json:"birth_date"  binding:"omitempty,datetime=2006-01-02"`
	Phone      string `json:"phone"       binding:"required,min=6,max=30"`
	Email      string `json:"email"       binding:"omitempty,email"`
	Address    string `json:"address"     binding:"omitempty,max=255"`
	Allergies  string `json:"allergies"   binding:"omitempty,max=2000"`
	Notes      string `json:"notes"       binding:"omitempty,max=4000"`
}

// UpdatePatientRequest 更新患者请求
type UpdatePatientRequest struct {
	FirstName  *string `json:"first_name"  binding:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name"   binding:"omitempty,min=1,max=100"`
	DocumentID *string `json:"document_id" binding:"omitempty,max=30"`
	BirthDate  *string `json:"birth_date"  binding:"omitempty,datetime=2006-01-02"`
	Phone      *string `json:"phone"       binding:"omitempty,min=6,max=30"`
	Email      *string `json:"email"       binding:"omitempty,email"`
	Address    *string `json:"address"     binding:"omitempty,max=255"`
	Allergies  *string `json:"allergies"   binding:"omitempty,max=2000"`
	Notes      *string `json:"notes"       binding:"omitempty,max=4000"`
}

// BlockPatientRequest 停用患者请求
type BlockPatientRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// PatientListRequest 患者列表查询参数
type PatientListRequest struct {
	PaginationRequest
	Keyword        string `form:"keyword"         binding:"omitempty,max=50"`
	IncludeBlocked bool   `form:"include_blocked"`
}

// PatientResponse 患者信息响应
type PatientResponse struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	DocumentID    string `json:"document_id,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	Allergies     string `json:"allergies,omitempty"`
	Notes         string `json:"notes,omitempty"`
	IsBlocked     bool   `json:"is_blocked"`
	BlockedReason string `json:"blocked_reason,omitempty"`
	Version       int    `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ImportPatientResponse 批量导入患者响应
type ImportPatientResponse struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}
