package dto

// ── 员工账号模块 DTO ──

// CreateUserRequest 创建员工账号请求
type CreateUserRequest struct {
	Name     string `json:"name"      binding:"required,min=2,max=100"`
	Username string `json:"username"  binding:"required,min=3,max=50,alphanum"`
	Email    string `json:"email"     binding:"required,email"`
	Role     string `json:"role"      binding:"required,oneof=admin reception doctor"`
	DoctorID string `json:"doctor_id" binding:"omitempty,uuid"`
}

// CreateUserResponse 创建员工账号响应（含一次性临时密码）
type CreateUserResponse struct {
	User         UserResponse `json:"user"`
	TempPassword string       `json:"temp_password"`
}

// UserListRequest 员工列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=admin reception doctor"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// UpdateUserRequest 更新员工信息请求
type UpdateUserRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email"     binding:"omitempty,email"`
	Role     *string `json:"role"      binding:"omitempty,oneof=admin reception doctor"`
	DoctorID *string `json:"doctor_id" binding:"omitempty,uuid"`
	IsActive *bool   `json:"is_active"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}
