package model

// 员工角色
const (
	RoleAdmin     = "admin"
	RoleReception = "reception"
	RoleDoctor    = "doctor"
)

// User 员工账号表 — 对应 users
type User struct {
	UserID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name               string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Username           string  `gorm:"type:varchar(50);not null;uniqueIndex"          json:"username"`
	Email              string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash       string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role               string  `gorm:"type:varchar(20);not null;default:'reception'"  json:"role"` // admin | reception | doctor
	DoctorID           *string `gorm:"type:uuid"                                      json:"doctor_id,omitempty"`
	IsActive           bool    `gorm:"not null;default:true"                          json:"is_active"`
	MustChangePassword bool    `gorm:"not null;default:false"                         json:"must_change_password"`
	VersionedModel

	// 关联
	Doctor *Doctor `gorm:"foreignKey:DoctorID;references:DoctorID" json:"doctor,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsValidRole 校验角色取值
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleReception, RoleDoctor:
		return true
	}
	return false
}
