package model

// Doctor 医生（执业人员）表 — 对应 doctors
type Doctor struct {
	DoctorID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"doctor_id"`
	FirstName     string `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName      string `gorm:"type:varchar(100);not null"                     json:"last_name"`
	Specialty     string `gorm:"type:varchar(100)"                              json:"specialty,omitempty"`
	LicenseNumber string `gorm:"type:varchar(50)"                               json:"license_number,omitempty"`
	Phone         string `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	Email         string `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	IsActive      bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Doctor) TableName() string { return "doctors" }

// FullName 姓名
func (d *Doctor) FullName() string { return d.FirstName + " " + d.LastName }
