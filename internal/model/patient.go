package model

import "time"

// Patient 患者表 — 对应 patients
// 有历史预约的患者不做物理删除，通过 IsBlocked 停用
type Patient struct {
	PatientID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"patient_id"`
	FirstName     string     `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName      string     `gorm:"type:varchar(100);not null"                     json:"last_name"`
	DocumentID    string     `gorm:"type:varchar(30)"                               json:"document_id,omitempty"`
	BirthDate     *time.Time `gorm:"type:date"                                      json:"birth_date,omitempty"`
	Phone         string     `gorm:"type:varchar(30);not null"                      json:"phone"`
	Email         string     `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	Address       string     `gorm:"type:varchar(255)"                              json:"address,omitempty"`
	Allergies     string     `gorm:"type:text"                                      json:"allergies,omitempty"`
	Notes         string     `gorm:"type:text"                                      json:"notes,omitempty"`
	IsBlocked     bool       `gorm:"not null;default:false"                         json:"is_blocked"`
	BlockedReason string     `gorm:"type:varchar(255)"                              json:"blocked_reason,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Patient) TableName() string { return "patients" }

// FullName 姓名
func (p *Patient) FullName() string { return p.FirstName + " " + p.LastName }
