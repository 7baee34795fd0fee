package model

import "github.com/shopspring/decimal"

// DefaultTreatmentMinutes 治疗项目未设置时长时使用的默认值
const DefaultTreatmentMinutes = 60

// Treatment 治疗项目表 — 对应 treatments
type Treatment struct {
	TreatmentID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"treatment_id"`
	Name        string          `gorm:"type:varchar(150);not null"                     json:"name"`
	Description string          `gorm:"type:text"                                      json:"description,omitempty"`
	Duration    *int            `gorm:"type:smallint"                                  json:"duration,omitempty"` // 分钟，NULL 时按默认值
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"          json:"price"`
	IsActive    bool            `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Treatment) TableName() string { return "treatments" }

// DurationOr 返回治疗时长（分钟），未设置或非法时回退到 def；def 也非法时使用 DefaultTreatmentMinutes
func (t *Treatment) DurationOr(def int) int {
	if t != nil && t.Duration != nil && *t.Duration > 0 {
		return *t.Duration
	}
	if def > 0 {
		return def
	}
	return DefaultTreatmentMinutes
}
