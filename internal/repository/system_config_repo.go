package repository

import (
	"context"

	"gorm.io/gorm"

	"clinica-estetica/internal/model"
)

// SystemConfigRepository 诊所配置数据访问接口
type SystemConfigRepository interface {
	Get(ctx context.Context) (*model.SystemConfig, error)
	Update(ctx context.Context, cfg *model.SystemConfig) error
}

type systemConfigRepo struct {
	db *gorm.DB
}

// NewSystemConfigRepo 创建 SystemConfigRepository 实例
func NewSystemConfigRepo(db *gorm.DB) SystemConfigRepository {
	return &systemConfigRepo{db: db}
}

func (r *systemConfigRepo) Get(ctx context.Context) (*model.SystemConfig, error) {
	var cfg model.SystemConfig
	err := r.db.WithContext(ctx).
		Where("singleton = ?", true).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *systemConfigRepo) Update(ctx context.Context, cfg *model.SystemConfig) error {
	cfg.Singleton = true
	return r.db.WithContext(ctx).
		Model(&model.SystemConfig{}).
		Where("singleton = ?", true).
		Updates(map[string]interface{}{
			"clinic_name":               cfg.ClinicName,
			"start_hour":                cfg.StartHour,
			"end_hour":                  cfg.EndHour,
			"slot_granularity_minutes":  cfg.SlotGranularityMinutes,
			"default_treatment_minutes": cfg.DefaultTreatmentMinutes,
			"reminder_enabled":          cfg.ReminderEnabled,
			"updated_by":                cfg.UpdatedBy,
			"updated_at":                gorm.Expr("NOW()"),
		}).Error
}
