package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinica-estetica/config"
	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
	"clinica-estetica/internal/scheduling"
)

// ── 诊所配置模块业务错误 ──

var (
	ErrSystemConfigNotFound = errors.New("诊所配置未初始化")
	ErrInvalidWorkingHours  = errors.New("工作时间无效：需满足 0 <= 开始 < 结束 <= 24")
	ErrInvalidGranularity   = errors.New("时段粒度需在 5 到 240 分钟之间")
)

const (
	minGranularity = 5
	maxGranularity = 240
)

// ═══════════════════════════════════════════════════════════
// Policy — 排期策略（system_config 表优先，配置文件兜底）
// ═══════════════════════════════════════════════════════════

// Policy 诊所当前生效的排期策略
type Policy struct {
	WorkingHours           scheduling.WorkingHours
	DefaultDurationMinutes int
	Location               *time.Location
	ReminderEnabled        bool
}

// PolicyLoader 读取排期策略
type PolicyLoader struct {
	defaults *config.SchedulingConfig
	loc      *time.Location
	repo     *repository.Repository
	logger   *zap.Logger
}

// NewPolicyLoader 创建 PolicyLoader
func NewPolicyLoader(defaults *config.SchedulingConfig, repo *repository.Repository, logger *zap.Logger) *PolicyLoader {
	return &PolicyLoader{
		defaults: defaults,
		loc:      defaults.Location(),
		repo:     repo,
		logger:   logger,
	}
}

// Location 诊所时区
func (l *PolicyLoader) Location() *time.Location { return l.loc }

// Load 返回生效策略；数据库记录缺失或非法时回退到配置默认值
func (l *PolicyLoader) Load(ctx context.Context) Policy {
	p := Policy{
		WorkingHours: scheduling.WorkingHours{
			StartHour:              l.defaults.StartHour,
			EndHour:                l.defaults.EndHour,
			SlotGranularityMinutes: l.defaults.SlotGranularityMinutes,
		},
		DefaultDurationMinutes: l.defaults.DefaultTreatmentMinutes,
		Location:               l.loc,
		ReminderEnabled:        true,
	}

	cfg, err := l.repo.SystemConfig.Get(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.logger.Warn("读取诊所配置失败，使用默认排期策略", zap.Error(err))
		}
		return p
	}

	if validWorkingHours(cfg.StartHour, cfg.EndHour) && validGranularity(cfg.SlotGranularityMinutes) {
		p.WorkingHours = scheduling.WorkingHours{
			StartHour:              cfg.StartHour,
			EndHour:                cfg.EndHour,
			SlotGranularityMinutes: cfg.SlotGranularityMinutes,
		}
	} else {
		l.logger.Warn("诊所配置中的工作时间非法，已忽略",
			zap.Int("start_hour", cfg.StartHour),
			zap.Int("end_hour", cfg.EndHour),
			zap.Int("granularity", cfg.SlotGranularityMinutes))
	}
	if cfg.DefaultTreatmentMinutes > 0 {
		p.DefaultDurationMinutes = cfg.DefaultTreatmentMinutes
	}
	p.ReminderEnabled = cfg.ReminderEnabled
	return p
}

func validWorkingHours(start, end int) bool {
	return start >= 0 && end <= 24 && start < end
}

func validGranularity(minutes int) bool {
	return minutes >= minGranularity && minutes <= maxGranularity
}

// ═══════════════════════════════════════════════════════════
// SystemConfigService
// ═══════════════════════════════════════════════════════════

// SystemConfigService 诊所配置业务接口
type SystemConfigService interface {
	Get(ctx context.Context) (*dto.SystemConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error)
}

type systemConfigService struct {
	scheduling *config.SchedulingConfig
	reminder   *config.ReminderConfig
	repo       *repository.Repository
	logger     *zap.Logger
}

// NewSystemConfigService 创建 SystemConfigService 实例
func NewSystemConfigService(
	schedCfg *config.SchedulingConfig,
	reminderCfg *config.ReminderConfig,
	repo *repository.Repository,
	logger *zap.Logger,
) SystemConfigService {
	return &systemConfigService{
		scheduling: schedCfg,
		reminder:   reminderCfg,
		repo:       repo,
		logger:     logger,
	}
}

// ────────────────────── Get ──────────────────────

func (s *systemConfigService) Get(ctx context.Context) (*dto.SystemConfigResponse, error) {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemConfigNotFound
		}
		s.logger.Error("查询诊所配置失败", zap.Error(err))
		return nil, err
	}

	return s.toResponse(cfg), nil
}

// ────────────────────── Update ──────────────────────

func (s *systemConfigService) Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error) {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemConfigNotFound
		}
		s.logger.Error("查询诊所配置失败", zap.Error(err))
		return nil, err
	}

	if req.ClinicName != nil {
		cfg.ClinicName = *req.ClinicName
	}
	if req.StartHour != nil {
		cfg.StartHour = *req.StartHour
	}
	if req.EndHour != nil {
		cfg.EndHour = *req.EndHour
	}
	if req.SlotGranularityMinutes != nil {
		cfg.SlotGranularityMinutes = *req.SlotGranularityMinutes
	}
	if req.DefaultTreatmentMinutes != nil {
		cfg.DefaultTreatmentMinutes = *req.DefaultTreatmentMinutes
	}
	if req.ReminderEnabled != nil {
		cfg.ReminderEnabled = *req.ReminderEnabled
	}

	// 开始/结束可能只改一边，按合并后的结果校验
	if !validWorkingHours(cfg.StartHour, cfg.EndHour) {
		return nil, ErrInvalidWorkingHours
	}
	if !validGranularity(cfg.SlotGranularityMinutes) {
		return nil, ErrInvalidGranularity
	}

	cfg.UpdatedBy = &callerID

	if err := s.repo.SystemConfig.Update(ctx, cfg); err != nil {
		s.logger.Error("更新诊所配置失败", zap.Error(err))
		return nil, err
	}

	return s.toResponse(cfg), nil
}

func (s *systemConfigService) toResponse(cfg *model.SystemConfig) *dto.SystemConfigResponse {
	resp := &dto.SystemConfigResponse{
		ClinicName:              cfg.ClinicName,
		Timezone:                s.scheduling.Timezone,
		StartHour:               cfg.StartHour,
		EndHour:                 cfg.EndHour,
		SlotGranularityMinutes:  cfg.SlotGranularityMinutes,
		DefaultTreatmentMinutes: cfg.DefaultTreatmentMinutes,
		ReminderEnabled:         cfg.ReminderEnabled && s.reminder.Enabled,
		ReminderRunAt:           s.reminder.RunAt,
	}
	if !cfg.UpdatedAt.IsZero() {
		resp.UpdatedAt = formatTime(cfg.UpdatedAt)
	}
	return resp
}
