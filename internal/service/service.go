package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clinica-estetica/config"
	"clinica-estetica/internal/repository"
	"clinica-estetica/pkg/events"
	"clinica-estetica/pkg/jwt"
	"clinica-estetica/pkg/redis"
)

// TokenBlacklist Token 黑名单存储（由 Redis 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Doctor       DoctorService
	Patient      PatientService
	Room         RoomService
	Treatment    TreatmentService
	Appointment  AppointmentService
	SystemConfig SystemConfigService
	Export       ExportService
	Reminder     ReminderService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时登出不写黑名单；publisher 为 nil 时事件发布降级为 no-op
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	var blacklist TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	policy := NewPolicyLoader(&cfg.Scheduling, repo, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Doctor:       NewDoctorService(repo, logger),
		Patient:      NewPatientService(repo, logger),
		Room:         NewRoomService(repo, logger),
		Treatment:    NewTreatmentService(repo, logger),
		Appointment:  NewAppointmentService(repo, policy, publisher, logger),
		SystemConfig: NewSystemConfigService(&cfg.Scheduling, &cfg.Reminder, repo, logger),
		Export:       NewExportService(repo, policy, logger),
		Reminder:     NewReminderService(repo, policy, publisher, logger),
	}
}

// ── 通用辅助 ──

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func strPtr(s string) *string {
	return &s
}
