package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
	"clinica-estetica/pkg/events"
)

// 提醒渠道；实际投递由订阅 appointment.reminder 事件的下游服务完成
const reminderChannel = "whatsapp"

// ReminderService 预约提醒业务接口
type ReminderService interface {
	// Run 为 date 当天（为空时取诊所时区的明天）的待进行预约发布提醒
	// 同一预约同一渠道只发布一次，重复执行安全
	Run(ctx context.Context, date string) (*dto.ReminderRunResponse, error)
}

type reminderService struct {
	repo      *repository.Repository
	policy    *PolicyLoader
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewReminderService 创建 ReminderService 实例
func NewReminderService(
	repo *repository.Repository,
	policy *PolicyLoader,
	publisher events.Publisher,
	logger *zap.Logger,
) ReminderService {
	return &reminderService{
		repo:      repo,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// reminderEvent 提醒事件负载
type reminderEvent struct {
	AppointmentID string    `json:"appointment_id"`
	ReminderID    string    `json:"reminder_id"`
	Channel       string    `json:"channel"`
	PatientID     string    `json:"patient_id"`
	PatientName   string    `json:"patient_name"`
	PatientPhone  string    `json:"patient_phone"`
	DoctorName    string    `json:"doctor_name,omitempty"`
	TreatmentName string    `json:"treatment_name,omitempty"`
	RoomName      string    `json:"room_name,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

func (s *reminderService) Run(ctx context.Context, date string) (*dto.ReminderRunResponse, error) {
	loc := s.policy.Location()

	var day time.Time
	if date == "" {
		y, m, d := s.now().In(loc).AddDate(0, 0, 1).Date()
		day = time.Date(y, m, d, 0, 0, 0, 0, loc)
	} else {
		parsed, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return nil, ErrInvalidDateTime
		}
		day = parsed
	}

	resp := &dto.ReminderRunResponse{Date: day.Format("2006-01-02")}

	policy := s.policy.Load(ctx)
	if !policy.ReminderEnabled {
		s.logger.Info("预约提醒已在诊所配置中关闭，跳过", zap.String("date", resp.Date))
		return resp, nil
	}

	appts, err := s.repo.Appointment.ListAll(ctx, &model.AppointmentFilter{
		From:     &day,
		To:       &day,
		Statuses: []model.AppointmentStatus{model.StatusScheduled, model.StatusConfirmed},
	})
	if err != nil {
		s.logger.Error("查询待提醒预约失败", zap.String("date", resp.Date), zap.Error(err))
		return nil, err
	}
	resp.Total = len(appts)

	for i := range appts {
		switch s.remind(ctx, &appts[i]) {
		case reminderPublished:
			resp.Published++
		case reminderSkipped:
			resp.Skipped++
		default:
			resp.Failed++
		}
	}

	s.logger.Info("预约提醒任务完成",
		zap.String("date", resp.Date),
		zap.Int("total", resp.Total),
		zap.Int("published", resp.Published),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed))
	return resp, nil
}

type reminderOutcome int

const (
	reminderPublished reminderOutcome = iota
	reminderSkipped
	reminderFailed
)

// remind 先落库占位再发布；已发布过的记录直接跳过，失败的记录下次执行时重试
func (s *reminderService) remind(ctx context.Context, a *model.Appointment) reminderOutcome {
	reminder := &model.AppointmentReminder{
		AppointmentID: a.AppointmentID,
		PatientID:     a.PatientID,
		Channel:       reminderChannel,
		Status:        model.ReminderQueued,
	}
	created, err := s.repo.Reminder.CreateIfAbsent(ctx, reminder)
	if err != nil {
		s.logger.Error("写入提醒记录失败", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
		return reminderFailed
	}
	if !created {
		existing, err := s.repo.Reminder.GetByAppointment(ctx, a.AppointmentID, reminderChannel)
		if err != nil {
			s.logger.Error("查询提醒记录失败", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
			return reminderFailed
		}
		if existing.Status == model.ReminderPublished {
			return reminderSkipped
		}
		reminder = existing
	}

	payload := reminderEvent{
		AppointmentID: a.AppointmentID,
		ReminderID:    reminder.ReminderID,
		Channel:       reminderChannel,
		PatientID:     a.PatientID,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
	}
	if a.Patient != nil {
		payload.PatientName = a.Patient.FullName()
		payload.PatientPhone = a.Patient.Phone
	}
	if a.Doctor != nil {
		payload.DoctorName = a.Doctor.FullName()
	}
	if a.Treatment != nil {
		payload.TreatmentName = a.Treatment.Name
	}
	if a.Room != nil {
		payload.RoomName = a.Room.Name
	}

	if err := s.publisher.Publish(ctx, events.NewEvent(events.TypeAppointmentReminder, a.AppointmentID, payload)); err != nil {
		s.logger.Warn("提醒事件发布失败", zap.String("appointment_id", a.AppointmentID), zap.Error(err))
		if markErr := s.repo.Reminder.MarkFailed(ctx, reminder.ReminderID, err.Error()); markErr != nil {
			s.logger.Error("更新提醒记录失败", zap.String("reminder_id", reminder.ReminderID), zap.Error(markErr))
		}
		return reminderFailed
	}

	if err := s.repo.Reminder.MarkPublished(ctx, reminder.ReminderID, s.now()); err != nil {
		s.logger.Error("更新提醒记录失败", zap.String("reminder_id", reminder.ReminderID), zap.Error(err))
	}
	return reminderPublished
}

// ═══════════════════════════════════════════════════════════
// ReminderScheduler — 每日定时触发
// ═══════════════════════════════════════════════════════════

// ReminderScheduler 每天在诊所时区的 runAt 时刻执行一次提醒任务
type ReminderScheduler struct {
	svc    ReminderService
	runAt  string
	loc    *time.Location
	logger *zap.Logger
}

// NewReminderScheduler 创建调度器；runAt 格式 "HH:MM"
func NewReminderScheduler(svc ReminderService, runAt string, loc *time.Location, logger *zap.Logger) (*ReminderScheduler, error) {
	if _, err := time.Parse("15:04", runAt); err != nil {
		return nil, errors.New("提醒时间格式应为 HH:MM")
	}
	return &ReminderScheduler{svc: svc, runAt: runAt, loc: loc, logger: logger}, nil
}

// Start 阻塞运行，ctx 取消后返回
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.logger.Info("预约提醒调度已启动", zap.String("run_at", s.runAt), zap.String("timezone", s.loc.String()))
	for {
		next := nextRunAt(time.Now(), s.runAt, s.loc)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("预约提醒调度已停止")
			return
		case <-timer.C:
			if _, err := s.svc.Run(ctx, ""); err != nil {
				s.logger.Error("预约提醒任务执行失败", zap.Error(err))
			}
		}
	}
}

// nextRunAt 计算 now 之后最近一次 runAt 时刻
func nextRunAt(now time.Time, runAt string, loc *time.Location) time.Time {
	clock, _ := time.Parse("15:04", runAt)
	local := now.In(loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
