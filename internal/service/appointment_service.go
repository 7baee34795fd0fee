package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
	"clinica-estetica/internal/scheduling"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/events"
)

// ── 预约模块业务错误 ──

var (
	ErrAppointmentNotFound     = errors.New("预约不存在")
	ErrAppointmentConflict     = errors.New("所选时间段与已有预约冲突")
	ErrInvalidTimeRange        = errors.New("结束时间必须晚于开始时间")
	ErrInvalidDateTime         = errors.New("日期或时间格式无效")
	ErrInvalidDateRange        = errors.New("查询日期范围无效")
	ErrInvalidStatus           = errors.New("未知的预约状态")
	ErrInvalidStatusTransition = errors.New("当前状态不允许变更为目标状态")
	ErrAppointmentClosed       = errors.New("已结束的预约不可修改")
	ErrAppointmentNotDeletable = errors.New("仅可删除已结束或已过期的预约")
)

// 日历视图单次查询的最大跨度（天）
const maxCalendarDays = 92

// AccessScope 调用者身份；医生账号只能查看本人的预约
type AccessScope struct {
	Role     string
	DoctorID string
}

func (a AccessScope) restrictDoctor(requested string) string {
	if a.Role == model.RoleDoctor {
		return a.DoctorID
	}
	return requested
}

// AppointmentService 预约业务接口
type AppointmentService interface {
	Create(ctx context.Context, req *dto.CreateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.AppointmentResponse, error)
	List(ctx context.Context, req *dto.AppointmentListRequest, scope AccessScope) ([]dto.AppointmentResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error)
	ChangeStatus(ctx context.Context, id string, req *dto.ChangeStatusRequest, callerID string) (*dto.AppointmentResponse, error)
	Confirm(ctx context.Context, id string, callerID string) (*dto.AppointmentResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	CheckAvailability(ctx context.Context, req *dto.CheckAvailabilityRequest) (*dto.CheckAvailabilityResponse, error)
	AvailableSlots(ctx context.Context, req *dto.AvailableSlotsRequest) ([]dto.SlotResponse, error)
	Calendar(ctx context.Context, req *dto.CalendarRequest, scope AccessScope) ([]dto.CalendarEvent, error)
	PatientHistory(ctx context.Context, patientID string, page *dto.PaginationRequest) ([]dto.AppointmentResponse, int64, error)
}

type appointmentService struct {
	repo      *repository.Repository
	policy    *PolicyLoader
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAppointmentService 创建 AppointmentService 实例
func NewAppointmentService(
	repo *repository.Repository,
	policy *PolicyLoader,
	publisher events.Publisher,
	logger *zap.Logger,
) AppointmentService {
	return &appointmentService{
		repo:      repo,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *appointmentService) Create(ctx context.Context, req *dto.CreateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error) {
	policy := s.policy.Load(ctx)

	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	start, err := atClock(date, req.StartTime)
	if err != nil {
		return nil, err
	}

	if _, err := s.requirePatient(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.requireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	if _, err := s.requireRoom(ctx, req.RoomID); err != nil {
		return nil, err
	}
	treatment, err := s.requireTreatment(ctx, req.TreatmentID)
	if err != nil {
		return nil, err
	}

	// 未指定结束时间时按治疗项目时长推算
	var end time.Time
	if req.EndTime != "" {
		if end, err = atClock(date, req.EndTime); err != nil {
			return nil, err
		}
	} else {
		end = start.Add(minutes(treatment.DurationOr(policy.DefaultDurationMinutes)))
	}
	if err := scheduling.ValidateInterval(start, end); err != nil {
		return nil, ErrInvalidTimeRange
	}

	appt := &model.Appointment{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		RoomID:         req.RoomID,
		TreatmentID:    req.TreatmentID,
		Date:           date,
		StartTime:      start,
		EndTime:        end,
		Status:         model.StatusScheduled,
		Observations:   req.Observations,
		VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}}},
	}

	err = s.book(ctx, appt, "", func(txRepo *repository.Repository) error {
		return txRepo.Appointment.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("预约已创建",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("doctor_id", appt.DoctorID),
		zap.String("room_id", appt.RoomID),
		zap.Time("start", appt.StartTime))
	s.publish(ctx, events.TypeAppointmentCreated, newAppointmentEvent(appt))

	return s.reload(ctx, appt)
}

// ────────────────────── GetByID ──────────────────────

func (s *appointmentService) GetByID(ctx context.Context, id string) (*dto.AppointmentResponse, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(appt), nil
}

// ────────────────────── List ──────────────────────

func (s *appointmentService) List(ctx context.Context, req *dto.AppointmentListRequest, scope AccessScope) ([]dto.AppointmentResponse, int64, error) {
	filter := &model.AppointmentFilter{
		DoctorID:  scope.restrictDoctor(req.DoctorID),
		RoomID:    req.RoomID,
		PatientID: req.PatientID,
	}
	if req.From != "" {
		from, err := s.parseDate(req.From)
		if err != nil {
			return nil, 0, err
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := s.parseDate(req.To)
		if err != nil {
			return nil, 0, err
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, ErrInvalidDateRange
	}
	if req.Status != "" {
		filter.Statuses = []model.AppointmentStatus{model.AppointmentStatus(req.Status)}
	}

	appts, total, err := s.repo.Appointment.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出预约失败", zap.Error(err))
		return nil, 0, err
	}
	return s.toResponses(appts), total, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改预约；诊室、医生或时间变化时视为改期，在锁内重新做冲突检测（排除自身）
func (s *appointmentService) Update(ctx context.Context, id string, req *dto.UpdateAppointmentRequest, callerID string) (*dto.AppointmentResponse, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, ErrAppointmentClosed
	}
	if req.Version != 0 && req.Version != appt.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	policy := s.policy.Load(ctx)
	previous := newAppointmentEvent(appt)
	moved := false

	if req.PatientID != nil && *req.PatientID != appt.PatientID {
		if _, err := s.requirePatient(ctx, *req.PatientID); err != nil {
			return nil, err
		}
		appt.PatientID = *req.PatientID
	}
	if req.DoctorID != nil && *req.DoctorID != appt.DoctorID {
		if _, err := s.requireDoctor(ctx, *req.DoctorID); err != nil {
			return nil, err
		}
		appt.DoctorID = *req.DoctorID
		moved = true
	}
	if req.RoomID != nil && *req.RoomID != appt.RoomID {
		if _, err := s.requireRoom(ctx, *req.RoomID); err != nil {
			return nil, err
		}
		appt.RoomID = *req.RoomID
		moved = true
	}
	var newTreatment *model.Treatment
	if req.TreatmentID != nil && *req.TreatmentID != appt.TreatmentID {
		if newTreatment, err = s.requireTreatment(ctx, *req.TreatmentID); err != nil {
			return nil, err
		}
		appt.TreatmentID = *req.TreatmentID
	}
	if req.Observations != nil {
		appt.Observations = *req.Observations
	}

	if req.Date != nil || req.StartTime != nil || req.EndTime != nil || newTreatment != nil {
		loc := s.policy.Location()
		dateStr := appt.StartTime.In(loc).Format("2006-01-02")
		if req.Date != nil {
			dateStr = *req.Date
		}
		startStr := appt.StartTime.In(loc).Format("15:04")
		if req.StartTime != nil {
			startStr = *req.StartTime
		}

		date, err := s.parseDate(dateStr)
		if err != nil {
			return nil, err
		}
		start, err := atClock(date, startStr)
		if err != nil {
			return nil, err
		}

		// 结束时间：显式指定 > 新治疗项目时长 > 保持原时长
		var end time.Time
		switch {
		case req.EndTime != nil:
			if end, err = atClock(date, *req.EndTime); err != nil {
				return nil, err
			}
		case newTreatment != nil:
			end = start.Add(minutes(newTreatment.DurationOr(policy.DefaultDurationMinutes)))
		default:
			end = start.Add(appt.EndTime.Sub(appt.StartTime))
		}
		if err := scheduling.ValidateInterval(start, end); err != nil {
			return nil, ErrInvalidTimeRange
		}

		if !start.Equal(appt.StartTime) || !end.Equal(appt.EndTime) {
			moved = true
		}
		appt.Date = date
		appt.StartTime = start
		appt.EndTime = end
	}

	appt.UpdatedBy = &callerID
	detachAssociations(appt)

	write := func(txRepo *repository.Repository) error {
		return txRepo.Appointment.Update(ctx, appt)
	}
	if moved {
		err = s.book(ctx, appt, appt.AppointmentID, write)
	} else {
		err = write(s.repo)
	}
	if err != nil {
		if !errors.Is(err, ErrAppointmentConflict) && !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新预约失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	if moved {
		evt := newAppointmentEvent(appt)
		evt.PreviousStartTime = &previous.StartTime
		evt.PreviousEndTime = &previous.EndTime
		evt.PreviousDoctorID = previous.DoctorID
		evt.PreviousRoomID = previous.RoomID
		s.publish(ctx, events.TypeAppointmentRescheduled, evt)
	}

	return s.reload(ctx, appt)
}

// ────────────────────── ChangeStatus ──────────────────────

func (s *appointmentService) ChangeStatus(ctx context.Context, id string, req *dto.ChangeStatusRequest, callerID string) (*dto.AppointmentResponse, error) {
	next := model.AppointmentStatus(req.Status)
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	// 目标状态与当前一致时视为幂等成功
	if appt.Status == next {
		return s.toResponse(appt), nil
	}
	if !appt.Status.CanTransitionTo(next) {
		return nil, ErrInvalidStatusTransition
	}

	previous := appt.Status
	appt.Status = next
	if next == model.StatusConfirmed {
		now := s.now()
		appt.Confirmed = true
		appt.ConfirmationDate = &now
	}
	appt.UpdatedBy = &callerID
	detachAssociations(appt)

	if err := s.repo.Appointment.Update(ctx, appt); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新预约状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	evt := newAppointmentEvent(appt)
	evt.PreviousStatus = string(previous)
	s.publish(ctx, events.TypeAppointmentStatusChanged, evt)

	return s.reload(ctx, appt)
}

// ────────────────────── Confirm ──────────────────────

func (s *appointmentService) Confirm(ctx context.Context, id string, callerID string) (*dto.AppointmentResponse, error) {
	return s.ChangeStatus(ctx, id, &dto.ChangeStatusRequest{Status: string(model.StatusConfirmed)}, callerID)
}

// ────────────────────── Delete ──────────────────────

func (s *appointmentService) Delete(ctx context.Context, id string, callerID string) error {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return err
	}

	// 未结束且尚未过去的预约应先取消
	if !appt.Status.IsTerminal() && appt.EndTime.After(s.now()) {
		return ErrAppointmentNotDeletable
	}

	if err := s.repo.Appointment.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除预约失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── CheckAvailability ──────────────────────

func (s *appointmentService) CheckAvailability(ctx context.Context, req *dto.CheckAvailabilityRequest) (*dto.CheckAvailabilityResponse, error) {
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	start, err := atClock(date, req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := atClock(date, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := scheduling.ValidateInterval(start, end); err != nil {
		return nil, ErrInvalidTimeRange
	}

	existing, err := s.repo.Appointment.ListForConflict(ctx, date, req.RoomID, req.DoctorID)
	if err != nil {
		s.logger.Error("查询同日预约失败", zap.Error(err))
		return nil, err
	}

	candidate := scheduling.Candidate{
		RoomID:   req.RoomID,
		DoctorID: req.DoctorID,
		Date:     date,
		Start:    start,
		End:      end,
	}
	conflicts := scheduling.Conflicts(candidate, existing, req.ExcludeAppointmentID)

	resp := &dto.CheckAvailabilityResponse{Available: len(conflicts) == 0}
	loc := s.policy.Location()
	for _, c := range conflicts {
		resp.Conflicts = append(resp.Conflicts, dto.ConflictSummary{
			ID:        c.AppointmentID,
			RoomID:    c.RoomID,
			DoctorID:  c.DoctorID,
			StartTime: c.StartTime.In(loc).Format(time.RFC3339),
			EndTime:   c.EndTime.In(loc).Format(time.RFC3339),
			Status:    string(c.Status),
		})
	}
	return resp, nil
}

// ────────────────────── AvailableSlots ──────────────────────

func (s *appointmentService) AvailableSlots(ctx context.Context, req *dto.AvailableSlotsRequest) ([]dto.SlotResponse, error) {
	policy := s.policy.Load(ctx)

	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	duration := policy.DefaultDurationMinutes
	if req.TreatmentID != "" {
		treatment, err := s.requireTreatment(ctx, req.TreatmentID)
		if err != nil {
			return nil, err
		}
		duration = treatment.DurationOr(policy.DefaultDurationMinutes)
	}

	existing, err := s.repo.Appointment.ListByDoctorOnDate(ctx, req.DoctorID, date)
	if err != nil {
		s.logger.Error("查询医生当日预约失败", zap.String("doctor_id", req.DoctorID), zap.Error(err))
		return nil, err
	}

	slots := scheduling.GenerateAvailableSlots(date, req.DoctorID, duration, existing, policy.WorkingHours)

	result := make([]dto.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		result = append(result, dto.SlotResponse{
			Start:   slot.Start.Format(time.RFC3339),
			End:     slot.End.Format(time.RFC3339),
			Display: slot.Display,
		})
	}
	return result, nil
}

// ────────────────────── Calendar ──────────────────────

func (s *appointmentService) Calendar(ctx context.Context, req *dto.CalendarRequest, scope AccessScope) ([]dto.CalendarEvent, error) {
	from, err := s.parseDate(req.From)
	if err != nil {
		return nil, err
	}
	to, err := s.parseDate(req.To)
	if err != nil {
		return nil, err
	}
	if to.Before(from) || to.Sub(from) > maxCalendarDays*24*time.Hour {
		return nil, ErrInvalidDateRange
	}

	appts, err := s.repo.Appointment.ListAll(ctx, &model.AppointmentFilter{
		From:     &from,
		To:       &to,
		DoctorID: scope.restrictDoctor(req.DoctorID),
		RoomID:   req.RoomID,
	})
	if err != nil {
		s.logger.Error("查询日历预约失败", zap.Error(err))
		return nil, err
	}

	loc := s.policy.Location()
	result := make([]dto.CalendarEvent, 0, len(appts))
	for i := range appts {
		a := &appts[i]
		result = append(result, dto.CalendarEvent{
			ID:        a.AppointmentID,
			Title:     calendarTitle(a),
			Start:     a.StartTime.In(loc).Format(time.RFC3339),
			End:       a.EndTime.In(loc).Format(time.RFC3339),
			Status:    string(a.Status),
			Color:     scheduling.StatusColor(a.Status),
			DoctorID:  a.DoctorID,
			RoomID:    a.RoomID,
			PatientID: a.PatientID,
		})
	}
	return result, nil
}

// ────────────────────── PatientHistory ──────────────────────

func (s *appointmentService) PatientHistory(ctx context.Context, patientID string, page *dto.PaginationRequest) ([]dto.AppointmentResponse, int64, error) {
	if _, err := s.repo.Patient.GetByID(ctx, patientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrPatientNotFound
		}
		s.logger.Error("查询患者失败", zap.String("id", patientID), zap.Error(err))
		return nil, 0, err
	}

	appts, total, err := s.repo.Appointment.List(ctx, &model.AppointmentFilter{PatientID: patientID}, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询患者预约历史失败", zap.String("patient_id", patientID), zap.Error(err))
		return nil, 0, err
	}
	return s.toResponses(appts), total, nil
}

// ═══════════════════════════════════════════════════════════
// 内部辅助
// ═══════════════════════════════════════════════════════════

// book 在事务内：加锁 → 查询同日相关预约 → 冲突检测 → 写入
// 锁粒度为 诊室+日期 / 医生+日期，按键排序获取
func (s *appointmentService) book(ctx context.Context, appt *model.Appointment, excludeID string, write func(txRepo *repository.Repository) error) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	txRepo := s.repo.WithTx(tx)

	day := appt.Date.Format("2006-01-02")
	if err := txRepo.Appointment.LockResources(ctx, "room:"+appt.RoomID+":"+day, "doctor:"+appt.DoctorID+":"+day); err != nil {
		rollback()
		s.logger.Error("获取预约资源锁失败", zap.Error(err))
		return err
	}

	existing, err := txRepo.Appointment.ListForConflict(ctx, appt.Date, appt.RoomID, appt.DoctorID)
	if err != nil {
		rollback()
		s.logger.Error("查询同日预约失败", zap.Error(err))
		return err
	}

	candidate := scheduling.Candidate{
		RoomID:   appt.RoomID,
		DoctorID: appt.DoctorID,
		Date:     appt.Date,
		Start:    appt.StartTime,
		End:      appt.EndTime,
	}
	if scheduling.HasConflict(candidate, existing, excludeID) {
		rollback()
		return ErrAppointmentConflict
	}

	if err := write(txRepo); err != nil {
		rollback()
		// 排他约束兜底：并发写入穿透应用层检测时由数据库拒绝
		if errors.Is(err, pkgerrors.ErrBookingOverlap) {
			return ErrAppointmentConflict
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *appointmentService) getAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("查询预约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return appt, nil
}

// reload 写入后重新加载关联实体；读取失败时退回到内存中的记录
func (s *appointmentService) reload(ctx context.Context, appt *model.Appointment) (*dto.AppointmentResponse, error) {
	loaded, err := s.repo.Appointment.GetByID(ctx, appt.AppointmentID)
	if err != nil {
		s.logger.Warn("重新加载预约失败", zap.String("id", appt.AppointmentID), zap.Error(err))
		return s.toResponse(appt), nil
	}
	return s.toResponse(loaded), nil
}

func (s *appointmentService) requirePatient(ctx context.Context, id string) (*model.Patient, error) {
	patient, err := s.repo.Patient.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if patient.IsBlocked {
		return nil, ErrPatientBlocked
	}
	return patient, nil
}

func (s *appointmentService) requireDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	doctor, err := s.repo.Doctor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if !doctor.IsActive {
		return nil, ErrDoctorInactive
	}
	return doctor, nil
}

func (s *appointmentService) requireRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomInactive
	}
	return room, nil
}

func (s *appointmentService) requireTreatment(ctx context.Context, id string) (*model.Treatment, error) {
	treatment, err := s.repo.Treatment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}
	if !treatment.IsActive {
		return nil, ErrTreatmentInactive
	}
	return treatment, nil
}

func (s *appointmentService) parseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", raw, s.policy.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDateTime
	}
	return d, nil
}

// atClock 将 "HH:MM" 落到 date 所在日期与时区
func atClock(date time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, ErrInvalidDateTime
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// detachAssociations 避免按 map 更新时携带旧的关联实体
func detachAssociations(appt *model.Appointment) {
	appt.Patient = nil
	appt.Doctor = nil
	appt.Room = nil
	appt.Treatment = nil
}

func calendarTitle(a *model.Appointment) string {
	title := "预约"
	if a.Patient != nil {
		title = a.Patient.FullName()
	}
	if a.Treatment != nil {
		title += " - " + a.Treatment.Name
	}
	return title
}

func (s *appointmentService) toResponses(appts []model.Appointment) []dto.AppointmentResponse {
	result := make([]dto.AppointmentResponse, 0, len(appts))
	for i := range appts {
		result = append(result, *s.toResponse(&appts[i]))
	}
	return result
}

func (s *appointmentService) toResponse(a *model.Appointment) *dto.AppointmentResponse {
	loc := s.policy.Location()
	resp := &dto.AppointmentResponse{
		ID:           a.AppointmentID,
		Patient:      &dto.RefItem{ID: a.PatientID},
		Doctor:       &dto.RefItem{ID: a.DoctorID},
		Room:         &dto.RefItem{ID: a.RoomID},
		Treatment:    &dto.RefItem{ID: a.TreatmentID},
		Date:         a.StartTime.In(loc).Format("2006-01-02"),
		StartTime:    a.StartTime.In(loc).Format(time.RFC3339),
		EndTime:      a.EndTime.In(loc).Format(time.RFC3339),
		Status:       string(a.Status),
		Color:        scheduling.StatusColor(a.Status),
		Observations: a.Observations,
		Confirmed:    a.Confirmed,
		Version:      a.Version,
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	}
	if a.Patient != nil {
		resp.Patient.Name = a.Patient.FullName()
	}
	if a.Doctor != nil {
		resp.Doctor.Name = a.Doctor.FullName()
	}
	if a.Room != nil {
		resp.Room.Name = a.Room.Name
	}
	if a.Treatment != nil {
		resp.Treatment.Name = a.Treatment.Name
	}
	if a.ConfirmationDate != nil {
		resp.ConfirmationDate = formatTime(*a.ConfirmationDate)
	}
	return resp
}

// ── 领域事件 ──

// appointmentEvent 预约事件负载
type appointmentEvent struct {
	AppointmentID     string     `json:"appointment_id"`
	PatientID         string     `json:"patient_id"`
	DoctorID          string     `json:"doctor_id"`
	RoomID            string     `json:"room_id"`
	TreatmentID       string     `json:"treatment_id"`
	Status            string     `json:"status"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	PreviousStatus    string     `json:"previous_status,omitempty"`
	PreviousDoctorID  string     `json:"previous_doctor_id,omitempty"`
	PreviousRoomID    string     `json:"previous_room_id,omitempty"`
	PreviousStartTime *time.Time `json:"previous_start_time,omitempty"`
	PreviousEndTime   *time.Time `json:"previous_end_time,omitempty"`
}

func newAppointmentEvent(a *model.Appointment) appointmentEvent {
	return appointmentEvent{
		AppointmentID: a.AppointmentID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		RoomID:        a.RoomID,
		TreatmentID:   a.TreatmentID,
		Status:        string(a.Status),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
	}
}

// publish 事务提交后发布事件；发布失败只记录日志，不影响业务结果
func (s *appointmentService) publish(ctx context.Context, eventType string, payload appointmentEvent) {
	evt := events.NewEvent(eventType, payload.AppointmentID, payload)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("预约事件发布失败",
			zap.String("event_type", eventType),
			zap.String("appointment_id", payload.AppointmentID),
			zap.Error(err))
	}
}
