package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/events"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filters != nil {
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(u.Name, filters.Keyword) && !strings.Contains(u.Username, filters.Keyword) {
				continue
			}
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	return paginate(all, offset, limit)
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

// ── Mock DoctorRepository ──

type mockDoctorRepo struct {
	doctors map[string]*model.Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[string]*model.Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, doctor *model.Doctor) error {
	if doctor.DoctorID == "" {
		doctor.DoctorID = fmt.Sprintf("doc-%d", len(m.doctors)+1)
	}
	m.doctors[doctor.DoctorID] = doctor
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id string) (*model.Doctor, error) {
	if d, ok := m.doctors[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDoctorRepo) List(_ context.Context, filters *repository.CatalogFilters, offset, limit int) ([]model.Doctor, int64, error) {
	var all []model.Doctor
	for _, d := range m.doctors {
		if filters != nil {
			if !filters.IncludeInactive && !d.IsActive {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(d.FullName(), filters.Keyword) {
				continue
			}
		}
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastName < all[j].LastName })
	return paginate(all, offset, limit)
}

func (m *mockDoctorRepo) Update(_ context.Context, doctor *model.Doctor) error {
	m.doctors[doctor.DoctorID] = doctor
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.doctors, id)
	return nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	rooms map[string]*model.Room
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[string]*model.Room)}
}

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	if room.RoomID == "" {
		room.RoomID = fmt.Sprintf("room-%d", len(m.rooms)+1)
	}
	m.rooms[room.RoomID] = room
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) GetByName(_ context.Context, name string) (*model.Room, error) {
	for _, r := range m.rooms {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) List(_ context.Context, filters *repository.CatalogFilters, offset, limit int) ([]model.Room, int64, error) {
	var all []model.Room
	for _, r := range m.rooms {
		if filters != nil {
			if !filters.IncludeInactive && !r.IsActive {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(r.Name, filters.Keyword) {
				continue
			}
		}
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, offset, limit)
}

func (m *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	m.rooms[room.RoomID] = room
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.rooms, id)
	return nil
}

// ── Mock TreatmentRepository ──

type mockTreatmentRepo struct {
	treatments map[string]*model.Treatment
}

func newMockTreatmentRepo() *mockTreatmentRepo {
	return &mockTreatmentRepo{treatments: make(map[string]*model.Treatment)}
}

func (m *mockTreatmentRepo) Create(_ context.Context, t *model.Treatment) error {
	if t.TreatmentID == "" {
		t.TreatmentID = fmt.Sprintf("trt-%d", len(m.treatments)+1)
	}
	m.treatments[t.TreatmentID] = t
	return nil
}

func (m *mockTreatmentRepo) GetByID(_ context.Context, id string) (*model.Treatment, error) {
	if t, ok := m.treatments[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTreatmentRepo) List(_ context.Context, filters *repository.CatalogFilters, offset, limit int) ([]model.Treatment, int64, error) {
	var all []model.Treatment
	for _, t := range m.treatments {
		if filters != nil {
			if !filters.IncludeInactive && !t.IsActive {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(t.Name, filters.Keyword) {
				continue
			}
		}
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, offset, limit)
}

func (m *mockTreatmentRepo) Update(_ context.Context, t *model.Treatment) error {
	m.treatments[t.TreatmentID] = t
	return nil
}

func (m *mockTreatmentRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.treatments, id)
	return nil
}

// ── Mock PatientRepository ──

type mockPatientRepo struct {
	patients map[string]*model.Patient
	batchErr error
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[string]*model.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *model.Patient) error {
	if p.PatientID == "" {
		p.PatientID = fmt.Sprintf("pat-%d", len(m.patients)+1)
	}
	m.patients[p.PatientID] = p
	return nil
}

func (m *mockPatientRepo) BatchCreate(ctx context.Context, patients []model.Patient) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	for i := range patients {
		p := patients[i]
		_ = m.Create(ctx, &p)
	}
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id string) (*model.Patient, error) {
	if p, ok := m.patients[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPatientRepo) GetByDocumentID(_ context.Context, documentID string) (*model.Patient, error) {
	for _, p := range m.patients {
		if p.DocumentID == documentID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPatientRepo) List(_ context.Context, filters *repository.PatientListFilters, offset, limit int) ([]model.Patient, int64, error) {
	var all []model.Patient
	for _, p := range m.patients {
		if filters != nil {
			if !filters.IncludeBlocked && p.IsBlocked {
				continue
			}
			if kw := filters.Keyword; kw != "" &&
				!strings.Contains(p.FullName(), kw) && !strings.Contains(p.DocumentID, kw) && !strings.Contains(p.Phone, kw) {
				continue
			}
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastName < all[j].LastName })
	return paginate(all, offset, limit)
}

func (m *mockPatientRepo) Update(_ context.Context, p *model.Patient) error {
	m.patients[p.PatientID] = p
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.patients, id)
	return nil
}

// ── Mock AppointmentRepository ──

// mockAppointmentRepo 存储副本，读取时按需挂载关联实体（模拟 Preload）
type mockAppointmentRepo struct {
	appts     map[string]*model.Appointment
	seq       int
	locks     [][]string
	createErr error

	patients   *mockPatientRepo
	doctors    *mockDoctorRepo
	rooms      *mockRoomRepo
	treatments *mockTreatmentRepo
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[string]*model.Appointment)}
}

func (m *mockAppointmentRepo) put(a *model.Appointment) {
	cp := *a
	cp.Patient, cp.Doctor, cp.Room, cp.Treatment = nil, nil, nil, nil
	m.appts[a.AppointmentID] = &cp
}

func (m *mockAppointmentRepo) load(a *model.Appointment) model.Appointment {
	cp := *a
	if m.patients != nil {
		cp.Patient = m.patients.patients[a.PatientID]
	}
	if m.doctors != nil {
		cp.Doctor = m.doctors.doctors[a.DoctorID]
	}
	if m.rooms != nil {
		cp.Room = m.rooms.rooms[a.RoomID]
	}
	if m.treatments != nil {
		cp.Treatment = m.treatments.treatments[a.TreatmentID]
	}
	return cp
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if a.AppointmentID == "" {
		m.seq++
		a.AppointmentID = fmt.Sprintf("appt-%d", m.seq)
	}
	if a.Version == 0 {
		a.Version = 1
	}
	m.put(a)
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	if a, ok := m.appts[id]; ok {
		loaded := m.load(a)
		return &loaded, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) filter(f *model.AppointmentFilter) []model.Appointment {
	var result []model.Appointment
	for _, a := range m.appts {
		day := a.Date.Format("2006-01-02")
		if f != nil {
			if f.From != nil && day < f.From.Format("2006-01-02") {
				continue
			}
			if f.To != nil && day > f.To.Format("2006-01-02") {
				continue
			}
			if f.DoctorID != "" && a.DoctorID != f.DoctorID {
				continue
			}
			if f.RoomID != "" && a.RoomID != f.RoomID {
				continue
			}
			if f.PatientID != "" && a.PatientID != f.PatientID {
				continue
			}
			if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
				continue
			}
		}
		result = append(result, m.load(a))
	}
	return result
}

func (m *mockAppointmentRepo) List(_ context.Context, f *model.AppointmentFilter, offset, limit int) ([]model.Appointment, int64, error) {
	all := m.filter(f)
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })
	return paginate(all, offset, limit)
}

func (m *mockAppointmentRepo) ListAll(_ context.Context, f *model.AppointmentFilter) ([]model.Appointment, error) {
	all := m.filter(f)
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	return all, nil
}

func (m *mockAppointmentRepo) ListForConflict(_ context.Context, date time.Time, roomID, doctorID string) ([]model.Appointment, error) {
	var result []model.Appointment
	day := date.Format("2006-01-02")
	for _, a := range m.appts {
		if a.Date.Format("2006-01-02") != day || a.Status == model.StatusCancelled {
			continue
		}
		if a.RoomID == roomID || a.DoctorID == doctorID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAppointmentRepo) ListByDoctorOnDate(_ context.Context, doctorID string, date time.Time) ([]model.Appointment, error) {
	var result []model.Appointment
	day := date.Format("2006-01-02")
	for _, a := range m.appts {
		if a.Date.Format("2006-01-02") == day && a.DoctorID == doctorID && a.Status != model.StatusCancelled {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAppointmentRepo) CountActiveFrom(_ context.Context, column, id string, from time.Time) (int64, error) {
	var count int64
	for _, a := range m.appts {
		var v string
		switch column {
		case "doctor_id":
			v = a.DoctorID
		case "room_id":
			v = a.RoomID
		case "patient_id":
			v = a.PatientID
		case "treatment_id":
			v = a.TreatmentID
		default:
			return 0, gorm.ErrInvalidField
		}
		if v == id && a.Status.OccupiesAgenda() && !a.Status.IsTerminal() && a.EndTime.After(from) {
			count++
		}
	}
	return count, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	stored, ok := m.appts[a.AppointmentID]
	if !ok || stored.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	m.put(a)
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.appts, id)
	return nil
}

func (m *mockAppointmentRepo) LockResources(_ context.Context, keys ...string) error {
	m.locks = append(m.locks, keys)
	return nil
}

func containsStatus(list []model.AppointmentStatus, s model.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct {
	cfg *model.SystemConfig
}

func newMockSystemConfigRepo() *mockSystemConfigRepo {
	return &mockSystemConfigRepo{
		cfg: &model.SystemConfig{
			Singleton:               true,
			ClinicName:              "Clínica Test",
			StartHour:               9,
			EndHour:                 20,
			SlotGranularityMinutes:  30,
			DefaultTreatmentMinutes: 60,
			ReminderEnabled:         true,
		},
	}
}

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	if m.cfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *mockSystemConfigRepo) Update(_ context.Context, cfg *model.SystemConfig) error {
	cp := *cfg
	m.cfg = &cp
	return nil
}

// ── Mock ReminderRepository ──

type mockReminderRepo struct {
	reminders map[string]*model.AppointmentReminder // key: appointment_id|channel
}

func newMockReminderRepo() *mockReminderRepo {
	return &mockReminderRepo{reminders: make(map[string]*model.AppointmentReminder)}
}

func (m *mockReminderRepo) CreateIfAbsent(_ context.Context, r *model.AppointmentReminder) (bool, error) {
	key := r.AppointmentID + "|" + r.Channel
	if _, ok := m.reminders[key]; ok {
		return false, nil
	}
	if r.ReminderID == "" {
		r.ReminderID = "rem-" + r.AppointmentID
	}
	cp := *r
	m.reminders[key] = &cp
	return true, nil
}

func (m *mockReminderRepo) GetByAppointment(_ context.Context, appointmentID, channel string) (*model.AppointmentReminder, error) {
	if r, ok := m.reminders[appointmentID+"|"+channel]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReminderRepo) byID(id string) *model.AppointmentReminder {
	for _, r := range m.reminders {
		if r.ReminderID == id {
			return r
		}
	}
	return nil
}

func (m *mockReminderRepo) MarkPublished(_ context.Context, id string, at time.Time) error {
	r := m.byID(id)
	if r == nil {
		return gorm.ErrRecordNotFound
	}
	r.Status = model.ReminderPublished
	r.PublishedAt = &at
	r.LastError = ""
	return nil
}

func (m *mockReminderRepo) MarkFailed(_ context.Context, id string, reason string) error {
	r := m.byID(id)
	if r == nil {
		return gorm.ErrRecordNotFound
	}
	r.Status = model.ReminderFailed
	r.LastError = reason
	return nil
}

// ── Mock Publisher ──

type mockPublisher struct {
	events []events.Event
	err    error
}

func (p *mockPublisher) Publish(_ context.Context, evt events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) types() []string {
	var result []string
	for _, e := range p.events {
		result = append(result, e.Type)
	}
	return result
}

// ── 测试辅助 ──

// testRepos 测试用 Repository 聚合及其底层 mock
type testRepos struct {
	repo         *repository.Repository
	user         *mockUserRepo
	doctor       *mockDoctorRepo
	patient      *mockPatientRepo
	room         *mockRoomRepo
	treatment    *mockTreatmentRepo
	appointment  *mockAppointmentRepo
	systemConfig *mockSystemConfigRepo
	reminder     *mockReminderRepo
}

func newTestRepos() *testRepos {
	r := &testRepos{
		user:         newMockUserRepo(),
		doctor:       newMockDoctorRepo(),
		patient:      newMockPatientRepo(),
		room:         newMockRoomRepo(),
		treatment:    newMockTreatmentRepo(),
		appointment:  newMockAppointmentRepo(),
		systemConfig: newMockSystemConfigRepo(),
		reminder:     newMockReminderRepo(),
	}
	r.appointment.patients = r.patient
	r.appointment.doctors = r.doctor
	r.appointment.rooms = r.room
	r.appointment.treatments = r.treatment

	r.repo = &repository.Repository{
		User:         r.user,
		Doctor:       r.doctor,
		Patient:      r.patient,
		Room:         r.room,
		Treatment:    r.treatment,
		Appointment:  r.appointment,
		SystemConfig: r.systemConfig,
		Reminder:     r.reminder,
	}
	return r
}

func paginate[T any](all []T, offset, limit int) ([]T, int64, error) {
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}
