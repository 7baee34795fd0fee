package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/service"
	pkgerrors "clinica-estetica/pkg/errors"
	"clinica-estetica/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testPatientID   = "11111111-1111-1111-1111-111111111111"
	testDoctorID    = "22222222-2222-2222-2222-222222222222"
	testRoomID      = "33333333-3333-3333-3333-333333333333"
	testTreatmentID = "44444444-4444-4444-4444-444444444444"
	otherDoctorID   = "55555555-5555-5555-5555-555555555555"
)

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult      *dto.TokenResponse
	loginErr         error
	refreshResult    *dto.TokenResponse
	refreshErr       error
	refreshToken     string
	logoutErr        error
	logoutJTI        string
	getCurrentResult *dto.UserDetailResponse
	getCurrentErr    error
	changePassErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, token string) (*dto.TokenResponse, error) {
	m.refreshToken = token
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time, _ string) error {
	m.logoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserDetailResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}

// ── Mock AppointmentService ──

type mockAppointmentService struct {
	createResult   *dto.AppointmentResponse
	createErr      error
	getResult      *dto.AppointmentResponse
	getErr         error
	listResult     []dto.AppointmentResponse
	listTotal      int64
	listErr        error
	listScope      service.AccessScope
	updateResult   *dto.AppointmentResponse
	updateErr      error
	statusResult   *dto.AppointmentResponse
	statusErr      error
	statusCalled   bool
	confirmResult  *dto.AppointmentResponse
	confirmErr     error
	deleteErr      error
	checkResult    *dto.CheckAvailabilityResponse
	checkErr       error
	slotsResult    []dto.SlotResponse
	slotsErr       error
	calendarResult []dto.CalendarEvent
	calendarErr    error
	calendarScope  service.AccessScope
	historyResult  []dto.AppointmentResponse
	historyTotal   int64
	historyErr     error
}

func (m *mockAppointmentService) Create(_ context.Context, _ *dto.CreateAppointmentRequest, _ string) (*dto.AppointmentResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockAppointmentService) GetByID(_ context.Context, _ string) (*dto.AppointmentResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockAppointmentService) List(_ context.Context, _ *dto.AppointmentListRequest, scope service.AccessScope) ([]dto.AppointmentResponse, int64, error) {
	m.listScope = scope
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockAppointmentService) Update(_ context.Context, _ string, _ *dto.UpdateAppointmentRequest, _ string) (*dto.AppointmentResponse, error) {
	return m.updateResult, m.updateErr
}
func (m *mockAppointmentService) ChangeStatus(_ context.Context, _ string, _ *dto.ChangeStatusRequest, _ string) (*dto.AppointmentResponse, error) {
	m.statusCalled = true
	return m.statusResult, m.statusErr
}
func (m *mockAppointmentService) Confirm(_ context.Context, _ string, _ string) (*dto.AppointmentResponse, error) {
	return m.confirmResult, m.confirmErr
}
func (m *mockAppointmentService) Delete(_ context.Context, _ string, _ string) error {
	return m.deleteErr
}
func (m *mockAppointmentService) CheckAvailability(_ context.Context, _ *dto.CheckAvailabilityRequest) (*dto.CheckAvailabilityResponse, error) {
	return m.checkResult, m.checkErr
}
func (m *mockAppointmentService) AvailableSlots(_ context.Context, _ *dto.AvailableSlotsRequest) ([]dto.SlotResponse, error) {
	return m.slotsResult, m.slotsErr
}
func (m *mockAppointmentService) Calendar(_ context.Context, _ *dto.CalendarRequest, scope service.AccessScope) ([]dto.CalendarEvent, error) {
	m.calendarScope = scope
	return m.calendarResult, m.calendarErr
}
func (m *mockAppointmentService) PatientHistory(_ context.Context, _ string, _ *dto.PaginationRequest) ([]dto.AppointmentResponse, int64, error) {
	return m.historyResult, m.historyTotal, m.historyErr
}

// ── Mock PatientService ──

type mockPatientService struct {
	getResult    *dto.PatientResponse
	getErr       error
	parseRows    []service.ImportPatientRow
	parseErr     error
	importResult *dto.ImportPatientResponse
	importErr    error
	importedRows int
}

func (m *mockPatientService) Create(_ context.Context, _ *dto.CreatePatientRequest, _ string) (*dto.PatientResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockPatientService) GetByID(_ context.Context, _ string) (*dto.PatientResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockPatientService) List(_ context.Context, _ *dto.PatientListRequest) ([]dto.PatientResponse, int64, error) {
	return nil, 0, nil
}
func (m *mockPatientService) Update(_ context.Context, _ string, _ *dto.UpdatePatientRequest, _ string) (*dto.PatientResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockPatientService) Delete(_ context.Context, _ string, _ string) error {
	return m.getErr
}
func (m *mockPatientService) Block(_ context.Context, _ string, _ string, _ string) (*dto.PatientResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockPatientService) Unblock(_ context.Context, _ string, _ string) (*dto.PatientResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockPatientService) ParseImportFile(_ io.Reader) ([]service.ImportPatientRow, error) {
	return m.parseRows, m.parseErr
}
func (m *mockPatientService) ImportPatients(_ context.Context, rows []service.ImportPatientRow, _ string) (*dto.ImportPatientResponse, error) {
	m.importedRows = len(rows)
	return m.importResult, m.importErr
}

// ── Mock RoomService ──

type mockRoomService struct {
	result *dto.RoomResponse
	err    error
}

func (m *mockRoomService) Create(_ context.Context, _ *dto.CreateRoomRequest, _ string) (*dto.RoomResponse, error) {
	return m.result, m.err
}
func (m *mockRoomService) GetByID(_ context.Context, _ string) (*dto.RoomResponse, error) {
	return m.result, m.err
}
func (m *mockRoomService) List(_ context.Context, _ *dto.CatalogListRequest) ([]dto.RoomResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockRoomService) Update(_ context.Context, _ string, _ *dto.UpdateRoomRequest, _ string) (*dto.RoomResponse, error) {
	return m.result, m.err
}
func (m *mockRoomService) Delete(_ context.Context, _ string, _ string) error {
	return m.err
}

// ── Mock TreatmentService ──

type mockTreatmentService struct {
	result *dto.TreatmentResponse
	err    error
}

func (m *mockTreatmentService) Create(_ context.Context, _ *dto.CreateTreatmentRequest, _ string) (*dto.TreatmentResponse, error) {
	return m.result, m.err
}
func (m *mockTreatmentService) GetByID(_ context.Context, _ string) (*dto.TreatmentResponse, error) {
	return m.result, m.err
}
func (m *mockTreatmentService) List(_ context.Context, _ *dto.CatalogListRequest) ([]dto.TreatmentResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockTreatmentService) Update(_ context.Context, _ string, _ *dto.UpdateTreatmentRequest, _ string) (*dto.TreatmentResponse, error) {
	return m.result, m.err
}
func (m *mockTreatmentService) Delete(_ context.Context, _ string, _ string) error {
	return m.err
}

// ── Mock SystemConfigService ──

type mockSystemConfigService struct {
	result *dto.SystemConfigResponse
	err    error
}

func (m *mockSystemConfigService) Get(_ context.Context) (*dto.SystemConfigResponse, error) {
	return m.result, m.err
}
func (m *mockSystemConfigService) Update(_ context.Context, _ *dto.UpdateSystemConfigRequest, _ string) (*dto.SystemConfigResponse, error) {
	return m.result, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	data     []byte
	filename string
	err      error
	called   bool
}

func (m *mockExportService) DailyAgenda(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	m.called = true
	return m.buf, m.filename, m.err
}
func (m *mockExportService) DoctorAgenda(_ context.Context, _, _, _ string) ([]byte, string, error) {
	m.called = true
	return m.data, m.filename, m.err
}

// ── Mock ReminderService ──

type mockReminderService struct {
	result *dto.ReminderRunResponse
	err    error
	date   string
}

func (m *mockReminderService) Run(_ context.Context, date string) (*dto.ReminderRunResponse, error) {
	m.date = date
	return m.result, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

func setAuth(c *gin.Context) {
	setAuthAs(c, model.RoleAdmin, "")
}

func setAuthAs(c *gin.Context, role, doctorID string) {
	c.Set("user_id", "test-user-id")
	c.Set("role", role)
	c.Set("doctor_id", doctorID)
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "recepcion",
		Password: "Test1234",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	// 验证 Set-Cookie 头
	cookie := findCookie(w, "refresh_token")
	if cookie == nil {
		t.Fatal("expected refresh_token cookie to be set")
	}
	if cookie.Value != "test-refresh-token" {
		t.Errorf("expected cookie value test-refresh-token, got %s", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("expected refresh_token cookie to be HttpOnly")
	}
	if cookie.MaxAge != 0 {
		t.Errorf("expected session cookie without remember_me, got max-age %d", cookie.MaxAge)
	}
}

func TestAuthHandler_Login_RememberMe(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock, nil)
	h.authCfg.RefreshTokenTTLRemember = 7 * 24 * time.Hour

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username:   "recepcion",
		Password:   "Test1234",
		RememberMe: true,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	cookie := findCookie(w, "refresh_token")
	if cookie == nil {
		t.Fatal("expected refresh_token cookie to be set")
	}
	if cookie.MaxAge != 7*24*3600 {
		t.Errorf("expected persistent cookie, got max-age %d", cookie.MaxAge)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"InvalidCredentials", service.ErrInvalidCredentials, 401, 11001},
		{"Disabled", service.ErrUserDisabled, 403, 11002},
		{"InternalError", errors.New("db down"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{loginErr: tt.err}, nil)

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
				Username: "recepcion",
				Password: "wrong",
			}))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.POST("/auth/login", h.Login)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAuthHandler_RefreshToken_Success(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{
		RefreshToken: "old-refresh",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshToken != "old-refresh" {
		t.Errorf("expected body token to be used, got %q", mock.refreshToken)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(map[string]string{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-refresh"})

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshToken != "cookie-refresh" {
		t.Errorf("expected cookie token to be used, got %q", mock.refreshToken)
	}
}

func TestAuthHandler_RefreshToken_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrTokenInvalid}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "revoked"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11003 {
		t.Errorf("expected code 11003, got %d", resp.Code)
	}
}

func TestAuthHandler_GetCurrentUser_Success(t *testing.T) {
	mock := &mockAuthService{
		getCurrentResult: &dto.UserDetailResponse{
			UserResponse: dto.UserResponse{ID: "test-user-id", Name: "Test User"},
		},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", func(c *gin.Context) {
		setAuth(c)
		h.GetCurrentUser(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", h.GetCurrentUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "Old12345",
		NewPassword: "New12345",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/auth/password", func(c *gin.Context) {
		setAuth(c)
		h.ChangePassword(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword_WeakPassword(t *testing.T) {
	mock := &mockAuthService{changePassErr: service.ErrWeakPassword}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "Old12345",
		NewPassword: "weakweak",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/auth/password", func(c *gin.Context) {
		setAuth(c)
		h.ChangePassword(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11005 {
		t.Errorf("expected code 11005, got %d", resp.Code)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	r := gin.New()
	r.POST("/auth/logout", func(c *gin.Context) {
		setAuth(c)
		h.Logout(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutJTI != "test-jti" {
		t.Errorf("expected jti test-jti to be blacklisted, got %q", mock.logoutJTI)
	}
	// 验证 Cookie 被清除（max-age = -1）
	if cookie := findCookie(w, "refresh_token"); cookie == nil || cookie.MaxAge >= 0 {
		t.Error("expected refresh_token cookie to be cleared")
	}
}

// ═══════════════════════════════════════════════════════════
// AppointmentHandler Tests
// ═══════════════════════════════════════════════════════════

func validBooking() dto.CreateAppointmentRequest {
	return dto.CreateAppointmentRequest{
		PatientID:   testPatientID,
		DoctorID:    testDoctorID,
		RoomID:      testRoomID,
		TreatmentID: testTreatmentID,
		Date:        "2030-03-15",
		StartTime:   "10:00",
		EndTime:     "11:00",
	}
}

func sampleAppointment(doctorID string) *dto.AppointmentResponse {
	return &dto.AppointmentResponse{
		ID:     "appt-1",
		Doctor: &dto.RefItem{ID: doctorID, Name: "Ana López"},
		Status: string(model.StatusScheduled),
	}
}

func TestAppointmentHandler_Create_Success(t *testing.T) {
	mock := &mockAppointmentService{createResult: sampleAppointment(testDoctorID)}
	h := NewAppointmentHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/appointments", jsonBody(validBooking()))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/appointments", func(c *gin.Context) {
		setAuthAs(c, model.RoleReception, "")
		h.CreateAppointment(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestAppointmentHandler_Create_BadPayload(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateAppointmentRequest)
	}{
		{"MissingPatient", func(r *dto.CreateAppointmentRequest) { r.PatientID = "" }},
		{"BadDate", func(r *dto.CreateAppointmentRequest) { r.Date = "15/03/2030" }},
		{"BadStart", func(r *dto.CreateAppointmentRequest) { r.StartTime = "10h" }},
		{"RoomNotUUID", func(r *dto.CreateAppointmentRequest) { r.RoomID = "cabina-1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAppointmentHandler(&mockAppointmentService{})
			body := validBooking()
			tt.mutate(&body)

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/appointments", jsonBody(body))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.POST("/appointments", func(c *gin.Context) {
				setAuth(c)
				h.CreateAppointment(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if resp := parseResponse(w); resp.Code != 10001 {
				t.Errorf("expected code 10001, got %d", resp.Code)
			}
		})
	}
}

func TestAppointmentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrAppointmentNotFound, 404, 30001},
		{"Conflict", service.ErrAppointmentConflict, 409, 30002},
		{"TimeRange", service.ErrInvalidTimeRange, 400, 30003},
		{"DateTime", service.ErrInvalidDateTime, 400, 30004},
		{"Transition", service.ErrInvalidStatusTransition, 400, 30007},
		{"Closed", service.ErrAppointmentClosed, 400, 30008},
		{"OptimisticLock", pkgerrors.ErrOptimisticLock, 409, 30010},
		{"PatientBlocked", service.ErrPatientBlocked, 400, 24002},
		{"DoctorInactive", service.ErrDoctorInactive, 400, 21002},
		{"RoomNotFound", service.ErrRoomNotFound, 404, 22001},
		{"TreatmentInactive", service.ErrTreatmentInactive, 400, 23002},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAppointmentService{updateErr: tt.err}
			h := NewAppointmentHandler(mock)

			_, _, w := setupGin()
			req := httptest.NewRequest("PATCH", "/appointments/appt-1", jsonBody(map[string]string{"start_time": "12:00"}))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.PATCH("/appointments/:id", func(c *gin.Context) {
				setAuth(c)
				h.UpdateAppointment(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAppointmentHandler_Get_DoctorScope(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		doctorID   string
		wantStatus int
	}{
		{"Admin", model.RoleAdmin, "", 200},
		{"OwnDoctor", model.RoleDoctor, testDoctorID, 200},
		{"OtherDoctor", model.RoleDoctor, otherDoctorID, 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAppointmentService{getResult: sampleAppointment(testDoctorID)}
			h := NewAppointmentHandler(mock)

			_, _, w := setupGin()
			req := httptest.NewRequest("GET", "/appointments/appt-1", nil)

			r := gin.New()
			r.GET("/appointments/:id", func(c *gin.Context) {
				setAuthAs(c, tt.role, tt.doctorID)
				h.GetAppointment(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestAppointmentHandler_ChangeStatus_OtherDoctorRejected(t *testing.T) {
	mock := &mockAppointmentService{getResult: sampleAppointment(testDoctorID)}
	h := NewAppointmentHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("PATCH", "/appointments/appt-1/status", jsonBody(dto.ChangeStatusRequest{Status: "completed"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PATCH("/appointments/:id/status", func(c *gin.Context) {
		setAuthAs(c, model.RoleDoctor, otherDoctorID)
		h.ChangeStatus(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if mock.statusCalled {
		t.Error("ChangeStatus must not run for another doctor's appointment")
	}
}

func TestAppointmentHandler_ChangeStatus_UnknownStatus(t *testing.T) {
	h := NewAppointmentHandler(&mockAppointmentService{getResult: sampleAppointment(testDoctorID)})

	_, _, w := setupGin()
	req := httptest.NewRequest("PATCH", "/appointments/appt-1/status", jsonBody(dto.ChangeStatusRequest{Status: "archived"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PATCH("/appointments/:id/status", func(c *gin.Context) {
		setAuth(c)
		h.ChangeStatus(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAppointmentHandler_List_PassesScope(t *testing.T) {
	mock := &mockAppointmentService{listResult: []dto.AppointmentResponse{*sampleAppointment(testDoctorID)}, listTotal: 1}
	h := NewAppointmentHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/appointments?from=2030-03-01&to=2030-03-31&status=scheduled", nil)

	r := gin.New()
	r.GET("/appointments", func(c *gin.Context) {
		setAuthAs(c, model.RoleDoctor, testDoctorID)
		h.ListAppointments(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.listScope.Role != model.RoleDoctor || mock.listScope.DoctorID != testDoctorID {
		t.Errorf("unexpected scope: %+v", mock.listScope)
	}
}

func TestAppointmentHandler_Calendar(t *testing.T) {
	mock := &mockAppointmentService{calendarResult: []dto.CalendarEvent{{ID: "appt-1", Title: "Lucía García - Peeling"}}}
	h := NewAppointmentHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/appointments/calendar?from=2030-03-10&to=2030-03-16", nil)

	r := gin.New()
	r.GET("/appointments/calendar", func(c *gin.Context) {
		setAuthAs(c, model.RoleReception, "")
		h.Calendar(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.calendarScope.Role != model.RoleReception {
		t.Errorf("unexpected scope: %+v", mock.calendarScope)
	}
}

func TestAppointmentHandler_Calendar_MissingRange(t *testing.T) {
	h := NewAppointmentHandler(&mockAppointmentService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/appointments/calendar?from=2030-03-10", nil)

	r := gin.New()
	r.GET("/appointments/calendar", func(c *gin.Context) {
		setAuth(c)
		h.Calendar(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAppointmentHandler_AvailableSlots(t *testing.T) {
	mock := &mockAppointmentService{slotsResult: []dto.SlotResponse{{Display: "09:00 - 10:00"}}}
	h := NewAppointmentHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/appointments/available-slots?date=2030-03-15&doctor_id="+testDoctorID, nil)

	r := gin.New()
	r.GET("/appointments/available-slots", func(c *gin.Context) {
		setAuth(c)
		h.AvailableSlots(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAppointmentHandler_CheckAvailability(t *testing.T) {
	mock := &mockAppointmentService{checkResult: &dto.CheckAvailabilityResponse{Available: false}}
	h := NewAppointmentHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/appointments/check-availability", jsonBody(dto.CheckAvailabilityRequest{
		Date:      "2030-03-15",
		StartTime: "10:00",
		EndTime:   "11:00",
		RoomID:    testRoomID,
		DoctorID:  testDoctorID,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/appointments/check-availability", func(c *gin.Context) {
		setAuth(c)
		h.CheckAvailability(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAppointmentHandler_Delete_NotDeletable(t *testing.T) {
	h := NewAppointmentHandler(&mockAppointmentService{deleteErr: service.ErrAppointmentNotDeletable})

	_, _, w := setupGin()
	req := httptest.NewRequest("DELETE", "/appointments/appt-1", nil)

	r := gin.New()
	r.DELETE("/appointments/:id", func(c *gin.Context) {
		setAuth(c)
		h.DeleteAppointment(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 30009 {
		t.Errorf("expected code 30009, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// PatientHandler Tests
// ═══════════════════════════════════════════════════════════

func multipartFile(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	mw.Close()
	return body, mw.FormDataContentType()
}

func TestPatientHandler_Import_Success(t *testing.T) {
	mock := &mockPatientService{
		parseRows:    []service.ImportPatientRow{{Row: 2}, {Row: 3}},
		importResult: &dto.ImportPatientResponse{Total: 2, Success: 2},
	}
	h := NewPatientHandler(mock, &mockAppointmentService{})

	body, contentType := multipartFile(t, "file", "pacientes.xlsx", []byte("xlsx"))
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/patients/import", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.POST("/patients/import", func(c *gin.Context) {
		setAuth(c)
		h.ImportPatients(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.importedRows != 2 {
		t.Errorf("expected 2 rows imported, got %d", mock.importedRows)
	}
}

func TestPatientHandler_Import_MissingFile(t *testing.T) {
	h := NewPatientHandler(&mockPatientService{}, &mockAppointmentService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/patients/import", nil)

	r := gin.New()
	r.POST("/patients/import", func(c *gin.Context) {
		setAuth(c)
		h.ImportPatients(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestPatientHandler_Import_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"NoData", service.ErrImportNoData, 24101},
		{"TooMany", service.ErrImportTooManyRows, 24102},
		{"BadHeader", service.ErrImportBadHeader, 24103},
		{"Unreadable", service.ErrImportUnreadable, 24104},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPatientHandler(&mockPatientService{parseErr: tt.err}, &mockAppointmentService{})

			body, contentType := multipartFile(t, "file", "pacientes.xlsx", []byte("xlsx"))
			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/patients/import", body)
			req.Header.Set("Content-Type", contentType)

			r := gin.New()
			r.POST("/patients/import", func(c *gin.Context) {
				setAuth(c)
				h.ImportPatients(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestPatientHandler_History(t *testing.T) {
	tests := []struct {
		name       string
		patientErr error
		wantStatus int
	}{
		{"Found", nil, 200},
		{"PatientNotFound", service.ErrPatientNotFound, 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patients := &mockPatientService{getResult: &dto.PatientResponse{ID: "pat-1"}, getErr: tt.patientErr}
			appts := &mockAppointmentService{historyResult: []dto.AppointmentResponse{{ID: "appt-1"}}, historyTotal: 1}
			h := NewPatientHandler(patients, appts)

			_, _, w := setupGin()
			req := httptest.NewRequest("GET", "/patients/pat-1/appointments?page=1&page_size=10", nil)

			r := gin.New()
			r.GET("/patients/:id/appointments", func(c *gin.Context) {
				setAuth(c)
				h.GetPatientHistory(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestPatientHandler_Create_DuplicateDocument(t *testing.T) {
	h := NewPatientHandler(&mockPatientService{getErr: service.ErrDocumentIDExists}, &mockAppointmentService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/patients", jsonBody(dto.CreatePatientRequest{
		FirstName:  "Lucía",
		LastName:   "García",
		Phone:      "600111222",
		DocumentID: "12345678Z",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/patients", func(c *gin.Context) {
		setAuth(c)
		h.CreatePatient(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 24004 {
		t.Errorf("expected code 24004, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// Catalog Handler Tests
// ═══════════════════════════════════════════════════════════

func TestRoomHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrRoomNotFound, 404, 22001},
		{"NameExists", service.ErrRoomNameExists, 409, 22003},
		{"HasBooking", service.ErrRoomHasBooking, 409, 22004},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRoomHandler(&mockRoomService{err: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("DELETE", "/rooms/room-1", nil)

			r := gin.New()
			r.DELETE("/rooms/:id", func(c *gin.Context) {
				setAuth(c)
				h.DeleteRoom(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestTreatmentHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"Success", nil, 201},
		{"NegativePrice", service.ErrInvalidPrice, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTreatmentHandler(&mockTreatmentService{result: &dto.TreatmentResponse{ID: "trt-1"}, err: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/treatments", bytes.NewReader([]byte(`{"name":"Peeling","duration":45,"price":"-1.00"}`)))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.POST("/treatments", func(c *gin.Context) {
				setAuth(c)
				h.CreateTreatment(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// SystemConfigHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSystemConfigHandler_Update_InvalidHours(t *testing.T) {
	h := NewSystemConfigHandler(&mockSystemConfigService{err: service.ErrInvalidWorkingHours})

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/system-config", jsonBody(map[string]int{"start_hour": 20, "end_hour": 9}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/system-config", func(c *gin.Context) {
		setAuth(c)
		h.UpdateConfig(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 40002 {
		t.Errorf("expected code 40002, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_DailyAgenda_Success(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("excel content"),
		filename: "agenda_2030-03-15.xlsx",
	}
	h := NewExportHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/export/agenda?date=2030-03-15", nil)

	r := gin.New()
	r.GET("/export/agenda", h.ExportDailyAgenda)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type: %s", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if cd == "" {
		t.Error("expected Content-Disposition header")
	}
}

func TestExportHandler_DailyAgenda_MissingDate(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/export/agenda", nil)

	r := gin.New()
	r.GET("/export/agenda", h.ExportDailyAgenda)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_DoctorAgenda(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		doctorID   string
		err        error
		wantStatus int
		wantCalled bool
	}{
		{"Admin", model.RoleAdmin, "", nil, 200, true},
		{"OwnDoctor", model.RoleDoctor, testDoctorID, nil, 200, true},
		{"OtherDoctor", model.RoleDoctor, otherDoctorID, nil, 403, false},
		{"RangeTooWide", model.RoleAdmin, "", service.ErrExportRangeTooWide, 400, true},
		{"DoctorNotFound", model.RoleAdmin, "", service.ErrDoctorNotFound, 404, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockExportService{data: []byte("BEGIN:VCALENDAR"), filename: "agenda.ics", err: tt.err}
			h := NewExportHandler(mock)

			_, _, w := setupGin()
			req := httptest.NewRequest("GET", "/export/doctors/"+testDoctorID+"/agenda.ics?from=2030-03-01&to=2030-03-31", nil)

			r := gin.New()
			r.GET("/export/doctors/:id/agenda.ics", func(c *gin.Context) {
				setAuthAs(c, tt.role, tt.doctorID)
				h.ExportDoctorAgenda(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if mock.called != tt.wantCalled {
				t.Errorf("expected export called=%v, got %v", tt.wantCalled, mock.called)
			}
			if tt.wantStatus == 200 && w.Header().Get("Content-Type") != "text/calendar; charset=utf-8" {
				t.Errorf("unexpected content type: %s", w.Header().Get("Content-Type"))
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// ReminderHandler Tests
// ═══════════════════════════════════════════════════════════

func TestReminderHandler_Run(t *testing.T) {
	mock := &mockReminderService{result: &dto.ReminderRunResponse{Date: "2030-03-15", Total: 3, Published: 3}}
	h := NewReminderHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/reminders/run?date=2030-03-15", nil)

	r := gin.New()
	r.POST("/reminders/run", h.RunReminders)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.date != "2030-03-15" {
		t.Errorf("expected date to be forwarded, got %q", mock.date)
	}
}

func TestReminderHandler_Run_InvalidDate(t *testing.T) {
	h := NewReminderHandler(&mockReminderService{err: service.ErrInvalidDateTime})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/reminders/run?date=manana", nil)

	r := gin.New()
	r.POST("/reminders/run", h.RunReminders)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
