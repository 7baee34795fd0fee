package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
	ErrExportRangeTooWide = errors.New("导出日期范围过大")
)

// 医生日程订阅的最大跨度（天）
const maxAgendaDays = 92

// ExportService 导出业务接口
//
//   - 日程表以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
//   - 医生日程以 iCalendar (.ics) 输出，供日历客户端订阅
type ExportService interface {
	// DailyAgenda 导出某日全部预约为 Excel
	DailyAgenda(ctx context.Context, date string) (*bytes.Buffer, string, error)
	// DoctorAgenda 导出医生在日期范围内的预约为 iCalendar
	DoctorAgenda(ctx context.Context, doctorID, from, to string) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	policy *PolicyLoader
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, policy *PolicyLoader, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, policy: policy, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// DailyAgenda — 导出当日日程表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "日程表"
//   - 第 1 行：诊所名 + 日期（合并单元格）
//   - 第 2 行表头：时间 | 患者 | 医生 | 诊室 | 治疗项目 | 状态 | 备注
//   - 数据行按开始时间、诊室排序；已取消的预约也列出，便于前台核对

func (s *exportService) DailyAgenda(ctx context.Context, date string) (*bytes.Buffer, string, error) {
	loc := s.policy.Location()
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, "", ErrInvalidDateTime
	}

	appts, err := s.repo.Appointment.ListAll(ctx, &model.AppointmentFilter{From: &day, To: &day})
	if err != nil {
		s.logger.Error("查询当日预约失败", zap.String("date", date), zap.Error(err))
		return nil, "", err
	}
	sort.SliceStable(appts, func(i, j int) bool {
		if !appts[i].StartTime.Equal(appts[j].StartTime) {
			return appts[i].StartTime.Before(appts[j].StartTime)
		}
		return appts[i].RoomID < appts[j].RoomID
	})

	clinicName := s.clinicName(ctx)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "日程表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"时间", "患者", "医生", "诊室", "治疗项目", "状态", "备注"}
	widths := []float64{14, 24, 22, 14, 24, 12, 36}
	for i, w := range widths {
		f.SetColWidth(sheetName, colName(i), colName(i), w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s", clinicName, date))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	row = 3
	for i := range appts {
		a := &appts[i]
		values := []string{
			fmt.Sprintf("%s-%s", a.StartTime.In(loc).Format("15:04"), a.EndTime.In(loc).Format("15:04")),
			refName(a.Patient != nil, func() string { return a.Patient.FullName() }, a.PatientID),
			refName(a.Doctor != nil, func() string { return a.Doctor.FullName() }, a.DoctorID),
			refName(a.Room != nil, func() string { return a.Room.Name }, a.RoomID),
			refName(a.Treatment != nil, func() string { return a.Treatment.Name }, a.TreatmentID),
			string(a.Status),
			a.Observations,
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		row++
	}
	if len(appts) == 0 {
		f.SetCellValue(sheetName, cell("A", row), "当日无预约")
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("agenda_%s.xlsx", date)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// DoctorAgenda — 导出医生日程 (.ics)
// ═══════════════════════════════════════════════════════════
//
// 已取消的预约以 STATUS:CANCELLED 输出，订阅方据此从日历中移除

func (s *exportService) DoctorAgenda(ctx context.Context, doctorID, from, to string) ([]byte, string, error) {
	loc := s.policy.Location()
	fromDay, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return nil, "", ErrInvalidDateTime
	}
	toDay, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return nil, "", ErrInvalidDateTime
	}
	if toDay.Before(fromDay) {
		return nil, "", ErrInvalidDateRange
	}
	if toDay.Sub(fromDay) > maxAgendaDays*24*time.Hour {
		return nil, "", ErrExportRangeTooWide
	}

	doctor, err := s.repo.Doctor.GetByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDoctorNotFound
		}
		s.logger.Error("查询医生失败", zap.String("id", doctorID), zap.Error(err))
		return nil, "", err
	}

	appts, err := s.repo.Appointment.ListAll(ctx, &model.AppointmentFilter{
		From:     &fromDay,
		To:       &toDay,
		DoctorID: doctorID,
	})
	if err != nil {
		s.logger.Error("查询医生预约失败", zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, "", err
	}

	clinicName := s.clinicName(ctx)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//" + clinicName + "//Agenda//ES")
	cal.SetXWRCalName(clinicName + " - " + doctor.FullName())
	cal.SetXWRTimezone(loc.String())

	stamp := time.Now().UTC()
	for i := range appts {
		a := &appts[i]
		event := cal.AddEvent(a.AppointmentID + "@clinica-estetica")
		event.SetDtStampTime(stamp)
		event.SetStartAt(a.StartTime.UTC())
		event.SetEndAt(a.EndTime.UTC())
		event.SetSummary(calendarTitle(a))
		event.SetStatus(icsStatus(a.Status))
		if a.Room != nil {
			event.SetLocation(a.Room.Name)
		}
		if a.Observations != "" {
			event.SetDescription(a.Observations)
		}
	}

	filename := fmt.Sprintf("agenda_%s_%s_%s.ics", doctorID, from, to)
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

func (s *exportService) clinicName(ctx context.Context) string {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil || cfg.ClinicName == "" {
		return "Clínica"
	}
	return cfg.ClinicName
}

func icsStatus(status model.AppointmentStatus) ics.ObjectStatus {
	switch status {
	case model.StatusCancelled, model.StatusNoShow:
		return ics.ObjectStatusCancelled
	case model.StatusScheduled:
		return ics.ObjectStatusTentative
	default:
		return ics.ObjectStatusConfirmed
	}
}

func refName(loaded bool, name func() string, fallback string) string {
	if loaded {
		return name()
	}
	return fallback
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
