package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
	"clinica-estetica/internal/repository"
	pkgerrors "clinica-estetica/pkg/errors"
)

// ── 患者模块业务错误 ──

var (
	ErrPatientNotFound   = errors.New("患者不存在")
	ErrPatientBlocked    = errors.New("患者已被停用，无法预约")
	ErrPatientHasBooking = errors.New("该患者仍有未完成的预约，无法删除")
	ErrDocumentIDExists  = errors.New("证件号已登记")
	ErrInvalidBirthDate  = errors.New("出生日期格式应为 YYYY-MM-DD")
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（名/姓/电话）")
	ErrImportUnreadable  = errors.New("无法解析Excel文件")
)

const maxImportRows = 1000

// PatientService 患者业务接口
type PatientService interface {
	Create(ctx context.Context, req *dto.CreatePatientRequest, callerID string) (*dto.PatientResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PatientResponse, error)
	List(ctx context.Context, req *dto.PatientListRequest) ([]dto.PatientResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdatePatientRequest, callerID string) (*dto.PatientResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	Block(ctx context.Context, id string, reason string, callerID string) (*dto.PatientResponse, error)
	Unblock(ctx context.Context, id string, callerID string) (*dto.PatientResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportPatientRow, error)
	ImportPatients(ctx context.Context, rows []ImportPatientRow, callerID string) (*dto.ImportPatientResponse, error)
}

// ImportPatientRow Excel 导入解析后的单行数据
type ImportPatientRow struct {
	Row        int
	FirstName  string
	LastName   string
	Phone      string
	DocumentID string
	Email      string
	BirthDate  string
}

type patientService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPatientService 创建 PatientService 实例
func NewPatientService(repo *repository.Repository, logger *zap.Logger) PatientService {
	return &patientService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *patientService) Create(ctx context.Context, req *dto.CreatePatientRequest, callerID string) (*dto.PatientResponse, error) {
	if err := s.ensureDocumentFree(ctx, req.DocumentID, ""); err != nil {
		return nil, err
	}
	birthDate, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	patient := &model.Patient{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DocumentID:     req.DocumentID,
		BirthDate:      birthDate,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		Allergies:      req.Allergies,
		Notes:          req.Notes,
		VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}}},
	}

	if err := s.repo.Patient.Create(ctx, patient); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrDocumentIDExists
		}
		s.logger.Error("创建患者失败", zap.Error(err))
		return nil, err
	}
	return toPatientResponse(patient), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *patientService) GetByID(ctx context.Context, id string) (*dto.PatientResponse, error) {
	patient, err := s.getPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPatientResponse(patient), nil
}

// ────────────────────── List ──────────────────────

func (s *patientService) List(ctx context.Context, req *dto.PatientListRequest) ([]dto.PatientResponse, int64, error) {
	filters := &repository.PatientListFilters{Keyword: req.Keyword, IncludeBlocked: req.IncludeBlocked}
	patients, total, err := s.repo.Patient.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出患者失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.PatientResponse, 0, len(patients))
	for i := range patients {
		result = append(result, *toPatientResponse(&patients[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *patientService) Update(ctx context.Context, id string, req *dto.UpdatePatientRequest, callerID string) (*dto.PatientResponse, error) {
	patient, err := s.getPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DocumentID != nil && *req.DocumentID != patient.DocumentID {
		if err := s.ensureDocumentFree(ctx, *req.DocumentID, id); err != nil {
			return nil, err
		}
		patient.DocumentID = *req.DocumentID
	}
	if req.BirthDate != nil {
		birthDate, err := parseBirthDate(*req.BirthDate)
		if err != nil {
			return nil, err
		}
		patient.BirthDate = birthDate
	}
	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.Allergies != nil {
		patient.Allergies = *req.Allergies
	}
	if req.Notes != nil {
		patient.Notes = *req.Notes
	}

	return s.save(ctx, patient, callerID)
}

// ────────────────────── Delete ──────────────────────

func (s *patientService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.getPatient(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.Appointment.CountActiveFrom(ctx, "patient_id", id, time.Now())
	if err != nil {
		s.logger.Error("统计患者未完成预约失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrPatientHasBooking
	}

	if err := s.repo.Patient.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除患者失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Block / Unblock ──────────────────────

func (s *patientService) Block(ctx context.Context, id string, reason string, callerID string) (*dto.PatientResponse, error) {
	patient, err := s.getPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	patient.IsBlocked = true
	patient.BlockedReason = reason
	return s.save(ctx, patient, callerID)
}

func (s *patientService) Unblock(ctx context.Context, id string, callerID string) (*dto.PatientResponse, error) {
	patient, err := s.getPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	patient.IsBlocked = false
	patient.BlockedReason = ""
	return s.save(ctx, patient, callerID)
}

// ────────────────────── ParseImportFile ──────────────────────

// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据
func (s *patientService) ParseImportFile(reader io.Reader) ([]ImportPatientRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["first_name"] < 0 || colIndex["last_name"] < 0 || colIndex["phone"] < 0 {
		return nil, ErrImportBadHeader
	}

	cellAt := func(row []string, key string) string {
		idx := colIndex[key]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportPatientRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportPatientRow{
			Row:        i + 1,
			FirstName:  cellAt(row, "first_name"),
			LastName:   cellAt(row, "last_name"),
			Phone:      cellAt(row, "phone"),
			DocumentID: cellAt(row, "document_id"),
			Email:      cellAt(row, "email"),
			BirthDate:  cellAt(row, "birth_date"),
		}

		// 跳过全空行
		if item.FirstName == "" && item.LastName == "" && item.Phone == "" && item.DocumentID == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"first_name":  -1,
		"last_name":   -1,
		"phone":       -1,
		"document_id": -1,
		"email":       -1,
		"birth_date":  -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch lower {
		case "名", "nombre", "first_name":
			idx["first_name"] = i
		case "姓", "apellidos", "apellido", "last_name":
			idx["last_name"] = i
		case "电话", "teléfono", "telefono", "phone":
			idx["phone"] = i
		case "证件号", "dni", "documento", "document_id":
			idx["document_id"] = i
		case "邮箱", "email", "correo":
			idx["email"] = i
		case "出生日期", "fecha_nacimiento", "birth_date":
			idx["birth_date"] = i
		}
	}
	return idx
}

// ────────────────────── ImportPatients ──────────────────────

func (s *patientService) ImportPatients(ctx context.Context, rows []ImportPatientRow, callerID string) (*dto.ImportPatientResponse, error) {
	resp := &dto.ImportPatientResponse{Total: len(rows)}

	// 第一阶段：数据预校验（不接触数据库写操作）
	var valid []model.Patient
	seenDocs := make(map[string]int)

	for _, row := range rows {
		fail := func(reason string) {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Row, Reason: reason})
		}

		if row.FirstName == "" || row.LastName == "" || row.Phone == "" {
			fail("必填字段为空")
			continue
		}
		birthDate, err := parseBirthDate(row.BirthDate)
		if err != nil {
			fail(fmt.Sprintf("出生日期无效: %s", row.BirthDate))
			continue
		}
		if row.DocumentID != "" {
			if prev, ok := seenDocs[row.DocumentID]; ok {
				fail(fmt.Sprintf("证件号与第 %d 行重复: %s", prev, row.DocumentID))
				continue
			}
			if _, err := s.repo.Patient.GetByDocumentID(ctx, row.DocumentID); err == nil {
				fail(fmt.Sprintf("证件号已登记: %s", row.DocumentID))
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			seenDocs[row.DocumentID] = row.Row
		}

		valid = append(valid, model.Patient{
			FirstName:      row.FirstName,
			LastName:       row.LastName,
			Phone:          row.Phone,
			DocumentID:     row.DocumentID,
			Email:          row.Email,
			BirthDate:      birthDate,
			VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: strPtr(callerID)}}},
		})
	}

	// 第二阶段：在事务中批量写入所有通过校验的患者
	if len(valid) > 0 {
		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			s.logger.Error("开启事务失败", zap.Error(err))
			return nil, err
		}
		defer func() {
			if r := recover(); r != nil {
				if tx != nil {
					tx.Rollback()
				}
				panic(r)
			}
		}()

		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Patient.BatchCreate(ctx, valid); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("导入患者写入失败，事务回滚", zap.Int("rows", len(valid)), zap.Error(err))
			return nil, fmt.Errorf("写入数据库失败，已回滚全部导入: %w", err)
		}

		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				s.logger.Error("提交事务失败", zap.Error(err))
				return nil, err
			}
		}
		resp.Success = len(valid)
	}

	s.logger.Info("患者批量导入完成",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed))
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *patientService) getPatient(ctx context.Context, id string) (*model.Patient, error) {
	patient, err := s.repo.Patient.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		s.logger.Error("查询患者失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return patient, nil
}

func (s *patientService) save(ctx context.Context, patient *model.Patient, callerID string) (*dto.PatientResponse, error) {
	patient.UpdatedBy = &callerID
	if err := s.repo.Patient.Update(ctx, patient); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrDocumentIDExists
		}
		s.logger.Error("更新患者失败", zap.String("id", patient.PatientID), zap.Error(err))
		return nil, err
	}
	return toPatientResponse(patient), nil
}

func (s *patientService) ensureDocumentFree(ctx context.Context, documentID, selfID string) error {
	if documentID == "" {
		return nil
	}
	existing, err := s.repo.Patient.GetByDocumentID(ctx, documentID)
	if err == nil && existing.PatientID != selfID {
		return ErrDocumentIDExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func parseBirthDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, ErrInvalidBirthDate
	}
	return &t, nil
}

func toPatientResponse(p *model.Patient) *dto.PatientResponse {
	resp := &dto.PatientResponse{
		ID:            p.PatientID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		FullName:      p.FullName(),
		DocumentID:    p.DocumentID,
		Phone:         p.Phone,
		Email:         p.Email,
		Address:       p.Address,
		Allergies:     p.Allergies,
		Notes:         p.Notes,
		IsBlocked:     p.IsBlocked,
		BlockedReason: p.BlockedReason,
		Version:       p.Version,
		CreatedAt:     formatTime(p.CreatedAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
	if p.BirthDate != nil {
		resp.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	return resp
}
