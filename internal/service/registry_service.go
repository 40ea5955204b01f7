package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/export"
)

type registryStore interface {
	AddStudents(ctx context.Context, records []models.StudentRecord) ([]error, error)
	Students() []models.StudentRecord
}

// RegistryConfig tunes registry imports.
type RegistryConfig struct {
	DefaultYear    int
	MaxImportBytes int64
}

// registry CSV columns and the header aliases accepted for each.
var registryColumns = []struct {
	name     string
	aliases  []string
	optional bool
}{
	{name: "name", aliases: []string{"name", "이름"}},
	{name: "grade", aliases: []string{"grade", "학년"}},
	{name: "class", aliases: []string{"class", "class_name", "반"}},
	{name: "number", aliases: []string{"number", "student_number", "학번"}},
	{name: "year", aliases: []string{"year", "연도"}, optional: true},
}

// RegistryService manages the student registry that gates parent signup.
type RegistryService struct {
	store     registryStore
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	config    RegistryConfig
	csv       csvRenderer
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// NewRegistryService constructs a RegistryService.
func NewRegistryService(store registryStore, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, config RegistryConfig) *RegistryService {
	if config.DefaultYear == 0 {
		config.DefaultYear = 2025
	}
	if config.MaxImportBytes <= 0 {
		config.MaxImportBytes = 2 << 20
	}
	return &RegistryService{
		store:     store,
		cache:     cache,
		validator: defaultValidator(validate),
		logger:    defaultLogger(logger),
		config:    config,
		csv:       export.NewCSVExporter(),
	}
}

// ListStudents returns the registry.
func (s *RegistryService) ListStudents(_ context.Context) []models.StudentRecord {
	return s.store.Students()
}

// AddStudent registers a single student. Names must be unique.
func (s *RegistryService) AddStudent(ctx context.Context, req models.CreateStudentRequest) (*models.StudentResult, error) {
	record, err := s.recordFrom(req)
	if err != nil {
		return nil, err
	}
	rowErrs, err := s.store.AddStudents(ctx, []models.StudentRecord{record})
	if rowErrs[0] != nil {
		return nil, rowErrs[0]
	}
	outcome, err := settle(fmt.Sprintf("%s added to the registry", record.Name), err)
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.logger)
	return &models.StudentResult{Student: record, Outcome: outcome}, nil
}

func (s *RegistryService) recordFrom(req models.CreateStudentRequest) (models.StudentRecord, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.ClassName = strings.TrimSpace(req.ClassName)
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	if req.Year == 0 {
		req.Year = s.config.DefaultYear
	}
	if err := s.validator.Struct(req); err != nil {
		return models.StudentRecord{}, validationError(err, "invalid student record")
	}
	return models.StudentRecord{
		Name:          req.Name,
		Grade:         req.Grade,
		ClassName:     req.ClassName,
		StudentNumber: req.StudentNumber,
		Year:          req.Year,
	}, nil
}

// ImportCSV bulk-registers students. Every row gets its own result; bad rows never abort the import.
func (s *RegistryService) ImportCSV(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	limited := io.LimitReader(r, s.config.MaxImportBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, validationError(err, "could not read csv upload")
	}
	if int64(len(raw)) > s.config.MaxImportBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv upload exceeds %d bytes", s.config.MaxImportBytes))
	}

	data, parseErrs, err := export.ReadCSV(strings.NewReader(string(raw)))
	if err != nil {
		return nil, validationError(err, "csv could not be parsed")
	}
	columns, err := resolveColumns(data.Headers)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{Rows: make([]models.ImportRowResult, 0, len(data.Rows)+len(parseErrs))}
	for _, pe := range parseErrs {
		result.Rows = append(result.Rows, models.ImportRowResult{Line: pe.Line, Message: pe.Err.Error()})
	}

	var (
		records []models.StudentRecord
		lines   []int
	)
	for _, row := range data.Rows {
		line, _ := strconv.Atoi(row[export.LineKey])
		record, err := s.rowRecord(row, columns)
		if err != nil {
			result.Rows = append(result.Rows, models.ImportRowResult{Line: line, Name: row[columns["name"]], Message: appErrors.FromError(err).Message})
			continue
		}
		records = append(records, record)
		lines = append(lines, line)
	}

	var persistErr error
	if len(records) > 0 {
		var rowErrs []error
		rowErrs, persistErr = s.store.AddStudents(ctx, records)
		for i, record := range records {
			row := models.ImportRowResult{Line: lines[i], Name: record.Name, Success: rowErrs[i] == nil, Message: "added"}
			if rowErrs[i] != nil {
				row.Message = appErrors.FromError(rowErrs[i]).Message
			}
			result.Rows = append(result.Rows, row)
		}
	}

	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i].Line < result.Rows[j].Line })
	for _, row := range result.Rows {
		if row.Success {
			result.Imported++
		} else {
			result.Failed++
		}
	}

	outcome, err := settle(fmt.Sprintf("imported %d students, %d rows failed", result.Imported, result.Failed), persistErr)
	if err != nil {
		return nil, err
	}
	outcome.Success = result.Imported > 0 || result.Failed == 0
	result.Outcome = outcome
	if result.Imported > 0 {
		invalidateStats(ctx, s.cache, s.logger)
	}
	s.logger.Info("student registry import finished", zap.Int("imported", result.Imported), zap.Int("failed", result.Failed), zap.Bool("durable", outcome.Durable))
	return result, nil
}

func (s *RegistryService) rowRecord(row map[string]string, columns map[string]string) (models.StudentRecord, error) {
	grade, err := strconv.Atoi(row[columns["grade"]])
	if err != nil {
		return models.StudentRecord{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade %q is not a number", row[columns["grade"]]))
	}
	req := models.CreateStudentRequest{
		Name:          row[columns["name"]],
		Grade:         grade,
		ClassName:     row[columns["class"]],
		StudentNumber: row[columns["number"]],
	}
	if header, ok := columns["year"]; ok && row[header] != "" {
		year, err := strconv.Atoi(row[header])
		if err != nil {
			return models.StudentRecord{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year %q is not a number", row[header]))
		}
		req.Year = year
	}
	record, err := s.recordFrom(req)
	if err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return models.StudentRecord{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s failed %s", strings.ToLower(ve[0].Field()), ve[0].Tag()))
		}
		return models.StudentRecord{}, err
	}
	return record, nil
}

// resolveColumns maps canonical column names to the header used in the file.
func resolveColumns(headers []string) (map[string]string, error) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	columns := make(map[string]string, len(registryColumns))
	var missing []string
	for _, col := range registryColumns {
		for _, alias := range col.aliases {
			if present[alias] {
				columns[col.name] = alias
				break
			}
		}
		if _, ok := columns[col.name]; !ok && !col.optional {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("csv header is missing columns: %s", strings.Join(missing, ", ")))
	}
	return columns, nil
}

// CSVTemplate renders a sample import file.
func (s *RegistryService) CSVTemplate() ([]byte, error) {
	data := export.Dataset{Headers: []string{"name", "grade", "class", "number", "year"}}
	for _, rec := range templateStudents {
		data.Rows = append(data.Rows, map[string]string{
			"name":   rec.Name,
			"grade":  strconv.Itoa(rec.Grade),
			"class":  rec.ClassName,
			"number": rec.StudentNumber,
			"year":   strconv.Itoa(s.config.DefaultYear),
		})
	}
	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return out, nil
}

var templateStudents = []models.StudentRecord{
	{Name: "김철수", Grade: 1, ClassName: "1", StudentNumber: "47"},
	{Name: "이영희", Grade: 1, ClassName: "1", StudentNumber: "23"},
	{Name: "박민수", Grade: 1, ClassName: "2", StudentNumber: "58"},
	{Name: "최지영", Grade: 1, ClassName: "2", StudentNumber: "14"},
	{Name: "정우진", Grade: 1, ClassName: "3", StudentNumber: "36"},
	{Name: "한소희", Grade: 2, ClassName: "1", StudentNumber: "09"},
	{Name: "윤도현", Grade: 2, ClassName: "1", StudentNumber: "51"},
	{Name: "서지원", Grade: 2, ClassName: "2", StudentNumber: "27"},
	{Name: "강민준", Grade: 2, ClassName: "2", StudentNumber: "42"},
	{Name: "조예린", Grade: 2, ClassName: "3", StudentNumber: "15"},
	{Name: "장호석", Grade: 3, ClassName: "1", StudentNumber: "60"},
	{Name: "김나영", Grade: 3, ClassName: "1", StudentNumber: "32"},
	{Name: "이준혁", Grade: 3, ClassName: "2", StudentNumber: "08"},
	{Name: "신유진", Grade: 3, ClassName: "2", StudentNumber: "45"},
	{Name: "오성민", Grade: 3, ClassName: "3", StudentNumber: "19"},
	{Name: "황서연", Grade: 4, ClassName: "1", StudentNumber: "54"},
	{Name: "백진우", Grade: 4, ClassName: "1", StudentNumber: "33"},
	{Name: "노은채", Grade: 4, ClassName: "2", StudentNumber: "11"},
	{Name: "임태현", Grade: 4, ClassName: "2", StudentNumber: "48"},
	{Name: "송가은", Grade: 4, ClassName: "3", StudentNumber: "26"},
	{Name: "전민기", Grade: 5, ClassName: "1", StudentNumber: "39"},
	{Name: "구하늘", Grade: 5, ClassName: "1", StudentNumber: "17"},
	{Name: "방수아", Grade: 5, ClassName: "2", StudentNumber: "52"},
	{Name: "홍준서", Grade: 5, ClassName: "2", StudentNumber: "34"},
	{Name: "유채린", Grade: 5, ClassName: "3", StudentNumber: "06"},
	{Name: "문도윤", Grade: 6, ClassName: "1", StudentNumber: "41"},
	{Name: "권서영", Grade: 6, ClassName: "1", StudentNumber: "29"},
	{Name: "양지훈", Grade: 6, ClassName: "2", StudentNumber: "13"},
	{Name: "차예원", Grade: 6, ClassName: "2", StudentNumber: "56"},
	{Name: "안현우", Grade: 6, ClassName: "3", StudentNumber: "24"},
}
