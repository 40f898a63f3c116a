package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/metrics"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"

	log "github.com/sirupsen/logrus"
)

var lastActiveLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

type BulkService struct {
	students *StudentService
	repo     repository.StudentRepository
	audit    *AuditService
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewBulkService(students *StudentService, repo repository.StudentRepository, audit *AuditService, m *metrics.Metrics) *BulkService {
	return &BulkService{
		students: students,
		repo:     repo,
		audit:    audit,
		metrics:  m,
		now:      time.Now,
	}
}

type importRow struct {
	number    int
	data      map[string]any
	notObject bool
}

// Import creates one student per row. Row failures are reported in the
// result; only file-level problems return an error.
func (s *BulkService) Import(ctx context.Context, p *domain.Principal, req domain.ImportRequest) (*domain.ImportResult, error) {
	start := s.now()
	result, format, err := s.importFile(ctx, req)

	details := map[string]any{
		"filename":      req.Filename,
		"format":        string(format),
		"validate_only": req.ValidateOnly,
	}
	if result != nil {
		details["total_rows"] = result.TotalRows
		details["successful_imports"] = result.SuccessfulImports
		details["failed_imports"] = result.FailedImports
		details["success_rate"] = result.SuccessRate()
	}

	entry := domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionBulkImportStudents,
		TargetType: domain.TargetStudent,
		Details:    details,
	}
	if err != nil {
		s.audit.RecordResult(ctx, entry, err)
		return nil, err
	}

	entry.Success = result.FailedImports == 0
	if !entry.Success {
		entry.ErrorMessage = fmt.Sprintf("%d of %d rows failed", result.FailedImports, result.TotalRows)
	}
	s.audit.Record(ctx, entry)

	result.ProcessingTimeSeconds = s.now().Sub(start).Seconds()
	s.metrics.ObserveImport(result.SuccessfulImports, result.FailedImports)

	log.WithFields(log.Fields{
		"user_id":       p.SubjectID,
		"filename":      req.Filename,
		"total_rows":    result.TotalRows,
		"successful":    result.SuccessfulImports,
		"failed":        result.FailedImports,
		"validate_only": req.ValidateOnly,
	}).Info("Bulk import completed")
	return result, nil
}

func (s *BulkService) importFile(ctx context.Context, req domain.ImportRequest) (*domain.ImportResult, domain.FileFormat, error) {
	format, err := detectFormat(req.Format, req.Filename)
	if err != nil {
		return nil, "", err
	}
	if !utf8.Valid(req.Content) {
		return nil, format, domain.NewValidation(
			fmt.Sprintf("Invalid file encoding. Please use UTF-8 encoded %s files.", strings.ToUpper(string(format))), nil)
	}

	var rows []importRow
	switch format {
	case domain.FormatCSV:
		rows, err = parseCSV(req.Content)
	default:
		rows, err = parseJSON(req.Content)
	}
	if err != nil {
		return nil, format, err
	}

	if len(rows) > domain.MaxImportRows {
		return nil, format, domain.NewValidation(
			fmt.Sprintf("Import file contains too many rows: %d", len(rows)),
			map[string]any{"row_count": len(rows), "max_rows": domain.MaxImportRows},
		)
	}

	result := &domain.ImportResult{
		TotalRows:    len(rows),
		Errors:       []domain.ImportRowError{},
		CreatedIDs:   []string{},
		ValidateOnly: req.ValidateOnly,
	}
	for _, row := range rows {
		id, rowErr := s.importRow(ctx, row, req.ValidateOnly)
		if rowErr != nil {
			result.FailedImports++
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		result.SuccessfulImports++
		if id != "" {
			result.CreatedIDs = append(result.CreatedIDs, id)
		}
	}
	return result, format, nil
}

func (s *BulkService) importRow(ctx context.Context, row importRow, validateOnly bool) (string, *domain.ImportRowError) {
	fail := func(err error) *domain.ImportRowError {
		rowErr := &domain.ImportRowError{
			RowNumber: row.number,
			RowData:   row.data,
		}
		if domain.HasCode(err, domain.CodeValidation) {
			rowErr.ErrorType = domain.ImportErrorValidation
			rowErr.ErrorMessage = domain.AsAppError(err).Message
			rowErr.FieldErrors = validation.FieldErrorsOf(err)
			if len(rowErr.FieldErrors) > 0 {
				rowErr.ErrorMessage = "Student data validation failed"
			}
			log.WithField("row_number", row.number).Debug("Import row failed validation")
		} else {
			rowErr.ErrorType = domain.ImportErrorInternal
			rowErr.ErrorMessage = err.Error()
			log.WithError(err).WithField("row_number", row.number).Warn("Import row failed")
		}
		return rowErr
	}

	if row.notObject {
		return "", fail(domain.NewValidation("Row must be an object", nil))
	}
	req, err := rowToStudentCreate(row.data)
	if err != nil {
		return "", fail(err)
	}

	if validateOnly {
		if err := s.students.ValidateCreate(&req); err != nil {
			return "", fail(err)
		}
		return "", nil
	}

	student, err := s.students.create(ctx, req)
	if err != nil {
		return "", fail(err)
	}
	return student.ID, nil
}

func detectFormat(explicit domain.FileFormat, filename string) (domain.FileFormat, error) {
	supported := map[string]any{"supported_extensions": domain.SupportedImportExtensions}
	if explicit != "" {
		f, ok := domain.ParseFileFormat(string(explicit))
		if !ok {
			return "", domain.NewValidation(fmt.Sprintf("Unsupported import format: %s", explicit), supported)
		}
		return f, nil
	}
	if filename == "" {
		return "", domain.NewValidation("Cannot detect file format: no filename provided", supported)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return domain.FormatCSV, nil
	case ".json":
		return domain.FormatJSON, nil
	}
	return "", domain.NewValidation(fmt.Sprintf("Unsupported file extension: %s", filename), map[string]any{
		"supported_extensions": domain.SupportedImportExtensions,
		"detected_extension":   strings.TrimPrefix(ext, "."),
	})
}

// parseCSV numbers data rows from 2, the header being row 1.
func parseCSV(content []byte) ([]importRow, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewValidation("Invalid CSV format", map[string]any{"error": err.Error()})
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []importRow
	for number := 2; ; number++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewValidation("Invalid CSV format", map[string]any{"error": err.Error()})
		}

		data := map[string]any{}
		for i, value := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if v := strings.TrimSpace(value); v != "" {
				data[header[i]] = v
			}
		}
		if len(data) > 0 {
			rows = append(rows, importRow{number: number, data: data})
		}
	}
	return rows, nil
}

// parseJSON accepts an array, an object with a "students" array, or one object.
func parseJSON(content []byte) ([]importRow, error) {
	var raw any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, domain.NewValidation("Invalid JSON format", map[string]any{"error": err.Error()})
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if students, ok := v["students"]; ok {
			list, ok := students.([]any)
			if !ok {
				return nil, domain.NewValidation("Invalid JSON structure. Expected array of objects or object with 'students' array.", nil)
			}
			items = list
		} else {
			items = []any{v}
		}
	default:
		return nil, domain.NewValidation("Invalid JSON structure. Expected array of objects or object with 'students' array.",
			map[string]any{"received_type": fmt.Sprintf("%T", raw)})
	}

	rows := make([]importRow, 0, len(items))
	for i, item := range items {
		data, ok := item.(map[string]any)
		if !ok {
			rows = append(rows, importRow{number: i + 1, data: map[string]any{"value": item}, notObject: true})
			continue
		}
		rows = append(rows, importRow{number: i + 1, data: data})
	}
	return rows, nil
}

func rowToStudentCreate(row map[string]any) (domain.StudentCreate, error) {
	str := func(key string) (string, bool) {
		v, ok := row[key]
		if !ok || v == nil {
			return "", false
		}
		if s, ok := v.(string); ok {
			return s, true
		}
		return fmt.Sprint(v), true
	}

	var req domain.StudentCreate
	req.Name, _ = str("name")
	req.Email, _ = str("email")
	req.Country, _ = str("country")
	if v, ok := str("phone"); ok {
		req.Phone = &v
	}
	if v, ok := str("grade"); ok {
		req.Grade = &v
	}
	if v, ok := str("application_status"); ok {
		req.ApplicationStatus = v
		if status, ok := domain.ParseApplicationStatus(v); ok {
			req.ApplicationStatus = string(status)
		}
	}
	if v, ok := str("last_active"); ok {
		t, err := parseLastActive(v)
		if err != nil {
			return req, domain.NewValidation("Student data validation failed", map[string]any{
				"field_errors": map[string]string{"last_active": "Invalid datetime format"},
			})
		}
		req.LastActive = &t
	}
	return req, nil
}

func parseLastActive(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range lastActiveLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", raw)
}

// Export serializes the students matching req.Filters.
func (s *BulkService) Export(ctx context.Context, p *domain.Principal, req domain.ExportRequest) ([]byte, *domain.ExportResult, error) {
	start := s.now()
	if req.Format == "" {
		req.Format = domain.FormatCSV
	}

	content, count, err := s.export(ctx, req)

	details := map[string]any{
		"format":          string(req.Format),
		"filters_applied": req.Filters.Applied(),
	}
	if err == nil {
		details["total_students"] = count
		details["file_size_bytes"] = len(content)
	}
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionExportStudents,
		TargetType: domain.TargetStudent,
		Details:    details,
	}, err)
	if err != nil {
		return nil, nil, err
	}

	result := &domain.ExportResult{
		TotalStudents:         count,
		ExportFormat:          req.Format,
		FileSizeBytes:         len(content),
		ProcessingTimeSeconds: s.now().Sub(start).Seconds(),
		FiltersApplied:        req.Filters.Applied(),
	}
	log.WithFields(log.Fields{
		"user_id":        p.SubjectID,
		"format":         req.Format,
		"total_students": count,
	}).Info("Student export completed")
	return content, result, nil
}

func (s *BulkService) export(ctx context.Context, req domain.ExportRequest) ([]byte, int, error) {
	if !req.Format.Valid() {
		return nil, 0, domain.NewValidation(fmt.Sprintf("Unsupported export format: %s", req.Format),
			map[string]any{"supported_formats": []string{string(domain.FormatCSV), string(domain.FormatJSON)}})
	}
	for _, f := range req.Fields {
		if !slices.Contains(domain.ExportableFields, f) {
			return nil, 0, domain.NewValidation(fmt.Sprintf("Unknown export field: %s", f),
				map[string]any{"allowed_fields": domain.ExportableFields})
		}
	}
	f := req.Filters
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return nil, 0, domain.NewValidation("Start date must be before end date", nil)
	}

	all, err := s.repo.Snapshot(ctx, domain.SearchSnapshotCap)
	if err != nil {
		log.WithError(err).Error("Failed to load students for export")
		return nil, 0, domain.NewInternal("Failed to retrieve students for export", err)
	}

	students := make([]domain.Student, 0, len(all))
	for _, st := range all {
		if f.ApplicationStatus != nil && st.ApplicationStatus != *f.ApplicationStatus {
			continue
		}
		if f.Country != "" && !strings.EqualFold(st.Country, f.Country) {
			continue
		}
		if f.StartDate != nil && st.LastActive.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && st.LastActive.After(*f.EndDate) {
			continue
		}
		students = append(students, st)
	}

	var content []byte
	if req.Format == domain.FormatCSV {
		content, err = exportCSV(students, req.Fields)
	} else {
		content, err = exportJSON(students, req.Fields, s.now().UTC())
	}
	if err != nil {
		return nil, 0, domain.NewInternal("Student export operation failed", err)
	}
	return content, len(students), nil
}

func exportCSV(students []domain.Student, fields []string) ([]byte, error) {
	if len(fields) == 0 {
		fields = domain.DefaultExportFields
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	record := make([]string, len(fields))
	for i := range students {
		for j, f := range fields {
			record[j] = studentField(&students[i], f)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func studentField(st *domain.Student, field string) string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	switch field {
	case "id":
		return st.ID
	case "name":
		return st.Name
	case "email":
		return st.Email
	case "phone":
		return st.Phone
	case "country":
		return st.Country
	case "grade":
		return st.Grade
	case "application_status":
		return string(st.ApplicationStatus)
	case "last_active":
		return formatTime(st.LastActive)
	case "created_at":
		return formatTime(st.CreatedAt)
	case "updated_at":
		return formatTime(st.UpdatedAt)
	case "ai_summary":
		return st.AISummary
	}
	return ""
}

type exportInfo struct {
	TotalCount int               `json:"total_count"`
	ExportedAt time.Time         `json:"exported_at"`
	Format     domain.FileFormat `json:"format"`
}

type exportEnvelope struct {
	Students   []map[string]any `json:"students"`
	ExportInfo exportInfo       `json:"export_info"`
}

func exportJSON(students []domain.Student, fields []string, now time.Time) ([]byte, error) {
	rows := make([]map[string]any, 0, len(students))
	for _, st := range students {
		raw, err := json.Marshal(st)
		if err != nil {
			return nil, err
		}
		var row map[string]any
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			for k := range row {
				if !slices.Contains(fields, k) {
					delete(row, k)
				}
			}
		}
		rows = append(rows, row)
	}
	return json.MarshalIndent(exportEnvelope{
		Students: rows,
		ExportInfo: exportInfo{
			TotalCount: len(students),
			ExportedAt: now,
			Format:     domain.FormatJSON,
		},
	}, "", "  ")
}
