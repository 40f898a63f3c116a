package domain

import (
	"strings"
	"time"
)

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

func (f FileFormat) Valid() bool {
	return f == FormatCSV || f == FormatJSON
}

func ParseFileFormat(raw string) (FileFormat, bool) {
	f := FileFormat(strings.ToLower(strings.TrimSpace(raw)))
	return f, f.Valid()
}

// SupportedImportExtensions is reported back when detection fails.
var SupportedImportExtensions = []string{".csv", ".json"}

const MaxImportRows = 1000

// DefaultExportFields is the CSV column order used when no allow-list is given.
var DefaultExportFields = []string{
	"id", "name", "email", "phone", "country", "grade",
	"application_status", "last_active", "created_at", "updated_at",
}

const (
	ImportErrorValidation = "ValidationError"
	ImportErrorInternal   = "InternalError"
)

type ImportRowError struct {
	RowNumber    int               `json:"row_number"`
	RowData      map[string]any    `json:"row_data"`
	ErrorType    string            `json:"error_type"`
	ErrorMessage string            `json:"error_message"`
	FieldErrors  map[string]string `json:"field_errors,omitempty"`
}

type ImportResult struct {
	TotalRows             int              `json:"total_rows"`
	SuccessfulImports     int              `json:"successful_imports"`
	FailedImports         int              `json:"failed_imports"`
	Errors                []ImportRowError `json:"errors"`
	CreatedIDs            []string         `json:"created_ids"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds"`
	ValidateOnly          bool             `json:"validate_only"`
}

func (r *ImportResult) SuccessRate() float64 {
	if r.TotalRows == 0 {
		return 0
	}
	return float64(r.SuccessfulImports) / float64(r.TotalRows) * 100
}

type ExportFilters struct {
	ApplicationStatus *ApplicationStatus `json:"application_status,omitempty"`
	Country           string             `json:"country,omitempty"`
	StartDate         *time.Time         `json:"start_date,omitempty"`
	EndDate           *time.Time         `json:"end_date,omitempty"`
}

// Applied returns only the filters that were set, for reporting.
func (f ExportFilters) Applied() map[string]any {
	out := map[string]any{}
	if f.ApplicationStatus != nil {
		out["application_status"] = string(*f.ApplicationStatus)
	}
	if f.Country != "" {
		out["country"] = f.Country
	}
	if f.StartDate != nil {
		out["start_date"] = f.StartDate.Format(time.RFC3339)
	}
	if f.EndDate != nil {
		out["end_date"] = f.EndDate.Format(time.RFC3339)
	}
	return out
}

type ExportRequest struct {
	Format  FileFormat
	Filters ExportFilters
	Fields  []string
}

type ExportResult struct {
	TotalStudents         int            `json:"total_students"`
	ExportFormat          FileFormat     `json:"export_format"`
	FileSizeBytes         int            `json:"file_size_bytes"`
	ProcessingTimeSeconds float64        `json:"processing_time_seconds"`
	FiltersApplied        map[string]any `json:"filters_applied"`
}

// ImportRequest is one uploaded file. Format is detected from Filename
// when empty.
type ImportRequest struct {
	Content      []byte
	Filename     string
	Format       FileFormat
	ValidateOnly bool
}

// ExportableFields lists the student attributes an export may select.
var ExportableFields = append(append([]string{}, DefaultExportFields...), "ai_summary")
