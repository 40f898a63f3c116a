package service

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

const threeRowCSV = `name,email,country,application_status
Ada Lovelace,ada@example.com,GBR,Applying
Alan Turing,,GBR,Exploring
Grace Hopper,grace@example.com,usa,submitted
`

func (s *ServiceSuite) TestImport_CSVWithOneBadRow() {
	res, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{
		Content:  []byte(threeRowCSV),
		Filename: "students.csv",
	})
	s.Require().NoError(err)

	s.Equal(3, res.TotalRows)
	s.Equal(2, res.SuccessfulImports)
	s.Equal(1, res.FailedImports)
	s.Len(res.CreatedIDs, 2)
	s.Require().Len(res.Errors, 1)

	rowErr := res.Errors[0]
	s.Equal(2, rowErr.RowNumber)
	s.Equal(domain.ImportErrorValidation, rowErr.ErrorType)
	s.Equal("Student data validation failed", rowErr.ErrorMessage)
	s.Contains(rowErr.FieldErrors, "email")
	s.Equal("Alan Turing", rowErr.RowData["name"])

	grace, err := s.store.Students.GetByID(s.ctx, res.CreatedIDs[1])
	s.Require().NoError(err)
	s.Equal("USA", grace.Country)
	s.Equal(domain.StatusSubmitted, grace.ApplicationStatus)

	e := s.lastAudit()
	s.Equal(domain.ActionBulkImportStudents, e.Action)
	s.False(e.Success)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.ImportRows.WithLabelValues("success")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ImportRows.WithLabelValues("failure")))
}

func (s *ServiceSuite) TestImport_OnlyOneAuditEventPerFile() {
	_, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: []byte(threeRowCSV), Filename: "a.csv"})
	s.Require().NoError(err)
	s.Equal([]domain.AuditAction{domain.ActionBulkImportStudents}, s.auditActions())
}

func (s *ServiceSuite) TestImport_ValidateOnlyCreatesNothing() {
	res, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{
		Content:      []byte(threeRowCSV),
		Filename:     "students.csv",
		ValidateOnly: true,
	})
	s.Require().NoError(err)

	s.True(res.ValidateOnly)
	s.Equal(2, res.SuccessfulImports)
	s.Equal(1, res.FailedImports)
	s.Empty(res.CreatedIDs)

	snapshot, err := s.store.Students.Snapshot(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(snapshot)
}

func (s *ServiceSuite) TestImport_CSVSkipsBOMAndBlankRows() {
	content := "\xef\xbb\xbfname,email,country\n\n,,\nAda Lovelace,ada@example.com,GBR\n"
	res, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: []byte(content), Filename: "x.CSV"})
	s.Require().NoError(err)
	s.Equal(1, res.TotalRows)
	s.Equal(1, res.SuccessfulImports)
}

func (s *ServiceSuite) TestImport_JSONShapes() {
	tests := []struct {
		name    string
		content string
		total   int
		failed  int
	}{
		{"array", `[{"name":"Ada Lovelace","email":"ada@example.com","country":"GBR"}]`, 1, 0},
		{"students key", `{"students":[{"name":"Ada Lovelace","email":"ada@example.com","country":"GBR"},{"name":"X"}]}`, 2, 1},
		{"single object", `{"name":"Ada Lovelace","email":"ada@example.com","country":"GBR"}`, 1, 0},
		{"non-object row", `[42]`, 1, 1},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			res, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: []byte(tt.content), Filename: "s.json"})
			s.Require().NoError(err)
			s.Equal(tt.total, res.TotalRows)
			s.Equal(tt.failed, res.FailedImports)
		})
	}
}

func (s *ServiceSuite) TestImport_JSONRowNumbersStartAtOne() {
	res, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{
		Content: []byte(`[{"name":"Ada Lovelace","email":"ada@example.com","country":"GBR"},"oops"]`),
		Format:  domain.FormatJSON,
	})
	s.Require().NoError(err)
	s.Require().Len(res.Errors, 1)
	s.Equal(2, res.Errors[0].RowNumber)
	s.Equal("Row must be an object", res.Errors[0].ErrorMessage)
}

func (s *ServiceSuite) TestImport_BadLastActive() {
	content := "name,email,country,last_active\nAda Lovelace,ada@example.com,GBR,next tuesday\n"
	res, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: []byte(content), Filename: "a.csv"})
	s.Require().NoError(err)
	s.Require().Len(res.Errors, 1)
	s.Equal("Invalid datetime format", res.Errors[0].FieldErrors["last_active"])
}

func (s *ServiceSuite) TestImport_FileLevelErrors() {
	tests := []struct {
		name string
		req  domain.ImportRequest
	}{
		{"unsupported extension", domain.ImportRequest{Content: []byte("x"), Filename: "students.xlsx"}},
		{"no filename", domain.ImportRequest{Content: []byte("x")}},
		{"invalid utf8", domain.ImportRequest{Content: []byte{0xff, 0xfe, 0xfd}, Filename: "a.csv"}},
		{"invalid json", domain.ImportRequest{Content: []byte("{"), Filename: "a.json"}},
		{"json scalar", domain.ImportRequest{Content: []byte("42"), Filename: "a.json"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.bulk.Import(s.ctx, s.admin, tt.req)
			s.True(domain.HasCode(err, domain.CodeValidation), "got %v", err)
			s.False(s.lastAudit().Success)
		})
	}
}

func (s *ServiceSuite) TestImport_UnsupportedExtensionDetails() {
	_, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: []byte("x"), Filename: "students.xlsx"})
	app := domain.AsAppError(err)
	s.Equal("xlsx", app.Details["detected_extension"])
	s.Equal(domain.SupportedImportExtensions, app.Details["supported_extensions"])
}

func (s *ServiceSuite) TestImport_RowCap() {
	var b strings.Builder
	b.WriteString("name,email,country\n")
	for range domain.MaxImportRows + 1 {
		b.WriteString("Ada Lovelace,ada@example.com,GBR\n")
	}
	_, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: []byte(b.String()), Filename: "big.csv"})
	s.True(domain.HasCode(err, domain.CodeValidation))
}

func (s *ServiceSuite) TestExport_CSVRoundTrip() {
	_, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: []byte(threeRowCSV), Filename: "a.csv"})
	s.Require().NoError(err)
	before, err := s.store.Students.Snapshot(s.ctx, 10)
	s.Require().NoError(err)

	content, result, err := s.bulk.Export(s.ctx, s.staff, domain.ExportRequest{})
	s.Require().NoError(err)
	s.Equal(2, result.TotalStudents)
	s.Equal(domain.FormatCSV, result.ExportFormat)
	s.Equal(len(content), result.FileSizeBytes)

	s.store.Reset()
	res, err := s.bulk.Import(s.ctx, s.admin, domain.ImportRequest{Content: content, Filename: "export.csv"})
	s.Require().NoError(err)
	s.Equal(2, res.SuccessfulImports)

	after, err := s.store.Students.Snapshot(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(creatable(before), creatable(after))
}

func creatable(students []domain.Student) []string {
	out := make([]string, len(students))
	for i, st := range students {
		out[i] = strings.Join([]string{st.Name, st.Email, st.Country, st.Grade, string(st.ApplicationStatus)}, "|")
	}
	sort.Strings(out)
	return out
}

func (s *ServiceSuite) TestExport_JSONWithFieldsAndFilters() {
	s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")
	s.seed("Grace Hopper", "USA", domain.StatusApplying, "")
	s.seed("Alan Turing", "GBR", domain.StatusExploring, "")

	status := domain.StatusApplying
	content, result, err := s.bulk.Export(s.ctx, s.staff, domain.ExportRequest{
		Format:  domain.FormatJSON,
		Fields:  []string{"name", "country"},
		Filters: domain.ExportFilters{ApplicationStatus: &status, Country: "gbr"},
	})
	s.Require().NoError(err)
	s.Equal(1, result.TotalStudents)
	s.Equal(map[string]any{"application_status": "Applying", "country": "gbr"}, result.FiltersApplied)

	var envelope struct {
		Students   []map[string]any `json:"students"`
		ExportInfo struct {
			TotalCount int    `json:"total_count"`
			Format     string `json:"format"`
		} `json:"export_info"`
	}
	s.Require().NoError(json.Unmarshal(content, &envelope))
	s.Equal([]map[string]any{{"name": "Ada Lovelace", "country": "GBR"}}, envelope.Students)
	s.Equal(1, envelope.ExportInfo.TotalCount)
	s.Equal("json", envelope.ExportInfo.Format)
	s.Equal(domain.ActionExportStudents, s.lastAudit().Action)
}

func (s *ServiceSuite) TestExport_Validation() {
	_, _, err := s.bulk.Export(s.ctx, s.staff, domain.ExportRequest{Format: "xml"})
	s.True(domain.HasCode(err, domain.CodeValidation))

	_, _, err = s.bulk.Export(s.ctx, s.staff, domain.ExportRequest{Fields: []string{"password"}})
	s.True(domain.HasCode(err, domain.CodeValidation))
}
