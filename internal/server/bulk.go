package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
)

func (s *Server) ImportStudents(c echo.Context) error {
	name, _, content, err := formFile(c, "file")
	if err != nil {
		return err
	}

	validateOnly := false
	if raw := strings.TrimSpace(c.FormValue("validate_only")); raw != "" {
		if validateOnly, err = parseFormBool("validate_only", raw); err != nil {
			return err
		}
	}

	req := domain.ImportRequest{
		Content:      content,
		Filename:     name,
		ValidateOnly: validateOnly,
	}
	if raw := strings.TrimSpace(c.FormValue("format_type")); raw != "" {
		format, ok := domain.ParseFileFormat(raw)
		if !ok {
			return domain.NewValidation(fmt.Sprintf("Unsupported import format: %s", raw), map[string]any{
				"supported_formats": []string{string(domain.FormatCSV), string(domain.FormatJSON)},
			})
		}
		req.Format = format
	}

	res, err := s.svc.Bulk.Import(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func parseFormBool(name, raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, domain.NewValidation(fmt.Sprintf("Parameter '%s' must be a boolean", name), map[string]any{
		"parameter": name,
		"value":     raw,
	})
}

// ExportStudents streams the export as a file attachment.
func (s *Server) ExportStudents(c echo.Context) error {
	status, err := queryStatus(c, "application_status")
	if err != nil {
		return err
	}
	start, err := queryTime(c, "start_date")
	if err != nil {
		return err
	}
	end, err := queryTime(c, "end_date")
	if err != nil {
		return err
	}

	req := domain.ExportRequest{
		Format: domain.FileFormat(strings.ToLower(c.QueryParam("format_type"))),
		Filters: domain.ExportFilters{
			ApplicationStatus: status,
			Country:           strings.TrimSpace(c.QueryParam("country")),
			StartDate:         start,
			EndDate:           end,
		},
		Fields: splitList(c.QueryParam("include_fields")),
	}

	content, result, err := s.svc.Bulk.Export(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}

	contentType := "text/csv; charset=utf-8"
	if result.ExportFormat == domain.FormatJSON {
		contentType = echo.MIMEApplicationJSONCharsetUTF8
	}
	filename := fmt.Sprintf("students_export_%s.%s", time.Now().UTC().Format("20060102_150405"), result.ExportFormat)

	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("X-Total-Students", fmt.Sprint(result.TotalStudents))
	return c.Blob(http.StatusOK, contentType, content)
}
