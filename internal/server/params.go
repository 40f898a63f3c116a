package server

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
)

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidation(fmt.Sprintf("Query parameter '%s' must be an integer", name), map[string]any{
			"parameter": name,
			"value":     raw,
		})
	}
	return n, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, err := parseTime(raw)
	if err != nil {
		return nil, domain.NewValidation(fmt.Sprintf("Invalid %s format. Use ISO format.", name), map[string]any{
			"parameter": name,
			"value":     raw,
		})
	}
	return &t, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := domain.ParseTimestamp(raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func queryStatus(c echo.Context, name string) (*domain.ApplicationStatus, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	status, ok := domain.ParseApplicationStatus(raw)
	if !ok {
		return nil, domain.NewValidation("Invalid application status", map[string]any{
			"value":          raw,
			"allowed_values": domain.ApplicationStatuses(),
		})
	}
	return &status, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return domain.NewValidation("Invalid request body", map[string]any{"error": err.Error()})
	}
	return nil
}

// formFile reads an uploaded multipart part fully into memory.
func formFile(c echo.Context, field string) (name, contentType string, content []byte, err error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", "", nil, domain.NewValidation(fmt.Sprintf("Form field '%s' is required", field), nil)
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", nil, domain.NewInternal("Failed to read uploaded file", err)
	}
	defer f.Close()

	content, err = io.ReadAll(f)
	if err != nil {
		return "", "", nil, domain.NewInternal("Failed to read uploaded file", err)
	}
	return fh.Filename, fh.Header.Get(echo.HeaderContentType), content, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
