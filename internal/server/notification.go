package server

import (
	"net/http"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
)

func (s *Server) SendEmail(c echo.Context) error {
	var req domain.SendEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	summary, err := s.svc.Notifications.Send(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) SendStudentEmail(c echo.Context) error {
	var req domain.SendStudentEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	summary, err := s.svc.Notifications.SendToStudent(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) SendBulkEmail(c echo.Context) error {
	var req domain.SendBulkEmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	summary, err := s.svc.Notifications.SendBulk(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) EmailLogs(c echo.Context) error {
	limit, err := queryInt(c, "limit", domain.DefaultEmailLogMax)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	from, err := queryTime(c, "start_date")
	if err != nil {
		return err
	}
	to, err := queryTime(c, "end_date")
	if err != nil {
		return err
	}

	filter := domain.EmailLogFilter{
		StudentID: c.QueryParam("student_id"),
		Template:  domain.EmailTemplate(c.QueryParam("template")),
		Status:    domain.EmailStatus(c.QueryParam("status")),
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	}
	logs, err := s.svc.Notifications.ListLogs(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"logs":        logs,
		"total_count": len(logs),
		"limit":       limit,
		"offset":      offset,
	})
}
