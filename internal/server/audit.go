package server

import (
	"net/http"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
)

func (s *Server) AuditLogs(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
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

	filter := domain.AuditFilter{
		ActorID:    c.QueryParam("user_id"),
		Action:     domain.AuditAction(c.QueryParam("action")),
		TargetType: c.QueryParam("target_type"),
		TargetID:   c.QueryParam("target_id"),
		From:       from,
		To:         to,
	}
	events, err := s.svc.Audit.List(c.Request().Context(), filter, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"logs":        events,
		"total_count": len(events),
	})
}

func (s *Server) UserActivity(c echo.Context) error {
	days, err := queryInt(c, "days", 0)
	if err != nil {
		return err
	}
	summary, err := s.svc.Audit.UserActivity(c.Request().Context(), c.Param("uid"), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
