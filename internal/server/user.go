package server

import (
	"errors"
	"net/http"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Me returns the caller's identity and, when present, the stored role record.
func (s *Server) Me(c echo.Context) error {
	p := auth.PrincipalFrom(c)
	resp := map[string]any{
		"uid":   p.SubjectID,
		"email": p.Email,
		"role":  p.Role,
		"name":  p.DisplayName,
	}

	rec, err := s.roles.Get(c.Request().Context(), p.SubjectID)
	switch {
	case err == nil:
		resp["status"] = rec.Status
		resp["created_at"] = rec.CreatedAt
		resp["last_login"] = rec.LastLogin
	case !errors.Is(err, domain.ErrNotFound):
		log.WithError(err).WithField("uid", p.SubjectID).Warn("Failed to load role record for profile")
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) ChangeUserRole(c echo.Context) error {
	var req domain.UpdateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	rec, err := s.svc.Users.ChangeRole(c.Request().Context(), auth.PrincipalFrom(c), c.Param("uid"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) RevokeUserSessions(c echo.Context) error {
	uid := c.Param("uid")
	if err := s.svc.Users.RevokeSessions(c.Request().Context(), auth.PrincipalFrom(c), uid); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"uid":     uid,
		"revoked": true,
	})
}
