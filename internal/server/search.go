package server

import (
	"net/http"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
)

func (s *Server) SearchStudents(c echo.Context) error {
	var q domain.SearchQuery
	if err := bind(c, &q); err != nil {
		return err
	}

	res, err := s.svc.Search.Search(c.Request().Context(), auth.PrincipalFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// SimpleSearch covers the common case with query parameters only.
func (s *Server) SimpleSearch(c echo.Context) error {
	limit, err := queryInt(c, "limit", domain.DefaultSearchLimit)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}

	q := domain.SearchQuery{
		TextQuery: strings.TrimSpace(c.QueryParam("q")),
		SortField: domain.SearchField(c.QueryParam("sort")),
		SortOrder: domain.SortDirection(strings.ToLower(c.QueryParam("order"))),
		Limit:     limit,
		Offset:    offset,
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		q.ApplicationStatuses = []domain.ApplicationStatus{domain.ApplicationStatus(status)}
	}
	if country := strings.TrimSpace(c.QueryParam("country")); country != "" {
		q.Countries = []string{country}
	}

	res, err := s.svc.Search.Search(c.Request().Context(), auth.PrincipalFrom(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) Suggestions(c echo.Context) error {
	limit, err := queryInt(c, "limit", domain.DefaultSuggestionLimit)
	if err != nil {
		return err
	}
	field := domain.SearchField(c.QueryParam("field"))
	partial := c.QueryParam("partial_value")

	suggestions, err := s.svc.Search.Suggestions(c.Request().Context(), auth.PrincipalFrom(c), field, partial, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"field":         field,
		"partial_value": partial,
		"suggestions":   suggestions,
	})
}

func (s *Server) Facets(c echo.Context) error {
	facets, err := s.svc.Search.Facets(c.Request().Context(), auth.PrincipalFrom(c), nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facets)
}
