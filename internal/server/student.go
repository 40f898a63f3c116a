package server

import (
	"net/http"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/labstack/echo/v4"
)

func (s *Server) CreateStudent(c echo.Context) error {
	var req domain.StudentCreate
	if err := bind(c, &req); err != nil {
		return err
	}

	student, err := s.svc.Students.Create(c.Request().Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, student)
}

func (s *Server) ListStudents(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	pageSize, err := queryInt(c, "page_size", domain.DefaultPageSize)
	if err != nil {
		return err
	}
	status, err := queryStatus(c, "status")
	if err != nil {
		return err
	}

	opts := domain.StudentListOptions{
		Page:      page,
		PageSize:  pageSize,
		OrderBy:   c.QueryParam("order_by"),
		Direction: domain.SortDirection(strings.ToLower(c.QueryParam("order_direction"))),
		Status:    status,
	}
	if country := strings.TrimSpace(c.QueryParam("country")); country != "" {
		opts.Country = &country
	}

	list, err := s.svc.Students.List(c.Request().Context(), auth.PrincipalFrom(c), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) GetStudent(c echo.Context) error {
	student, err := s.svc.Students.Get(c.Request().Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, student)
}

func (s *Server) UpdateStudent(c echo.Context) error {
	var req domain.StudentUpdate
	if err := bind(c, &req); err != nil {
		return err
	}

	student, err := s.svc.Students.Update(c.Request().Context(), auth.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, student)
}

func (s *Server) DeleteStudent(c echo.Context) error {
	if err := s.svc.Students.Delete(c.Request().Context(), auth.PrincipalFrom(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
