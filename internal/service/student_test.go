package service

import (
	"math"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"
)

func (s *ServiceSuite) TestStudent_CreateNormalizes() {
	st, err := s.students.Create(s.ctx, s.admin, domain.StudentCreate{
		Name:    "  Ada Lovelace ",
		Email:   "Ada@Example.com",
		Country: "gbr",
		Phone:   ptr("+44 (20) 7946-0958"),
	})
	s.Require().NoError(err)

	s.NotEmpty(st.ID)
	s.Equal("Ada Lovelace", st.Name)
	s.Equal("GBR", st.Country)
	s.Equal(domain.StatusExploring, st.ApplicationStatus)
	s.False(st.CreatedAt.IsZero())

	e := s.lastAudit()
	s.Equal(domain.ActionCreateStudent, e.Action)
	s.True(e.Success)
	s.Equal(st.ID, e.TargetID)
}

func (s *ServiceSuite) TestStudent_CreateValidation() {
	_, err := s.students.Create(s.ctx, s.admin, domain.StudentCreate{
		Name:    "R2-D2 <script>",
		Email:   "not-an-email",
		Country: "US",
	})
	s.Require().True(domain.HasCode(err, domain.CodeValidation))

	fields := validation.FieldErrorsOf(err)
	s.Contains(fields, "name")
	s.Contains(fields, "email")
	s.Contains(fields, "country")

	e := s.lastAudit()
	s.Equal(domain.ActionCreateStudent, e.Action)
	s.False(e.Success)
}

func (s *ServiceSuite) TestStudent_GetNotFoundEchoesID() {
	_, err := s.students.Get(s.ctx, s.staff, "missing")

	app := domain.AsAppError(err)
	s.Equal(domain.CodeNotFound, app.Code)
	s.Equal("missing", app.Details["student_id"])
	s.False(s.lastAudit().Success)
}

func (s *ServiceSuite) TestStudent_UpdateRequiresAField() {
	st := s.seed("Alan Turing", "GBR", domain.StatusApplying, "")

	_, err := s.students.Update(s.ctx, s.admin, st.ID, domain.StudentUpdate{})
	s.True(domain.HasCode(err, domain.CodeValidation))
}

func (s *ServiceSuite) TestStudent_UpdateBumpsUpdatedAt() {
	st := s.seed("Alan Turing", "GBR", domain.StatusApplying, "")

	updated, err := s.students.Update(s.ctx, s.admin, st.ID, domain.StudentUpdate{
		ApplicationStatus: ptr("submitted"),
	})
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, updated.ApplicationStatus)
	s.True(updated.UpdatedAt.After(st.UpdatedAt))
	s.Equal(st.CreatedAt, updated.CreatedAt)
	s.Equal(domain.ActionUpdateStudent, s.lastAudit().Action)
}

func (s *ServiceSuite) TestStudent_DeleteIsAuditedHigh() {
	st := s.seed("Alan Turing", "GBR", domain.StatusApplying, "")

	s.Require().NoError(s.students.Delete(s.ctx, s.admin, st.ID))
	e := s.lastAudit()
	s.Equal(domain.ActionDeleteStudent, e.Action)
	s.Equal(domain.SeverityHigh, e.Severity)

	err := s.students.Delete(s.ctx, s.admin, st.ID)
	s.True(domain.HasCode(err, domain.CodeNotFound))
	s.False(s.lastAudit().Success)
}

func (s *ServiceSuite) TestStudent_ListPaging() {
	for range 5 {
		s.seed("Student Name", "IND", domain.StatusExploring, "")
	}

	list, err := s.students.List(s.ctx, s.staff, domain.StudentListOptions{Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.Equal(5, list.Total)
	s.Len(list.Students, 2)
	s.True(list.HasNext)

	list, err = s.students.List(s.ctx, s.staff, domain.StudentListOptions{Page: 3, PageSize: 2})
	s.Require().NoError(err)
	s.Len(list.Students, 1)
	s.False(list.HasNext)
}

func (s *ServiceSuite) TestStudent_ListFiltersCountryCaseInsensitive() {
	s.seed("A One", "IND", domain.StatusExploring, "")
	s.seed("B Two", "USA", domain.StatusExploring, "")

	list, err := s.students.List(s.ctx, s.staff, domain.StudentListOptions{Country: ptr("ind")})
	s.Require().NoError(err)
	s.Require().Len(list.Students, 1)
	s.Equal("IND", list.Students[0].Country)
}

func (s *ServiceSuite) TestStudent_ListValidation() {
	tests := []struct {
		name string
		opts domain.StudentListOptions
	}{
		{"page size too large", domain.StudentListOptions{Page: 1, PageSize: 101}},
		{"negative page", domain.StudentListOptions{Page: -1, PageSize: 10}},
		{"bad order field", domain.StudentListOptions{Page: 1, PageSize: 10, OrderBy: "password"}},
		{"bad direction", domain.StudentListOptions{Page: 1, PageSize: 10, Direction: "sideways"}},
		{"page offset overflows", domain.StudentListOptions{Page: math.MaxInt / 10, PageSize: 20}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.students.List(s.ctx, s.staff, tt.opts)
			s.True(domain.HasCode(err, domain.CodeValidation))
		})
	}
}

func (s *ServiceSuite) TestStudent_ListLastRepresentablePage() {
	s.seed("Only Student", "IND", domain.StatusExploring, "")

	list, err := s.students.List(s.ctx, s.staff, domain.StudentListOptions{Page: math.MaxInt/20 + 1, PageSize: 20})
	s.Require().NoError(err)
	s.Empty(list.Students)
	s.Equal(1, list.Total)
	s.False(list.HasNext)
}
