package service

import (
	"errors"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"
)

func (s *ServiceSuite) users(revoker SubjectRevoker) *UserService {
	resolver := auth.NewRoleResolver(s.store.Roles, nil)
	return NewUserService(s.store.Roles, resolver, revoker, s.audit, validation.New())
}

func (s *ServiceSuite) putUser(uid string, role domain.Role) {
	s.store.Roles.Put(domain.UserRole{
		UID:       uid,
		Email:     uid + "@example.com",
		Role:      string(role),
		Status:    domain.UserStatusActive,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	})
}

func (s *ServiceSuite) TestUser_ChangeRole() {
	s.putUser("staff-1", domain.RoleStaff)

	rec, err := s.users(nil).ChangeRole(s.ctx, s.admin, "staff-1", domain.UpdateRoleRequest{Role: "admin"})
	s.Require().NoError(err)
	s.Equal("admin", rec.Role)

	stored, err := s.store.Roles.Get(s.ctx, "staff-1")
	s.Require().NoError(err)
	s.Equal("admin", stored.Role)

	e := s.lastAudit()
	s.Equal(domain.ActionChangeUserRole, e.Action)
	s.Equal("staff-1", e.TargetID)
	s.Equal("staff", e.Details["previous_role"])
	s.Equal("admin", e.Details["new_role"])
	s.True(e.Success)
}

func (s *ServiceSuite) TestUser_ChangeRoleRejections() {
	s.putUser("admin-1", domain.RoleAdmin)
	svc := s.users(nil)

	tests := []struct {
		name string
		uid  string
		role string
		code domain.ErrorCode
	}{
		{"unknown role", "admin-1", "owner", domain.CodeValidation},
		{"self demotion", "admin-1", "staff", domain.CodeValidation},
		{"missing user", "nobody", "staff", domain.CodeNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := svc.ChangeRole(s.ctx, s.admin, tt.uid, domain.UpdateRoleRequest{Role: tt.role})
			s.True(domain.HasCode(err, tt.code), "got %v", err)
			s.False(s.lastAudit().Success)
		})
	}

	stored, err := s.store.Roles.Get(s.ctx, "admin-1")
	s.Require().NoError(err)
	s.Equal("admin", stored.Role)
}

func (s *ServiceSuite) TestUser_ChangeRoleStoreOutage() {
	s.putUser("staff-1", domain.RoleStaff)
	s.store.Roles.FailWith = errors.New("connection refused")

	_, err := s.users(nil).ChangeRole(s.ctx, s.admin, "staff-1", domain.UpdateRoleRequest{Role: "admin"})
	s.True(domain.HasCode(err, domain.CodeInternal))
}

func (s *ServiceSuite) TestUser_RevokeSessions() {
	s.putUser("staff-1", domain.RoleStaff)
	revocations := auth.NewMemoryRevocationList()
	svc := s.users(revocations)

	s.Require().NoError(svc.RevokeSessions(s.ctx, s.admin, "staff-1"))
	at, ok, err := revocations.ValidAfter(s.ctx, "staff-1")
	s.Require().NoError(err)
	s.True(ok)
	s.False(at.IsZero())

	e := s.lastAudit()
	s.Equal(domain.ActionUserLogout, e.Action)
	s.Equal(domain.SeverityHigh, e.Severity)

	err = svc.RevokeSessions(s.ctx, s.admin, "nobody")
	s.True(domain.HasCode(err, domain.CodeNotFound))
}

func (s *ServiceSuite) TestUser_RevokeWithoutRevoker() {
	s.putUser("staff-1", domain.RoleStaff)
	err := s.users(nil).RevokeSessions(s.ctx, s.admin, "staff-1")
	s.True(domain.HasCode(err, domain.CodeInternal))
}
