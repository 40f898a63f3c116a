package service

import (
	"context"
	"errors"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"

	log "github.com/sirupsen/logrus"
)

type RoleSetter interface {
	SetRole(ctx context.Context, uid string, role domain.Role) error
}

type SubjectRevoker interface {
	RevokeSubject(ctx context.Context, uid string, at time.Time) error
}

// UserService manages role records of identity-provider subjects.
type UserService struct {
	roles     repository.RoleRepository
	setter    RoleSetter
	revoker   SubjectRevoker
	audit     *AuditService
	validator *validation.Validator
	now       func() time.Time
}

// NewUserService accepts a nil revoker; RevokeSessions then fails.
func NewUserService(roles repository.RoleRepository, setter RoleSetter, revoker SubjectRevoker, audit *AuditService, v *validation.Validator) *UserService {
	return &UserService{
		roles:     roles,
		setter:    setter,
		revoker:   revoker,
		audit:     audit,
		validator: v,
		now:       time.Now,
	}
}

func userNotFound(uid string) error {
	return domain.NewNotFound("User not found", map[string]any{"uid": uid})
}

func (s *UserService) ChangeRole(ctx context.Context, p *domain.Principal, uid string, req domain.UpdateRoleRequest) (*domain.UserRole, error) {
	var previous string
	rec, err := s.changeRole(ctx, p, uid, req, &previous)
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionChangeUserRole,
		TargetType: domain.TargetUser,
		TargetID:   uid,
		Details: map[string]any{
			"previous_role": previous,
			"new_role":      req.Role,
		},
	}, err)
	return rec, err
}

func (s *UserService) changeRole(ctx context.Context, p *domain.Principal, uid string, req domain.UpdateRoleRequest, previous *string) (*domain.UserRole, error) {
	if err := s.validator.Struct(req, "Invalid role update"); err != nil {
		return nil, err
	}
	if uid == p.SubjectID && domain.Role(req.Role) != domain.RoleAdmin {
		return nil, domain.NewValidation("Admins cannot remove their own admin role", map[string]any{"uid": uid})
	}

	rec, err := s.roles.Get(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, userNotFound(uid)
	}
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to load user role")
		return nil, domain.NewInternal("Failed to retrieve user", err)
	}
	*previous = rec.Role

	if err := s.setter.SetRole(ctx, uid, domain.Role(req.Role)); err != nil {
		if domain.HasCode(err, domain.CodeValidation) {
			return nil, err
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, userNotFound(uid)
		}
		log.WithError(err).WithField("uid", uid).Error("Failed to change user role")
		return nil, domain.NewInternal("Failed to update user role", err)
	}

	rec.Role = req.Role
	rec.UpdatedAt = s.now().UTC()
	log.WithFields(log.Fields{
		"uid":           uid,
		"previous_role": *previous,
		"new_role":      req.Role,
		"changed_by":    p.SubjectID,
	}).Info("User role changed")
	return rec, nil
}

// RevokeSessions rejects every token issued to uid before now.
func (s *UserService) RevokeSessions(ctx context.Context, p *domain.Principal, uid string) error {
	err := s.revokeSessions(ctx, uid)
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionUserLogout,
		TargetType: domain.TargetUser,
		TargetID:   uid,
		Severity:   domain.SeverityHigh,
		Details:    map[string]any{"operation": "revoke_sessions"},
	}, err)
	return err
}

func (s *UserService) revokeSessions(ctx context.Context, uid string) error {
	if s.revoker == nil {
		return domain.NewInternal("Token revocation is not configured", nil)
	}
	if _, err := s.roles.Get(ctx, uid); errors.Is(err, domain.ErrNotFound) {
		return userNotFound(uid)
	} else if err != nil {
		return domain.NewInternal("Failed to retrieve user", err)
	}
	if err := s.revoker.RevokeSubject(ctx, uid, s.now().UTC()); err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to revoke sessions")
		return domain.NewInternal("Failed to revoke sessions", err)
	}
	log.WithField("uid", uid).Info("User sessions revoked")
	return nil
}
