package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// ParseRole reports whether raw names a known role. Unknown values come back
// as staff with ok=false so callers can log and repair the stored record.
func ParseRole(raw string) (role Role, ok bool) {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStaff:
		return RoleStaff, true
	default:
		return RoleStaff, false
	}
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	SubjectID   string `json:"uid"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	DisplayName string `json:"name,omitempty"`
}

func (p *Principal) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// SystemPrincipal is used for operations started outside an HTTP request.
func SystemPrincipal() *Principal {
	return &Principal{
		SubjectID:   "system",
		Email:       "system@localhost",
		Role:        RoleAdmin,
		DisplayName: "System",
	}
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// UserRole is the persisted role record for one identity-provider subject.
type UserRole struct {
	UID       string     `json:"uid"`
	Email     string     `json:"email,omitempty"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin staff"`
}

// TokenClaims is what a verified identity token tells us about its subject.
type TokenClaims struct {
	SubjectID string
	Email     string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	AuthTime  time.Time
}
