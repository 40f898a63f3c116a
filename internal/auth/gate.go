package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/metrics"

	log "github.com/sirupsen/logrus"
)

const lastLoginTimeout = 5 * time.Second

// Gate turns an Authorization header into a Principal, or an AUTH or
// FORBIDDEN error.
type Gate struct {
	verifier Verifier
	resolver *RoleResolver
	metrics  *metrics.Metrics

	wg sync.WaitGroup
}

func NewGate(verifier Verifier, resolver *RoleResolver, m *metrics.Metrics) *Gate {
	return &Gate{verifier: verifier, resolver: resolver, metrics: m}
}

// Authorize admits any known role when allowed is empty.
func (g *Gate) Authorize(ctx context.Context, header string, allowed ...domain.Role) (*domain.Principal, error) {
	p, err := g.authorize(ctx, header, allowed)
	if err != nil {
		g.metrics.ObserveAuth(strings.ToLower(string(domain.CodeOf(err))))
		return nil, err
	}
	g.metrics.ObserveAuth("allowed")
	return p, nil
}

func (g *Gate) authorize(ctx context.Context, header string, allowed []domain.Role) (*domain.Principal, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, domain.NewAuth("Authentication required", nil)
	}

	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return nil, domain.NewAuth("Invalid authentication scheme", map[string]any{"scheme": scheme})
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.NewAuth("Authentication token required", nil)
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, verificationError(err)
	}
	if claims.SubjectID == "" {
		return nil, domain.NewAuth("Invalid token: missing user ID", map[string]any{"reason": "missing_subject"})
	}

	role, err := g.resolver.Resolve(ctx, claims.SubjectID, claims.Email)
	if err != nil {
		log.WithError(err).WithField("uid", claims.SubjectID).Error("Failed to resolve user role")
		return nil, domain.NewAuth("Failed to retrieve user permissions", nil)
	}

	principal := &domain.Principal{
		SubjectID:   claims.SubjectID,
		Email:       claims.Email,
		Role:        role,
		DisplayName: claims.Name,
	}

	if len(allowed) > 0 && !principal.HasRole(allowed...) {
		required := make([]string, len(allowed))
		for i, r := range allowed {
			required[i] = string(r)
		}
		log.WithFields(log.Fields{
			"uid":            principal.SubjectID,
			"user_role":      principal.Role,
			"required_roles": required,
		}).Warn("Access denied: insufficient permissions")
		return nil, domain.NewForbidden(
			fmt.Sprintf("Insufficient permissions. Required roles: %v", required),
			map[string]any{
				"user_role":      string(principal.Role),
				"required_roles": required,
			},
		)
	}

	g.touchLastLogin(principal.SubjectID)
	return principal, nil
}

func (g *Gate) touchLastLogin(uid string) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), lastLoginTimeout)
		defer cancel()
		g.resolver.TouchLastLogin(ctx, uid)
	}()
}

// Wait blocks until pending last-login updates finish.
func (g *Gate) Wait() {
	g.wg.Wait()
}

func verificationError(err error) *domain.AppError {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return domain.NewAuth("Authentication token has expired", map[string]any{"reason": "token_expired"})
	case errors.Is(err, ErrTokenRevoked):
		return domain.NewAuth("Authentication token has been revoked", map[string]any{"reason": "token_revoked"})
	case errors.Is(err, ErrTokenInvalid):
		return domain.NewAuth("Invalid authentication token", map[string]any{"reason": "invalid_token"})
	default:
		log.WithError(err).Error("Token verification failed")
		return domain.NewAuth("Authentication verification failed", map[string]any{"reason": "verification_failed"})
	}
}
