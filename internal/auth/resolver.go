package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type RoleCache interface {
	Get(ctx context.Context, uid string) (domain.Role, bool, error)
	Set(ctx context.Context, uid string, role domain.Role) error
	Delete(ctx context.Context, uid string) error
}

const roleKeyPrefix = "role:"

type RedisRoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRoleCache(client *redis.Client, ttl time.Duration) *RedisRoleCache {
	return &RedisRoleCache{client: client, ttl: ttl}
}

func (c *RedisRoleCache) Get(ctx context.Context, uid string) (domain.Role, bool, error) {
	raw, err := c.client.Get(ctx, roleKeyPrefix+uid).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	role, ok := domain.ParseRole(raw)
	if !ok {
		return "", false, nil
	}
	return role, true, nil
}

func (c *RedisRoleCache) Set(ctx context.Context, uid string, role domain.Role) error {
	return c.client.Set(ctx, roleKeyPrefix+uid, string(role), c.ttl).Err()
}

func (c *RedisRoleCache) Delete(ctx context.Context, uid string) error {
	return c.client.Del(ctx, roleKeyPrefix+uid).Err()
}

// RoleResolver maps a verified subject onto its stored role, provisioning
// unseen subjects as staff.
type RoleResolver struct {
	roles repository.RoleRepository
	cache RoleCache
	now   func() time.Time
}

// NewRoleResolver accepts a nil cache.
func NewRoleResolver(roles repository.RoleRepository, cache RoleCache) *RoleResolver {
	return &RoleResolver{roles: roles, cache: cache, now: time.Now}
}

func (r *RoleResolver) Resolve(ctx context.Context, uid, email string) (domain.Role, error) {
	if r.cache != nil {
		role, ok, err := r.cache.Get(ctx, uid)
		if err != nil {
			log.WithError(err).WithField("uid", uid).Warn("Role cache read failed, falling back to store")
		} else if ok {
			return role, nil
		}
	}

	role, err := r.lookup(ctx, uid, email)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, uid, role); err != nil {
			log.WithError(err).WithField("uid", uid).Warn("Role cache write failed")
		}
	}
	return role, nil
}

func (r *RoleResolver) lookup(ctx context.Context, uid, email string) (domain.Role, error) {
	rec, err := r.roles.Get(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return r.provision(ctx, uid, email)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load role record: %w", err)
	}
	return r.storedRole(ctx, rec), nil
}

// storedRole resets an unrecognized stored role to staff.
func (r *RoleResolver) storedRole(ctx context.Context, rec *domain.UserRole) domain.Role {
	role, ok := domain.ParseRole(rec.Role)
	if !ok {
		log.WithFields(log.Fields{
			"uid":          rec.UID,
			"invalid_role": rec.Role,
		}).Warn("Stored role is not recognized, resetting to staff")
		if err := r.roles.UpdateRole(ctx, rec.UID, domain.RoleStaff); err != nil {
			log.WithError(err).WithField("uid", rec.UID).Error("Failed to repair role record")
		}
	}
	return role
}

func (r *RoleResolver) provision(ctx context.Context, uid, email string) (domain.Role, error) {
	now := r.now().UTC()
	created, err := r.roles.CreateIfAbsent(ctx, &domain.UserRole{
		UID:       uid,
		Email:     email,
		Role:      string(domain.RoleStaff),
		Status:    domain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: &now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to provision role record: %w", err)
	}
	if created {
		log.WithFields(log.Fields{
			"uid":   uid,
			"email": email,
		}).Info("Provisioned new user with default staff role")
		return domain.RoleStaff, nil
	}

	// Lost a race with a concurrent first login; read what the winner wrote.
	rec, err := r.roles.Get(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("failed to load role record: %w", err)
	}
	return r.storedRole(ctx, rec), nil
}

// SetRole changes a stored role and drops the cached value.
func (r *RoleResolver) SetRole(ctx context.Context, uid string, role domain.Role) error {
	if !role.Valid() {
		return domain.NewValidation("Invalid role", map[string]any{
			"role":          string(role),
			"allowed_roles": []string{string(domain.RoleAdmin), string(domain.RoleStaff)},
		})
	}
	if err := r.roles.UpdateRole(ctx, uid, role); err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Delete(ctx, uid); err != nil {
			log.WithError(err).WithField("uid", uid).Warn("Failed to invalidate cached role")
		}
	}
	return nil
}

// TouchLastLogin is best effort.
func (r *RoleResolver) TouchLastLogin(ctx context.Context, uid string) {
	if err := r.roles.TouchLastLogin(ctx, uid, r.now().UTC()); err != nil {
		log.WithError(err).WithField("uid", uid).Warn("Failed to update last login")
	}
}
