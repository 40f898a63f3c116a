package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	log "github.com/sirupsen/logrus"
)

type postgresRoleRepository struct {
	db *sql.DB
}

func NewPostgresRoleRepository(db *sql.DB) *postgresRoleRepository {
	return &postgresRoleRepository{db: db}
}

func (r *postgresRoleRepository) Get(ctx context.Context, uid string) (*domain.UserRole, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT uid, email, role, status, created_at, updated_at, last_login
		FROM users
		WHERE uid = $1
	`

	var rec domain.UserRole
	var email sql.NullString
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, uid).Scan(
		&rec.UID,
		&email,
		&rec.Role,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		log.WithError(err).WithField("uid", uid).Error("Failed to get role record")
		return nil, fmt.Errorf("failed to get role record: %w", err)
	}

	rec.Email = email.String
	if lastLogin.Valid {
		rec.LastLogin = &lastLogin.Time
	}
	return &rec, nil
}

// CreateIfAbsent relies on ON CONFLICT so racing first logins both succeed.
func (r *postgresRoleRepository) CreateIfAbsent(ctx context.Context, rec *domain.UserRole) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	log.WithFields(log.Fields{
		"uid":  rec.UID,
		"role": rec.Role,
	}).Info("Provisioning role record")

	query := `
		INSERT INTO users (uid, email, role, status, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uid) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.UID,
		nullString(rec.Email),
		rec.Role,
		rec.Status,
		rec.CreatedAt,
		rec.UpdatedAt,
		nullTime(rec.LastLogin),
	)
	if err != nil {
		log.WithError(err).WithField("uid", rec.UID).Error("Failed to create role record")
		return false, fmt.Errorf("failed to create role record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *postgresRoleRepository) UpdateRole(ctx context.Context, uid string, role domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE uid = $1`,
		uid, string(role),
	)
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to update role")
		return fmt.Errorf("failed to update role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRoleRepository) TouchLastLogin(ctx context.Context, uid string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE uid = $1`, uid, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
