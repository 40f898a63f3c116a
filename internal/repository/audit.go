package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	log "github.com/sirupsen/logrus"
)

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) *postgresAuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) Append(ctx context.Context, e *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (
			id, user_id, user_email, user_role, action, target_type, target_id,
			severity, timestamp, ip_address, user_agent, success, error_message, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		e.ID,
		e.ActorID,
		e.ActorEmail,
		string(e.ActorRole),
		string(e.Action),
		e.TargetType,
		nullString(e.TargetID),
		string(e.Severity),
		domain.FormatTimestamp(e.Timestamp),
		nullString(e.IPAddress),
		nullString(e.UserAgent),
		e.Success,
		nullString(e.ErrorMessage),
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// List skips rows that no longer decode instead of failing the whole page.
func (r *postgresAuditRepository) List(ctx context.Context, f domain.AuditFilter, limit, offset int) ([]domain.AuditEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var query strings.Builder
	args := []any{}
	argPos := 1

	query.WriteString(`SELECT id, user_id, user_email, user_role, action, target_type, target_id,
		severity, timestamp, ip_address, user_agent, success, error_message, details
		FROM audit_logs WHERE 1=1`)

	add := func(clause string, v any) {
		query.WriteString(fmt.Sprintf(clause, argPos))
		args = append(args, v)
		argPos++
	}
	if f.ActorID != "" {
		add(" AND user_id = $%d", f.ActorID)
	}
	if f.Action != "" {
		add(" AND action = $%d", string(f.Action))
	}
	if f.TargetType != "" {
		add(" AND target_type = $%d", f.TargetType)
	}
	if f.TargetID != "" {
		add(" AND target_id = $%d", f.TargetID)
	}
	if f.From != nil {
		add(" AND timestamp >= $%d", domain.FormatTimestamp(*f.From))
	}
	if f.To != nil {
		add(" AND timestamp <= $%d", domain.FormatTimestamp(*f.To))
	}

	query.WriteString(" ORDER BY timestamp DESC")
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var (
			e                           domain.AuditEvent
			role, action, severity, ts  string
			targetID, ip, agent, errMsg sql.NullString
			details                     []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &role, &action, &e.TargetType, &targetID,
			&severity, &ts, &ip, &agent, &e.Success, &errMsg, &details); err != nil {
			log.WithError(err).Warn("Skipping unreadable audit row")
			continue
		}

		if err := decodeAuditRow(&e, role, action, severity, ts, details); err != nil {
			log.WithError(err).WithField("audit_id", e.ID).Warn("Skipping malformed audit row")
			continue
		}
		e.TargetID = targetID.String
		e.IPAddress = ip.String
		e.UserAgent = agent.String
		e.ErrorMessage = errMsg.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return events, nil
}

// decodeAuditRow validates the enum and timestamp columns of a stored event.
func decodeAuditRow(e *domain.AuditEvent, role, action, severity, ts string, details []byte) error {
	e.Action = domain.AuditAction(action)
	if !e.Action.Valid() {
		return fmt.Errorf("unknown audit action %q", action)
	}
	e.Severity = domain.Severity(severity)
	if !e.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", severity)
	}
	parsed, err := domain.ParseTimestamp(ts)
	if err != nil {
		return fmt.Errorf("bad timestamp %q: %w", ts, err)
	}
	e.Timestamp = parsed
	e.ActorRole = domain.Role(role)

	e.Details = map[string]any{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return fmt.Errorf("bad details: %w", err)
		}
	}
	return nil
}
