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

type postgresEmailLogRepository struct {
	db *sql.DB
}

func NewPostgresEmailLogRepository(db *sql.DB) *postgresEmailLogRepository {
	return &postgresEmailLogRepository{db: db}
}

func (r *postgresEmailLogRepository) Append(ctx context.Context, l *domain.EmailLog) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	response, err := json.Marshal(l.ProviderResponse)
	if err != nil {
		return fmt.Errorf("failed to marshal provider response: %w", err)
	}

	var deliveredAt sql.NullString
	if l.DeliveredAt != nil {
		deliveredAt = sql.NullString{String: domain.FormatTimestamp(*l.DeliveredAt), Valid: true}
	}

	query := `
		INSERT INTO email_logs (
			id, message_id, recipient_email, student_id, template, subject, status,
			sent_by, sent_at, delivered_at, error_message, provider_response
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		l.ID,
		l.MessageID,
		l.RecipientEmail,
		nullString(l.StudentID),
		string(l.Template),
		l.Subject,
		string(l.Status),
		l.SentBy,
		domain.FormatTimestamp(l.SentAt),
		deliveredAt,
		nullString(l.ErrorMessage),
		response,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email log: %w", err)
	}
	return nil
}

func (r *postgresEmailLogRepository) List(ctx context.Context, f domain.EmailLogFilter) ([]domain.EmailLog, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var query strings.Builder
	args := []any{}
	argPos := 1

	query.WriteString(`SELECT id, message_id, recipient_email, student_id, template, subject, status,
		sent_by, sent_at, delivered_at, error_message, provider_response
		FROM email_logs WHERE 1=1`)

	add := func(clause string, v any) {
		query.WriteString(fmt.Sprintf(clause, argPos))
		args = append(args, v)
		argPos++
	}
	if f.StudentID != "" {
		add(" AND student_id = $%d", f.StudentID)
	}
	if f.Template != "" {
		add(" AND template = $%d", string(f.Template))
	}
	if f.Status != "" {
		add(" AND status = $%d", string(f.Status))
	}
	if f.From != nil {
		add(" AND sent_at >= $%d", domain.FormatTimestamp(*f.From))
	}
	if f.To != nil {
		add(" AND sent_at <= $%d", domain.FormatTimestamp(*f.To))
	}

	query.WriteString(" ORDER BY sent_at DESC")
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query email logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.EmailLog{}
	for rows.Next() {
		var (
			l                              domain.EmailLog
			studentID, deliveredAt, errMsg sql.NullString
			template, status, sentAt       string
			response                       []byte
		)
		if err := rows.Scan(&l.ID, &l.MessageID, &l.RecipientEmail, &studentID, &template, &l.Subject,
			&status, &l.SentBy, &sentAt, &deliveredAt, &errMsg, &response); err != nil {
			log.WithError(err).Warn("Skipping unreadable email log row")
			continue
		}

		parsed, err := domain.ParseTimestamp(sentAt)
		if err != nil {
			log.WithError(err).WithField("email_log_id", l.ID).Warn("Skipping email log with bad sent_at")
			continue
		}
		l.SentAt = parsed
		if deliveredAt.Valid {
			if t, err := domain.ParseTimestamp(deliveredAt.String); err == nil {
				l.DeliveredAt = &t
			}
		}
		l.StudentID = studentID.String
		l.ErrorMessage = errMsg.String
		l.Template = domain.EmailTemplate(template)
		l.Status = domain.EmailStatus(status)
		l.ProviderResponse = decodeProviderResponse(l.ID, response)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating email log rows: %w", err)
	}
	return logs, nil
}

func decodeProviderResponse(logID string, raw []byte) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		log.WithError(err).WithField("email_log_id", logID).Warn("Ignoring unreadable provider response")
		return map[string]any{}
	}
	return out
}
