package service

import (
	"context"
	"sync"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/metrics"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	publishTimeout = 15 * time.Second

	defaultAuditListLimit = 100
	maxAuditListLimit     = 1000

	defaultActivityDays = 30
	maxActivityDays     = 365
	activityScanLimit   = 1000
)

type AuditPublisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// AuditService is the audit sink. Record never fails its caller.
type AuditService struct {
	repo      repository.AuditRepository
	publisher AuditPublisher
	metrics   *metrics.Metrics
	now       func() time.Time

	inflight sync.WaitGroup
}

// NewAuditService accepts a nil publisher.
func NewAuditService(repo repository.AuditRepository, publisher AuditPublisher, m *metrics.Metrics) *AuditService {
	return &AuditService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// Record stores one event and returns its id, or domain.AuditFailedID when
// the event could not be stored.
func (s *AuditService) Record(ctx context.Context, entry domain.AuditEntry) string {
	principal := entry.Principal
	if principal == nil {
		principal = domain.SystemPrincipal()
	}
	severity := entry.Severity
	if severity == "" {
		severity = entry.Action.DefaultSeverity()
	}
	details := make(map[string]any, len(entry.Details)+1)
	for k, v := range entry.Details {
		details[k] = v
	}
	meta := RequestMetaFrom(ctx)

	event := domain.AuditEvent{
		ID:           uuid.NewString(),
		ActorID:      principal.SubjectID,
		ActorEmail:   principal.Email,
		ActorRole:    principal.Role,
		Action:       entry.Action,
		TargetType:   entry.TargetType,
		TargetID:     entry.TargetID,
		Severity:     severity,
		Timestamp:    s.now().UTC(),
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		Details:      details,
	}
	if meta.RequestID != "" {
		event.Details["request_id"] = meta.RequestID
	}

	if err := s.append(ctx, &event); err != nil {
		s.metrics.ObserveAudit(string(event.Action), false)
		log.WithError(err).WithFields(log.Fields{
			"action":      event.Action,
			"user_id":     event.ActorID,
			"target_type": event.TargetType,
			"target_id":   event.TargetID,
		}).Error("Failed to write audit log")
		return domain.AuditFailedID
	}
	s.metrics.ObserveAudit(string(event.Action), true)

	log.WithFields(log.Fields{
		"audit_id": event.ID,
		"action":   event.Action,
		"user_id":  event.ActorID,
		"success":  event.Success,
	}).Debug("Audit event recorded")

	s.publish(event)
	return event.ID
}

// RecordResult fills Success and ErrorMessage from err before recording.
func (s *AuditService) RecordResult(ctx context.Context, entry domain.AuditEntry, err error) string {
	entry.Success = err == nil
	if err != nil {
		entry.ErrorMessage = domain.AsAppError(err).Message
	}
	return s.Record(ctx, entry)
}

func (s *AuditService) append(ctx context.Context, event *domain.AuditEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewInternal("audit store panicked", nil)
			log.WithField("panic", r).Error("Recovered from audit store panic")
		}
	}()
	return s.repo.Append(ctx, event)
}

func (s *AuditService) publish(event domain.AuditEvent) {
	if s.publisher == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.WithError(err).WithField("audit_id", event.ID).Warn("Failed to publish audit event")
		}
	}()
}

// Flush waits for in-flight publishes.
func (s *AuditService) Flush() {
	s.inflight.Wait()
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter, limit, offset int) ([]domain.AuditEvent, error) {
	if limit == 0 {
		limit = defaultAuditListLimit
	}
	if limit < 1 || limit > maxAuditListLimit {
		return nil, domain.NewValidation("Limit must be between 1 and 1000", map[string]any{"limit": limit})
	}
	if offset < 0 {
		return nil, domain.NewValidation("Offset must not be negative", map[string]any{"offset": offset})
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, domain.NewValidation("Unknown audit action", map[string]any{"action": string(filter.Action)})
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.NewValidation("Start date must be before end date", nil)
	}

	events, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list audit logs")
		return nil, domain.NewInternal("Failed to retrieve audit logs", err)
	}
	return events, nil
}

func (s *AuditService) UserActivity(ctx context.Context, userID string, days int) (*domain.UserActivitySummary, error) {
	if days == 0 {
		days = defaultActivityDays
	}
	if days < 1 || days > maxActivityDays {
		return nil, domain.NewValidation("Days must be between 1 and 365", map[string]any{"days": days})
	}

	from := s.now().UTC().AddDate(0, 0, -days)
	events, err := s.repo.List(ctx, domain.AuditFilter{ActorID: userID, From: &from}, activityScanLimit, 0)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to load user activity")
		return nil, domain.NewInternal("Failed to retrieve user activity", err)
	}

	summary := &domain.UserActivitySummary{
		UserID:        userID,
		PeriodDays:    days,
		TotalActions:  len(events),
		ActionsByType: map[string]int{},
	}
	for i, e := range events {
		summary.ActionsByType[string(e.Action)]++
		if i == 0 {
			ts := e.Timestamp
			summary.MostRecentActivity = &ts
		}
	}
	return summary, nil
}
