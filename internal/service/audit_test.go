package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type panickingAuditRepo struct{}

func (panickingAuditRepo) Append(context.Context, *domain.AuditEvent) error { panic("boom") }

func (panickingAuditRepo) List(context.Context, domain.AuditFilter, int, int) ([]domain.AuditEvent, error) {
	return nil, nil
}

func (s *ServiceSuite) TestAudit_RecordFillsEvent() {
	ctx := WithRequestMeta(s.ctx, domain.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "curl/8", RequestID: "req-1"})
	details := map[string]any{"k": "v"}

	id := s.audit.Record(ctx, domain.AuditEntry{
		Principal:  s.staff,
		Action:     domain.ActionDeleteStudent,
		TargetType: domain.TargetStudent,
		TargetID:   "stu-1",
		Success:    true,
		Details:    details,
	})

	s.NotEqual(domain.AuditFailedID, id)
	e := s.lastAudit()
	s.Equal(id, e.ID)
	s.Equal("staff-1", e.ActorID)
	s.Equal(domain.RoleStaff, e.ActorRole)
	s.Equal(domain.SeverityHigh, e.Severity)
	s.Equal("10.0.0.1", e.IPAddress)
	s.Equal("curl/8", e.UserAgent)
	s.Equal("req-1", e.Details["request_id"])
	s.NotContains(details, "request_id", "caller details must not be mutated")
}

func (s *ServiceSuite) TestAudit_NilPrincipalIsSystem() {
	s.audit.Record(s.ctx, domain.AuditEntry{Action: domain.ActionBulkImportStudents, TargetType: domain.TargetStudent})
	s.Equal("system", s.lastAudit().ActorID)
}

func (s *ServiceSuite) TestAudit_StoreOutageReturnsSentinel() {
	s.store.Audit.FailWith = errors.New("store down")

	id := s.audit.Record(s.ctx, domain.AuditEntry{Principal: s.admin, Action: domain.ActionViewStudent})

	s.Equal(domain.AuditFailedID, id)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.AuditEvents.WithLabelValues("VIEW_STUDENT", "false")))
}

func (s *ServiceSuite) TestAudit_PanickingStoreIsContained() {
	svc := NewAuditService(panickingAuditRepo{}, nil, nil)
	s.NotPanics(func() {
		s.Equal(domain.AuditFailedID, svc.Record(s.ctx, domain.AuditEntry{Action: domain.ActionViewStudent}))
	})
}

func (s *ServiceSuite) TestAudit_OutageDoesNotFailOperation() {
	s.store.Audit.FailWith = errors.New("store down")

	student, err := s.students.Create(s.ctx, s.admin, domain.StudentCreate{
		Name:    "Grace Hopper",
		Email:   "grace@example.com",
		Country: "usa",
	})

	s.Require().NoError(err)
	s.Equal("USA", student.Country)
}

func (s *ServiceSuite) TestAudit_PublishesStoredEvents() {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewAuditService(s.store.Audit, pub, nil)

	id := svc.Record(s.ctx, domain.AuditEntry{Principal: s.admin, Action: domain.ActionExportStudents})
	svc.Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	s.Require().Len(pub.events, 1)
	s.Equal(id, pub.events[0].ID)
}

func (s *ServiceSuite) TestAudit_FailedStoreSkipsPublish() {
	pub := &recordingPublisher{}
	svc := NewAuditService(s.store.Audit, pub, nil)
	s.store.Audit.FailWith = errors.New("store down")

	svc.Record(s.ctx, domain.AuditEntry{Principal: s.admin, Action: domain.ActionExportStudents})
	svc.Flush()

	s.Empty(pub.events)
}

func (s *ServiceSuite) TestAudit_RecordResultCarriesError() {
	s.audit.RecordResult(s.ctx, domain.AuditEntry{Principal: s.admin, Action: domain.ActionViewStudent},
		domain.NewNotFound("Student not found", nil))

	e := s.lastAudit()
	s.False(e.Success)
	s.Equal("Student not found", e.ErrorMessage)
}

func (s *ServiceSuite) TestAudit_ListValidation() {
	_, err := s.audit.List(s.ctx, domain.AuditFilter{}, 1001, 0)
	s.True(domain.HasCode(err, domain.CodeValidation))

	_, err = s.audit.List(s.ctx, domain.AuditFilter{Action: "NOPE"}, 10, 0)
	s.True(domain.HasCode(err, domain.CodeValidation))

	from, to := baseTime, baseTime.Add(-time.Hour)
	_, err = s.audit.List(s.ctx, domain.AuditFilter{From: &from, To: &to}, 10, 0)
	s.True(domain.HasCode(err, domain.CodeValidation))
}

func (s *ServiceSuite) TestAudit_ListFiltersByAction() {
	s.audit.Record(s.ctx, domain.AuditEntry{Principal: s.admin, Action: domain.ActionViewStudent, Success: true})
	s.audit.Record(s.ctx, domain.AuditEntry{Principal: s.admin, Action: domain.ActionDeleteStudent, Success: true})

	events, err := s.audit.List(s.ctx, domain.AuditFilter{Action: domain.ActionDeleteStudent}, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(domain.ActionDeleteStudent, events[0].Action)
}

func (s *ServiceSuite) TestAudit_UserActivity() {
	for range 3 {
		s.audit.Record(s.ctx, domain.AuditEntry{Principal: s.staff, Action: domain.ActionViewStudent, Success: true})
	}
	s.audit.Record(s.ctx, domain.AuditEntry{Principal: s.staff, Action: domain.ActionSearchStudents, Success: true})
	s.audit.Record(s.ctx, domain.AuditEntry{Principal: s.admin, Action: domain.ActionSearchStudents, Success: true})

	summary, err := s.audit.UserActivity(s.ctx, "staff-1", 0)
	s.Require().NoError(err)
	s.Equal(30, summary.PeriodDays)
	s.Equal(4, summary.TotalActions)
	s.Equal(3, summary.ActionsByType["VIEW_STUDENT"])
	s.NotNil(summary.MostRecentActivity)

	_, err = s.audit.UserActivity(s.ctx, "staff-1", 400)
	s.True(domain.HasCode(err, domain.CodeValidation))
}
