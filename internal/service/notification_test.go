package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/email"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/email/mocks"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"
)

var emailCfg = config.Email{FromAddress: "noreply@example.com", FromName: "Admissions"}

func (s *ServiceSuite) notifier(provider email.Provider) *NotificationService {
	catalog, err := email.DefaultCatalog()
	s.Require().NoError(err)
	return NewNotificationService(provider, catalog, s.store.EmailLogs, s.store.Students, s.audit, validation.New(), s.metrics, emailCfg)
}

func okResponse(id string) map[string]any {
	return map[string]any{"provider": "test", "message_id": id, "status": "sent"}
}

func (s *ServiceSuite) TestNotify_SendRendersAndLogsPerRecipient() {
	ctrl := gomock.NewController(s.T())
	provider := mocks.NewMockProvider(ctrl)

	provider.EXPECT().
		Send(gomock.Any(), gomock.Any(), domain.EmailRecipient{Email: "ok@example.com"}).
		DoAndReturn(func(_ any, msg *domain.EmailMessage, _ domain.EmailRecipient) (map[string]any, error) {
			s.Equal("Document Request - Transcript", msg.Subject)
			s.Contains(msg.HTMLContent, "<strong>Transcript</strong>")
			s.Equal("noreply@example.com", msg.SenderEmail)
			s.Equal(domain.PriorityNormal, msg.Priority)
			return okResponse("msg-1"), nil
		})
	provider.EXPECT().
		Send(gomock.Any(), gomock.Any(), domain.EmailRecipient{Email: "bounce@example.com"}).
		Return(nil, errors.New("mailbox unavailable"))

	summary, err := s.notifier(provider).Send(s.ctx, s.staff, domain.SendEmailRequest{
		Template:     domain.TemplateDocumentRequest,
		Recipients:   []domain.EmailRecipient{{Email: "ok@example.com"}, {Email: "bounce@example.com"}},
		TemplateData: map[string]any{"document_type": "Transcript"},
	})
	s.Require().NoError(err)

	s.Equal(2, summary.TotalRecipients)
	s.Equal(1, summary.SuccessfulSends)
	s.Equal(1, summary.FailedSends)
	s.Equal(domain.EmailSent, summary.Logs[0].Status)
	s.Equal("msg-1", summary.Logs[0].MessageID)
	s.Equal(domain.EmailFailed, summary.Logs[1].Status)
	s.Equal("mailbox unavailable", summary.Logs[1].ErrorMessage)

	logs, err := s.store.EmailLogs.List(s.ctx, domain.EmailLogFilter{Limit: 10})
	s.Require().NoError(err)
	s.Len(logs, 2)

	s.Equal([]domain.AuditAction{domain.ActionSendEmail}, s.auditActions())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EmailsSent.WithLabelValues("document_request", "failed")))
}

func (s *ServiceSuite) TestNotify_SendValidation() {
	ctrl := gomock.NewController(s.T())
	n := s.notifier(mocks.NewMockProvider(ctrl))

	tests := []struct {
		name string
		req  domain.SendEmailRequest
	}{
		{"no recipients", domain.SendEmailRequest{Template: domain.TemplateWelcome}},
		{"unknown template", domain.SendEmailRequest{Template: "newsletter", Recipients: []domain.EmailRecipient{{Email: "a@example.com"}}}},
		{"bad email", domain.SendEmailRequest{Template: domain.TemplateWelcome, Recipients: []domain.EmailRecipient{{Email: "nope"}}}},
		{"bad priority", domain.SendEmailRequest{Template: domain.TemplateWelcome, Priority: "asap", Recipients: []domain.EmailRecipient{{Email: "a@example.com"}}}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := n.Send(s.ctx, s.staff, tt.req)
			s.True(domain.HasCode(err, domain.CodeValidation), "got %v", err)
			s.False(s.lastAudit().Success)
		})
	}
}

func (s *ServiceSuite) TestNotify_EmailLogOutageIsSwallowed() {
	ctrl := gomock.NewController(s.T())
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(okResponse("m"), nil)
	s.store.EmailLogs.FailWith = errors.New("store down")

	summary, err := s.notifier(provider).Send(s.ctx, s.staff, domain.SendEmailRequest{
		Template:   domain.TemplateFollowup,
		Recipients: []domain.EmailRecipient{{Email: "a@example.com"}},
	})
	s.Require().NoError(err)
	s.Equal(1, summary.SuccessfulSends)
}

func (s *ServiceSuite) TestNotify_SendToStudentInjectsStudentAndSender() {
	st := s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")
	ctrl := gomock.NewController(s.T())
	provider := mocks.NewMockProvider(ctrl)

	provider.EXPECT().
		Send(gomock.Any(), gomock.Any(), domain.EmailRecipient{Email: st.Email, Name: st.Name, StudentID: st.ID}).
		DoAndReturn(func(_ any, msg *domain.EmailMessage, _ domain.EmailRecipient) (map[string]any, error) {
			s.Equal("Application Reminder - Ada Lovelace", msg.Subject)
			s.Contains(msg.TextContent, "Current status: Applying")
			s.Contains(msg.TextContent, "Finish your essay")
			s.Equal("Admin", email.Lookup(msg.Data, "sender.name"))
			return okResponse("m"), nil
		})

	summary, err := s.notifier(provider).SendToStudent(s.ctx, s.admin, domain.SendStudentEmailRequest{
		StudentID:    st.ID,
		Template:     domain.TemplateApplicationReminder,
		TemplateData: map[string]any{"reminder_message": "Finish your essay"},
	})
	s.Require().NoError(err)
	s.Equal(1, summary.SuccessfulSends)

	e := s.lastAudit()
	s.Equal(domain.TargetStudent, e.TargetType)
	s.Equal(st.ID, e.TargetID)
}

func (s *ServiceSuite) TestNotify_SendToMissingStudent() {
	ctrl := gomock.NewController(s.T())
	_, err := s.notifier(mocks.NewMockProvider(ctrl)).SendToStudent(s.ctx, s.admin, domain.SendStudentEmailRequest{
		StudentID: "ghost",
		Template:  domain.TemplateWelcome,
	})
	s.True(domain.HasCode(err, domain.CodeNotFound))
}

func (s *ServiceSuite) TestNotify_SubjectOverride() {
	ctrl := gomock.NewController(s.T())
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, msg *domain.EmailMessage, _ domain.EmailRecipient) (map[string]any, error) {
			s.Equal("Custom subject", msg.Subject)
			return okResponse("m"), nil
		})

	_, err := s.notifier(provider).Send(s.ctx, s.staff, domain.SendEmailRequest{
		Template:        domain.TemplateWelcome,
		Recipients:      []domain.EmailRecipient{{Email: "a@example.com"}},
		SubjectOverride: "Custom subject",
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestNotify_SendBulkBatches() {
	var ids []string
	for i := range 23 {
		ids = append(ids, s.seed(fmt.Sprintf("Student %c", 'A'+i), "IND", domain.StatusApplying, "").ID)
	}
	ids = append(ids, "ghost-1", ids[0])

	var mu sync.Mutex
	batches := map[string]int{}
	totals := map[string]bool{}

	ctrl := gomock.NewController(s.T())
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(23).
		DoAndReturn(func(_ any, msg *domain.EmailMessage, to domain.EmailRecipient) (map[string]any, error) {
			mu.Lock()
			defer mu.Unlock()
			batches[email.Lookup(msg.Data, "batch_info.batch_number")]++
			totals[email.Lookup(msg.Data, "batch_info.total_batches")] = true
			s.True(strings.HasPrefix(msg.Subject, "Follow-up - Student "))
			if to.StudentID == ids[22] {
				return nil, errors.New("rejected")
			}
			return okResponse("m-" + to.StudentID), nil
		})

	summary, err := s.notifier(provider).SendBulk(s.ctx, s.staff, domain.SendBulkEmailRequest{
		StudentIDs: ids,
		Template:   domain.TemplateFollowup,
	})
	s.Require().NoError(err)

	s.Equal(23, summary.TotalRecipients)
	s.Equal(22, summary.SuccessfulSends)
	s.Equal(1, summary.FailedSends)
	s.Equal([]string{"ghost-1"}, summary.MissingStudents)
	s.Equal(map[string]int{"1": 10, "2": 10, "3": 3}, batches)
	s.Equal(map[string]bool{"3": true}, totals)
	s.Equal([]domain.AuditAction{domain.ActionSendEmail}, s.auditActions())
}

func (s *ServiceSuite) TestNotify_SendBulkLimits() {
	ctrl := gomock.NewController(s.T())
	n := s.notifier(mocks.NewMockProvider(ctrl))

	_, err := n.SendBulk(s.ctx, s.staff, domain.SendBulkEmailRequest{Template: domain.TemplateWelcome})
	s.True(domain.HasCode(err, domain.CodeValidation))

	tooMany := make([]string, domain.MaxBulkRecipients+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprint(i)
	}
	_, err = n.SendBulk(s.ctx, s.staff, domain.SendBulkEmailRequest{StudentIDs: tooMany, Template: domain.TemplateWelcome})
	s.True(domain.HasCode(err, domain.CodeValidation))

	_, err = n.SendBulk(s.ctx, s.staff, domain.SendBulkEmailRequest{StudentIDs: []string{"ghost"}, Template: domain.TemplateWelcome})
	s.True(domain.HasCode(err, domain.CodeNotFound))
}

func (s *ServiceSuite) TestNotify_ListLogs() {
	ctrl := gomock.NewController(s.T())
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(okResponse("m"), nil).Times(2)
	n := s.notifier(provider)

	for _, tmpl := range []domain.EmailTemplate{domain.TemplateWelcome, domain.TemplateFollowup} {
		_, err := n.Send(s.ctx, s.staff, domain.SendEmailRequest{
			Template:   tmpl,
			Recipients: []domain.EmailRecipient{{Email: "a@example.com"}},
		})
		s.Require().NoError(err)
	}

	logs, err := n.ListLogs(s.ctx, domain.EmailLogFilter{Template: domain.TemplateFollowup})
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(domain.TemplateFollowup, logs[0].Template)

	_, err = n.ListLogs(s.ctx, domain.EmailLogFilter{Status: "lost"})
	s.True(domain.HasCode(err, domain.CodeValidation))

	_, err = n.ListLogs(s.ctx, domain.EmailLogFilter{Limit: 5000})
	s.True(domain.HasCode(err, domain.CodeValidation))
}
