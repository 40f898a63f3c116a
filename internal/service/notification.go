package service

import (
	"context"
	"errors"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/email"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/metrics"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const maxEmailLogLimit = 1000

// NotificationService renders catalogue templates and hands them to the
// configured provider, one email log per recipient.
type NotificationService struct {
	provider  email.Provider
	catalog   *email.Catalog
	logs      repository.EmailLogRepository
	students  repository.StudentRepository
	audit     *AuditService
	validator *validation.Validator
	metrics   *metrics.Metrics
	from      config.Email
	now       func() time.Time
}

func NewNotificationService(
	provider email.Provider,
	catalog *email.Catalog,
	logs repository.EmailLogRepository,
	students repository.StudentRepository,
	audit *AuditService,
	v *validation.Validator,
	m *metrics.Metrics,
	cfg config.Email,
) *NotificationService {
	return &NotificationService{
		provider:  provider,
		catalog:   catalog,
		logs:      logs,
		students:  students,
		audit:     audit,
		validator: v,
		metrics:   m,
		from:      cfg,
		now:       time.Now,
	}
}

type outbound struct {
	recipient domain.EmailRecipient
	data      map[string]any
}

type preparedSend struct {
	name            domain.EmailTemplate
	tmpl            email.Template
	subjectOverride string
	priority        domain.EmailPriority
	scheduledAt     *time.Time
}

func (s *NotificationService) prepare(name domain.EmailTemplate, subjectOverride string, priority domain.EmailPriority) (preparedSend, error) {
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return preparedSend{}, domain.NewValidation("Invalid email priority", map[string]any{"priority": string(priority)})
	}
	tmpl, ok := s.catalog.Get(name)
	if !ok {
		return preparedSend{}, domain.NewValidation("Email template not found: "+string(name), map[string]any{
			"available_templates": s.catalog.Names(),
		})
	}
	return preparedSend{name: name, tmpl: tmpl, subjectOverride: subjectOverride, priority: priority}, nil
}

func (s *NotificationService) Send(ctx context.Context, p *domain.Principal, req domain.SendEmailRequest) (*domain.EmailSendSummary, error) {
	summary, err := s.send(ctx, p, req)
	s.auditSend(ctx, p, req.Template, "", summary, err)
	return summary, err
}

func (s *NotificationService) send(ctx context.Context, p *domain.Principal, req domain.SendEmailRequest) (*domain.EmailSendSummary, error) {
	if len(req.Recipients) == 0 {
		return nil, domain.NewValidation("No recipients specified for email", map[string]any{"template": string(req.Template)})
	}
	if len(req.Recipients) > domain.MaxBulkRecipients {
		return nil, domain.NewValidation("Too many recipients", map[string]any{"max_recipients": domain.MaxBulkRecipients})
	}
	if err := s.validator.Struct(req, "Invalid email request"); err != nil {
		return nil, err
	}
	prepared, err := s.prepare(req.Template, req.SubjectOverride, req.Priority)
	if err != nil {
		return nil, err
	}
	prepared.scheduledAt = req.ScheduledAt

	items := make([]outbound, len(req.Recipients))
	for i, r := range req.Recipients {
		items[i] = outbound{recipient: r, data: req.TemplateData}
	}

	logs, err := s.deliverAll(ctx, p, prepared, items)
	if err != nil {
		return nil, domain.NewInternal("Email sending operation failed", err)
	}
	summary := domain.SummarizeEmailLogs(logs)

	log.WithFields(log.Fields{
		"user_id":          p.SubjectID,
		"template":         req.Template,
		"total_recipients": summary.TotalRecipients,
		"successful_sends": summary.SuccessfulSends,
	}).Info("Email batch completed")
	return &summary, nil
}

func (s *NotificationService) SendToStudent(ctx context.Context, p *domain.Principal, req domain.SendStudentEmailRequest) (*domain.EmailSendSummary, error) {
	summary, err := s.sendToStudent(ctx, p, req)
	s.auditSend(ctx, p, req.Template, req.StudentID, summary, err)
	return summary, err
}

func (s *NotificationService) sendToStudent(ctx context.Context, p *domain.Principal, req domain.SendStudentEmailRequest) (*domain.EmailSendSummary, error) {
	if err := s.validator.Struct(req, "Invalid email request"); err != nil {
		return nil, err
	}
	prepared, err := s.prepare(req.Template, req.SubjectOverride, domain.PriorityNormal)
	if err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, studentNotFound(req.StudentID)
	}
	if err != nil {
		log.WithError(err).WithField("student_id", req.StudentID).Error("Failed to load student for email")
		return nil, domain.NewInternal("Failed to retrieve student", err)
	}

	data := mergeTemplateData(map[string]any{
		"student": studentTemplateData(student),
		"sender":  senderTemplateData(p),
	}, req.TemplateData)

	logs, err := s.deliverAll(ctx, p, prepared, []outbound{{recipient: recipientOf(student), data: data}})
	if err != nil {
		return nil, domain.NewInternal("Email sending operation failed", err)
	}
	summary := domain.SummarizeEmailLogs(logs)
	return &summary, nil
}

// SendBulk mails every listed student in batches of domain.EmailBatchSize.
// Batches run one after another; a failed batch is logged and skipped.
func (s *NotificationService) SendBulk(ctx context.Context, p *domain.Principal, req domain.SendBulkEmailRequest) (*domain.EmailSendSummary, error) {
	summary, err := s.sendBulk(ctx, p, req)
	s.auditSend(ctx, p, req.Template, "", summary, err)
	return summary, err
}

func (s *NotificationService) sendBulk(ctx context.Context, p *domain.Principal, req domain.SendBulkEmailRequest) (*domain.EmailSendSummary, error) {
	if len(req.StudentIDs) == 0 {
		return nil, domain.NewValidation("At least one student ID is required", nil)
	}
	if len(req.StudentIDs) > domain.MaxBulkRecipients {
		return nil, domain.NewValidation("Too many recipients", map[string]any{
			"max_recipients": domain.MaxBulkRecipients,
			"requested":      len(req.StudentIDs),
		})
	}
	prepared, err := s.prepare(req.Template, req.SubjectOverride, domain.PriorityNormal)
	if err != nil {
		return nil, err
	}

	students, missing, err := s.loadStudents(ctx, req.StudentIDs)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, domain.NewNotFound("No students found for the given IDs", map[string]any{"missing_students": missing})
	}

	sender := senderTemplateData(p)
	totalBatches := (len(students) + domain.EmailBatchSize - 1) / domain.EmailBatchSize
	var all []domain.EmailLog

	for start := 0; start < len(students); start += domain.EmailBatchSize {
		end := min(start+domain.EmailBatchSize, len(students))
		batchNumber := start/domain.EmailBatchSize + 1

		items := make([]outbound, 0, end-start)
		for i := range students[start:end] {
			st := &students[start+i]
			items = append(items, outbound{
				recipient: recipientOf(st),
				data: mergeTemplateData(map[string]any{
					"student": studentTemplateData(st),
					"sender":  sender,
					"batch_info": map[string]any{
						"batch_number":      batchNumber,
						"total_batches":     totalBatches,
						"students_in_batch": end - start,
					},
				}, req.TemplateData),
			})
		}

		logs, err := s.deliverAll(ctx, p, prepared, items)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"user_id":      p.SubjectID,
				"batch_number": batchNumber,
				"batch_size":   len(items),
			}).Error("Failed to send email batch")
			continue
		}
		all = append(all, logs...)
	}

	summary := domain.SummarizeEmailLogs(all)
	summary.MissingStudents = missing

	log.WithFields(log.Fields{
		"user_id":          p.SubjectID,
		"template":         req.Template,
		"total_students":   len(students),
		"successful_sends": summary.SuccessfulSends,
	}).Info("Bulk notification completed")
	return &summary, nil
}

func (s *NotificationService) loadStudents(ctx context.Context, ids []string) ([]domain.Student, []string, error) {
	seen := make(map[string]struct{}, len(ids))
	var students []domain.Student
	var missing []string
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		st, err := s.students.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			log.WithError(err).WithField("student_id", id).Error("Failed to load student for email")
			return nil, nil, domain.NewInternal("Failed to retrieve students", err)
		}
		students = append(students, *st)
	}
	return students, missing, nil
}

// deliverAll sends to every item concurrently and returns logs in item
// order. It only fails when ctx ends before the sends finish.
func (s *NotificationService) deliverAll(ctx context.Context, p *domain.Principal, prepared preparedSend, items []outbound) ([]domain.EmailLog, error) {
	logs := make([]domain.EmailLog, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(domain.EmailBatchSize)
	for i, item := range items {
		g.Go(func() error {
			logs[i] = s.deliver(gctx, p, prepared, item)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *NotificationService) deliver(ctx context.Context, p *domain.Principal, prepared preparedSend, item outbound) domain.EmailLog {
	msg := s.render(prepared, item.data)

	entry := domain.EmailLog{
		ID:             uuid.NewString(),
		MessageID:      msg.ID,
		RecipientEmail: item.recipient.Email,
		StudentID:      item.recipient.StudentID,
		Template:       prepared.name,
		Subject:        msg.Subject,
		SentBy:         p.SubjectID,
	}

	response, err := s.provider.Send(ctx, msg, item.recipient)
	entry.SentAt = s.now().UTC()
	if err != nil {
		entry.Status = domain.EmailFailed
		entry.ErrorMessage = err.Error()
		log.WithError(err).WithFields(log.Fields{
			"user_id":   p.SubjectID,
			"recipient": item.recipient.Email,
			"template":  prepared.name,
		}).Warn("Failed to send email")
	} else {
		entry.Status = domain.EmailSent
		entry.ProviderResponse = response
		if id, ok := response["message_id"].(string); ok && id != "" {
			entry.MessageID = id
		}
	}
	s.metrics.ObserveEmail(string(prepared.name), string(entry.Status))

	if err := s.logs.Append(ctx, &entry); err != nil {
		log.WithError(err).WithField("email_log_id", entry.ID).Error("Failed to store email log")
	}
	return entry
}

func (s *NotificationService) render(prepared preparedSend, data map[string]any) *domain.EmailMessage {
	msg := &domain.EmailMessage{
		ID:          uuid.NewString(),
		Template:    prepared.name,
		Subject:     prepared.subjectOverride,
		HTMLContent: email.RenderHTML(prepared.tmpl.HTML, data),
		SenderEmail: s.from.FromAddress,
		SenderName:  s.from.FromName,
		Priority:    prepared.priority,
		ScheduledAt: prepared.scheduledAt,
		Data:        data,
	}
	if msg.Subject == "" {
		msg.Subject = email.Render(prepared.tmpl.Subject, data)
	}
	if prepared.tmpl.Text != "" {
		msg.TextContent = email.Render(prepared.tmpl.Text, data)
	}
	return msg
}

func (s *NotificationService) auditSend(ctx context.Context, p *domain.Principal, tmpl domain.EmailTemplate, studentID string, summary *domain.EmailSendSummary, err error) {
	details := map[string]any{"template": string(tmpl)}
	if summary != nil {
		details["total_recipients"] = summary.TotalRecipients
		details["successful_sends"] = summary.SuccessfulSends
		details["failed_sends"] = summary.FailedSends
		if len(summary.MissingStudents) > 0 {
			details["missing_students"] = summary.MissingStudents
		}
	}
	entry := domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionSendEmail,
		TargetType: domain.TargetEmail,
		Details:    details,
	}
	if studentID != "" {
		entry.TargetType = domain.TargetStudent
		entry.TargetID = studentID
	}
	s.audit.RecordResult(ctx, entry, err)
}

func (s *NotificationService) ListLogs(ctx context.Context, filter domain.EmailLogFilter) ([]domain.EmailLog, error) {
	if filter.Limit == 0 {
		filter.Limit = domain.DefaultEmailLogMax
	}
	if filter.Limit < 1 || filter.Limit > maxEmailLogLimit {
		return nil, domain.NewValidation("Limit must be between 1 and 1000", map[string]any{"limit": filter.Limit})
	}
	if filter.Offset < 0 {
		return nil, domain.NewValidation("Offset must not be negative", map[string]any{"offset": filter.Offset})
	}
	if filter.Template != "" && !filter.Template.Valid() {
		return nil, domain.NewValidation("Unknown email template", map[string]any{"template": string(filter.Template)})
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidation("Unknown email status", map[string]any{"status": string(filter.Status)})
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.NewValidation("Start date must be before end date", nil)
	}

	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list email logs")
		return nil, domain.NewInternal("Failed to retrieve email logs", err)
	}
	return logs, nil
}

func recipientOf(st *domain.Student) domain.EmailRecipient {
	return domain.EmailRecipient{Email: st.Email, Name: st.Name, StudentID: st.ID}
}

func studentTemplateData(st *domain.Student) map[string]any {
	return map[string]any{
		"id":                 st.ID,
		"name":               st.Name,
		"email":              st.Email,
		"country":            st.Country,
		"grade":              st.Grade,
		"application_status": string(st.ApplicationStatus),
	}
}

func senderTemplateData(p *domain.Principal) map[string]any {
	return map[string]any{
		"uid":   p.SubjectID,
		"name":  p.DisplayName,
		"email": p.Email,
	}
}

// mergeTemplateData layers caller data over the generated keys.
func mergeTemplateData(generated, caller map[string]any) map[string]any {
	out := make(map[string]any, len(generated)+len(caller))
	for k, v := range generated {
		out[k] = v
	}
	for k, v := range caller {
		out[k] = v
	}
	return out
}
