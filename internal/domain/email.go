package domain

import "time"

type EmailTemplate string

const (
	TemplateWelcome             EmailTemplate = "welcome"
	TemplateApplicationReminder EmailTemplate = "application_reminder"
	TemplateDocumentRequest     EmailTemplate = "document_request"
	TemplateStatusUpdate        EmailTemplate = "status_update"
	TemplateFollowup            EmailTemplate = "followup"
	TemplateInterviewInvitation EmailTemplate = "interview_invitation"
	TemplateAdmissionDecision   EmailTemplate = "admission_decision"
)

func (t EmailTemplate) Valid() bool {
	switch t {
	case TemplateWelcome, TemplateApplicationReminder, TemplateDocumentRequest, TemplateStatusUpdate,
		TemplateFollowup, TemplateInterviewInvitation, TemplateAdmissionDecision:
		return true
	}
	return false
}

type EmailPriority string

const (
	PriorityLow    EmailPriority = "low"
	PriorityNormal EmailPriority = "normal"
	PriorityHigh   EmailPriority = "high"
	PriorityUrgent EmailPriority = "urgent"
)

func (p EmailPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type EmailStatus string

const (
	EmailPending    EmailStatus = "pending"
	EmailSent       EmailStatus = "sent"
	EmailDelivered  EmailStatus = "delivered"
	EmailFailed     EmailStatus = "failed"
	EmailBounced    EmailStatus = "bounced"
	EmailComplained EmailStatus = "complained"
)

func (s EmailStatus) Valid() bool {
	switch s {
	case EmailPending, EmailSent, EmailDelivered, EmailFailed, EmailBounced, EmailComplained:
		return true
	}
	return false
}

const (
	EmailBatchSize     = 10
	MaxBulkRecipients  = 1000
	DefaultEmailLogMax = 100
)

type EmailRecipient struct {
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name,omitempty"`
	StudentID string `json:"student_id,omitempty"`
}

// EmailMessage is one rendered message ready for a provider.
type EmailMessage struct {
	ID          string         `json:"id"`
	Template    EmailTemplate  `json:"template"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"html_content"`
	TextContent string         `json:"text_content,omitempty"`
	SenderEmail string         `json:"sender_email"`
	SenderName  string         `json:"sender_name"`
	Priority    EmailPriority  `json:"priority"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Data        map[string]any `json:"template_data"`
}

type EmailLog struct {
	ID               string         `json:"id"`
	MessageID        string         `json:"message_id"`
	RecipientEmail   string         `json:"recipient_email"`
	StudentID        string         `json:"student_id,omitempty"`
	Template         EmailTemplate  `json:"template"`
	Subject          string         `json:"subject"`
	Status           EmailStatus    `json:"status"`
	SentBy           string         `json:"sent_by"`
	SentAt           time.Time      `json:"sent_at"`
	DeliveredAt      *time.Time     `json:"delivered_at,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ProviderResponse map[string]any `json:"provider_response"`
}

type SendEmailRequest struct {
	Template        EmailTemplate    `json:"template" validate:"required"`
	Recipients      []EmailRecipient `json:"recipients" validate:"dive"`
	TemplateData    map[string]any   `json:"template_data"`
	SubjectOverride string           `json:"subject_override,omitempty"`
	Priority        EmailPriority    `json:"priority,omitempty"`
	ScheduledAt     *time.Time       `json:"scheduled_at,omitempty"`
}

type SendStudentEmailRequest struct {
	StudentID       string         `json:"student_id" validate:"required"`
	Template        EmailTemplate  `json:"template" validate:"required"`
	TemplateData    map[string]any `json:"template_data"`
	SubjectOverride string         `json:"subject_override,omitempty"`
}

type SendBulkEmailRequest struct {
	StudentIDs      []string       `json:"student_ids" validate:"required,min=1"`
	Template        EmailTemplate  `json:"template" validate:"required"`
	TemplateData    map[string]any `json:"template_data"`
	SubjectOverride string         `json:"subject_override,omitempty"`
}

type EmailLogFilter struct {
	StudentID string
	Template  EmailTemplate
	Status    EmailStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type EmailSendSummary struct {
	Logs            []EmailLog `json:"logs"`
	TotalRecipients int        `json:"total_recipients"`
	SuccessfulSends int        `json:"successful_sends"`
	FailedSends     int        `json:"failed_sends"`
	MissingStudents []string   `json:"missing_students,omitempty"`
}

func SummarizeEmailLogs(logs []EmailLog) EmailSendSummary {
	s := EmailSendSummary{Logs: logs, TotalRecipients: len(logs)}
	for _, l := range logs {
		if l.Status == EmailSent || l.Status == EmailDelivered {
			s.SuccessfulSends++
		} else {
			s.FailedSends++
		}
	}
	return s
}
