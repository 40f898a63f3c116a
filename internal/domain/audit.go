package domain

import "time"

// AuditFailedID is returned by the audit sink when an event could not be stored.
const AuditFailedID = "audit_log_failed"

// TimestampLayout is the fixed-width ISO-8601 form used for persisted log
// timestamps, so lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts the fixed layout and plain RFC 3339.
func ParseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

type AuditAction string

const (
	ActionCreateStudent      AuditAction = "CREATE_STUDENT"
	ActionUpdateStudent      AuditAction = "UPDATE_STUDENT"
	ActionDeleteStudent      AuditAction = "DELETE_STUDENT"
	ActionViewStudent        AuditAction = "VIEW_STUDENT"
	ActionBulkImportStudents AuditAction = "BULK_IMPORT_STUDENTS"
	ActionExportStudents     AuditAction = "EXPORT_STUDENTS"
	ActionUploadFile         AuditAction = "UPLOAD_FILE"
	ActionDeleteFile         AuditAction = "DELETE_FILE"
	ActionDownloadFile       AuditAction = "DOWNLOAD_FILE"
	ActionSendEmail          AuditAction = "SEND_EMAIL"
	ActionUserLogin          AuditAction = "USER_LOGIN"
	ActionUserLogout         AuditAction = "USER_LOGOUT"
	ActionChangeUserRole     AuditAction = "CHANGE_USER_ROLE"
	ActionSearchStudents     AuditAction = "SEARCH_STUDENTS"
)

var auditActions = map[AuditAction]Severity{
	ActionCreateStudent:      SeverityMedium,
	ActionUpdateStudent:      SeverityMedium,
	ActionDeleteStudent:      SeverityHigh,
	ActionViewStudent:        SeverityLow,
	ActionBulkImportStudents: SeverityHigh,
	ActionExportStudents:     SeverityMedium,
	ActionUploadFile:         SeverityMedium,
	ActionDeleteFile:         SeverityHigh,
	ActionDownloadFile:       SeverityLow,
	ActionSendEmail:          SeverityLow,
	ActionUserLogin:          SeverityLow,
	ActionUserLogout:         SeverityLow,
	ActionChangeUserRole:     SeverityHigh,
	ActionSearchStudents:     SeverityLow,
}

func (a AuditAction) Valid() bool {
	_, ok := auditActions[a]
	return ok
}

// DefaultSeverity returns the severity used when the caller does not set one.
func (a AuditAction) DefaultSeverity() Severity {
	if s, ok := auditActions[a]; ok {
		return s
	}
	return SeverityMedium
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

const (
	TargetStudent = "student"
	TargetFile    = "file"
	TargetEmail   = "email"
	TargetUser    = "user"
)

// AuditEvent is immutable once written.
type AuditEvent struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"user_id"`
	ActorEmail   string         `json:"user_email"`
	ActorRole    Role           `json:"user_role"`
	Action       AuditAction    `json:"action"`
	TargetType   string         `json:"target_type"`
	TargetID     string         `json:"target_id,omitempty"`
	Severity     Severity       `json:"severity"`
	Timestamp    time.Time      `json:"timestamp"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Details      map[string]any `json:"details"`
}

// AuditEntry is what callers hand to the sink.
type AuditEntry struct {
	Principal    *Principal
	Action       AuditAction
	TargetType   string
	TargetID     string
	Severity     Severity
	Details      map[string]any
	Success      bool
	ErrorMessage string
}

type AuditFilter struct {
	ActorID    string
	Action     AuditAction
	TargetType string
	TargetID   string
	From       *time.Time
	To         *time.Time
}

type UserActivitySummary struct {
	UserID             string         `json:"user_id"`
	PeriodDays         int            `json:"period_days"`
	TotalActions       int            `json:"total_actions"`
	ActionsByType      map[string]int `json:"actions_by_type"`
	MostRecentActivity *time.Time     `json:"most_recent_activity"`
}

// RequestMeta carries client details captured at the HTTP edge.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}
