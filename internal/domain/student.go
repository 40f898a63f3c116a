package domain

import (
	"strings"
	"time"
)

type ApplicationStatus string

const (
	StatusExploring    ApplicationStatus = "Exploring"
	StatusShortlisting ApplicationStatus = "Shortlisting"
	StatusApplying     ApplicationStatus = "Applying"
	StatusSubmitted    ApplicationStatus = "Submitted"
)

func ApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{StatusExploring, StatusShortlisting, StatusApplying, StatusSubmitted}
}

func (s ApplicationStatus) Valid() bool {
	for _, v := range ApplicationStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// ParseApplicationStatus matches case-insensitively.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	raw = strings.TrimSpace(raw)
	for _, v := range ApplicationStatuses() {
		if strings.EqualFold(raw, string(v)) {
			return v, true
		}
	}
	return "", false
}

type Student struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone,omitempty"`
	Country           string            `json:"country"`
	Grade             string            `json:"grade,omitempty"`
	ApplicationStatus ApplicationStatus `json:"application_status"`
	LastActive        time.Time         `json:"last_active"`
	AISummary         string            `json:"ai_summary,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type StudentCreate struct {
	Name              string     `json:"name" validate:"required,min=1,max=100,personname"`
	Email             string     `json:"email" validate:"required,email"`
	Phone             *string    `json:"phone,omitempty" validate:"omitnil,min=10,max=20,phonedigits"`
	Country           string     `json:"country" validate:"required,len=3,alpha"`
	Grade             *string    `json:"grade,omitempty" validate:"omitnil,min=1,max=20,grade"`
	ApplicationStatus string     `json:"application_status,omitempty" validate:"omitempty,appstatus"`
	LastActive        *time.Time `json:"last_active,omitempty"`
}

// Normalize trims and canonicalises fields before validation.
func (c *StudentCreate) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	if c.Grade != nil {
		g := strings.TrimSpace(*c.Grade)
		c.Grade = &g
	}
	if c.ApplicationStatus == "" {
		c.ApplicationStatus = string(StatusExploring)
	} else if s, ok := ParseApplicationStatus(c.ApplicationStatus); ok {
		c.ApplicationStatus = string(s)
	}
}

type StudentUpdate struct {
	Name              *string    `json:"name,omitempty" validate:"omitnil,min=1,max=100,personname"`
	Email             *string    `json:"email,omitempty" validate:"omitnil,email"`
	Phone             *string    `json:"phone,omitempty" validate:"omitnil,min=10,max=20,phonedigits"`
	Country           *string    `json:"country,omitempty" validate:"omitnil,len=3,alpha"`
	Grade             *string    `json:"grade,omitempty" validate:"omitnil,min=1,max=20,grade"`
	ApplicationStatus *string    `json:"application_status,omitempty" validate:"omitnil,appstatus"`
	LastActive        *time.Time `json:"last_active,omitempty"`
	AISummary         *string    `json:"ai_summary,omitempty" validate:"omitnil,max=1000"`
}

func (u *StudentUpdate) Normalize() {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	u.Name = trim(u.Name)
	u.Email = trim(u.Email)
	u.Grade = trim(u.Grade)
	if u.Country != nil {
		v := strings.ToUpper(strings.TrimSpace(*u.Country))
		u.Country = &v
	}
	if u.ApplicationStatus != nil {
		if s, ok := ParseApplicationStatus(*u.ApplicationStatus); ok {
			v := string(s)
			u.ApplicationStatus = &v
		}
	}
}

func (u *StudentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.Country == nil &&
		u.Grade == nil && u.ApplicationStatus == nil && u.LastActive == nil && u.AISummary == nil
}

// Apply copies the set fields onto s. Validation must already have passed.
func (u *StudentUpdate) Apply(s *Student) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	if u.Country != nil {
		s.Country = *u.Country
	}
	if u.Grade != nil {
		s.Grade = *u.Grade
	}
	if u.ApplicationStatus != nil {
		s.ApplicationStatus = ApplicationStatus(*u.ApplicationStatus)
	}
	if u.LastActive != nil {
		s.LastActive = u.LastActive.UTC()
	}
	if u.AISummary != nil {
		s.AISummary = *u.AISummary
	}
}

// Changes lists the field names an update touches, for audit details.
func (u *StudentUpdate) Changes() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(u.Name != nil, "name")
	add(u.Email != nil, "email")
	add(u.Phone != nil, "phone")
	add(u.Country != nil, "country")
	add(u.Grade != nil, "grade")
	add(u.ApplicationStatus != nil, "application_status")
	add(u.LastActive != nil, "last_active")
	add(u.AISummary != nil, "ai_summary")
	return fields
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var studentOrderFields = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"name":        true,
	"email":       true,
	"last_active": true,
}

func ValidStudentOrderField(f string) bool {
	return studentOrderFields[f]
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type StudentListOptions struct {
	Page      int
	PageSize  int
	OrderBy   string
	Direction SortDirection
	Status    *ApplicationStatus
	Country   *string
}

// WithDefaults fills zero values; it does not validate.
func (o StudentListOptions) WithDefaults() StudentListOptions {
	if o.Page == 0 {
		o.Page = 1
	}
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.OrderBy == "" {
		o.OrderBy = "created_at"
	}
	if o.Direction == "" {
		o.Direction = SortDesc
	}
	return o
}

func (o StudentListOptions) Offset() int {
	return (o.Page - 1) * o.PageSize
}

type StudentList struct {
	Students []Student `json:"students"`
	Total    int       `json:"total_count"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	HasNext  bool      `json:"has_next"`
}
