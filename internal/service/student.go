package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type StudentService struct {
	repo      repository.StudentRepository
	audit     *AuditService
	validator *validation.Validator
	now       func() time.Time
}

func NewStudentService(repo repository.StudentRepository, audit *AuditService, v *validation.Validator) *StudentService {
	return &StudentService{
		repo:      repo,
		audit:     audit,
		validator: v,
		now:       time.Now,
	}
}

func studentNotFound(id string) error {
	return domain.NewNotFound("Student not found", map[string]any{"student_id": id})
}

func (s *StudentService) Create(ctx context.Context, p *domain.Principal, req domain.StudentCreate) (*domain.Student, error) {
	student, err := s.create(ctx, req)

	entry := domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionCreateStudent,
		TargetType: domain.TargetStudent,
		Details:    map[string]any{"student_email": req.Email},
	}
	if student != nil {
		entry.TargetID = student.ID
		entry.Details["student_name"] = student.Name
	}
	s.audit.RecordResult(ctx, entry, err)

	if err != nil {
		return nil, err
	}
	return student, nil
}

// ValidateCreate normalizes req in place and validates it without storing.
func (s *StudentService) ValidateCreate(req *domain.StudentCreate) error {
	req.Normalize()
	return s.validator.Struct(req, "Invalid student data")
}

// create stores a new record without auditing; bulk import audits once per file.
func (s *StudentService) create(ctx context.Context, req domain.StudentCreate) (*domain.Student, error) {
	if err := s.ValidateCreate(&req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	student := &domain.Student{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             req.Email,
		Country:           req.Country,
		ApplicationStatus: domain.ApplicationStatus(req.ApplicationStatus),
		LastActive:        now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Phone != nil {
		student.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Grade != nil {
		student.Grade = *req.Grade
	}
	if req.LastActive != nil {
		student.LastActive = req.LastActive.UTC()
	}

	if err := s.repo.Create(ctx, student); err != nil {
		log.WithError(err).WithField("email", student.Email).Error("Failed to create student")
		return nil, domain.NewInternal("Failed to create student", err)
	}

	log.WithFields(log.Fields{
		"student_id": student.ID,
		"email":      student.Email,
	}).Info("Student created")
	return student, nil
}

func (s *StudentService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Student, error) {
	student, err := s.get(ctx, id)
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionViewStudent,
		TargetType: domain.TargetStudent,
		TargetID:   id,
	}, err)
	return student, err
}

func (s *StudentService) get(ctx context.Context, id string) (*domain.Student, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidation("Student ID is required", map[string]any{"student_id": id})
	}
	student, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, studentNotFound(id)
	}
	if err != nil {
		log.WithError(err).WithField("student_id", id).Error("Failed to get student")
		return nil, domain.NewInternal("Failed to retrieve student", err)
	}
	return student, nil
}

func (s *StudentService) Update(ctx context.Context, p *domain.Principal, id string, req domain.StudentUpdate) (*domain.Student, error) {
	student, err := s.update(ctx, id, req)
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionUpdateStudent,
		TargetType: domain.TargetStudent,
		TargetID:   id,
		Details:    map[string]any{"updated_fields": req.Changes()},
	}, err)
	return student, err
}

func (s *StudentService) update(ctx context.Context, id string, req domain.StudentUpdate) (*domain.Student, error) {
	if req.IsEmpty() {
		return nil, domain.NewValidation("At least one field must be provided for update", nil)
	}
	req.Normalize()
	if err := s.validator.Struct(req, "Invalid student data"); err != nil {
		return nil, err
	}

	student, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(student)
	student.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, studentNotFound(id)
		}
		log.WithError(err).WithField("student_id", id).Error("Failed to update student")
		return nil, domain.NewInternal("Failed to update student", err)
	}

	log.WithFields(log.Fields{
		"student_id":     id,
		"updated_fields": req.Changes(),
	}).Info("Student updated")
	return student, nil
}

func (s *StudentService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	err := s.delete(ctx, id)
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionDeleteStudent,
		TargetType: domain.TargetStudent,
		TargetID:   id,
	}, err)
	return err
}

func (s *StudentService) delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return studentNotFound(id)
	}
	if err != nil {
		log.WithError(err).WithField("student_id", id).Error("Failed to delete student")
		return domain.NewInternal("Failed to delete student", err)
	}
	log.WithField("student_id", id).Info("Student deleted")
	return nil
}

func (s *StudentService) List(ctx context.Context, p *domain.Principal, opts domain.StudentListOptions) (*domain.StudentList, error) {
	opts = opts.WithDefaults()
	list, err := s.list(ctx, opts)

	details := map[string]any{
		"operation": "list",
		"page":      opts.Page,
		"page_size": opts.PageSize,
	}
	if list != nil {
		details["result_count"] = len(list.Students)
	}
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionViewStudent,
		TargetType: domain.TargetStudent,
		Details:    details,
	}, err)
	return list, err
}

func (s *StudentService) list(ctx context.Context, opts domain.StudentListOptions) (*domain.StudentList, error) {
	if opts.Page < 1 {
		return nil, domain.NewValidation("Page must be at least 1", map[string]any{"page": opts.Page})
	}
	if opts.PageSize < 1 || opts.PageSize > domain.MaxPageSize {
		return nil, domain.NewValidation("Page size must be between 1 and 100", map[string]any{"page_size": opts.PageSize})
	}
	if opts.Page-1 > math.MaxInt/opts.PageSize {
		return nil, domain.NewValidation("Page is out of range", map[string]any{"page": opts.Page})
	}
	if !domain.ValidStudentOrderField(opts.OrderBy) {
		return nil, domain.NewValidation("Invalid order_by field", map[string]any{"order_by": opts.OrderBy})
	}
	if opts.Direction != domain.SortAsc && opts.Direction != domain.SortDesc {
		return nil, domain.NewValidation("Order direction must be 'asc' or 'desc'", map[string]any{"order_direction": string(opts.Direction)})
	}
	if opts.Country != nil {
		c := strings.ToUpper(strings.TrimSpace(*opts.Country))
		opts.Country = &c
	}

	students, total, err := s.repo.List(ctx, opts)
	if err != nil {
		log.WithError(err).Error("Failed to list students")
		return nil, domain.NewInternal("Failed to list students", err)
	}

	return &domain.StudentList{
		Students: students,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
		HasNext:  opts.Offset()+len(students) < total,
	}, nil
}
