package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
)

const queryTimeout = 5 * time.Second

type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id string) (*domain.Student, error)
	Update(ctx context.Context, student *domain.Student) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts domain.StudentListOptions) ([]domain.Student, int, error)
	// Snapshot returns up to limit records, newest first.
	Snapshot(ctx context.Context, limit int) ([]domain.Student, error)
}

type RoleRepository interface {
	Get(ctx context.Context, uid string) (*domain.UserRole, error)
	// CreateIfAbsent inserts the record unless one already exists for the uid.
	CreateIfAbsent(ctx context.Context, role *domain.UserRole) (bool, error)
	UpdateRole(ctx context.Context, uid string, role domain.Role) error
	TouchLastLogin(ctx context.Context, uid string, at time.Time) error
}

type AuditRepository interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
	List(ctx context.Context, filter domain.AuditFilter, limit, offset int) ([]domain.AuditEvent, error)
}

type FileRepository interface {
	Create(ctx context.Context, file *domain.StoredFile) error
	GetByID(ctx context.Context, id string) (*domain.StoredFile, error)
	ListByStudent(ctx context.Context, studentID string) ([]domain.StoredFile, error)
	FindByHash(ctx context.Context, studentID, hash string) (*domain.StoredFile, error)
	MarkDeleted(ctx context.Context, id, deletedBy string, at time.Time) error
	ListAll(ctx context.Context) ([]domain.StoredFile, error)
}

type EmailLogRepository interface {
	Append(ctx context.Context, log *domain.EmailLog) error
	List(ctx context.Context, filter domain.EmailLogFilter) ([]domain.EmailLog, error)
}

// Store is the process-wide handle on the backing store. It is built once
// at startup and handed to every component that needs persistence.
type Store struct {
	Students  StudentRepository
	Roles     RoleRepository
	Audit     AuditRepository
	Files     FileRepository
	EmailLogs EmailLogRepository

	ping  func(ctx context.Context) error
	close func() error
}

func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Students:  NewPostgresStudentRepository(db),
		Roles:     NewPostgresRoleRepository(db),
		Audit:     NewPostgresAuditRepository(db),
		Files:     NewPostgresFileRepository(db),
		EmailLogs: NewPostgresEmailLogRepository(db),
		ping:      db.PingContext,
		close:     db.Close,
	}
}

// NewStore assembles a Store from arbitrary repositories.
func NewStore(students StudentRepository, roles RoleRepository, audit AuditRepository, files FileRepository, emailLogs EmailLogRepository) *Store {
	return &Store{
		Students:  students,
		Roles:     roles,
		Audit:     audit,
		Files:     files,
		EmailLogs: emailLogs,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
