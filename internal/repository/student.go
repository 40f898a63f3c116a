package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	log "github.com/sirupsen/logrus"
)

const studentColumns = `id, name, email, phone, country, grade, application_status,
	last_active, ai_summary, created_at, updated_at`

type postgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *postgresStudentRepository {
	return &postgresStudentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*domain.Student, error) {
	var s domain.Student
	var phone, grade, summary sql.NullString
	var status string

	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&phone,
		&s.Country,
		&grade,
		&status,
		&s.LastActive,
		&summary,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.Phone = phone.String
	s.Grade = grade.String
	s.AISummary = summary.String
	s.ApplicationStatus = domain.ApplicationStatus(status)
	return &s, nil
}

func (r *postgresStudentRepository) Create(ctx context.Context, s *domain.Student) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO students (` + studentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		s.Email,
		nullString(s.Phone),
		s.Country,
		nullString(s.Grade),
		string(s.ApplicationStatus),
		s.LastActive,
		nullString(s.AISummary),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		log.WithError(err).WithField("student_id", s.ID).Error("Failed to insert student")
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (r *postgresStudentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	s, err := scanStudent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student by ID: %w", err)
	}
	return s, nil
}

func (r *postgresStudentRepository) Update(ctx context.Context, s *domain.Student) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE students
		SET name = $2, email = $3, phone = $4, country = $5, grade = $6,
			application_status = $7, last_active = $8, ai_summary = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		s.Email,
		nullString(s.Phone),
		s.Country,
		nullString(s.Grade),
		string(s.ApplicationStatus),
		s.LastActive,
		nullString(s.AISummary),
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresStudentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresStudentRepository) List(ctx context.Context, opts domain.StudentListOptions) ([]domain.Student, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var where strings.Builder
	args := []any{}
	argPos := 1

	where.WriteString(" WHERE 1=1")
	if opts.Status != nil {
		where.WriteString(fmt.Sprintf(" AND application_status = $%d", argPos))
		args = append(args, string(*opts.Status))
		argPos++
	}
	if opts.Country != nil {
		where.WriteString(fmt.Sprintf(" AND country = $%d", argPos))
		args = append(args, strings.ToUpper(*opts.Country))
		argPos++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	orderBy := "created_at"
	if domain.ValidStudentOrderField(opts.OrderBy) {
		orderBy = opts.OrderBy
	}
	direction := "DESC"
	if opts.Direction == domain.SortAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM students%s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		studentColumns, where.String(), orderBy, direction, argPos, argPos+1)
	args = append(args, opts.PageSize, opts.Offset())

	students, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

func (r *postgresStudentRepository) Snapshot(ctx context.Context, limit int) ([]domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at DESC, id LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *postgresStudentRepository) query(ctx context.Context, query string, args ...any) ([]domain.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := []domain.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan student row")
			return nil, err
		}
		students = append(students, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}
