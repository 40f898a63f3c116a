package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	log "github.com/sirupsen/logrus"
)

const fileColumns = `id, student_id, original_filename, storage_filename, file_type, mime_type,
	file_size, file_hash, storage_path, download_url, status, uploaded_by, uploaded_at,
	deleted_at, deleted_by, metadata`

type postgresFileRepository struct {
	db *sql.DB
}

func NewPostgresFileRepository(db *sql.DB) *postgresFileRepository {
	return &postgresFileRepository{db: db}
}

func scanFile(row rowScanner) (*domain.StoredFile, error) {
	var f domain.StoredFile
	var fileType, status string
	var downloadURL, deletedBy sql.NullString
	var deletedAt sql.NullTime
	var metadata []byte

	if err := row.Scan(
		&f.ID,
		&f.StudentID,
		&f.OriginalFilename,
		&f.StorageFilename,
		&fileType,
		&f.MimeType,
		&f.FileSize,
		&f.FileHash,
		&f.StoragePath,
		&downloadURL,
		&status,
		&f.UploadedBy,
		&f.UploadedAt,
		&deletedAt,
		&deletedBy,
		&metadata,
	); err != nil {
		return nil, err
	}

	f.FileType = domain.FileType(fileType)
	parsed, ok := domain.ParseFileStatus(status)
	if !ok {
		log.WithFields(log.Fields{
			"file_id": f.ID,
			"status":  status,
		}).Warn("Unknown stored file status, treating as error")
	}
	f.Status = parsed
	f.DownloadURL = downloadURL.String
	f.DeletedBy = deletedBy.String
	if deletedAt.Valid {
		f.DeletedAt = &deletedAt.Time
	}

	f.Metadata = map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			log.WithError(err).WithField("file_id", f.ID).Warn("Ignoring unreadable file metadata")
		}
	}
	return &f, nil
}

func (r *postgresFileRepository) Create(ctx context.Context, f *domain.StoredFile) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal file metadata: %w", err)
	}

	query := `
		INSERT INTO student_files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.db.ExecContext(ctx, query,
		f.ID,
		f.StudentID,
		f.OriginalFilename,
		f.StorageFilename,
		string(f.FileType),
		f.MimeType,
		f.FileSize,
		f.FileHash,
		f.StoragePath,
		nullString(f.DownloadURL),
		string(f.Status),
		f.UploadedBy,
		f.UploadedAt,
		nullTime(f.DeletedAt),
		nullString(f.DeletedBy),
		metadata,
	)
	if err != nil {
		log.WithError(err).WithField("file_id", f.ID).Error("Failed to store file metadata")
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

func (r *postgresFileRepository) GetByID(ctx context.Context, id string) (*domain.StoredFile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	f, err := scanFile(r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM student_files WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file by ID: %w", err)
	}
	return f, nil
}

func (r *postgresFileRepository) ListByStudent(ctx context.Context, studentID string) ([]domain.StoredFile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + fileColumns + ` FROM student_files
		WHERE student_id = $1 AND status <> $2
		ORDER BY uploaded_at DESC`
	return r.query(ctx, query, studentID, string(domain.FileStatusDeleted))
}

func (r *postgresFileRepository) FindByHash(ctx context.Context, studentID, hash string) (*domain.StoredFile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + fileColumns + ` FROM student_files
		WHERE student_id = $1 AND file_hash = $2 AND status <> $3
		LIMIT 1`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, studentID, hash, string(domain.FileStatusDeleted)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find file by hash: %w", err)
	}
	return f, nil
}

func (r *postgresFileRepository) MarkDeleted(ctx context.Context, id, deletedBy string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE student_files SET status = $2, deleted_at = $3, deleted_by = $4 WHERE id = $1`,
		id, string(domain.FileStatusDeleted), at, deletedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete file: %w", err)
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

func (r *postgresFileRepository) ListAll(ctx context.Context) ([]domain.StoredFile, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.query(ctx, `SELECT `+fileColumns+` FROM student_files ORDER BY uploaded_at DESC`)
}

func (r *postgresFileRepository) query(ctx context.Context, query string, args ...any) ([]domain.StoredFile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := []domain.StoredFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan file row")
			return nil, err
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", err)
	}
	return files, nil
}
