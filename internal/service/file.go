package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type BlobStore interface {
	Upload(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

type FileService struct {
	files    repository.FileRepository
	students repository.StudentRepository
	blobs    BlobStore
	audit    *AuditService
	now      func() time.Time
}

func NewFileService(files repository.FileRepository, students repository.StudentRepository, blobs BlobStore, audit *AuditService) *FileService {
	return &FileService{
		files:    files,
		students: students,
		blobs:    blobs,
		audit:    audit,
		now:      time.Now,
	}
}

func fileNotFound(id string) error {
	return domain.NewNotFound("File not found", map[string]any{"file_id": id})
}

// Validate checks size, content type and filename. Extension mismatches
// only warn.
func (s *FileService) Validate(upload domain.FileUpload) domain.FileValidationResult {
	res := domain.FileValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}
	fail := func(msg string) {
		res.Valid = false
		res.Errors = append(res.Errors, msg)
	}

	size := int64(len(upload.Content))
	switch {
	case size == 0:
		fail("File is empty")
	case size > domain.MaxFileSize:
		fail(fmt.Sprintf("File size (%d bytes) exceeds maximum allowed size (%d bytes)", size, domain.MaxFileSize))
	}

	exts, allowed := domain.AllowedMimeTypes[upload.ContentType]
	if !allowed {
		fail(fmt.Sprintf("File type '%s' is not allowed", upload.ContentType))
	} else {
		ext := domain.FileExtension(upload.Filename)
		matched := false
		for _, e := range exts {
			if e == ext {
				matched = true
				break
			}
		}
		if !matched {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("File extension '%s' doesn't match MIME type '%s'", ext, upload.ContentType))
		}
	}

	if strings.TrimSpace(upload.Filename) == "" {
		fail("Filename is required")
	} else if domain.HasSuspiciousFilename(upload.Filename) {
		fail("Filename contains suspicious characters")
	}

	if !upload.FileType.Valid() {
		fail(fmt.Sprintf("Unknown file type '%s'", upload.FileType))
	}
	return res
}

func (s *FileService) Upload(ctx context.Context, p *domain.Principal, upload domain.FileUpload) (*domain.FileUploadResult, error) {
	result, err := s.upload(ctx, p, upload)

	details := map[string]any{
		"student_id": upload.StudentID,
		"filename":   upload.Filename,
		"file_type":  string(upload.FileType),
		"file_size":  len(upload.Content),
	}
	entry := domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionUploadFile,
		TargetType: domain.TargetFile,
		Details:    details,
	}
	if result != nil {
		entry.TargetID = result.File.ID
	}
	s.audit.RecordResult(ctx, entry, err)
	return result, err
}

func (s *FileService) upload(ctx context.Context, p *domain.Principal, upload domain.FileUpload) (*domain.FileUploadResult, error) {
	start := s.now()

	if err := s.requireStudent(ctx, upload.StudentID); err != nil {
		return nil, err
	}

	validation := s.Validate(upload)
	if !validation.Valid {
		return nil, domain.NewValidation("File validation failed", map[string]any{
			"valid":    validation.Valid,
			"errors":   validation.Errors,
			"warnings": validation.Warnings,
		})
	}

	sum := sha256.Sum256(upload.Content)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.files.FindByHash(ctx, upload.StudentID, hash)
	switch {
	case err == nil:
		log.WithFields(log.Fields{
			"student_id":       upload.StudentID,
			"existing_file_id": existing.ID,
			"file_hash":        hash,
		}).Warn("Duplicate file detected")
		validation.Warnings = append(validation.Warnings, "An identical file was already uploaded for this student")
	case !errors.Is(err, domain.ErrNotFound):
		log.WithError(err).WithField("student_id", upload.StudentID).Warn("Duplicate check failed")
	}

	id := uuid.NewString()
	storageName := id + domain.FileExtension(upload.Filename)
	storagePath := fmt.Sprintf("students/%s/files/%s", upload.StudentID, storageName)

	url, err := s.blobs.Upload(ctx, storagePath, upload.Content, upload.ContentType)
	if err != nil {
		log.WithError(err).WithField("path", storagePath).Error("Failed to upload file to storage")
		return nil, domain.NewInternal("Failed to upload file to storage", err)
	}

	metadata := make(map[string]any, len(upload.Metadata))
	for k, v := range upload.Metadata {
		metadata[k] = v
	}

	file := &domain.StoredFile{
		ID:               id,
		StudentID:        upload.StudentID,
		OriginalFilename: upload.Filename,
		StorageFilename:  storageName,
		FileType:         upload.FileType,
		MimeType:         upload.ContentType,
		FileSize:         int64(len(upload.Content)),
		FileHash:         hash,
		StoragePath:      storagePath,
		DownloadURL:      url,
		Status:           domain.FileStatusUploaded,
		UploadedBy:       p.SubjectID,
		UploadedAt:       s.now().UTC(),
		Metadata:         metadata,
	}
	if err := s.files.Create(ctx, file); err != nil {
		log.WithError(err).WithField("file_id", id).Error("Failed to store file metadata")
		return nil, domain.NewInternal("Failed to store file metadata", err)
	}

	log.WithFields(log.Fields{
		"file_id":    id,
		"student_id": upload.StudentID,
		"size":       file.FileSize,
	}).Info("File uploaded")

	return &domain.FileUploadResult{
		File:              *file,
		UploadTimeSeconds: s.now().Sub(start).Seconds(),
		ValidationResults: validation,
	}, nil
}

func (s *FileService) requireStudent(ctx context.Context, studentID string) error {
	if strings.TrimSpace(studentID) == "" {
		return domain.NewValidation("Student ID is required", nil)
	}
	_, err := s.students.GetByID(ctx, studentID)
	if errors.Is(err, domain.ErrNotFound) {
		return studentNotFound(studentID)
	}
	if err != nil {
		log.WithError(err).WithField("student_id", studentID).Error("Failed to load student")
		return domain.NewInternal("Failed to retrieve student", err)
	}
	return nil
}

// ListForStudent returns live files, newest first.
func (s *FileService) ListForStudent(ctx context.Context, studentID string) ([]domain.StoredFile, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	files, err := s.files.ListByStudent(ctx, studentID)
	if err != nil {
		log.WithError(err).WithField("student_id", studentID).Error("Failed to list files")
		return nil, domain.NewInternal("Failed to retrieve files", err)
	}
	live := files[:0]
	for _, f := range files {
		if f.Status != domain.FileStatusDeleted {
			live = append(live, f)
		}
	}
	return live, nil
}

func (s *FileService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.StoredFile, error) {
	file, err := s.get(ctx, id)
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionDownloadFile,
		TargetType: domain.TargetFile,
		TargetID:   id,
	}, err)
	return file, err
}

func (s *FileService) get(ctx context.Context, id string) (*domain.StoredFile, error) {
	file, err := s.files.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fileNotFound(id)
	}
	if err != nil {
		log.WithError(err).WithField("file_id", id).Error("Failed to get file")
		return nil, domain.NewInternal("Failed to retrieve file", err)
	}
	if file.Status == domain.FileStatusDeleted {
		return nil, fileNotFound(id)
	}
	return file, nil
}

// Delete soft-deletes the file. The blob is kept.
func (s *FileService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	file, err := s.delete(ctx, p, id)
	details := map[string]any{}
	if file != nil {
		details["student_id"] = file.StudentID
		details["filename"] = file.OriginalFilename
	}
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionDeleteFile,
		TargetType: domain.TargetFile,
		TargetID:   id,
		Details:    details,
	}, err)
	return err
}

func (s *FileService) delete(ctx context.Context, p *domain.Principal, id string) (*domain.StoredFile, error) {
	file, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.files.MarkDeleted(ctx, id, p.SubjectID, s.now().UTC())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fileNotFound(id)
	}
	if err != nil {
		log.WithError(err).WithField("file_id", id).Error("Failed to delete file")
		return nil, domain.NewInternal("Failed to delete file", err)
	}
	log.WithFields(log.Fields{"file_id": id, "deleted_by": p.SubjectID}).Info("File deleted")
	return file, nil
}

func (s *FileService) Statistics(ctx context.Context) (*domain.StorageStatistics, error) {
	files, err := s.files.ListAll(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load storage statistics")
		return nil, domain.NewInternal("Failed to retrieve storage statistics", err)
	}

	stats := &domain.StorageStatistics{
		FilesByType:   map[string]int{},
		FilesByStatus: map[string]int{},
	}
	for _, f := range files {
		if f.Status == domain.FileStatusDeleted {
			continue
		}
		stats.TotalFiles++
		stats.TotalSizeBytes += f.FileSize
		stats.FilesByType[string(f.FileType)]++
		stats.FilesByStatus[string(f.Status)]++
		stats.LargestFileSize = max(stats.LargestFileSize, f.FileSize)
	}
	if stats.TotalFiles > 0 {
		stats.AverageFileSize = float64(stats.TotalSizeBytes) / float64(stats.TotalFiles)
	}
	return stats, nil
}
