package domain

import (
	"path/filepath"
	"strings"
	"time"
)

type FileType string

const (
	FileTypeTranscript     FileType = "transcript"
	FileTypeEssay          FileType = "essay"
	FileTypeRecommendation FileType = "recommendation"
	FileTypePortfolio      FileType = "portfolio"
	FileTypeCertificate    FileType = "certificate"
	FileTypeOther          FileType = "other"
)

func (t FileType) Valid() bool {
	switch t {
	case FileTypeTranscript, FileTypeEssay, FileTypeRecommendation,
		FileTypePortfolio, FileTypeCertificate, FileTypeOther:
		return true
	}
	return false
}

type FileStatus string

const (
	FileStatusUploading  FileStatus = "uploading"
	FileStatusUploaded   FileStatus = "uploaded"
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusError      FileStatus = "error"
	FileStatusDeleted    FileStatus = "deleted"
)

// ParseFileStatus maps stored values onto the closed set. Unrecognized
// legacy values come back as FileStatusError with ok=false.
func ParseFileStatus(raw string) (FileStatus, bool) {
	switch s := FileStatus(raw); s {
	case FileStatusUploading, FileStatusUploaded, FileStatusProcessing,
		FileStatusReady, FileStatusError, FileStatusDeleted:
		return s, true
	}
	return FileStatusError, false
}

const MaxFileSize = 50 * 1024 * 1024

// AllowedMimeTypes maps accepted content types to their expected extensions.
var AllowedMimeTypes = map[string][]string{
	"application/pdf":    {".pdf"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	"text/plain":               {".txt"},
	"image/jpeg":               {".jpg", ".jpeg"},
	"image/png":                {".png"},
	"image/gif":                {".gif"},
	"application/vnd.ms-excel": {".xls"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {".xlsx"},
}

var suspiciousFilenamePatterns = []string{"..", "/", "\\", "<", ">", ":", "\"", "|", "?", "*"}

func HasSuspiciousFilename(name string) bool {
	for _, p := range suspiciousFilenamePatterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

func FileExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

type StoredFile struct {
	ID               string         `json:"id"`
	StudentID        string         `json:"student_id"`
	OriginalFilename string         `json:"original_filename"`
	StorageFilename  string         `json:"storage_filename"`
	FileType         FileType       `json:"file_type"`
	MimeType         string         `json:"mime_type"`
	FileSize         int64          `json:"file_size"`
	FileHash         string         `json:"file_hash"`
	StoragePath      string         `json:"storage_path"`
	DownloadURL      string         `json:"download_url,omitempty"`
	Status           FileStatus     `json:"status"`
	UploadedBy       string         `json:"uploaded_by"`
	UploadedAt       time.Time      `json:"uploaded_at"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"`
	DeletedBy        string         `json:"deleted_by,omitempty"`
	Metadata         map[string]any `json:"metadata"`
}

type FileUpload struct {
	StudentID   string
	FileType    FileType
	Filename    string
	ContentType string
	Content     []byte
	Metadata    map[string]any
}

type FileValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type FileUploadResult struct {
	File              StoredFile           `json:"file"`
	UploadTimeSeconds float64              `json:"upload_time_seconds"`
	ValidationResults FileValidationResult `json:"validation_results"`
}

type StorageStatistics struct {
	TotalFiles      int            `json:"total_files"`
	TotalSizeBytes  int64          `json:"total_size_bytes"`
	FilesByType     map[string]int `json:"files_by_type"`
	FilesByStatus   map[string]int `json:"files_by_status"`
	AverageFileSize float64        `json:"average_file_size"`
	LargestFileSize int64          `json:"largest_file_size"`
}
