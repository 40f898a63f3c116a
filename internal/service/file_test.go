package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/storage"
)

type failingBlobs struct{}

func (failingBlobs) Upload(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (s *ServiceSuite) files() *FileService {
	blobs, err := storage.NewLocalStore(s.T().TempDir(), "http://files.test")
	s.Require().NoError(err)
	return NewFileService(s.store.Files, s.store.Students, blobs, s.audit)
}

func pdfUpload(studentID string) domain.FileUpload {
	return domain.FileUpload{
		StudentID:   studentID,
		FileType:    domain.FileTypeTranscript,
		Filename:    "transcript.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7 transcript"),
		Metadata:    map[string]any{"term": "fall"},
	}
}

func (s *ServiceSuite) TestFiles_UploadStoresMetadata() {
	st := s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")

	res, err := s.files().Upload(s.ctx, s.staff, pdfUpload(st.ID))
	s.Require().NoError(err)

	f := res.File
	s.Equal(domain.FileStatusUploaded, f.Status)
	s.Equal("staff-1", f.UploadedBy)
	s.Equal(int64(len("%PDF-1.7 transcript")), f.FileSize)
	s.Len(f.FileHash, 64)
	s.Equal("students/"+st.ID+"/files/"+f.ID+".pdf", f.StoragePath)
	s.Equal("http://files.test/"+f.StoragePath, f.DownloadURL)
	s.True(res.ValidationResults.Valid)

	e := s.lastAudit()
	s.Equal(domain.ActionUploadFile, e.Action)
	s.Equal(f.ID, e.TargetID)
	s.True(e.Success)
}

func (s *ServiceSuite) TestFiles_DuplicateOnlyWarns() {
	st := s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")
	svc := s.files()

	_, err := svc.Upload(s.ctx, s.staff, pdfUpload(st.ID))
	s.Require().NoError(err)
	res, err := svc.Upload(s.ctx, s.staff, pdfUpload(st.ID))
	s.Require().NoError(err)

	s.NotEmpty(res.ValidationResults.Warnings)
	files, err := svc.ListForStudent(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Len(files, 2)
}

func (s *ServiceSuite) TestFiles_Validate() {
	svc := s.files()

	tests := []struct {
		name   string
		mutate func(u *domain.FileUpload)
		valid  bool
		warns  bool
	}{
		{"ok", func(*domain.FileUpload) {}, true, false},
		{"empty", func(u *domain.FileUpload) { u.Content = nil }, false, false},
		{"too large", func(u *domain.FileUpload) { u.Content = make([]byte, domain.MaxFileSize+1) }, false, false},
		{"mime not allowed", func(u *domain.FileUpload) { u.ContentType = "application/x-msdownload" }, false, false},
		{"extension mismatch warns", func(u *domain.FileUpload) { u.Filename = "transcript.png" }, true, true},
		{"traversal", func(u *domain.FileUpload) { u.Filename = "../../etc/passwd.pdf" }, false, false},
		{"unknown file type", func(u *domain.FileUpload) { u.FileType = "selfie" }, false, false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			u := pdfUpload("stu")
			tt.mutate(&u)
			res := svc.Validate(u)
			s.Equal(tt.valid, res.Valid, res.Errors)
			s.Equal(tt.warns, len(res.Warnings) > 0, res.Warnings)
		})
	}
}

func (s *ServiceSuite) TestFiles_UploadRejections() {
	svc := s.files()

	_, err := svc.Upload(s.ctx, s.staff, pdfUpload("ghost"))
	s.True(domain.HasCode(err, domain.CodeNotFound))

	st := s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")
	bad := pdfUpload(st.ID)
	bad.Filename = "a<b>.pdf"
	_, err = svc.Upload(s.ctx, s.staff, bad)
	s.Require().True(domain.HasCode(err, domain.CodeValidation))
	errs, _ := domain.AsAppError(err).Details["errors"].([]string)
	s.Contains(strings.Join(errs, ";"), "suspicious")
	s.False(s.lastAudit().Success)
}

func (s *ServiceSuite) TestFiles_BlobFailureIsInternal() {
	st := s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")
	svc := NewFileService(s.store.Files, s.store.Students, failingBlobs{}, s.audit)

	_, err := svc.Upload(s.ctx, s.staff, pdfUpload(st.ID))
	s.True(domain.HasCode(err, domain.CodeInternal))
}

func (s *ServiceSuite) TestFiles_SoftDelete() {
	st := s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")
	svc := s.files()
	res, err := svc.Upload(s.ctx, s.staff, pdfUpload(st.ID))
	s.Require().NoError(err)
	id := res.File.ID

	got, err := svc.Get(s.ctx, s.staff, id)
	s.Require().NoError(err)
	s.Equal(id, got.ID)
	s.Equal(domain.ActionDownloadFile, s.lastAudit().Action)

	s.Require().NoError(svc.Delete(s.ctx, s.admin, id))
	e := s.lastAudit()
	s.Equal(domain.ActionDeleteFile, e.Action)
	s.Equal(domain.SeverityHigh, e.Severity)

	_, err = svc.Get(s.ctx, s.staff, id)
	s.True(domain.HasCode(err, domain.CodeNotFound))

	files, err := svc.ListForStudent(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Empty(files)

	stored, err := s.store.Files.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.FileStatusDeleted, stored.Status)
	s.Equal("admin-1", stored.DeletedBy)
	s.NotNil(stored.DeletedAt)

	err = svc.Delete(s.ctx, s.admin, id)
	s.True(domain.HasCode(err, domain.CodeNotFound))
}

func (s *ServiceSuite) TestFiles_Statistics() {
	st := s.seed("Ada Lovelace", "GBR", domain.StatusApplying, "")
	svc := s.files()

	small := pdfUpload(st.ID)
	small.Content = []byte("12345")
	large := pdfUpload(st.ID)
	large.FileType = domain.FileTypeEssay
	large.Content = []byte("1234567890123")
	gone := pdfUpload(st.ID)
	gone.Content = []byte("deleted content that is the largest of all")

	for _, u := range []domain.FileUpload{small, large} {
		_, err := svc.Upload(s.ctx, s.staff, u)
		s.Require().NoError(err)
	}
	res, err := svc.Upload(s.ctx, s.staff, gone)
	s.Require().NoError(err)
	s.Require().NoError(svc.Delete(s.ctx, s.admin, res.File.ID))

	stats, err := svc.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.TotalFiles)
	s.Equal(int64(18), stats.TotalSizeBytes)
	s.Equal(int64(13), stats.LargestFileSize)
	s.Equal(9.0, stats.AverageFileSize)
	s.Equal(map[string]int{"transcript": 1, "essay": 1}, stats.FilesByType)
	s.Equal(map[string]int{"uploaded": 2}, stats.FilesByStatus)
}
