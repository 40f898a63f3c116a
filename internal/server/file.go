package server

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/storage"

	"github.com/labstack/echo/v4"
)

func (s *Server) UploadFile(c echo.Context) error {
	name, contentType, content, err := formFile(c, "file")
	if err != nil {
		return err
	}

	upload := domain.FileUpload{
		StudentID:   c.Param("student_id"),
		FileType:    domain.FileType(strings.ToLower(c.FormValue("file_type"))),
		Filename:    name,
		ContentType: contentType,
		Content:     content,
		Metadata:    map[string]any{},
	}
	if desc := strings.TrimSpace(c.FormValue("description")); desc != "" {
		upload.Metadata["description"] = desc
	}

	res, err := s.svc.Files.Upload(c.Request().Context(), auth.PrincipalFrom(c), upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) ListStudentFiles(c echo.Context) error {
	studentID := c.Param("student_id")
	files, err := s.svc.Files.ListForStudent(c.Request().Context(), studentID)
	if err != nil {
		return err
	}

	if ft := domain.FileType(strings.ToLower(c.QueryParam("file_type"))); ft != "" {
		if !ft.Valid() {
			return domain.NewValidation("Invalid file type", map[string]any{"file_type": string(ft)})
		}
		matched := files[:0]
		for _, f := range files {
			if f.FileType == ft {
				matched = append(matched, f)
			}
		}
		files = matched
	}

	return c.JSON(http.StatusOK, map[string]any{
		"student_id":  studentID,
		"files":       files,
		"total_count": len(files),
	})
}

func (s *Server) GetFile(c echo.Context) error {
	file, err := s.svc.Files.Get(c.Request().Context(), auth.PrincipalFrom(c), c.Param("file_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, file)
}

func (s *Server) DeleteFile(c echo.Context) error {
	if err := s.svc.Files.Delete(c.Request().Context(), auth.PrincipalFrom(c), c.Param("file_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) StorageStatistics(c echo.Context) error {
	stats, err := s.svc.Files.Statistics(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// serveBlob returns raw stored content for a download URL.
func (s *Server) serveBlob(c echo.Context) error {
	key := c.Param("*")
	content, err := s.blobs.Read(c.Request().Context(), key)
	switch {
	case errors.Is(err, storage.ErrInvalidPath), errors.Is(err, fs.ErrNotExist):
		return domain.NewNotFound("File not found", map[string]any{"path": key})
	case err != nil:
		return domain.NewInternal("Failed to read file", err)
	}
	return c.Blob(http.StatusOK, http.DetectContentType(content), content)
}
