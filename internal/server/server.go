package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/logging"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/metrics"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	staffOrAdmin = []domain.Role{domain.RoleStaff, domain.RoleAdmin}
	adminOnly    = []domain.Role{domain.RoleAdmin}
)

// HealthCheck reports whether one dependency can serve traffic.
type HealthCheck func(ctx context.Context) error

// BlobReader serves stored file content back by key.
type BlobReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

type Services struct {
	Students      *service.StudentService
	Search        *service.SearchService
	Bulk          *service.BulkService
	Files         *service.FileService
	Notifications *service.NotificationService
	Audit         *service.AuditService
	Users         *service.UserService
}

type Deps struct {
	Config   *config.Config
	Gate     *auth.Gate
	Services Services
	Roles    repository.RoleRepository
	Blobs    BlobReader
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
}

type Server struct {
	cfg      *config.Config
	echo     *echo.Echo
	gate     *auth.Gate
	svc      Services
	roles    repository.RoleRepository
	blobs    BlobReader
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	checks   map[string]HealthCheck
}

func New(deps Deps) *Server {
	s := &Server{
		cfg:      deps.Config,
		echo:     echo.New(),
		gate:     deps.Gate,
		svc:      deps.Services,
		roles:    deps.Roles,
		blobs:    deps.Blobs,
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		checks:   deps.Checks,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestID())
	e.Use(s.observe)
	e.Use(logging.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.cfg.HTTP.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(s.cfg.HTTP.BodyLimit))
	e.Use(requestMeta)

	s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	staff := s.gate.RequireRoles(staffOrAdmin...)
	admin := s.gate.RequireRoles(adminOnly...)

	e.GET("/static/*", s.serveBlob, staff)

	api := e.Group("/api/v1")

	health := api.Group("/health")
	health.GET("/liveness", s.Liveness)
	health.GET("/readiness", s.Readiness)

	api.GET("/me", s.Me, staff)

	students := api.Group("/students")
	students.POST("", s.CreateStudent, staff)
	students.GET("", s.ListStudents, staff)
	students.GET("/:id", s.GetStudent, staff)
	students.PUT("/:id", s.UpdateStudent, admin)
	students.DELETE("/:id", s.DeleteStudent, admin)

	search := api.Group("/search", staff)
	search.POST("/students", s.SearchStudents)
	search.GET("/students/simple", s.SimpleSearch)
	search.GET("/suggestions", s.Suggestions)
	search.GET("/facets", s.Facets)

	files := api.Group("/files")
	files.POST("/students/:student_id/upload", s.UploadFile, staff)
	files.GET("/students/:student_id", s.ListStudentFiles, staff)
	files.GET("/storage/statistics", s.StorageStatistics, admin)
	files.GET("/:file_id", s.GetFile, staff)
	files.DELETE("/:file_id", s.DeleteFile, admin)

	notifications := api.Group("/notifications", staff)
	notifications.POST("/send", s.SendEmail)
	notifications.POST("/send-to-student", s.SendStudentEmail)
	notifications.POST("/send-bulk", s.SendBulkEmail)
	notifications.GET("/logs", s.EmailLogs)

	bulk := api.Group("/bulk")
	bulk.POST("/import", s.ImportStudents, admin)
	bulk.GET("/export", s.ExportStudents, staff)

	audit := api.Group("/audit", admin)
	audit.GET("/logs", s.AuditLogs)
	audit.GET("/users/:uid/activity", s.UserActivity)

	users := api.Group("/users", admin)
	users.PUT("/:uid/role", s.ChangeUserRole)
	users.POST("/:uid/revoke-sessions", s.RevokeUserSessions)
}

// Start blocks until the server stops. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	addr := s.cfg.Address()
	log.WithField("address", addr).Info("HTTP server is starting")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestMeta makes client details available to the audit sink.
func requestMeta(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		meta := domain.RequestMeta{
			IPAddress: c.RealIP(),
			UserAgent: req.UserAgent(),
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		}
		c.SetRequest(req.WithContext(service.WithRequestMeta(req.Context(), meta)))
		return next(c)
	}
}

func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(c.Request().Method, route, fmt.Sprint(c.Response().Status), time.Since(start))
		return err
	}
}

type errorResponse struct {
	Code      domain.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Details   map[string]any   `json:"details,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *domain.AppError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
	case errors.As(err, &httpErr):
		appErr = fromHTTPError(httpErr)
	default:
		appErr = domain.AsAppError(err)
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"request_id": requestID,
			"path":       c.Request().URL.Path,
		}).Error("Request failed with internal error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: requestID,
		})
	}
	if err != nil {
		log.WithError(err).Error("Failed to write error response")
	}
}

func fromHTTPError(he *echo.HTTPError) *domain.AppError {
	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok {
		msg = m
	}
	switch he.Code {
	case http.StatusUnauthorized:
		return domain.NewAuth(msg, nil)
	case http.StatusForbidden:
		return domain.NewForbidden(msg, nil)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return domain.NewNotFound(msg, nil)
	}
	if he.Code < http.StatusInternalServerError {
		return domain.NewValidation(msg, map[string]any{"status": he.Code})
	}
	return domain.NewInternal(msg, he)
}
