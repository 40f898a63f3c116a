package server

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 3 * time.Second

type healthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

func (s *Server) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Version:     s.cfg.App.Version,
		Environment: s.cfg.App.Env,
	})
}

// Readiness runs every dependency check concurrently.
func (s *Server) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	results := make(map[string]string, len(names))
	healthy := true

	var g errgroup.Group
	for _, name := range names {
		check := s.checks[name]
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				results[name] = err.Error()
				log.WithError(err).WithField("check", name).Warn("Readiness check failed")
				return nil
			}
			results[name] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	resp := healthResponse{
		Status:      "ready",
		Version:     s.cfg.App.Version,
		Environment: s.cfg.App.Env,
		Checks:      results,
	}
	if !healthy {
		resp.Status = "not_ready"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
