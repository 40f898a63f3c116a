package logging

import (
	"io"
	"os"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger for the given app settings.
func Setup(cfg config.App) {
	SetupWithOutput(cfg, os.Stdout)
}

func SetupWithOutput(cfg config.App, out io.Writer) {
	if cfg.Env == config.EnvProduction {
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}

	log.SetOutput(out)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, falling back to info")
	}
	if cfg.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

// RequestLogger logs one line per request once the handler chain finishes.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			entry := log.WithFields(log.Fields{
				"request_id": res.Header().Get(echo.HeaderXRequestID),
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"client_ip":  c.RealIP(),
			})

			switch {
			case res.Status >= 500:
				entry.Error("Request failed")
			case res.Status >= 400:
				entry.Warn("Request rejected")
			default:
				entry.Info("Request completed")
			}
			return nil
		}
	}
}
