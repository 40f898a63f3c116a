package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/auth"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/cache"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/email"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/metrics"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/publisher"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository/memory"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/server"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/service"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/storage"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/validation"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const certFetchTimeout = 10 * time.Second

// app holds every long-lived dependency of a running process.
type app struct {
	cfg       *config.Config
	store     *repository.Store
	redis     *redis.Client
	publisher *publisher.AuditPublisher
	metrics   *metrics.Metrics
	blobs     *storage.LocalStore
	services  server.Services

	resolver    *auth.RoleResolver
	revocations auth.RevocationList
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New(prometheus.DefaultRegisterer)}

	store, err := openStore(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	a.store = store

	if a.redis, err = cache.NewRedis(ctx, cfg.Redis); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Kafka.BootstrapServers != "" {
		if a.publisher, err = publisher.NewAuditPublisher(cfg.Kafka.BootstrapServers, cfg.Kafka.AuditTopic, cfg.App.Name); err != nil {
			a.Close()
			return nil, err
		}
	}

	if a.blobs, err = storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.BaseURL); err != nil {
		a.Close()
		return nil, err
	}

	catalog, err := email.DefaultCatalog()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	if a.redis != nil {
		a.resolver = auth.NewRoleResolver(store.Roles, auth.NewRedisRoleCache(a.redis, cfg.Redis.RoleCacheTTL))
		a.revocations = auth.NewRedisRevocationList(a.redis)
	} else {
		a.resolver = auth.NewRoleResolver(store.Roles, nil)
		a.revocations = auth.NewMemoryRevocationList()
	}

	var pub service.AuditPublisher
	if a.publisher != nil {
		pub = a.publisher
	}
	v := validation.New()
	audit := service.NewAuditService(store.Audit, pub, a.metrics)
	students := service.NewStudentService(store.Students, audit, v)
	a.services = server.Services{
		Students:      students,
		Search:        service.NewSearchService(store.Students, audit, a.metrics),
		Bulk:          service.NewBulkService(students, store.Students, audit, a.metrics),
		Files:         service.NewFileService(store.Files, store.Students, a.blobs, audit),
		Notifications: service.NewNotificationService(email.NewProvider(cfg.Email), catalog, store.EmailLogs, store.Students, audit, v, a.metrics, cfg.Email),
		Audit:         audit,
		Users:         service.NewUserService(store.Roles, a.resolver, a.revocations, audit, v),
	}
	return a, nil
}

func openStore(ctx context.Context, cfg config.DB) (*repository.Store, error) {
	if strings.EqualFold(cfg.Backend, config.BackendMemory) {
		log.Warn("Using in-memory store; data is lost on restart")
		return memory.New().Handle(), nil
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info("Successfully connected to the PostgreSQL database.")
	return repository.NewPostgresStore(db), nil
}

// gate builds the request authorizer. Firebase signing keys are fetched lazily.
func (a *app) gate() *auth.Gate {
	certs := auth.NewCertSource(a.cfg.Firebase.CertsURL, &http.Client{Timeout: certFetchTimeout})
	verifier := auth.NewFirebaseVerifier(a.cfg.Firebase.ProjectID, certs, auth.WithRevocationList(a.revocations))
	return auth.NewGate(verifier, a.resolver, a.metrics)
}

func (a *app) healthChecks() map[string]server.HealthCheck {
	checks := map[string]server.HealthCheck{"store": a.store.Ping}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close flushes pending audit publishes before releasing connections.
func (a *app) Close() {
	if a.services.Audit != nil {
		a.services.Audit.Flush()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}
}
