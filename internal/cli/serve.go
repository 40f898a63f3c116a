package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveMigrate && cfg.DB.Backend == config.BackendPostgres {
			if err := runMigrations(cfg.DB, migrateUp); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		gate := a.gate()
		srv := server.New(server.Deps{
			Config:   cfg,
			Gate:     gate,
			Services: a.services,
			Roles:    a.store.Roles,
			Blobs:    a.blobs,
			Metrics:  a.metrics,
			Gatherer: prometheus.DefaultGatherer,
			Checks:   a.healthChecks(),
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		log.WithFields(log.Fields{
			"env":     cfg.App.Env,
			"version": cfg.App.Version,
			"backend": cfg.DB.Backend,
		}).Info("Admin service started")

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			log.Info("Shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("HTTP server shutdown failed")
		}
		gate.Wait()
		log.Info("Admin service stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply pending migrations before serving")
}
