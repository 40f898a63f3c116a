package cli

import (
	"errors"
	"fmt"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	migrateUp   = "up"
	migrateDown = "down"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{migrateUp, migrateDown},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := migrateUp
		if len(args) == 1 {
			direction = args[0]
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DB.Backend != config.BackendPostgres {
			return fmt.Errorf("migrations require the %s store backend", config.BackendPostgres)
		}
		return runMigrations(cfg.DB, direction)
	},
}

func runMigrations(cfg config.DB, direction string) error {
	log.WithField("direction", direction).Info("Starting database migration...")
	m, err := migrate.New(cfg.MigrationsPath, cfg.URL)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	switch direction {
	case migrateDown:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not apply migration: %w", err)
	}
	log.Info("Database migration finished successfully.")
	return nil
}
