package cli

import (
	"fmt"
	"os"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/config"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/logging"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ug-admin",
	Short: "Admissions admin backend",
	Long: `ug-admin serves the admissions admin API: student records, search,
bulk import and export, notifications, file storage and the audit trail.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.App)
	return cfg, nil
}
