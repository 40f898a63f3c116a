package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	importValidateOnly bool
	importFormat       string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk import students from a CSV or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read import file: %w", err)
		}

		req := domain.ImportRequest{
			Content:      content,
			Filename:     filepath.Base(args[0]),
			ValidateOnly: importValidateOnly,
		}
		if importFormat != "" {
			format, ok := domain.ParseFileFormat(importFormat)
			if !ok {
				return fmt.Errorf("unsupported format %q", importFormat)
			}
			req.Format = format
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.services.Bulk.Import(ctx, domain.SystemPrincipal(), req)
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"total_rows":    res.TotalRows,
			"successful":    res.SuccessfulImports,
			"failed":        res.FailedImports,
			"validate_only": res.ValidateOnly,
		}).Info("Import finished")

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importValidateOnly, "validate-only", false, "validate rows without creating students")
	importCmd.Flags().StringVar(&importFormat, "format", "", "file format (csv or json); detected from the extension when empty")
}
