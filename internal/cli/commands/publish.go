package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/entitymeta/internal/cli/ui"
	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

// NewPublishCommand creates the publish command
func NewPublishCommand(flags *globalFlags) *cobra.Command {
	var skipValidation bool

	cmd := &cobra.Command{
		Use:   "publish <service> <file>",
		Short: "Store a metadata document as the next version of a service",
		Long: `Validate a metadata document and insert it into the metadata table as the
next version of the service. Requires source.kind: sql. The table is
created when missing.

Examples:
  entitymeta publish breeze/Northwind metadata/northwind.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.sql == nil {
				return fmt.Errorf("publish requires source.kind: sql (configured: %s)", e.cfg.Source.Kind)
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}
			doc, err := schema.DecodeDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			if !skipValidation {
				store, err := e.newStore()
				if err != nil {
					return err
				}
				if err := store.ImportMetadata(doc, false); err != nil {
					return fmt.Errorf("%s: %w", args[1], err)
				}
			}

			ctx := cmd.Context()
			if err := e.sql.EnsureTable(ctx); err != nil {
				return err
			}
			version, err := e.sql.Publish(ctx, args[0], doc)
			if err != nil {
				return err
			}
			e.invalidate(ctx, args[0])

			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("published %s version %d to %s",
				schema.NormalizeServiceName(args[0]), version, e.sql.Table()), color.NoColor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Publish without importing the document first")
	return cmd
}
