package commands

import (
	"errors"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/entitymeta/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "entitymeta",
		Short: "Fetch, inspect and publish entity metadata documents",
		Long: color.CyanString(`entitymeta - entity metadata tooling

entitymeta loads metadata documents describing entity and complex types
from files or a SQL table, validates them the way a client metadata store
imports them, and publishes new document versions.

Examples:
  entitymeta fetch breeze/Northwind
  entitymeta types breeze/Northwind --type Order
  entitymeta validate metadata/*.json
  entitymeta publish breeze/Northwind metadata/northwind.json`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: ./entitymeta.yml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewFetchCommand(flags))
	rootCmd.AddCommand(NewExportCommand(flags))
	rootCmd.AddCommand(NewTypesCommand(flags))
	rootCmd.AddCommand(NewValidateCommand(flags))
	rootCmd.AddCommand(NewPublishCommand(flags))
	rootCmd.AddCommand(NewSampleCommand(flags))
	rootCmd.AddCommand(NewWatchCommand(flags))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the entitymeta version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			kv.AddRow("entitymeta version", Version)
			kv.AddRow("Git commit", GitCommit)
			kv.AddRow("Build date", BuildDate)
			kv.AddRow("Go version", goVer)
			kv.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var known []string
		var lookup *lookupError
		if errors.As(err, &lookup) {
			known = lookup.known
		}
		ui.WriteError(rootCmd.ErrOrStderr(), ui.DescribeError(err, known, color.NoColor))
		return err
	}
	return nil
}

// lookupError carries the registered type names of a failed type lookup
type lookupError struct {
	err   error
	known []string
}

func (e *lookupError) Error() string { return e.err.Error() }

func (e *lookupError) Unwrap() error { return e.err }
