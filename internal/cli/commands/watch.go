package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/entitymeta/internal/cli/ui"
	"github.com/conduit-lang/entitymeta/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(flags *globalFlags) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Revalidate metadata documents as they change",
		Long: `Watch the file source directory. Whenever a document is written, the cached
copy is invalidated and the service is fetched into a fresh store, reporting
whether it still imports cleanly. Requires source.kind: file.

Examples:
  entitymeta watch
  entitymeta watch --debounce 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := loadEnv(ctx, flags)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.files == nil {
				return fmt.Errorf("watch requires source.kind: file (configured: %s)", e.cfg.Source.Kind)
			}

			out := cmd.OutOrStdout()
			fw, err := e.files.Watch(watch.Options{Debounce: debounce, Logger: e.logger}, func(service string) {
				revalidate(ctx, e, out, service)
			})
			if err != nil {
				return err
			}
			defer fw.Stop()

			fmt.Fprint(out, ui.Info(fmt.Sprintf("watching %s (Ctrl+C to stop)", e.files.Dir()), color.NoColor))
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before a batch of changes is processed")
	return cmd
}

// revalidate refetches one service and reports the outcome
func revalidate(ctx context.Context, e *env, out io.Writer, service string) {
	e.invalidate(ctx, service)

	store, name, err := e.fetch(ctx, service)
	if err != nil {
		ui.WriteError(out, ui.DescribeError(err, nil, color.NoColor))
		return
	}
	ui.WriteSuccess(out, fmt.Sprintf("%s: %d entity types, %d complex types",
		name, len(store.EntityTypes()), len(store.ComplexTypes())), color.NoColor)
}
