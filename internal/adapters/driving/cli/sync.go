package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/cardsync/internal/adapters/driving/tui"
	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/dispatch"
)

var syncCmd = &cobra.Command{
	Use:   "sync [source-id...]",
	Short: "Import contacts from sources",
	Long: `Imports contacts from configured vCard sources into the contact store.
If source IDs are given, only those sources are imported, even when disabled.
Otherwise, every enabled source is imported.

Sources whose file has not changed since the last import are skipped.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolP("progress", "p", false, "show an interactive progress view")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if importer == nil {
		return errors.New("import service not configured")
	}

	showProgress, _ := cmd.Flags().GetBool("progress")
	if showProgress {
		return syncWithProgress(cmd, args)
	}

	if len(args) > 0 {
		cmd.Printf("Importing %d source(s)...\n", len(args))
	} else {
		cmd.Println("Importing all sources...")
	}

	// Per-source lines print from one goroutine, in source order.
	queue := dispatch.NewQueue()
	callbacks := driving.ImportCallbacks{
		Dispatcher: queue,
		OnSourceComplete: func(source domain.Source, changes *domain.Changes, _ *domain.CacheStamp, err error) {
			if err != nil {
				cmd.Printf("  ⚠ %s: %v\n", source.Name, err)
				return
			}
			cmd.Printf("  ✓ %s: %s\n", source.Name, changes.Summary())
		},
	}

	report, err := runImport(cmd.Context(), args, callbacks)
	queue.Close()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return summarise(cmd, report)
}

func runImport(ctx context.Context, ids []string, callbacks driving.ImportCallbacks) (*driving.ImportReport, error) {
	if len(ids) > 0 {
		return importer.ImportSources(ctx, ids, callbacks)
	}
	return importer.ImportAll(ctx, callbacks)
}

// syncWithProgress runs the import behind the progress view.
func syncWithProgress(cmd *cobra.Command, ids []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	app, err := tui.NewApp(&tui.Ports{Importer: importer, Source: sourceService})
	if err != nil {
		return fmt.Errorf("failed to create progress view: %w", err)
	}
	app.WithContext(cmd.Context()).WithSources(ids...)

	p := tea.NewProgram(app,
		tea.WithContext(cmd.Context()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("progress view: %w", err)
	}

	if app.Cancelled() {
		return errors.New("sync cancelled")
	}
	report, err := app.Report()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return summarise(cmd, report)
}

// summarise prints batch totals and returns the joined source failures.
func summarise(cmd *cobra.Command, report *driving.ImportReport) error {
	if report == nil || len(report.Outcomes) == 0 {
		cmd.Println("No sources to import.")
		return nil
	}

	totals := report.Totals()
	cmd.Printf("Imported %d source(s): %s\n", len(report.Outcomes), totals.Summary())

	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, len(failed))
	for i, o := range failed {
		errs[i] = fmt.Errorf("%s: %w", o.Source.Name, o.Err)
	}
	return fmt.Errorf("%d of %d sources failed:\n%w", len(failed), len(report.Outcomes), errors.Join(errs...))
}
