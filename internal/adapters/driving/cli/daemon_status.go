package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the import schedule and recent runs",
	Long: `Show when the scheduled import last ran and runs next, followed by its
most recent runs. Works whether or not the daemon is running.`,
	Args: cobra.NoArgs,
	RunE: runDaemonStatus,
}

func init() {
	daemonStatusCmd.Flags().IntP("runs", "n", 10, "number of recent runs to show")
	daemonCmd.AddCommand(daemonStatusCmd)
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	ctx := cmd.Context()

	tasks, err := scheduler.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No scheduled tasks yet. Run 'cardsync daemon' to start the schedule.")
		return nil
	}

	n, _ := cmd.Flags().GetInt("runs")
	for i := range tasks {
		task := &tasks[i]
		cmd.Printf("%s (every %s, %s)\n", task.Name, task.Interval, enabledText(task.Enabled))
		cmd.Printf("  Last run:  %s\n", whenText(task.LastRun))
		if task.Enabled {
			cmd.Printf("  Next run:  %s\n", whenText(task.NextRun))
		}
		if task.LastError != "" {
			cmd.Printf("  Last error: %s\n", task.LastError)
		}

		if n <= 0 {
			continue
		}
		history, err := scheduler.History(ctx, task.ID, n)
		if err != nil {
			return fmt.Errorf("failed to read history of %s: %w", task.Name, err)
		}
		if len(history) > 0 {
			cmd.Println(historyTable(history))
		}
	}
	return nil
}

func historyTable(history []domain.TaskResult) string {
	rows := make([][]string, 0, len(history))
	for _, r := range history {
		outcome := "ok"
		if !r.Success {
			outcome = "failed: " + r.Error
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(r.ItemsProcessed),
			outcome,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "TOOK", "SOURCES", "RESULT").
		Rows(rows...).
		Render()
}

func whenText(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.Time(t))
}

func enabledText(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
