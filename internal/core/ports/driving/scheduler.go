package driving

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// Scheduler runs background tasks such as the periodic contact import.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Tasks returns the state of every known task.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns at most limit runs of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
