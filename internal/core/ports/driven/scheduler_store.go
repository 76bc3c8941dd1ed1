package driven

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// SchedulerStore keeps the periodic import's schedule and run log,
// so a restarted daemon resumes the schedule instead of importing at once.
type SchedulerStore interface {
	TaskStore
	RunLog
}

// TaskStore holds one row per scheduled task, keyed by task ID.
type TaskStore interface {
	// GetTask returns nil and no error for an unknown ID.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask inserts or replaces the task with the same ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error
}

// RunLog records how each scheduled import went.
type RunLog interface {
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns at most limit runs of a task, newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory drops all but the newest keep runs of each task.
	PruneHistory(ctx context.Context, keep int) error
}
