package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is how many results are kept per task.
const historyRetention = 100

// Scheduler manages background task execution.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	importer driving.Importer
	tick     time.Duration

	mu      sync.Mutex
	running bool
	active  map[string]bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// taskMu serialises read-modify-write cycles on stored tasks.
	taskMu sync.Mutex
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	importer driving.Importer,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		importer: importer,
		tick:     time.Minute,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// Reconfigure applies new scheduler settings to stored tasks.
func (s *Scheduler) Reconfigure(ctx context.Context, config domain.SchedulerConfig) error {
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
	return s.initialiseTasks(ctx)
}

// Tasks returns the state of every stored task.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.ListTasks(ctx)
}

// History returns at most limit recorded runs of a task, newest first.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: history limit must be positive", domain.ErrInvalidInput)
	}
	return s.store.GetTaskHistory(ctx, taskID, limit)
}

func (s *Scheduler) currentConfig() domain.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	config := s.currentConfig()
	taskCfg := config.GetTaskConfig(domain.TaskIDContactImport)
	if !config.Enabled {
		taskCfg.Enabled = false
	}
	if taskCfg.Interval <= 0 {
		taskCfg.Interval = domain.DefaultImportInterval
	}
	return s.ensureTask(ctx, domain.TaskIDContactImport, "Contact Import", taskCfg)
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// New tasks run immediately.
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now(),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			// Recalculate next run from the last run
			task.NextRun = task.LastRun.Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		if tasks[i].IsDue(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask executes a single task unless a run of it is still in flight.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.active[task.ID] {
		s.mu.Unlock()
		return
	}
	if s.active == nil {
		s.active = make(map[string]bool)
	}
	s.active[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDContactImport:
			result.ItemsProcessed, err = s.runContactImport(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
		} else {
			result.Success = true
		}
		s.finishTask(ctx, task, result)

		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// finishTask stores the outcome of a run on the current task state,
// keeping any Enabled or Interval change made while the run was in flight.
func (s *Scheduler) finishTask(ctx context.Context, ran *domain.ScheduledTask, result *domain.TaskResult) {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	task, err := s.store.GetTask(ctx, ran.ID)
	if err != nil {
		logger.Warn("scheduler: failed to reload task %s: %v", ran.ID, err)
		return
	}
	if task == nil {
		task = ran
	}

	if result.Success {
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	} else {
		task.LastError = result.Error
	}
	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
	}
}

// runContactImport imports all enabled sources.
// Returns the number of sources processed and the joined source failures.
func (s *Scheduler) runContactImport(ctx context.Context) (int, error) {
	if s.importer == nil {
		return 0, nil
	}

	report, err := s.importer.ImportAll(ctx, driving.ImportCallbacks{})
	if err != nil {
		return 0, err
	}

	var errs []error
	for _, o := range report.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", o.Source.Name, o.Err))
	}
	totals := report.Totals()
	logger.Info("scheduler: imported %d source(s): %s", len(report.Outcomes), totals.Summary())
	return len(report.Outcomes), errors.Join(errs...)
}
