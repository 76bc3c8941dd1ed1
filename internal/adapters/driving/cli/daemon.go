package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/cardsync/internal/logger"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 250 * time.Millisecond

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Import sources periodically in the foreground",
	Long: `Run the scheduler until interrupted, importing every enabled source at
the configured interval (scheduler.interval, default 1h).

Changes to the config file are picked up without a restart.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().String("log-file", "", "also write logs to this file, rotated by size")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile != "" {
		if err := logger.SetFile(logFile); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer func() {
			if err := logger.SetFile(""); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "closing log file: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configFile != "" && settingsService != nil && applySettings != nil {
		watcher, err := watchConfig(ctx, configFile, reloadSettings)
		if err != nil {
			logger.Warn("daemon: not watching %s: %v", configFile, err)
		} else {
			defer watcher.Close()
		}
	}

	logger.Info("daemon: started")
	cmd.Println("cardsync daemon running. Press Ctrl+C to stop.")

	errCh := make(chan error, 1)
	go func() {
		errCh <- scheduler.Start(ctx)
	}()

	var runErr error
	returned := false
	select {
	case runErr = <-errCh:
		returned = true
	case <-ctx.Done():
	}
	// Stop waits for a running import to finish.
	if err := scheduler.Stop(); err != nil {
		logger.Warn("daemon: stopping scheduler: %v", err)
	}
	if !returned {
		runErr = <-errCh
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("scheduler stopped: %w", runErr)
	}

	logger.Info("daemon: stopped")
	return nil
}

// reloadSettings re-reads the config file and applies it to running services.
func reloadSettings(ctx context.Context) {
	if err := settingsService.Reload(); err != nil {
		logger.Warn("daemon: %v", err)
		return
	}
	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("daemon: reading settings: %v", err)
		return
	}
	if err := settings.Validate(); err != nil {
		logger.Warn("daemon: ignoring invalid settings: %v", err)
		return
	}
	if err := applySettings(ctx, *settings); err != nil {
		logger.Warn("daemon: applying settings: %v", err)
		return
	}
	logger.Info("daemon: settings reloaded")
}

// watchConfig calls onChange after path is written, created or replaced.
// The parent directory is watched so that atomic replacements are seen.
func watchConfig(ctx context.Context, path string, onChange func(context.Context)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path ||
					!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				onChange(ctx)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("daemon: watching config: %v", err)
			}
		}
	}()

	return watcher, nil
}
