package domain

import (
	"fmt"
	"time"
)

// Default transport settings.
const (
	DefaultRequestTimeout  = 60 * time.Second
	DefaultResourceTimeout = 10 * time.Hour
)

// TransportSettings configures the HTTP transport.
type TransportSettings struct {
	// UserAgent overrides the default User-Agent header when set.
	UserAgent string

	// RequestTimeout bounds metadata requests and the wait for response headers.
	RequestTimeout time.Duration

	// ResourceTimeout bounds a whole download.
	ResourceTimeout time.Duration

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
}

// ImportSettings configures import batches.
type ImportSettings struct {
	// MaxConcurrentFetches bounds how many sources fetch at once.
	// Zero means no bound.
	MaxConcurrentFetches int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir holds the database and logs. Empty means the default location.
	DataDir string

	// Transport holds HTTP transport settings.
	Transport TransportSettings

	// Import holds import batch settings.
	Import ImportSettings

	// Scheduler holds background import settings.
	Scheduler SchedulerConfig
}

// DefaultAppSettings returns the default application settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Transport: TransportSettings{
			RequestTimeout:  DefaultRequestTimeout,
			ResourceTimeout: DefaultResourceTimeout,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// Validate checks that settings values are usable.
func (s AppSettings) Validate() error {
	if s.Transport.RequestTimeout < 0 || s.Transport.ResourceTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidInput)
	}
	if s.Transport.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must not be negative", ErrInvalidInput)
	}
	if s.Import.MaxConcurrentFetches < 0 {
		return fmt.Errorf("%w: max concurrent fetches must not be negative", ErrInvalidInput)
	}
	if cfg := s.Scheduler.GetTaskConfig(TaskIDContactImport); cfg.Enabled && cfg.Interval < time.Minute {
		return fmt.Errorf("%w: import interval must be at least one minute", ErrInvalidInput)
	}
	return nil
}
