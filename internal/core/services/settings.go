package services

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyDataDir              = "data_dir"
	keyUserAgent            = "transport.user_agent"
	keyRequestTimeout       = "transport.request_timeout"
	keyResourceTimeout      = "transport.resource_timeout"
	keyRequestsPerSecond    = "transport.requests_per_second"
	keyMaxConcurrentFetches = "import.max_concurrent_fetches"
	keySchedulerEnabled     = "scheduler.enabled"
	keyImportInterval       = "scheduler.interval"
)

type settingKind int

const (
	kindString settingKind = iota
	kindDuration
	kindFloat
	kindInt
	kindBool
)

var settingKinds = map[string]settingKind{
	keyDataDir:              kindString,
	keyUserAgent:            kindString,
	keyRequestTimeout:       kindDuration,
	keyResourceTimeout:      kindDuration,
	keyRequestsPerSecond:    kindFloat,
	keyMaxConcurrentFetches: kindInt,
	keySchedulerEnabled:     kindBool,
	keyImportInterval:       kindDuration,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings, falling back to defaults
// for anything unset.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	if s.configStore == nil {
		return &settings, nil
	}

	settings.DataDir = s.configStore.GetString(keyDataDir)
	settings.Transport.UserAgent = s.configStore.GetString(keyUserAgent)
	if d := s.configStore.GetDuration(keyRequestTimeout); d > 0 {
		settings.Transport.RequestTimeout = d
	}
	if d := s.configStore.GetDuration(keyResourceTimeout); d > 0 {
		settings.Transport.ResourceTimeout = d
	}
	settings.Transport.RequestsPerSecond = s.configStore.GetFloat(keyRequestsPerSecond)
	settings.Import.MaxConcurrentFetches = s.configStore.GetInt(keyMaxConcurrentFetches)

	if _, ok := s.configStore.Get(keySchedulerEnabled); ok {
		settings.Scheduler.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}
	if d := s.configStore.GetDuration(keyImportInterval); d > 0 {
		cfg := settings.Scheduler.TaskConfigs[domain.TaskIDContactImport]
		cfg.Interval = d
		settings.Scheduler.TaskConfigs[domain.TaskIDContactImport] = cfg
	}

	return &settings, nil
}

// Set parses value for key, validates the resulting settings and persists it.
func (s *SettingsService) Set(key, value string) error {
	if s.configStore == nil {
		return fmt.Errorf("settings: config store not configured")
	}
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
		}
		parsed = d.String()
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
		}
		parsed = f
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
		}
		parsed = n
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
		}
		parsed = b
	default:
		parsed = value
	}

	previous, hadPrevious := s.configStore.Get(key)
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	settings, err := s.Get()
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		if hadPrevious {
			_ = s.configStore.Set(key, previous)
		} else {
			_ = s.configStore.Delete(key)
		}
		return err
	}
	return nil
}

// Keys returns the configuration keys Set understands.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Reload re-reads the config store from storage.
func (s *SettingsService) Reload() error {
	if s.configStore == nil {
		return nil
	}
	if err := s.configStore.Load(); err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}
