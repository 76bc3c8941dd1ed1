package driving

import "github.com/custodia-labs/cardsync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set updates one setting by its configuration key and persists it.
	Set(key, value string) error

	// Keys returns the configuration keys Set understands.
	Keys() []string

	// Reload re-reads settings changed outside this process.
	Reload() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
