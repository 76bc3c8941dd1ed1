package driving

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/future"
)

// SourceService manages source configurations.
type SourceService interface {
	// Add creates a new source configuration and returns it with its ID.
	Add(ctx context.Context, source domain.Source) (*domain.Source, error)

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// List returns all configured sources in order.
	List(ctx context.Context) ([]domain.Source, error)

	// Update modifies an existing source configuration.
	Update(ctx context.Context, source domain.Source) error

	// Remove deletes a source.
	Remove(ctx context.Context, id string) error

	// Move changes a source's position in the list.
	Move(ctx context.Context, id string, position int) error

	// SetEnabled includes or excludes a source from imports.
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// SupportedTypes returns the source types that can be added.
	SupportedTypes() []string

	// Validate checks that a source is well formed and its URL answers.
	// A newer call supersedes an unfinished older one, whose future never settles.
	Validate(ctx context.Context, source domain.Source) *future.Future[ValidationResult]
}

// ValidationResult describes a reachable source.
type ValidationResult struct {
	// URL is the final URL after redirects.
	URL string
	// Stamp is the remote's current cache stamp, nil without validators.
	Stamp *domain.CacheStamp
}
