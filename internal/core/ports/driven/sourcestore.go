package driven

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// SourceStore persists source configurations in user-defined order.
type SourceStore interface {
	// Save stores or updates a source. New sources are appended.
	Save(ctx context.Context, source domain.Source) error

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Delete removes a source.
	Delete(ctx context.Context, id string) error

	// List returns all configured sources in order.
	List(ctx context.Context) ([]domain.Source, error)

	// Move places a source at a zero-based position, shifting the others.
	Move(ctx context.Context, id string, position int) error
}
