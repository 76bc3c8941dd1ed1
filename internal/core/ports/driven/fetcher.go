package driven

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/future"
)

// Fetcher provides authenticated access to one source's payload.
// Each source type (plain HTTP, form login) implements it.
type Fetcher interface {
	// Check requests the payload's metadata without downloading it.
	Check(ctx context.Context) *future.Future[ResponseMetadata]

	// Download writes the payload to dest and settles with dest.
	Download(ctx context.Context, dest string, onProgress ProgressFunc) *future.Future[string]
}

// FetcherBuilder creates a Fetcher for a source over the given transport.
type FetcherBuilder func(source domain.Source, transport Transport) (Fetcher, error)

// FetcherFactory creates fetchers from source configuration.
type FetcherFactory interface {
	// Create returns a Fetcher for the given source.
	// Returns ErrUnsupportedType if the source type is unknown.
	Create(source domain.Source) (Fetcher, error)

	// Register adds a fetcher builder for the given type.
	Register(sourceType string, builder FetcherBuilder)

	// SupportedTypes returns all registered source types.
	SupportedTypes() []string
}
