package connectors

import (
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/cardsync/internal/connectors/direct"
	"github.com/custodia-labs/cardsync/internal/connectors/formlogin"
	"github.com/custodia-labs/cardsync/internal/connectors/oauthclient"
	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.FetcherFactory = (*Factory)(nil)

// Factory builds fetchers by source type over one transport.
type Factory struct {
	transport driven.Transport

	mu       sync.RWMutex
	builders map[string]driven.FetcherBuilder
}

// NewFactory creates a factory with the built-in source types registered.
func NewFactory(transport driven.Transport) *Factory {
	f := &Factory{
		transport: transport,
		builders:  make(map[string]driven.FetcherBuilder),
	}
	f.Register(domain.SourceTypeHTTP, direct.Build)
	f.Register(domain.SourceTypeFormLogin, formlogin.Build)
	f.Register(domain.SourceTypeOAuth2, oauthclient.Build)
	return f
}

// Register adds or replaces the builder for a source type.
func (f *Factory) Register(sourceType string, builder driven.FetcherBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[sourceType] = builder
}

// Create returns a fetcher for source.
func (f *Factory) Create(source domain.Source) (driven.Fetcher, error) {
	f.mu.RLock()
	builder, ok := f.builders[source.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, source.Type)
	}
	return builder(source, f.transport)
}

// SupportedTypes returns the registered source types, sorted.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
