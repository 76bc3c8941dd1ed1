package direct

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/future"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher downloads one source's vCard file.
type Fetcher struct {
	transport driven.Transport
	request   driven.Request
}

// New creates a fetcher for conn.
func New(conn domain.Connection, transport driven.Transport) *Fetcher {
	return &Fetcher{
		transport: transport,
		request: driven.Request{
			URL:        conn.URL,
			Credential: driven.CredentialFor(conn),
		},
	}
}

// Build is the FetcherBuilder for plain HTTP sources.
func Build(source domain.Source, transport driven.Transport) (driven.Fetcher, error) {
	if err := source.Connection.Validate(); err != nil {
		return nil, err
	}
	return New(source.Connection, transport), nil
}

// Check issues a HEAD request for the file.
func (f *Fetcher) Check(ctx context.Context) *future.Future[driven.ResponseMetadata] {
	return f.transport.Head(ctx, f.request)
}

// Download GETs the file into dest.
func (f *Fetcher) Download(ctx context.Context, dest string, onProgress driven.ProgressFunc) *future.Future[string] {
	return f.transport.Download(ctx, f.request, dest, onProgress)
}
