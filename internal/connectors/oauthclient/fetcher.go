package oauthclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/future"
	"github.com/custodia-labs/cardsync/internal/logger"
)

// ParamScopes holds space-separated scopes to request.
const ParamScopes = "scopes"

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher requests a token, then downloads the file with it.
type Fetcher struct {
	transport driven.Transport
	url       string
	config    clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

// New creates a fetcher for conn.
func New(conn domain.Connection, transport driven.Transport) *Fetcher {
	return &Fetcher{
		transport: transport,
		url:       conn.URL,
		config: clientcredentials.Config{
			ClientID:     conn.Username,
			ClientSecret: conn.Password,
			TokenURL:     conn.LoginURL,
			Scopes:       strings.Fields(conn.Param(ParamScopes, "")),
		},
	}
}

// Build is the FetcherBuilder for oauth2 sources.
func Build(source domain.Source, transport driven.Transport) (driven.Fetcher, error) {
	conn := source.Connection
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if conn.LoginURL == "" {
		return nil, fmt.Errorf("%w: oauth2 source needs a token url", domain.ErrInvalidInput)
	}
	if conn.Username == "" {
		return nil, fmt.Errorf("%w: oauth2 source needs a client id", domain.ErrInvalidInput)
	}
	return New(conn, transport), nil
}

// Check issues a HEAD request for the file with a current token.
func (f *Fetcher) Check(ctx context.Context) *future.Future[driven.ResponseMetadata] {
	return future.FlatMap(f.request(ctx), func(req driven.Request) *future.Future[driven.ResponseMetadata] {
		return f.transport.Head(ctx, req)
	})
}

// Download GETs the file into dest with a current token.
func (f *Fetcher) Download(ctx context.Context, dest string, onProgress driven.ProgressFunc) *future.Future[string] {
	return future.FlatMap(f.request(ctx), func(req driven.Request) *future.Future[string] {
		return f.transport.Download(ctx, req, dest, onProgress)
	})
}

// request settles with the file request carrying a bearer token.
func (f *Fetcher) request(ctx context.Context) *future.Future[driven.Request] {
	return future.Go(func() (driven.Request, error) {
		token, err := f.validToken(ctx)
		if err != nil {
			return driven.Request{}, err
		}
		return driven.Request{
			URL:        f.url,
			Credential: &driven.Credential{Token: token.AccessToken},
		}, nil
	})
}

// validToken returns the cached token or requests a new one.
func (f *Fetcher) validToken(ctx context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token.Valid() {
		return f.token, nil
	}

	logger.Debug("oauth2: requesting token from %s", f.config.TokenURL)
	token, err := f.config.Token(ctx)
	if err != nil {
		return nil, tokenError(err)
	}
	f.token = token
	return token, nil
}

// tokenError maps a rejected client to domain.ErrAuthInvalid.
func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: token endpoint: %v", domain.ErrAuthInvalid, err)
		}
	}
	return fmt.Errorf("requesting token: %w", err)
}
