package formlogin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/future"
	"github.com/custodia-labs/cardsync/internal/logger"
)

// Connection param keys and their defaults.
const (
	ParamUsernameField = "username_field"
	ParamPasswordField = "password_field"
	ParamErrorMarker   = "error_marker"

	DefaultUsernameField = "username"
	DefaultPasswordField = "password"
	DefaultErrorMarker   = "err=true"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher signs in through a login form and downloads the file.
type Fetcher struct {
	transport driven.Transport
	request   driven.Request
	loginURL  string
	form      url.Values
	marker    string
}

// New creates a fetcher for conn. conn.LoginURL must be set.
func New(conn domain.Connection, transport driven.Transport) *Fetcher {
	form := url.Values{}
	form.Set(conn.Param(ParamUsernameField, DefaultUsernameField), conn.Username)
	form.Set(conn.Param(ParamPasswordField, DefaultPasswordField), conn.Password)
	return &Fetcher{
		transport: transport,
		request: driven.Request{
			URL:        conn.URL,
			Credential: driven.CredentialFor(conn),
		},
		loginURL: conn.LoginURL,
		form:     form,
		marker:   conn.Param(ParamErrorMarker, DefaultErrorMarker),
	}
}

// Build is the FetcherBuilder for form-login sources.
func Build(source domain.Source, transport driven.Transport) (driven.Fetcher, error) {
	conn := source.Connection
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if conn.LoginURL == "" {
		return nil, fmt.Errorf("%w: form-login source needs a login url", domain.ErrInvalidInput)
	}
	return New(conn, transport), nil
}

// Check issues a HEAD request for the file without signing in.
func (f *Fetcher) Check(ctx context.Context) *future.Future[driven.ResponseMetadata] {
	return f.transport.Head(ctx, f.request)
}

// Download signs in within a new session, then GETs the file into dest.
// A rejected login settles with domain.ErrAuthInvalid.
func (f *Fetcher) Download(ctx context.Context, dest string, onProgress driven.ProgressFunc) *future.Future[string] {
	session, err := f.transport.Session()
	if err != nil {
		return future.Failed[string](err)
	}

	login := session.PostForm(ctx, driven.Request{URL: f.loginURL}, f.form)
	return future.FlatMap(login, func(meta driven.ResponseMetadata) *future.Future[string] {
		if strings.Contains(meta.URL, f.marker) {
			logger.Debug("login to %s rejected, landed on %s", f.loginURL, meta.URL)
			return future.Failed[string](domain.ErrAuthInvalid)
		}
		return session.Download(ctx, f.request, dest, onProgress)
	})
}
