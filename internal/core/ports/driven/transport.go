package driven

import (
	"context"
	"net/http"
	"net/url"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/future"
)

// Credential authenticates a request.
// A non-empty Token is sent as a bearer token, otherwise
// Username and Password are sent as basic auth.
type Credential struct {
	Username string
	Password string
	Token    string
}

// CredentialFor returns the credential carried by a connection, or nil.
func CredentialFor(conn domain.Connection) *Credential {
	if !conn.HasCredential() {
		return nil
	}
	return &Credential{Username: conn.Username, Password: conn.Password, Token: conn.Token}
}

// Request describes an outgoing request.
type Request struct {
	URL        string
	Header     http.Header
	Credential *Credential
}

// ResponseMetadata is what a request returned, without its body.
type ResponseMetadata struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Header     http.Header
}

// Stamp derives the cache stamp from the response validators.
func (m ResponseMetadata) Stamp() *domain.CacheStamp {
	return domain.NewCacheStamp(m.Header.Get("ETag"), m.Header.Get("Last-Modified"))
}

// ProgressFunc receives download progress. It may be called from any goroutine.
type ProgressFunc func(domain.Progress)

// Transport performs HTTP requests.
//
// Every operation settles its future with *domain.HTTPStatusError for a
// response outside the 2xx range and *domain.TransportError when no response
// was received.
type Transport interface {
	// Head issues a metadata-only request.
	Head(ctx context.Context, req Request) *future.Future[ResponseMetadata]

	// Download writes the response body to dest and settles with dest.
	Download(ctx context.Context, req Request, dest string, onProgress ProgressFunc) *future.Future[string]

	// PostForm submits an url-encoded form, following redirects.
	PostForm(ctx context.Context, req Request, form url.Values) *future.Future[ResponseMetadata]

	// Session returns a transport sharing this one's settings with its own cookie jar.
	Session() (Transport, error)
}
