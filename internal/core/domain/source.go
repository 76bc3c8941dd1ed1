package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Source types understood by the fetcher factory.
const (
	// SourceTypeHTTP downloads a vCard file with optional basic or bearer auth.
	SourceTypeHTTP = "http"

	// SourceTypeFormLogin signs in through an HTML login form before downloading.
	SourceTypeFormLogin = "form-login"

	// SourceTypeOAuth2 obtains a bearer token with the OAuth2 client
	// credentials grant before downloading.
	SourceTypeOAuth2 = "oauth2"
)

// Source represents one configured remote vCard feed.
// The import pipeline treats a Source as read-only and returns
// an ImportResult for the caller to persist.
type Source struct {
	// ID is the unique identifier for the source.
	ID string

	// Type selects the fetcher (e.g., "http", "form-login").
	Type string

	// Name is the human-readable name for this source.
	Name string

	// Connection describes where and how to download the feed.
	Connection Connection

	// Enabled marks the source for inclusion in import batches.
	Enabled bool

	// LastImport is the outcome of the most recent import, nil if never imported.
	LastImport *ImportResult

	// CreatedAt is when the source was created.
	CreatedAt time.Time

	// UpdatedAt is when the source was last updated.
	UpdatedAt time.Time
}

// Connection holds the URL and optional credential for a source.
type Connection struct {
	// URL is the vCard file location.
	URL string

	// Username and Password are used for basic auth or the login form.
	Username string
	Password string

	// Token is a bearer token. Takes precedence over Username/Password.
	Token string

	// LoginURL is the form endpoint for form-login sources and the
	// token endpoint for oauth2 sources.
	LoginURL string

	// Params carries fetcher-specific options (e.g., form field names).
	Params map[string]string
}

// HasCredential reports whether the connection carries any credential.
func (c Connection) HasCredential() bool {
	return c.Token != "" || c.Username != "" || c.Password != ""
}

// Param returns a fetcher option or def when unset.
func (c Connection) Param(key, def string) string {
	if v, ok := c.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// Validate checks that the connection URLs are absolute http(s) URLs.
func (c Connection) Validate() error {
	if err := validateHTTPURL(c.URL); err != nil {
		return fmt.Errorf("%w: url: %w", ErrInvalidInput, err)
	}
	if c.LoginURL != "" {
		if err := validateHTTPURL(c.LoginURL); err != nil {
			return fmt.Errorf("%w: login url: %w", ErrInvalidInput, err)
		}
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Stamp returns the cache stamp of the last import, or nil.
func (s *Source) Stamp() *CacheStamp {
	if s.LastImport == nil {
		return nil
	}
	return s.LastImport.Stamp
}

// StatusMessage renders the last import outcome for listings.
func (s *Source) StatusMessage() string {
	if s.LastImport == nil {
		return "Not imported yet"
	}
	if s.LastImport.Success {
		return s.LastImport.Message
	}
	return "⚠ " + s.LastImport.Message
}

// ImportResult records the outcome of importing one source.
type ImportResult struct {
	// Success reports whether the import completed without error.
	Success bool

	// Message is a human-readable status: counts on success, error text on failure.
	Message string

	// ImportedAt is when the import finished.
	ImportedAt time.Time

	// Stamp is the cache stamp the source's data matched at that time.
	Stamp *CacheStamp
}

// WithResult returns a copy of the source carrying the outcome of an import.
// A failed import keeps the previous stamp so the next run retries the download.
func (s Source) WithResult(changes *Changes, stamp *CacheStamp, err error, at time.Time) Source {
	prev := s.Stamp()
	if err != nil {
		s.LastImport = &ImportResult{
			Success:    false,
			Message:    err.Error(),
			ImportedAt: at,
			Stamp:      prev,
		}
		return s
	}
	if stamp == nil {
		stamp = prev
	}
	s.LastImport = &ImportResult{
		Success:    true,
		Message:    changes.Summary(),
		ImportedAt: at,
		Stamp:      stamp,
	}
	return s
}
