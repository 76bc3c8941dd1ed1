package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/custodia-labs/cardsync/internal/adapters/driven/auth"
	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/future"
	"github.com/custodia-labs/cardsync/internal/logger"
)

// Ensure Transport implements the interface.
var _ driven.Transport = (*Transport)(nil)

// acceptEncoding lists the encodings decodeBody understands.
const acceptEncoding = "gzip, br, zstd"

// acceptVCard prefers vCard but takes anything.
const acceptVCard = "text/vcard, text/x-vcard;q=0.9, */*;q=0.5"

// Options configures a Transport.
type Options struct {
	// UserAgent is sent with every request. Empty uses DefaultUserAgent("dev").
	UserAgent string

	// RequestTimeout bounds metadata requests and form posts.
	RequestTimeout time.Duration

	// ResourceTimeout bounds a whole download.
	ResourceTimeout time.Duration

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64

	// RoundTripper overrides the network transport, mainly for tests.
	RoundTripper http.RoundTripper
}

// OptionsFrom builds options from transport settings.
func OptionsFrom(settings domain.TransportSettings, version string) Options {
	opts := Options{
		UserAgent:         settings.UserAgent,
		RequestTimeout:    settings.RequestTimeout,
		ResourceTimeout:   settings.ResourceTimeout,
		RequestsPerSecond: settings.RequestsPerSecond,
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent(version)
	}
	return opts
}

// DefaultUserAgent returns the User-Agent for a build version.
func DefaultUserAgent(version string) string {
	return fmt.Sprintf("cardsync/%s (%s)", version, runtime.GOOS)
}

// Transport performs HTTP requests for fetchers.
type Transport struct {
	opts     Options
	client   *http.Client
	throttle *Throttle
}

// New creates a transport without a cookie jar.
func New(opts Options) *Transport {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent("dev")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = domain.DefaultRequestTimeout
	}
	if opts.ResourceTimeout <= 0 {
		opts.ResourceTimeout = domain.DefaultResourceTimeout
	}
	return &Transport{
		opts:     opts,
		client:   newHTTPClient(opts, nil),
		throttle: NewThrottle(opts.RequestsPerSecond),
	}
}

func newHTTPClient(opts Options, jar http.CookieJar) *http.Client {
	rt := opts.RoundTripper
	if rt == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		// Encodings are decoded by hand so br and zstd work too.
		base.DisableCompression = true
		base.ResponseHeaderTimeout = opts.RequestTimeout
		rt = base
	}
	return &http.Client{Transport: rt, Jar: jar}
}

// Session returns a transport with its own cookie jar sharing this one's
// settings and throttle.
func (t *Transport) Session() (driven.Transport, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Transport{
		opts:     t.opts,
		client:   newHTTPClient(t.opts, jar),
		throttle: t.throttle,
	}, nil
}

// Head issues a HEAD request.
func (t *Transport) Head(ctx context.Context, req driven.Request) *future.Future[driven.ResponseMetadata] {
	return future.Go(func() (driven.ResponseMetadata, error) {
		ctx, cancel := context.WithTimeout(ctx, t.opts.RequestTimeout)
		defer cancel()

		resp, err := t.do(ctx, http.MethodHead, req, nil, "")
		if err != nil {
			return driven.ResponseMetadata{}, err
		}
		_ = resp.Body.Close()
		return metadataOf(resp), nil
	})
}

// PostForm submits form to req.URL and follows redirects.
func (t *Transport) PostForm(ctx context.Context, req driven.Request, form url.Values) *future.Future[driven.ResponseMetadata] {
	return future.Go(func() (driven.ResponseMetadata, error) {
		ctx, cancel := context.WithTimeout(ctx, t.opts.RequestTimeout)
		defer cancel()

		body := strings.NewReader(form.Encode())
		resp, err := t.do(ctx, http.MethodPost, req, body, "application/x-www-form-urlencoded")
		if err != nil {
			return driven.ResponseMetadata{}, err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return metadataOf(resp), nil
	})
}

// Download GETs req.URL into dest. Progress is reported before the future settles.
func (t *Transport) Download(
	ctx context.Context,
	req driven.Request,
	dest string,
	onProgress driven.ProgressFunc,
) *future.Future[string] {
	return future.Go(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, t.opts.ResourceTimeout)
		defer cancel()

		resp, err := t.do(ctx, http.MethodGet, req, nil, "")
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		var raw io.Reader = resp.Body
		if onProgress != nil {
			raw = &progressReader{r: resp.Body, expected: resp.ContentLength, onProgress: onProgress}
		}
		body, closer, err := decodeBody(raw, resp.Header)
		if err != nil {
			return "", &domain.TransportError{Method: http.MethodGet, URL: req.URL, Err: err}
		}
		defer closer.Close()

		f, err := os.Create(dest)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(f, body); err != nil {
			_ = f.Close()
			return "", &domain.TransportError{Method: http.MethodGet, URL: req.URL, Err: err}
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		logger.Debug("downloaded %s to %s", req.URL, dest)
		return dest, nil
	})
}

// do sends a request and returns a response in the 2xx range.
func (t *Transport) do(
	ctx context.Context,
	method string,
	req driven.Request,
	body io.Reader,
	contentType string,
) (*http.Response, error) {
	if err := t.throttle.Wait(ctx); err != nil {
		return nil, &domain.TransportError{Method: method, URL: req.URL, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &domain.TransportError{Method: method, URL: req.URL, Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.opts.UserAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", acceptVCard)
	}
	httpReq.Header.Set("Accept-Encoding", acceptEncoding)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	client := auth.Client(t.client, req.Credential, req.URL)
	logger.Debug("%s %s", method, req.URL)
	resp, err := client.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &domain.TransportError{Method: method, URL: req.URL, Err: err}
	}

	t.throttle.Observe(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &domain.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			URL:        req.URL,
		}
	}
	return resp, nil
}

func metadataOf(resp *http.Response) driven.ResponseMetadata {
	final := ""
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return driven.ResponseMetadata{
		URL:        final,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}
}

// progressReader reports bytes as they are read from the network.
type progressReader struct {
	r          io.Reader
	total      int64
	expected   int64
	onProgress driven.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.total += int64(n)
		p.onProgress(domain.Progress{Bytes: int64(n), TotalBytes: p.total, TotalBytesExpected: p.expected})
	}
	return n, err
}
