package auth

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
)

// Client returns a copy of base that authenticates requests with cred.
// A nil credential returns base unchanged.
func Client(base *http.Client, cred *driven.Credential, target string) *http.Client {
	if cred == nil {
		return base
	}
	c := *base
	c.Transport = RoundTripper(base.Transport, cred, target)
	return &c
}

// RoundTripper wraps rt so requests to target's host carry cred.
func RoundTripper(rt http.RoundTripper, cred *driven.Credential, target string) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if cred == nil {
		return rt
	}
	host := hostOf(target)
	if cred.Token != "" {
		return &scopedTransport{
			host: host,
			base: rt,
			auth: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"}),
				Base:   rt,
			},
		}
	}
	return &scopedTransport{
		host: host,
		base: rt,
		auth: &basicTransport{username: cred.Username, password: cred.Password, base: rt},
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// scopedTransport sends requests for host through auth and all others through base.
type scopedTransport struct {
	host string
	base http.RoundTripper
	auth http.RoundTripper
}

func (t *scopedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.host != "" && strings.ToLower(req.URL.Host) == t.host {
		return t.auth.RoundTrip(req)
	}
	return t.base.RoundTrip(req)
}

// basicTransport adds HTTP basic authentication.
type basicTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(r)
}
