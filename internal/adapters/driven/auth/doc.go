// Package auth attaches source credentials to outgoing HTTP requests.
//
// Bearer tokens go through golang.org/x/oauth2 static token sources.
// Basic credentials are only sent to the host they were configured for,
// so redirects to other hosts never see them.
package auth
