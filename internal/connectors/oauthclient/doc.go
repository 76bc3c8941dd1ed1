// Package oauthclient fetches vCard files from servers that hand out bearer
// tokens through the OAuth2 client credentials grant. The connection's
// LoginURL is the token endpoint, Username the client ID and Password the
// client secret.
package oauthclient
