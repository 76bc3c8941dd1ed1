// Package direct fetches vCard files with a plain GET, authenticating with
// basic auth or a bearer token when the source carries a credential.
package direct
