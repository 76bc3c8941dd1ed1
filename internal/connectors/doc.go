// Package connectors provides the fetchers that download vCard feeds.
// Each fetcher knows how to reach one kind of source (plain HTTP,
// form login) over a shared transport.
//
// Fetchers are registered with the Factory at startup.
package connectors
