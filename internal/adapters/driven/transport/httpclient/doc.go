// Package httpclient implements driven.Transport over net/http.
//
// Every request carries a User-Agent, is throttled by a shared token bucket
// and honours Retry-After on 429 and 503 responses. Downloads decode gzip,
// brotli and zstd content encodings and convert declared charsets to UTF-8
// before writing to disk.
package httpclient
