package domain

import "strings"

// CacheStamp identifies a version of a remote payload using the validators
// the server returned for it.
type CacheStamp struct {
	ETag         string
	LastModified string
}

// NewCacheStamp builds a stamp from response validators.
// It returns nil when the server offered neither, which makes every
// check report the remote as changed.
func NewCacheStamp(etag, lastModified string) *CacheStamp {
	etag = strings.TrimSpace(etag)
	lastModified = strings.TrimSpace(lastModified)
	if etag == "" && lastModified == "" {
		return nil
	}
	return &CacheStamp{ETag: etag, LastModified: lastModified}
}

// IsZero reports whether the stamp carries no validators.
func (s *CacheStamp) IsZero() bool {
	return s == nil || (s.ETag == "" && s.LastModified == "")
}

// Equal reports whether both stamps describe the same remote representation.
// Stamps without validators never compare equal.
func (s *CacheStamp) Equal(other *CacheStamp) bool {
	if s.IsZero() || other.IsZero() {
		return false
	}
	return s.ETag == other.ETag && s.LastModified == other.LastModified
}

func (s *CacheStamp) String() string {
	if s.IsZero() {
		return "<none>"
	}
	var parts []string
	if s.ETag != "" {
		parts = append(parts, "etag="+s.ETag)
	}
	if s.LastModified != "" {
		parts = append(parts, "last-modified="+s.LastModified)
	}
	return strings.Join(parts, " ")
}

// FetchDecision is the outcome of a stamp check.
// Stamp is only set when Updated is true.
type FetchDecision struct {
	Updated bool
	Stamp   *CacheStamp
}

// Unchanged is the decision for a remote known to match the stored stamp.
func Unchanged() FetchDecision {
	return FetchDecision{}
}

// Updated is the decision for a remote that must be downloaded.
func Updated(stamp *CacheStamp) FetchDecision {
	return FetchDecision{Updated: true, Stamp: stamp}
}

// DecideFetch compares a freshly derived stamp with the stored one.
func DecideFetch(previous, current *CacheStamp) FetchDecision {
	if previous.Equal(current) {
		return Unchanged()
	}
	return Updated(current)
}
