package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// TestStampChecker_CheckRemote tests the fetch decision for each stamp combination.
func TestStampChecker_CheckRemote(t *testing.T) {
	tests := []struct {
		name         string
		previous     *domain.CacheStamp
		etag         string
		lastModified string
		want         domain.FetchDecision
	}{
		{
			name: "never imported",
			etag: `"v1"`,
			want: domain.Updated(&domain.CacheStamp{ETag: `"v1"`}),
		},
		{
			name:     "same etag",
			previous: &domain.CacheStamp{ETag: `"v1"`},
			etag:     `"v1"`,
			want:     domain.Unchanged(),
		},
		{
			name:     "new etag",
			previous: &domain.CacheStamp{ETag: `"v1"`},
			etag:     `"v2"`,
			want:     domain.Updated(&domain.CacheStamp{ETag: `"v2"`}),
		},
		{
			name:         "same last-modified",
			previous:     &domain.CacheStamp{LastModified: "Wed, 21 Oct 2026 07:28:00 GMT"},
			lastModified: "Wed, 21 Oct 2026 07:28:00 GMT",
			want:         domain.Unchanged(),
		},
		{
			name:         "etag appears next to last-modified",
			previous:     &domain.CacheStamp{LastModified: "Wed, 21 Oct 2026 07:28:00 GMT"},
			etag:         `"v1"`,
			lastModified: "Wed, 21 Oct 2026 07:28:00 GMT",
			want: domain.Updated(&domain.CacheStamp{
				ETag:         `"v1"`,
				LastModified: "Wed, 21 Oct 2026 07:28:00 GMT",
			}),
		},
		{
			name:     "no validators",
			previous: &domain.CacheStamp{ETag: `"v1"`},
			want:     domain.Updated(nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newMockFetcher("", tt.etag)
			fetcher.lastModified = tt.lastModified
			source := httpSource("a")
			if tt.previous != nil {
				source.LastImport = &domain.ImportResult{Success: true, Stamp: tt.previous}
			}

			got, err := StampChecker{}.CheckRemote(context.Background(), source, fetcher).Get()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, fetcher.downloads.Load())
		})
	}
}

// TestStampChecker_CheckRemote_Failure tests that request failures are wrapped.
func TestStampChecker_CheckRemote_Failure(t *testing.T) {
	fetcher := newMockFetcher("", "")
	fetcher.checkErr = &domain.HTTPStatusError{StatusCode: 404, Status: "404 Not Found"}

	_, err := StampChecker{}.CheckRemote(context.Background(), httpSource("a"), fetcher).Get()

	assert.ErrorIs(t, err, domain.ErrStampCheckFailed)
	assert.True(t, domain.IsHTTPStatus(err))
}
