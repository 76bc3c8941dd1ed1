// Package messages defines Bubbletea message types for the TUI.
// Import events from the core arrive as these messages.
package messages

import (
	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
)

// SourcesLoaded carries the sources the import will cover.
type SourcesLoaded struct {
	Sources []domain.Source
	Err     error
}

// Dispatched carries an import callback to run on the update goroutine.
type Dispatched struct {
	Run func()
}

// SourceProgress reports downloaded bytes for one source.
type SourceProgress struct {
	Source   domain.Source
	Progress domain.Progress
}

// SourceCompleted reports the outcome of one source.
// Exactly one of Changes and Err is set.
type SourceCompleted struct {
	Source  domain.Source
	Changes *domain.Changes
	Stamp   *domain.CacheStamp
	Err     error
}

// ImportFinished is sent once the batch has ended.
// Err is set when the batch could not run at all.
type ImportFinished struct {
	Report *driving.ImportReport
	Err    error
}
