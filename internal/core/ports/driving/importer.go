package driving

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/dispatch"
)

// ImportCallbacks receive the events of an import batch.
// Nil callbacks are skipped.
type ImportCallbacks struct {
	// Dispatcher is the context callbacks run on. Nil runs them on the
	// import goroutine.
	Dispatcher dispatch.Dispatcher

	// OnSourceDownload may fire several times per source before its completion.
	OnSourceDownload func(source domain.Source, progress domain.Progress)

	// OnSourceComplete fires once per source, in source order.
	// Exactly one of changes and err is non-nil. stamp is nil when the
	// remote was unchanged or offered no validators.
	OnSourceComplete func(source domain.Source, changes *domain.Changes, stamp *domain.CacheStamp, err error)

	// OnComplete fires once after every source has completed.
	// err is non-nil only when the contact store could not be opened.
	OnComplete func(err error)
}

// SourceOutcome is the result of importing one source.
type SourceOutcome struct {
	Source  domain.Source
	Changes *domain.Changes
	Stamp   *domain.CacheStamp
	Err     error
}

// ImportReport collects the outcomes of an import batch in source order.
type ImportReport struct {
	Outcomes []SourceOutcome
}

// Failed returns the outcomes that ended in an error.
func (r *ImportReport) Failed() []SourceOutcome {
	var failed []SourceOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Totals sums the changes applied across sources.
func (r *ImportReport) Totals() domain.Changes {
	var total domain.Changes
	for _, o := range r.Outcomes {
		if o.Changes != nil {
			total.Additions += o.Changes.Additions
			total.Updates += o.Changes.Updates
		}
	}
	return total
}

// Importer synchronises the contact store with remote sources.
type Importer interface {
	// ImportFrom imports the given sources in the background and returns
	// immediately. Events are delivered through callbacks.
	ImportFrom(ctx context.Context, sources []domain.Source, callbacks ImportCallbacks)

	// ImportAll imports every enabled source, waits for the batch, and
	// records each source's outcome in the source store. Callbacks are
	// optional observers.
	ImportAll(ctx context.Context, callbacks ImportCallbacks) (*ImportReport, error)

	// ImportSources is ImportAll restricted to the given source IDs,
	// including disabled sources. Unknown IDs fail the batch before it starts.
	ImportSources(ctx context.Context, ids []string, callbacks ImportCallbacks) (*ImportReport, error)
}
