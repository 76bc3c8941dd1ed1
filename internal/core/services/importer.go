package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/dispatch"
	"github.com/custodia-labs/cardsync/internal/future"
	"github.com/custodia-labs/cardsync/internal/logger"
)

// Ensure Importer implements the interface.
var _ driving.Importer = (*Importer)(nil)

// Importer synchronises the contact store with remote vCard sources.
//
// Fetches for every source in a batch start together, but results are
// applied to the store one source at a time, in source order.
type Importer struct {
	opener   driven.ContactStoreOpener
	fetchers driven.FetcherFactory
	parser   driven.RecordParser
	sources  driven.SourceStore
	checker  StampChecker

	maxConcurrent atomic.Int64
	tempDir       string
	now           func() time.Time

	running atomic.Bool
}

// NewImporter creates an importer. sources is only used by ImportAll and may be nil.
func NewImporter(
	opener driven.ContactStoreOpener,
	fetchers driven.FetcherFactory,
	parser driven.RecordParser,
	sources driven.SourceStore,
) *Importer {
	return &Importer{
		opener:   opener,
		fetchers: fetchers,
		parser:   parser,
		sources:  sources,
		now:      time.Now,
	}
}

// SetMaxConcurrentFetches bounds how many sources fetch at once. Zero removes the bound.
func (i *Importer) SetMaxConcurrentFetches(n int) {
	i.maxConcurrent.Store(int64(n))
}

// SetTempDir sets where payloads are downloaded. Empty uses the system default.
func (i *Importer) SetTempDir(dir string) {
	i.tempDir = dir
}

// sourceImport is the result of a source's fetch chain.
type sourceImport struct {
	updated bool
	records []domain.Record
	stamp   *domain.CacheStamp
}

// ImportFrom imports sources in the background and reports through callbacks.
func (i *Importer) ImportFrom(ctx context.Context, sources []domain.Source, callbacks driving.ImportCallbacks) {
	d := callbacks.Dispatcher
	if d == nil {
		d = dispatch.Inline{}
	}
	post := func(fn func()) {
		if err := d.Post(fn); err != nil {
			logger.Warn("import callback dropped: %v", err)
		}
	}
	sources = append([]domain.Source(nil), sources...)

	go i.importBatch(ctx, sources, callbacks, post)
}

func (i *Importer) importBatch(
	ctx context.Context,
	sources []domain.Source,
	callbacks driving.ImportCallbacks,
	post func(func()),
) {
	store, err := i.opener.Open(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		logger.Warn("import aborted: %v", err)
		if callbacks.OnComplete != nil {
			post(func() { callbacks.OnComplete(err) })
		}
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing contact store: %v", err)
		}
	}()

	var sem *semaphore.Weighted
	if n := i.maxConcurrent.Load(); n > 0 {
		sem = semaphore.NewWeighted(n)
	}

	pending := make([]*future.Future[sourceImport], len(sources))
	for idx, source := range sources {
		var onProgress driven.ProgressFunc
		if callbacks.OnSourceDownload != nil {
			onProgress = func(p domain.Progress) {
				post(func() { callbacks.OnSourceDownload(source, p) })
			}
		}
		pending[idx] = i.startFetch(ctx, sem, source, onProgress)
	}

	for idx, source := range sources {
		result, err := pending[idx].Get()

		var changes *domain.Changes
		var stamp *domain.CacheStamp
		if err == nil {
			changes, stamp, err = i.applySource(ctx, store, source, result)
		}
		if err != nil {
			logger.Warn("vCard source %s: %v", source.Name, err)
			changes, stamp = nil, nil
			// Mutations applied before the failure stay; committing them
			// also releases the write lock before the outcome is recorded.
			if store.HasPendingChanges() {
				if saveErr := store.Save(ctx); saveErr != nil {
					logger.Warn("vCard source %s: saving applied changes: %v", source.Name, saveErr)
				}
			}
		}

		if callbacks.OnSourceComplete != nil {
			post(func() { callbacks.OnSourceComplete(source, changes, stamp, err) })
		}
	}

	if callbacks.OnComplete != nil {
		post(func() { callbacks.OnComplete(nil) })
	}
}

// startFetch begins the check, download and parse chain for one source,
// waiting for a slot when fetches are bounded.
func (i *Importer) startFetch(
	ctx context.Context,
	sem *semaphore.Weighted,
	source domain.Source,
	onProgress driven.ProgressFunc,
) *future.Future[sourceImport] {
	if sem == nil {
		return i.checkAndDownload(ctx, source, onProgress)
	}

	out := future.New[sourceImport]()
	go func() {
		if err := sem.Acquire(ctx, 1); err != nil {
			out.Reject(fmt.Errorf("%w: %w", domain.ErrStampCheckFailed, err))
			return
		}
		i.checkAndDownload(ctx, source, onProgress).OnComplete(func(v sourceImport, err error) {
			sem.Release(1)
			if err != nil {
				out.Reject(err)
				return
			}
			out.Resolve(v)
		})
	}()
	return out
}

func (i *Importer) checkAndDownload(
	ctx context.Context,
	source domain.Source,
	onProgress driven.ProgressFunc,
) *future.Future[sourceImport] {
	fetcher, err := i.fetchers.Create(source)
	if err != nil {
		return future.Failed[sourceImport](fmt.Errorf("%w: %w", domain.ErrStampCheckFailed, err))
	}

	decision := i.checker.CheckRemote(ctx, source, fetcher)

	return future.FlatMap(decision, func(d domain.FetchDecision) *future.Future[sourceImport] {
		if !d.Updated {
			return future.Succeeded(sourceImport{})
		}
		logger.Info("vCard source %s: downloading…", source.Name)
		return future.Map(i.download(ctx, fetcher, onProgress), func(records []domain.Record) sourceImport {
			return sourceImport{updated: true, records: records, stamp: d.Stamp}
		})
	})
}

// download fetches the payload into a temporary file, parses it and
// removes the file.
func (i *Importer) download(
	ctx context.Context,
	fetcher driven.Fetcher,
	onProgress driven.ProgressFunc,
) *future.Future[[]domain.Record] {
	tmp, err := os.CreateTemp(i.tempDir, "cardsync-*.vcf")
	if err != nil {
		return future.Failed[[]domain.Record](fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err))
	}
	dest := tmp.Name()
	_ = tmp.Close()

	downloaded := future.MapError(fetcher.Download(ctx, dest, onProgress), func(err error) error {
		return fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	})

	parsed := future.Then(downloaded, i.parseFile)
	parsed.OnComplete(func([]domain.Record, error) {
		if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("removing %s: %v", dest, err)
		}
	})
	return parsed
}

func (i *Importer) parseFile(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	}
	defer f.Close()

	records, err := i.parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParseFailed, err)
	}
	return records, nil
}

// applySource reconciles a fetched source against the store and applies
// the differences. Mutations already applied are kept on failure.
func (i *Importer) applySource(
	ctx context.Context,
	store driven.ContactStore,
	source domain.Source,
	result sourceImport,
) (*domain.Changes, *domain.CacheStamp, error) {
	if !result.updated {
		return &domain.Changes{}, nil, nil
	}

	current, err := store.LoadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load contacts: %w", err)
	}

	diff := domain.ResolveBetween(current, result.records)

	if len(diff.Additions) > 0 {
		if err := store.AddAll(ctx, diff.Additions); err != nil {
			return nil, nil, fmt.Errorf("%w: add contacts: %w", domain.ErrStoreWriteFailed, err)
		}
	}

	for _, cs := range diff.Changes {
		if err := applyChangeSet(ctx, store, cs); err != nil {
			return nil, nil, err
		}
	}

	if !store.HasPendingChanges() {
		logger.Info("vCard source %s: no contacts to add or update", source.Name)
		return &domain.Changes{}, result.stamp, nil
	}

	if err := store.Save(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrStorePersistFailed, err)
	}

	counts := diff.Counts()
	logger.Info("vCard source %s: added %d contact(s), updated %d contact(s)",
		source.Name, counts.Additions, counts.Updates)
	return &counts, result.stamp, nil
}

func applyChangeSet(ctx context.Context, store driven.ContactStore, cs domain.RecordChangeSet) error {
	id := cs.Record.ID
	for _, field := range domain.SingleFields {
		value, ok := cs.SingleValueChanges[field]
		if !ok {
			continue
		}
		if err := store.SetValue(ctx, id, field, value); err != nil {
			return asStoreWriteError(string(field), cs.Record, err)
		}
	}
	for _, field := range domain.MultiFields {
		values, ok := cs.MultiValueChanges[field]
		if !ok {
			continue
		}
		if err := store.AddValues(ctx, id, field, values); err != nil {
			return asStoreWriteError(string(field), cs.Record, err)
		}
	}
	if len(cs.ImageChange) > 0 {
		if err := store.SetImage(ctx, id, cs.ImageChange); err != nil {
			return asStoreWriteError("image", cs.Record, err)
		}
	}
	return nil
}

func asStoreWriteError(field string, record domain.Record, err error) error {
	var swe *domain.StoreWriteError
	if errors.As(err, &swe) {
		return err
	}
	return &domain.StoreWriteError{
		Field:      field,
		RecordID:   record.ID,
		RecordName: record.DisplayName(),
		Err:        err,
	}
}

// ImportAll imports every enabled source and records the outcomes.
func (i *Importer) ImportAll(ctx context.Context, callbacks driving.ImportCallbacks) (*driving.ImportReport, error) {
	return i.importSelected(ctx, callbacks, func(all []domain.Source) ([]domain.Source, error) {
		enabled := make([]domain.Source, 0, len(all))
		for _, s := range all {
			if s.Enabled {
				enabled = append(enabled, s)
			}
		}
		return enabled, nil
	})
}

// ImportSources imports the sources with the given IDs, enabled or not,
// in list order, and records the outcomes.
func (i *Importer) ImportSources(
	ctx context.Context,
	ids []string,
	callbacks driving.ImportCallbacks,
) (*driving.ImportReport, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no sources given", domain.ErrInvalidInput)
	}
	return i.importSelected(ctx, callbacks, func(all []domain.Source) ([]domain.Source, error) {
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		selected := make([]domain.Source, 0, len(ids))
		for _, s := range all {
			if wanted[s.ID] {
				selected = append(selected, s)
				delete(wanted, s.ID)
			}
		}
		for _, id := range ids {
			if wanted[id] {
				return nil, fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
			}
		}
		return selected, nil
	})
}

// importSelected runs one recorded batch over the sources chosen by pick.
func (i *Importer) importSelected(
	ctx context.Context,
	callbacks driving.ImportCallbacks,
	pick func([]domain.Source) ([]domain.Source, error),
) (*driving.ImportReport, error) {
	if i.sources == nil {
		return nil, fmt.Errorf("import: source store not configured")
	}
	if !i.running.CompareAndSwap(false, true) {
		return nil, domain.ErrImportInProgress
	}
	defer i.running.Store(false)

	all, err := i.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	selected, err := pick(all)
	if err != nil {
		return nil, err
	}

	forward := callbacks.Dispatcher
	if forward == nil {
		forward = dispatch.Inline{}
	}
	relay := func(fn func()) {
		if err := forward.Post(fn); err != nil {
			logger.Warn("import callback dropped: %v", err)
		}
	}

	report := &driving.ImportReport{}
	done := make(chan error, 1)

	// Internal callbacks run on the import goroutine in order, so the
	// report needs no locking before done is signalled.
	i.ImportFrom(ctx, selected, driving.ImportCallbacks{
		Dispatcher: dispatch.Inline{},
		OnSourceDownload: func(source domain.Source, p domain.Progress) {
			if callbacks.OnSourceDownload != nil {
				relay(func() { callbacks.OnSourceDownload(source, p) })
			}
		},
		OnSourceComplete: func(source domain.Source, changes *domain.Changes, stamp *domain.CacheStamp, err error) {
			report.Outcomes = append(report.Outcomes, driving.SourceOutcome{
				Source: source, Changes: changes, Stamp: stamp, Err: err,
			})
			i.recordResult(ctx, source, changes, stamp, err)
			if callbacks.OnSourceComplete != nil {
				relay(func() { callbacks.OnSourceComplete(source, changes, stamp, err) })
			}
		},
		OnComplete: func(err error) {
			if callbacks.OnComplete != nil {
				relay(func() { callbacks.OnComplete(err) })
			}
			done <- err
		},
	})

	if err := <-done; err != nil {
		return nil, err
	}
	return report, nil
}

// recordResult stores the outcome on the latest version of the source.
func (i *Importer) recordResult(
	ctx context.Context,
	source domain.Source,
	changes *domain.Changes,
	stamp *domain.CacheStamp,
	err error,
) {
	current, getErr := i.sources.Get(ctx, source.ID)
	if getErr != nil {
		logger.Debug("vCard source %s: not recording result: %v", source.Name, getErr)
		return
	}
	updated := current.WithResult(changes, stamp, err, i.now())
	if saveErr := i.sources.Save(ctx, updated); saveErr != nil {
		logger.Warn("vCard source %s: saving import result: %v", source.Name, saveErr)
	}
}
