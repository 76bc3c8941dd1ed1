package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/future"
)

// --- Fetchers ---

// mockFetcher serves a fixed payload and records how it was used.
type mockFetcher struct {
	etag         string
	lastModified string
	checkErr     error
	payload      string
	downloadErr  error
	progress     []domain.Progress
	checkDelay   time.Duration

	// started is closed when Check is first called.
	started chan struct{}
	// waitFor blocks Check until closed.
	waitFor <-chan struct{}
	// gauge tracks concurrent checks across fetchers.
	gauge *concurrencyGauge

	startOnce sync.Once
	checks    atomic.Int32
	downloads atomic.Int32
}

func newMockFetcher(payload, etag string) *mockFetcher {
	return &mockFetcher{payload: payload, etag: etag, started: make(chan struct{})}
}

func (f *mockFetcher) Check(_ context.Context) *future.Future[driven.ResponseMetadata] {
	f.checks.Add(1)
	f.startOnce.Do(func() { close(f.started) })
	return future.Go(func() (driven.ResponseMetadata, error) {
		if f.gauge != nil {
			f.gauge.enter()
			defer f.gauge.leave()
		}
		if f.waitFor != nil {
			<-f.waitFor
		}
		if f.checkDelay > 0 {
			time.Sleep(f.checkDelay)
		}
		if f.checkErr != nil {
			return driven.ResponseMetadata{}, f.checkErr
		}
		header := http.Header{}
		if f.etag != "" {
			header.Set("ETag", f.etag)
		}
		if f.lastModified != "" {
			header.Set("Last-Modified", f.lastModified)
		}
		return driven.ResponseMetadata{URL: "https://example.com/contacts.vcf", StatusCode: http.StatusOK, Header: header}, nil
	})
}

func (f *mockFetcher) Download(_ context.Context, dest string, onProgress driven.ProgressFunc) *future.Future[string] {
	f.downloads.Add(1)
	return future.Go(func() (string, error) {
		if f.downloadErr != nil {
			return "", f.downloadErr
		}
		for _, p := range f.progress {
			if onProgress != nil {
				onProgress(p)
			}
		}
		if err := os.WriteFile(dest, []byte(f.payload), 0o600); err != nil {
			return "", err
		}
		return dest, nil
	})
}

// concurrencyGauge records the highest number of concurrent holders.
type concurrencyGauge struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (g *concurrencyGauge) enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	if g.current > g.peak {
		g.peak = g.current
	}
}

func (g *concurrencyGauge) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current--
}

func (g *concurrencyGauge) max() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

// mockFetcherFactory hands out fetchers by source ID.
type mockFetcherFactory struct {
	mu       sync.Mutex
	fetchers map[string]driven.Fetcher
	types    []string
}

func newMockFetcherFactory() *mockFetcherFactory {
	return &mockFetcherFactory{
		fetchers: make(map[string]driven.Fetcher),
		types:    []string{domain.SourceTypeHTTP, domain.SourceTypeFormLogin, domain.SourceTypeOAuth2},
	}
}

func (m *mockFetcherFactory) set(sourceID string, f driven.Fetcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchers[sourceID] = f
}

func (m *mockFetcherFactory) Create(source domain.Source) (driven.Fetcher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fetchers[source.ID]
	if !ok {
		return nil, domain.ErrUnsupportedType
	}
	return f, nil
}

func (m *mockFetcherFactory) Register(sourceType string, _ driven.FetcherBuilder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, sourceType)
}

func (m *mockFetcherFactory) SupportedTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := append([]string(nil), m.types...)
	sort.Strings(types)
	return types
}

// --- Parser ---

// mockParser maps payload text to records. Unknown payloads are invalid.
type mockParser struct {
	payloads map[string][]domain.Record
}

func newMockParser() *mockParser {
	return &mockParser{payloads: make(map[string][]domain.Record)}
}

func (p *mockParser) add(payload string, records ...domain.Record) string {
	p.payloads[payload] = records
	return payload
}

func (p *mockParser) Parse(r io.Reader) ([]domain.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	records, ok := p.payloads[string(data)]
	if !ok {
		return nil, domain.ErrInvalidPayload
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyPayload
	}
	out := make([]domain.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out, nil
}

// --- Contact store ---

// faultyStore wraps a working store and fails selected operations.
type faultyStore struct {
	driven.ContactStore
	loadErr     error
	addErr      error
	setValueErr error
	saveErr     error
}

func (s *faultyStore) LoadAll(ctx context.Context) ([]domain.Record, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.ContactStore.LoadAll(ctx)
}

func (s *faultyStore) AddAll(ctx context.Context, records []domain.Record) error {
	if s.addErr != nil {
		return s.addErr
	}
	return s.ContactStore.AddAll(ctx, records)
}

func (s *faultyStore) SetValue(ctx context.Context, id string, field domain.SingleField, value string) error {
	if s.setValueErr != nil {
		return s.setValueErr
	}
	return s.ContactStore.SetValue(ctx, id, field, value)
}

func (s *faultyStore) Save(ctx context.Context) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.ContactStore.Save(ctx)
}

// faultyOpener opens book handles wrapped in a faultyStore.
type faultyOpener struct {
	book    driven.ContactStoreOpener
	openErr error
	fault   faultyStore
}

func (o *faultyOpener) Open(ctx context.Context) (driven.ContactStore, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	inner, err := o.book.Open(ctx)
	if err != nil {
		return nil, err
	}
	store := o.fault
	store.ContactStore = inner
	return &store, nil
}

var errBoom = errors.New("boom")

// --- Callbacks ---

// importRecorder captures import events in arrival order.
type importRecorder struct {
	mu       sync.Mutex
	events   []string
	outcomes []driving.SourceOutcome
	progress map[string][]domain.Progress
	done     chan error
}

func newImportRecorder() *importRecorder {
	return &importRecorder{progress: make(map[string][]domain.Progress), done: make(chan error, 1)}
}

func (r *importRecorder) callbacks() driving.ImportCallbacks {
	return driving.ImportCallbacks{
		OnSourceDownload: func(source domain.Source, p domain.Progress) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "progress:"+source.ID)
			r.progress[source.ID] = append(r.progress[source.ID], p)
		},
		OnSourceComplete: func(source domain.Source, changes *domain.Changes, stamp *domain.CacheStamp, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "complete:"+source.ID)
			r.outcomes = append(r.outcomes, driving.SourceOutcome{Source: source, Changes: changes, Stamp: stamp, Err: err})
		},
		OnComplete: func(err error) {
			r.mu.Lock()
			r.events = append(r.events, "done")
			r.mu.Unlock()
			r.done <- err
		},
	}
}

// wait blocks until the batch completes and returns its error.
func (r *importRecorder) wait() error {
	select {
	case err := <-r.done:
		return err
	case <-time.After(5 * time.Second):
		return errors.New("import did not complete")
	}
}

func (r *importRecorder) outcome(sourceID string) (driving.SourceOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.outcomes {
		if o.Source.ID == sourceID {
			return o, true
		}
	}
	return driving.SourceOutcome{}, false
}

// --- Records ---

func person(first, last string) domain.Record {
	r := domain.NewRecord(domain.KindPerson)
	_ = r.SetValue(domain.FieldFirstName, first)
	_ = r.SetValue(domain.FieldLastName, last)
	return r
}

func withEmail(r domain.Record, label, value string) domain.Record {
	_ = r.AddValues(domain.FieldEmails, []domain.LabeledValue{{Label: label, Value: value}})
	return r
}

func withValue(r domain.Record, field domain.SingleField, value string) domain.Record {
	_ = r.SetValue(field, value)
	return r
}

func httpSource(id string) domain.Source {
	return domain.Source{
		ID:         id,
		Name:       "Source " + id,
		Type:       domain.SourceTypeHTTP,
		Enabled:    true,
		Connection: domain.Connection{URL: "https://example.com/" + id + ".vcf"},
	}
}
