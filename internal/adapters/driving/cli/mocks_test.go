package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/future"
)

// mockSourceService keeps sources in memory.
type mockSourceService struct {
	sources    []domain.Source
	err        error
	added      *domain.Source
	updated    *domain.Source
	moved      []any
	validation *future.Future[driving.ValidationResult]
}

func (m *mockSourceService) Add(_ context.Context, s domain.Source) (*domain.Source, error) {
	if m.err != nil {
		return nil, m.err
	}
	s.ID = "new-id"
	m.added = &s
	m.sources = append(m.sources, s)
	return &s, nil
}

func (m *mockSourceService) Get(_ context.Context, id string) (*domain.Source, error) {
	for i := range m.sources {
		if m.sources[i].ID == id {
			s := m.sources[i]
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Update(_ context.Context, s domain.Source) error {
	if m.err != nil {
		return m.err
	}
	m.updated = &s
	return nil
}

func (m *mockSourceService) Remove(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.sources = slices.DeleteFunc(m.sources, func(s domain.Source) bool { return s.ID == id })
	return nil
}

func (m *mockSourceService) Move(_ context.Context, id string, position int) error {
	m.moved = []any{id, position}
	return m.err
}

func (m *mockSourceService) SetEnabled(_ context.Context, id string, enabled bool) error {
	for i := range m.sources {
		if m.sources[i].ID == id {
			m.sources[i].Enabled = enabled
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockSourceService) SupportedTypes() []string {
	return []string{domain.SourceTypeFormLogin, domain.SourceTypeHTTP}
}

func (m *mockSourceService) Validate(_ context.Context, _ domain.Source) *future.Future[driving.ValidationResult] {
	return m.validation
}

// mockContactService serves fixed records.
type mockContactService struct {
	records []domain.Record
	err     error
}

func (m *mockContactService) List(_ context.Context) ([]domain.Record, error) {
	return slices.Clone(m.records), m.err
}

func (m *mockContactService) Get(_ context.Context, id string) (*domain.Record, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockContactService) Find(_ context.Context, query string) ([]domain.Record, error) {
	var out []domain.Record
	for _, r := range m.records {
		if bytes.Contains(bytes.ToLower([]byte(r.DisplayName())), bytes.ToLower([]byte(query))) {
			out = append(out, r)
		}
	}
	return out, m.err
}

func (m *mockContactService) Export(_ context.Context, w io.Writer, ids ...string) (int, error) {
	n := 0
	for _, r := range m.records {
		if len(ids) > 0 && !slices.Contains(ids, r.ID) {
			continue
		}
		fmt.Fprintf(w, "BEGIN:VCARD\r\nFN:%s\r\nEND:VCARD\r\n", r.DisplayName())
		n++
	}
	return n, m.err
}

// mockImporter reports fixed outcomes through the callbacks.
type mockImporter struct {
	outcomes  []driving.SourceOutcome
	err       error
	requested []string
	// dispatched is set when callbacks were posted to a dispatcher.
	dispatched bool
}

func (m *mockImporter) ImportFrom(_ context.Context, _ []domain.Source, callbacks driving.ImportCallbacks) {
	if callbacks.OnComplete != nil {
		callbacks.OnComplete(m.err)
	}
}

func (m *mockImporter) ImportAll(_ context.Context, callbacks driving.ImportCallbacks) (*driving.ImportReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.dispatched = callbacks.Dispatcher != nil
	for _, o := range m.outcomes {
		if callbacks.OnSourceComplete == nil {
			continue
		}
		fn := func() { callbacks.OnSourceComplete(o.Source, o.Changes, o.Stamp, o.Err) }
		if callbacks.Dispatcher != nil {
			_ = callbacks.Dispatcher.Post(fn)
		} else {
			fn()
		}
	}
	return &driving.ImportReport{Outcomes: m.outcomes}, nil
}

func (m *mockImporter) ImportSources(
	ctx context.Context,
	ids []string,
	callbacks driving.ImportCallbacks,
) (*driving.ImportReport, error) {
	m.requested = ids
	return m.ImportAll(ctx, callbacks)
}

// mockSettingsService records Set calls.
type mockSettingsService struct {
	settings domain.AppSettings
	setErr   error
	set      map[string]string
	reloads  int
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"data_dir", "scheduler.interval"}
}

func (m *mockSettingsService) Reload() error {
	m.reloads++
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockScheduler blocks in Start until stopped, unless startErr is set.
type mockScheduler struct {
	stop     chan struct{}
	startErr error
	stopped  int

	tasks      []domain.ScheduledTask
	history    []domain.TaskResult
	historyErr error
	limit      int
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{stop: make(chan struct{})}
}

func (m *mockScheduler) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stop:
		return nil
	}
}

func (m *mockScheduler) Stop() error {
	m.stopped++
	if m.stopped == 1 {
		close(m.stop)
	}
	return nil
}

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, nil
}

func (m *mockScheduler) History(_ context.Context, _ string, limit int) ([]domain.TaskResult, error) {
	m.limit = limit
	return m.history, m.historyErr
}

// withServices installs services for one test and restores the previous ones.
func withServices(t *testing.T, s Services) {
	t.Helper()
	previous := Services{
		Source:        sourceService,
		Contact:       contactService,
		Importer:      importer,
		Scheduler:     scheduler,
		Settings:      settingsService,
		ConfigFile:    configFile,
		ApplySettings: applySettings,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(previous) })
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

// executeContext runs the root command with ctx and returns its output.
func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	setContext(rootCmd, ctx)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// setContext replaces the context cobra keeps on every command after a run.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}

// resetFlags restores flag defaults left over from earlier executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func person(id, first, last string) domain.Record {
	r := domain.NewRecord(domain.KindPerson)
	r.ID = id
	r.Single[domain.FieldFirstName] = first
	r.Single[domain.FieldLastName] = last
	return r
}
