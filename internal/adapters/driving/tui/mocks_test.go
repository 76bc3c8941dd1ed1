package tui

import (
	"context"
	"errors"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/future"
)

// MockImporter replays fixed outcomes through the callbacks.
type MockImporter struct {
	Outcomes []driving.SourceOutcome
	Progress []domain.Progress
	Err      error

	// Requested records the IDs passed to ImportSources.
	Requested []string
}

func (m *MockImporter) ImportFrom(_ context.Context, _ []domain.Source, callbacks driving.ImportCallbacks) {
	if callbacks.OnComplete != nil {
		callbacks.OnComplete(m.Err)
	}
}

func (m *MockImporter) ImportAll(_ context.Context, callbacks driving.ImportCallbacks) (*driving.ImportReport, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	post := func(fn func()) {
		if callbacks.Dispatcher == nil {
			fn()
			return
		}
		_ = callbacks.Dispatcher.Post(fn)
	}
	report := &driving.ImportReport{}
	for _, o := range m.Outcomes {
		for _, p := range m.Progress {
			post(func() { callbacks.OnSourceDownload(o.Source, p) })
		}
		post(func() { callbacks.OnSourceComplete(o.Source, o.Changes, o.Stamp, o.Err) })
		report.Outcomes = append(report.Outcomes, o)
	}
	return report, nil
}

func (m *MockImporter) ImportSources(
	ctx context.Context,
	ids []string,
	callbacks driving.ImportCallbacks,
) (*driving.ImportReport, error) {
	m.Requested = ids
	return m.ImportAll(ctx, callbacks)
}

// MockSourceService lists fixed sources.
type MockSourceService struct {
	Sources []domain.Source
	Err     error
}

func (m *MockSourceService) Add(_ context.Context, s domain.Source) (*domain.Source, error) {
	return &s, m.Err
}

func (m *MockSourceService) Get(_ context.Context, _ string) (*domain.Source, error) {
	return nil, domain.ErrNotFound
}

func (m *MockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.Sources, m.Err
}

func (m *MockSourceService) Update(_ context.Context, _ domain.Source) error { return m.Err }

func (m *MockSourceService) Remove(_ context.Context, _ string) error { return m.Err }

func (m *MockSourceService) Move(_ context.Context, _ string, _ int) error { return m.Err }

func (m *MockSourceService) SetEnabled(_ context.Context, _ string, _ bool) error { return m.Err }

func (m *MockSourceService) SupportedTypes() []string { return nil }

func (m *MockSourceService) Validate(_ context.Context, _ domain.Source) *future.Future[driving.ValidationResult] {
	return future.Failed[driving.ValidationResult](errors.New("not supported"))
}
