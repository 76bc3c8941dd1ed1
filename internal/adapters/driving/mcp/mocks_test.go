package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/future"
)

// mockContactService is a mock implementation of driving.ContactService.
type mockContactService struct {
	records   []domain.Record
	err       error
	lastQuery string
	exported  []string
}

func (m *mockContactService) List(_ context.Context) ([]domain.Record, error) {
	return m.records, m.err
}

func (m *mockContactService) Get(_ context.Context, id string) (*domain.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockContactService) Find(_ context.Context, query string) ([]domain.Record, error) {
	m.lastQuery = query
	return m.records, m.err
}

func (m *mockContactService) Export(ctx context.Context, w io.Writer, ids ...string) (int, error) {
	m.exported = ids
	for _, id := range ids {
		r, err := m.Get(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("contact %s: %w", id, err)
		}
		fmt.Fprintf(w, "BEGIN:VCARD\r\nFN:%s\r\nEND:VCARD\r\n", r.DisplayName())
	}
	return len(ids), nil
}

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	sources []domain.Source
	err     error
}

func (m *mockSourceService) Add(_ context.Context, s domain.Source) (*domain.Source, error) {
	return &s, m.err
}

func (m *mockSourceService) Get(_ context.Context, _ string) (*domain.Source, error) {
	return nil, m.err
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Update(_ context.Context, _ domain.Source) error { return m.err }

func (m *mockSourceService) Remove(_ context.Context, _ string) error { return m.err }

func (m *mockSourceService) Move(_ context.Context, _ string, _ int) error { return m.err }

func (m *mockSourceService) SetEnabled(_ context.Context, _ string, _ bool) error { return m.err }

func (m *mockSourceService) SupportedTypes() []string {
	return []string{domain.SourceTypeFormLogin, domain.SourceTypeHTTP}
}

func (m *mockSourceService) Validate(_ context.Context, _ domain.Source) *future.Future[driving.ValidationResult] {
	return future.Succeeded(driving.ValidationResult{})
}

// mockImporter is a mock implementation of driving.Importer.
type mockImporter struct {
	report *driving.ImportReport
	err    error
	calls  int
}

func (m *mockImporter) ImportFrom(_ context.Context, _ []domain.Source, callbacks driving.ImportCallbacks) {
	if callbacks.OnComplete != nil {
		callbacks.OnComplete(nil)
	}
}

func (m *mockImporter) ImportAll(_ context.Context, _ driving.ImportCallbacks) (*driving.ImportReport, error) {
	m.calls++
	return m.report, m.err
}

func (m *mockImporter) ImportSources(
	ctx context.Context,
	_ []string,
	callbacks driving.ImportCallbacks,
) (*driving.ImportReport, error) {
	return m.ImportAll(ctx, callbacks)
}

func person(id, first, last, email string) domain.Record {
	r := domain.NewRecord(domain.KindPerson)
	r.ID = id
	r.Single[domain.FieldFirstName] = first
	r.Single[domain.FieldLastName] = last
	if email != "" {
		r.Multi[domain.FieldEmails] = []domain.LabeledValue{{Label: "work", Value: email}}
	}
	return r
}
