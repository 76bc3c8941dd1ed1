package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
)

// Ensure ContactBook and its handles implement the interfaces.
var (
	_ driven.ContactStoreOpener = (*ContactBook)(nil)
	_ driven.ContactReader      = (*ContactBook)(nil)
	_ driven.ContactStore       = (*contactHandle)(nil)
)

// errHandleClosed is returned by a handle used after Close.
var errHandleClosed = errors.New("contact store handle closed")

// ContactBook is an in-memory contact database.
// Handles returned by Open work on a private copy that Save publishes.
type ContactBook struct {
	mu      sync.RWMutex
	records []domain.Record
}

// NewContactBook creates a contact book holding records.
// Records without an ID are given one.
func NewContactBook(records ...domain.Record) *ContactBook {
	b := &ContactBook{}
	for _, r := range records {
		r = r.Clone()
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		b.records = append(b.records, r)
	}
	return b
}

func cloneRecords(records []domain.Record) []domain.Record {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Open returns a handle on a snapshot of the book.
func (b *ContactBook) Open(_ context.Context) (driven.ContactStore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &contactHandle{book: b, working: cloneRecords(b.records)}, nil
}

// List returns saved records ordered by display name.
func (b *ContactBook) List(_ context.Context) ([]domain.Record, error) {
	b.mu.RLock()
	records := cloneRecords(b.records)
	b.mu.RUnlock()

	slices.SortStableFunc(records, func(x, y domain.Record) int {
		return cmp.Compare(strings.ToLower(x.DisplayName()), strings.ToLower(y.DisplayName()))
	})
	return records, nil
}

// Get retrieves a saved record by ID.
func (b *ContactBook) Get(_ context.Context, id string) (*domain.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.records {
		if r.ID == id {
			c := r.Clone()
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Count returns the number of saved records.
func (b *ContactBook) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records), nil
}

// contactHandle buffers mutations against a private copy of the book.
type contactHandle struct {
	mu      sync.Mutex
	book    *ContactBook
	working []domain.Record
	dirty   bool
	closed  bool
}

func (h *contactHandle) LoadAll(_ context.Context) ([]domain.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errHandleClosed
	}
	return cloneRecords(h.working), nil
}

func (h *contactHandle) AddAll(_ context.Context, records []domain.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	for _, r := range records {
		if !r.Kind.IsValid() {
			return &domain.StoreWriteError{
				Field:      "kind",
				RecordName: r.DisplayName(),
				Err:        domain.ErrInvalidInput,
			}
		}
	}
	for _, r := range records {
		r = r.Clone()
		r.ID = uuid.NewString()
		h.working = append(h.working, r)
	}
	if len(records) > 0 {
		h.dirty = true
	}
	return nil
}

// mutate applies fn to the working record with id.
func (h *contactHandle) mutate(id, field string, fn func(*domain.Record) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	i := slices.IndexFunc(h.working, func(r domain.Record) bool { return r.ID == id })
	if i < 0 {
		return &domain.StoreWriteError{Field: field, RecordID: id, Err: domain.ErrNotFound}
	}
	// Work on a copy so a rejected change leaves the record untouched.
	r := h.working[i].Clone()
	if err := fn(&r); err != nil {
		return &domain.StoreWriteError{Field: field, RecordID: id, RecordName: r.DisplayName(), Err: err}
	}
	h.working[i] = r
	h.dirty = true
	return nil
}

func (h *contactHandle) SetValue(_ context.Context, id string, field domain.SingleField, value string) error {
	return h.mutate(id, string(field), func(r *domain.Record) error {
		return r.SetValue(field, value)
	})
}

func (h *contactHandle) AddValues(_ context.Context, id string, field domain.MultiField, values []domain.LabeledValue) error {
	return h.mutate(id, string(field), func(r *domain.Record) error {
		return r.AddValues(field, values)
	})
}

func (h *contactHandle) SetImage(_ context.Context, id string, data []byte) error {
	return h.mutate(id, "image", func(r *domain.Record) error {
		return r.SetImage(data)
	})
}

func (h *contactHandle) HasPendingChanges() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirty
}

func (h *contactHandle) Save(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	if !h.dirty {
		return nil
	}
	h.book.mu.Lock()
	h.book.records = cloneRecords(h.working)
	h.book.mu.Unlock()
	h.dirty = false
	return nil
}

func (h *contactHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.working = nil
	h.dirty = false
	return nil
}
