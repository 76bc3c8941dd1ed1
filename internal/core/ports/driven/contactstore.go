package driven

import (
	"context"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// ContactStore is the local contact database.
//
// Mutations are buffered until Save. Mutators report rejected values as
// *domain.StoreWriteError.
type ContactStore interface {
	// LoadAll returns every record currently in the store, including unsaved changes.
	LoadAll(ctx context.Context) ([]domain.Record, error)

	// AddAll inserts new records.
	AddAll(ctx context.Context, records []domain.Record) error

	// SetValue sets a single-value field of an existing record.
	SetValue(ctx context.Context, recordID string, field domain.SingleField, value string) error

	// AddValues appends entries to a multi-value field of an existing record.
	AddValues(ctx context.Context, recordID string, field domain.MultiField, values []domain.LabeledValue) error

	// SetImage sets the photo of an existing record.
	SetImage(ctx context.Context, recordID string, data []byte) error

	// HasPendingChanges reports whether there are unsaved mutations.
	HasPendingChanges() bool

	// Save persists pending mutations.
	Save(ctx context.Context) error

	// Close discards unsaved mutations and releases the handle.
	Close() error
}

// ContactStoreOpener acquires a contact store handle.
type ContactStoreOpener interface {
	Open(ctx context.Context) (ContactStore, error)
}

// ContactReader provides read access to saved contacts.
type ContactReader interface {
	// List returns saved records ordered by name.
	List(ctx context.Context) ([]domain.Record, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.Record, error)

	// Count returns the number of saved records.
	Count(ctx context.Context) (int, error)
}
