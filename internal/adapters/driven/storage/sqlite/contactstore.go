package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
)

var (
	_ driven.ContactStoreOpener = (*ContactBook)(nil)
	_ driven.ContactReader      = (*ContactBook)(nil)
	_ driven.ContactStore       = (*contactHandle)(nil)
)

// errHandleClosed is returned by a handle used after Close.
var errHandleClosed = errors.New("contact store handle closed")

// contactData is the stored form of a record's fields.
type contactData struct {
	Single map[domain.SingleField]string               `json:"single,omitempty"`
	Multi  map[domain.MultiField][]domain.LabeledValue `json:"multi,omitempty"`
	Extra  map[string][]string                         `json:"extra,omitempty"`
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const contactColumns = `id, kind, data, image`

// ContactBook is the contact database.
type ContactBook struct {
	store *Store
}

// Open returns a handle whose mutations stay invisible to other readers until Save.
func (b *ContactBook) Open(_ context.Context) (driven.ContactStore, error) {
	return &contactHandle{store: b.store}, nil
}

// List returns saved records ordered by display name.
func (b *ContactBook) List(ctx context.Context) ([]domain.Record, error) {
	return queryContacts(ctx, b.store.db, `SELECT `+contactColumns+` FROM contacts ORDER BY display_name COLLATE NOCASE, id`)
}

// Get retrieves a saved record by ID.
func (b *ContactBook) Get(ctx context.Context, id string) (*domain.Record, error) {
	return getContact(ctx, b.store.db, id)
}

// Count returns the number of saved records.
func (b *ContactBook) Count(ctx context.Context) (int, error) {
	var n int
	if err := b.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting contacts: %w", err)
	}
	return n, nil
}

// contactHandle runs its mutations in one transaction, begun on first use.
type contactHandle struct {
	mu     sync.Mutex
	store  *Store
	tx     *sql.Tx
	dirty  bool
	closed bool
}

// conn returns the open transaction, or the database when none is open.
func (h *contactHandle) conn() querier {
	if h.tx != nil {
		return h.tx
	}
	return h.store.db
}

func (h *contactHandle) begin(ctx context.Context) (*sql.Tx, error) {
	if h.tx != nil {
		return h.tx, nil
	}
	// The transaction lives until Save or Close, not until ctx ends.
	tx, err := h.store.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("beginning contact transaction: %w", err)
	}
	h.tx = tx
	return tx, nil
}

func (h *contactHandle) LoadAll(ctx context.Context) ([]domain.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errHandleClosed
	}
	return queryContacts(ctx, h.conn(), `SELECT `+contactColumns+` FROM contacts ORDER BY rowid`)
}

func (h *contactHandle) AddAll(ctx context.Context, records []domain.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if !r.Kind.IsValid() {
			return &domain.StoreWriteError{Field: "kind", RecordName: r.DisplayName(), Err: domain.ErrInvalidInput}
		}
	}

	tx, err := h.begin(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, r := range records {
		r.ID = uuid.NewString()
		if err := insertContact(ctx, tx, r, now); err != nil {
			return &domain.StoreWriteError{Field: "record", RecordName: r.DisplayName(), Err: err}
		}
	}
	h.dirty = true
	return nil
}

// mutate applies fn to the record with id inside the transaction.
func (h *contactHandle) mutate(ctx context.Context, id, field string, fn func(*domain.Record) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	tx, err := h.begin(ctx)
	if err != nil {
		return err
	}

	r, err := getContact(ctx, tx, id)
	if err != nil {
		return &domain.StoreWriteError{Field: field, RecordID: id, Err: err}
	}
	if err := fn(r); err != nil {
		return &domain.StoreWriteError{Field: field, RecordID: id, RecordName: r.DisplayName(), Err: err}
	}
	if err := updateContact(ctx, tx, *r, time.Now().UTC()); err != nil {
		return &domain.StoreWriteError{Field: field, RecordID: id, RecordName: r.DisplayName(), Err: err}
	}
	h.dirty = true
	return nil
}

func (h *contactHandle) SetValue(ctx context.Context, id string, field domain.SingleField, value string) error {
	return h.mutate(ctx, id, string(field), func(r *domain.Record) error {
		return r.SetValue(field, value)
	})
}

func (h *contactHandle) AddValues(ctx context.Context, id string, field domain.MultiField, values []domain.LabeledValue) error {
	return h.mutate(ctx, id, string(field), func(r *domain.Record) error {
		return r.AddValues(field, values)
	})
}

func (h *contactHandle) SetImage(ctx context.Context, id string, data []byte) error {
	return h.mutate(ctx, id, "image", func(r *domain.Record) error {
		return r.SetImage(data)
	})
}

func (h *contactHandle) HasPendingChanges() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirty
}

// Save commits the transaction. A later mutation starts a new one.
func (h *contactHandle) Save(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	if h.tx == nil {
		return nil
	}
	tx := h.tx
	h.tx = nil
	h.dirty = false
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing contacts: %w", err)
	}
	return nil
}

// Close rolls back anything not saved.
func (h *contactHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.dirty = false
	if h.tx == nil {
		return nil
	}
	tx := h.tx
	h.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back contacts: %w", err)
	}
	return nil
}

func marshalContact(r domain.Record) (string, error) {
	data, err := json.Marshal(contactData{Single: r.Single, Multi: r.Multi, Extra: r.Extra})
	if err != nil {
		return "", fmt.Errorf("marshalling contact: %w", err)
	}
	return string(data), nil
}

func insertContact(ctx context.Context, q querier, r domain.Record, now time.Time) error {
	data, err := marshalContact(r)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO contacts (id, kind, display_name, data, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.Kind), r.DisplayName(), data, r.ImageData(), now, now)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}

func updateContact(ctx context.Context, q querier, r domain.Record, now time.Time) error {
	data, err := marshalContact(r)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		UPDATE contacts SET display_name = ?, data = ?, image = ?, updated_at = ? WHERE id = ?
	`, r.DisplayName(), data, r.ImageData(), now, r.ID)
	if err != nil {
		return fmt.Errorf("updating contact: %w", err)
	}
	return nil
}

func getContact(ctx context.Context, q querier, id string) (*domain.Record, error) {
	row := q.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	r, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return r, err
}

func queryContacts(ctx context.Context, q querier, query string) ([]domain.Record, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contacts: %w", err)
	}
	return records, nil
}

func scanContact(row rowScanner) (*domain.Record, error) {
	var id, kind, data string
	var image []byte
	if err := row.Scan(&id, &kind, &data, &image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning contact: %w", err)
	}

	var fields contactData
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshalling contact %s: %w", id, err)
	}
	r := domain.NewRecord(domain.Kind(kind))
	r.ID = id
	for k, v := range fields.Single {
		r.Single[k] = v
	}
	for k, v := range fields.Multi {
		r.Multi[k] = v
	}
	r.Extra = fields.Extra
	if len(image) > 0 {
		r.Image = image
	}
	return &r, nil
}
