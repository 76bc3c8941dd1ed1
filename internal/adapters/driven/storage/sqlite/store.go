package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/cardsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "cardsync.db"

// Store is a SQLite database providing the store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store in dataDir.
// If dataDir is empty, defaults to ~/.cardsync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".cardsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while an import holds the write transaction.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SourceStore returns a SourceStore backed by this store.
func (s *Store) SourceStore() driven.SourceStore {
	return &sourceStore{store: s}
}

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// Contacts returns the contact database backed by this store.
func (s *Store) Contacts() *ContactBook {
	return &ContactBook{store: s}
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Source Store ====================

// sourceStore implements driven.SourceStore.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

// connectionJSON is the stored form of domain.Connection.
type connectionJSON struct {
	URL      string            `json:"url"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Token    string            `json:"token,omitempty"`
	LoginURL string            `json:"login_url,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// importJSON is the stored form of domain.ImportResult.
type importJSON struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	ImportedAt   time.Time `json:"imported_at"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
}

const sourceColumns = `id, type, name, connection, enabled, last_import, created_at, updated_at`

// Save stores or updates a source. New sources go to the end of the order.
func (s *sourceStore) Save(ctx context.Context, source domain.Source) error {
	conn := source.Connection
	connJSON, err := json.Marshal(connectionJSON{
		URL:      conn.URL,
		Username: conn.Username,
		Password: conn.Password,
		Token:    conn.Token,
		LoginURL: conn.LoginURL,
		Params:   conn.Params,
	})
	if err != nil {
		return fmt.Errorf("marshalling connection: %w", err)
	}

	var lastImport any
	if r := source.LastImport; r != nil {
		rec := importJSON{Success: r.Success, Message: r.Message, ImportedAt: r.ImportedAt}
		if r.Stamp != nil {
			rec.ETag, rec.LastModified = r.Stamp.ETag, r.Stamp.LastModified
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshalling last import: %w", err)
		}
		lastImport = string(data)
	}

	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (id, type, name, connection, enabled, last_import, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM sources), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			connection = excluded.connection,
			enabled = excluded.enabled,
			last_import = excluded.last_import,
			updated_at = excluded.updated_at
	`, source.ID, source.Type, source.Name, string(connJSON), boolToInt(source.Enabled),
		lastImport, source.CreatedAt, source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Get retrieves a source by ID.
func (s *sourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// Delete removes a source. Deleting an unknown source is not an error.
func (s *sourceStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	return nil
}

// List returns all configured sources in order.
func (s *sourceStore) List(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY position, created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source //nolint:prealloc // size unknown from query
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}

	return sources, nil
}

// Move places a source at position, clamped to the list bounds, and
// renumbers the rest.
func (s *sourceStore) Move(ctx context.Context, id string, position int) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning move: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	rows, err := tx.QueryContext(ctx, "SELECT id FROM sources ORDER BY position, created_at")
	if err != nil {
		return fmt.Errorf("querying source order: %w", err)
	}
	var ids []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			rows.Close()
			return fmt.Errorf("scanning source order: %w", err)
		}
		ids = append(ids, sid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating source order: %w", err)
	}

	from := slices.Index(ids, id)
	if from < 0 {
		return domain.ErrNotFound
	}
	ids = slices.Delete(ids, from, from+1)
	ids = slices.Insert(ids, max(0, min(position, len(ids))), id)

	for i, sid := range ids {
		if _, err := tx.ExecContext(ctx, "UPDATE sources SET position = ? WHERE id = ?", i, sid); err != nil {
			return fmt.Errorf("updating source position: %w", err)
		}
	}
	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	var connJSON string
	var enabled int
	var lastImport sql.NullString
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&source.ID, &source.Type, &source.Name, &connJSON, &enabled,
		&lastImport, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}

	var conn connectionJSON
	if err := json.Unmarshal([]byte(connJSON), &conn); err != nil {
		return nil, fmt.Errorf("unmarshalling connection: %w", err)
	}
	source.Connection = domain.Connection{
		URL:      conn.URL,
		Username: conn.Username,
		Password: conn.Password,
		Token:    conn.Token,
		LoginURL: conn.LoginURL,
		Params:   conn.Params,
	}
	source.Enabled = enabled == 1

	if lastImport.Valid && lastImport.String != "" {
		var rec importJSON
		if err := json.Unmarshal([]byte(lastImport.String), &rec); err != nil {
			return nil, fmt.Errorf("unmarshalling last import: %w", err)
		}
		source.LastImport = &domain.ImportResult{
			Success:    rec.Success,
			Message:    rec.Message,
			ImportedAt: rec.ImportedAt,
			Stamp:      domain.NewCacheStamp(rec.ETag, rec.LastModified),
		}
	}

	if createdAt.Valid {
		source.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		source.UpdatedAt = updatedAt.Time
	}
	return &source, nil
}

// ==================== Helper Functions ====================

// formatNullableTime formats a time as RFC3339, or returns nil for the zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

// parseNullableTime parses a nullable RFC3339 string.
// Returns the zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
