// Package sqlite provides a SQLite-based implementation of the driven store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements several store interfaces
// through a single database connection:
//
//   - SourceStore: Source configuration in user-defined order
//   - ContactBook: The local contact database (ContactStoreOpener and ContactReader)
//   - SchedulerStore: Background task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.cardsync/data/cardsync.db
//
// # Transactions
//
// A contact store handle opens its transaction on the first mutation and keeps
// it until Save commits or Close rolls back, so readers never observe a
// partially applied import.
package sqlite
