// Package domain defines the core business entities for cardsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: A configured remote vCard feed and its last import outcome
//   - CacheStamp: Change-detection token derived from response metadata
//   - Record: A normalised contact (person or organisation)
//   - RecordDifferences: The additive diff between two record sets
//
// The reconciliation engine (ResolveBetween) lives here because it is a pure
// function over domain types.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
