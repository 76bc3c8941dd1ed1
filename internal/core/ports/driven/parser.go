package driven

import (
	"io"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// RecordParser turns a downloaded payload into records.
type RecordParser interface {
	// Parse fails with domain.ErrInvalidPayload for a malformed payload and
	// domain.ErrEmptyPayload for a well-formed one without contacts.
	Parse(r io.Reader) ([]domain.Record, error)
}

// RecordEncoder writes records as a payload.
type RecordEncoder interface {
	Encode(w io.Writer, records []domain.Record) error
}
