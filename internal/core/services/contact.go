package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
)

// Ensure ContactService implements the interface.
var _ driving.ContactService = (*ContactService)(nil)

// ContactService gives read access to saved contacts.
type ContactService struct {
	reader  driven.ContactReader
	encoder driven.RecordEncoder
}

// NewContactService creates a new contact service.
func NewContactService(reader driven.ContactReader, encoder driven.RecordEncoder) *ContactService {
	return &ContactService{reader: reader, encoder: encoder}
}

// List returns all saved contacts.
func (s *ContactService) List(ctx context.Context) ([]domain.Record, error) {
	return s.reader.List(ctx)
}

// Get retrieves a contact by ID.
func (s *ContactService) Get(ctx context.Context, id string) (*domain.Record, error) {
	return s.reader.Get(ctx, id)
}

// Find returns contacts matching query.
func (s *ContactService) Find(ctx context.Context, query string) ([]domain.Record, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	all, err := s.reader.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []domain.Record
	for _, r := range all {
		if matchesQuery(r, query) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func matchesQuery(r domain.Record, query string) bool {
	candidates := []string{r.DisplayName(), r.Value(domain.FieldNickname), r.Value(domain.FieldOrganization)}
	for _, f := range []domain.MultiField{domain.FieldEmails, domain.FieldPhones} {
		for _, v := range r.Values(f) {
			candidates = append(candidates, v.Value)
		}
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), query) {
			return true
		}
	}
	return false
}

// Export writes contacts as vCard and returns how many were written.
func (s *ContactService) Export(ctx context.Context, w io.Writer, ids ...string) (int, error) {
	if s.encoder == nil {
		return 0, fmt.Errorf("export: encoder not configured")
	}
	var records []domain.Record
	if len(ids) == 0 {
		all, err := s.reader.List(ctx)
		if err != nil {
			return 0, err
		}
		records = all
	} else {
		for _, id := range ids {
			r, err := s.reader.Get(ctx, id)
			if err != nil {
				return 0, fmt.Errorf("contact %s: %w", id, err)
			}
			records = append(records, *r)
		}
	}
	if err := s.encoder.Encode(w, records); err != nil {
		return 0, fmt.Errorf("encode contacts: %w", err)
	}
	return len(records), nil
}
