package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// ContactService gives read access to the local contact store.
type ContactService interface {
	// List returns all saved contacts ordered by name.
	List(ctx context.Context) ([]domain.Record, error)

	// Get retrieves a contact by ID.
	Get(ctx context.Context, id string) (*domain.Record, error)

	// Find returns contacts whose name, organisation, email or phone
	// contains query, ignoring case.
	Find(ctx context.Context, query string) ([]domain.Record, error)

	// Export writes the given contacts, or all when ids is empty, as vCard.
	Export(ctx context.Context, w io.Writer, ids ...string) (int, error)
}
