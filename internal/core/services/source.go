package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/future"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService manages source configurations.
type SourceService struct {
	sourceStore driven.SourceStore
	fetchers    driven.FetcherFactory
	latest      future.Latest[driving.ValidationResult]
	now         func() time.Time
}

// NewSourceService creates a new source service.
func NewSourceService(sourceStore driven.SourceStore, fetchers driven.FetcherFactory) *SourceService {
	return &SourceService{
		sourceStore: sourceStore,
		fetchers:    fetchers,
		now:         time.Now,
	}
}

// Add creates a new source configuration.
func (s *SourceService) Add(ctx context.Context, source domain.Source) (*domain.Source, error) {
	if source.ID == "" {
		source.ID = uuid.New().String()
	} else if existing, err := s.sourceStore.Get(ctx, source.ID); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	if source.Type == "" {
		source.Type = domain.SourceTypeHTTP
	}
	if err := s.check(source); err != nil {
		return nil, err
	}

	now := s.now()
	source.CreatedAt = now
	source.UpdatedAt = now
	source.LastImport = nil

	if err := s.sourceStore.Save(ctx, source); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}
	return &source, nil
}

// Get retrieves a source by ID.
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	return s.sourceStore.Get(ctx, id)
}

// List returns all configured sources.
func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	return s.sourceStore.List(ctx)
}

// Update modifies an existing source configuration.
// Changing the URL forgets the last import, so the next run downloads again.
func (s *SourceService) Update(ctx context.Context, source domain.Source) error {
	if source.ID == "" {
		return domain.ErrInvalidInput
	}
	existing, err := s.sourceStore.Get(ctx, source.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	if err := s.check(source); err != nil {
		return err
	}

	source.CreatedAt = existing.CreatedAt
	source.UpdatedAt = s.now()
	if source.Connection.URL == existing.Connection.URL && source.Type == existing.Type {
		source.LastImport = existing.LastImport
	} else {
		source.LastImport = nil
	}
	return s.sourceStore.Save(ctx, source)
}

// Remove deletes a source. Contacts imported from it are kept.
func (s *SourceService) Remove(ctx context.Context, id string) error {
	return s.sourceStore.Delete(ctx, id)
}

// Move changes a source's position in the list.
func (s *SourceService) Move(ctx context.Context, id string, position int) error {
	if position < 0 {
		return fmt.Errorf("%w: negative position", domain.ErrInvalidInput)
	}
	return s.sourceStore.Move(ctx, id, position)
}

// SetEnabled includes or excludes a source from imports.
func (s *SourceService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	source, err := s.sourceStore.Get(ctx, id)
	if err != nil {
		return err
	}
	if source.Enabled == enabled {
		return nil
	}
	source.Enabled = enabled
	source.UpdatedAt = s.now()
	return s.sourceStore.Save(ctx, *source)
}

// SupportedTypes returns the registered source types.
func (s *SourceService) SupportedTypes() []string {
	if s.fetchers == nil {
		return nil
	}
	return s.fetchers.SupportedTypes()
}

// Validate checks the source configuration and that its URL answers.
// Only the most recent call's future settles.
func (s *SourceService) Validate(ctx context.Context, source domain.Source) *future.Future[driving.ValidationResult] {
	return s.latest.Switch(s.reach(ctx, source))
}

func (s *SourceService) reach(ctx context.Context, source domain.Source) *future.Future[driving.ValidationResult] {
	if source.Type == "" {
		source.Type = domain.SourceTypeHTTP
	}
	if err := s.check(source); err != nil {
		return future.Failed[driving.ValidationResult](err)
	}
	fetcher, err := s.fetchers.Create(source)
	if err != nil {
		return future.Failed[driving.ValidationResult](err)
	}
	return future.Map(fetcher.Check(ctx), func(meta driven.ResponseMetadata) driving.ValidationResult {
		return driving.ValidationResult{URL: meta.URL, Stamp: meta.Stamp()}
	})
}

// check validates fields that do not need the network.
func (s *SourceService) check(source domain.Source) error {
	if strings.TrimSpace(source.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if types := s.SupportedTypes(); types != nil && !slices.Contains(types, source.Type) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedType, source.Type)
	}
	if err := source.Connection.Validate(); err != nil {
		return err
	}
	if source.Type == domain.SourceTypeFormLogin && source.Connection.LoginURL == "" {
		return fmt.Errorf("%w: form-login sources need a login url", domain.ErrInvalidInput)
	}
	if source.Type == domain.SourceTypeOAuth2 && (source.Connection.LoginURL == "" || source.Connection.Username == "") {
		return fmt.Errorf("%w: oauth2 sources need a token url and client id", domain.ErrInvalidInput)
	}
	return nil
}
