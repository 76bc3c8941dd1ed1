package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
	"github.com/custodia-labs/cardsync/internal/future"
	"github.com/custodia-labs/cardsync/internal/logger"
)

// StampChecker decides whether a source's remote payload changed since its
// last successful import. It only reads from the network.
type StampChecker struct{}

// CheckRemote requests the payload metadata through fetcher and compares
// the derived stamp with the one stored on the source.
// Failures are wrapped with domain.ErrStampCheckFailed.
func (StampChecker) CheckRemote(
	ctx context.Context,
	source domain.Source,
	fetcher driven.Fetcher,
) *future.Future[domain.FetchDecision] {
	logger.Info("vCard source %s: checking if remote has changed…", source.Name)

	checked := future.MapError(fetcher.Check(ctx), func(err error) error {
		return fmt.Errorf("%w: %w", domain.ErrStampCheckFailed, err)
	})

	return future.Map(checked, func(meta driven.ResponseMetadata) domain.FetchDecision {
		previous := source.Stamp()
		decision := domain.DecideFetch(previous, meta.Stamp())
		if decision.Updated {
			logger.Info("vCard source %s: remote has changed (%s)", source.Name, decision.Stamp)
		} else {
			logger.Info("vCard source %s: remote hasn't changed (%s)", source.Name, previous)
		}
		return decision
	})
}
