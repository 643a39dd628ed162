package auditlog

import (
	"context"

	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends an entry best-effort. A failed append is logged and
// swallowed so the primary action it describes is never rolled back.
func (s *Service) Record(ctx context.Context, e Entry) {
	if err := s.repo.Append(ctx, &e); err != nil {
		s.logger.Error().Err(err).
			Str("action", e.Action).
			Int64("actor_id", e.ActorID).
			Msg("audit append failed")
	}
}

// ListByActor returns the actor's own entries, newest first.
func (s *Service) ListByActor(ctx context.Context, actorID int64, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByActor(ctx, actorID, limit, offset)
}
