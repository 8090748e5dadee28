package swipe

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pairwise/discovery-engine/internal/db"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/repository"
)

// Registry guarantees exactly-once match creation for an unordered pair.
//
// Correctness derives from the store-level unique index on the canonical
// pair key, not from application locking, so it holds across any number of
// concurrent service replicas: the first writer wins and every loser reads
// back the winner's row.
type Registry struct {
	matches *repository.MatchRepository
	log     *slog.Logger
}

func NewRegistry(matches *repository.MatchRepository, log *slog.Logger) *Registry {
	return &Registry{matches: matches, log: log}
}

// EnsureMatch returns the match for the pair, creating it if absent.
// created is true for exactly one of possibly-concurrent callers. An ended
// match is returned as existing and never re-activated.
func (r *Registry) EnsureMatch(ctx context.Context, userA, userB uint64) (*db.Match, bool, error) {
	match, created, err := r.matches.InsertMatchIfAbsent(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, svcErr.ErrInvariantViolation) {
			// Store-level bug: the pair key conflicted yet resolves to no row.
			r.log.Error("match pair key invariant violated",
				"user_a", userA, "user_b", userB, "err", err)
		}
		return nil, false, err
	}
	if created {
		r.log.Info("match created",
			"match_id", match.ID, "user_a", match.UserAID, "user_b", match.UserBID)
	}
	return match, created, nil
}
