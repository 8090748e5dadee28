package swipe

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/app"
	"github.com/pairwise/discovery-engine/internal/cache"
	"github.com/pairwise/discovery-engine/internal/db"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/notify"
	"github.com/pairwise/discovery-engine/internal/repository"
	"github.com/pairwise/discovery-engine/internal/utils/retry"
)

// Result is the outcome of recording one swipe. MatchID is set only when
// this call is the one that created the match.
type Result struct {
	SwipeID uint64
	Matched bool
	MatchID uint64
}

// Service records swipe decisions and detects mutual likes.
// It contains the business logic on top of repository and cache layers.
type Service struct {
	appCtx     *app.AppContext
	profiles   *repository.ProfileRepository
	swipes     *repository.SwipeRepository
	matches    *repository.MatchRepository
	registry   *Registry
	propagator *cache.Propagator
	notifier   notify.Notifier
}

// NewSwipeService creates a new swipe service with dependencies from AppContext.
func NewSwipeService(appCtx *app.AppContext, notifier notify.Notifier) *Service {
	matches := repository.NewMatchRepository(appCtx.DB)
	return &Service{
		appCtx:     appCtx,
		profiles:   repository.NewProfileRepository(appCtx.DB),
		swipes:     repository.NewSwipeRepository(appCtx.DB),
		matches:    matches,
		registry:   NewRegistry(matches, appCtx.Logger),
		propagator: cache.NewPropagator(appCtx.RedisCache, appCtx.Logger),
		notifier:   notifier,
	}
}

// RecordSwipe persists a decision and, on a reciprocal like, creates the
// match exactly once.
//
// Behavior:
//   - Resubmission of an identical decision is a no-op success.
//   - Once a match exists for the pair, the swipe is immutable: a changed
//     decision is rejected with a conflict error and the stored row keeps
//     the mutual like.
//   - Matched is true only when this call caused match creation; duplicate
//     swipes after the match return Matched=false without error.
//   - The swiper's feed cache is invalidated unconditionally (the swiped
//     user must never reappear); both users' match/conversation caches are
//     invalidated only when a match is created. All invalidations complete
//     before this method returns.
//   - The match notification is fire-and-forget.
//
// Example:
//
//	svc.RecordSwipe(ctx, 1, 2, db.DecisionLike)
func (s *Service) RecordSwipe(ctx context.Context, actorID, targetID uint64, decision db.Decision) (*Result, error) {
	s.appCtx.Logger.Debug("RecordSwipe called",
		"actor", actorID, "target", targetID, "decision", decision)

	if actorID == 0 || targetID == 0 {
		return nil, svcErr.InvalidArgument("actor and target ids are required")
	}
	if actorID == targetID {
		return nil, svcErr.InvalidArgument("cannot swipe on yourself")
	}
	if !decision.Valid() {
		return nil, svcErr.InvalidArgument("decision must be like, pass or super_like")
	}

	if _, err := s.profiles.GetProfile(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("user %d", targetID)
		}
		return nil, svcErr.Transient(err)
	}

	// A swipe is frozen once a match exists for the pair: overwriting the
	// decision would erase the mutual-like record behind the match. The
	// freeze covers ended matches too, since the pair key is permanent.
	existing, gErr := s.swipes.GetSwipe(ctx, actorID, targetID)
	if gErr != nil && !errors.Is(gErr, gorm.ErrRecordNotFound) {
		return nil, svcErr.Transient(gErr)
	}
	if existing != nil && existing.Decision != decision {
		if _, mErr := s.matches.GetByPairKey(ctx, actorID, targetID); mErr == nil {
			return nil, svcErr.Conflict("swipe %d->%d is immutable once the pair has matched", actorID, targetID)
		} else if !errors.Is(mErr, gorm.ErrRecordNotFound) {
			return nil, svcErr.Transient(mErr)
		}
	}

	// Dropping a swipe silently breaks user-visible state, so the write is
	// retried once and any remaining failure is surfaced as retryable.
	var swipe *db.Swipe
	err := retry.Once(ctx, func() error {
		var upErr error
		swipe, upErr = s.swipes.UpsertSwipe(ctx, actorID, targetID, decision)
		return upErr
	})
	if err != nil {
		return nil, svcErr.Transient(err)
	}

	// Derived activity update; best-effort.
	if err := s.profiles.TouchLastActive(ctx, actorID, time.Now().UTC()); err != nil {
		s.appCtx.Logger.Debug("last-active touch failed", "user_id", actorID, "err", err)
	}

	result := &Result{SwipeID: swipe.ID}

	var created bool
	var match *db.Match
	if decision.Positive() {
		reciprocal, rErr := s.swipes.HasReciprocalLike(ctx, actorID, targetID)
		if rErr != nil {
			return nil, svcErr.Transient(rErr)
		}
		if reciprocal {
			match, created, rErr = s.registry.EnsureMatch(ctx, actorID, targetID)
			if rErr != nil {
				return nil, svcErr.Map(rErr)
			}
		}
	}

	if created {
		// Dispatched before the invalidations: duplicate swipes report
		// matched=false, so nothing would ever resend this event if an
		// invalidation failure aborted the call first.
		s.notifier.MatchCreated(ctx, notify.MatchCreated{
			MatchID:   match.ID,
			UserA:     match.UserAID,
			UserB:     match.UserBID,
			MatchedAt: match.MatchedAt,
		})
	}

	// Invalidations must land before the response is acknowledged, so a
	// client re-reading its feed immediately never sees the swiped user.
	if err := s.propagator.Invalidate(ctx, cache.Event{
		Type:            cache.EventSwipeRecorded,
		AffectedUserIDs: []uint64{actorID},
	}); err != nil {
		return nil, svcErr.Transient(err)
	}

	if created {
		if err := s.propagator.Invalidate(ctx, cache.Event{
			Type:            cache.EventMatchCreated,
			AffectedUserIDs: []uint64{actorID, targetID},
		}); err != nil {
			return nil, svcErr.Transient(err)
		}

		result.Matched = true
		result.MatchID = match.ID
	}

	return result, nil
}

// InvalidateUserCaches drops the given cache scopes for a user. Exposed
// for external hooks, e.g. the profile service's preference-update path.
func (s *Service) InvalidateUserCaches(ctx context.Context, userID uint64, scopes []cache.Scope) error {
	if userID == 0 {
		return svcErr.InvalidArgument("user id is required")
	}
	if len(scopes) == 0 {
		// No explicit scopes: treat as a preference update, which dirties
		// only the feed.
		return s.propagator.Invalidate(ctx, cache.Event{
			Type:            cache.EventPreferenceUpdated,
			AffectedUserIDs: []uint64{userID},
		})
	}
	return s.propagator.InvalidateScopes(ctx, userID, scopes)
}
