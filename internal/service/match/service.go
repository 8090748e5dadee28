package match

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/app"
	"github.com/pairwise/discovery-engine/internal/cache"
	"github.com/pairwise/discovery-engine/internal/db"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/repository"
	"github.com/pairwise/discovery-engine/internal/utils/pagination"
)

// Entry is one row of a user's match list.
type Entry struct {
	MatchID     uint64    `json:"match_id"`
	OtherUserID uint64    `json:"other_user_id"`
	MatchedAt   time.Time `json:"matched_at"`
}

// listSnapshot is the single cached match-list artifact per user; cursor
// pagination slices it, it is never cached per page.
type listSnapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Entries     []Entry   `json:"entries"`
}

// Service serves a user's match list from the cache-aside snapshot and
// handles unmatching.
type Service struct {
	appCtx     *app.AppContext
	matches    *repository.MatchRepository
	propagator *cache.Propagator
}

// NewMatchService creates a new match service with dependencies from AppContext.
func NewMatchService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		matches:    repository.NewMatchRepository(appCtx.DB),
		propagator: cache.NewPropagator(appCtx.RedisCache, appCtx.Logger),
	}
}

// ListMatches returns one page of the user's active matches, newest first.
//
// Behavior:
//   - The full list is cached wholesale under `matches:{userId}`; the
//     cursor walks the snapshot, so consecutive pages come from one
//     consistent view.
//   - Cache failures fall soft to a direct store read.
//
// Example:
//
//	svc.ListMatches(ctx, 42, nil, 20)
func (s *Service) ListMatches(ctx context.Context, userID uint64, token *string, limit int) ([]Entry, *string, error) {
	if limit <= 0 {
		return nil, nil, svcErr.InvalidArgument("limit must be > 0")
	}

	cursor, err := pagination.Decode(deref(token))
	if err != nil {
		return nil, nil, svcErr.InvalidArgument("invalid pagination token")
	}

	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	entries := snap.Entries
	if cursor.MatchID > 0 {
		entries = after(entries, cursor)
	}

	var nextToken *string
	if len(entries) > limit {
		last := entries[limit-1]
		tok, _ := pagination.Encode(pagination.Cursor{
			MatchID:     last.MatchID,
			MatchedUnix: last.MatchedAt.UnixMilli(),
		})
		nextToken = &tok
		entries = entries[:limit]
	}

	return entries, nextToken, nil
}

// Unmatch transitions a match to ended. Idempotent: unmatching an
// already-ended match succeeds without effect.
func (s *Service) Unmatch(ctx context.Context, userID, matchID uint64) error {
	m, err := s.matches.GetByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("match %d", matchID)
	}
	if err != nil {
		return svcErr.Transient(err)
	}
	if !m.Involves(userID) {
		// Not the caller's match; don't reveal that it exists.
		return svcErr.NotFound("match %d", matchID)
	}

	if m.Status == db.MatchStatusActive {
		if err := s.matches.EndMatch(ctx, matchID); err != nil {
			return svcErr.Transient(err)
		}
	}

	if err := s.propagator.Invalidate(ctx, cache.Event{
		Type:            cache.EventMatchEnded,
		AffectedUserIDs: []uint64{m.UserAID, m.UserBID},
	}); err != nil {
		return svcErr.Transient(err)
	}

	s.appCtx.Logger.Info("match ended", "match_id", matchID, "by", userID)
	return nil
}

// snapshot loads the cached match list, rebuilding it on miss.
func (s *Service) snapshot(ctx context.Context, userID uint64) (listSnapshot, error) {
	key := cache.KeyForMatchList(userID)

	raw, err := s.appCtx.RedisCache.Get(ctx, key)
	if err == nil {
		var snap listSnapshot
		if uErr := json.Unmarshal([]byte(raw), &snap); uErr == nil {
			return snap, nil
		}
		_ = s.appCtx.RedisCache.Del(ctx, key)
	} else if !errors.Is(err, cache.ErrMiss) {
		s.appCtx.Logger.Warn("match list cache unavailable, reading store directly",
			"user_id", userID, "err", err)
		return s.load(ctx, userID)
	}

	snap, err := s.load(ctx, userID)
	if err != nil {
		return listSnapshot{}, err
	}
	if payload, mErr := json.Marshal(snap); mErr == nil {
		if sErr := s.appCtx.RedisCache.Set(ctx, key, payload, s.appCtx.Cfg.Match.ListTTL); sErr != nil {
			s.appCtx.Logger.Warn("match list snapshot write failed", "user_id", userID, "err", sErr)
		}
	}
	return snap, nil
}

func (s *Service) load(ctx context.Context, userID uint64) (listSnapshot, error) {
	matches, err := s.matches.ListActiveByUser(ctx, userID)
	if err != nil {
		return listSnapshot{}, err
	}
	entries := make([]Entry, len(matches))
	for i, m := range matches {
		entries[i] = Entry{
			MatchID:     m.ID,
			OtherUserID: m.Other(userID),
			MatchedAt:   m.MatchedAt,
		}
	}
	return listSnapshot{GeneratedAt: time.Now().UTC(), Entries: entries}, nil
}

// after drops entries up to and including the cursor position. Entries are
// ordered by matched_at DESC, id DESC.
func after(entries []Entry, c pagination.Cursor) []Entry {
	for i, e := range entries {
		unix := e.MatchedAt.UnixMilli()
		if unix < c.MatchedUnix || (unix == c.MatchedUnix && e.MatchID < c.MatchID) {
			return entries[i:]
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
