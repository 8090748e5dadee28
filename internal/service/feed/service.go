package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pairwise/discovery-engine/internal/app"
	"github.com/pairwise/discovery-engine/internal/cache"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/scoring"
)

// snapshot is the single cached feed artifact per user. Pagination is a
// pure slice over Entries — there is never a per-page cache key.
type snapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     []RankedCandidate `json:"entries"`
}

// Service owns the cached, ranked feed and its pagination.
//
// Cache-aside on `feed:{userId}`: a hit slices the cached snapshot; a miss
// rebuilds the full ranked list via CandidateFilter + Scorer, writes it
// under TTL, then slices. Concurrent misses for the same user are coalesced
// so N callers trigger exactly one rebuild.
type Service struct {
	appCtx *app.AppContext
	filter *CandidateFilter
	scorer *Scorer
	group  singleflight.Group
}

// NewFeedService creates a new feed service with dependencies from AppContext.
func NewFeedService(appCtx *app.AppContext, provider scoring.Provider) *Service {
	return &Service{
		appCtx: appCtx,
		filter: NewCandidateFilter(appCtx),
		scorer: NewScorer(provider, appCtx.Logger),
	}
}

// GetFeed returns one page of the ranked feed for a user.
//
// Behavior:
//   - offset/limit slice the cached snapshot, clamped to its length, so two
//     back-to-back pages with no intervening invalidation are disjoint,
//     order-consistent views of one ranked list.
//   - Cache transport failures fall soft: the feed is computed directly,
//     uncached, instead of erroring.
func (s *Service) GetFeed(ctx context.Context, userID uint64, offset, limit int) ([]RankedCandidate, error) {
	if offset < 0 {
		return nil, svcErr.InvalidArgument("offset must be >= 0")
	}
	if limit <= 0 {
		return nil, svcErr.InvalidArgument("limit must be > 0")
	}

	key := cache.KeyForFeed(userID)

	raw, err := s.appCtx.RedisCache.Get(ctx, key)
	switch {
	case err == nil:
		var snap snapshot
		if uErr := json.Unmarshal([]byte(raw), &snap); uErr == nil {
			return page(snap.Entries, offset, limit), nil
		}
		// Corrupt entry: drop it and fall through to a rebuild.
		s.appCtx.Logger.Warn("corrupt feed snapshot, rebuilding", "user_id", userID)
		_ = s.appCtx.RedisCache.Del(ctx, key)

	case !errors.Is(err, cache.ErrMiss):
		// Cache store down: serve the feed uncached at the cost of latency.
		s.appCtx.Logger.Warn("feed cache unavailable, computing directly", "user_id", userID, "err", err)
		snap, gErr := s.generate(ctx, userID)
		if gErr != nil {
			return nil, svcErr.Map(gErr)
		}
		return page(snap.Entries, offset, limit), nil
	}

	snap, err := s.rebuild(ctx, userID, key)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return page(snap.Entries, offset, limit), nil
}

// Invalidate drops the user's cached feed; the next read rebuilds it.
func (s *Service) Invalidate(ctx context.Context, userID uint64) error {
	return s.appCtx.RedisCache.Del(ctx, cache.KeyForFeed(userID))
}

// rebuild regenerates the snapshot and caches it. Concurrent callers for
// the same key share one execution and one result.
func (s *Service) rebuild(ctx context.Context, userID uint64, key string) (snapshot, error) {
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		// Detach from the first caller's cancellation: coalesced waiters
		// must not lose the result because one request went away. The
		// rebuild gets its own overall deadline instead.
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.appCtx.Cfg.Feed.Deadline)
		defer cancel()

		snap, err := s.generate(genCtx, userID)
		if err != nil {
			return snapshot{}, err
		}

		payload, mErr := json.Marshal(snap)
		if mErr == nil {
			if sErr := s.appCtx.RedisCache.Set(genCtx, key, payload, s.appCtx.Cfg.Feed.TTL); sErr != nil {
				s.appCtx.Logger.Warn("feed snapshot write failed", "user_id", userID, "err", sErr)
			}
		}
		return snap, nil
	})
	if err != nil {
		return snapshot{}, err
	}
	if shared {
		s.appCtx.Logger.Debug("coalesced feed rebuild", "user_id", userID)
	}
	return v.(snapshot), nil
}

// generate runs the full pipeline: filter the pool, rank it, cap it.
func (s *Service) generate(ctx context.Context, userID uint64) (snapshot, error) {
	requester, pool, err := s.filter.Candidates(ctx, userID)
	if err != nil {
		return snapshot{}, err
	}

	ranked := s.scorer.Rank(ctx, requester, pool, s.appCtx.Cfg.Feed.TopN)

	s.appCtx.Logger.Debug("generated feed snapshot",
		"user_id", userID, "pool", len(pool), "ranked", len(ranked))

	return snapshot{GeneratedAt: time.Now().UTC(), Entries: ranked}, nil
}

// page slices entries[offset : offset+limit], clamped to the list length.
func page(entries []RankedCandidate, offset, limit int) []RankedCandidate {
	if offset >= len(entries) {
		return []RankedCandidate{}
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}
