package cache

import (
	"context"
	"log/slog"
)

// Scope identifies a class of per-user cache keys.
type Scope string

const (
	ScopeFeed             Scope = "feed"
	ScopeMatchList        Scope = "match_list"
	ScopeConversationList Scope = "conversation_list"
)

// EventType identifies the mutation that triggered invalidation.
type EventType string

const (
	EventMatchCreated      EventType = "match_created"
	EventMatchEnded        EventType = "match_ended"
	EventSwipeRecorded     EventType = "swipe_recorded"
	EventPreferenceUpdated EventType = "preference_updated"
)

// Event is an ephemeral invalidation trigger. It is never persisted; it
// exists only to drive fan-out.
type Event struct {
	Type            EventType
	AffectedUserIDs []uint64
}

// fanout is the static mapping from mutation type to the cache scopes it
// dirties for every affected user. Keeping this in one table, rather than
// eviction calls scattered through business logic, is what makes
// invalidation completeness testable.
var fanout = map[EventType][]Scope{
	EventMatchCreated:      {ScopeFeed, ScopeMatchList, ScopeConversationList},
	EventMatchEnded:        {ScopeMatchList, ScopeConversationList},
	EventSwipeRecorded:     {ScopeFeed},
	EventPreferenceUpdated: {ScopeFeed},
}

// Propagator fans out cache invalidation for mutations. Invalidation is
// always "delete the key"; repopulation happens lazily on the next read.
// Deleting an absent key is a no-op, so applying the same event twice, or
// two events touching the same key in either order, converges to the same
// state.
type Propagator struct {
	cache *RedisCache
	log   *slog.Logger
}

func NewPropagator(c *RedisCache, log *slog.Logger) *Propagator {
	return &Propagator{cache: c, log: log}
}

// ScopesFor exposes the fan-out table for a given event type.
func ScopesFor(t EventType) []Scope {
	return fanout[t]
}

// Invalidate deletes every cache key the event dirties. It must complete
// before the mutation's response is acknowledged, so a client re-reading
// immediately never sees a stale entry.
func (p *Propagator) Invalidate(ctx context.Context, ev Event) error {
	scopes, ok := fanout[ev.Type]
	if !ok {
		p.log.Warn("unknown invalidation event type", "type", ev.Type)
		return nil
	}

	keys := make([]string, 0, len(scopes)*len(ev.AffectedUserIDs))
	for _, userID := range ev.AffectedUserIDs {
		for _, s := range scopes {
			keys = append(keys, keyForScope(s, userID))
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := p.cache.Del(ctx, keys...); err != nil {
		p.log.Error("cache invalidation failed", "type", ev.Type, "keys", keys, "err", err)
		return err
	}
	p.log.Debug("invalidated cache keys", "type", ev.Type, "keys", keys)
	return nil
}

// InvalidateScopes deletes the given scopes for one user. Exposed for
// external hooks (e.g. preference updates) that know the scopes directly.
func (p *Propagator) InvalidateScopes(ctx context.Context, userID uint64, scopes []Scope) error {
	keys := make([]string, 0, len(scopes))
	for _, s := range scopes {
		keys = append(keys, keyForScope(s, userID))
	}
	if len(keys) == 0 {
		return nil
	}
	return p.cache.Del(ctx, keys...)
}

func keyForScope(s Scope, userID uint64) string {
	switch s {
	case ScopeMatchList:
		return KeyForMatchList(userID)
	case ScopeConversationList:
		return KeyForConversationList(userID)
	default:
		return KeyForFeed(userID)
	}
}
