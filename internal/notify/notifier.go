// Package notify publishes engine events to the external notification
// collaborator. Delivery is fire-and-forget: failures are logged, never
// propagated, and at-least-once is acceptable downstream.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pairwise/discovery-engine/internal/cache"
)

// Channel the match events are published on.
const MatchChannel = "events:matches"

// MatchCreated is the payload sent when a new match comes into existence.
type MatchCreated struct {
	EventID   string    `json:"event_id"`
	MatchID   uint64    `json:"match_id"`
	UserA     uint64    `json:"user_a"`
	UserB     uint64    `json:"user_b"`
	MatchedAt time.Time `json:"matched_at"`
}

// Notifier delivers match events to the notification collaborator.
type Notifier interface {
	MatchCreated(ctx context.Context, ev MatchCreated)
}

// RedisNotifier publishes events on a Redis channel, the same broker the
// chat/notification transport subscribes to.
type RedisNotifier struct {
	cache *cache.RedisCache
	log   *slog.Logger
}

func NewRedisNotifier(c *cache.RedisCache, log *slog.Logger) *RedisNotifier {
	return &RedisNotifier{cache: c, log: log}
}

func (n *RedisNotifier) MatchCreated(ctx context.Context, ev MatchCreated) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Error("encode match event", "match_id", ev.MatchID, "err", err)
		return
	}
	if err := n.cache.Publish(ctx, MatchChannel, payload); err != nil {
		n.log.Warn("publish match event failed", "match_id", ev.MatchID, "err", err)
	}
}

// Noop discards events. Used in tests and when no broker is wired.
type Noop struct{}

func (Noop) MatchCreated(context.Context, MatchCreated) {}
