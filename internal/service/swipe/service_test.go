package swipe_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/app"
	"github.com/pairwise/discovery-engine/internal/cache"
	"github.com/pairwise/discovery-engine/internal/config"
	"github.com/pairwise/discovery-engine/internal/db"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/notify"
	"github.com/pairwise/discovery-engine/internal/service/swipe"
)

//
// Test helpers
//

// recordingNotifier captures match events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.MatchCreated
}

func (n *recordingNotifier) MatchCreated(_ context.Context, ev notify.MatchCreated) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// setupService wires an isolated swipe service over in-memory SQLite and
// miniredis, with three seeded users.
func setupService(t *testing.T) (*swipe.Service, *recordingNotifier, *miniredis.Miniredis, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(&db.User{}, &db.Preference{}, &db.Swipe{}, &db.Match{}))

	for i := uint64(1); i <= 3; i++ {
		gender := "male"
		if i > 1 {
			gender = "female"
		}
		require.NoError(t, dbase.Create(&db.User{
			ID:           i,
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("u%d@test.com", i),
			PasswordHash: "x",
			Gender:       gender,
			BirthDate:    time.Now().UTC().AddDate(-30, 0, -1),
			Active:       true,
		}).Error)
	}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &recordingNotifier{}

	appCtx := app.New(dbase, redisCache, log, cfg)
	return swipe.NewSwipeService(appCtx, notifier), notifier, mr, dbase
}

func fillScopes(t *testing.T, mr *miniredis.Miniredis, userIDs ...uint64) {
	t.Helper()
	for _, id := range userIDs {
		require.NoError(t, mr.Set(cache.KeyForFeed(id), "x"))
		require.NoError(t, mr.Set(cache.KeyForMatchList(id), "x"))
		require.NoError(t, mr.Set(cache.KeyForConversationList(id), "x"))
	}
}

//
// Tests
//

// TestRecordSwipe_MutualLikeCreatesMatch walks the canonical flow: A likes
// B (no match), B likes A (match created, reported on the second call),
// then a duplicate like reports matched=false without error.
func TestRecordSwipe_MutualLikeCreatesMatch(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _, dbase := setupService(t)

	res, err := svc.RecordSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.NotZero(t, res.SwipeID)

	res, err = svc.RecordSwipe(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)
	assert.True(t, res.Matched, "reciprocal like must create the match")
	assert.NotZero(t, res.MatchID)

	// duplicate like after the match: no-op success, matched=false
	res, err = svc.RecordSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.False(t, res.Matched, "only the creating call reports matched=true")

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, notifier.count(), "exactly one notification per match")
}

// TestRecordSwipe_SuperLikeCountsAsLike checks super_like participates in
// mutual-like detection.
func TestRecordSwipe_SuperLikeCountsAsLike(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 2, db.DecisionSuperLike)
	require.NoError(t, err)

	res, err := svc.RecordSwipe(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

// TestRecordSwipe_PassNeverMatches ensures a pass never triggers match
// detection even when the other side liked.
func TestRecordSwipe_PassNeverMatches(t *testing.T) {
	ctx := context.Background()
	svc, _, _, dbase := setupService(t)

	_, err := svc.RecordSwipe(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)

	res, err := svc.RecordSwipe(ctx, 1, 2, db.DecisionPass)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Zero(t, count)
}

// TestRecordSwipe_ImmutableAfterMatch: once a pair has matched, a changed
// decision is rejected and the stored swipe keeps the mutual like. Before
// any match exists the decision may still change freely.
func TestRecordSwipe_ImmutableAfterMatch(t *testing.T) {
	ctx := context.Background()
	svc, _, _, dbase := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	res, err := svc.RecordSwipe(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)
	require.True(t, res.Matched)

	_, err = svc.RecordSwipe(ctx, 1, 2, db.DecisionPass)
	assert.ErrorIs(t, err, svcErr.ErrConflict)

	var stored db.Swipe
	require.NoError(t, dbase.Where("actor_id = ? AND target_id = ?", 1, 2).First(&stored).Error)
	assert.Equal(t, db.DecisionLike, stored.Decision, "matched swipe must keep the mutual like")

	// identical resubmission is still a no-op success
	res, err = svc.RecordSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	// an unmatched pair is not frozen
	_, err = svc.RecordSwipe(ctx, 1, 3, db.DecisionPass)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, 1, 3, db.DecisionLike)
	require.NoError(t, err)
}

// TestRecordSwipe_NotifiesDespiteInvalidationFailure: with the cache store
// down the call errors on invalidation, but a created match still produces
// its single notification — duplicates report matched=false, so nothing
// would ever resend it.
func TestRecordSwipe_NotifiesDespiteInvalidationFailure(t *testing.T) {
	ctx := context.Background()
	svc, notifier, mr, dbase := setupService(t)
	mr.Close()

	_, err := svc.RecordSwipe(ctx, 1, 2, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrTransientStore)

	_, err = svc.RecordSwipe(ctx, 2, 1, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrTransientStore)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, notifier.count())
}

// TestRecordSwipe_ConcurrentReciprocalLikes hammers both directions of a
// pair from concurrent goroutines: exactly one match row, at most one
// matched=true, one notification.
func TestRecordSwipe_ConcurrentReciprocalLikes(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _, dbase := setupService(t)

	const rounds = 20
	var wg sync.WaitGroup
	matchedTrue := make(chan uint64, rounds)

	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor, target := uint64(1), uint64(2)
			if i%2 == 0 {
				actor, target = target, actor
			}
			res, err := svc.RecordSwipe(ctx, actor, target, db.DecisionLike)
			assert.NoError(t, err)
			if res != nil && res.Matched {
				matchedTrue <- res.MatchID
			}
		}(i)
	}
	wg.Wait()
	close(matchedTrue)

	wins := 0
	for range matchedTrue {
		wins++
	}
	assert.LessOrEqual(t, wins, 1, "at most one call may report creation")

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Where("status = ?", db.MatchStatusActive).Count(&count).Error)
	assert.Equal(t, int64(1), count, "exactly one active match for the pair")
	assert.LessOrEqual(t, notifier.count(), 1)
}

// TestRecordSwipe_InvalidationCompleteness asserts the cache keys are
// gone immediately after the swipe response, per the fan-out table:
// swiper's feed always, everything for both users on match creation.
func TestRecordSwipe_InvalidationCompleteness(t *testing.T) {
	ctx := context.Background()
	svc, _, mr, _ := setupService(t)

	// plain swipe: only the actor's feed is dropped
	fillScopes(t, mr, 1, 2)
	_, err := svc.RecordSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)

	assert.False(t, mr.Exists(cache.KeyForFeed(1)))
	assert.True(t, mr.Exists(cache.KeyForMatchList(1)))
	assert.True(t, mr.Exists(cache.KeyForFeed(2)), "no match yet, target feed untouched")

	// match-creating swipe: all scopes for both users are dropped
	fillScopes(t, mr, 1, 2)
	res, err := svc.RecordSwipe(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)
	require.True(t, res.Matched)

	for _, id := range []uint64{1, 2} {
		assert.False(t, mr.Exists(cache.KeyForFeed(id)))
		assert.False(t, mr.Exists(cache.KeyForMatchList(id)))
		assert.False(t, mr.Exists(cache.KeyForConversationList(id)))
	}
}

func TestRecordSwipe_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 1, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.RecordSwipe(ctx, 0, 2, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.RecordSwipe(ctx, 1, 2, db.Decision("maybe"))
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = svc.RecordSwipe(ctx, 1, 999, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

// TestRecordSwipe_IdempotentResubmission re-sends the identical decision
// and expects the same swipe row back.
func TestRecordSwipe_IdempotentResubmission(t *testing.T) {
	ctx := context.Background()
	svc, _, _, dbase := setupService(t)

	first, err := svc.RecordSwipe(ctx, 1, 3, db.DecisionPass)
	require.NoError(t, err)

	second, err := svc.RecordSwipe(ctx, 1, 3, db.DecisionPass)
	require.NoError(t, err)
	assert.Equal(t, first.SwipeID, second.SwipeID)

	var count int64
	require.NoError(t, dbase.Model(&db.Swipe{}).Where("actor_id = ? AND target_id = ?", 1, 3).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInvalidateUserCaches(t *testing.T) {
	ctx := context.Background()
	svc, _, mr, _ := setupService(t)

	fillScopes(t, mr, 1)

	// explicit scopes
	require.NoError(t, svc.InvalidateUserCaches(ctx, 1, []cache.Scope{cache.ScopeMatchList}))
	assert.True(t, mr.Exists(cache.KeyForFeed(1)))
	assert.False(t, mr.Exists(cache.KeyForMatchList(1)))

	// no scopes → preference-update semantics, feed only
	require.NoError(t, svc.InvalidateUserCaches(ctx, 1, nil))
	assert.False(t, mr.Exists(cache.KeyForFeed(1)))
	assert.True(t, mr.Exists(cache.KeyForConversationList(1)))
}
