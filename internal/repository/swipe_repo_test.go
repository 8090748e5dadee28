package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairwise/discovery-engine/internal/db"
	"github.com/pairwise/discovery-engine/internal/repository"
)

func TestUpsertSwipe(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	// insert like
	first, err := repo.UpsertSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, db.DecisionLike, first.Decision)
	assert.NotZero(t, first.ID)

	// identical resubmission is a no-op success, same row
	again, err := repo.UpsertSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	// overwrite with pass
	updated, err := repo.UpsertSwipe(ctx, 1, 2, db.DecisionPass)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, db.DecisionPass, updated.Decision)

	// still exactly one row for the ordered pair
	var count int64
	require.NoError(t, dbase.Model(&db.Swipe{}).Where("actor_id = ? AND target_id = ?", 1, 2).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHasReciprocalLike(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	// no swipe at all
	got, err := repo.HasReciprocalLike(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, got)

	// target passed on actor → still no reciprocal like
	_, err = repo.UpsertSwipe(ctx, 2, 1, db.DecisionPass)
	require.NoError(t, err)
	got, err = repo.HasReciprocalLike(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, got)

	// target super-liked actor → reciprocal
	_, err = repo.UpsertSwipe(ctx, 2, 1, db.DecisionSuperLike)
	require.NoError(t, err)
	got, err = repo.HasReciprocalLike(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestListSwipedTargets(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	_, err := repo.UpsertSwipe(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	_, err = repo.UpsertSwipe(ctx, 1, 3, db.DecisionPass)
	require.NoError(t, err)
	_, err = repo.UpsertSwipe(ctx, 9, 1, db.DecisionLike) // other direction, excluded
	require.NoError(t, err)

	ids, err := repo.ListSwipedTargets(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}
