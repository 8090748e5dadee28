package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/db"
	"github.com/pairwise/discovery-engine/internal/repository"
)

func seedUser(t *testing.T, gdb *gorm.DB, id uint64, gender string, age int, opts ...func(*db.User)) {
	t.Helper()
	u := db.User{
		ID:           id,
		Username:     fmt.Sprintf("user%d", id),
		Email:        fmt.Sprintf("u%d@test.com", id),
		PasswordHash: "x",
		Gender:       gender,
		BirthDate:    time.Now().UTC().AddDate(-age, 0, -1),
		Active:       true,
		LastActiveAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&u)
	}
	// GORM replaces zero-value fields that carry a column default on
	// Create (Active=false becomes true), so write the intended value
	// explicitly after the insert.
	wantActive := u.Active
	require.NoError(t, gdb.Create(&u).Error)
	require.NoError(t, gdb.Model(&db.User{}).Where("id = ?", id).UpdateColumn("active", wantActive).Error)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	seedUser(t, dbase, 1, "female", 30)
	seedUser(t, dbase, 2, "male", 30, func(u *db.User) { u.Deleted = true })

	got, err := repo.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ID)

	// soft-deleted users are absent
	_, err = repo.GetProfile(ctx, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.GetProfile(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListCandidates(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)
	swipes := repository.NewSwipeRepository(dbase)

	seedUser(t, dbase, 1, "male", 30) // requester
	seedUser(t, dbase, 2, "female", 28)
	seedUser(t, dbase, 3, "female", 45)                                         // outside age window
	seedUser(t, dbase, 4, "male", 30)                                           // wrong gender for interest
	seedUser(t, dbase, 5, "female", 30, func(u *db.User) { u.Active = false })  // inactive
	seedUser(t, dbase, 6, "female", 30, func(u *db.User) { u.Deleted = true })  // deleted
	seedUser(t, dbase, 7, "female", 30)                                         // already swiped
	_, err := swipes.UpsertSwipe(ctx, 1, 7, db.DecisionPass)
	require.NoError(t, err)

	window := repository.Window{AgeMin: 25, AgeMax: 35, Interest: "female"}
	got, err := repo.ListCandidates(ctx, 1, window, 100)
	require.NoError(t, err)

	ids := make([]uint64, len(got))
	for i, u := range got {
		ids[i] = u.ID
	}
	assert.ElementsMatch(t, []uint64{2}, ids)
}

func TestListCandidates_EveryoneInterest(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	seedUser(t, dbase, 1, "male", 30)
	seedUser(t, dbase, 2, "female", 28)
	seedUser(t, dbase, 3, "male", 32)

	got, err := repo.ListCandidates(ctx, 1, repository.Window{AgeMin: 18, AgeMax: 99, Interest: "everyone"}, 100)
	require.NoError(t, err)
	assert.Len(t, got, 2, "both genders eligible, requester excluded")
}

func TestTouchLastActive(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	seedUser(t, dbase, 1, "male", 30, func(u *db.User) {
		u.LastActiveAt = time.Now().UTC().Add(-48 * time.Hour)
	})

	ts := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.TouchLastActive(ctx, 1, ts))

	got, err := repo.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.WithinDuration(t, ts, got.LastActiveAt, time.Second)
}
