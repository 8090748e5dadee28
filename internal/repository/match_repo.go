package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pairwise/discovery-engine/internal/db"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
)

// MatchRepository provides data access methods for the Match model.
//
// The unique index on pair_key is the sole mechanism preventing duplicate
// matches: creation is "insert, and on conflict read back", never an
// application-level check-then-insert.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// InsertMatchIfAbsent atomically creates the match for an unordered pair.
//
// Behavior:
//   - Computes the canonical pair key and inserts with ON CONFLICT DO NOTHING
//     on pair_key.
//   - Exactly one of possibly-concurrent callers observes created=true; all
//     others read back the winner's row and observe created=false.
//   - A read-back miss right after a conflicting insert means the store
//     broke its uniqueness guarantee and is reported as an invariant
//     violation.
//
// Example:
//
//	repo.InsertMatchIfAbsent(ctx, 7, 3) // same row as (3, 7)
func (r *MatchRepository) InsertMatchIfAbsent(
	ctx context.Context,
	userA, userB uint64,
) (*db.Match, bool, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	pairKey := db.PairKey(userA, userB)

	match := db.Match{
		PairKey: pairKey,
		UserAID: userA,
		UserBID: userB,
		Status:  db.MatchStatusActive,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		// Some drivers surface the race as a duplicate-key error instead of
		// swallowing it; treat that as "already exists" too.
		if !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, false, res.Error
		}
	} else if res.RowsAffected == 1 {
		return &match, true, nil
	}

	// Lost the race: read back the winner.
	var existing db.Match
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", pairKey).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, svcErr.Invariant("pair key %s conflicted on insert but has no row", pairKey)
	}
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// GetByID returns the match with the given id.
func (r *MatchRepository) GetByID(ctx context.Context, matchID uint64) (*db.Match, error) {
	var match db.Match
	err := r.db.WithContext(ctx).First(&match, matchID).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// GetByPairKey returns the match for an unordered pair, if any.
func (r *MatchRepository) GetByPairKey(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", db.PairKey(userA, userB)).
		First(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListActiveByUser returns all active matches a user participates in,
// newest first. The full list is small by design (bounded by how many
// mutual likes a user accumulates) and is cached wholesale by the match
// service.
func (r *MatchRepository) ListActiveByUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, db.MatchStatusActive).
		Order("matched_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// EndMatch transitions an active match to ended. Ending an already-ended
// match is a no-op success; the record is never hard-deleted.
func (r *MatchRepository) EndMatch(ctx context.Context, matchID uint64) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND status = ?", matchID, db.MatchStatusActive).
		Updates(map[string]interface{}{
			"status":   db.MatchStatusEnded,
			"ended_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either absent or already ended; distinguish for the caller.
		var match db.Match
		if err := r.db.WithContext(ctx).First(&match, matchID).Error; err != nil {
			return err
		}
	}
	return nil
}
