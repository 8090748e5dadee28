package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pairwise/discovery-engine/internal/db"
)

// SwipeRepository provides data access methods for the Swipe model.
// It encapsulates all queries related to like/pass/super-like decisions.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// UpsertSwipe inserts or updates the decision made by actor -> target.
//
// Behavior:
//   - If the (actor_id, target_id) pair exists → the row is updated with the
//     new decision (resubmission of an identical decision is a no-op success).
//   - If it doesn't exist → a new row is inserted.
//   - The unique index on (actor_id, target_id) carries the one-row-per-pair
//     guarantee; rows are never deleted.
//   - The persisted row is read back so callers get the swipe id and
//     timestamps regardless of which branch ran.
//
// Example:
//
//	repo.UpsertSwipe(ctx, 1, 2, db.DecisionLike) // user 1 liked user 2
func (r *SwipeRepository) UpsertSwipe(
	ctx context.Context,
	actorID, targetID uint64,
	decision db.Decision,
) (*db.Swipe, error) {
	swipe := db.Swipe{
		ActorID:  actorID,
		TargetID: targetID,
		Decision: decision,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"decision", "updated_at"}),
		}).
		Create(&swipe).Error
	if err != nil {
		return nil, err
	}

	// Read back: on the conflict branch the in-memory struct does not carry
	// the existing row's id.
	var persisted db.Swipe
	err = r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&persisted).Error
	if err != nil {
		return nil, err
	}
	return &persisted, nil
}

// HasReciprocalLike checks whether target has a positive decision on actor.
//
// Behavior:
//   - Returns true if a swipe row exists where actor_id = targetID,
//     target_id = actorID, and decision is like or super_like.
//   - Used for mutual-like detection on every positive swipe.
func (r *SwipeRepository) HasReciprocalLike(
	ctx context.Context,
	actorID, targetID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.actor_id = ? AND s.target_id = ? AND s.decision IN ?",
			targetID, actorID, []db.Decision{db.DecisionLike, db.DecisionSuperLike}).
		Count(&count).Error
	return count > 0, err
}

// GetSwipe returns the swipe actor -> target, if any.
func (r *SwipeRepository) GetSwipe(
	ctx context.Context,
	actorID, targetID uint64,
) (*db.Swipe, error) {
	var swipe db.Swipe
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&swipe).Error
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

// ListSwipedTargets returns the ids of every user the actor has decided on,
// in either direction of decision. Used by feed tests and admin tooling;
// the candidate query excludes these via NOT EXISTS instead.
func (r *SwipeRepository) ListSwipedTargets(
	ctx context.Context,
	actorID uint64,
) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ?", actorID).
		Pluck("target_id", &ids).Error
	return ids, err
}
