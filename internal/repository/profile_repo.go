package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/db"
)

// Window is the preference window a candidate query is filtered by.
// A zero MaxDistanceKm means unlimited distance; distance itself is
// applied by the caller (haversine over lat/lon), not by SQL.
type Window struct {
	AgeMin        int
	AgeMax        int
	MaxDistanceKm int
	Interest      string // "male", "female" or "everyone"
}

// ProfileRepository provides data access methods for users and their
// preference records.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// GetProfile returns the user with the given id.
//
// Behavior:
//   - Soft-deleted users are treated as absent (gorm.ErrRecordNotFound).
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uint64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", userID, false).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPreferences returns the preference record for a user.
//
// Behavior:
//   - Returns gorm.ErrRecordNotFound when no record exists; the caller
//     decides the fallback window (the feed service substitutes the
//     configured defaults rather than emptying the feed).
func (r *ProfileRepository) GetPreferences(ctx context.Context, userID uint64) (*db.Preference, error) {
	var pref db.Preference
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// ListCandidates returns the eligible candidate pool for a user.
//
// Behavior:
//   - Excludes the requester, inactive and soft-deleted users.
//   - Excludes anyone the requester has already swiped on (either decision),
//     via NOT EXISTS on the swipes table.
//   - Applies the age window against birth_date and the gender interest.
//   - Ordered by last_active_at DESC so the freshest users enter the pool
//     first; capped at limit before ranking.
//
// Example:
//
//	repo.ListCandidates(ctx, 42, Window{AgeMin: 25, AgeMax: 35, Interest: "everyone"}, 500)
func (r *ProfileRepository) ListCandidates(
	ctx context.Context,
	userID uint64,
	w Window,
	limit int,
) ([]db.User, error) {
	now := time.Now().UTC()
	// age >= AgeMin means born on or before now - AgeMin years;
	// age <= AgeMax means born after now - (AgeMax+1) years.
	newestBirth := now.AddDate(-w.AgeMin, 0, 0)
	oldestBirth := now.AddDate(-(w.AgeMax + 1), 0, 0)

	query := r.db.WithContext(ctx).
		Table("users u").
		Where("u.id != ?", userID).
		Where("u.active = ? AND u.deleted = ?", true, false).
		Where("u.birth_date > ? AND u.birth_date <= ?", oldestBirth, newestBirth).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s
				WHERE s.actor_id = ?
				  AND s.target_id = u.id
			)`, userID).
		Order("u.last_active_at DESC, u.id ASC").
		Limit(limit)

	if w.Interest != "" && w.Interest != "everyone" {
		query = query.Where("u.gender = ?", w.Interest)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// TouchLastActive updates a user's last_active_at timestamp. This is the
// only profile write the engine performs.
func (r *ProfileRepository) TouchLastActive(ctx context.Context, userID uint64, t time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("last_active_at", t).Error
}
