package db

import (
	"fmt"
	"time"
)

// Decision is a swiper's verdict on another user.
type Decision string

const (
	DecisionLike      Decision = "like"
	DecisionPass      Decision = "pass"
	DecisionSuperLike Decision = "super_like"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionLike, DecisionPass, DecisionSuperLike:
		return true
	}
	return false
}

// Positive reports whether d counts toward a mutual like.
func (d Decision) Positive() bool {
	return d == DecisionLike || d == DecisionSuperLike
}

// Match statuses. A match is never hard-deleted, only ended.
const (
	MatchStatusActive = "active"
	MatchStatusEnded  = "ended"
)

// User table. Owned by the profile store; this engine only ever writes
// LastActiveAt.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Gender       string `gorm:"size:16;not null"`
	BirthDate    time.Time
	Lat          float64
	Lon          float64
	Bio          string `gorm:"size:512"`
	PhotoURL     string `gorm:"size:255"`
	Active       bool   `gorm:"default:true"`
	Deleted      bool   `gorm:"default:false;index"`
	LastActiveAt time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Age returns the user's age in whole years at the given time.
func (u *User) Age(now time.Time) int {
	age := now.Year() - u.BirthDate.Year()
	if now.YearDay() < u.BirthDate.YearDay() {
		age--
	}
	return age
}

// Preference is a user's discovery window. Absence of a row means the
// configured default window applies, never an empty feed.
type Preference struct {
	UserID        uint64    `gorm:"primaryKey"`
	AgeMin        int       `gorm:"not null;default:18"`
	AgeMax        int       `gorm:"not null;default:99"`
	MaxDistanceKm int       `gorm:"not null;default:0"` // 0 = unlimited
	Interest      string    `gorm:"size:16;not null;default:everyone"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// Swipe represents an actor's decision on a target.
//
// Unique index idx_swipes_actor_target ensures a single row per ordered
// (actor, target) pair; resubmissions upsert the decision. Rows are never
// deleted (audit trail).
//
// Index idx_swipes_target_decision optimizes the reciprocal-like lookup
// performed on every positive swipe.
type Swipe struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	ActorID   uint64    `gorm:"not null;uniqueIndex:idx_swipes_actor_target,priority:1"`
	TargetID  uint64    `gorm:"not null;uniqueIndex:idx_swipes_actor_target,priority:2;index:idx_swipes_target_decision,priority:1"`
	Decision  Decision  `gorm:"size:16;not null;index:idx_swipes_target_decision,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match is the durable record of a mutual like.
//
// PairKey is the canonical ordering of the two user ids; its unique index
// is the store-level guarantee that at most one match ever exists per
// unordered pair, regardless of how many replicas race on insert.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	PairKey   string    `gorm:"uniqueIndex;size:64;not null"`
	UserAID   uint64    `gorm:"not null;index"`
	UserBID   uint64    `gorm:"not null;index"`
	Status    string    `gorm:"size:16;not null;default:active"`
	MatchedAt time.Time `gorm:"autoCreateTime"`
	EndedAt   *time.Time
}

// Involves reports whether userID is a participant of the match.
func (m *Match) Involves(userID uint64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// Other returns the participant that is not userID.
func (m *Match) Other(userID uint64) uint64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// PairKey builds the canonical key for an unordered user pair:
// min(id):max(id).
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
