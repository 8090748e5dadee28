package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo users,
// preferences, and swipes.
//
// Behavior:
//  1. Clears existing data in `users`, `preferences`, `swipes`, `matches`.
//  2. Creates 20 users (10 male, 10 female) spread around a city center,
//     with hashed passwords and wide-open preferences.
//  3. Generates ~200 swipes with ~70% likes; every 3rd decision also
//     inserts the reciprocal like so mutual pairs exist.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"matches", "swipes", "preferences", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE swipes AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('swipes', 'matches', 'users')")
	}

	log.Println("Cleared existing data")

	// --- Seed Users (10 male, 10 female) near a city center ---
	const centerLat, centerLon = 51.5074, -0.1278
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender := "male"
		if i > 10 {
			gender = "female"
		}

		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Gender:       gender,
			BirthDate:    time.Date(1980+r.Intn(25), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC),
			Lat:          centerLat + (r.Float64()-0.5)*0.5,
			Lon:          centerLon + (r.Float64()-0.5)*0.5,
			Bio:          fmt.Sprintf("Hi, I'm user %d", i),
			PhotoURL:     fmt.Sprintf("https://pics.example.com/%d.jpg", i),
			Active:       true,
			LastActiveAt: time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		pref := Preference{
			UserID:        user.ID,
			AgeMin:        18,
			AgeMax:        99,
			MaxDistanceKm: 100,
			Interest:      "everyone",
		}
		if err := db.Create(&pref).Error; err != nil {
			return fmt.Errorf("failed to seed preference: %w", err)
		}
	}
	log.Println("Seeded 20 users with preferences.")

	// --- Seed Swipes (~200) ---
	var users []User
	if err := db.Find(&users).Error; err != nil {
		return fmt.Errorf("failed to load seeded users: %w", err)
	}
	byIdx := func(i int) User { return users[i%len(users)] }

	counter := 0
	for i := range users {
		actor := users[i]
		for j := 0; j < 12; j++ {
			target := byIdx(r.Intn(len(users)))
			if actor.ID == target.ID || actor.Gender == target.Gender {
				continue
			}

			// like probability 70%
			decision := DecisionPass
			if r.Intn(100) < 70 {
				decision = DecisionLike
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				decision = DecisionLike
				recip := Swipe{ActorID: target.ID, TargetID: actor.ID, Decision: DecisionLike}
				db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"decision", "updated_at"}),
				}).Create(&recip)
			}

			swipe := Swipe{ActorID: actor.ID, TargetID: target.ID, Decision: decision}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"decision", "updated_at"}),
			}).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}

			counter++
		}
	}
	log.Printf("Seeded %d swipes.", counter)

	return nil
}
