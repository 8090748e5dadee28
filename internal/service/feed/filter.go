package feed

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"

	"github.com/pairwise/discovery-engine/internal/app"
	"github.com/pairwise/discovery-engine/internal/db"
	svcErr "github.com/pairwise/discovery-engine/internal/errors"
	"github.com/pairwise/discovery-engine/internal/repository"
)

// candidate is an eligible user annotated with the distance to the
// requester, computed once during filtering and reused by the scorer.
type candidate struct {
	user       db.User
	distanceKm float64
}

// CandidateFilter produces the eligible candidate pool for a user.
//
// Exclusions: the requester, anyone the requester has already swiped on,
// users outside the age/distance/interest window, inactive and deleted
// users. Read-only.
type CandidateFilter struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
}

func NewCandidateFilter(appCtx *app.AppContext) *CandidateFilter {
	return &CandidateFilter{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// Candidates returns the requester's profile and the filtered pool.
//
// A missing preference record falls back to the configured default window
// rather than producing an empty feed. A missing requester profile is a
// NotFound error.
func (f *CandidateFilter) Candidates(ctx context.Context, userID uint64) (*db.User, []candidate, error) {
	requester, err := f.profiles.GetProfile(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, svcErr.NotFound("user %d", userID)
	}
	if err != nil {
		return nil, nil, err
	}

	window := f.window(ctx, userID)

	pool, err := f.profiles.ListCandidates(ctx, userID, window, f.appCtx.Cfg.Feed.PoolCap)
	if err != nil {
		return nil, nil, err
	}

	// Distance is filtered here rather than in SQL so the candidate query
	// stays portable across MySQL and SQLite.
	out := make([]candidate, 0, len(pool))
	for _, u := range pool {
		d := haversineKm(requester.Lat, requester.Lon, u.Lat, u.Lon)
		if window.MaxDistanceKm > 0 && d > float64(window.MaxDistanceKm) {
			continue
		}
		out = append(out, candidate{user: u, distanceKm: d})
	}
	return requester, out, nil
}

// window resolves the requester's preference window, substituting the
// configured defaults when no record exists.
func (f *CandidateFilter) window(ctx context.Context, userID uint64) repository.Window {
	pref, err := f.profiles.GetPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			f.appCtx.Logger.Warn("preference lookup failed, using defaults", "user_id", userID, "err", err)
		}
		defs := f.appCtx.Cfg.Defaults
		return repository.Window{
			AgeMin:        defs.AgeMin,
			AgeMax:        defs.AgeMax,
			MaxDistanceKm: defs.MaxDistanceKm,
			Interest:      defs.Interest,
		}
	}
	return repository.Window{
		AgeMin:        pref.AgeMin,
		AgeMax:        pref.AgeMax,
		MaxDistanceKm: pref.MaxDistanceKm,
		Interest:      pref.Interest,
	}
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
