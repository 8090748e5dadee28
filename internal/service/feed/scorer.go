package feed

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pairwise/discovery-engine/internal/db"
	"github.com/pairwise/discovery-engine/internal/scoring"
)

// RankedCandidate is one entry of a ranked feed.
type RankedCandidate struct {
	CandidateID uint64  `json:"candidate_id"`
	Score       float64 `json:"score"`
}

// Score component weights. They sum to 1; the provider share is replaced
// by scoring.Neutral when the provider is down, which keeps the scale
// intact.
const (
	weightCompleteness = 0.10
	weightAlignment    = 0.40
	weightRecency      = 0.20
	weightProvider     = 0.30
)

// recencyHorizon is how far back activity still contributes to the
// recency component.
const recencyHorizon = 7 * 24 * time.Hour

// Scorer ranks a candidate pool deterministically: identical inputs yield
// an identical ordering, with ties broken by candidate id ascending.
type Scorer struct {
	provider scoring.Provider
	log      *slog.Logger
}

func NewScorer(provider scoring.Provider, log *slog.Logger) *Scorer {
	return &Scorer{provider: provider, log: log}
}

// Rank scores the pool against the requester, sorts descending, and caps
// the result at topN.
//
// A provider failure is graceful degradation, not an error: the provider
// component collapses to scoring.Neutral for every candidate and the rest
// of the score stands.
func (s *Scorer) Rank(ctx context.Context, requester *db.User, pool []candidate, topN int) []RankedCandidate {
	if len(pool) == 0 {
		return []RankedCandidate{}
	}

	ids := make([]uint64, len(pool))
	for i, c := range pool {
		ids[i] = c.user.ID
	}

	providerScores, err := s.provider.Score(ctx, requester.ID, ids)
	if err != nil {
		s.log.Warn("scoring provider degraded, using neutral fallback",
			"user_id", requester.ID, "candidates", len(ids), "err", err)
		providerScores = nil
	}

	now := time.Now().UTC()
	ranked := make([]RankedCandidate, len(pool))
	for i, c := range pool {
		ml, ok := providerScores[c.user.ID]
		if !ok || ml < 0 || ml > 1 {
			ml = scoring.Neutral
		}

		score := weightCompleteness*completeness(&c.user) +
			weightAlignment*alignment(requester, c, now) +
			weightRecency*recency(c.user.LastActiveAt, now) +
			weightProvider*ml

		ranked[i] = RankedCandidate{CandidateID: c.user.ID, Score: score}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// completeness measures how much of the candidate's profile is filled in.
func completeness(u *db.User) float64 {
	filled := 0.0
	if u.Bio != "" {
		filled++
	}
	if u.PhotoURL != "" {
		filled++
	}
	if !u.BirthDate.IsZero() {
		filled++
	}
	if u.Lat != 0 || u.Lon != 0 {
		filled++
	}
	return filled / 4
}

// alignment measures how well the candidate sits inside the requester's
// window: age proximity and distance closeness.
func alignment(requester *db.User, c candidate, now time.Time) float64 {
	ageGap := float64(requester.Age(now) - c.user.Age(now))
	if ageGap < 0 {
		ageGap = -ageGap
	}
	if ageGap > 20 {
		ageGap = 20
	}
	ageScore := 1 - ageGap/20

	// 0 km → 1.0, fading to 0 at 200 km. Candidates beyond the requester's
	// hard distance limit never reach the scorer.
	dist := c.distanceKm
	if dist > 200 {
		dist = 200
	}
	distScore := 1 - dist/200

	return 0.6*ageScore + 0.4*distScore
}

// recency rewards recent activity linearly across the horizon.
func recency(lastActive time.Time, now time.Time) float64 {
	if lastActive.IsZero() {
		return 0
	}
	if lastActive.After(now) {
		return 1
	}
	idle := now.Sub(lastActive)
	if idle >= recencyHorizon {
		return 0
	}
	return 1 - float64(idle)/float64(recencyHorizon)
}
