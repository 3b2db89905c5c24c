// internal/discovery/scoring/scoring.go
package scoring

import (
	"math"

	"venuescout/internal/models"
)

const (
	// DefaultDecayRangeKm is where the distance component reaches zero when
	// no explicit range is configured.
	DefaultDecayRangeKm = 10.0
	// ContactBonus is added once for a phone and once for a website.
	ContactBonus = 0.05
)

// Scorer computes 0..1 match scores. The decay range comes from configuration
// so deployments covering sparse regions can widen the useful radius.
type Scorer struct {
	decayRangeKm float64
}

// NewScorer creates a Scorer. A non-positive decay range falls back to
// DefaultDecayRangeKm.
func NewScorer(decayRangeKm float64) Scorer {
	if decayRangeKm <= 0 {
		decayRangeKm = DefaultDecayRangeKm
	}
	return Scorer{decayRangeKm: decayRangeKm}
}

// Score computes the match score for a candidate relative to the request
// center. Pure function: no I/O, no side effects.
//
// The capacity hint from the search request is deliberately not part of the
// formula; it is accepted upstream for a future capacity-penalty term.
func (s Scorer) Score(center models.GeoPoint, candidate models.VenueCandidate) models.ScoredVenue {
	distanceKm := models.Haversine(center, candidate.Location)

	return models.ScoredVenue{
		VenueCandidate: candidate,
		DistanceKm:     distanceKm,
		MatchScore:     s.scoreAt(distanceKm, candidate.HasPhone(), candidate.HasWebsite()),
	}
}

// ScoreAll scores every candidate against the request center.
func (s Scorer) ScoreAll(center models.GeoPoint, candidates []models.VenueCandidate) []models.ScoredVenue {
	scored := make([]models.ScoredVenue, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, s.Score(center, candidate))
	}
	return scored
}

// scoreAt maps distance and contact completeness to the final score: a linear
// decay to zero at the decay range plus the contact bonuses, rounded to three
// decimals and capped at 1.0.
func (s Scorer) scoreAt(distanceKm float64, hasPhone, hasWebsite bool) float64 {
	base := math.Max(0, 1-math.Min(distanceKm/s.decayRangeKm, 1))

	bonus := 0.0
	if hasPhone {
		bonus += ContactBonus
	}
	if hasWebsite {
		bonus += ContactBonus
	}

	score := math.Round((base+bonus)*1000) / 1000
	return math.Min(1.0, score)
}
