// internal/discovery/ranking/ranking.go
package ranking

import (
	"sort"

	"venuescout/internal/models"
)

// DefaultTopN bounds the result set when the caller passes no limit.
const DefaultTopN = 10

// Rank sorts scored candidates by (matchScore desc, distanceKm asc) and
// truncates to topN. The sort is stable so equal-score-and-distance inputs
// preserve discovery order, keeping the output deterministic. The input slice
// is not mutated.
func Rank(candidates []models.ScoredVenue, topN int) []models.ScoredVenue {
	if topN <= 0 {
		topN = DefaultTopN
	}

	ranked := make([]models.ScoredVenue, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
