// internal/discovery/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	commonerrors "venuescout/internal/common/errors"
	"venuescout/internal/common/logger"
	"venuescout/internal/common/metrics"
	"venuescout/internal/common/observability"
	"venuescout/internal/discovery/ranking"
	"venuescout/internal/discovery/scoring"
	"venuescout/internal/models"
)

// Geocoder resolves a place query to a center point and search box.
type Geocoder interface {
	Resolve(ctx context.Context, placeQuery string) (models.GeoPoint, models.BoundingBox, error)
}

// AreaFinder returns venue candidates inside a bounding box. degraded means
// the upstream was unreachable and the candidate set is a silent empty.
type AreaFinder interface {
	FindInArea(ctx context.Context, bbox models.BoundingBox) (candidates []models.VenueCandidate, degraded bool, err error)
}

// SuggestionStore persists a ranked batch.
type SuggestionStore interface {
	SaveAll(ctx context.Context, requestID string, venues []models.ScoredVenue) (batchID string, err error)
}

// Engine runs the full discovery pipeline: geocode, area query, score, rank,
// persist. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	geocoder Geocoder
	area     AreaFinder
	store    SuggestionStore
	obs      *observability.Observability
	scorer   scoring.Scorer
	topN     int
	logger   logger.Logger
}

// New creates an Engine. A non-positive topN or scoreDecayKm falls back to
// the package defaults.
func New(geocoder Geocoder, area AreaFinder, store SuggestionStore, obs *observability.Observability, topN int, scoreDecayKm float64, log logger.Logger) *Engine {
	if topN <= 0 {
		topN = ranking.DefaultTopN
	}
	return &Engine{
		geocoder: geocoder,
		area:     area,
		store:    store,
		obs:      obs,
		scorer:   scoring.NewScorer(scoreDecayKm),
		topN:     topN,
		logger:   log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

// FindVenues executes one discovery run.
//
// Failure policy, in pipeline order: an unresolvable place query aborts the
// run; an unreachable area-query upstream degrades to an empty result set; a
// persistence failure is downgraded to a warning on the result, because the
// computed venues are still worth returning.
func (e *Engine) FindVenues(ctx context.Context, req models.SearchRequest) (*models.DiscoveryResult, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		metrics.SearchesTotal.WithLabelValues(outcome).Inc()
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
		if e.obs != nil {
			e.obs.RecordSearchProcessed(ctx, outcome)
			e.obs.RecordSearchDuration(ctx, time.Since(start), outcome)
		}
	}()

	if err := validateRequest(req); err != nil {
		outcome = "invalid_input"
		return nil, err
	}

	log := e.logger.WithFields(map[string]interface{}{
		"request_id":  req.RequestID,
		"place_query": req.PlaceQuery,
	})

	center, bbox, err := e.geocoder.Resolve(ctx, req.PlaceQuery)
	if err != nil {
		if errors.Is(err, commonerrors.ErrPlaceNotFound) {
			outcome = "place_not_found"
		} else {
			outcome = "geocode_error"
		}
		return nil, err
	}

	candidates, degraded, err := e.area.FindInArea(ctx, bbox)
	if err != nil {
		outcome = "area_query_error"
		return nil, err
	}
	if degraded {
		metrics.DegradedSearches.Inc()
	}

	ranked := ranking.Rank(e.scorer.ScoreAll(center, candidates), e.topN)

	result := &models.DiscoveryResult{
		RequestID: req.RequestID,
		Center:    center,
		Venues:    ranked,
		Degraded:  degraded,
	}

	if len(ranked) > 0 {
		if _, err := e.store.SaveAll(ctx, req.RequestID, ranked); err != nil {
			log.Warn("suggestion persistence failed, returning results anyway", map[string]interface{}{
				"error": err.Error(),
			})
			result.PersistWarning = err.Error()
			outcome = "persist_warning"
		}
	}

	log.Info("discovery run completed", map[string]interface{}{
		"candidates": len(candidates),
		"returned":   len(ranked),
		"degraded":   degraded,
	})
	return result, nil
}

// validateRequest enforces the inbound contract before any upstream is hit.
func validateRequest(req models.SearchRequest) error {
	if strings.TrimSpace(req.PlaceQuery) == "" {
		return commonerrors.NewInvalidSearchInputError("placeQuery must not be empty")
	}
	if req.RequestID == "" {
		return commonerrors.NewInvalidSearchInputError("requestId must not be empty")
	}
	if req.CapacityHint < 0 {
		return commonerrors.NewInvalidSearchInputError(
			fmt.Sprintf("capacityHint must be non-negative, got %d", req.CapacityHint))
	}
	return nil
}
