// internal/discovery/suggestions/repository.go
package suggestions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	commonerrors "venuescout/internal/common/errors"
	"venuescout/internal/common/logger"
	"venuescout/internal/common/metrics"
	"venuescout/internal/models"
)

// Repository persists ranked venue suggestions. Every discovery run writes a
// fresh batch; prior batches for the same request are kept for audit and
// distinguishable by batch_id.
type Repository struct {
	db     *sql.DB
	clock  clockwork.Clock
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Repository {
	return NewWithClock(db, log, clockwork.NewRealClock())
}

func NewWithClock(db *sql.DB, log logger.Logger, clock clockwork.Clock) *Repository {
	return &Repository{
		db:     db,
		clock:  clock,
		logger: log.WithFields(map[string]interface{}{"component": "suggestions"}),
	}
}

// SaveAll writes one suggestion row per ranked venue under a fresh batch ID.
// Rank is the 1-based position in the input order. The whole batch commits or
// rolls back as a unit; failures wrap ErrPersistence so the orchestrator can
// degrade to a warning instead of discarding the computed results.
func (r *Repository) SaveAll(ctx context.Context, requestID string, venues []models.ScoredVenue) (string, error) {
	batchID := uuid.New().String()
	createdAt := r.clock.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", commonerrors.NewPersistenceError(fmt.Errorf("begin batch %s: %v", batchID, err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO venue_suggestions
		   (batch_id, request_id, rank, external_id, name, address, phone, website,
		    lat, lon, distance_km, match_score, provenance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`)
	if err != nil {
		return "", commonerrors.NewPersistenceError(fmt.Errorf("prepare batch %s: %v", batchID, err))
	}
	defer stmt.Close()

	for i, venue := range venues {
		provenance, err := marshalProvenance(venue.RawAttributes)
		if err != nil {
			return "", commonerrors.NewPersistenceError(fmt.Errorf("encode provenance for %s: %v", venue.ExternalID, err))
		}

		_, err = stmt.ExecContext(ctx,
			batchID, requestID, i+1, venue.ExternalID, venue.Name,
			venue.Address, venue.Phone, venue.Website,
			venue.Location.Lat, venue.Location.Lon,
			venue.DistanceKm, venue.MatchScore, provenance, createdAt,
		)
		if err != nil {
			return "", commonerrors.NewPersistenceError(fmt.Errorf("insert rank %d in batch %s: %v", i+1, batchID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return "", commonerrors.NewPersistenceError(fmt.Errorf("commit batch %s: %v", batchID, err))
	}

	metrics.SuggestionsPersisted.Add(float64(len(venues)))
	r.logger.Info("suggestion batch persisted", map[string]interface{}{
		"request_id": requestID,
		"batch_id":   batchID,
		"count":      len(venues),
	})
	return batchID, nil
}

// ListByRequest returns the stored suggestions for a request, newest batch
// first and best match first within a batch, capped at limit.
func (r *Repository) ListByRequest(ctx context.Context, requestID string, limit int) ([]models.Suggestion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id, rank, external_id, name, address, phone, website,
		        lat, lon, distance_km, match_score, provenance, created_at
		 FROM venue_suggestions
		 WHERE request_id = $1
		 ORDER BY created_at DESC, match_score DESC, distance_km ASC
		 LIMIT $2`,
		requestID, limit,
	)
	if err != nil {
		return nil, commonerrors.NewPersistenceError(fmt.Errorf("list for request %s: %v", requestID, err))
	}
	defer rows.Close()

	var suggestions []models.Suggestion
	for rows.Next() {
		var s models.Suggestion
		var provenance []byte
		err := rows.Scan(
			&s.BatchID, &s.Rank, &s.ExternalID, &s.Name, &s.Address, &s.Phone, &s.Website,
			&s.Location.Lat, &s.Location.Lon, &s.DistanceKm, &s.MatchScore, &provenance, &s.CreatedAt,
		)
		if err != nil {
			return nil, commonerrors.NewPersistenceError(fmt.Errorf("scan suggestion row: %v", err))
		}
		s.RequestID = requestID
		if len(provenance) > 0 {
			if err := json.Unmarshal(provenance, &s.Provenance); err != nil {
				r.logger.Warn("suggestion provenance corrupt, dropping field", map[string]interface{}{
					"batch_id": s.BatchID,
					"rank":     s.Rank,
					"error":    err.Error(),
				})
			}
		}
		suggestions = append(suggestions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewPersistenceError(fmt.Errorf("iterate suggestions: %v", err))
	}

	return suggestions, nil
}

// ClearByRequest removes every stored batch for a request and reports how many
// rows went away.
func (r *Repository) ClearByRequest(ctx context.Context, requestID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM venue_suggestions WHERE request_id = $1`, requestID,
	)
	if err != nil {
		return 0, commonerrors.NewPersistenceError(fmt.Errorf("clear request %s: %v", requestID, err))
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, commonerrors.NewPersistenceError(fmt.Errorf("rows affected for request %s: %v", requestID, err))
	}

	r.logger.Info("suggestions cleared", map[string]interface{}{
		"request_id": requestID,
		"deleted":    deleted,
	})
	return deleted, nil
}

// marshalProvenance stores the raw upstream tags alongside the row so a later
// re-score does not need a fresh area query.
func marshalProvenance(tags map[string]string) ([]byte, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}{"tags": tags})
}
