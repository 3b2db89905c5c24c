// internal/discovery/spatialcache/cache.go
package spatialcache

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"venuescout/internal/common/logger"
	"venuescout/internal/common/metrics"
	"venuescout/internal/models"
)

const redisKeyPrefix = "spatial:"

// Cache is a TTL-based cache of raw area-query payloads keyed by a normalized
// bounding box. The durable tier is a Postgres table shared across engine
// instances; an optional Redis tier sits in front of it. Cache I/O errors
// never fail a search: reads degrade to misses and writes to no-ops.
type Cache struct {
	db     *sql.DB
	redis  *redis.Client
	clock  clockwork.Clock
	ttl    time.Duration
	hotTTL time.Duration
	logger logger.Logger
}

// New creates a Cache. redisClient may be nil to run on the durable tier only.
func New(db *sql.DB, redisClient *redis.Client, ttl, hotTTL time.Duration, log logger.Logger) *Cache {
	return NewWithClock(db, redisClient, ttl, hotTTL, log, clockwork.NewRealClock())
}

// NewWithClock is New with an injected clock for tests.
func NewWithClock(db *sql.DB, redisClient *redis.Client, ttl, hotTTL time.Duration, log logger.Logger, clock clockwork.Clock) *Cache {
	return &Cache{
		db:     db,
		redis:  redisClient,
		clock:  clock,
		ttl:    ttl,
		hotTTL: hotTTL,
		logger: log.WithFields(map[string]interface{}{"component": "spatialcache"}),
	}
}

// Key derives the cache key from a bounding box rounded to 4 decimal places
// (~11m), so near-identical queries for the same city collide on purpose.
func Key(bbox models.BoundingBox) string {
	normalized := fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", bbox.South, bbox.West, bbox.North, bbox.East)
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached payload for the box. found is true only when a
// record exists and is younger than the TTL. Expired rows are left in place
// and overwritten by the next Put.
func (c *Cache) Get(ctx context.Context, bbox models.BoundingBox) ([]models.VenueCandidate, bool) {
	key := Key(bbox)

	if payload, ok := c.getHot(ctx, key); ok {
		return payload, true
	}

	var raw []byte
	var createdAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, created_at FROM spatial_cache WHERE key = $1`, key,
	).Scan(&raw, &createdAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("spatial cache read failed, treating as miss", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		metrics.CacheLookups.WithLabelValues("durable", "miss").Inc()
		return nil, false
	}

	if c.clock.Now().Sub(createdAt) >= c.ttl {
		metrics.CacheLookups.WithLabelValues("durable", "expired").Inc()
		return nil, false
	}

	var payload []models.VenueCandidate
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn("spatial cache payload corrupt, treating as miss", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		metrics.CacheLookups.WithLabelValues("durable", "miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("durable", "hit").Inc()
	c.setHot(ctx, key, raw)
	return payload, true
}

// Put upserts the payload under the box key, refreshing created_at on
// conflict. Payloads for the same box are idempotent snapshots of upstream
// state, so last-writer-wins is acceptable.
func (c *Cache) Put(ctx context.Context, bbox models.BoundingBox, payload []models.VenueCandidate) {
	key := Key(bbox)

	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("spatial cache marshal failed, skipping write", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO spatial_cache (key, payload, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`,
		key, raw, c.clock.Now().UTC(),
	)
	if err != nil {
		c.logger.Warn("spatial cache write failed, skipping", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	c.setHot(ctx, key, raw)
}

func (c *Cache) getHot(ctx context.Context, key string) ([]models.VenueCandidate, bool) {
	if c.redis == nil {
		return nil, false
	}

	raw, err := c.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("hot cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		metrics.CacheLookups.WithLabelValues("hot", "miss").Inc()
		return nil, false
	}

	var payload []models.VenueCandidate
	if err := json.Unmarshal(raw, &payload); err != nil {
		metrics.CacheLookups.WithLabelValues("hot", "miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hot", "hit").Inc()
	return payload, true
}

func (c *Cache) setHot(ctx context.Context, key string, raw []byte) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+key, raw, c.hotTTL).Err(); err != nil {
		c.logger.Debug("hot cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
