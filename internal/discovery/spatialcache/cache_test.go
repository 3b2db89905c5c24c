// internal/discovery/spatialcache/cache_test.go
package spatialcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"venuescout/internal/common/logger"
	"venuescout/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var testBox = models.BoundingBox{South: 32.846, West: -104.483, North: 32.858, East: -104.323}

func testCandidates() []models.VenueCandidate {
	return []models.VenueCandidate{
		{
			ExternalID: "node/101",
			Name:       "Civic Center",
			Location:   models.GeoPoint{Lat: 32.85, Lon: -104.40},
		},
	}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	return db, mock
}

func newTestCache(t *testing.T, db *sql.DB, rdb *redis.Client, clock clockwork.Clock) *Cache {
	return NewWithClock(db, rdb, 24*time.Hour, time.Hour, logger.NewTestLogger(t), clock)
}

// ==========================
// Key Derivation Tests
// ==========================

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key(testBox), Key(testBox))
	assert.Len(t, Key(testBox), 40) // hex sha1
}

func TestKey_CollapsesSubMeterDifferences(t *testing.T) {
	// Boxes differing past the 4th decimal place (~11m) are the same area.
	a := models.BoundingBox{South: 32.84601, West: -104.48299, North: 32.85801, East: -104.32299}
	b := models.BoundingBox{South: 32.84599, West: -104.48301, North: 32.85799, East: -104.32301}

	assert.Equal(t, Key(a), Key(b))
}

func TestKey_DistinguishesDifferentAreas(t *testing.T) {
	other := models.BoundingBox{South: 35.0, West: -107.0, North: 35.2, East: -106.8}

	assert.NotEqual(t, Key(testBox), Key(other))
}

// ==========================
// Durable Tier Tests
// ==========================

func TestCache_Get_Miss(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnError(sql.ErrNoRows)

	cache := newTestCache(t, db, nil, clockwork.NewFakeClock())

	_, found := cache.Get(context.Background(), testBox)

	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Get_FreshHit(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	payload, _ := json.Marshal(testCandidates())

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at"}).
			AddRow(payload, clock.Now().Add(-time.Hour)))

	cache := newTestCache(t, db, nil, clock)

	got, found := cache.Get(context.Background(), testBox)

	assert.True(t, found)
	assert.Len(t, got, 1)
	assert.Equal(t, "node/101", got[0].ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Get_ExpiredIsMiss(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	payload, _ := json.Marshal(testCandidates())

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at"}).
			AddRow(payload, clock.Now().Add(-25*time.Hour)))

	cache := newTestCache(t, db, nil, clock)

	_, found := cache.Get(context.Background(), testBox)

	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Get_ExactlyAtTTLIsMiss(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	payload, _ := json.Marshal(testCandidates())

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at"}).
			AddRow(payload, clock.Now().Add(-24*time.Hour)))

	cache := newTestCache(t, db, nil, clock)

	_, found := cache.Get(context.Background(), testBox)

	assert.False(t, found)
}

func TestCache_Get_CorruptPayloadIsMiss(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at"}).
			AddRow([]byte("{not json"), clock.Now()))

	cache := newTestCache(t, db, nil, clock)

	_, found := cache.Get(context.Background(), testBox)

	assert.False(t, found)
}

func TestCache_Get_DBErrorIsMiss(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WillReturnError(sql.ErrConnDone)

	cache := newTestCache(t, db, nil, clockwork.NewFakeClock())

	_, found := cache.Get(context.Background(), testBox)

	assert.False(t, found)
}

func TestCache_Put_Upserts(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO spatial_cache").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cache := newTestCache(t, db, nil, clockwork.NewFakeClock())

	cache.Put(context.Background(), testBox, testCandidates())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Put_WriteErrorIsNoOp(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO spatial_cache").
		WillReturnError(sql.ErrConnDone)

	cache := newTestCache(t, db, nil, clockwork.NewFakeClock())

	// Must not panic or surface the error.
	cache.Put(context.Background(), testBox, testCandidates())

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Hot Tier Tests
// ==========================

func TestCache_HotTierServesWithoutDB(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, mock := setupMockDB(t)
	defer db.Close()

	// Put writes both tiers.
	mock.ExpectExec("INSERT INTO spatial_cache").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cache := newTestCache(t, db, rdb, clockwork.NewFakeClock())
	cache.Put(context.Background(), testBox, testCandidates())

	// No SELECT expectation: a durable-tier query now would fail the test.
	got, found := cache.Get(context.Background(), testBox)

	assert.True(t, found)
	assert.Len(t, got, 1)
	assert.Equal(t, "node/101", got[0].ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_HotTierExpiryFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, mock := setupMockDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	payload, _ := json.Marshal(testCandidates())

	mr.Set(redisKeyPrefix+Key(testBox), string(payload))
	mr.SetTTL(redisKeyPrefix+Key(testBox), time.Hour)
	mr.FastForward(2 * time.Hour)

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at"}).
			AddRow(payload, clock.Now().Add(-time.Hour)))

	cache := newTestCache(t, db, rdb, clock)

	got, found := cache.Get(context.Background(), testBox)

	assert.True(t, found)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_DurableHitBackfillsHotTier(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, mock := setupMockDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	payload, _ := json.Marshal(testCandidates())

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at"}).
			AddRow(payload, clock.Now()))

	cache := newTestCache(t, db, rdb, clock)

	_, found := cache.Get(context.Background(), testBox)
	assert.True(t, found)

	assert.True(t, mr.Exists(redisKeyPrefix+Key(testBox)))
}

func TestCache_HotTierErrorFallsThrough(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()

	db, mock := setupMockDB(t)
	defer db.Close()

	clock := clockwork.NewFakeClock()
	payload, _ := json.Marshal(testCandidates())

	rmock.ExpectGet(redisKeyPrefix + Key(testBox)).SetErr(errors.New("connection refused"))
	// The durable-hit backfill also fails; that must stay invisible too.
	rmock.ExpectSet(redisKeyPrefix+Key(testBox), payload, time.Hour).SetErr(errors.New("connection refused"))

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WithArgs(Key(testBox)).
		WillReturnRows(sqlmock.NewRows([]string{"payload", "created_at"}).
			AddRow(payload, clock.Now().Add(-time.Hour)))

	cache := newTestCache(t, db, rdb, clock)

	got, found := cache.Get(context.Background(), testBox)

	assert.True(t, found)
	assert.Len(t, got, 1)
	assert.NoError(t, rmock.ExpectationsWereMet())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Put_HotTierErrorIsInvisible(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()

	db, mock := setupMockDB(t)
	defer db.Close()

	payload, _ := json.Marshal(testCandidates())

	mock.ExpectExec("INSERT INTO spatial_cache").
		WillReturnResult(sqlmock.NewResult(0, 1))
	rmock.ExpectSet(redisKeyPrefix+Key(testBox), payload, time.Hour).SetErr(errors.New("connection refused"))

	cache := newTestCache(t, db, rdb, clockwork.NewFakeClock())

	cache.Put(context.Background(), testBox, testCandidates())

	assert.NoError(t, rmock.ExpectationsWereMet())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_NilRedisRunsDurableOnly(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT payload, created_at FROM spatial_cache").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO spatial_cache").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cache := newTestCache(t, db, nil, clockwork.NewFakeClock())

	_, found := cache.Get(context.Background(), testBox)
	assert.False(t, found)

	cache.Put(context.Background(), testBox, testCandidates())
	assert.NoError(t, mock.ExpectationsWereMet())
}
