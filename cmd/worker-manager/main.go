// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"venuescout/internal/common/config"
	"venuescout/internal/common/database"
	"venuescout/internal/common/httpclient"
	"venuescout/internal/common/logger"
	"venuescout/internal/common/observability"
	"venuescout/internal/common/ratelimit"
	"venuescout/internal/discovery/areaquery"
	"venuescout/internal/discovery/engine"
	"venuescout/internal/discovery/geocode"
	"venuescout/internal/discovery/spatialcache"
	"venuescout/internal/discovery/suggestions"

	fv "venuescout/internal/workers/venue/find-venues"
	ls "venuescout/internal/workers/venue/list-suggestions"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	// Redis is the hot cache tier only; losing it degrades to the durable tier.
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Upstream Clients ---
	// One shared limiter keeps per-endpoint minimum intervals across all jobs
	// in this process.
	limiter := ratelimit.New()

	geocodeHTTP := httpclient.NewClient(httpclient.Config{
		EndpointKey: "geocoder",
		Timeout:     time.Duration(cfg.Upstreams.Geocoder.Timeout) * time.Millisecond,
		MinInterval: time.Duration(cfg.Upstreams.Geocoder.MinInterval) * time.Millisecond,
		MaxAttempts: cfg.Upstreams.Geocoder.MaxAttempts,
		UserAgent:   cfg.Upstreams.Geocoder.UserAgent,
	}, limiter, log)

	areaHTTP := httpclient.NewClient(httpclient.Config{
		EndpointKey: "area_query",
		Timeout:     time.Duration(cfg.Upstreams.AreaQuery.Timeout) * time.Millisecond,
		MinInterval: time.Duration(cfg.Upstreams.AreaQuery.MinInterval) * time.Millisecond,
		MaxAttempts: cfg.Upstreams.AreaQuery.MaxAttempts,
		UserAgent:   cfg.Upstreams.AreaQuery.UserAgent,
	}, limiter, log)

	geocoder := geocode.New(geocodeHTTP, cfg.Upstreams.Geocoder.BaseURL, cfg.Discovery.BBoxPadding, log)

	cache := spatialcache.New(
		pg.DB, rdb.Client,
		time.Duration(cfg.Discovery.CacheTTL)*time.Second,
		time.Duration(cfg.Discovery.HotCacheTTL)*time.Second,
		log,
	)

	areaClient := areaquery.New(
		areaHTTP, cache,
		cfg.Upstreams.AreaQuery.BaseURL,
		cfg.Discovery.VenueCategory,
		cfg.Discovery.ElementLimit,
		log,
	)

	repo := suggestions.New(pg.DB, log)

	discoveryEngine := engine.New(geocoder, areaClient, repo, obs, cfg.Discovery.TopN, cfg.Discovery.ScoreDecayKm, log)

	zapLog.Info("Discovery engine initialized")

	// --- Register Workers ---
	if cfg.Workers[fv.TaskType].Enabled {
		handler := fv.NewHandler(
			&fv.Config{
				Timeout: time.Duration(cfg.Workers[fv.TaskType].Timeout) * time.Millisecond,
			},
			discoveryEngine, log,
		)
		startWorker(zeebeClient, fv.TaskType, cfg.Workers[fv.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ls.TaskType].Enabled {
		handler := ls.NewHandler(
			&ls.Config{
				Timeout:      time.Duration(cfg.Workers[ls.TaskType].Timeout) * time.Millisecond,
				DefaultLimit: cfg.Discovery.TopN,
				MaxLimit:     cfg.Discovery.SuggestionsCap,
			},
			repo, log,
		)
		startWorker(zeebeClient, ls.TaskType, cfg.Workers[ls.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
