// internal/common/httpclient/client.go
package httpclient

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	commonerrors "venuescout/internal/common/errors"
	"venuescout/internal/common/logger"
	"venuescout/internal/common/metrics"
	"venuescout/internal/common/ratelimit"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second
	maxJitter      = 500 * time.Millisecond
)

// Config holds per-endpoint client settings.
type Config struct {
	EndpointKey string
	Timeout     time.Duration
	MinInterval time.Duration
	MaxAttempts int
	UserAgent   string
}

// Client wraps an HTTP endpoint with rate limiting and bounded
// exponential-backoff retries.
type Client struct {
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	clock       clockwork.Clock
	logger      logger.Logger
	endpointKey string
	maxAttempts int
	userAgent   string
}

// NewClient creates a retrying client for one upstream endpoint. The limiter
// is shared across clients so concurrent requests stay serialized per endpoint.
func NewClient(cfg Config, limiter *ratelimit.Limiter, log logger.Logger) *Client {
	return NewClientWithClock(cfg, limiter, log, clockwork.NewRealClock())
}

// NewClientWithClock is NewClient with an injected clock for tests.
func NewClientWithClock(cfg Config, limiter *ratelimit.Limiter, log logger.Logger, clock clockwork.Clock) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	limiter.SetInterval(cfg.EndpointKey, cfg.MinInterval)

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     limiter,
		clock:       clock,
		logger:      log.WithFields(map[string]interface{}{"endpoint": cfg.EndpointKey}),
		endpointKey: cfg.EndpointKey,
		maxAttempts: cfg.MaxAttempts,
		userAgent:   cfg.UserAgent,
	}
}

// Do executes the request, retrying on transport errors, 5xx and 429.
// Responses with other 4xx statuses surface immediately as ErrClientRejected.
// The caller owns the returned body. Requests with a body must carry GetBody
// so attempts can be replayed; http.NewRequest sets it for common readers.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx, c.endpointKey); err != nil {
			return nil, err
		}

		attemptReq, err := cloneRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if c.userAgent != "" {
			attemptReq.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.UpstreamRequests.WithLabelValues(c.endpointKey, "transport_error").Inc()
			lastErr = err
			c.logger.Warn("upstream transport error", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			if attempt < c.maxAttempts && !c.sleepBackoff(ctx, attempt, 0) {
				return nil, ctx.Err()
			}
			continue
		}

		switch {
		case resp.StatusCode < 400:
			metrics.UpstreamRequests.WithLabelValues(c.endpointKey, "ok").Inc()
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), c.clock.Now())
			drain(resp)
			metrics.UpstreamRequests.WithLabelValues(c.endpointKey, "throttled").Inc()
			lastErr = fmt.Errorf("upstream throttled (429)")
			c.logger.Warn("upstream throttled", map[string]interface{}{
				"attempt":    attempt,
				"retryAfter": retryAfter.String(),
			})
			if attempt < c.maxAttempts && !c.sleepBackoff(ctx, attempt, retryAfter) {
				return nil, ctx.Err()
			}

		case resp.StatusCode >= 500:
			drain(resp)
			metrics.UpstreamRequests.WithLabelValues(c.endpointKey, "server_error").Inc()
			lastErr = fmt.Errorf("upstream returned %d", resp.StatusCode)
			c.logger.Warn("upstream server error", map[string]interface{}{
				"attempt": attempt,
				"status":  resp.StatusCode,
			})
			if attempt < c.maxAttempts && !c.sleepBackoff(ctx, attempt, 0) {
				return nil, ctx.Err()
			}

		default:
			status := resp.StatusCode
			drain(resp)
			metrics.UpstreamRequests.WithLabelValues(c.endpointKey, "rejected").Inc()
			return nil, commonerrors.NewClientRejectedError(c.endpointKey, status)
		}
	}

	return nil, commonerrors.NewUpstreamUnavailableError(c.endpointKey,
		fmt.Errorf("%d attempts exhausted: %v", c.maxAttempts, lastErr))
}

// sleepBackoff waits before the next attempt, but never after the final one:
// exhaustion surfaces immediately. A positive retryAfter from a 429 takes
// precedence over the computed backoff. Returns false when the context was
// canceled while waiting.
func (c *Client) sleepBackoff(ctx context.Context, attempt int, retryAfter time.Duration) bool {
	metrics.UpstreamRetries.WithLabelValues(c.endpointKey).Inc()

	delay := retryAfter
	if delay <= 0 {
		delay = initialBackoff << (attempt - 1)
		if delay > maxBackoff {
			delay = maxBackoff
		}
		delay += time.Duration(rand.Int63n(int64(maxJitter)))
	}

	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(delay):
		return true
	}
}

// parseRetryAfter accepts either integer seconds or an HTTP-date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	out := req.Clone(ctx)
	if req.Body == nil || req.GetBody == nil {
		return out, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}
	out.Body = body
	return out, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
