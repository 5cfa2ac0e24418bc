package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"bolao/palpites/internal/metrics"

	"github.com/rs/zerolog/log"
)

const userAgent = "bolao-palpites/1.0"

// httpCore is the retrying, rate limited transport used by the results scraper
type httpCore struct {
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

func newHTTPCore(timeout time.Duration, concurrency int) *httpCore {
	rateLimiter := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		rateLimiter <- struct{}{}
	}

	return &httpCore{
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// do sends the request built by newReq with retry logic and rate limiting.
// newReq is called once per attempt so request bodies can be replayed.
func (c *httpCore) do(ctx context.Context, endpoint string, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	start := time.Now()
	status := "error"
	defer func() { metrics.RecordAPICall(endpoint, status, time.Since(start).Seconds()) }()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, code, err := c.attempt(ctx, newReq)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Retry on network errors
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		switch code {
		case http.StatusOK:
			status = "success"
			log.Debug().
				Str("endpoint", endpoint).
				Int("size", len(body)).
				Msg("API request successful")
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = fmt.Errorf("API returned retryable status %d: %s", code, truncate(body))
			if attempt < c.maxRetries {
				log.Warn().
					Str("endpoint", endpoint).
					Int("status", code).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			return nil, lastErr

		case http.StatusUnauthorized, http.StatusForbidden:
			// Don't retry auth errors
			return nil, fmt.Errorf("API authentication failed (status %d): %s", code, truncate(body))

		default:
			return nil, fmt.Errorf("API returned status %d: %s", code, truncate(body))
		}
	}

	return nil, lastErr
}

// attempt performs one request while holding a rate limiter slot
func (c *httpCore) attempt(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := newReq(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	log.Debug().
		Str("url", req.URL.Redacted()).
		Str("method", req.Method).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "... (" + strconv.Itoa(len(body)) + " bytes)"
}
