// Package extractor pulls raw review records from the three source
// platforms, with pagination, retry and client-side rate limiting.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reviewetl/internal/config"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// defaultUserAgent identifies the collector to the platforms.
const defaultUserAgent = "review-etl/1.0 (food-delivery review research)"

// maxResponseBytes caps how much of any response body is read.
const maxResponseBytes = 8 << 20

// Fetcher performs rate-limited HTTP requests with config-driven retries.
// All platform extractors share one Fetcher so the rate limit applies to
// the run as a whole.
type Fetcher struct {
	client    *http.Client
	retry     config.RetryPolicy
	limiter   *rate.Limiter
	userAgent string
}

// NewFetcher creates a Fetcher from the retry policy and requests/second.
func NewFetcher(retry config.RetryPolicy, requestsPerSecond int) *Fetcher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &Fetcher{
		client:    &http.Client{Timeout: retry.GetTimeout()},
		retry:     retry,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		userAgent: defaultUserAgent,
	}
}

// Get fetches url and returns the body. Retries transient failures with
// exponential backoff, honoring Retry-After on 429 responses.
func (f *Fetcher) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	return f.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	}, header)
}

// GetJSON fetches url and decodes the JSON body into out.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	body, err := f.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", rawURL, err)
	}

	return nil
}

// PostForm posts form values and returns the body, with the same retry
// behavior as Get.
func (f *Fetcher) PostForm(ctx context.Context, rawURL string, data url.Values, header http.Header) ([]byte, error) {
	encoded := data.Encode()

	return f.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		return req, nil
	}, header)
}

// do runs the attempt loop. newReq builds a fresh request per attempt so a
// consumed body never gets reused.
func (f *Fetcher) do(ctx context.Context, newReq func() (*http.Request, error), header http.Header) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error

	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if !sleepCtx(ctx, f.retry.GetRetryDelay(attempt)) {
				return nil, ctx.Err()
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", f.userAgent)

		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, f.retry.MaxAttempts, err)

			continue
		}

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()

			lastErr = fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)

			if !isRetryableStatus(resp.StatusCode) {
				return nil, lastErr
			}

			// The platforms rate-limit aggressively; prefer their
			// Retry-After over our own backoff when present.
			if wait := retryAfter(resp); wait > 0 && attempt < f.retry.MaxAttempts {
				if !sleepCtx(ctx, wait) {
					return nil, ctx.Err()
				}
			}

			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()

		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)

			continue
		}

		return body, nil
	}

	return nil, lastErr
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout,  // 504
		http.StatusTooManyRequests, // 429
		http.StatusRequestTimeout,  // 408
		http.StatusBadGateway,      // 502
		http.StatusInternalServerError:
		return true
	}

	return false
}

// retryAfter parses a Retry-After header (seconds or HTTP-date). Returns 0
// if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}

	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// sleepCtx waits for d or returns false if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
