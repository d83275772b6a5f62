// Package retry implements the exponential-backoff-with-jitter HTTP retry
// core shared by every provider client: idempotency-key continuity across
// attempts, Stainless-SDK-style retry headers, and a closed outcome type
// that never lets a caller confuse an exhausted-retries HTTP error for
// success.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Config tunes the retry loop. The zero value is not usable; use
// DefaultConfig.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultConfig matches the provider SDKs this client mirrors.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		JitterFactor: 0.25,
	}
}

// Outcome is a closed sum type: exactly one field is meaningful, selected
// by Kind.
type Outcome struct {
	Kind     OutcomeKind
	Response *http.Response
	Attempts int
	Err      error
}

// OutcomeKind discriminates Outcome.
type OutcomeKind int

const (
	// Success: Response holds a 2xx (or otherwise non-retryable, non-error)
	// response.
	Success OutcomeKind = iota
	// HTTPError: retries were exhausted against a retryable HTTP status;
	// Response holds the last response received.
	HTTPError
	// ConnectionError: a transport-level error occurred on attempt > 0.
	ConnectionError
	// NonRetryable: a transport-level error occurred on the first attempt,
	// or the request builder itself failed.
	NonRetryable
)

var retryableStatus = map[int]bool{
	408: true, 409: true, 429: true,
	500: true, 502: true, 503: true, 504: true,
}

func isRetryableStatus(code int) bool {
	if retryableStatus[code] {
		return true
	}
	return code >= 520 && code <= 599
}

// RequestBuilder constructs a fresh *http.Request for each attempt (the
// body must be re-readable on every call).
type RequestBuilder func() (*http.Request, error)

// SendWithRetry executes build, retrying on retryable statuses and
// transport errors per cfg. The same Idempotency-Key header value is sent
// on every attempt of a single logical request.
func SendWithRetry(ctx context.Context, client *http.Client, build RequestBuilder, cfg Config, timeout time.Duration) Outcome {
	idempotencyKey := "stainless-retry-" + uuid.NewString()

	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return Outcome{Kind: NonRetryable, Err: fmt.Errorf("retry: building request: %w", err), Attempts: attempt}
		}
		req = req.WithContext(ctx)
		req.Header.Set("Idempotency-Key", idempotencyKey)
		req.Header.Set("X-Stainless-Retry-Count", strconv.Itoa(attempt))
		if timeout > 0 {
			req.Header.Set("X-Stainless-Timeout", strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64))
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if attempt == 0 {
				return Outcome{Kind: NonRetryable, Err: err, Attempts: attempt + 1}
			}
			if attempt == cfg.MaxRetries {
				return Outcome{Kind: ConnectionError, Err: err, Attempts: attempt + 1}
			}
			sleep(ctx, delayFor(cfg, attempt, nil))
			continue
		}

		if !shouldRetryResponse(resp) {
			return Outcome{Kind: Success, Response: resp, Attempts: attempt + 1}
		}

		lastResp = resp
		if attempt == cfg.MaxRetries {
			return Outcome{Kind: HTTPError, Response: resp, Attempts: attempt + 1}
		}
		sleep(ctx, delayFor(cfg, attempt, resp))
		drainAndClose(resp)
	}

	if lastResp != nil {
		return Outcome{Kind: HTTPError, Response: lastResp, Attempts: cfg.MaxRetries + 1}
	}
	return Outcome{Kind: ConnectionError, Err: lastErr, Attempts: cfg.MaxRetries + 1}
}

func shouldRetryResponse(resp *http.Response) bool {
	if override := resp.Header.Get("x-should-retry"); override != "" {
		switch override {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return isRetryableStatus(resp.StatusCode)
}

func delayFor(cfg Config, attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if d, ok := retryAfterDelay(resp); ok {
			return d
		}
	}
	base := cfg.InitialDelay * time.Duration(1<<uint(attempt))
	if base > cfg.MaxDelay {
		base = cfg.MaxDelay
	}
	jitter := 1.0 - cfg.JitterFactor*rand.Float64()
	return time.Duration(float64(base) * jitter)
}

func retryAfterDelay(resp *http.Response) (time.Duration, bool) {
	if ms := resp.Header.Get("Retry-After-Ms"); ms != "" {
		if v, err := strconv.ParseFloat(ms, 64); err == nil && v > 0 && v < 60_000 {
			return time.Duration(v) * time.Millisecond, true
		}
	}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 && v < 60 {
			return time.Duration(v * float64(time.Second)), true
		}
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_ = resp.Body.Close()
}

// IsTimeout reports whether err represents a context deadline/cancellation,
// useful for callers translating a ConnectionError/NonRetryable outcome
// into the Resource-error taxonomy.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
