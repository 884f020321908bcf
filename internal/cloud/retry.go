// Copyright 2025 ViralVibe Studio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides the clients for the remote generation services and
// the resilience layer every remote call goes through. This file implements
// the retry wrapper: each failure is classified as quota, transient, or
// fatal, and the wrapper applies the matching wait strategy. Quota failures
// back off exponentially with jitter, transient failures wait a short fixed
// delay, fatal failures propagate immediately. Exhausting the attempt budget
// yields a RetryExhaustedError so callers can report "gave up after N
// attempts" instead of the last raw error.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"time"
)

// ErrorClass is the retry classification of a remote failure.
type ErrorClass int

const (
	// ClassFatal errors are never retried.
	ClassFatal ErrorClass = iota
	// ClassQuota errors (rate limit, resource exhaustion) retry with
	// exponential backoff.
	ClassQuota
	// ClassTransient errors (server error, flaky network) retry after a
	// short fixed delay.
	ClassTransient
)

// APIStatusError is a non-2xx response from one of the REST endpoints.
type APIStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("remote call failed: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

// Classify assigns exactly one ErrorClass to a failure. Structured status
// errors are classified by HTTP code; everything else falls back to the
// message heuristics the remote APIs are known to emit.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassFatal
	}
	// A cancelled or expired context must not be retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var statusErr *APIStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == 429:
			return ClassQuota
		case statusErr.StatusCode >= 500:
			return ClassTransient
		default:
			return ClassFatal
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassTransient
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "RESOURCE_EXHAUSTED"),
		strings.Contains(strings.ToLower(msg), "quota"):
		return ClassQuota
	case strings.Contains(msg, "500"),
		strings.Contains(msg, "503"),
		strings.Contains(strings.ToLower(msg), "unavailable"),
		strings.Contains(strings.ToLower(msg), "internal error"),
		strings.Contains(strings.ToLower(msg), "connection reset"):
		return ClassTransient
	}
	return ClassFatal
}

// RetryPolicy configures the wrapper. Defaults are deliberately
// conservative; every call site loads its policy from configuration rather
// than hardcoding one set of values.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int
	// BaseDelay is the first quota backoff delay.
	BaseDelay time.Duration
	// Multiplier grows the quota delay each attempt. Values >= 1 keep the
	// delay sequence non-decreasing.
	Multiplier float64
	// MaxJitter is the upper bound of the random delay added to each quota
	// backoff.
	MaxJitter time.Duration
	// TransientDelay is the fixed wait after a transient failure.
	TransientDelay time.Duration
}

// DefaultRetryPolicy mirrors the settings shipped in configs/.env.toml.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    6,
		BaseDelay:      20 * time.Second,
		Multiplier:     1.8,
		MaxJitter:      3 * time.Second,
		TransientDelay: 3 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.TransientDelay <= 0 {
		p.TransientDelay = d.TransientDelay
	}
	return p
}

// BackoffDelay returns the quota wait for a zero-based attempt index:
// BaseDelay × Multiplier^attempt, plus up to MaxJitter of random slack.
func (p RetryPolicy) BackoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if p.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.MaxJitter)))
	}
	return delay
}

// RetryExhaustedError is the terminal error after the attempt budget is
// spent. It is distinguishable from the underlying cause, which remains
// reachable through Unwrap.
type RetryExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Cause
}

// ProgressFunc receives one human-readable line per second of wait so a UI
// or log consumer can show a live countdown.
type ProgressFunc func(message string)

// Call invokes fn under the retry policy. The progress callback, when
// non-nil, is invoked before every wait and once per second during quota
// countdowns; it is never silently dropped on a retried failure.
func Call[T any](ctx context.Context, policy RetryPolicy, progress ProgressFunc, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	p := policy.withDefaults()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		switch Classify(err) {
		case ClassFatal:
			return zero, err
		case ClassQuota:
			if attempt == p.MaxAttempts-1 {
				break
			}
			if waitErr := countdownWait(ctx, p.BackoffDelay(attempt), progress); waitErr != nil {
				return zero, waitErr
			}
		case ClassTransient:
			if attempt == p.MaxAttempts-1 {
				break
			}
			notify(progress, fmt.Sprintf("temporary failure, retrying in %s", p.TransientDelay))
			if waitErr := sleepContext(ctx, p.TransientDelay); waitErr != nil {
				return zero, waitErr
			}
		}
	}
	return zero, &RetryExhaustedError{Attempts: p.MaxAttempts, Cause: lastErr}
}

func notify(progress ProgressFunc, message string) {
	if progress != nil {
		progress(message)
	}
}

// countdownWait sleeps for the full delay, emitting one progress line per
// remaining second so callers can render a live countdown.
func countdownWait(ctx context.Context, delay time.Duration, progress ProgressFunc) error {
	remaining := delay
	for remaining > 0 {
		notify(progress, fmt.Sprintf("quota exceeded, retrying in %ds", int(math.Ceil(remaining.Seconds()))))
		step := time.Second
		if remaining < step {
			step = remaining
		}
		if err := sleepContext(ctx, step); err != nil {
			return err
		}
		remaining -= step
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
