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

package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test waits in the millisecond range.
func fastPolicy(attempts int) cloud.RetryPolicy {
	return cloud.RetryPolicy{
		MaxAttempts:    attempts,
		BaseDelay:      time.Millisecond,
		Multiplier:     2.0,
		MaxJitter:      0,
		TransientDelay: time.Millisecond,
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, cloud.ClassQuota, cloud.Classify(&cloud.APIStatusError{StatusCode: 429, Status: "429 Too Many Requests"}))
	assert.Equal(t, cloud.ClassTransient, cloud.Classify(&cloud.APIStatusError{StatusCode: 503, Status: "503 Service Unavailable"}))
	assert.Equal(t, cloud.ClassFatal, cloud.Classify(&cloud.APIStatusError{StatusCode: 400, Status: "400 Bad Request"}))

	assert.Equal(t, cloud.ClassQuota, cloud.Classify(errors.New("rpc error: RESOURCE_EXHAUSTED")))
	assert.Equal(t, cloud.ClassQuota, cloud.Classify(errors.New("quota exceeded for model")))
	assert.Equal(t, cloud.ClassTransient, cloud.Classify(errors.New("internal error encountered")))
	assert.Equal(t, cloud.ClassFatal, cloud.Classify(errors.New("invalid argument: prompt empty")))

	// A dead context is never retryable, whatever the message says.
	assert.Equal(t, cloud.ClassFatal, cloud.Classify(context.Canceled))
	assert.Equal(t, cloud.ClassFatal, cloud.Classify(context.DeadlineExceeded))
}

// The quota backoff must be non-decreasing when jitter is disabled.
func TestBackoffDelayMonotonic(t *testing.T) {
	policy := cloud.RetryPolicy{BaseDelay: 20 * time.Second, Multiplier: 1.8}
	prev := time.Duration(0)
	for attempt := 0; attempt < 8; attempt++ {
		delay := policy.BackoffDelay(attempt)
		assert.GreaterOrEqual(t, delay, prev, "attempt %d shrank the delay", attempt)
		prev = delay
	}
	assert.Equal(t, 20*time.Second, policy.BackoffDelay(0))
	assert.Equal(t, 36*time.Second, policy.BackoffDelay(1))
}

func TestCallSucceedsAfterQuotaErrors(t *testing.T) {
	calls := 0
	out, err := cloud.Call(context.Background(), fastPolicy(5), nil, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &cloud.APIStatusError{StatusCode: 429, Status: "429 Too Many Requests"}
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, calls)
}

func TestCallStopsOnFatalError(t *testing.T) {
	fatal := errors.New("invalid argument")
	calls := 0
	_, err := cloud.Call(context.Background(), fastPolicy(5), nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)

	var exhausted *cloud.RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted), "a fatal error must not look like retry exhaustion")
}

func TestCallExhaustsAttemptBudget(t *testing.T) {
	cause := &cloud.APIStatusError{StatusCode: 500, Status: "500 Internal Server Error"}
	calls := 0
	_, err := cloud.Call(context.Background(), fastPolicy(4), nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, cause
	})
	assert.Equal(t, 4, calls)

	var exhausted *cloud.RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 4, exhausted.Attempts)
	// The underlying cause stays reachable through the terminal wrapper.
	assert.ErrorIs(t, err, error(cause))
}

func TestCallReportsProgressOnQuotaWait(t *testing.T) {
	var messages []string
	calls := 0
	_, err := cloud.Call(context.Background(), fastPolicy(3), func(m string) { messages = append(messages, m) },
		func(ctx context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, &cloud.APIStatusError{StatusCode: 429, Status: "429 Too Many Requests"}
			}
			return calls, nil
		})
	require.NoError(t, err)
	assert.NotEmpty(t, messages, "a retried quota failure must surface progress")
}

func TestCallHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := cloud.RetryPolicy{
		MaxAttempts:    5,
		BaseDelay:      time.Hour,
		Multiplier:     2.0,
		TransientDelay: time.Hour,
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := cloud.Call(ctx, policy, nil, func(ctx context.Context) (int, error) {
		return 0, &cloud.APIStatusError{StatusCode: 429, Status: "429 Too Many Requests"}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancellation must interrupt the backoff wait")
}
