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

func fastPoller(maxPolls int) cloud.PollerConfig {
	return cloud.PollerConfig{
		ColdStart: time.Millisecond,
		Interval:  time.Millisecond,
		MaxPolls:  maxPolls,
	}
}

// An operation that reports running N times resolves in exactly N+1 queries.
func TestAwaitResolvesWithExactQueryCount(t *testing.T) {
	const pendingPolls = 3
	queries := 0
	op, err := cloud.Await(context.Background(), fastPoller(10), "operations/op-1", nil,
		func(ctx context.Context) (*cloud.VideoOperation, error) {
			queries++
			if queries <= pendingPolls {
				return &cloud.VideoOperation{Name: "operations/op-1"}, nil
			}
			return &cloud.VideoOperation{Name: "operations/op-1", Done: true}, nil
		})
	require.NoError(t, err)
	assert.True(t, op.Done)
	assert.Equal(t, pendingPolls+1, queries)
}

func TestAwaitReportsOperationFailure(t *testing.T) {
	_, err := cloud.Await(context.Background(), fastPoller(5), "operations/op-2", nil,
		func(ctx context.Context) (*cloud.VideoOperation, error) {
			return &cloud.VideoOperation{
				Name:  "operations/op-2",
				Done:  true,
				Error: &cloud.OperationError{Code: 13, Message: "generation rejected"},
			}, nil
		})
	var failed *cloud.OperationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "generation rejected", failed.Message)
	assert.NotErrorIs(t, err, cloud.ErrPollTimeout, "a terminal failure is not a timeout")
}

func TestAwaitTimesOutAfterBudget(t *testing.T) {
	queries := 0
	_, err := cloud.Await(context.Background(), fastPoller(4), "operations/op-3", nil,
		func(ctx context.Context) (*cloud.VideoOperation, error) {
			queries++
			return &cloud.VideoOperation{Name: "operations/op-3"}, nil
		})
	assert.ErrorIs(t, err, cloud.ErrPollTimeout)
	assert.Equal(t, 4, queries)
}

func TestAwaitPropagatesQueryErrors(t *testing.T) {
	boom := errors.New("network down")
	_, err := cloud.Await(context.Background(), fastPoller(5), "operations/op-4", nil,
		func(ctx context.Context) (*cloud.VideoOperation, error) {
			return nil, boom
		})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, cloud.ErrPollTimeout)
}

// A cancellation mid-poll still makes one final query; an operation that
// completed at the deadline is returned instead of being reported lost.
func TestAwaitFinalQueryAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	queries := 0
	op, err := cloud.Await(ctx, cloud.PollerConfig{ColdStart: time.Millisecond, Interval: time.Hour, MaxPolls: 5},
		"operations/op-5", nil,
		func(ctx context.Context) (*cloud.VideoOperation, error) {
			queries++
			if queries == 1 {
				cancel()
				return &cloud.VideoOperation{Name: "operations/op-5"}, nil
			}
			return &cloud.VideoOperation{Name: "operations/op-5", Done: true}, nil
		})
	require.NoError(t, err)
	assert.True(t, op.Done)
}
