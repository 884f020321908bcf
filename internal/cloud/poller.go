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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollTimeout is returned when an operation does not complete within the
// configured polling budget.
var ErrPollTimeout = errors.New("operation did not complete within the polling budget")

// OperationFailedError is returned when the remote operation itself reports
// a terminal failure. It is distinct from a timeout: the operation finished,
// it just did not succeed.
type OperationFailedError struct {
	Name    string
	Message string
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("operation %s failed: %s", e.Name, e.Message)
}

// PollerConfig describes the fixed-interval polling schedule for one
// long-running operation.
type PollerConfig struct {
	// ColdStart is the initial wait before the first status query. Video
	// generation never finishes in the first few seconds, so querying
	// earlier only burns quota.
	ColdStart time.Duration
	// Interval is the fixed wait between status queries.
	Interval time.Duration
	// MaxPolls caps the number of status queries after the cold start.
	MaxPolls int
}

// DefaultPollerConfig mirrors the settings shipped in configs/.env.toml.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		ColdStart: 15 * time.Second,
		Interval:  10 * time.Second,
		MaxPolls:  60,
	}
}

func (c PollerConfig) withDefaults() PollerConfig {
	d := DefaultPollerConfig()
	if c.ColdStart <= 0 {
		c.ColdStart = d.ColdStart
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = d.MaxPolls
	}
	return c
}

// Await polls the named long-running operation until it completes, fails, or
// the poll budget runs out. The query function must return the current
// operation snapshot; query errors propagate immediately rather than being
// swallowed into a timeout. On context cancellation one best-effort final
// query is made so an operation that finished right at the deadline is not
// reported lost.
func Await(ctx context.Context, cfg PollerConfig, name string, progress ProgressFunc,
	query func(ctx context.Context) (*VideoOperation, error)) (*VideoOperation, error) {
	c := cfg.withDefaults()

	notify(progress, fmt.Sprintf("operation %s submitted, first check in %s", name, c.ColdStart))
	if err := sleepContext(ctx, c.ColdStart); err != nil {
		return finalQuery(ctx, name, query, err)
	}

	for poll := 1; poll <= c.MaxPolls; poll++ {
		op, err := query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return finalQuery(ctx, name, query, ctx.Err())
			}
			return nil, err
		}
		if op.Done {
			return resolve(name, op)
		}

		notify(progress, fmt.Sprintf("operation %s still running (check %d/%d)", name, poll, c.MaxPolls))
		if poll == c.MaxPolls {
			break
		}
		if err := sleepContext(ctx, c.Interval); err != nil {
			return finalQuery(ctx, name, query, err)
		}
	}
	return nil, fmt.Errorf("%w: %s after %d checks", ErrPollTimeout, name, c.MaxPolls)
}

// resolve turns a completed operation snapshot into a result or a terminal
// failure.
func resolve(name string, op *VideoOperation) (*VideoOperation, error) {
	if op.Error != nil {
		return nil, &OperationFailedError{Name: name, Message: op.Error.Message}
	}
	return op, nil
}

// finalQuery makes one last status check on a detached context after the
// caller's context ended. A completed operation is returned as a success;
// anything else surfaces the original cancellation error.
func finalQuery(ctx context.Context, name string,
	query func(ctx context.Context) (*VideoOperation, error), cause error) (*VideoOperation, error) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if op, err := query(detached); err == nil && op.Done {
		return resolve(name, op)
	}
	return nil, cause
}
