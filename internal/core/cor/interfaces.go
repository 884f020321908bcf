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

// Package cor (Chain of Responsibility) provides the building blocks the
// generation pipeline is assembled from. A workflow is a Chain of Commands
// sharing one Context; each command reads its input from the context,
// performs one stage of work, and writes its output back for the next
// command. The context also collects stage-keyed errors, tracks temporary
// files for end-of-run cleanup, and carries a status sink so stages can
// publish one human-readable progress line at a time.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys the chain uses to pipe the primary output of
// one command into the primary input of the next.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// StatusFunc receives one progress line for a named pipeline stage. The
// chain guarantees calls are sequential for a single run, so implementations
// never see conflicting concurrent updates for the same run.
type StatusFunc func(stage string, message string)

// Context is the shared state object threaded through a chain execution.
type Context interface {
	// SetContext sets the standard Go context used for cancellation and
	// trace propagation.
	SetContext(context context.Context)

	// GetContext returns the standard Go context.
	GetContext() context.Context

	// Add stores a key-value pair; it returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// AddError records a stage failure keyed by the command name.
	AddError(key string, err error)

	// GetErrors returns all errors collected so far.
	GetErrors() map[string]error

	// HasErrors reports whether any command has failed.
	HasErrors() bool

	// SetStatusFunc installs the progress sink used by Notify.
	SetStatusFunc(fn StatusFunc)

	// Notify publishes one progress line for a stage. Safe to call with no
	// sink installed.
	Notify(stage string, message string)

	// AddTempFile registers a file or directory for removal at Close.
	AddTempFile(file string)

	// GetTempFiles returns the registered temporary paths.
	GetTempFiles() []string

	// Close removes every registered temporary path. Defer it at the start
	// of a workflow so artifacts are cleaned up on success and failure alike.
	Close()
}

// Executable is anything with a single unit of business logic.
type Executable interface {
	Execute(context Context)
}

// Command is one atomic, testable pipeline stage.
type Command interface {
	Executable

	// GetName returns the command name used for error keys, logs and spans.
	GetName() string

	// GetInputParam returns the context key for the command's primary input.
	GetInputParam() string

	// GetOutputParam returns the context key for the command's primary output.
	GetOutputParam() string

	// IsExecutable reports whether the context holds everything the command
	// needs to run.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command composed of an ordered sequence of Commands, so chains
// can nest inside other chains.
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after a
	// command records an error. The pipeline default is to stop: no stage may
	// proceed with defaulted data from a failed predecessor.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
