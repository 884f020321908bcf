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

// Package services exposes the application-level operations behind the API:
// run management for the generation pipeline and the export muxer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/commands"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
)

// ErrRunNotFound is returned for lookups of unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// RunStageFailed marks a run whose pipeline recorded an error.
const RunStageFailed = "failed"

type runEntry struct {
	run    *model.PipelineRun
	ctx    context.Context
	cancel context.CancelFunc
	// chainCtx owns the run's temporary files. It is closed when the run is
	// deleted or when the pipeline fails; a successful run keeps its video
	// on disk until the caller deletes the run.
	chainCtx cor.Context
}

// RunService owns the lifecycle of generation runs: submission onto a
// bounded worker pool, status tracking, cancellation, and cleanup. Runs are
// held in memory only; deleting a run discards its artifacts.
type RunService struct {
	workflow cor.Executable
	queue    chan string

	mu      sync.Mutex
	entries map[string]*runEntry
	closed  bool

	baseCtx context.Context
	wg      sync.WaitGroup
	// submitWG tracks submissions between the registration and the queue
	// send, so Shutdown never closes the queue under a pending send.
	submitWG sync.WaitGroup
}

// NewRunService starts `workers` pipeline workers feeding from the
// submission queue. baseCtx bounds every run; canceling it stops the pool.
func NewRunService(baseCtx context.Context, workflow cor.Executable, workers int) *RunService {
	if workers <= 0 {
		workers = 1
	}
	s := &RunService{
		workflow: workflow,
		queue:    make(chan string, workers*4),
		entries:  make(map[string]*runEntry),
		baseCtx:  baseCtx,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Submit validates the request, registers a new run, and queues it for the
// next free worker.
func (s *RunService) Submit(request *model.GenerationRequest) (*model.PipelineRun, error) {
	if request == nil || request.Topic == "" {
		return nil, fmt.Errorf("a generation request needs a topic")
	}
	if request.TargetDurationSeconds <= 0 {
		return nil, fmt.Errorf("a generation request needs a positive target duration")
	}

	now := time.Now()
	run := &model.PipelineRun{
		ID:        uuid.NewString(),
		Request:   request,
		Stage:     model.StageMetadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("run service is shut down")
	}
	s.entries[run.ID] = &runEntry{run: run, ctx: runCtx, cancel: cancel}
	out := snapshotRun(run)
	s.submitWG.Add(1)
	s.mu.Unlock()
	defer s.submitWG.Done()

	// A full queue still accepts the run; block until a slot frees up
	// rather than rejecting work the pool will get to. Submission order is
	// preserved because the send happens on the caller's goroutine.
	select {
	case s.queue <- run.ID:
	case <-s.baseCtx.Done():
		_ = s.Delete(run.ID)
		return nil, s.baseCtx.Err()
	}
	return out, nil
}

// snapshotRun copies the fields a caller may serialize while a worker keeps
// mutating the live run. Must be called with s.mu held. Metadata and the
// media assets are written by pipeline commands outside the service mutex,
// so they are only exposed once the run is terminal; by then the worker has
// published them under the mutex and stopped writing.
func snapshotRun(run *model.PipelineRun) *model.PipelineRun {
	out := &model.PipelineRun{
		ID:            run.ID,
		Request:       run.Request,
		Stage:         run.Stage,
		StatusMessage: run.StatusMessage,
		History:       append([]model.StatusEvent(nil), run.History...),
		Error:         run.Error,
		CreatedAt:     run.CreatedAt,
		UpdatedAt:     run.UpdatedAt,
	}
	if run.Stage == model.StageAssetReady || run.Stage == RunStageFailed {
		out.Metadata = run.Metadata
		out.Audio = run.Audio
		out.Videos = append([]*model.VideoAsset(nil), run.Videos...)
	}
	return out
}

// Get returns a point-in-time copy of the run for the given ID.
func (s *RunService) Get(id string) (*model.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return snapshotRun(entry.run), nil
}

// List returns a point-in-time copy of every known run, newest first.
func (s *RunService) List() []*model.PipelineRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.PipelineRun, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, snapshotRun(entry.run))
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Cancel stops an in-flight run. Already finished runs are unaffected.
func (s *RunService) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return ErrRunNotFound
	}
	entry.cancel()
	return nil
}

// Delete cancels the run if needed and discards its artifacts.
func (s *RunService) Delete(id string) error {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrRunNotFound
	}
	entry.cancel()
	if entry.chainCtx != nil {
		entry.chainCtx.Close()
	}
	return nil
}

// Shutdown drains the worker pool and removes every run's artifacts. New
// submissions are refused once it starts.
func (s *RunService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.submitWG.Wait()
	close(s.queue)
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		entry.cancel()
		if entry.chainCtx != nil {
			entry.chainCtx.Close()
		}
		delete(s.entries, id)
	}
}

func (s *RunService) worker() {
	defer s.wg.Done()
	for id := range s.queue {
		s.execute(id)
	}
}

func (s *RunService) execute(id string) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		// Deleted before a worker picked it up.
		return
	}
	run := entry.run
	defer entry.cancel()

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(entry.ctx)
	chainCtx.Add(commands.CtxPipelineRun, run)
	chainCtx.Add(cor.CtxIn, run.Request)
	chainCtx.SetStatusFunc(func(stage, message string) {
		s.mu.Lock()
		run.Stage = stage
		run.StatusMessage = message
		run.History = append(run.History, model.StatusEvent{Stage: stage, Message: message, Time: time.Now()})
		run.UpdatedAt = time.Now()
		s.mu.Unlock()
		slog.Info("pipeline status", "run", run.ID, "stage", stage, "message", message)
	})

	s.workflow.Execute(chainCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry.chainCtx = chainCtx
	run.UpdatedAt = time.Now()
	if chainCtx.HasErrors() {
		for stage, err := range chainCtx.GetErrors() {
			run.Error = fmt.Sprintf("%s: %v", stage, err)
			slog.Error("pipeline failed", "run", run.ID, "stage", stage, "error", err)
			break
		}
		run.Stage = RunStageFailed
		// A failed run keeps nothing on disk.
		chainCtx.Close()
		entry.chainCtx = nil
		return
	}
	run.Stage = model.StageAssetReady
	run.StatusMessage = "video and narration are ready for export"
	slog.Info("pipeline completed", "run", run.ID, "videos", len(run.Videos))
}
