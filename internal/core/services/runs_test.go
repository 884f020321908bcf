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

package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/commands"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var testLogger = otelslog.NewLogger("services-test")

// fakeWorkflow stands in for the generation chain: it publishes a status
// line, drops a temp file on disk the way the video stages do, and records
// the path so tests can assert on cleanup. A positive chatter count emits
// that many extra status lines, mimicking a long polling stage.
type fakeWorkflow struct {
	fail    bool
	chatter int

	mu        sync.Mutex
	tempFiles []string
}

func (f *fakeWorkflow) Execute(chainCtx cor.Context) {
	run := chainCtx.Get(commands.CtxPipelineRun).(*model.PipelineRun)
	testLogger.Info("fake pipeline executing", "run", run.ID)
	chainCtx.Notify(model.StageVideo, "generating video")
	for i := 0; i < f.chatter; i++ {
		chainCtx.Notify(model.StageVideo, fmt.Sprintf("still polling the operation (%d)", i))
	}
	if f.fail {
		chainCtx.AddError("generate-video", errors.New("operation failed: generation rejected"))
		return
	}
	tmp, err := os.CreateTemp("", "fake-video-*.mp4")
	if err != nil {
		chainCtx.AddError("generate-video", err)
		return
	}
	_ = tmp.Close()
	chainCtx.AddTempFile(tmp.Name())
	f.mu.Lock()
	f.tempFiles = append(f.tempFiles, tmp.Name())
	f.mu.Unlock()

	run.Videos = append(run.Videos, &model.VideoAsset{URI: "operations/abc", LocalPath: tmp.Name()})
	chainCtx.Add(cor.CtxOut, run.Videos)
}

func (f *fakeWorkflow) lastTempFile() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tempFiles) == 0 {
		return ""
	}
	return f.tempFiles[len(f.tempFiles)-1]
}

func validRequest() *model.GenerationRequest {
	return &model.GenerationRequest{Topic: "why octopuses dream", TargetDurationSeconds: 20}
}

func waitForStage(t *testing.T, svc *services.RunService, id, stage string) {
	t.Helper()
	require.Eventually(t, func() bool {
		run, err := svc.Get(id)
		return err == nil && run.Stage == stage
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunServiceRejectsInvalidRequests(t *testing.T) {
	svc := services.NewRunService(context.Background(), &fakeWorkflow{}, 1)
	defer svc.Shutdown()

	_, err := svc.Submit(nil)
	assert.Error(t, err)
	_, err = svc.Submit(&model.GenerationRequest{TargetDurationSeconds: 20})
	assert.Error(t, err)
	_, err = svc.Submit(&model.GenerationRequest{Topic: "t", TargetDurationSeconds: 0})
	assert.Error(t, err)
}

func TestRunServiceLifecycle(t *testing.T) {
	workflow := &fakeWorkflow{}
	svc := services.NewRunService(context.Background(), workflow, 2)
	defer svc.Shutdown()

	run, err := svc.Submit(validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.StageMetadata, run.Stage)

	waitForStage(t, svc, run.ID, model.StageAssetReady)

	got, err := svc.Get(run.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Error)
	assert.NotNil(t, got.CurrentVideo())
	assert.NotEmpty(t, got.History)

	// A finished run keeps its video on disk until the run is deleted.
	tempFile := workflow.lastTempFile()
	require.NotEmpty(t, tempFile)
	_, err = os.Stat(tempFile)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(run.ID))
	_, err = svc.Get(run.ID)
	assert.ErrorIs(t, err, services.ErrRunNotFound)
	_, err = os.Stat(tempFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRunServiceFailedRunDiscardsArtifacts(t *testing.T) {
	svc := services.NewRunService(context.Background(), &fakeWorkflow{fail: true}, 1)
	defer svc.Shutdown()

	run, err := svc.Submit(validRequest())
	require.NoError(t, err)

	waitForStage(t, svc, run.ID, services.RunStageFailed)

	got, err := svc.Get(run.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Error, "generate-video")
	assert.Contains(t, got.Error, "generation rejected")
	assert.Nil(t, got.CurrentVideo())
}

func TestRunServiceUnknownIDs(t *testing.T) {
	svc := services.NewRunService(context.Background(), &fakeWorkflow{}, 1)
	defer svc.Shutdown()

	_, err := svc.Get("nope")
	assert.ErrorIs(t, err, services.ErrRunNotFound)
	assert.ErrorIs(t, svc.Cancel("nope"), services.ErrRunNotFound)
	assert.ErrorIs(t, svc.Delete("nope"), services.ErrRunNotFound)
}

func TestRunServiceGetIsSafeToSerializeDuringRun(t *testing.T) {
	workflow := &fakeWorkflow{chatter: 500}
	svc := services.NewRunService(context.Background(), workflow, 1)
	defer svc.Shutdown()

	run, err := svc.Submit(validRequest())
	require.NoError(t, err)

	// Serialize the run repeatedly while the worker is still streaming
	// status updates into it, the way API readers do.
	done := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if got, err := svc.Get(run.ID); err == nil {
				_, _ = json.Marshal(got)
			}
		}
	}()

	waitForStage(t, svc, run.ID, model.StageAssetReady)
	close(done)
	readers.Wait()
}

func TestRunServiceGetReturnsIndependentCopies(t *testing.T) {
	svc := services.NewRunService(context.Background(), &fakeWorkflow{}, 1)
	defer svc.Shutdown()

	run, err := svc.Submit(validRequest())
	require.NoError(t, err)
	waitForStage(t, svc, run.ID, model.StageAssetReady)

	got, err := svc.Get(run.ID)
	require.NoError(t, err)
	got.Stage = "mangled"
	got.History = append(got.History, model.StatusEvent{Stage: "mangled", Message: "nope"})

	again, err := svc.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StageAssetReady, again.Stage)
	assert.NotContains(t, again.History, model.StatusEvent{Stage: "mangled", Message: "nope"})
}

func TestRunServiceRefusesSubmitAfterShutdown(t *testing.T) {
	svc := services.NewRunService(context.Background(), &fakeWorkflow{}, 1)
	svc.Shutdown()

	_, err := svc.Submit(validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shut down")
}

func TestRunServiceListNewestFirst(t *testing.T) {
	svc := services.NewRunService(context.Background(), &fakeWorkflow{}, 2)
	defer svc.Shutdown()

	first, err := svc.Submit(validRequest())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Submit(validRequest())
	require.NoError(t, err)

	runs := svc.List()
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}
