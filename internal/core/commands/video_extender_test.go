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

package commands_test

import (
	"context"
	"testing"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/commands"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionCount(t *testing.T) {
	// 20s target from a 6s clip in 7s steps needs two rounds.
	assert.Equal(t, 2, commands.ExtensionCount(20, 6, 7))
	// A target at or below the initial duration needs none.
	assert.Equal(t, 0, commands.ExtensionCount(6, 6, 7))
	assert.Equal(t, 0, commands.ExtensionCount(5, 6, 7))
	// An exact fit does not add a spare round.
	assert.Equal(t, 2, commands.ExtensionCount(20, 6, 7))
	assert.Equal(t, 1, commands.ExtensionCount(13, 6, 7))
	assert.Equal(t, 2, commands.ExtensionCount(14, 6, 7))
	// A degenerate step disables extension rather than looping forever.
	assert.Equal(t, 0, commands.ExtensionCount(20, 6, 0))
}

func TestVideoExtenderKeepsClipWhenTargetCovered(t *testing.T) {
	run := &model.PipelineRun{
		ID:      "run-1",
		Request: &model.GenerationRequest{Topic: "tide pools", TargetDurationSeconds: 6},
	}
	asset := &model.VideoAsset{URI: "https://example.com/clip.mp4", LocalPath: "/tmp/clip.mp4"}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(commands.CtxPipelineRun, run)
	chainCtx.Add(cor.CtxIn, asset)

	settings := cloud.VideoModel{InitialDurationInSeconds: 8, ExtensionStepInSeconds: 7}
	cmd := commands.NewVideoExtender("extend-video", nil, settings, cloud.RetryPolicy{}, cloud.PollerConfig{})
	cmd.Execute(chainCtx)

	// No extension rounds are needed, so the input clip passes through and
	// the client is never touched.
	require.False(t, chainCtx.HasErrors())
	assert.Same(t, asset, chainCtx.Get(cor.CtxOut))
}

func TestVideoExtenderRequiresRun(t *testing.T) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, &model.VideoAsset{URI: "https://example.com/clip.mp4"})

	cmd := commands.NewVideoExtender("extend-video", nil, cloud.VideoModel{}, cloud.RetryPolicy{}, cloud.PollerConfig{})
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
}
