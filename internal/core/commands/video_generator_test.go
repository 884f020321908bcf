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

func TestVideoGeneratorRequiresMetadata(t *testing.T) {
	run := &model.PipelineRun{
		ID:      "run-1",
		Request: &model.GenerationRequest{Topic: "tide pools", TargetDurationSeconds: 20},
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(commands.CtxPipelineRun, run)

	cmd := commands.NewVideoGenerator("generate-video", nil, cloud.VideoModel{}, cloud.RetryPolicy{}, cloud.PollerConfig{})
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.ErrorContains(t, err, "no script metadata")
	}
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

func TestVideoGeneratorRejectsNonImageSource(t *testing.T) {
	run := &model.PipelineRun{
		ID: "run-2",
		Request: &model.GenerationRequest{
			Topic:                 "tide pools",
			TargetDurationSeconds: 20,
			SourceImage:           []byte("definitely not an image"),
		},
		Metadata: model.GetExampleScriptMetadata(),
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(commands.CtxPipelineRun, run)

	cmd := commands.NewVideoGenerator("generate-video", nil, cloud.VideoModel{}, cloud.RetryPolicy{}, cloud.PollerConfig{})
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.ErrorContains(t, err, "not a recognized image format")
	}
}
