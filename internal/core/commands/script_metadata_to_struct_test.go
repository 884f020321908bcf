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
	"encoding/json"
	"testing"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/commands"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChainContext(raw string) (cor.Context, *model.PipelineRun) {
	run := &model.PipelineRun{ID: "test-run"}
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(commands.CtxPipelineRun, run)
	chainCtx.Add(cor.CtxIn, raw)
	return chainCtx, run
}

func TestScriptMetadataToStruct(t *testing.T) {
	raw, err := json.Marshal(model.GetExampleScriptMetadata())
	require.NoError(t, err)

	// The model wrapped the document in a fence; the converter still
	// recovers it.
	chainCtx, run := newChainContext("```json\n" + string(raw) + "\n```")
	cmd := commands.NewScriptMetadataToStruct("convert-script-metadata")
	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	metadata := chainCtx.Get(cor.CtxOut).(*model.ScriptMetadata)
	assert.Same(t, metadata, run.Metadata)
	assert.NotEmpty(t, metadata.VisualMotionPrompt)

	// Caption IDs are sequential indices assigned at parse time.
	require.Len(t, metadata.CaptionSegments, 2)
	assert.Equal(t, "1", metadata.CaptionSegments[0].ID)
	assert.Equal(t, "2", metadata.CaptionSegments[1].ID)
}

func TestScriptMetadataToStructRejectsBadTiming(t *testing.T) {
	raw := `{"catchyTitles":["t"],"subtitles":[{"text":"x","start":2,"end":1}],"visualPrompt":"a shot"}`
	chainCtx, run := newChainContext(raw)
	cmd := commands.NewScriptMetadataToStruct("convert-script-metadata")
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	assert.Nil(t, run.Metadata)
	for _, err := range chainCtx.GetErrors() {
		assert.ErrorIs(t, err, sanitize.ErrMalformed)
	}
}

func TestScriptMetadataToStructRejectsProse(t *testing.T) {
	chainCtx, _ := newChainContext("I cannot help with that request.")
	cmd := commands.NewScriptMetadataToStruct("convert-script-metadata")
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.ErrorIs(t, err, sanitize.ErrMalformed)
	}
}
