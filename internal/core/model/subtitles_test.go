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

package model_test

import (
	"testing"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatSRTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", model.FormatSRTTimestamp(0))
	assert.Equal(t, "00:00:01,500", model.FormatSRTTimestamp(1.5))
	assert.Equal(t, "00:01:01,500", model.FormatSRTTimestamp(61.5))
	assert.Equal(t, "01:01:01,001", model.FormatSRTTimestamp(3661.001))
	// Negative inputs clamp to zero instead of producing a broken timestamp.
	assert.Equal(t, "00:00:00,000", model.FormatSRTTimestamp(-4))
}

func TestBuildSRT(t *testing.T) {
	segments := []*model.CaptionSegment{
		{Text: "First line", StartSeconds: 0, EndSeconds: 1.25},
		{Text: "Hello", StartSeconds: 61.5, EndSeconds: 63.2},
	}
	want := "1\n00:00:00,000 --> 00:00:01,250\nFirst line\n" +
		"\n" +
		"2\n00:01:01,500 --> 00:01:03,200\nHello\n"
	assert.Equal(t, want, model.BuildSRT(segments))
	assert.Equal(t, "", model.BuildSRT(nil))
}

func TestRescaleCaptions(t *testing.T) {
	segments := []*model.CaptionSegment{
		{Text: "a", StartSeconds: 0, EndSeconds: 9},
		{Text: "b", StartSeconds: 9, EndSeconds: 18},
	}
	// Narration came out at 20s against an assumed 18s timeline.
	model.RescaleCaptions(segments, 20, 18)
	assert.InDelta(t, 0, segments[0].StartSeconds, 1e-9)
	assert.InDelta(t, 10, segments[0].EndSeconds, 1e-9)
	assert.InDelta(t, 10, segments[1].StartSeconds, 1e-9)
	assert.InDelta(t, 20, segments[1].EndSeconds, 1e-9)

	// Ordering and positive durations survive any positive ratio.
	assert.Less(t, segments[0].StartSeconds, segments[0].EndSeconds)
	assert.LessOrEqual(t, segments[0].EndSeconds, segments[1].StartSeconds)
}

func TestRescaleCaptionsNoAssumedSpan(t *testing.T) {
	segments := []*model.CaptionSegment{{Text: "a", StartSeconds: 1, EndSeconds: 2}}
	model.RescaleCaptions(segments, 20, 0)
	assert.Equal(t, 1.0, segments[0].StartSeconds)
	assert.Equal(t, 2.0, segments[0].EndSeconds)
}

func TestCaptionSpanSeconds(t *testing.T) {
	metadata := model.GetExampleScriptMetadata()
	assert.Equal(t, 4.5, metadata.CaptionSpanSeconds())
	empty := &model.ScriptMetadata{}
	assert.Equal(t, 0.0, empty.CaptionSpanSeconds())
}
