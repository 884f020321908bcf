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

package commands

import (
	"fmt"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
)

// CaptionRescaler stretches the caption timeline to match the synthesized
// audio. The script model writes timings against an assumed total span (the
// end of its last caption); the speech model rarely lands on exactly that
// length, so every segment is scaled by actual/assumed. The audio asset
// passes through unchanged as the stage output.
type CaptionRescaler struct {
	cor.BaseCommand
}

func NewCaptionRescaler(name string) *CaptionRescaler {
	return &CaptionRescaler{BaseCommand: *cor.NewBaseCommand(name)}
}

func (t *CaptionRescaler) Execute(context cor.Context) {
	audio := context.Get(t.GetInputParam()).(*model.AudioAsset)
	run := GetRun(context)
	if run == nil || run.Metadata == nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("no script metadata available for caption rescaling"))
		return
	}

	assumed := run.Metadata.CaptionSpanSeconds()
	actual := audio.DurationSeconds()
	model.RescaleCaptions(run.Metadata.CaptionSegments, actual, assumed)
	context.Notify(model.StageAudio,
		fmt.Sprintf("aligned %d captions to %.1fs of narration", len(run.Metadata.CaptionSegments), actual))

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), audio)
}
