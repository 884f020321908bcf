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
	"strings"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"google.golang.org/genai"
)

// SpeechSynthesizer turns the caption timeline into spoken narration. The
// caption texts are concatenated into one utterance and sent to the speech
// model with the requested prebuilt voice; the response is raw 16-bit PCM
// which is decoded into the run's audio asset.
type SpeechSynthesizer struct {
	cor.BaseCommand
	model    *cloud.QuotaAwareGenerativeModel
	settings cloud.SpeechModel
}

func NewSpeechSynthesizer(
	name string,
	generativeModel *cloud.QuotaAwareGenerativeModel,
	settings cloud.SpeechModel) *SpeechSynthesizer {
	return &SpeechSynthesizer{
		BaseCommand: *cor.NewBaseCommand(name),
		model:       generativeModel,
		settings:    settings,
	}
}

// ResolveVoice maps the requested voice onto the configured catalogue,
// falling back to the default voice for unknown or empty requests.
func (t *SpeechSynthesizer) ResolveVoice(requested string) string {
	for _, voice := range t.settings.Voices {
		if strings.EqualFold(voice, requested) {
			return voice
		}
	}
	return t.settings.DefaultVoice
}

func (t *SpeechSynthesizer) Execute(context cor.Context) {
	metadata := context.Get(t.GetInputParam()).(*model.ScriptMetadata)
	run := GetRun(context)
	context.Notify(model.StageAudio, "synthesizing the narration")

	lines := make([]string, 0, len(metadata.CaptionSegments))
	for _, segment := range metadata.CaptionSegments {
		lines = append(lines, segment.Text)
	}
	narration := strings.Join(lines, " ")

	voice := t.settings.DefaultVoice
	if run != nil && run.Request != nil {
		voice = t.ResolveVoice(run.Request.VoiceID)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := t.model.GenerateWith(context.GetContext(), cloud.NewTextContent(narration), config)
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("speech synthesis failed: %w", err))
		return
	}

	pcm := extractAudioData(resp)
	if len(pcm) == 0 {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("speech model returned no audio data"))
		return
	}

	sampleRate := t.settings.SampleRate
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	audio, err := model.DecodePCM16(pcm, sampleRate, 1)
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), err)
		return
	}

	if run != nil {
		run.Audio = audio
	}
	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), audio)
}

func extractAudioData(resp *genai.GenerateContentResponse) []byte {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}
