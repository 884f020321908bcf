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

// Package model defines the data structures that flow through one
// generation run. Everything here is transient: it lives for the duration of
// a single pipeline execution and is discarded (or serialized by a caller)
// after export or failure. Nothing is persisted by this service.
package model

import "time"

// GenerationRequest is the immutable input to one pipeline run.
type GenerationRequest struct {
	Topic                 string `json:"topic"`
	TemplateStyle         string `json:"template_style,omitempty"`
	TargetDurationSeconds int    `json:"target_duration_seconds"`
	VoiceID               string `json:"voice_id,omitempty"`
	SourceImage           []byte `json:"source_image,omitempty"`
}

// CaptionSegment is one timed caption line. The ID is assigned at parse
// time as a sequential index; the model is never asked to supply one.
// Invariant: 0 <= StartSeconds < EndSeconds. Segments are not guaranteed to
// be contiguous or non-overlapping, since they come from an untrusted
// generator.
type CaptionSegment struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"start"`
	EndSeconds   float64 `json:"end"`
}

// ViralCaption is an alternative social caption suggestion, labeled with the
// persuasion style it uses.
type ViralCaption struct {
	Style string `json:"style"`
	Text  string `json:"text"`
}

// ScriptBeat is one structural beat of the script timeline (hook, body,
// payoff, call to action).
type ScriptBeat struct {
	ID          string  `json:"id"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
}

// ScriptMetadata is the structured package recovered from a single
// script-generation response. The JSON field names match what the prompt
// instructs the model to emit.
type ScriptMetadata struct {
	Titles             []string          `json:"catchyTitles"`
	Hashtags           []string          `json:"hashtags"`
	Description        string            `json:"description"`
	ViralCaptions      []*ViralCaption   `json:"viralCaptions,omitempty"`
	CaptionSegments    []*CaptionSegment `json:"subtitles"`
	ScriptBeats        []*ScriptBeat     `json:"scriptBeats,omitempty"`
	VisualMotionPrompt string            `json:"visualPrompt"`
}

// CaptionSpanSeconds returns the end of the latest caption, i.e. the total
// span the model assumed for the script timeline.
func (m *ScriptMetadata) CaptionSpanSeconds() float64 {
	var span float64
	for _, s := range m.CaptionSegments {
		if s.EndSeconds > span {
			span = s.EndSeconds
		}
	}
	return span
}

// AudioAsset holds decoded linear PCM from the speech synthesizer. Its
// lifetime ends once it has been encoded into a playable container.
type AudioAsset struct {
	SampleRate   int
	ChannelCount int
	RawSamples   []int16
}

// DurationSeconds derives the playback length from the sample count.
func (a *AudioAsset) DurationSeconds() float64 {
	if a == nil || a.SampleRate <= 0 || a.ChannelCount <= 0 {
		return 0
	}
	return float64(len(a.RawSamples)) / float64(a.SampleRate*a.ChannelCount)
}

// VideoAsset is one resolved video generation result: the remote locator
// and, once fetched, a local copy on disk.
type VideoAsset struct {
	URI       string
	LocalPath string
}

// StatusEvent is one progress line published by a pipeline stage.
type StatusEvent struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Run stages, in execution order.
const (
	StageMetadata   = "metadata"
	StageAudio      = "audio"
	StageVideo      = "video"
	StageExtension  = "extension"
	StageAssetReady = "asset-ready"
	StageExport     = "export"
)

// PipelineRun aggregates everything produced for one request: the parsed
// metadata, the synthesized audio, and the video chain (initial clip plus
// extensions, logically one continuous video whose newest entry is the
// current result).
type PipelineRun struct {
	ID       string             `json:"id"`
	Request  *GenerationRequest `json:"request"`
	Metadata *ScriptMetadata    `json:"metadata,omitempty"`
	Audio    *AudioAsset        `json:"-"`
	Videos   []*VideoAsset      `json:"-"`

	Stage         string        `json:"stage"`
	StatusMessage string        `json:"status_message"`
	History       []StatusEvent `json:"history,omitempty"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CurrentVideo returns the newest resolved video in the chain, or nil.
func (r *PipelineRun) CurrentVideo() *VideoAsset {
	if len(r.Videos) == 0 {
		return nil
	}
	return r.Videos[len(r.Videos)-1]
}

// Export modes. Burn re-encodes with the subtitles composited into the
// frame; Soft stream-copies the source and adds a toggleable subtitle track.
const (
	ExportModeBurn = "burn"
	ExportModeSoft = "soft"
)

// ExportRequest is the wire contract of the export endpoint.
type ExportRequest struct {
	VideoLocator string `json:"videoLocator"`
	AudioBase64  string `json:"audioBase64,omitempty"`
	SRT          string `json:"srt"`
	Mode         string `json:"mode"`
	Filename     string `json:"filename"`
}
