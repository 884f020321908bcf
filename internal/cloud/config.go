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

// This file defines the application configuration, loaded from hierarchical
// TOML files (a base .env.toml overridden by an environment-specific
// .env.<runtime>.toml).
package cloud

import (
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings disables content blocking for the generation models.
// The prompts are authored by this service, not end users, so the input is
// trusted.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// RetrySettings is the TOML shape of a RetryPolicy.
type RetrySettings struct {
	MaxAttempts             int     `toml:"max_attempts"`
	BaseDelayInSeconds      int     `toml:"base_delay_in_seconds"`
	Multiplier              float64 `toml:"multiplier"`
	MaxJitterInSeconds      int     `toml:"max_jitter_in_seconds"`
	TransientDelayInSeconds int     `toml:"transient_delay_in_seconds"`
}

// Policy converts the TOML settings to a RetryPolicy. Zero fields fall back
// to the wrapper defaults.
func (r RetrySettings) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    r.MaxAttempts,
		BaseDelay:      time.Duration(r.BaseDelayInSeconds) * time.Second,
		Multiplier:     r.Multiplier,
		MaxJitter:      time.Duration(r.MaxJitterInSeconds) * time.Second,
		TransientDelay: time.Duration(r.TransientDelayInSeconds) * time.Second,
	}
}

// PollerSettings is the TOML shape of a PollerConfig.
type PollerSettings struct {
	ColdStartInSeconds int `toml:"cold_start_in_seconds"`
	IntervalInSeconds  int `toml:"interval_in_seconds"`
	MaxPolls           int `toml:"max_polls"`
}

// Config converts the TOML settings to a PollerConfig.
func (p PollerSettings) Config() PollerConfig {
	return PollerConfig{
		ColdStart: time.Duration(p.ColdStartInSeconds) * time.Second,
		Interval:  time.Duration(p.IntervalInSeconds) * time.Second,
		MaxPolls:  p.MaxPolls,
	}
}

// ScriptModel configures the text model that writes script metadata.
type ScriptModel struct {
	Model                string  `toml:"model"`
	SystemInstructions   string  `toml:"system_instructions"`
	Temperature          float32 `toml:"temperature"`
	TopP                 float32 `toml:"top_p"`
	TopK                 float32 `toml:"top_k"`
	MaxTokens            int32   `toml:"max_tokens"`
	OutputFormat         string  `toml:"output_format"`
	MaxRequestsPerMinute int     `toml:"max_requests_per_minute"`
}

// SpeechModel configures the text-to-speech model and its voice catalogue.
type SpeechModel struct {
	Model                string   `toml:"model"`
	DefaultVoice         string   `toml:"default_voice"`
	Voices               []string `toml:"voices"`
	SampleRate           int      `toml:"sample_rate"`
	MaxRequestsPerMinute int      `toml:"max_requests_per_minute"`
}

// VideoModel configures the video generation model and the duration
// extension behavior.
type VideoModel struct {
	Model                    string `toml:"model"`
	AspectRatio              string `toml:"aspect_ratio"`
	InitialDurationInSeconds int    `toml:"initial_duration_in_seconds"`
	ExtensionStepInSeconds   int    `toml:"extension_step_in_seconds"`
	FailOnExtensionError     bool   `toml:"fail_on_extension_error"`
	MaxRequestsPerMinute     int    `toml:"max_requests_per_minute"`
}

// Transcoder configures the local ffmpeg export step.
type Transcoder struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	BurnStyle  string `toml:"burn_style"`
	CRF        int    `toml:"crf"`
	Preset     string `toml:"preset"`
	Workers    int    `toml:"workers"`
}

// TopicSubscription configures one Pub/Sub subscription used to trigger
// generation runs from upstream systems.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage configures the optional archive bucket for exported videos.
type Storage struct {
	ArchiveBucket string `toml:"archive_bucket"`
}

// PromptTemplates holds the text templates rendered into model prompts.
type PromptTemplates struct {
	Script string `toml:"script"`
}

// Config is the root of the application configuration.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"`
		GoogleLocation  string `toml:"location"`
		APIKey          string `toml:"api_key"`
		ThreadPoolSize  int    `toml:"thread_pool_size"`
	} `toml:"application"`
	Retry              RetrySettings                `toml:"retry"`
	Poller             PollerSettings               `toml:"poller"`
	ScriptModels       map[string]ScriptModel       `toml:"script_models"`
	SpeechModels       map[string]SpeechModel       `toml:"speech_models"`
	VideoModels        map[string]VideoModel        `toml:"video_models"`
	Transcoder         Transcoder                   `toml:"transcoder"`
	Storage            Storage                      `toml:"storage"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
}

// NewConfig returns a Config with its maps initialized so the TOML decoder
// can populate them.
func NewConfig() *Config {
	return &Config{
		ScriptModels:       make(map[string]ScriptModel),
		SpeechModels:       make(map[string]SpeechModel),
		VideoModels:        make(map[string]VideoModel),
		TopicSubscriptions: make(map[string]TopicSubscription),
	}
}
