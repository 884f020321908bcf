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

// Package workflow assembles the pipeline commands into the end-to-end
// generation chain.
package workflow

import (
	"text/template"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/commands"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
)

// GenerationWorkflow runs one request through every stage in order: script
// metadata, narration audio, caption alignment, initial video, and duration
// extension. The chain stops at the first failed stage; no stage ever runs
// against defaulted data from a failed predecessor.
type GenerationWorkflow struct {
	cor.BaseCommand
	config         *cloud.Config
	scriptModel    *cloud.QuotaAwareGenerativeModel
	speechModel    *cloud.QuotaAwareGenerativeModel
	videoClient    *cloud.VideoClient
	scriptTemplate *template.Template
	speechSettings cloud.SpeechModel
	videoSettings  cloud.VideoModel
	chain          cor.Chain
}

// Execute runs the whole generation chain against the supplied context.
func (m *GenerationWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *GenerationWorkflow) initializeChain() {
	policy := m.config.Retry.Policy()
	poller := m.config.Poller.Config()

	out := cor.NewBaseChain(m.GetName())

	// Write the metadata package and recover structured JSON from the raw
	// model response.
	out.AddCommand(commands.NewScriptMetadataCreator("generate-script-metadata", m.scriptModel, m.scriptTemplate))
	out.AddCommand(commands.NewScriptMetadataToStruct("convert-script-metadata"))

	// Synthesize the narration, then stretch the caption timeline onto the
	// real audio length.
	out.AddCommand(commands.NewSpeechSynthesizer("synthesize-narration", m.speechModel, m.speechSettings))
	out.AddCommand(commands.NewCaptionRescaler("align-captions"))

	// Generate the initial clip and extend it until it covers the narration.
	out.AddCommand(commands.NewVideoGenerator("generate-video", m.videoClient, m.videoSettings, policy, poller))
	out.AddCommand(commands.NewVideoExtender("extend-video", m.videoClient, m.videoSettings, policy, poller))

	m.chain = out
}

// NewGenerationWorkflow builds the pipeline from the configured model names.
// The prompt template is compiled once here; the application cannot run
// without it, so a parse failure panics at startup.
func NewGenerationWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	scriptModelName string,
	speechModelName string,
	videoModelName string) *GenerationWorkflow {

	scriptTemplate, err := template.New("script-template").Parse(config.PromptTemplates.Script)
	if err != nil {
		panic(err)
	}

	pipeline := &GenerationWorkflow{
		BaseCommand:    *cor.NewBaseCommand("generation-pipeline"),
		config:         config,
		scriptModel:    serviceClients.ScriptModels[scriptModelName],
		speechModel:    serviceClients.SpeechModels[speechModelName],
		videoClient:    serviceClients.VideoClients[videoModelName],
		scriptTemplate: scriptTemplate,
		speechSettings: config.SpeechModels[speechModelName],
		videoSettings:  config.VideoModels[videoModelName],
	}
	pipeline.initializeChain()
	return pipeline
}
