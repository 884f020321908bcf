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

// Package commands provides the concrete pipeline stages assembled into the
// generation workflow. Each command performs one unit of work and passes its
// result to the next stage through the chain context.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
)

// CtxPipelineRun is the context key holding the *model.PipelineRun for the
// whole workflow execution. Every command reads and updates it in addition to
// the chain's in/out piping.
const CtxPipelineRun = "__PIPELINE_RUN__"

// GetRun pulls the pipeline run out of the chain context.
func GetRun(context cor.Context) *model.PipelineRun {
	run, _ := context.Get(CtxPipelineRun).(*model.PipelineRun)
	return run
}

// ScriptMetadataCreator asks the script model to write the full metadata
// package (titles, hashtags, timed captions, script beats, visual prompt) for
// one generation request. The output is the model's raw text response; the
// next command in the chain recovers structured JSON from it.
type ScriptMetadataCreator struct {
	cor.BaseCommand
	model    *cloud.QuotaAwareGenerativeModel
	template *template.Template
}

func NewScriptMetadataCreator(
	name string,
	generativeModel *cloud.QuotaAwareGenerativeModel,
	template *template.Template) *ScriptMetadataCreator {
	return &ScriptMetadataCreator{
		BaseCommand: *cor.NewBaseCommand(name),
		model:       generativeModel,
		template:    template,
	}
}

// GenerateParams builds the substitution map for the prompt template. The
// example JSON gives the model a complete shape to imitate, which is far more
// reliable than describing the schema in prose.
func (t *ScriptMetadataCreator) GenerateParams(request *model.GenerationRequest) map[string]interface{} {
	params := make(map[string]interface{})
	params["TOPIC"] = request.Topic
	params["STYLE"] = request.TemplateStyle
	params["DURATION"] = request.TargetDurationSeconds

	exampleMetadata, _ := json.Marshal(model.GetExampleScriptMetadata())
	params["EXAMPLE_JSON"] = string(exampleMetadata)
	return params
}

func (t *ScriptMetadataCreator) Execute(context cor.Context) {
	request := context.Get(t.GetInputParam()).(*model.GenerationRequest)
	context.Notify(model.StageMetadata, "writing the script and metadata package")

	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(request)); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	out, err := t.model.GenerateText(context.GetContext(), cloud.NewTextContent(buffer.String()))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("script generation failed: %w", err))
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), out)
}
