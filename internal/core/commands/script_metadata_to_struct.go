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
	"encoding/json"
	"fmt"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/sanitize"
)

// ScriptMetadataToStruct recovers a JSON document from the raw model
// response, unmarshals it into the metadata package, and validates the parts
// later stages depend on. Caption IDs are assigned here as sequential
// indices; the model is never trusted to supply identifiers.
type ScriptMetadataToStruct struct {
	cor.BaseCommand
}

func NewScriptMetadataToStruct(name string) *ScriptMetadataToStruct {
	return &ScriptMetadataToStruct{BaseCommand: *cor.NewBaseCommand(name)}
}

func (t *ScriptMetadataToStruct) Execute(context cor.Context) {
	raw := context.Get(t.GetInputParam()).(string)

	doc, err := sanitize.Parse(raw)
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), err)
		return
	}

	metadata := &model.ScriptMetadata{}
	if err := json.Unmarshal(doc, metadata); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("%w: recovered JSON does not match the metadata shape: %v", sanitize.ErrMalformed, err))
		return
	}

	if err := validateMetadata(metadata); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), err)
		return
	}

	for i, segment := range metadata.CaptionSegments {
		segment.ID = fmt.Sprintf("%d", i+1)
	}

	if run := GetRun(context); run != nil {
		run.Metadata = metadata
	}
	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), metadata)
}

// validateMetadata rejects packages the rest of the pipeline cannot work
// with. Caption timing only needs to be internally consistent; overlap is
// tolerated because an untrusted generator produces it routinely.
func validateMetadata(m *model.ScriptMetadata) error {
	if m.VisualMotionPrompt == "" {
		return fmt.Errorf("%w: metadata has no visual motion prompt", sanitize.ErrMalformed)
	}
	if len(m.CaptionSegments) == 0 {
		return fmt.Errorf("%w: metadata has no caption segments", sanitize.ErrMalformed)
	}
	for i, s := range m.CaptionSegments {
		if s.StartSeconds < 0 || s.EndSeconds <= s.StartSeconds {
			return fmt.Errorf("%w: caption segment %d has invalid timing [%v, %v]",
				sanitize.ErrMalformed, i+1, s.StartSeconds, s.EndSeconds)
		}
	}
	return nil
}
