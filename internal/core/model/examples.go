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

package model

// GetExampleScriptMetadata returns a fully populated metadata package. It is
// serialized into the script-generation prompt as the example of the JSON
// shape the model must return, and reused by tests.
func GetExampleScriptMetadata() *ScriptMetadata {
	return &ScriptMetadata{
		Titles:      []string{"You won't believe this trick"},
		Hashtags:    []string{"#viral", "#trending"},
		Description: "The main caption for the post.",
		ViralCaptions: []*ViralCaption{
			{Style: "Curiosity", Text: "Most people get this step wrong..."},
			{Style: "Action", Text: "Try it today if you want different results!"},
		},
		CaptionSegments: []*CaptionSegment{
			{Text: "Welcome back", StartSeconds: 0, EndSeconds: 2},
			{Text: "Here is the secret", StartSeconds: 2, EndSeconds: 4.5},
		},
		ScriptBeats: []*ScriptBeat{
			{ID: "b1", Start: 0, End: 2.5, Type: "HOOK", Description: "Open on the surprise"},
			{ID: "b2", Start: 2.5, End: 15, Type: "BODY", Description: "Walk through the idea"},
			{ID: "b3", Start: 15, End: 20, Type: "CTA", Description: "Ask for the follow"},
		},
		VisualMotionPrompt: "Slow cinematic push-in on the subject, shallow depth of field.",
	}
}
