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
	"testing"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/commands"
	"github.com/stretchr/testify/assert"
)

func TestResolveVoice(t *testing.T) {
	settings := cloud.SpeechModel{
		DefaultVoice: "Kore",
		Voices:       []string{"Puck", "Kore", "Zephyr"},
	}
	cmd := commands.NewSpeechSynthesizer("synthesize-narration", nil, settings)

	assert.Equal(t, "Puck", cmd.ResolveVoice("Puck"))
	// Matching is case insensitive but returns the canonical name.
	assert.Equal(t, "Zephyr", cmd.ResolveVoice("zephyr"))
	assert.Equal(t, "Kore", cmd.ResolveVoice(""))
	assert.Equal(t, "Kore", cmd.ResolveVoice("Morgan"))
}
