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
	"context"
	"fmt"
	"math"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
)

// ExtensionCount plans how many fixed-size extension rounds are needed to
// grow a clip from initialSeconds to at least targetSeconds. A target at or
// below the initial duration needs no extensions.
func ExtensionCount(targetSeconds, initialSeconds, stepSeconds int) int {
	if stepSeconds <= 0 || targetSeconds <= initialSeconds {
		return 0
	}
	return int(math.Ceil(float64(targetSeconds-initialSeconds) / float64(stepSeconds)))
}

// VideoExtender grows the generated clip until it covers the narration. Each
// round submits a continuation referencing the newest clip's locator and
// replaces the working video with the extended result. A failed round does
// not discard the run: the pipeline keeps the last good video and reports
// the shortfall, unless the configuration demands hard failure.
type VideoExtender struct {
	cor.BaseCommand
	client   *cloud.VideoClient
	settings cloud.VideoModel
	policy   cloud.RetryPolicy
	poller   cloud.PollerConfig
}

func NewVideoExtender(
	name string,
	client *cloud.VideoClient,
	settings cloud.VideoModel,
	policy cloud.RetryPolicy,
	poller cloud.PollerConfig) *VideoExtender {
	return &VideoExtender{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		settings:    settings,
		policy:      policy,
		poller:      poller,
	}
}

// targetSeconds picks the duration the final video must reach: the narration
// length when audio exists, otherwise the requested duration.
func (t *VideoExtender) targetSeconds(run *model.PipelineRun) int {
	if run.Audio != nil && run.Audio.DurationSeconds() > 0 {
		return int(math.Ceil(run.Audio.DurationSeconds()))
	}
	if run.Request != nil {
		return run.Request.TargetDurationSeconds
	}
	return 0
}

func (t *VideoExtender) Execute(chainCtx cor.Context) {
	current := chainCtx.Get(t.GetInputParam()).(*model.VideoAsset)
	run := GetRun(chainCtx)
	if run == nil {
		t.GetErrorCounter().Add(chainCtx.GetContext(), 1)
		chainCtx.AddError(t.GetName(), fmt.Errorf("no pipeline run available for video extension"))
		return
	}

	target := t.targetSeconds(run)
	plan := ExtensionCount(target, t.settings.InitialDurationInSeconds, t.settings.ExtensionStepInSeconds)
	if plan == 0 {
		chainCtx.Notify(model.StageExtension, "initial clip already covers the target duration")
		t.GetSuccessCounter().Add(chainCtx.GetContext(), 1)
		chainCtx.Add(t.GetOutputParam(), current)
		return
	}

	prompt := ""
	if run.Metadata != nil {
		prompt = run.Metadata.VisualMotionPrompt
	}
	params := cloud.GenerateParams{
		AspectRatio:     t.settings.AspectRatio,
		DurationSeconds: t.settings.ExtensionStepInSeconds,
	}
	progress := func(message string) { chainCtx.Notify(model.StageExtension, message) }

	for round := 1; round <= plan; round++ {
		chainCtx.Notify(model.StageExtension, fmt.Sprintf("extending video (round %d/%d)", round, plan))

		sourceURI := current.URI
		extended, err := resolveVideo(chainCtx, t.client, t.policy, t.poller, progress,
			func(ctx context.Context) (string, error) {
				return t.client.Extend(ctx, prompt, sourceURI, params)
			})
		if err != nil {
			if t.settings.FailOnExtensionError {
				t.GetErrorCounter().Add(chainCtx.GetContext(), 1)
				chainCtx.AddError(t.GetName(), fmt.Errorf("extension round %d/%d failed: %w", round, plan, err))
				return
			}
			// Keep the last good video. The export is shorter than planned
			// but the run still produces a usable asset.
			chainCtx.Notify(model.StageExtension,
				fmt.Sprintf("extension round %d/%d failed, keeping the last good video: %v", round, plan, err))
			break
		}

		run.Videos = append(run.Videos, extended)
		current = extended
	}

	t.GetSuccessCounter().Add(chainCtx.GetContext(), 1)
	chainCtx.Add(t.GetOutputParam(), current)
}
