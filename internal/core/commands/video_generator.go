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
	"os"

	"github.com/h2non/filetype"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/cor"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
)

// VideoGenerator submits the initial text-to-video operation (image-to-video
// when the request carries a source image), polls it to completion, and
// downloads the finished clip to a temporary file registered for cleanup.
type VideoGenerator struct {
	cor.BaseCommand
	client   *cloud.VideoClient
	settings cloud.VideoModel
	policy   cloud.RetryPolicy
	poller   cloud.PollerConfig
}

func NewVideoGenerator(
	name string,
	client *cloud.VideoClient,
	settings cloud.VideoModel,
	policy cloud.RetryPolicy,
	poller cloud.PollerConfig) *VideoGenerator {
	return &VideoGenerator{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		settings:    settings,
		policy:      policy,
		poller:      poller,
	}
}

func (t *VideoGenerator) Execute(chainCtx cor.Context) {
	run := GetRun(chainCtx)
	if run == nil || run.Metadata == nil {
		t.GetErrorCounter().Add(chainCtx.GetContext(), 1)
		chainCtx.AddError(t.GetName(), fmt.Errorf("no script metadata available for video generation"))
		return
	}
	chainCtx.Notify(model.StageVideo, "submitting the initial video generation")

	params := cloud.GenerateParams{
		AspectRatio:     t.settings.AspectRatio,
		DurationSeconds: t.settings.InitialDurationInSeconds,
	}

	var sourceImage []byte
	imageMIME := ""
	if run.Request != nil && len(run.Request.SourceImage) > 0 {
		sourceImage = run.Request.SourceImage
		kind, err := filetype.Image(sourceImage)
		if err != nil {
			t.GetErrorCounter().Add(chainCtx.GetContext(), 1)
			chainCtx.AddError(t.GetName(), fmt.Errorf("source image is not a recognized image format"))
			return
		}
		imageMIME = kind.MIME.Value
	}

	prompt := run.Metadata.VisualMotionPrompt
	progress := func(message string) { chainCtx.Notify(model.StageVideo, message) }

	asset, err := resolveVideo(chainCtx, t.client, t.policy, t.poller, progress,
		func(ctx context.Context) (string, error) {
			return t.client.Generate(ctx, prompt, sourceImage, imageMIME, params)
		})
	if err != nil {
		t.GetErrorCounter().Add(chainCtx.GetContext(), 1)
		chainCtx.AddError(t.GetName(), err)
		return
	}

	run.Videos = append(run.Videos, asset)
	t.GetSuccessCounter().Add(chainCtx.GetContext(), 1)
	chainCtx.Add(t.GetOutputParam(), asset)
}

// resolveVideo runs one full generation round trip: submit the long-running
// operation under the retry policy, poll it to completion, then download the
// finished clip into a temp file registered on the chain context. Every
// remote touch goes through the retry wrapper.
func resolveVideo(
	chainCtx cor.Context,
	client *cloud.VideoClient,
	policy cloud.RetryPolicy,
	poller cloud.PollerConfig,
	progress cloud.ProgressFunc,
	submit func(ctx context.Context) (string, error)) (*model.VideoAsset, error) {
	ctx := chainCtx.GetContext()

	opName, err := cloud.Call(ctx, policy, progress, submit)
	if err != nil {
		return nil, fmt.Errorf("video submission failed: %w", err)
	}

	op, err := cloud.Await(ctx, poller, opName, progress, func(ctx context.Context) (*cloud.VideoOperation, error) {
		return cloud.Call(ctx, policy, progress, func(ctx context.Context) (*cloud.VideoOperation, error) {
			return client.GetOperation(ctx, opName)
		})
	})
	if err != nil {
		return nil, err
	}

	uri, err := op.VideoURI()
	if err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp("", "viralvibe-video-*.mp4")
	if err != nil {
		return nil, err
	}
	_ = tempFile.Close()
	chainCtx.AddTempFile(tempFile.Name())

	_, err = cloud.Call(ctx, policy, progress, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.Download(ctx, uri, tempFile.Name())
	})
	if err != nil {
		return nil, fmt.Errorf("video download failed: %w", err)
	}

	return &model.VideoAsset{URI: uri, LocalPath: tempFile.Name()}, nil
}
