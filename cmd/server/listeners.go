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

package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
)

// SetupListeners attaches a submission handler to every configured Pub/Sub
// subscription and starts listening. Each message carries one JSON-encoded
// generation request; a malformed message is dropped rather than redelivered
// forever.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	for key, listener := range cloudClients.PubSubListeners {
		listener.SetHandler(func(ctx context.Context, data []byte) error {
			request := &model.GenerationRequest{}
			if err := json.Unmarshal(data, request); err != nil {
				slog.Warn("dropping malformed generation request message", "error", err)
				return nil
			}
			run, err := state.runService.Submit(request)
			if err != nil {
				slog.Warn("dropping invalid generation request message", "error", err)
				return nil
			}
			slog.Info("queued generation run from message", "run", run.ID, "topic", key)
			return nil
		})
		listener.Listen(ctx)
	}
}
