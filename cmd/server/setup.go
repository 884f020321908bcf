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

// Package main contains the setup and initialization logic for the
// application's shared state: configuration, cloud clients, the generation
// workflow, and the run and export services.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/services"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/workflow"
)

// Configured model keys. Each names an entry in the corresponding model map
// in the TOML configuration.
const (
	ScriptModelKey = "creative"
	SpeechModelKey = "narrator"
	VideoModelKey  = "director"
)

// StateManager holds the shared dependencies for the application.
type StateManager struct {
	config        *cloud.Config
	cloud         *cloud.ServiceClients
	runService    *services.RunService
	exportService *services.ExportService
}

var state = &StateManager{}

// SetupOS points the configuration loader at the configs directory and the
// local runtime overrides.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig loads the configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState creates the cloud clients, assembles the generation workflow,
// and starts the run and export services plus any configured listeners.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	pipeline := workflow.NewGenerationWorkflow(config, cloudClients, ScriptModelKey, SpeechModelKey, VideoModelKey)
	state.runService = services.NewRunService(ctx, pipeline, config.Application.ThreadPoolSize)
	state.exportService = services.NewExportService(config.Transcoder, cloudClients.ArtifactStore)

	SetupListeners(config, cloudClients, ctx)
}
