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

// This file initializes every external client the application uses and
// bundles them into one ServiceClients container that is passed through the
// rest of the application.
package cloud

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients is the dependency container for all external connections:
// the GenAI client and its configured model wrappers, the video generation
// REST clients, and the optional Storage and Pub/Sub clients. It is built
// once at startup and shared.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	ArtifactStore   *ArtifactStore
	PubSubListeners map[string]*PubSubListener

	ScriptModels map[string]*QuotaAwareGenerativeModel
	SpeechModels map[string]*QuotaAwareGenerativeModel
	VideoClients map[string]*VideoClient
}

// Close releases the clients that hold connections. The GenAI client has no
// close method in the current SDK.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
}

// NewCloudServiceClients builds the full client container from the loaded
// configuration. The Storage and Pub/Sub clients are only created when the
// configuration references them, so a pure API-driven deployment needs no
// GCP project credentials beyond the GenAI key.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	policy := config.Retry.Policy()

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Application.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	scriptModels := make(map[string]*QuotaAwareGenerativeModel)
	for key, values := range config.ScriptModels {
		modelConfig := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		scriptModels[key] = NewQuotaAwareModel(values.Model, modelConfig, gc.Models, values.MaxRequestsPerMinute, policy)
	}

	// Speech models carry no static generation config. The synthesizer
	// builds one per request, since the voice is a per-request setting.
	speechModels := make(map[string]*QuotaAwareGenerativeModel)
	for key, values := range config.SpeechModels {
		speechModels[key] = NewQuotaAwareModel(values.Model, nil, gc.Models, values.MaxRequestsPerMinute, policy)
	}

	videoClients := make(map[string]*VideoClient)
	for key, values := range config.VideoModels {
		videoClients[key] = NewVideoClient(values.Model, config.Application.APIKey, nil)
	}

	clients := &ServiceClients{
		GenAIClient:     gc,
		ScriptModels:    scriptModels,
		SpeechModels:    speechModels,
		VideoClients:    videoClients,
		PubSubListeners: make(map[string]*PubSubListener),
	}

	if config.Storage.ArchiveBucket != "" {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		clients.StorageClient = sc
		clients.ArtifactStore = NewArtifactStore(sc, config.Storage.ArchiveBucket)
	}

	if len(config.TopicSubscriptions) > 0 {
		pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
		if err != nil {
			clients.Close()
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		clients.PubsubClient = pc
		// Handlers are attached later, once the run service exists.
		for subKey, values := range config.TopicSubscriptions {
			listener, err := NewPubSubListener(pc, values.Name, nil)
			if err != nil {
				clients.Close()
				return nil, err
			}
			clients.PubSubListeners[subKey] = listener
		}
	}

	return clients, nil
}
