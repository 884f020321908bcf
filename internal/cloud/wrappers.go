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

// This file wraps the GenAI client with a decorator that adds rate limiting
// and the shared retry policy. Call sites get one entry point that already
// respects quotas; they never talk to the raw client directly.
package cloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeModel decorates a GenAI model with a client-side rate
// limiter and the retry wrapper. The limiter smooths request bursts before
// they hit the service quota; the retry wrapper handles the quota errors
// that get through anyway.
type QuotaAwareGenerativeModel struct {
	ModelName string
	Config    *genai.GenerateContentConfig
	Models    *genai.Models
	Policy    RetryPolicy
	Progress  ProgressFunc

	limiter *rate.Limiter
}

// NewQuotaAwareModel wraps the model handle. requestsPerMinute bounds the
// sustained request rate; a burst of one keeps calls evenly spaced.
func NewQuotaAwareModel(name string, config *genai.GenerateContentConfig, models *genai.Models, requestsPerMinute int, policy RetryPolicy) *QuotaAwareGenerativeModel {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	return &QuotaAwareGenerativeModel{
		ModelName: name,
		Config:    config,
		Models:    models,
		Policy:    policy,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// GenerateContent runs one request through the limiter and retry policy
// using the model's configured generation settings.
func (q *QuotaAwareGenerativeModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	return q.GenerateWith(ctx, content, q.Config)
}

// GenerateWith runs one request with an explicit generation config, for
// callers that need per-request settings such as a speech voice. Waiting on
// the limiter happens inside the retried function so a long backoff does not
// hold a reserved slot.
func (q *QuotaAwareGenerativeModel) GenerateWith(ctx context.Context, content []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return Call(ctx, q.Policy, q.Progress, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		if err := q.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return q.Models.GenerateContent(ctx, q.ModelName, content, config)
	})
}

// GenerateText runs a request and concatenates the text parts of every
// candidate into a single string, the form the sanitizer consumes.
func (q *QuotaAwareGenerativeModel) GenerateText(ctx context.Context, content []*genai.Content) (string, error) {
	resp, err := q.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("model %s returned no text content", q.ModelName)
	}
	return b.String(), nil
}

// NewTextContent builds the content slice for a plain text prompt.
func NewTextContent(in string) []*genai.Content {
	return genai.Text(in)
}
