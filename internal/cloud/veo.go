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

package cloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultVideoEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// VideoClient is a thin REST client for the video generation API. Submission
// returns a long-running operation name; the caller polls it through
// GetOperation (usually via Await) and downloads the finished clip with
// Download. The client itself never retries or waits, resilience is layered
// on top by Call and Await.
type VideoClient struct {
	Endpoint   string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// NewVideoClient builds a client for the given model. A nil http.Client
// falls back to a dedicated client with a generous timeout, since a single
// download can be hundreds of megabytes.
func NewVideoClient(model, apiKey string, httpClient *http.Client) *VideoClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &VideoClient{
		Endpoint:   defaultVideoEndpoint,
		Model:      model,
		APIKey:     apiKey,
		HTTPClient: httpClient,
	}
}

// VideoOperation is the wire shape of a long-running video operation.
type VideoOperation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Response *videoResponse  `json:"response,omitempty"`
	Error    *OperationError `json:"error,omitempty"`
}

// OperationError is the terminal failure payload of a completed operation.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type videoResponse struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples []*generatedSample `json:"generatedSamples,omitempty"`
	GeneratedVideos  []*generatedVideo  `json:"generatedVideos,omitempty"`
}

type generatedSample struct {
	Video *videoRef `json:"video,omitempty"`
}

type generatedVideo struct {
	Video *videoRef `json:"video,omitempty"`
}

type videoRef struct {
	URI string `json:"uri"`
}

// VideoURI returns the locator of the first generated clip, handling both
// response field spellings the API has used.
func (op *VideoOperation) VideoURI() (string, error) {
	if op.Response == nil || op.Response.GenerateVideoResponse == nil {
		return "", fmt.Errorf("operation %s completed without a response payload", op.Name)
	}
	r := op.Response.GenerateVideoResponse
	if len(r.GeneratedSamples) > 0 && r.GeneratedSamples[0].Video != nil {
		return r.GeneratedSamples[0].Video.URI, nil
	}
	if len(r.GeneratedVideos) > 0 && r.GeneratedVideos[0].Video != nil {
		return r.GeneratedVideos[0].Video.URI, nil
	}
	return "", fmt.Errorf("operation %s completed with no generated videos", op.Name)
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string        `json:"prompt"`
	Image  *inlineMedia  `json:"image,omitempty"`
	Video  *videoLocator `json:"video,omitempty"`
}

type inlineMedia struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type videoLocator struct {
	URI string `json:"uri"`
}

type predictParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	NumberOfVideos  int    `json:"sampleCount,omitempty"`
}

// GenerateParams are the submission knobs shared by Generate and Extend.
type GenerateParams struct {
	AspectRatio     string
	DurationSeconds int
}

// Generate submits a new text-to-video (or image-to-video, when sourceImage
// is non-nil) operation and returns its name for polling.
func (c *VideoClient) Generate(ctx context.Context, prompt string, sourceImage []byte, imageMIME string, params GenerateParams) (string, error) {
	inst := predictInstance{Prompt: prompt}
	if len(sourceImage) > 0 {
		inst.Image = &inlineMedia{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(sourceImage),
			MIMEType:           imageMIME,
		}
	}
	return c.submit(ctx, inst, params)
}

// Extend submits a continuation operation that picks up where the referenced
// clip ends. The remote service reads the tail frames of the source clip, so
// only its locator is sent, never the bytes.
func (c *VideoClient) Extend(ctx context.Context, prompt, videoURI string, params GenerateParams) (string, error) {
	inst := predictInstance{
		Prompt: prompt,
		Video:  &videoLocator{URI: videoURI},
	}
	return c.submit(ctx, inst, params)
}

func (c *VideoClient) submit(ctx context.Context, inst predictInstance, params GenerateParams) (string, error) {
	body := predictRequest{
		Instances: []predictInstance{inst},
		Parameters: predictParameters{
			AspectRatio:     params.AspectRatio,
			DurationSeconds: params.DurationSeconds,
			NumberOfVideos:  1,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning?key=%s", c.Endpoint, c.Model, c.APIKey)
	var op VideoOperation
	if err := c.doJSON(ctx, http.MethodPost, url, payload, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("generation submission returned no operation name")
	}
	return op.Name, nil
}

// GetOperation fetches the current snapshot of a long-running operation.
func (c *VideoClient) GetOperation(ctx context.Context, name string) (*VideoOperation, error) {
	url := fmt.Sprintf("%s/%s?key=%s", c.Endpoint, strings.TrimPrefix(name, "/"), c.APIKey)
	var op VideoOperation
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Download streams the finished clip at uri into path. The file download
// endpoint requires the API key appended to the signed locator.
func (c *VideoClient) Download(ctx context.Context, uri, path string) error {
	url := uri
	if !strings.Contains(url, "key=") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url = url + sep + "key=" + c.APIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write video to %s: %w", path, err)
	}
	return f.Close()
}

func (c *VideoClient) doJSON(ctx context.Context, method, url string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(data),
	}
}
