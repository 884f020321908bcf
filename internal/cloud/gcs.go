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
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// ArtifactStore archives exported videos to a Cloud Storage bucket. It is an
// optional convenience: the pipeline itself keeps no state, and an export is
// complete once the local file exists.
type ArtifactStore struct {
	client *storage.Client
	bucket string
}

// NewArtifactStore returns nil when no bucket is configured, which callers
// treat as archiving disabled.
func NewArtifactStore(client *storage.Client, bucket string) *ArtifactStore {
	if client == nil || bucket == "" {
		return nil
	}
	return &ArtifactStore{client: client, bucket: bucket}
}

// Archive uploads the local file to the bucket under objectName and returns
// the gs:// locator of the stored copy.
func (s *ArtifactStore) Archive(ctx context.Context, localPath, objectName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "video/mp4"
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s to gs://%s/%s: %w", localPath, s.bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}
