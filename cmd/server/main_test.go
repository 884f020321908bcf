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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExportContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/export", nil)
	return c, recorder
}

func TestServeExportRejectionIsPlainText(t *testing.T) {
	state.exportService = services.NewExportService(cloud.Transcoder{}, nil)

	c, recorder := newExportContext(t)
	serveExport(c, services.ExportInput{Mode: "fancy"})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, recorder.Body.String(), "unknown export mode")
}

func TestServeExportFailureIsPlainText(t *testing.T) {
	videoPath := filepath.Join(t.TempDir(), "in.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("not a real video"), 0o644))

	settings := cloud.Transcoder{FFmpegPath: filepath.Join(t.TempDir(), "no-such-ffmpeg")}
	state.exportService = services.NewExportService(settings, nil)

	c, recorder := newExportContext(t)
	serveExport(c, services.ExportInput{
		Mode:      model.ExportModeBurn,
		VideoPath: videoPath,
		SRT:       "1\n00:00:00,000 --> 00:00:01,000\nhi\n",
		Filename:  "clip",
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "export failed", recorder.Body.String())
}
