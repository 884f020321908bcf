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

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/cloud"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"golang.org/x/sync/semaphore"
)

// DefaultBurnStyle is the caption styling composited into the frame when the
// configuration does not override it.
const DefaultBurnStyle = "FontName=Arial,FontSize=14,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BorderStyle=1,Outline=2,Shadow=1,Alignment=2,MarginV=40"

// ExportFailureError wraps a failed ffmpeg invocation with the tail of its
// stderr, which is where ffmpeg explains itself.
type ExportFailureError struct {
	Mode   string
	Stderr string
	Cause  error
}

func (e *ExportFailureError) Error() string {
	return fmt.Sprintf("export (%s) failed: %v: %s", e.Mode, e.Cause, e.Stderr)
}

func (e *ExportFailureError) Unwrap() error {
	return e.Cause
}

// ExportInput is one fully resolved export job: a source video locator
// (either a local file path or an http(s) URL to download), optional WAV
// narration bytes to replace the video's audio track, and the SRT subtitle
// document.
type ExportInput struct {
	VideoPath string
	AudioWAV  []byte
	SRT       string
	Mode      string
	Filename  string
}

// ExportResult is a finished export. Close removes the scratch directory
// holding the output file, so callers must copy or stream the file before
// closing.
type ExportResult struct {
	Path       string
	ArchiveURI string
	scratchDir string
}

func (r *ExportResult) Close() {
	if r.scratchDir != "" {
		_ = os.RemoveAll(r.scratchDir)
	}
}

// ExportService muxes the generated assets into a final MP4 with ffmpeg. A
// weighted semaphore caps the number of concurrent ffmpeg processes, since
// each burn re-encode saturates CPU cores.
type ExportService struct {
	settings cloud.Transcoder
	store    *cloud.ArtifactStore
	slots    *semaphore.Weighted
	fetcher  *http.Client
}

// NewExportService builds the service. A nil store disables archiving.
func NewExportService(settings cloud.Transcoder, store *cloud.ArtifactStore) *ExportService {
	workers := settings.Workers
	if workers <= 0 {
		workers = 2
	}
	if settings.FFmpegPath == "" {
		settings.FFmpegPath = "ffmpeg"
	}
	if settings.BurnStyle == "" {
		settings.BurnStyle = DefaultBurnStyle
	}
	if settings.CRF <= 0 {
		settings.CRF = 24
	}
	if settings.Preset == "" {
		settings.Preset = "ultrafast"
	}
	return &ExportService{
		settings: settings,
		store:    store,
		slots:    semaphore.NewWeighted(int64(workers)),
		fetcher:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// Export runs one export job. All scratch files live in a per-job directory
// that is removed on failure; on success the caller owns it through the
// result's Close. A remote video locator is downloaded into the scratch
// directory first, so it shares the cleanup lifecycle with the other
// intermediates.
func (s *ExportService) Export(ctx context.Context, input ExportInput) (*ExportResult, error) {
	if input.Mode != model.ExportModeBurn && input.Mode != model.ExportModeSoft {
		return nil, fmt.Errorf("unknown export mode %q", input.Mode)
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.slots.Release(1)

	scratchDir, err := os.MkdirTemp("", "viralvibe-export-"+uuid.NewString())
	if err != nil {
		return nil, err
	}
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.RemoveAll(scratchDir)
		}
	}()

	videoPath := input.VideoPath
	if isRemoteLocator(videoPath) {
		videoPath = filepath.Join(scratchDir, "source.mp4")
		if err := s.fetchSource(ctx, input.VideoPath, videoPath); err != nil {
			return nil, fmt.Errorf("export source video unavailable: %w", err)
		}
	} else if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("export source video unavailable: %w", err)
	}

	srtPath := filepath.Join(scratchDir, "captions.srt")
	if err := os.WriteFile(srtPath, []byte(input.SRT), 0o644); err != nil {
		return nil, err
	}

	audioPath := ""
	if len(input.AudioWAV) > 0 {
		audioPath = filepath.Join(scratchDir, "narration.wav")
		if err := os.WriteFile(audioPath, input.AudioWAV, 0o644); err != nil {
			return nil, err
		}
	}

	outPath := filepath.Join(scratchDir, SafeName(input.Filename)+".mp4")
	args := BuildExportArgs(s.settings, input.Mode, videoPath, audioPath, srtPath, outPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.settings.FFmpegPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ExportFailureError{Mode: input.Mode, Stderr: tail(stderr.String(), 2048), Cause: err}
	}

	result := &ExportResult{Path: outPath, scratchDir: scratchDir}
	if s.store != nil {
		uri, err := s.store.Archive(ctx, outPath, filepath.Base(outPath))
		if err != nil {
			// Archiving is best effort; the local export already succeeded.
			uri = ""
		}
		result.ArchiveURI = uri
	}
	cleanup = false
	return result, nil
}

func isRemoteLocator(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// fetchSource downloads a remote source video to destPath.
func (s *ExportService) fetchSource(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.fetcher.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetching source video: %s", resp.Status)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, resp.Body); err != nil {
		_ = dest.Close()
		return err
	}
	return dest.Close()
}

// BuildExportArgs assembles the ffmpeg argument list for one export. Burn
// mode re-encodes with the captions composited into the frame; soft mode
// stream-copies the video and adds a toggleable mov_text subtitle track.
// When narration audio is supplied it replaces the video's audio track and
// -shortest trims the output to the shorter stream.
func BuildExportArgs(settings cloud.Transcoder, mode, videoPath, audioPath, srtPath, outPath string) []string {
	args := []string{"-y", "-hide_banner", "-i", videoPath}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}

	switch mode {
	case model.ExportModeBurn:
		filter := fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(srtPath), settings.BurnStyle)
		args = append(args, "-vf", filter,
			"-c:v", "libx264",
			"-crf", strconv.Itoa(settings.CRF),
			"-preset", settings.Preset)
		if audioPath != "" {
			args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-c:a", "aac", "-shortest")
		}
	case model.ExportModeSoft:
		args = append(args, "-i", srtPath, "-c:v", "copy", "-c:s", "mov_text")
		if audioPath != "" {
			args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-map", "2:s:0", "-c:a", "aac", "-shortest")
		} else {
			// Without narration the source's own audio track rides along
			// untouched. The ? suffix tolerates silent sources.
			args = append(args, "-map", "0:v:0", "-map", "0:a:0?", "-map", "1:s:0", "-c:a", "copy")
		}
	}

	return append(args, "-f", "mp4", outPath)
}

// escapeFilterPath escapes the characters ffmpeg's filter parser treats
// specially in a filename argument.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	return r.Replace(p)
}

// SafeName reduces a requested filename to characters that are safe on every
// filesystem and in a shell-adjacent ffmpeg invocation.
func SafeName(in string) string {
	in = strings.TrimSuffix(strings.TrimSpace(in), ".mp4")
	if in == "" {
		return "viralvibe_export"
	}
	var b strings.Builder
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
