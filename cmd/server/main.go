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

// Package main is the entry point for the generation pipeline server. It
// exposes a REST API for submitting generation runs, tracking their
// progress, and exporting the finished videos, and optionally consumes run
// submissions from Pub/Sub.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/model"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/core/services"
	"github.com/jerydarker-cell/viralvibe-studio-tiktok/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		RunsRouter(apiV1)
		ExportRouter(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
		// Exports stream large files; keep write generous.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	cancel()
	state.runService.Shutdown()
	state.cloud.Close()

	log.Println("Server exiting")
}

// RunsRouter registers the generation run endpoints:
//   - POST   /runs             submit a generation request
//   - GET    /runs             list runs, newest first
//   - GET    /runs/:id         fetch one run's status and metadata
//   - POST   /runs/:id/cancel  stop an in-flight run
//   - DELETE /runs/:id         discard a run and its artifacts
//   - POST   /runs/:id/export  mux and download the finished video
func RunsRouter(r *gin.RouterGroup) {
	runs := r.Group("/runs")
	{
		runs.POST("", func(c *gin.Context) {
			request := &model.GenerationRequest{}
			if err := c.ShouldBindJSON(request); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			run, err := state.runService.Submit(request)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, run)
		})

		runs.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, state.runService.List())
		})

		runs.GET("/:id", func(c *gin.Context) {
			run, err := state.runService.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, run)
		})

		runs.POST("/:id/cancel", func(c *gin.Context) {
			if err := state.runService.Cancel(c.Param("id")); err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.Status(http.StatusAccepted)
		})

		runs.DELETE("/:id", func(c *gin.Context) {
			if err := state.runService.Delete(c.Param("id")); err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.Status(http.StatusNoContent)
		})

		runs.POST("/:id/export", func(c *gin.Context) {
			run, err := state.runService.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			video := run.CurrentVideo()
			if video == nil || run.Metadata == nil {
				c.String(http.StatusConflict, "run has no finished video to export")
				return
			}

			input := services.ExportInput{
				VideoPath: video.LocalPath,
				SRT:       model.BuildSRT(run.Metadata.CaptionSegments),
				Mode:      c.DefaultQuery("mode", model.ExportModeBurn),
				Filename:  c.Query("filename"),
			}
			if run.Audio != nil {
				input.AudioWAV = model.EncodeWAV(run.Audio)
			}
			serveExport(c, input)
		})
	}
}

// ExportRouter registers the standalone export endpoint, which muxes
// caller-supplied assets without a prior generation run.
func ExportRouter(r *gin.RouterGroup) {
	export := r.Group("/export")
	{
		export.POST("", func(c *gin.Context) {
			request := &model.ExportRequest{}
			if err := c.ShouldBindJSON(request); err != nil {
				c.String(http.StatusBadRequest, "invalid export request: %v", err)
				return
			}

			input := services.ExportInput{
				VideoPath: request.VideoLocator,
				SRT:       request.SRT,
				Mode:      request.Mode,
				Filename:  request.Filename,
			}
			if request.AudioBase64 != "" {
				audio, err := base64.StdEncoding.DecodeString(request.AudioBase64)
				if err != nil {
					c.String(http.StatusBadRequest, "audioBase64 is not valid base64")
					return
				}
				input.AudioWAV = audio
			}
			serveExport(c, input)
		})
	}
}

// serveExport runs the export job and streams the finished file back as a
// download. The scratch directory is removed once the response is written.
// Export failures are reported as plain text.
func serveExport(c *gin.Context, input services.ExportInput) {
	result, err := state.exportService.Export(c.Request.Context(), input)
	if err != nil {
		var exportErr *services.ExportFailureError
		if errors.As(err, &exportErr) {
			slog.Error("export failed", "mode", exportErr.Mode, "stderr", exportErr.Stderr)
			c.String(http.StatusInternalServerError, "export failed")
			return
		}
		c.String(http.StatusBadRequest, "%v", err)
		return
	}
	defer result.Close()

	c.FileAttachment(result.Path, filepath.Base(result.Path))
}
