// Copyright 2024 Google, LLC
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

// Package api exposes the assembly and edit workflows over HTTP.
//
// Routes:
//   - POST /api/v1/videos, POST /generate-video: assemble albums into a video.
//   - POST /api/v1/videos/trim, POST /trim-video: trim a published video.
//   - POST /api/v1/videos/overlay: lay an audio track over a video.
//   - POST /edit-video: trim and/or overlay in one call.
//   - GET /api/v1/artifacts/:id and /api/v1/artifacts/:id/url: catalog lookups.
//   - GET /api/v1/stats, GET /healthz.
//   - GET <public_path_prefix>/*: the published videos.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/services"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/workflow"
)

// Server holds the workflows and services the handlers call into.
type Server struct {
	config    *cloud.Config
	assembly  *workflow.AssemblyWorkflow
	trim      *workflow.EditWorkflow
	overlay   *workflow.EditWorkflow
	edit      *workflow.EditWorkflow
	artifacts *services.ArtifactService
	resolver  commands.LocatorResolver
	scratch   *scratch.Manager
}

func NewServer(config *cloud.Config, deps *workflow.Dependencies, artifacts *services.ArtifactService) *Server {
	return &Server{
		config:    config,
		assembly:  workflow.NewAssemblyWorkflow(config, deps),
		trim:      workflow.NewTrimWorkflow(config, deps),
		overlay:   workflow.NewAudioOverlayWorkflow(config, deps),
		edit:      workflow.NewEditWorkflow(config, deps),
		artifacts: artifacts,
		resolver:  deps.Resolver,
		scratch:   deps.Scratch,
	}
}

// Register mounts every route on r.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static(s.resolver.PublicPath(""), s.resolver.OutputDir)

	limit := limitBody(s.config.Server.MaxUploadMB << 20)

	// Routes used by the mobile client.
	r.POST("/generate-video", limit, s.generateVideo)
	r.POST("/trim-video", limit, s.trimVideo)
	r.POST("/edit-video", limit, s.editVideo)

	apiV1 := r.Group("/api/v1")
	{
		s.VideoRouter(apiV1, limit)
		s.ArtifactRouter(apiV1)
		s.Dashboard(apiV1)
	}
}

// VideoRouter registers the producing endpoints under /videos.
func (s *Server) VideoRouter(r *gin.RouterGroup, middleware ...gin.HandlerFunc) {
	videos := r.Group("/videos", middleware...)
	{
		videos.POST("", s.generateVideo)
		videos.POST("/trim", s.trimVideo)
		videos.POST("/overlay", s.overlayVideo)
	}
}

// publicURL turns an artifact locator into the URL handed to clients.
func (s *Server) publicURL(locator string) string {
	base := strings.TrimRight(s.config.Server.PublicBaseURL, "/")
	if base == "" || !strings.HasPrefix(locator, "/") {
		return locator
	}
	return base + locator
}

// limitBody caps request bodies at maxBytes. Non-positive values disable the
// cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
