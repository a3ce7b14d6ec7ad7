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

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// ArtifactRouter registers the catalog lookups.
//
//   - GET /artifacts/:id returns the catalog record, including the parent id
//     for trim and overlay results.
//   - GET /artifacts/:id/url returns a time-limited signed URL for the
//     mirrored copy in Cloud Storage.
func (s *Server) ArtifactRouter(r *gin.RouterGroup) {
	artifacts := r.Group("/artifacts")
	{
		artifacts.GET("/:id", func(c *gin.Context) {
			a, err := s.artifacts.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, err)
				return
			}
			a.Locator = s.publicURL(a.Locator)
			c.JSON(http.StatusOK, model.NewArtifactRecord(a))
		})

		artifacts.GET("/:id/url", func(c *gin.Context) {
			u, expires, err := s.artifacts.SignedURL(c.Request.Context(), c.Param("id"))
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": u, "expires": expires.UTC().Format(time.RFC3339)})
		})
	}
}
