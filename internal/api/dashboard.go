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
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// Stats is a point-in-time view of the local disk areas the service owns.
type Stats struct {
	ScratchSessions    int `json:"scratchSessions"`
	PublishedArtifacts int `json:"publishedArtifacts"`
}

// Dashboard registers GET /stats.
func (s *Server) Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			out := Stats{}
			var err error
			if out.ScratchSessions, err = countEntries(s.scratch.Root(), true); err != nil {
				respondError(c, model.NewError(model.KindInternal, "stats", err))
				return
			}
			if out.PublishedArtifacts, err = countEntries(s.resolver.OutputDir, false); err != nil {
				respondError(c, model.NewError(model.KindInternal, "stats", err))
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}

func countEntries(dir string, dirs bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if dirs && e.IsDir() {
			n++
		}
		if !dirs && !e.IsDir() && filepath.Ext(e.Name()) == ".mp4" {
			n++
		}
	}
	return n, nil
}
