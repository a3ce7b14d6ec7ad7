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
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

func (s *Server) generateVideo(c *gin.Context) {
	var raw []byte
	if isForm(c) {
		f, err := s.readForm(c)
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.close()
		albums, ok := f.value("albums")
		if !ok {
			respondError(c, badRequest("generate-video", "missing albums field"))
			return
		}
		raw = []byte(albums)
	} else {
		data, err := c.GetRawData()
		if err != nil {
			respondError(c, formError(err))
			return
		}
		raw = data
	}

	req, err := parseAssemblyRequest(raw)
	if err != nil {
		respondError(c, err)
		return
	}
	artifact, err := s.assembly.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	out := model.NewAssemblyResponse(artifact)
	out.VideoUrl = s.publicURL(out.VideoUrl)
	c.JSON(http.StatusOK, out)
}

// parseAssemblyRequest accepts {"albums": [...]} as well as a bare album
// array, which is what the mobile client puts in its form field.
func parseAssemblyRequest(raw []byte) (*model.AssemblyRequest, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, badRequest("generate-video", "empty request body")
	}
	req := &model.AssemblyRequest{}
	var err error
	if raw[0] == '[' {
		err = json.Unmarshal(raw, &req.Albums)
	} else {
		err = json.Unmarshal(raw, req)
	}
	if err != nil {
		return nil, model.NewError(model.KindValidation, "generate-video", err)
	}
	return req, nil
}

func (s *Server) trimVideo(c *gin.Context) {
	f, err := s.readForm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.close()

	video, ok, err := f.source("video")
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, badRequest("trim-video", "video is required"))
		return
	}
	r, err := f.trimRange()
	if err != nil {
		respondError(c, err)
		return
	}

	artifact, err := s.trim.Run(c.Request.Context(), video, r, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.TrimResponse{
		TrimmedVideoUrl: s.publicURL(artifact.Locator),
		ArtifactId:      artifact.Id,
	})
}

func (s *Server) overlayVideo(c *gin.Context) {
	f, err := s.readForm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.close()

	video, ok, err := f.source("video")
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, badRequest("overlay-video", "video is required"))
		return
	}
	audio, ok, err := f.source("audio")
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, badRequest("overlay-video", "audio is required"))
		return
	}

	artifact, err := s.overlay.Run(c.Request.Context(), video, nil, &audio)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OverlayResponse{
		OutputVideoPath: artifact.LocalPath,
		VideoUrl:        s.publicURL(artifact.Locator),
		ArtifactId:      artifact.Id,
	})
}

// editVideo trims when a range is given and overlays when an audio track is
// given; at least one of the two is required.
func (s *Server) editVideo(c *gin.Context) {
	f, err := s.readForm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.close()

	video, ok, err := f.source("video")
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, badRequest("edit-video", "video is required"))
		return
	}
	r, err := f.trimRange()
	if err != nil {
		respondError(c, err)
		return
	}
	audio, hasAudio, err := f.source("audio")
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	var artifact *model.Artifact
	switch {
	case r != nil && hasAudio:
		artifact, err = s.edit.Run(ctx, video, r, &audio)
	case r != nil:
		artifact, err = s.trim.Run(ctx, video, r, nil)
	case hasAudio:
		artifact, err = s.overlay.Run(ctx, video, nil, &audio)
	default:
		err = model.Errorf(model.KindInvalidRange, "edit-video", "start and end, or an audio track, are required")
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.EditResponse{
		VideoUrl:   s.publicURL(artifact.Locator),
		ArtifactId: artifact.Id,
	})
}
