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

package commands

import (
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
)

// AlbumValidator resolves the request into its flattened frame list. A
// maxFrames of zero disables the frame cap.
type AlbumValidator struct {
	cor.BaseCommand
	maxFrames int
}

func NewAlbumValidator(name string, maxFrames int) *AlbumValidator {
	out := &AlbumValidator{BaseCommand: *cor.NewBaseCommand(name), maxFrames: maxFrames}
	out.InputParamName = ParamRequest
	out.OutputParamName = ParamFrames
	return out
}

func (v *AlbumValidator) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateValidating)
	req := chCtx.Get(v.GetInputParam()).(*model.AssemblyRequest)

	albums, err := req.Resolve()
	if err != nil {
		v.Fail(chCtx, err)
		return
	}
	frames := model.FlattenFrames(albums)
	if v.maxFrames > 0 && len(frames) > v.maxFrames {
		v.Fail(chCtx, model.Errorf(model.KindValidation, "validate", "%d frames exceeds the limit of %d", len(frames), v.maxFrames))
		return
	}

	v.Log.InfoContext(chCtx.GetContext(), "request validated", "request_id", req.RequestId, "albums", len(albums), "frames", len(frames))
	v.Succeeded(chCtx.GetContext(), attribute.Int("frames", len(frames)))
	chCtx.Add(v.GetOutputParam(), frames)
}
