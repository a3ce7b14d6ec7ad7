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
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

const gcsObjectKind = "storage#object"

// AssemblyRequestReader turns the trigger payload into an AssemblyRequest.
// The payload is either the request itself, as JSON or already decoded, or a
// GCS object notification naming a manifest file that holds the request.
type AssemblyRequestReader struct {
	cor.BaseCommand
	blobs cloud.BlobStore
}

func NewAssemblyRequestReader(name string, blobs cloud.BlobStore) *AssemblyRequestReader {
	out := &AssemblyRequestReader{BaseCommand: *cor.NewBaseCommand(name), blobs: blobs}
	out.OutputParamName = ParamRequest
	return out
}

func (r *AssemblyRequestReader) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateValidating)
	var data []byte
	switch in := chCtx.Get(r.GetInputParam()).(type) {
	case *model.AssemblyRequest:
		r.emit(chCtx, in)
		return
	case string:
		data = []byte(in)
	case []byte:
		data = in
	default:
		r.Fail(chCtx, model.Errorf(model.KindValidation, "read request", "unsupported payload type %T", in))
		return
	}

	req, err := r.decode(chCtx, data)
	if err != nil {
		r.Fail(chCtx, err)
		return
	}
	r.emit(chCtx, req)
}

func (r *AssemblyRequestReader) emit(chCtx cor.Context, req *model.AssemblyRequest) {
	r.Succeeded(chCtx.GetContext())
	chCtx.Add(r.GetOutputParam(), req)
}

func (r *AssemblyRequestReader) decode(chCtx cor.Context, data []byte) (*model.AssemblyRequest, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, model.NewError(model.KindValidation, "read request", fmt.Errorf("malformed payload: %w", err))
	}
	if probe.Kind == gcsObjectKind {
		var n cloud.GCSObjectNotification
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, model.NewError(model.KindValidation, "read request", err)
		}
		if r.blobs == nil {
			return nil, model.Errorf(model.KindInternal, "read request", "no blob store to read manifest %s", n.Locator())
		}
		r.Log.InfoContext(chCtx.GetContext(), "reading manifest", "locator", n.Locator())
		manifest, _, err := cloud.Fetch(chCtx.GetContext(), r.blobs, n.Locator())
		if err != nil {
			return nil, err
		}
		data = manifest
	}

	req := &model.AssemblyRequest{}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, model.NewError(model.KindValidation, "read request", fmt.Errorf("malformed assembly request: %w", err))
	}
	return req, nil
}
