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
	"os"
	"path"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

const videoContentType = "video/mp4"

// ArtifactMirror copies the artifact to a durable blob store before it is
// published and records the remote locator on it. A mirror failure fails the
// invocation.
type ArtifactMirror struct {
	cor.BaseCommand
	store  cloud.BlobStore
	prefix string
}

func NewArtifactMirror(name string, store cloud.BlobStore, prefix string) *ArtifactMirror {
	out := &ArtifactMirror{BaseCommand: *cor.NewBaseCommand(name), store: store, prefix: prefix}
	out.InputParamName = ParamArtifact
	out.OutputParamName = ParamArtifact
	return out
}

func (m *ArtifactMirror) Execute(chCtx cor.Context) {
	ctx := chCtx.GetContext()
	artifact := chCtx.Get(m.GetInputParam()).(*model.Artifact)

	file, err := os.Open(artifact.LocalPath)
	if err != nil {
		m.Fail(chCtx, model.NewError(model.KindInternal, "mirror", err))
		return
	}
	defer file.Close()

	locator, err := m.store.Store(ctx, file, path.Join(m.prefix, artifact.Id+".mp4"), videoContentType)
	if err != nil {
		m.Fail(chCtx, err)
		return
	}
	artifact.RemoteLocator = locator

	m.Log.InfoContext(ctx, "artifact mirrored", "artifact_id", artifact.Id, "locator", locator)
	m.Succeeded(ctx)
	chCtx.Add(m.GetOutputParam(), artifact)
}
