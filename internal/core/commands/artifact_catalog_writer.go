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
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/services"
)

// ArtifactCatalogWriter records the published artifact and its lineage. The
// file is already served when this runs, so a catalog failure is logged and
// counted but does not fail the invocation.
type ArtifactCatalogWriter struct {
	cor.BaseCommand
	catalog services.Catalog
}

func NewArtifactCatalogWriter(name string, catalog services.Catalog) *ArtifactCatalogWriter {
	out := &ArtifactCatalogWriter{BaseCommand: *cor.NewBaseCommand(name), catalog: catalog}
	out.InputParamName = ParamArtifact
	return out
}

func (w *ArtifactCatalogWriter) IsExecutable(chCtx cor.Context) bool {
	return w.BaseCommand.IsExecutable(chCtx) && w.catalog != nil
}

func (w *ArtifactCatalogWriter) Execute(chCtx cor.Context) {
	ctx := chCtx.GetContext()
	artifact := chCtx.Get(w.GetInputParam()).(*model.Artifact)

	if err := w.catalog.Put(ctx, model.NewArtifactRecord(artifact)); err != nil {
		if w.ErrorCounter != nil {
			w.ErrorCounter.Add(ctx, 1)
		}
		w.Log.WarnContext(ctx, "failed to catalog artifact", "artifact_id", artifact.Id, "error", err)
		return
	}
	w.Succeeded(ctx)
	chCtx.Add(cor.CtxOut, artifact)
}
