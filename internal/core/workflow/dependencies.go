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

// Package workflow composes the pipeline commands into the assembly, trim,
// overlay and edit chains and runs them with per-invocation cleanup.
package workflow

import (
	"context"
	"path/filepath"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/services"
)

// Output name prefixes per workflow.
const (
	AssemblyNamePrefix = "video"
	TrimNamePrefix     = "trimmed"
	OverlayNamePrefix  = "overlay"
	EditNamePrefix     = "edited"
)

// Dependencies is everything a workflow needs besides its configuration.
// Mirror and Catalog are optional.
type Dependencies struct {
	Blobs    cloud.BlobStore
	Mirror   cloud.BlobStore
	Engine   engine.Engine
	Scratch  *scratch.Manager
	Catalog  services.Catalog
	Resolver commands.LocatorResolver
}

// NewDependencies wires the service clients into workflow dependencies. The
// output directory is made absolute so published paths are stable.
func NewDependencies(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	eng engine.Engine,
	scratchManager *scratch.Manager,
	catalog services.Catalog) (*Dependencies, error) {

	outputDir, err := filepath.Abs(config.Storage.OutputDir)
	if err != nil {
		return nil, err
	}
	deps := &Dependencies{
		Engine:  eng,
		Scratch: scratchManager,
		Catalog: catalog,
		Resolver: commands.LocatorResolver{
			OutputDir:     outputDir,
			PublicPrefix:  config.Storage.PublicPathPrefix,
			PublicBaseURL: config.Server.PublicBaseURL,
		},
	}
	if serviceClients != nil {
		deps.Blobs = serviceClients.Blobs
		deps.Mirror = serviceClients.Mirror
	}
	return deps, nil
}

// finish appends the steps every producing workflow ends with: mirror when
// configured, publish, then catalog.
func (d *Dependencies) finish(chain cor.Chain, config *cloud.Config, prefix string) {
	if d.Mirror != nil {
		chain.AddCommand(commands.NewArtifactMirror(prefix+"-mirror", d.Mirror, config.Storage.MirrorPrefix))
	}
	chain.AddCommand(commands.NewArtifactPublisher(prefix+"-publish", d.Resolver, prefix))
	if d.Catalog != nil {
		chain.AddCommand(commands.NewArtifactCatalogWriter(prefix+"-catalog", d.Catalog))
	}
}

// run executes command on a fresh context seeded with inputs and returns the
// produced artifact. Scratch is released before it returns.
func run(ctx context.Context, command cor.Command, inputs map[string]interface{}) (*model.Artifact, error) {
	chCtx := cor.NewBaseContextWith(ctx)
	defer chCtx.Close()
	for k, v := range inputs {
		chCtx.Add(k, v)
	}

	if !command.IsExecutable(chCtx) {
		return nil, model.NewError(model.KindValidation, command.GetName(), cor.ErrNotExecutable)
	}
	command.Execute(chCtx)

	if err := chCtx.Err(); err != nil {
		state := commands.State(chCtx)
		commands.SetState(chCtx, model.StateFailed)
		if model.KindOf(err) == model.KindInternal && ctx.Err() != nil {
			err = model.NewError(model.KindCanceled, string(state), err)
		}
		return nil, err
	}
	artifact := commands.ArtifactOf(chCtx)
	if artifact == nil || artifact.Locator == "" {
		return nil, model.Errorf(model.KindInternal, command.GetName(), "workflow finished without publishing an artifact")
	}
	return artifact, nil
}
