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

package workflow

import (
	"context"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/imaging"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// AssemblyWorkflow turns an album request into a published slideshow video:
// validate, stage frames, encode, probe, then publish. It is triggered both
// from HTTP and from the Pub/Sub request listener, where the raw message sits
// under cor.CtxIn.
type AssemblyWorkflow struct {
	cor.BaseCommand
	config *cloud.Config
	deps   *Dependencies
	chain  cor.Chain
}

func NewAssemblyWorkflow(config *cloud.Config, deps *Dependencies) *AssemblyWorkflow {
	out := &AssemblyWorkflow{
		BaseCommand: *cor.NewBaseCommand("assembly-workflow"),
		config:      config,
		deps:        deps,
	}
	out.initializeChain()
	return out
}

func (w *AssemblyWorkflow) initializeChain() {
	p := w.config.Pipeline
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewAssemblyRequestReader("assembly-request-reader", w.deps.Blobs))
	out.AddCommand(commands.NewAlbumValidator("album-validator", p.MaxFrames))
	out.AddCommand(commands.NewScratchSessionOpener("scratch-session", w.deps.Scratch))
	out.AddCommand(commands.NewFrameFetcher(
		"frame-fetcher",
		w.deps.Blobs,
		imaging.NewNormalizer(p.MaxLongSide, p.JpegQuality),
		p.FetchWorkers,
		p.OnImageFailure == cloud.OnImageFailureSkip,
		p.MaxImageBytes()))
	out.AddCommand(commands.NewFrameStager("frame-stager"))
	out.AddCommand(commands.NewFFMpegCommand("video-assembler", w.deps.Engine, engine.AssembleSpec{
		SecondsPerFrame: p.SecondsPerFrame,
		Width:           p.Width,
		Height:          p.Height,
		FrameRate:       p.FrameRate,
		Preset:          p.Preset,
		CRF:             p.CRF,
	}))
	out.AddCommand(commands.NewDurationProbe("duration-probe", w.deps.Engine))
	w.deps.finish(out, w.config, AssemblyNamePrefix)

	w.chain = out
}

func (w *AssemblyWorkflow) Execute(chCtx cor.Context) {
	w.chain.Execute(chCtx)
}

// Run assembles req and returns the published artifact.
func (w *AssemblyWorkflow) Run(ctx context.Context, req *model.AssemblyRequest) (*model.Artifact, error) {
	return run(ctx, w, map[string]interface{}{cor.CtxIn: req})
}
