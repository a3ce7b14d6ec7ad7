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
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// EditWorkflow runs the non-destructive edits on an existing video. Each run
// produces a new artifact whose parent is the source video; the source file
// is never written. Depending on what it is built with it trims, overlays an
// audio track, or trims and then overlays.
type EditWorkflow struct {
	cor.BaseCommand
	config  *cloud.Config
	deps    *Dependencies
	trim    bool
	overlay bool
	prefix  string
	chain   cor.Chain
}

// NewTrimWorkflow trims a video into a "trimmed_" artifact.
func NewTrimWorkflow(config *cloud.Config, deps *Dependencies) *EditWorkflow {
	return newEditWorkflow("trim-workflow", config, deps, true, false, TrimNamePrefix)
}

// NewAudioOverlayWorkflow lays an audio track over a video into an
// "overlay_" artifact.
func NewAudioOverlayWorkflow(config *cloud.Config, deps *Dependencies) *EditWorkflow {
	return newEditWorkflow("audio-overlay-workflow", config, deps, false, true, OverlayNamePrefix)
}

// NewEditWorkflow trims and then overlays into an "edited_" artifact.
func NewEditWorkflow(config *cloud.Config, deps *Dependencies) *EditWorkflow {
	return newEditWorkflow("edit-workflow", config, deps, true, true, EditNamePrefix)
}

func newEditWorkflow(name string, config *cloud.Config, deps *Dependencies, trim, overlay bool, prefix string) *EditWorkflow {
	out := &EditWorkflow{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      config,
		deps:        deps,
		trim:        trim,
		overlay:     overlay,
		prefix:      prefix,
	}
	out.InputParamName = commands.ParamVideo
	out.initializeChain()
	return out
}

func (w *EditWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	// Uploaded files are staged under the scratch root by the HTTP layer.
	roots := []string{w.deps.Resolver.OutputDir, w.deps.Scratch.Root()}

	// Range problems are reported before anything is fetched or encoded.
	if w.trim {
		out.AddCommand(commands.NewTrimRangeValidator(w.prefix + "-range-validator"))
	}
	out.AddCommand(commands.NewScratchSessionOpener(w.prefix+"-scratch-session", w.deps.Scratch))
	out.AddCommand(commands.NewSourceFetcher(w.prefix+"-video-fetcher", w.deps.Blobs,
		commands.ParamVideo, commands.ParamVideoPath, "source-video", true, roots...))
	if w.overlay {
		out.AddCommand(commands.NewSourceFetcher(w.prefix+"-audio-fetcher", w.deps.Blobs,
			commands.ParamAudio, commands.ParamAudioPath, "audio-track", false, roots...))
	}
	if w.trim {
		out.AddCommand(commands.NewTrimCommand(w.prefix+"-trim", w.deps.Engine))
	}
	if w.overlay {
		out.AddCommand(commands.NewAudioOverlayCommand(w.prefix+"-audio-overlay", w.deps.Engine))
	}
	out.AddCommand(commands.NewDurationProbe(w.prefix+"-duration-probe", w.deps.Engine))
	w.deps.finish(out, w.config, w.prefix)

	w.chain = out
}

func (w *EditWorkflow) Execute(chCtx cor.Context) {
	w.chain.Execute(chCtx)
}

// Run applies the configured edits to video. r is required when the workflow
// trims and audio when it overlays.
func (w *EditWorkflow) Run(ctx context.Context, video model.Source, r *model.TrimRange, audio *model.Source) (*model.Artifact, error) {
	inputs := map[string]interface{}{commands.ParamVideo: video}
	if w.trim {
		if r == nil {
			return nil, model.Errorf(model.KindInvalidRange, w.GetName(), "start and end are required")
		}
		inputs[commands.ParamTrimRange] = *r
	}
	if w.overlay {
		if audio == nil {
			return nil, model.Errorf(model.KindValidation, w.GetName(), "an audio track is required")
		}
		inputs[commands.ParamAudio] = *audio
	}
	return run(ctx, w, inputs)
}
