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

// Package commands holds the individual steps of the assembly, trim and
// overlay pipelines. Each step is a cor.Command that reads its input from a
// named context parameter and writes its result to another, so workflows can
// compose them freely.
package commands

import (
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
)

// Context parameter names shared by the pipeline commands.
const (
	ParamRequest   = "__ASSEMBLY_REQUEST__" // *model.AssemblyRequest
	ParamFrames    = "__FRAMES__"           // []model.FrameSpec
	ParamSession   = "__SCRATCH_SESSION__"  // *scratch.Session
	ParamPending   = "__PENDING_FRAMES__"   // []string, slot index -> pending path, "" when skipped
	ParamStaged    = "__STAGED_FRAMES__"    // []model.StagedFrame
	ParamArtifact  = "__ARTIFACT__"         // *model.Artifact
	ParamVideo     = "__VIDEO_SOURCE__"     // model.Source
	ParamAudio     = "__AUDIO_SOURCE__"     // model.Source
	ParamVideoPath = "__VIDEO_PATH__"       // string
	ParamAudioPath = "__AUDIO_PATH__"       // string
	ParamTrimRange = "__TRIM_RANGE__"       // model.TrimRange
	ParamParentId  = "__PARENT_ID__"        // string
	ParamState     = "__PIPELINE_STATE__"   // model.PipelineState
)

// SetState records the orchestrator state on the chain context.
func SetState(chCtx cor.Context, state model.PipelineState) {
	chCtx.Add(ParamState, state)
}

// State returns the last recorded state, or the empty state.
func State(chCtx cor.Context) model.PipelineState {
	if s, ok := chCtx.Get(ParamState).(model.PipelineState); ok {
		return s
	}
	return ""
}

// SessionOf returns the scratch session opened for this invocation.
func SessionOf(chCtx cor.Context) (*scratch.Session, error) {
	s, ok := chCtx.Get(ParamSession).(*scratch.Session)
	if !ok || s == nil {
		return nil, model.Errorf(model.KindInternal, "scratch", "no scratch session on context")
	}
	return s, nil
}

// ArtifactOf returns the artifact produced so far, if any.
func ArtifactOf(chCtx cor.Context) *model.Artifact {
	a, _ := chCtx.Get(ParamArtifact).(*model.Artifact)
	return a
}
