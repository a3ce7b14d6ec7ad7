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
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// AudioOverlayCommand replaces the audio of the source video with the given
// track. The output ends with the shorter of the two streams.
type AudioOverlayCommand struct {
	cor.BaseCommand
	engine engine.Engine
}

func NewAudioOverlayCommand(name string, eng engine.Engine) *AudioOverlayCommand {
	out := &AudioOverlayCommand{BaseCommand: *cor.NewBaseCommand(name), engine: eng}
	out.InputParamName = ParamVideoPath
	out.OutputParamName = ParamArtifact
	return out
}

func (c *AudioOverlayCommand) IsExecutable(chCtx cor.Context) bool {
	return c.BaseCommand.IsExecutable(chCtx) && chCtx.Get(ParamAudioPath) != nil && chCtx.Get(ParamSession) != nil
}

func (c *AudioOverlayCommand) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateOverlaying)
	ctx := chCtx.GetContext()
	video := chCtx.Get(c.GetInputParam()).(string)
	audio := chCtx.Get(ParamAudioPath).(string)
	session, err := SessionOf(chCtx)
	if err != nil {
		c.Fail(chCtx, err)
		return
	}

	if err := c.checkAudio(chCtx, audio); err != nil {
		c.Fail(chCtx, err)
		return
	}

	artifact := newArtifact(model.OpOverlay, parentOf(chCtx))
	out := session.Path(outputName(artifact, "overlay"))
	if _, err := transcode(ctx, c.engine, engine.OverlayArgs(video, audio, out), out); err != nil {
		c.Fail(chCtx, err)
		return
	}
	artifact.LocalPath = out

	c.Log.InfoContext(ctx, "audio overlaid", "artifact_id", artifact.Id, "parent_id", artifact.ParentId)
	c.Succeeded(ctx)
	chCtx.Add(ParamVideoPath, out)
	chCtx.Add(c.GetOutputParam(), artifact)
}

// checkAudio accepts any file the engine reports an audio stream for. Files
// whose signature says they are neither audio nor video are refused without
// starting the engine.
func (c *AudioOverlayCommand) checkAudio(chCtx cor.Context, path string) error {
	kind, _ := filetype.MatchFile(path)
	if kind != filetype.Unknown && kind.MIME.Type != "audio" && kind.MIME.Type != "video" {
		return model.Errorf(model.KindUnsupportedAudioFormat, "overlay", "audio track is %s", kind.MIME.Value)
	}
	res, err := c.engine.Probe(chCtx.GetContext(), path)
	if err != nil {
		if model.IsKind(err, model.KindCanceled) {
			return err
		}
		return model.NewError(model.KindUnsupportedAudioFormat, "overlay", err)
	}
	if !res.HasAudio {
		return model.Errorf(model.KindUnsupportedAudioFormat, "overlay", "no audio stream found in track")
	}
	return nil
}
