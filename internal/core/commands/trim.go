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
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// TrimRangeValidator rejects a bad range before any file is fetched or any
// engine process starts.
type TrimRangeValidator struct {
	cor.BaseCommand
}

func NewTrimRangeValidator(name string) *TrimRangeValidator {
	out := &TrimRangeValidator{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamTrimRange
	return out
}

func (v *TrimRangeValidator) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateTrimming)
	r, ok := chCtx.Get(v.GetInputParam()).(model.TrimRange)
	if !ok {
		v.Fail(chCtx, model.Errorf(model.KindInvalidRange, "trim", "missing trim range"))
		return
	}
	if err := r.Validate(); err != nil {
		v.Fail(chCtx, err)
		return
	}
	v.Succeeded(chCtx.GetContext())
}

// TrimCommand cuts the [start, end) window of the source video into a new
// artifact. The source file is only read. The trimmed file also becomes the
// video input of any later step in the same chain.
type TrimCommand struct {
	cor.BaseCommand
	engine engine.Engine
}

func NewTrimCommand(name string, eng engine.Engine) *TrimCommand {
	out := &TrimCommand{BaseCommand: *cor.NewBaseCommand(name), engine: eng}
	out.InputParamName = ParamVideoPath
	out.OutputParamName = ParamArtifact
	return out
}

func (c *TrimCommand) IsExecutable(chCtx cor.Context) bool {
	return c.BaseCommand.IsExecutable(chCtx) && chCtx.Get(ParamTrimRange) != nil && chCtx.Get(ParamSession) != nil
}

func (c *TrimCommand) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateTrimming)
	ctx := chCtx.GetContext()
	in := chCtx.Get(c.GetInputParam()).(string)
	r := chCtx.Get(ParamTrimRange).(model.TrimRange)
	if err := r.Validate(); err != nil {
		c.Fail(chCtx, err)
		return
	}
	session, err := SessionOf(chCtx)
	if err != nil {
		c.Fail(chCtx, err)
		return
	}

	if src, err := c.engine.Probe(ctx, in); err == nil && src.DurationSeconds > 0 {
		if err := withinSource(r, src.DurationSeconds); err != nil {
			c.Fail(chCtx, err)
			return
		}
	}

	artifact := newArtifact(model.OpTrim, parentOf(chCtx))
	out := session.Path(outputName(artifact, "trim"))
	if _, err := transcode(ctx, c.engine, engine.TrimArgs(in, out, r), out); err != nil {
		c.Fail(chCtx, err)
		return
	}
	artifact.LocalPath = out

	c.Log.InfoContext(ctx, "video trimmed", "artifact_id", artifact.Id, "parent_id", artifact.ParentId,
		"start", r.StartSeconds, "end", r.EndSeconds)
	c.Succeeded(ctx)
	chCtx.Add(ParamVideoPath, out)
	chCtx.Add(c.GetOutputParam(), artifact)
}

// Container durations are rounded, so an end a few frames past the reported
// duration still counts as the end of the source.
const durationTolerance = 0.05

func withinSource(r model.TrimRange, duration float64) error {
	if r.StartSeconds >= duration {
		return model.Errorf(model.KindInvalidRange, "trim",
			"start %.3f is beyond the source duration %.3f", r.StartSeconds, duration)
	}
	if r.EndSeconds > duration+durationTolerance {
		return model.Errorf(model.KindInvalidRange, "trim",
			"end %.3f is beyond the source duration %.3f", r.EndSeconds, duration)
	}
	return nil
}
