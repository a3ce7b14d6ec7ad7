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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
)

// FFMpegCommand encodes the staged frame sequence into a new video artifact.
// The output stays inside the scratch session until it is published, so a
// failed or partial encode is never exposed.
type FFMpegCommand struct {
	cor.BaseCommand
	engine engine.Engine
	spec   engine.AssembleSpec
}

// NewFFMpegCommand takes the pipeline wide encode settings; the frame pattern
// and output path are filled in per invocation.
func NewFFMpegCommand(name string, eng engine.Engine, spec engine.AssembleSpec) *FFMpegCommand {
	out := &FFMpegCommand{BaseCommand: *cor.NewBaseCommand(name), engine: eng, spec: spec}
	out.InputParamName = ParamStaged
	out.OutputParamName = ParamArtifact
	return out
}

func (c *FFMpegCommand) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateAssembling)
	staged := chCtx.Get(c.GetInputParam()).([]model.StagedFrame)
	session, err := SessionOf(chCtx)
	if err != nil {
		c.Fail(chCtx, err)
		return
	}

	artifact := newArtifact(model.OpAssemble, "")
	spec := c.spec
	spec.FramePattern = session.FramePattern()
	spec.Output = session.Path(artifact.Id + ".mp4")

	res, err := transcode(chCtx.GetContext(), c.engine, engine.AssembleArgs(spec), spec.Output)
	if err != nil {
		c.Fail(chCtx, err)
		return
	}
	artifact.LocalPath = spec.Output

	c.Log.InfoContext(chCtx.GetContext(), "video assembled",
		"artifact_id", artifact.Id, "frames", len(staged), "elapsed", res.Elapsed)
	c.Succeeded(chCtx.GetContext(), attribute.Int("frames", len(staged)))
	chCtx.Add(c.GetOutputParam(), artifact)
}

func newArtifact(op model.Operation, parentId string) *model.Artifact {
	return &model.Artifact{
		Id:        uuid.NewString(),
		Operation: op,
		ParentId:  parentId,
		CreatedAt: time.Now().UTC(),
	}
}

// transcode runs the engine and checks that it left a non-empty output file.
func transcode(ctx context.Context, eng engine.Engine, args []string, output string) (engine.Result, error) {
	res, err := eng.Transcode(ctx, args)
	if err != nil {
		_ = os.Remove(output)
		return res, err
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(output)
		return res, model.Errorf(model.KindTranscodeFailed, "transcode", "engine exited cleanly but produced no output at %s", output)
	}
	return res, nil
}

func parentOf(chCtx cor.Context) string {
	id, _ := chCtx.Get(ParamParentId).(string)
	return id
}

func outputName(a *model.Artifact, suffix string) string {
	return fmt.Sprintf("%s-%s.mp4", a.Id, suffix)
}
