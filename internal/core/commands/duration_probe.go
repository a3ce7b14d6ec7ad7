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

// DurationProbe reads the container duration of the current artifact. It is
// best effort: a probe failure leaves the duration absent and the pipeline
// carries on. Only cancellation stops the chain.
type DurationProbe struct {
	cor.BaseCommand
	engine engine.Engine
}

func NewDurationProbe(name string, eng engine.Engine) *DurationProbe {
	out := &DurationProbe{BaseCommand: *cor.NewBaseCommand(name), engine: eng}
	out.InputParamName = ParamArtifact
	out.OutputParamName = ParamArtifact
	return out
}

func (p *DurationProbe) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateProbing)
	artifact := chCtx.Get(p.GetInputParam()).(*model.Artifact)
	ctx := chCtx.GetContext()

	res, err := p.engine.Probe(ctx, artifact.LocalPath)
	switch {
	case err == nil:
		d := res.DurationSeconds
		artifact.DurationSeconds = &d
		p.Succeeded(ctx)
	case model.IsKind(err, model.KindCanceled):
		p.Fail(chCtx, err)
		return
	default:
		artifact.DurationSeconds = nil
		if p.ErrorCounter != nil {
			p.ErrorCounter.Add(ctx, 1)
		}
		p.Log.WarnContext(ctx, "duration unavailable", "artifact_id", artifact.Id, "error", err)
	}
	chCtx.Add(p.GetOutputParam(), artifact)
}
