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
	"go.opentelemetry.io/otel/attribute"
)

// FrameStager promotes the fetched frames into the contiguous zero based
// sequence the engine reads, walking the slots in frame order.
type FrameStager struct {
	cor.BaseCommand
}

func NewFrameStager(name string) *FrameStager {
	out := &FrameStager{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamPending
	out.OutputParamName = ParamStaged
	return out
}

func (s *FrameStager) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateStaging)
	pending := chCtx.Get(s.GetInputParam()).([]string)
	session, err := SessionOf(chCtx)
	if err != nil {
		s.Fail(chCtx, err)
		return
	}

	staged := make([]model.StagedFrame, 0, len(pending))
	for _, p := range pending {
		if p == "" {
			continue
		}
		frame, err := session.Promote(p)
		if err != nil {
			s.Fail(chCtx, err)
			return
		}
		staged = append(staged, frame)
	}
	if len(staged) == 0 {
		s.Fail(chCtx, model.Errorf(model.KindEmptyInput, "stage", "no frame could be staged"))
		return
	}

	s.Log.InfoContext(chCtx.GetContext(), "frames staged", "staged", len(staged), "skipped", len(pending)-len(staged))
	s.Succeeded(chCtx.GetContext(), attribute.Int("frames", len(staged)))
	chCtx.Add(s.GetOutputParam(), staged)
}
