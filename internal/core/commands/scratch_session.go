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
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
)

// ScratchSessionOpener opens the per-invocation scratch directory and hands it
// to the context so Close removes it whatever the outcome.
type ScratchSessionOpener struct {
	cor.BaseCommand
	manager *scratch.Manager
}

func NewScratchSessionOpener(name string, manager *scratch.Manager) *ScratchSessionOpener {
	out := &ScratchSessionOpener{BaseCommand: *cor.NewBaseCommand(name), manager: manager}
	out.OutputParamName = ParamSession
	return out
}

// IsExecutable needs no input parameter.
func (o *ScratchSessionOpener) IsExecutable(chCtx cor.Context) bool {
	return chCtx != nil && chCtx.GetContext() != nil && o.manager != nil
}

func (o *ScratchSessionOpener) Execute(chCtx cor.Context) {
	session, err := o.manager.Begin()
	if err != nil {
		o.Fail(chCtx, err)
		return
	}
	chCtx.AddTempDir(session.Dir())
	o.Log.DebugContext(chCtx.GetContext(), "scratch session opened", "dir", session.Dir())
	o.Succeeded(chCtx.GetContext())
	chCtx.Add(o.GetOutputParam(), session)
}
