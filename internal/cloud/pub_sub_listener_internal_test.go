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

package cloud

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/stretchr/testify/assert"
)

type scriptedCommand struct {
	cor.BaseCommand
	err  error
	seen string
}

func (s *scriptedCommand) Execute(ctx cor.Context) {
	s.seen = ctx.Get(cor.CtxIn).(string)
	if s.err != nil {
		ctx.AddError(s.Name, s.err)
	}
}

func TestPubSubListenerSettlement(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantAck  bool
		wantNack bool
	}{
		{name: "success", wantAck: true},
		{name: "validation", err: model.Errorf(model.KindEmptyInput, "validate", "no albums"), wantAck: true},
		{name: "not found", err: model.Errorf(model.KindNotFound, "fetch", "gone"), wantAck: true},
		{name: "transcode", err: model.Errorf(model.KindTranscodeFailed, "assemble", "exit 1"), wantNack: true},
		{name: "canceled", err: model.NewError(model.KindInternal, "assemble", context.Canceled), wantNack: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := &scriptedCommand{BaseCommand: *cor.NewBaseCommand("scripted"), err: tc.err}
			l := &PubSubListener{command: cmd, log: slog.Default()}

			var acked, nacked bool
			l.Handle(context.Background(), "m-1", []byte(`{"albums":[]}`), func() { acked = true }, func() { nacked = true })

			assert.Equal(t, `{"albums":[]}`, cmd.seen)
			assert.Equal(t, tc.wantAck, acked)
			assert.Equal(t, tc.wantNack, nacked)
		})
	}
}
