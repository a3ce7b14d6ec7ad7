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

package test

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"strings"
	"sync"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// FakeEngine stands in for ffmpeg. Transcode records its arguments, captures
// the colours of any image sequence input in order, and writes a small file
// at the output path. Failures are injected through the error fields.
type FakeEngine struct {
	mu sync.Mutex

	TranscodeErr error
	ProbeErr     error
	ProbeResult  engine.ProbeResult
	// ProbeFor overrides the probe result for paths containing the key.
	ProbeFor map[string]engine.ProbeResult

	Calls  [][]string
	Probes []string
	// Frames holds the dominant colour of each sequence frame seen by the
	// last Transcode, in sequence order.
	Frames []string
}

var _ engine.Engine = (*FakeEngine)(nil)

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{ProbeResult: engine.ProbeResult{DurationSeconds: 10, HasVideo: true, HasAudio: true}}
}

func (f *FakeEngine) Transcode(ctx context.Context, args []string) (engine.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, append([]string(nil), args...))

	if err := ctx.Err(); err != nil {
		return engine.Result{}, model.NewError(model.KindCanceled, "transcode", err)
	}
	if f.TranscodeErr != nil {
		return engine.Result{ExitCode: 1}, f.TranscodeErr
	}

	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-i" && strings.Contains(args[i+1], "%") {
			f.Frames = readSequence(args[i+1])
		}
	}
	out := args[len(args)-1]
	if err := os.WriteFile(out, []byte("fake mp4 "+out), 0o600); err != nil {
		return engine.Result{ExitCode: 1}, model.NewError(model.KindTranscodeFailed, "transcode", err)
	}
	return engine.Result{}, nil
}

func (f *FakeEngine) Probe(ctx context.Context, path string) (engine.ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Probes = append(f.Probes, path)
	if err := ctx.Err(); err != nil {
		return engine.ProbeResult{}, model.NewError(model.KindCanceled, "probe", err)
	}
	if f.ProbeErr != nil {
		return engine.ProbeResult{}, f.ProbeErr
	}
	for key, res := range f.ProbeFor {
		if strings.Contains(path, key) {
			return res, nil
		}
	}
	return f.ProbeResult, nil
}

// TranscodeCalls returns a copy of the recorded invocations.
func (f *FakeEngine) TranscodeCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.Calls...)
}

func readSequence(pattern string) []string {
	var out []string
	for seq := 0; ; seq++ {
		data, err := os.ReadFile(fmt.Sprintf(pattern, seq))
		if err != nil {
			return out
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			out = append(out, "undecodable")
			continue
		}
		out = append(out, Dominant(img))
	}
}
