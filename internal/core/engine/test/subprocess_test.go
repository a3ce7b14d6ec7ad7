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

package engine_test

import (
	"context"
	"image/color"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	test "github.com/jaycherian/gcp-go-media-assembly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBinaries(t *testing.T) *engine.Subprocess {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	e, err := engine.NewSubprocess(engine.Config{MaxConcurrent: 1, Timeout: time.Minute})
	require.NoError(t, err)
	return e
}

func TestNewSubprocessMissingBinary(t *testing.T) {
	_, err := engine.NewSubprocess(engine.Config{FFMpegPath: "/nonexistent/ffmpeg-binary"})
	assert.Error(t, err)
}

func TestSubprocessTranscodeFailureCarriesStderr(t *testing.T) {
	e := requireBinaries(t)
	out := filepath.Join(t.TempDir(), "out.mp4")
	_, err := e.Transcode(context.Background(), []string{"-hide_banner", "-i", "/nonexistent/input.mp4", out})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindTranscodeFailed))
	assert.Contains(t, err.Error(), "input.mp4")
}

func TestSubprocessCanceled(t *testing.T) {
	e := requireBinaries(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Transcode(ctx, []string{"-version"})
	assert.True(t, model.IsKind(err, model.KindCanceled))
}

func TestSubprocessSilentClipRoundTrip(t *testing.T) {
	e := requireBinaries(t)
	out := filepath.Join(t.TempDir(), "clip.mp4")
	_, err := e.Transcode(context.Background(), []string{
		"-y", "-hide_banner",
		"-f", "lavfi", "-i", "color=c=black:s=64x64:d=2",
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac", "-shortest",
		out,
	})
	require.NoError(t, err)

	res, err := e.Probe(context.Background(), out)
	require.NoError(t, err)
	assert.True(t, res.HasVideo)
	assert.True(t, res.HasAudio)
	assert.InDelta(t, 2.0, res.DurationSeconds, 0.2)
}

// lavfi renders a synthetic input with ffmpeg and returns its path.
func lavfi(t *testing.T, e *engine.Subprocess, name string, args ...string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), name)
	full := append([]string{"-y", "-hide_banner"}, args...)
	_, err := e.Transcode(context.Background(), append(full, out))
	require.NoError(t, err)
	return out
}

func clip(t *testing.T, e *engine.Subprocess, seconds string) string {
	return lavfi(t, e, "clip.mp4",
		"-f", "lavfi", "-i", "color=c=blue:s=64x64:r=25:d="+seconds,
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac", "-shortest")
}

func tone(t *testing.T, e *engine.Subprocess, seconds string) string {
	return lavfi(t, e, "tone.m4a",
		"-f", "lavfi", "-i", "sine=frequency=440:sample_rate=44100:duration="+seconds,
		"-c:a", "aac")
}

func probeDuration(t *testing.T, e *engine.Subprocess, path string) float64 {
	t.Helper()
	res, err := e.Probe(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.HasVideo)
	return res.DurationSeconds
}

func TestSubprocessAssembleDurationFollowsFrameCount(t *testing.T) {
	e := requireBinaries(t)
	mgr, err := scratch.NewManager(t.TempDir())
	require.NoError(t, err)
	session, err := mgr.Begin()
	require.NoError(t, err)
	defer session.End()

	for _, c := range []color.Color{test.Red, test.Green, test.Blue} {
		_, err := session.StageFrame(test.JPEG(t, 64, 48, c))
		require.NoError(t, err)
	}
	out := filepath.Join(t.TempDir(), "assembled.mp4")
	_, err = e.Transcode(context.Background(), engine.AssembleArgs(engine.AssembleSpec{
		FramePattern:    session.FramePattern(),
		SecondsPerFrame: 2,
		Width:           64,
		Height:          48,
		FrameRate:       25,
		Preset:          "ultrafast",
		Output:          out,
	}))
	require.NoError(t, err)

	res, err := e.Probe(context.Background(), out)
	require.NoError(t, err)
	assert.True(t, res.HasVideo)
	assert.True(t, res.HasAudio)
	assert.InDelta(t, 6.0, res.DurationSeconds, 2.0)
}

func TestSubprocessTrimKeepsRequestedWindow(t *testing.T) {
	e := requireBinaries(t)
	in := clip(t, e, "10")
	out := filepath.Join(t.TempDir(), "trimmed.mp4")

	_, err := e.Transcode(context.Background(), engine.TrimArgs(in, out, model.TrimRange{StartSeconds: 2, EndSeconds: 5}))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, probeDuration(t, e, out), 0.3)
}

func TestSubprocessOverlayEndsWithShorterInput(t *testing.T) {
	e := requireBinaries(t)
	cases := []struct {
		name         string
		video, audio string
	}{
		{"longer video", "10", "4"},
		{"longer audio", "4", "10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			video := clip(t, e, tc.video)
			audio := tone(t, e, tc.audio)
			out := filepath.Join(t.TempDir(), "overlay.mp4")

			_, err := e.Transcode(context.Background(), engine.OverlayArgs(video, audio, out))
			require.NoError(t, err)

			res, err := e.Probe(context.Background(), out)
			require.NoError(t, err)
			assert.True(t, res.HasVideo)
			assert.True(t, res.HasAudio)
			assert.InDelta(t, 4.0, res.DurationSeconds, 0.5)
		})
	}
}
