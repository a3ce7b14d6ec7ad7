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

// Package engine drives the external ffmpeg and ffprobe binaries. Argument
// construction lives in args.go so it can be tested without the binaries;
// Subprocess runs them with a bounded stderr tail, a per-run timeout and a
// cap on concurrent invocations.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"golang.org/x/sync/semaphore"
)

const maxStderrBytes = 8 * 1024

// Engine is the transcoding backend used by the pipeline commands.
type Engine interface {
	// Transcode runs ffmpeg with args. A non-zero exit is reported as a
	// TranscodeFailed error carrying the stderr tail.
	Transcode(ctx context.Context, args []string) (Result, error)
	// Probe reads container duration and stream kinds of a media file.
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

type Result struct {
	ExitCode   int
	StderrTail string
	Elapsed    time.Duration
}

type ProbeResult struct {
	DurationSeconds float64
	HasVideo        bool
	HasAudio        bool
}

type Config struct {
	FFMpegPath    string
	FFProbePath   string
	MaxConcurrent int64
	Timeout       time.Duration
	Logger        *slog.Logger
}

// Subprocess is the Engine backed by locally installed binaries.
type Subprocess struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
	sem     *semaphore.Weighted
	log     *slog.Logger
}

var _ Engine = (*Subprocess)(nil)

// NewSubprocess resolves both binaries on PATH (or at the configured
// location) and fails when either is missing.
func NewSubprocess(cfg Config) (*Subprocess, error) {
	if cfg.FFMpegPath == "" {
		cfg.FFMpegPath = "ffmpeg"
	}
	if cfg.FFProbePath == "" {
		cfg.FFProbePath = "ffprobe"
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "engine")
	}
	ffmpeg, err := exec.LookPath(cfg.FFMpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg binary %q not found: %w", cfg.FFMpegPath, err)
	}
	ffprobe, err := exec.LookPath(cfg.FFProbePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe binary %q not found: %w", cfg.FFProbePath, err)
	}
	return &Subprocess{
		cfg:     cfg,
		ffmpeg:  ffmpeg,
		ffprobe: ffprobe,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		log:     cfg.Logger,
	}, nil
}

func (s *Subprocess) Transcode(ctx context.Context, args []string) (Result, error) {
	res, err := s.run(ctx, s.ffmpeg, args, io.Discard)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		kind := model.KindTranscodeFailed
		if strings.Contains(res.StderrTail, "No space left on device") {
			kind = model.KindDiskFull
		}
		return res, model.Errorf(kind, "transcode", "ffmpeg exited with %d: %s", res.ExitCode, truncate(res.StderrTail, 512))
	}
	return res, nil
}

func (s *Subprocess) Probe(ctx context.Context, path string) (ProbeResult, error) {
	var stdout bytes.Buffer
	res, err := s.run(ctx, s.ffprobe, ProbeArgs(path), &limitedWriter{w: &stdout, limit: 64 * 1024})
	if err != nil {
		if model.IsKind(err, model.KindCanceled) {
			return ProbeResult{}, err
		}
		return ProbeResult{}, model.NewError(model.KindProbeFailed, "probe", err)
	}
	if res.ExitCode != 0 {
		return ProbeResult{}, model.Errorf(model.KindProbeFailed, "probe", "ffprobe exited with %d: %s", res.ExitCode, truncate(res.StderrTail, 512))
	}
	return ParseProbe(stdout.Bytes())
}

// run executes bin under the concurrency cap and timeout. The returned error
// is only set when the process could not be run to completion; a non-zero
// exit is reported through Result.ExitCode.
func (s *Subprocess) run(ctx context.Context, bin string, args []string, stdout io.Writer) (Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Result{ExitCode: -1}, model.NewError(model.KindCanceled, "engine", err)
	}
	defer s.sem.Release(1)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = stdout

	s.log.DebugContext(ctx, "executing engine command", "bin", bin, "args", args)
	err := cmd.Run()
	res := Result{StderrTail: stderrBuf.String(), Elapsed: time.Since(start)}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, model.Errorf(model.KindTranscodeFailed, "engine", "%s timed out after %s", bin, s.cfg.Timeout)
		}
		return res, model.NewError(model.KindCanceled, "engine", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			return res, model.NewError(model.KindTranscodeFailed, "engine", err)
		}
	}

	if res.ExitCode != 0 {
		s.log.WarnContext(ctx, "engine command failed",
			"bin", bin,
			"exit_code", res.ExitCode,
			"duration_ms", res.Elapsed.Milliseconds(),
			"stderr_tail", truncate(res.StderrTail, 512))
	} else {
		s.log.InfoContext(ctx, "engine command succeeded", "bin", bin, "duration_ms", res.Elapsed.Milliseconds())
	}
	return res, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
