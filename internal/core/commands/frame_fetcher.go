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

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/imaging"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// FrameFetcher downloads and normalizes every frame with a pool of workers.
// Work completes in any order; each result lands in the slot of its frame
// index, so the sequence order is fixed by the request and never by timing.
//
// With skipFailed unset the first failure cancels the remaining workers.
// With it set, a frame that cannot be fetched or decoded leaves its slot
// empty; scratch and cancellation errors still stop the pipeline.
type FrameFetcher struct {
	cor.BaseCommand
	blobs           cloud.BlobStore
	normalizer      *imaging.Normalizer
	numberOfWorkers int
	skipFailed      bool
	maxImageBytes   int64
	skippedCounter  metric.Int64Counter
}

func NewFrameFetcher(
	name string,
	blobs cloud.BlobStore,
	normalizer *imaging.Normalizer,
	numberOfWorkers int,
	skipFailed bool,
	maxImageBytes int64) *FrameFetcher {

	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &FrameFetcher{
		BaseCommand:     *cor.NewBaseCommand(name),
		blobs:           blobs,
		normalizer:      normalizer,
		numberOfWorkers: numberOfWorkers,
		skipFailed:      skipFailed,
		maxImageBytes:   maxImageBytes,
	}
	out.InputParamName = ParamFrames
	out.OutputParamName = ParamPending
	out.skippedCounter, _ = out.Meter.Int64Counter(fmt.Sprintf("%s.counter.skipped", name))
	return out
}

func (f *FrameFetcher) IsExecutable(chCtx cor.Context) bool {
	return f.BaseCommand.IsExecutable(chCtx) && chCtx.Get(ParamSession) != nil
}

// frameJob is one frame handed to a worker.
type frameJob struct {
	frame model.FrameSpec
	span  trace.Span
	ctx   context.Context
}

func (j *frameJob) close(err error) {
	if err != nil {
		j.span.SetStatus(codes.Error, err.Error())
		j.span.RecordError(err)
	} else {
		j.span.SetStatus(codes.Ok, "")
	}
	j.span.End()
}

func (f *FrameFetcher) Execute(chCtx cor.Context) {
	SetState(chCtx, model.StateStaging)
	frames := chCtx.Get(f.GetInputParam()).([]model.FrameSpec)
	session, err := SessionOf(chCtx)
	if err != nil {
		f.Fail(chCtx, err)
		return
	}

	pending := make([]string, len(frames))
	g, gctx := errgroup.WithContext(chCtx.GetContext())
	jobs := make(chan *frameJob)

	for w := 0; w < f.numberOfWorkers && w < len(frames); w++ {
		g.Go(func() error {
			return f.worker(jobs, session, pending)
		})
	}
	g.Go(func() error {
		defer close(jobs)
		for _, frame := range frames {
			jobCtx, span := f.Tracer.Start(gctx, "fetch_frame",
				trace.WithAttributes(attribute.Int("index", frame.Index), attribute.String("album", frame.AlbumTitle)))
			select {
			case jobs <- &frameJob{frame: frame, span: span, ctx: jobCtx}:
			case <-gctx.Done():
				span.End()
				return nil
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		f.Fail(chCtx, err)
		return
	}
	if err := chCtx.GetContext().Err(); err != nil {
		f.Fail(chCtx, model.NewError(model.KindCanceled, "stage", err))
		return
	}

	f.Succeeded(chCtx.GetContext(), attribute.Int("frames", len(frames)))
	chCtx.Add(f.GetOutputParam(), pending)
}

func (f *FrameFetcher) worker(jobs <-chan *frameJob, session *scratch.Session, pending []string) error {
	for job := range jobs {
		p, err := f.stage(job.ctx, session, job.frame)
		job.close(err)
		if err == nil {
			pending[job.frame.Index] = p
			continue
		}
		err = fmt.Errorf("frame %d of album %q (%s): %w", job.frame.Index, job.frame.AlbumTitle, job.frame.Source, err)
		if !f.skipFailed || !skippable(err) {
			return err
		}
		f.Log.WarnContext(job.ctx, "skipping frame", "index", job.frame.Index, "error", err)
		if f.skippedCounter != nil {
			f.skippedCounter.Add(job.ctx, 1)
		}
	}
	return nil
}

func (f *FrameFetcher) stage(ctx context.Context, session *scratch.Session, frame model.FrameSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", model.NewError(model.KindCanceled, "fetch", err)
	}
	data, err := f.read(ctx, frame.Source)
	if err != nil {
		return "", err
	}
	normalized, err := f.normalizer.Normalize(data)
	if err != nil {
		return "", err
	}
	return session.WritePending(frame.Index, normalized)
}

func (f *FrameFetcher) read(ctx context.Context, src model.Source) ([]byte, error) {
	switch src.Kind {
	case model.SourceInline:
		if f.maxImageBytes > 0 && int64(len(src.Data)) > f.maxImageBytes {
			return nil, model.Errorf(model.KindValidation, "fetch", "inline image exceeds the %d byte limit", f.maxImageBytes)
		}
		return src.Data, nil
	case model.SourceRemote:
		data, _, err := cloud.FetchLimited(ctx, f.blobs, src.Locator, f.maxImageBytes)
		return data, err
	default:
		return nil, model.Errorf(model.KindValidation, "fetch", "image source %s is not accepted", src)
	}
}

// skippable reports whether a single frame failure may be dropped.
func skippable(err error) bool {
	switch model.KindOf(err) {
	case model.KindCanceled, model.KindDiskFull, model.KindInternal:
		return false
	default:
		return true
	}
}
