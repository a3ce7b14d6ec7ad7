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

package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ScratchJanitor periodically removes scratch sessions left behind by a
// process that died mid-invocation.
type ScratchJanitor struct {
	manager  *scratch.Manager
	maxAge   time.Duration
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func NewScratchJanitor(manager *scratch.Manager, maxAge, interval time.Duration) *ScratchJanitor {
	return &ScratchJanitor{manager: manager, maxAge: maxAge, interval: interval, stop: make(chan struct{})}
}

// Sweep runs one pass and returns the number of sessions removed.
func (j *ScratchJanitor) Sweep(ctx context.Context) (int, error) {
	_, span := otel.Tracer("scratch-janitor").Start(ctx, "scratch-sweep")
	defer span.End()

	removed, err := j.manager.Sweep(j.maxAge)
	span.SetAttributes(attribute.Int("removed", removed))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "scratch sweep incomplete", "removed", removed, "error", err)
		return removed, err
	}
	span.SetStatus(codes.Ok, "")
	if removed > 0 {
		slog.InfoContext(ctx, "removed stale scratch sessions", "removed", removed)
	}
	return removed, nil
}

// StartTimer sweeps once immediately and then every interval until Stop.
func (j *ScratchJanitor) StartTimer() {
	if j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		_, _ = j.Sweep(context.Background())
		for {
			select {
			case <-ticker.C:
				_, _ = j.Sweep(context.Background())
			case <-j.stop:
				return
			}
		}
	}()
}

func (j *ScratchJanitor) Stop() {
	j.once.Do(func() { close(j.stop) })
}
