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
	"io"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"golang.org/x/time/rate"
)

// QuotaAwareStore wraps a BlobStore with a request rate limit shared by
// every pipeline run in the process. Calls wait for a token rather than
// failing; a cancelled context aborts the wait.
type QuotaAwareStore struct {
	BlobStore
	RateLimit *rate.Limiter
}

func NewQuotaAwareStore(wrapped BlobStore, requestsPerSecond int) *QuotaAwareStore {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Every(time.Second / time.Duration(requestsPerSecond))
	}
	return &QuotaAwareStore{
		BlobStore: wrapped,
		RateLimit: rate.NewLimiter(limit, max(requestsPerSecond, 1)),
	}
}

func (q *QuotaAwareStore) Open(ctx context.Context, locator string) (*Object, error) {
	if err := q.wait(ctx); err != nil {
		return nil, err
	}
	return q.BlobStore.Open(ctx, locator)
}

func (q *QuotaAwareStore) Store(ctx context.Context, r io.Reader, keyHint string, contentType string) (string, error) {
	if err := q.wait(ctx); err != nil {
		return "", err
	}
	return q.BlobStore.Store(ctx, r, keyHint, contentType)
}

func (q *QuotaAwareStore) wait(ctx context.Context) error {
	err := q.RateLimit.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.NewError(model.KindCanceled, "quota-wait", ctxErr)
	}
	// the limiter refuses to wait past the context deadline.
	return model.NewError(model.KindTransientIO, "quota-wait", err)
}
