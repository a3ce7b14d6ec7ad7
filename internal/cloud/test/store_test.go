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

package cloud_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := cloud.NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Store(ctx, strings.NewReader("one"), "videos/out.mp4", "video/mp4")
	require.NoError(t, err)
	second, err := store.Store(ctx, strings.NewReader("two"), "videos/out.mp4", "video/mp4")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "fs://videos/"))
	assert.True(t, strings.HasSuffix(first, "-out.mp4"))

	data, _, err := cloud.Fetch(ctx, store, first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	img, err := store.Store(ctx, strings.NewReader("jpeg"), "albums/cover.jpg", "")
	require.NoError(t, err)
	_, contentType, err := cloud.Fetch(ctx, store, img)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	// bare keys resolve against the root
	key := strings.TrimPrefix(second, "fs://")
	data, _, err = cloud.Fetch(ctx, store, key)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestFSStoreErrors(t *testing.T) {
	store, err := cloud.NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Open(ctx, "fs://missing.jpg")
	assert.True(t, model.IsKind(err, model.KindNotFound))

	_, err = store.Open(ctx, "fs://../../etc/passwd")
	assert.True(t, model.IsKind(err, model.KindValidation))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Store(canceled, strings.NewReader("x"), "a.jpg", "")
	assert.True(t, model.IsKind(err, model.KindCanceled))
}

func TestFetchLimited(t *testing.T) {
	store, err := cloud.NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	loc, err := store.Store(ctx, bytes.NewReader(bytes.Repeat([]byte("x"), 64)), "big.jpg", "image/jpeg")
	require.NoError(t, err)

	_, _, err = cloud.FetchLimited(ctx, store, loc, 63)
	assert.True(t, model.IsKind(err, model.KindValidation), "got %v", err)

	data, _, err := cloud.FetchLimited(ctx, store, loc, 64)
	require.NoError(t, err)
	assert.Len(t, data, 64)

	data, _, err = cloud.FetchLimited(ctx, store, loc, 0)
	require.NoError(t, err)
	assert.Len(t, data, 64)
}

func TestFetchLimitedWithoutContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 8; i++ {
			_, _ = w.Write(bytes.Repeat([]byte("y"), 1024))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	_, _, err := cloud.FetchLimited(context.Background(), cloud.NewHTTPStore(5*time.Second), srv.URL+"/stream.jpg", 4096)
	assert.True(t, model.IsKind(err, model.KindValidation), "got %v", err)
}

func TestUniqueKey(t *testing.T) {
	k := cloud.UniqueKey("mirror", "../videos/a.mp4")
	assert.True(t, strings.HasPrefix(k, "mirror/videos/"), k)
	assert.True(t, strings.HasSuffix(k, "-a.mp4"), k)
	assert.NotEqual(t, k, cloud.UniqueKey("mirror", "../videos/a.mp4"))
	assert.True(t, strings.HasSuffix(cloud.UniqueKey("", ""), "-blob"))
}

func TestBlobRouter(t *testing.T) {
	fs, err := cloud.NewFSStore(t.TempDir())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-bytes"))
		case "/flaky.jpg":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	router := cloud.NewBlobRouter(fs, cloud.NewHTTPStore(5*time.Second))
	ctx := context.Background()

	data, ct, err := cloud.Fetch(ctx, router, srv.URL+"/ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", ct)

	_, _, err = cloud.Fetch(ctx, router, srv.URL+"/missing.jpg")
	assert.True(t, model.IsKind(err, model.KindNotFound))

	_, _, err = cloud.Fetch(ctx, router, srv.URL+"/flaky.jpg")
	assert.True(t, model.IsKind(err, model.KindTransientIO))

	_, _, err = cloud.Fetch(ctx, router, "s3://bucket/key.jpg")
	assert.True(t, model.IsKind(err, model.KindValidation))

	loc, err := router.Store(ctx, bytes.NewReader([]byte("x")), "k.bin", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, "fs://"))

	_, ok := router.Lookup("gcs")
	assert.False(t, ok)
	_, ok = router.Lookup("fs")
	assert.True(t, ok)
}

func TestQuotaAwareStoreHonoursCancellation(t *testing.T) {
	fs, err := cloud.NewFSStore(t.TempDir())
	require.NoError(t, err)
	q := cloud.NewQuotaAwareStore(fs, 1)
	assert.Equal(t, "fs", q.Scheme())

	ctx := context.Background()
	loc, err := q.Store(ctx, strings.NewReader("x"), "a.txt", "")
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Open(canceled, loc)
	assert.True(t, model.IsKind(err, model.KindCanceled))
}
