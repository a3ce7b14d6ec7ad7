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

// Package model_test covers source resolution, frame ordering, range
// validation and the error taxonomy.
package model_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseSource(t *testing.T) {
	raw := tinyPNG(t)
	encoded := base64.StdEncoding.EncodeToString(raw)

	t.Run("data uri", func(t *testing.T) {
		src, err := model.ParseSource("data:image/png;base64," + encoded)
		require.NoError(t, err)
		assert.Equal(t, model.SourceInline, src.Kind)
		assert.Equal(t, "image/png", src.ContentType)
		assert.Equal(t, raw, src.Data)
	})

	t.Run("bare base64 image", func(t *testing.T) {
		src, err := model.ParseSource(encoded)
		require.NoError(t, err)
		assert.Equal(t, model.SourceInline, src.Kind)
		assert.Equal(t, raw, src.Data)
	})

	t.Run("locators", func(t *testing.T) {
		for _, in := range []string{
			"gs://bucket/albums/a.jpg",
			"s3://bucket/a.jpg",
			"https://example.com/a.jpg",
			"albums/2024/a.jpg",
			"album123/img4567",
		} {
			src, err := model.ParseSource(in)
			require.NoError(t, err, in)
			assert.Equal(t, model.SourceRemote, src.Kind, in)
			assert.Equal(t, in, src.Locator)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := model.ParseSource("   ")
		assert.True(t, model.IsKind(err, model.KindValidation))
	})

	t.Run("malformed data uri", func(t *testing.T) {
		_, err := model.ParseSource("data:image/png,not-base64")
		assert.True(t, model.IsKind(err, model.KindValidation))
	})
}

func TestResolveAndFlatten(t *testing.T) {
	req := &model.AssemblyRequest{Albums: []model.AlbumInput{
		{
			Title:      "one",
			CoverImage: "gs://b/cover1.jpg",
			Images: []model.ImageInput{
				{URL: "gs://b/1a.jpg"},
				{URI: "gs://b/1b.jpg", Timestamp: "2024-10-11T03:04:08Z"},
			},
		},
		{
			Title:  "two",
			Images: []model.ImageInput{{URL: "gs://b/2a.jpg"}, {URL: "gs://b/2a.jpg"}},
		},
	}}

	albums, err := req.Resolve()
	require.NoError(t, err)
	frames := model.FlattenFrames(albums)

	want := []string{"gs://b/cover1.jpg", "gs://b/1a.jpg", "gs://b/1b.jpg", "gs://b/2a.jpg", "gs://b/2a.jpg"}
	require.Len(t, frames, len(want))
	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, want[i], f.Source.Locator)
	}
	assert.Equal(t, "two", frames[4].AlbumTitle)
}

func TestResolveRejectsEmptyInput(t *testing.T) {
	_, err := (&model.AssemblyRequest{}).Resolve()
	assert.True(t, model.IsKind(err, model.KindEmptyInput))

	_, err = (&model.AssemblyRequest{Albums: []model.AlbumInput{{Title: "x", CoverImage: "gs://b/c.jpg"}}}).Resolve()
	assert.True(t, model.IsKind(err, model.KindEmptyInput))

	_, err = (&model.AssemblyRequest{Albums: []model.AlbumInput{{Title: "x", Images: []model.ImageInput{{}}}}}).Resolve()
	assert.True(t, model.IsKind(err, model.KindValidation))
}

func TestTrimRangeValidate(t *testing.T) {
	assert.NoError(t, model.TrimRange{StartSeconds: 0, EndSeconds: 2.5}.Validate())
	assert.InDelta(t, 2.0, model.TrimRange{StartSeconds: 1, EndSeconds: 3}.Duration(), 1e-9)

	for _, r := range []model.TrimRange{
		{StartSeconds: 3, EndSeconds: 3},
		{StartSeconds: 5, EndSeconds: 1},
		{StartSeconds: -1, EndSeconds: 4},
		{StartSeconds: 0, EndSeconds: math.Inf(1)},
		{StartSeconds: math.NaN(), EndSeconds: 1},
	} {
		err := r.Validate()
		assert.True(t, model.IsKind(err, model.KindInvalidRange), "%+v", r)
	}
}

func TestErrorKinds(t *testing.T) {
	err := model.Errorf(model.KindNotFound, "fetch", "missing %s", "gs://b/a.jpg")
	wrapped := fmt.Errorf("frame 3: %w", err)

	assert.Equal(t, model.KindNotFound, model.KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, model.KindOf(wrapped).HTTPStatus())
	assert.False(t, model.KindNotFound.Retryable())
	assert.True(t, model.KindTransientIO.Retryable())

	canceled := model.NewError(model.KindTranscodeFailed, "assemble", context.Canceled)
	assert.Equal(t, model.KindCanceled, model.KindOf(canceled))
	assert.True(t, errors.Is(canceled, context.Canceled))

	assert.Equal(t, model.KindInternal, model.KindOf(errors.New("boom")))
	assert.Equal(t, model.KindInvalidRange.HTTPStatus(), http.StatusBadRequest)
}

func TestArtifactRecordRoundTrip(t *testing.T) {
	d := 12.5
	a := &model.Artifact{
		Id:              "abc",
		Operation:       model.OpTrim,
		ParentId:        "parent",
		Locator:         "/videos/trimmed_abc.mp4",
		LocalPath:       "/srv/videos/trimmed_abc.mp4",
		DurationSeconds: &d,
		CreatedAt:       time.Now().UTC(),
	}
	rec := model.NewArtifactRecord(a)
	assert.True(t, rec.ParentId.Valid)
	assert.False(t, rec.RemoteLocator.Valid)
	assert.Equal(t, a, rec.Artifact())

	resp := model.NewAssemblyResponse(a)
	assert.Equal(t, a.Locator, resp.VideoUrl)
	assert.Equal(t, &d, resp.Duration)
}
