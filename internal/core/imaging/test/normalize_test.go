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

package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"testing"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/imaging"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	test "github.com/jaycherian/gcp-go-media-assembly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

// halves encodes a 40x20 JPEG whose left half is red and right half blue.
func halves(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	draw.Draw(img, image.Rect(0, 0, 20, 20), image.NewUniform(test.Red), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(20, 0, 40, 20), image.NewUniform(test.Blue), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func colourAt(img image.Image, r image.Rectangle) string {
	return test.Dominant(img.(subImager).SubImage(r))
}

func TestNormalizeAppliesExifOrientation(t *testing.T) {
	cases := []struct {
		orientation int
		w, h        int
		red, blue   image.Rectangle
	}{
		// rotate 90 clockwise: the left edge becomes the top
		{6, 20, 40, image.Rect(0, 0, 20, 20), image.Rect(0, 20, 20, 40)},
		// rotate 90 counter-clockwise: the left edge becomes the bottom
		{8, 20, 40, image.Rect(0, 20, 20, 40), image.Rect(0, 0, 20, 20)},
		{3, 40, 20, image.Rect(20, 0, 40, 20), image.Rect(0, 0, 20, 20)},
		{2, 40, 20, image.Rect(20, 0, 40, 20), image.Rect(0, 0, 20, 20)},
		{1, 40, 20, image.Rect(0, 0, 20, 20), image.Rect(20, 0, 40, 20)},
	}
	n := imaging.NewNormalizer(1920, 90)
	for _, tc := range cases {
		raw := test.WithOrientation(t, halves(t), uint16(tc.orientation))
		require.Equal(t, tc.orientation, imaging.ReadOrientation(raw))

		out, err := n.Normalize(raw)
		require.NoError(t, err)

		img := decode(t, out)
		assert.Equal(t, tc.w, img.Bounds().Dx(), "orientation %d", tc.orientation)
		assert.Equal(t, tc.h, img.Bounds().Dy(), "orientation %d", tc.orientation)
		assert.Equal(t, 1, imaging.ReadOrientation(out), "the tag must not survive normalization")
		assert.Equal(t, "red", colourAt(img, tc.red), "orientation %d", tc.orientation)
		assert.Equal(t, "blue", colourAt(img, tc.blue), "orientation %d", tc.orientation)
	}
}

func TestNormalizeWithoutExif(t *testing.T) {
	raw := test.JPEG(t, 40, 20, test.Blue)
	assert.Equal(t, 1, imaging.ReadOrientation(raw))

	out, err := imaging.NewNormalizer(20, 0).Normalize(raw)
	require.NoError(t, err)
	img := decode(t, out)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
}

func TestNormalizeFlattensTransparentPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.NRGBA{A: 0})
		}
	}
	out, err := imaging.NewNormalizer(0, 0).Normalize(test.PNG(t, src))
	require.NoError(t, err)

	r, g, b, _ := decode(t, out).At(4, 4).RGBA()
	// fully transparent pixels end up white
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestNormalizeRejectsNonImages(t *testing.T) {
	n := imaging.NewNormalizer(0, 0)
	for name, data := range map[string][]byte{
		"text":      []byte("hello, this is not an image"),
		"pdf":       []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"),
		"truncated": test.JPEG(t, 16, 16, test.Green)[:40],
		"empty":     nil,
	} {
		_, err := n.Normalize(data)
		assert.True(t, model.IsKind(err, model.KindUnsupportedFormat), "%s: got %v", name, err)
	}
}
