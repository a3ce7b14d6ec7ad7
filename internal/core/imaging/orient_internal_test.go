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

package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

func TestOrientAllValues(t *testing.T) {
	// stored pixels: red at (0,0), green at (1,0)
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, red)
	src.Set(1, 0, green)

	tests := []struct {
		orientation    int
		w, h           int
		redAt, greenAt image.Point
	}{
		{1, 2, 1, image.Pt(0, 0), image.Pt(1, 0)},
		{2, 2, 1, image.Pt(1, 0), image.Pt(0, 0)},
		{3, 2, 1, image.Pt(1, 0), image.Pt(0, 0)},
		{4, 2, 1, image.Pt(0, 0), image.Pt(1, 0)},
		{5, 1, 2, image.Pt(0, 0), image.Pt(0, 1)},
		{6, 1, 2, image.Pt(0, 0), image.Pt(0, 1)},
		{7, 1, 2, image.Pt(0, 1), image.Pt(0, 0)},
		{8, 1, 2, image.Pt(0, 1), image.Pt(0, 0)},
		{0, 2, 1, image.Pt(0, 0), image.Pt(1, 0)},
	}
	for _, tc := range tests {
		out := orient(src, tc.orientation)
		assert.Equal(t, tc.w, out.Bounds().Dx(), "orientation %d width", tc.orientation)
		assert.Equal(t, tc.h, out.Bounds().Dy(), "orientation %d height", tc.orientation)
		assert.Equal(t, color.RGBAModel.Convert(red), color.RGBAModel.Convert(out.At(tc.redAt.X, tc.redAt.Y)), "orientation %d red", tc.orientation)
		assert.Equal(t, color.RGBAModel.Convert(green), color.RGBAModel.Convert(out.At(tc.greenAt.X, tc.greenAt.Y)), "orientation %d green", tc.orientation)
	}
}

func TestFitLongSide(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	out := fitLongSide(src, 40)
	assert.Equal(t, image.Rect(0, 0, 40, 20), out.Bounds())
	assert.Same(t, src, fitLongSide(src, 100))
}
