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

// Package imaging turns fetched album images into upright, size bounded
// JPEG frames. EXIF orientation is applied to the pixels so the encoder never
// sees a sideways frame, and the orientation tag is not carried over.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"math"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	redraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultQuality     = 85
	DefaultMaxLongSide = 1920
)

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// Normalizer decodes, orients, bounds and re-encodes a single image.
type Normalizer struct {
	MaxLongSide int
	Quality     int
}

func NewNormalizer(maxLongSide, quality int) *Normalizer {
	if maxLongSide <= 0 {
		maxLongSide = DefaultMaxLongSide
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{MaxLongSide: maxLongSide, Quality: quality}
}

// Normalize returns the upright JPEG encoding of data. Inputs that are not a
// decodable raster image fail with UnsupportedFormat.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	kind, err := filetype.Match(data)
	if err != nil || !supportedTypes[kind.MIME.Value] {
		return nil, model.Errorf(model.KindUnsupportedFormat, "normalize", "unsupported image type %q", kind.MIME.Value)
	}

	orientation := ReadOrientation(data)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.NewError(model.KindUnsupportedFormat, "normalize", fmt.Errorf("decoding %s: %w", kind.MIME.Value, err))
	}

	img = orient(img, orientation)
	img = fitLongSide(img, n.MaxLongSide)

	out, err := encodeToJpeg(img, n.Quality)
	if err != nil {
		return nil, model.NewError(model.KindInternal, "normalize", err)
	}
	return out, nil
}

// ReadOrientation returns the EXIF orientation (1-8) of data, or 1 when the
// image carries no usable tag.
func ReadOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return 1
	}
	if o, ok := tagToInt(exif.Orientation, x); ok && o >= 1 && o <= 8 {
		return o
	}
	return 1
}

func tagToInt(tag exif.FieldName, x *exif.Exif) (int, bool) {
	if t, err := x.Get(tag); err == nil && t != nil {
		if i, err := t.Int(0); err == nil {
			return i, true
		}
	}
	return 0, false
}

// fitLongSide scales src down so its longest side is at most limit.
func fitLongSide(src image.Image, limit int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || w <= 0 || h <= 0 {
		return src
	}
	longest := max(w, h)
	if longest <= limit {
		return src
	}
	scale := float64(limit) / float64(longest)
	dstW := max(1, int(math.Round(float64(w)*scale)))
	dstH := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	redraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, redraw.Over, nil)
	return dst
}
