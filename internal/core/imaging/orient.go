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

import "image"

// orient maps the stored pixels of src to their upright position for the
// given EXIF orientation value.
func orient(src image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return flipHorizontal(src)
	case 3:
		return rotate180(src)
	case 4:
		return flipVertical(src)
	case 5:
		return transpose(src)
	case 6:
		return rotate90(src)
	case 7:
		return transverse(src)
	case 8:
		return rotate270(src)
	default:
		return src
	}
}

// remap copies src into a new RGBA of size dw x dh, placing the pixel at
// stored (x, y) at the position returned by to.
func remap(src image.Image, dw, dh int, to func(x, y, w, h int) (int, int)) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := to(x, y, w, h)
			dst.Set(dx, dy, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate90(src image.Image) image.Image {
	b := src.Bounds()
	return remap(src, b.Dy(), b.Dx(), func(x, y, w, h int) (int, int) { return h - 1 - y, x })
}

func rotate180(src image.Image) image.Image {
	b := src.Bounds()
	return remap(src, b.Dx(), b.Dy(), func(x, y, w, h int) (int, int) { return w - 1 - x, h - 1 - y })
}

func rotate270(src image.Image) image.Image {
	b := src.Bounds()
	return remap(src, b.Dy(), b.Dx(), func(x, y, w, h int) (int, int) { return y, w - 1 - x })
}

func flipHorizontal(src image.Image) image.Image {
	b := src.Bounds()
	return remap(src, b.Dx(), b.Dy(), func(x, y, w, h int) (int, int) { return w - 1 - x, y })
}

func flipVertical(src image.Image) image.Image {
	b := src.Bounds()
	return remap(src, b.Dx(), b.Dy(), func(x, y, w, h int) (int, int) { return x, h - 1 - y })
}

// transpose mirrors across the top-left to bottom-right diagonal.
func transpose(src image.Image) image.Image {
	b := src.Bounds()
	return remap(src, b.Dy(), b.Dx(), func(x, y, w, h int) (int, int) { return y, x })
}

// transverse mirrors across the top-right to bottom-left diagonal.
func transverse(src image.Image) image.Image {
	b := src.Bounds()
	return remap(src, b.Dy(), b.Dx(), func(x, y, w, h int) (int, int) { return h - 1 - y, w - 1 - x })
}
