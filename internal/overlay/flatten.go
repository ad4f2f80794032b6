/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"

	"imagestudio/internal/colormodel"
	"imagestudio/internal/geom"
	"imagestudio/internal/raster"
)

// Flatten composites all working elements onto the base raster at its
// natural resolution and returns the result PNG-encoded. The working list
// is untouched; the caller clears it once the output has been stored.
//
// All overlay image sources are resolved and decoded before any drawing
// happens, so a decode failure leaves nothing half done.
func (e *Engine) Flatten(base []byte) ([]byte, error) {
	return e.flatten(base, e.elems)
}

// FlattenElement composites only the element with the given id, for the
// "apply just this one" action.
func (e *Engine) FlattenElement(base []byte, id string) ([]byte, error) {
	el := e.find(id)
	if el == nil {
		return nil, fmt.Errorf("overlay %s not found", id)
	}
	return e.flatten(base, []*Element{el})
}

func (e *Engine) flatten(base []byte, elems []*Element) ([]byte, error) {
	baseImg, err := raster.Decode(base, "base")
	if err != nil {
		return nil, err
	}
	ref := geom.Size{
		W: float64(baseImg.Bounds().Dx()),
		H: float64(baseImg.Bounds().Dy()),
	}

	// Resolve every image overlay up front.
	sources := make(map[string]image.Image, len(elems))
	for _, el := range elems {
		if el.Kind != KindImage {
			continue
		}
		data, err := e.src.Fetch(el.AssetRef)
		if err != nil {
			return nil, &raster.DecodeError{Ref: el.AssetRef, Err: err}
		}
		img, err := raster.Decode(data, el.AssetRef)
		if err != nil {
			return nil, err
		}
		sources[el.ID] = img
	}

	dc := gg.NewContext(int(ref.W), int(ref.H))
	dc.DrawImage(baseImg, 0, 0)

	for _, el := range elems {
		px := geom.ToPixels(el.Rect, ref)
		switch el.Kind {
		case KindImage:
			drawImageElement(dc, sources[el.ID], px)
		case KindText:
			if err := drawTextElement(dc, e.faces, el, px, ref); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("overlay %s: unknown kind %d", el.ID, el.Kind)
		}
	}

	return raster.EncodePNG(dc.Image())
}

func drawImageElement(dc *gg.Context, src image.Image, px geom.PixelRect) {
	w := int(math.Round(px.W))
	h := int(math.Round(px.H))
	if w < 1 || h < 1 {
		return
	}
	scaled := raster.Scale(coverCrop(src, w, h), w, h)
	dc.Push()
	dc.RotateAbout(gg.Radians(px.Rotation), px.X, px.Y)
	dc.DrawImage(scaled, int(math.Round(px.Left())), int(math.Round(px.Top())))
	dc.Pop()
}

func drawTextElement(dc *gg.Context, faces *FaceSet, el *Element, px geom.PixelRect, ref geom.Size) error {
	col, err := colormodel.HexToRGBA(el.Color)
	if err != nil {
		return fmt.Errorf("overlay %s: %w", el.ID, err)
	}
	sizePx := el.FontSize * ref.H
	if sizePx < 1 {
		sizePx = 1
	}
	dc.Push()
	defer dc.Pop()
	dc.SetFontFace(faces.Resolve(el.FontFamily, sizePx))
	dc.SetRGBA255(int(col.R), int(col.G), int(col.B), int(col.A))
	dc.RotateAbout(gg.Radians(px.Rotation), px.X, px.Y)
	dc.DrawStringWrapped(el.Text, px.X, px.Y, 0.5, 0.5, px.W, 1.3, gg.AlignCenter)
	return nil
}

// coverCrop center-crops src to the target aspect ratio so scaling fills
// the box without distortion.
func coverCrop(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return src
	}
	srcAspect := float64(sw) / float64(sh)
	dstAspect := float64(w) / float64(h)
	cw, ch := sw, sh
	if srcAspect > dstAspect {
		cw = int(math.Round(float64(sh) * dstAspect))
	} else if srcAspect < dstAspect {
		ch = int(math.Round(float64(sw) / dstAspect))
	}
	if cw == sw && ch == sh {
		return src
	}
	x0 := b.Min.X + (sw-cw)/2
	y0 := b.Min.Y + (sh-ch)/2
	rgba := raster.ToRGBA(src)
	return rgba.SubImage(image.Rect(x0, y0, x0+cw, y0+ch))
}
