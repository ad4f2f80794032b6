/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package croprotate composes discrete quarter-turn rotation with a free
// rectangular crop. The crop region lives in the pixel space of the image
// after rotation; any rotation change or source change resets it to the
// full rotated bounds so a stale region can never survive a dimension
// swap.
package croprotate

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"

	"imagestudio/internal/editerr"
	"imagestudio/internal/geom"
	"imagestudio/internal/raster"
)

// Rect is an axis-aligned region in rotated-pixel space, top-left
// anchored.
type Rect struct {
	X, Y, W, H float64
}

// Engine tracks rotation and crop state for one source asset. Not safe
// for concurrent use.
type Engine struct {
	natural  geom.Size
	rotation int // degrees, one of 0, 90, 180, 270

	crop     Rect
	anchorX  float64
	anchorY  float64
	dragging bool
}

// NewEngine creates an engine for a source of the given natural size with
// rotation 0 and a full-bounds crop.
func NewEngine(natural geom.Size) *Engine {
	e := &Engine{natural: natural}
	e.resetCrop()
	return e
}

// SetSource replaces the source dimensions, resetting rotation and crop.
func (e *Engine) SetSource(natural geom.Size) {
	e.natural = natural
	e.rotation = 0
	e.resetCrop()
}

// Rotation returns the current rotation in degrees.
func (e *Engine) Rotation() int { return e.rotation }

// RotateCW adds a clockwise quarter turn and resets the crop to the new
// rotated bounds.
func (e *Engine) RotateCW() {
	e.rotation = (e.rotation + 90) % 360
	e.resetCrop()
}

// RotateCCW adds a counter-clockwise quarter turn and resets the crop.
func (e *Engine) RotateCCW() {
	e.rotation = (e.rotation + 270) % 360
	e.resetCrop()
}

// RotatedSize returns the effective dimensions after rotation: width and
// height swap on 90 and 270.
func (e *Engine) RotatedSize() geom.Size {
	if e.rotation == 90 || e.rotation == 270 {
		return geom.Size{W: e.natural.H, H: e.natural.W}
	}
	return e.natural
}

// Crop returns the current crop region in rotated-pixel space.
func (e *Engine) Crop() Rect { return e.crop }

// Restore replaces rotation and crop wholesale, used when stepping
// through undo history. Invalid rotations snap to 0.
func (e *Engine) Restore(rotation int, crop Rect) {
	switch rotation {
	case 0, 90, 180, 270:
		e.rotation = rotation
	default:
		e.rotation = 0
	}
	e.crop = crop
	e.dragging = false
}

func (e *Engine) resetCrop() {
	rs := e.RotatedSize()
	e.crop = Rect{X: 0, Y: 0, W: rs.W, H: rs.H}
	e.dragging = false
}

// BeginCrop anchors a crop selection at a pointer position given in
// displayed-box pixels. box is the on-screen canvas size the pointer
// coordinates are relative to.
func (e *Engine) BeginCrop(screenX, screenY float64, box geom.Size) {
	x, y := e.toRotated(screenX, screenY, box)
	e.anchorX, e.anchorY = x, y
	e.crop = Rect{X: x, Y: y}
	e.dragging = true
}

// UpdateCrop extends the selection to the pointer position, clamped to
// the rotated bounds. Ignored when no selection is in progress.
func (e *Engine) UpdateCrop(screenX, screenY float64, box geom.Size) {
	if !e.dragging {
		return
	}
	x, y := e.toRotated(screenX, screenY, box)
	e.crop = normalizedSpan(e.anchorX, e.anchorY, x, y, e.RotatedSize())
}

// EndCrop finishes the selection.
func (e *Engine) EndCrop() { e.dragging = false }

func (e *Engine) toRotated(screenX, screenY float64, box geom.Size) (float64, float64) {
	rs := e.RotatedSize()
	x := clamp(screenX/box.W, 0, 1) * rs.W
	y := clamp(screenY/box.H, 0, 1) * rs.H
	return x, y
}

// normalizedSpan builds the rect spanned by two corners, clamped inside
// the rotated bounds.
func normalizedSpan(ax, ay, bx, by float64, bounds geom.Size) Rect {
	x0, x1 := math.Min(ax, bx), math.Max(ax, bx)
	y0, y1 := math.Min(ay, by), math.Max(ay, by)
	x0 = clamp(x0, 0, bounds.W)
	x1 = clamp(x1, 0, bounds.W)
	y0 = clamp(y0, 0, bounds.H)
	y1 = clamp(y1, 0, bounds.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Apply renders the crop and rotation at natural resolution. Stage one
// rotates the full-resolution source about its center into a surface
// sized to the rotated bounds; stage two copies the crop sub-rectangle
// into the output. The preview may run at reduced resolution but Apply
// never does.
func (e *Engine) Apply(src []byte) ([]byte, error) {
	img, err := raster.Decode(src, "base")
	if err != nil {
		return nil, err
	}
	nat := geom.Size{
		W: float64(img.Bounds().Dx()),
		H: float64(img.Bounds().Dy()),
	}
	if nat != e.natural {
		// Keep the configured state authoritative but verify it matches
		// the bytes we were handed.
		return nil, fmt.Errorf("%w: source is %vx%v, engine configured for %vx%v",
			editerr.ErrApplyFailed, nat.W, nat.H, e.natural.W, e.natural.H)
	}

	cw := int(math.Round(e.crop.W))
	ch := int(math.Round(e.crop.H))
	if cw < 1 || ch < 1 {
		return nil, fmt.Errorf("%w: crop %vx%v", editerr.ErrInvalidRegion, e.crop.W, e.crop.H)
	}

	rotated := e.renderRotated(img)

	x0 := int(math.Round(e.crop.X))
	y0 := int(math.Round(e.crop.Y))
	out := image.NewRGBA(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			out.SetRGBA(x, y, rotated.RGBAAt(x0+x, y0+y))
		}
	}
	return raster.EncodePNG(out)
}

// renderRotated draws the source rotated about its center into a surface
// sized to the rotated bounds.
func (e *Engine) renderRotated(img image.Image) *image.RGBA {
	rs := e.RotatedSize()
	rw := int(math.Round(rs.W))
	rh := int(math.Round(rs.H))

	dc := gg.NewContext(rw, rh)
	dc.Translate(float64(rw)/2, float64(rh)/2)
	dc.Rotate(gg.Radians(float64(e.rotation)))
	dc.DrawImageAnchored(img, 0, 0, 0.5, 0.5)
	return raster.ToRGBA(dc.Image())
}

// Preview renders the source with the current rotation but without the
// crop, so selection UIs can draw the crop frame over the same rotated
// canvas the crop coordinates live in.
func (e *Engine) Preview(src []byte) ([]byte, error) {
	img, err := raster.Decode(src, "base")
	if err != nil {
		return nil, err
	}
	return raster.EncodePNG(e.renderRotated(img))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
