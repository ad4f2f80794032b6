/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the resolution-independent coordinate model shared by
// the editing engines. Placeable elements are anchored as fractions of a
// reference image so the same rect renders identically at any preview zoom
// or natural resolution.
package geom

import "math"

// Size is a width/height pair in pixels.
type Size struct{ W, H float64 }

// NormalizedRect positions an element relative to a reference image:
// X,Y is the center, W,H the size, all fractions of the reference
// dimensions (0..1). Rotation is degrees clockwise about the center.
type NormalizedRect struct {
	X, Y     float64
	W, H     float64
	Rotation float64
}

// PixelRect is a center-anchored rectangle in pixel space.
type PixelRect struct {
	X, Y     float64 // center
	W, H     float64
	Rotation float64 // degrees
}

// Default fractional size clamps for symmetric resizing.
const (
	MinFracSize = 0.05
	MaxFracSize = 0.8
)

// ToPixels denormalizes r against a reference size. Pure; inverse of
// ToNormalized up to rounding.
func ToPixels(r NormalizedRect, ref Size) PixelRect {
	return PixelRect{
		X:        r.X * ref.W,
		Y:        r.Y * ref.H,
		W:        r.W * ref.W,
		H:        r.H * ref.H,
		Rotation: r.Rotation,
	}
}

// ToNormalized maps a pixel rect back into fractions of the reference size.
func ToNormalized(p PixelRect, ref Size) NormalizedRect {
	if ref.W == 0 || ref.H == 0 {
		return NormalizedRect{Rotation: p.Rotation}
	}
	return NormalizedRect{
		X:        p.X / ref.W,
		Y:        p.Y / ref.H,
		W:        p.W / ref.W,
		H:        p.H / ref.H,
		Rotation: p.Rotation,
	}
}

// Left/Top corner of the unrotated rect; used when handing rects to
// rasterizers that draw from the corner.
func (p PixelRect) Left() float64 { return p.X - p.W/2 }
func (p PixelRect) Top() float64  { return p.Y - p.H/2 }

// DragDelta converts a pointer delta in screen pixels into a normalized
// position delta, given the on-screen box size of the rendered canvas.
// Dividing by the displayed size keeps drag speed consistent at any zoom.
func DragDelta(dxScreen, dyScreen, boxW, boxH float64) (dx, dy float64) {
	if boxW == 0 || boxH == 0 {
		return 0, 0
	}
	return dxScreen / boxW, dyScreen / boxH
}

// ResizeDelta reduces a diagonal pointer movement to one scalar delta in
// normalized units, averaged across both axes so the handle feels symmetric.
func ResizeDelta(dxScreen, dyScreen, boxW, boxH float64) float64 {
	if boxW == 0 || boxH == 0 {
		return 0
	}
	return (dxScreen/boxW + dyScreen/boxH) / 2
}

// ResizeSymmetric applies a scalar delta equally to width and height,
// clamped to [minFrac, maxFrac]. Aspect is preserved for logo-style
// overlays. Pass MinFracSize/MaxFracSize for the defaults.
func ResizeSymmetric(r NormalizedRect, delta, minFrac, maxFrac float64) NormalizedRect {
	r.W = clampFrac(r.W+delta, minFrac, maxFrac)
	r.H = clampFrac(r.H+delta, minFrac, maxFrac)
	return r
}

// ResizeFree resizes each axis independently (text boxes), with the same
// per-axis clamps.
func ResizeFree(r NormalizedRect, dw, dh, minFrac, maxFrac float64) NormalizedRect {
	r.W = clampFrac(r.W+dw, minFrac, maxFrac)
	r.H = clampFrac(r.H+dh, minFrac, maxFrac)
	return r
}

// Translate moves the rect center by a normalized delta.
func Translate(r NormalizedRect, dx, dy float64) NormalizedRect {
	r.X += dx
	r.Y += dy
	return r
}

// PointInRect reports whether the pixel point (px,py) falls inside the
// possibly-rotated rect. The point is rotated into the rect's local frame
// about its center before the axis-aligned test.
func PointInRect(px, py float64, r PixelRect) bool {
	lx, ly := rotateAbout(px, py, r.X, r.Y, -r.Rotation)
	return math.Abs(lx-r.X) <= r.W/2 && math.Abs(ly-r.Y) <= r.H/2
}

// rotateAbout rotates (x,y) by deg degrees about (cx,cy).
func rotateAbout(x, y, cx, cy, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	dx, dy := x-cx, y-cy
	return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
}

func clampFrac(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
