/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package overlay manages the placeable elements (image logos, text blocks)
// composited onto an asset before flattening. Elements live only in editor
// working memory; Flatten commits them into a raster and the session
// registers that as a new version.
package overlay

import (
	"fmt"

	"github.com/google/uuid"

	"imagestudio/internal/colormodel"
	"imagestudio/internal/geom"
)

// Kind discriminates the element variants. The set is closed; Flatten
// switches over it exhaustively.
type Kind int

const (
	KindImage Kind = iota + 1
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Default placement for newly added elements.
var (
	defaultImageRect = geom.NormalizedRect{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}
	defaultTextRect  = geom.NormalizedRect{X: 0.5, Y: 0.5, W: 0.4, H: 0.12}
)

// Font size bounds in UI points (points = FontSize fraction x 400).
const (
	MinFontPoints = 8
	MaxFontPoints = 72
	pointScale    = 400
)

// PointsToFrac converts a UI point size to the stored height fraction,
// clamped to the UI range.
func PointsToFrac(pt float64) float64 {
	if pt < MinFontPoints {
		pt = MinFontPoints
	}
	if pt > MaxFontPoints {
		pt = MaxFontPoints
	}
	return pt / pointScale
}

// FracToPoints is the inverse mapping used by the size control.
func FracToPoints(frac float64) float64 { return frac * pointScale }

// Element is one placeable overlay. Exactly the fields for its Kind are
// meaningful: AssetRef for images; Text/FontSize/FontFamily/Color for text.
// FontSize is stored as a fraction of the reference image height so text
// scales with resolution, not with screen pixels.
type Element struct {
	ID   string
	Kind Kind
	Rect geom.NormalizedRect

	AssetRef string

	Text       string
	FontSize   float64
	FontFamily string
	Color      string // hex
}

// Patch carries optional updates for Update; nil fields are left alone.
type Patch struct {
	Rect       *geom.NormalizedRect
	Text       *string
	FontSize   *float64
	FontFamily *string
	Color      *string
}

// ImageSource resolves an opaque asset reference to encoded image bytes.
// The session wires this to local storage or the remote service.
type ImageSource interface {
	Fetch(ref string) ([]byte, error)
}

// Engine owns the working set of overlay elements for one edit session.
// It is not safe for concurrent use; all calls happen on the UI event loop.
type Engine struct {
	elems []*Element
	faces *FaceSet
	src   ImageSource
}

// NewEngine creates an engine backed by the given image source. faces may
// be nil, in which case the built-in default face set is used.
func NewEngine(src ImageSource, faces *FaceSet) *Engine {
	if faces == nil {
		faces = DefaultFaces()
	}
	return &Engine{src: src, faces: faces}
}

// Elements returns the working list in declaration (z) order.
func (e *Engine) Elements() []*Element {
	out := make([]*Element, len(e.elems))
	copy(out, e.elems)
	return out
}

// AddImage appends an image overlay centered on the canvas.
func (e *Engine) AddImage(assetRef string) *Element {
	el := &Element{
		ID:       uuid.NewString(),
		Kind:     KindImage,
		Rect:     defaultImageRect,
		AssetRef: assetRef,
	}
	e.elems = append(e.elems, el)
	return el
}

// AddText appends a text overlay centered on the canvas. fontSize is the
// stored height fraction (see PointsToFrac); color must be a valid hex
// string.
func (e *Engine) AddText(text string, fontSize float64, fontFamily, color string) (*Element, error) {
	if !colormodel.IsHex(color) {
		return nil, fmt.Errorf("text overlay: malformed color %q", color)
	}
	el := &Element{
		ID:         uuid.NewString(),
		Kind:       KindText,
		Rect:       defaultTextRect,
		Text:       text,
		FontSize:   fontSize,
		FontFamily: fontFamily,
		Color:      color,
	}
	e.elems = append(e.elems, el)
	return el, nil
}

// Update applies a patch to the element with the given id.
func (e *Engine) Update(id string, p Patch) error {
	el := e.find(id)
	if el == nil {
		return fmt.Errorf("overlay %s not found", id)
	}
	if p.Rect != nil {
		el.Rect = *p.Rect
	}
	if p.Text != nil {
		el.Text = *p.Text
	}
	if p.FontSize != nil {
		el.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		el.FontFamily = *p.FontFamily
	}
	if p.Color != nil {
		if !colormodel.IsHex(*p.Color) {
			return fmt.Errorf("overlay %s: malformed color %q", id, *p.Color)
		}
		el.Color = *p.Color
	}
	return nil
}

// Remove deletes the element with the given id from the working set.
func (e *Engine) Remove(id string) error {
	for i, el := range e.elems {
		if el.ID == id {
			e.elems = append(e.elems[:i], e.elems[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("overlay %s not found", id)
}

// Clear discards all working elements (cancel, or after a flatten-all).
func (e *Engine) Clear() { e.elems = nil }

// Restore replaces the working set, used when stepping through undo
// history.
func (e *Engine) Restore(elems []Element) {
	e.elems = make([]*Element, len(elems))
	for i := range elems {
		el := elems[i]
		e.elems[i] = &el
	}
}

// HitTest returns the top-most element under the pixel point (px,py) for
// the given reference size, or nil. Later elements draw on top, so the
// scan runs back to front.
func (e *Engine) HitTest(px, py float64, ref geom.Size) *Element {
	for i := len(e.elems) - 1; i >= 0; i-- {
		el := e.elems[i]
		if geom.PointInRect(px, py, geom.ToPixels(el.Rect, ref)) {
			return el
		}
	}
	return nil
}

// Drag moves an element by a normalized delta (already converted from
// screen pixels by geom.DragDelta).
func (e *Engine) Drag(id string, dx, dy float64) error {
	el := e.find(id)
	if el == nil {
		return fmt.Errorf("overlay %s not found", id)
	}
	el.Rect = geom.Translate(el.Rect, dx, dy)
	return nil
}

// Resize grows or shrinks an element by a scalar normalized delta. Image
// overlays resize symmetrically to preserve aspect; text boxes resize the
// same way from the corner handle but also accept free per-axis resizing
// via ResizeFree.
func (e *Engine) Resize(id string, delta float64) error {
	el := e.find(id)
	if el == nil {
		return fmt.Errorf("overlay %s not found", id)
	}
	el.Rect = geom.ResizeSymmetric(el.Rect, delta, geom.MinFracSize, geom.MaxFracSize)
	return nil
}

// ResizeFree resizes each axis independently (text boxes).
func (e *Engine) ResizeFree(id string, dw, dh float64) error {
	el := e.find(id)
	if el == nil {
		return fmt.Errorf("overlay %s not found", id)
	}
	el.Rect = geom.ResizeFree(el.Rect, dw, dh, geom.MinFracSize, geom.MaxFracSize)
	return nil
}

// Rotate adjusts the element rotation by deg degrees.
func (e *Engine) Rotate(id string, deg float64) error {
	el := e.find(id)
	if el == nil {
		return fmt.Errorf("overlay %s not found", id)
	}
	el.Rect.Rotation += deg
	return nil
}

func (e *Engine) find(id string) *Element {
	for _, el := range e.elems {
		if el.ID == id {
			return el
		}
	}
	return nil
}
