/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package maskpaint implements freehand brush painting over an asset.
// Three tools share one stroke pipeline: colorize paints opaque color,
// highlight paints translucent color, clone-stamp repaints with color
// sampled from the image itself. Highlight strokes double as the mask
// source for AI region edits.
//
// Strokes accumulate on a logical canvas matching the displayed box size,
// not the natural resolution. They are cleared on tool change, apply and
// cancel.
package maskpaint

import (
	"fmt"

	"imagestudio/internal/colormodel"
)

// Tool selects the active brush behavior. Exactly one tool is active at a
// time.
type Tool int

const (
	ToolNone Tool = iota
	ToolCloneStamp
	ToolColorize
	ToolHighlight
)

func (t Tool) String() string {
	switch t {
	case ToolNone:
		return "none"
	case ToolCloneStamp:
		return "clone-stamp"
	case ToolColorize:
		return "colorize"
	case ToolHighlight:
		return "highlight"
	default:
		return "unknown"
	}
}

// Brush parameter bounds, in screen pixels and opacity fraction.
const (
	MinBrushRadius = 4.0
	MaxBrushRadius = 80.0

	MinHighlightOpacity = 0.1
	MaxHighlightOpacity = 1.0
)

// Sample is one pointer position within a stroke, in logical canvas
// pixels. Pressure is 1 for devices that do not report it.
type Sample struct {
	X, Y     float64
	Pressure float64
}

// Stroke captures one pointer-down..pointer-up gesture with the brush
// settings that were active when it started.
type Stroke struct {
	Tool    Tool
	Color   string
	Radius  float64
	Opacity float64
	Samples []Sample
}

// Engine accumulates strokes for one editing session. Not safe for
// concurrent use; everything runs on the UI event loop.
type Engine struct {
	boxW, boxH int

	tool     Tool
	maskMode bool
	painting bool

	radius  float64
	color   string
	opacity float64

	strokes []Stroke
}

// NewEngine creates an engine for a logical canvas of the given displayed
// box size.
func NewEngine(boxW, boxH int) *Engine {
	return &Engine{
		boxW:    boxW,
		boxH:    boxH,
		radius:  16,
		color:   "#ff0000",
		opacity: 0.5,
	}
}

// CanvasSize returns the logical canvas dimensions.
func (e *Engine) CanvasSize() (int, int) { return e.boxW, e.boxH }

// Tool returns the active tool.
func (e *Engine) Tool() Tool { return e.tool }

// SetTool switches the active tool. Switching discards accumulated
// strokes and any in-progress gesture.
func (e *Engine) SetTool(t Tool) {
	if t == e.tool {
		return
	}
	e.tool = t
	e.painting = false
	e.strokes = nil
}

// SetMaskMode toggles edit-with-brush mode, in which highlight strokes
// are destined for a mask export instead of a visible paint layer.
func (e *Engine) SetMaskMode(on bool) { e.maskMode = on }

// MaskMode reports whether mask mode is active.
func (e *Engine) MaskMode() bool { return e.maskMode }

// SetBrushRadius clamps the radius to the supported range.
func (e *Engine) SetBrushRadius(r float64) {
	if r < MinBrushRadius {
		r = MinBrushRadius
	}
	if r > MaxBrushRadius {
		r = MaxBrushRadius
	}
	e.radius = r
}

// BrushRadius returns the active radius in screen pixels.
func (e *Engine) BrushRadius() float64 { return e.radius }

// SetColor sets the brush color from a hex string.
func (e *Engine) SetColor(hex string) error {
	if !colormodel.IsHex(hex) {
		return fmt.Errorf("brush color: malformed hex %q", hex)
	}
	e.color = hex
	return nil
}

// SetOpacity clamps the highlight opacity to the supported range.
func (e *Engine) SetOpacity(o float64) {
	if o < MinHighlightOpacity {
		o = MinHighlightOpacity
	}
	if o > MaxHighlightOpacity {
		o = MaxHighlightOpacity
	}
	e.opacity = o
}

// Painting reports whether a stroke is in progress.
func (e *Engine) Painting() bool { return e.painting }

// Strokes returns the accumulated strokes in paint order.
func (e *Engine) Strokes() []Stroke {
	out := make([]Stroke, len(e.strokes))
	copy(out, e.strokes)
	return out
}

// PointerDown starts a stroke. Ignored while no tool is active.
func (e *Engine) PointerDown(x, y, pressure float64) {
	if e.tool == ToolNone || e.painting {
		return
	}
	e.painting = true
	op := 1.0
	if e.tool == ToolHighlight {
		op = e.opacity
	}
	e.strokes = append(e.strokes, Stroke{
		Tool:    e.tool,
		Color:   e.color,
		Radius:  e.radius,
		Opacity: op,
		Samples: []Sample{{X: x, Y: y, Pressure: orOne(pressure)}},
	})
}

// PointerMove extends the current stroke. Ignored while not painting.
func (e *Engine) PointerMove(x, y, pressure float64) {
	if !e.painting {
		return
	}
	s := &e.strokes[len(e.strokes)-1]
	s.Samples = append(s.Samples, Sample{X: x, Y: y, Pressure: orOne(pressure)})
}

// PointerUp ends the current stroke. The state machine is repeatable:
// another PointerDown starts the next stroke.
func (e *Engine) PointerUp() { e.painting = false }

// Clear discards all strokes (apply or cancel).
func (e *Engine) Clear() {
	e.strokes = nil
	e.painting = false
}

// Restore replaces the accumulated strokes, used when stepping through
// undo history.
func (e *Engine) Restore(strokes []Stroke) {
	e.strokes = append([]Stroke(nil), strokes...)
	e.painting = false
}

func orOne(p float64) float64 {
	if p <= 0 {
		return 1
	}
	return p
}
