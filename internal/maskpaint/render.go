/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package maskpaint

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"

	"imagestudio/internal/colormodel"
	"imagestudio/internal/editerr"
	"imagestudio/internal/raster"
)

// Rasterize composites the base image and all accumulated strokes onto the
// logical canvas and returns the result PNG-encoded. The base is scaled to
// the canvas size first, matching what the user saw while painting.
func (e *Engine) Rasterize(base []byte) ([]byte, error) {
	img, err := raster.Decode(base, "base")
	if err != nil {
		return nil, err
	}
	if e.boxW < 1 || e.boxH < 1 {
		return nil, fmt.Errorf("%w: canvas %dx%d", editerr.ErrApplyFailed, e.boxW, e.boxH)
	}
	scaled := raster.Scale(img, e.boxW, e.boxH)

	dc := gg.NewContext(e.boxW, e.boxH)
	dc.DrawImage(scaled, 0, 0)
	for i := range e.strokes {
		if err := drawStroke(dc, scaled, &e.strokes[i]); err != nil {
			return nil, err
		}
	}
	return raster.EncodePNG(dc.Image())
}

// ExportMask renders the highlighted region alone as an opaque-white on
// transparent RGBA image sized to the logical canvas, for handoff to the
// AI region-edit service. It fails with ErrInvalidRegion when nothing has
// been highlighted.
func (e *Engine) ExportMask() ([]byte, error) {
	var marked []*Stroke
	for i := range e.strokes {
		if e.strokes[i].Tool == ToolHighlight && len(e.strokes[i].Samples) > 0 {
			marked = append(marked, &e.strokes[i])
		}
	}
	if len(marked) == 0 {
		return nil, fmt.Errorf("%w: empty mask", editerr.ErrInvalidRegion)
	}

	dc := gg.NewContext(e.boxW, e.boxH)
	for _, s := range marked {
		dc.SetRGBA(1, 1, 1, 1) // mask coverage is always full alpha
		strokePath(dc, s)
	}
	return raster.EncodePNG(dc.Image())
}

func drawStroke(dc *gg.Context, base image.Image, s *Stroke) error {
	switch s.Tool {
	case ToolCloneStamp:
		// Baseline clone policy: repaint with the color under the first
		// sample, so the stroke blends with the surrounding area.
		first := s.Samples[0]
		r, g, b := sampleColor(base, first.X, first.Y)
		dc.SetRGBA255(r, g, b, 255)
	case ToolColorize, ToolHighlight:
		col, err := colormodel.HexToRGBA(s.Color)
		if err != nil {
			return fmt.Errorf("stroke: %w", err)
		}
		a := 255.0
		if s.Tool == ToolHighlight {
			a = s.Opacity * 255
		}
		dc.SetRGBA255(int(col.R), int(col.G), int(col.B), int(math.Round(a)))
	default:
		return fmt.Errorf("stroke: unknown tool %d", s.Tool)
	}
	strokePath(dc, s)
	return nil
}

// strokePath renders a stroke as a round-capped polyline; a single sample
// degenerates to a filled dot.
func strokePath(dc *gg.Context, s *Stroke) {
	if len(s.Samples) == 1 {
		dc.DrawCircle(s.Samples[0].X, s.Samples[0].Y, s.Radius)
		dc.Fill()
		return
	}
	dc.SetLineWidth(s.Radius * 2)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.MoveTo(s.Samples[0].X, s.Samples[0].Y)
	for _, p := range s.Samples[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
}

func sampleColor(img image.Image, x, y float64) (int, int, int) {
	b := img.Bounds()
	px := b.Min.X + int(math.Round(x))
	py := b.Min.Y + int(math.Round(y))
	if px < b.Min.X {
		px = b.Min.X
	}
	if px >= b.Max.X {
		px = b.Max.X - 1
	}
	if py < b.Min.Y {
		py = b.Min.Y
	}
	if py >= b.Max.Y {
		py = b.Max.Y - 1
	}
	r, g, bl, _ := img.At(px, py).RGBA()
	return int(r >> 8), int(g >> 8), int(bl >> 8)
}
