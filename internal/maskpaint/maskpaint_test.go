/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package maskpaint

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"imagestudio/internal/editerr"
	"imagestudio/internal/raster"
)

func basePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	data, err := raster.EncodePNG(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestToolLifecycle(t *testing.T) {
	e := NewEngine(100, 100)

	// No tool active: pointer events are ignored.
	e.PointerDown(10, 10, 0)
	if e.Painting() || len(e.Strokes()) != 0 {
		t.Fatal("stroke started without a tool")
	}

	e.SetTool(ToolColorize)
	e.PointerDown(10, 10, 0)
	if !e.Painting() {
		t.Fatal("not painting after pointer down")
	}
	e.PointerMove(20, 20, 0)
	e.PointerUp()
	if e.Painting() {
		t.Fatal("still painting after pointer up")
	}

	// Repeatable: a second gesture makes a second stroke.
	e.PointerDown(30, 30, 0)
	e.PointerUp()
	if got := len(e.Strokes()); got != 2 {
		t.Fatalf("strokes = %d, want 2", got)
	}

	// Tool change clears everything.
	e.SetTool(ToolHighlight)
	if got := len(e.Strokes()); got != 0 {
		t.Fatalf("strokes after tool change = %d, want 0", got)
	}
}

func TestBrushParameterClamping(t *testing.T) {
	e := NewEngine(100, 100)
	e.SetBrushRadius(1)
	if e.BrushRadius() != MinBrushRadius {
		t.Fatalf("radius = %v, want %v", e.BrushRadius(), MinBrushRadius)
	}
	e.SetBrushRadius(500)
	if e.BrushRadius() != MaxBrushRadius {
		t.Fatalf("radius = %v, want %v", e.BrushRadius(), MaxBrushRadius)
	}
	if err := e.SetColor("red"); err == nil {
		t.Fatal("expected error for malformed color")
	}
	if err := e.SetColor("#00ff00"); err != nil {
		t.Fatalf("SetColor: %v", err)
	}

	e.SetOpacity(0.01)
	e.SetTool(ToolHighlight)
	e.PointerDown(5, 5, 0)
	e.PointerUp()
	if got := e.Strokes()[0].Opacity; got != MinHighlightOpacity {
		t.Fatalf("opacity = %v, want clamped to %v", got, MinHighlightOpacity)
	}
}

func TestRasterizeColorize(t *testing.T) {
	e := NewEngine(60, 40)
	e.SetTool(ToolColorize)
	if err := e.SetColor("#0000ff"); err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	e.SetBrushRadius(8)
	e.PointerDown(30, 20, 0)
	e.PointerMove(31, 20, 0)
	e.PointerUp()

	out, err := e.Rasterize(basePNG(t, 120, 80, color.RGBA{R: 255, G: 255, B: 255, A: 255}))
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	img, err := raster.Decode(out, "out")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 40 {
		t.Fatalf("output = %v, want logical 60x40", img.Bounds())
	}
	_, _, b, _ := img.At(30, 20).RGBA()
	if b>>8 < 200 {
		t.Fatalf("painted pixel not blue: b=%d", b>>8)
	}
	r, g, bl, _ := img.At(2, 2).RGBA()
	if r>>8 < 200 || g>>8 < 200 || bl>>8 < 200 {
		t.Fatal("untouched pixel changed")
	}
}

func TestRasterizeCloneStampSamplesBase(t *testing.T) {
	// Green base: the clone stroke must come out green no matter what
	// color the brush is set to.
	e := NewEngine(50, 50)
	e.SetTool(ToolCloneStamp)
	if err := e.SetColor("#ff00ff"); err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	e.PointerDown(25, 25, 0)
	e.PointerMove(30, 25, 0)
	e.PointerUp()

	out, err := e.Rasterize(basePNG(t, 50, 50, color.RGBA{G: 200, A: 255}))
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	img, err := raster.Decode(out, "out")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, _, _ := img.At(27, 25).RGBA()
	if g>>8 < 150 || r>>8 > 60 {
		t.Fatalf("clone stroke not sampled from base: r=%d g=%d", r>>8, g>>8)
	}
}

func TestExportMask(t *testing.T) {
	e := NewEngine(40, 30)
	e.SetTool(ToolHighlight)
	e.SetMaskMode(true)
	e.SetBrushRadius(6)
	e.SetOpacity(0.3)
	e.PointerDown(20, 15, 0)
	e.PointerMove(24, 15, 0)
	e.PointerUp()

	out, err := e.ExportMask()
	if err != nil {
		t.Fatalf("ExportMask: %v", err)
	}
	img, err := raster.Decode(out, "mask")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Fatalf("mask = %v, want 40x30", img.Bounds())
	}
	// Mask coverage is full alpha even though the visible highlight was
	// translucent.
	_, _, _, a := img.At(20, 15).RGBA()
	if a>>8 < 250 {
		t.Fatalf("masked pixel alpha = %d, want opaque", a>>8)
	}
	_, _, _, a = img.At(2, 2).RGBA()
	if a>>8 != 0 {
		t.Fatalf("unmasked pixel alpha = %d, want 0", a>>8)
	}
}

func TestExportMaskEmptyIsInvalidRegion(t *testing.T) {
	e := NewEngine(40, 30)
	e.SetTool(ToolHighlight)
	if _, err := e.ExportMask(); !errors.Is(err, editerr.ErrInvalidRegion) {
		t.Fatalf("err = %v, want ErrInvalidRegion", err)
	}

	// Colorize strokes do not contribute to the mask.
	e.SetTool(ToolColorize)
	e.PointerDown(5, 5, 0)
	e.PointerUp()
	if _, err := e.ExportMask(); !errors.Is(err, editerr.ErrInvalidRegion) {
		t.Fatalf("err = %v, want ErrInvalidRegion", err)
	}
}

func TestRasterizeDecodeFailure(t *testing.T) {
	e := NewEngine(40, 30)
	_, err := e.Rasterize([]byte("garbage"))
	var de *raster.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}
