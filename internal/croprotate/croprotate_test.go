/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package croprotate

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"imagestudio/internal/editerr"
	"imagestudio/internal/geom"
	"imagestudio/internal/raster"
)

func TestRotateSwapsDimensionsAndResetsCrop(t *testing.T) {
	e := NewEngine(geom.Size{W: 800, H: 600})

	e.RotateCW()
	if rs := e.RotatedSize(); rs.W != 600 || rs.H != 800 {
		t.Fatalf("rotated size = %v, want 600x800", rs)
	}
	if c := e.Crop(); c != (Rect{X: 0, Y: 0, W: 600, H: 800}) {
		t.Fatalf("crop = %v, want full rotated bounds", c)
	}
}

func TestFourQuarterTurnsCompose(t *testing.T) {
	e := NewEngine(geom.Size{W: 800, H: 600})
	for i := 0; i < 4; i++ {
		e.RotateCW()
	}
	if e.Rotation() != 0 {
		t.Fatalf("rotation = %d, want 0", e.Rotation())
	}
	if rs := e.RotatedSize(); rs.W != 800 || rs.H != 600 {
		t.Fatalf("rotated size = %v, want original", rs)
	}
	if c := e.Crop(); c != (Rect{X: 0, Y: 0, W: 800, H: 600}) {
		t.Fatalf("crop = %v, want full bounds", c)
	}

	e.RotateCW()
	e.RotateCCW()
	if e.Rotation() != 0 {
		t.Fatalf("rotation = %d after CW+CCW, want 0", e.Rotation())
	}
}

func TestCropSelectionClamps(t *testing.T) {
	e := NewEngine(geom.Size{W: 800, H: 600})
	box := geom.Size{W: 400, H: 300} // displayed at 50%

	e.BeginCrop(100, 75, box)
	e.UpdateCrop(9999, -50, box)
	e.EndCrop()

	c := e.Crop()
	if c.X != 200 || c.W != 600 {
		t.Fatalf("x span = [%v, %v], want [200, 800]", c.X, c.X+c.W)
	}
	if c.Y != 0 || c.H != 150 {
		t.Fatalf("y span = [%v, %v], want [0, 150]", c.Y, c.Y+c.H)
	}

	// Moves after EndCrop are ignored.
	e.UpdateCrop(0, 0, box)
	if e.Crop() != c {
		t.Fatal("crop changed after selection ended")
	}
}

func TestSourceChangeResetsState(t *testing.T) {
	e := NewEngine(geom.Size{W: 800, H: 600})
	e.RotateCW()
	e.BeginCrop(10, 10, geom.Size{W: 800, H: 600})
	e.EndCrop()

	e.SetSource(geom.Size{W: 1024, H: 768})
	if e.Rotation() != 0 {
		t.Fatalf("rotation = %d after source change, want 0", e.Rotation())
	}
	if c := e.Crop(); c != (Rect{X: 0, Y: 0, W: 1024, H: 768}) {
		t.Fatalf("crop = %v, want full new bounds", c)
	}
}

func halves(t *testing.T, w, h int, left, right color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, left)
			} else {
				img.SetRGBA(x, y, right)
			}
		}
	}
	data, err := raster.EncodePNG(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestApplyRotates(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src := halves(t, 40, 20, red, blue)

	e := NewEngine(geom.Size{W: 40, H: 20})
	e.RotateCW()
	out, err := e.Apply(src)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	img, err := raster.Decode(out, "out")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 40 {
		t.Fatalf("output = %v, want 20x40", img.Bounds())
	}
	// Clockwise turn moves the left (red) half to the top.
	r, _, b, _ := img.At(10, 5).RGBA()
	if r>>8 < 150 || b>>8 > 100 {
		t.Fatalf("top not red: r=%d b=%d", r>>8, b>>8)
	}
	r, _, b, _ = img.At(10, 35).RGBA()
	if b>>8 < 150 || r>>8 > 100 {
		t.Fatalf("bottom not blue: r=%d b=%d", r>>8, b>>8)
	}
}

func TestPreviewShowsRotatedCanvas(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src := halves(t, 40, 20, red, blue)

	e := NewEngine(geom.Size{W: 40, H: 20})
	e.RotateCW()
	// Narrow the crop; the preview must still be the full rotated frame.
	box := geom.Size{W: 20, H: 40}
	e.BeginCrop(2, 2, box)
	e.UpdateCrop(18, 38, box)
	e.EndCrop()

	out, err := e.Preview(src)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	img, err := raster.Decode(out, "out")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 40 {
		t.Fatalf("preview = %v, want 20x40", img.Bounds())
	}
	// Same orientation as Apply: the left (red) half moves to the top.
	r, _, b, _ := img.At(10, 5).RGBA()
	if r>>8 < 150 || b>>8 > 100 {
		t.Fatalf("top not red: r=%d b=%d", r>>8, b>>8)
	}
	r, _, b, _ = img.At(10, 35).RGBA()
	if b>>8 < 150 || r>>8 > 100 {
		t.Fatalf("bottom not blue: r=%d b=%d", r>>8, b>>8)
	}
}

func TestApplyCropDimensions(t *testing.T) {
	src := halves(t, 40, 20, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})
	e := NewEngine(geom.Size{W: 40, H: 20})
	box := geom.Size{W: 40, H: 20}
	e.BeginCrop(5, 4, box)
	e.UpdateCrop(25, 16, box)
	e.EndCrop()

	out, err := e.Apply(src)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	img, err := raster.Decode(out, "out")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 12 {
		t.Fatalf("output = %v, want 20x12", img.Bounds())
	}
	// The whole crop lies in the red half of the source.
	r, _, _, _ := img.At(2, 2).RGBA()
	if r>>8 < 150 {
		t.Fatalf("cropped pixel not red: r=%d", r>>8)
	}
}

func TestApplyRejectsZeroArea(t *testing.T) {
	src := halves(t, 40, 20, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255})
	e := NewEngine(geom.Size{W: 40, H: 20})
	box := geom.Size{W: 40, H: 20}
	e.BeginCrop(10, 10, box)
	e.UpdateCrop(10, 10, box)
	e.EndCrop()

	if _, err := e.Apply(src); !errors.Is(err, editerr.ErrInvalidRegion) {
		t.Fatalf("err = %v, want ErrInvalidRegion", err)
	}
}

func TestApplyDecodeFailure(t *testing.T) {
	e := NewEngine(geom.Size{W: 40, H: 20})
	_, err := e.Apply([]byte("garbage"))
	var de *raster.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}
