/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestToPixelsScenarioA(t *testing.T) {
	// Default image overlay rect on an 800x600 asset.
	r := NormalizedRect{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}
	p := ToPixels(r, Size{W: 800, H: 600})
	if p.X != 400 || p.Y != 300 || p.W != 160 || p.H != 120 {
		t.Fatalf("unexpected pixel rect: %+v", p)
	}
	if math.Round(p.Left()) != 320 || math.Round(p.Top()) != 240 {
		t.Fatalf("unexpected corner: %v,%v", p.Left(), p.Top())
	}
}

func TestRoundTripAcrossReferenceSizes(t *testing.T) {
	rects := []NormalizedRect{
		{X: 0.5, Y: 0.5, W: 0.2, H: 0.2},
		{X: 0.1, Y: 0.9, W: 0.05, H: 0.4, Rotation: 37},
		{X: 0.75, Y: 0.25, W: 0.8, H: 0.12, Rotation: -90},
	}
	refs := []Size{{800, 600}, {1920, 1080}, {333, 777}}
	for _, r := range rects {
		for _, ref := range refs {
			back := ToNormalized(ToPixels(r, ref), ref)
			if math.Abs(back.X-r.X) > eps || math.Abs(back.Y-r.Y) > eps ||
				math.Abs(back.W-r.W) > eps || math.Abs(back.H-r.H) > eps ||
				back.Rotation != r.Rotation {
				t.Fatalf("round trip drift: %+v -> %+v (ref %+v)", r, back, ref)
			}
		}
	}
}

func TestDisplayScaleProportionality(t *testing.T) {
	r := NormalizedRect{X: 0.3, Y: 0.6, W: 0.25, H: 0.1}
	small := ToPixels(r, Size{W: 200, H: 150})
	large := ToPixels(r, Size{W: 600, H: 450})
	if math.Abs(large.X/small.X-3) > eps || math.Abs(large.W/small.W-3) > eps {
		t.Fatalf("pixel rects not proportional to display scale")
	}
}

func TestDragDeltaZoomInvariance(t *testing.T) {
	// The same screen movement over a 2x larger box yields half the
	// normalized delta, so motion tracks the cursor at both zooms.
	dx1, dy1 := DragDelta(30, 15, 400, 300)
	dx2, dy2 := DragDelta(30, 15, 800, 600)
	if math.Abs(dx1-2*dx2) > eps || math.Abs(dy1-2*dy2) > eps {
		t.Fatalf("drag delta not zoom invariant: %v,%v vs %v,%v", dx1, dy1, dx2, dy2)
	}
	if dx, dy := DragDelta(10, 10, 0, 0); dx != 0 || dy != 0 {
		t.Fatalf("degenerate box must give zero delta")
	}
}

func TestResizeSymmetricClamps(t *testing.T) {
	r := NormalizedRect{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}
	grown := ResizeSymmetric(r, 0.1, MinFracSize, MaxFracSize)
	if math.Abs(grown.W-0.3) > eps || math.Abs(grown.H-0.3) > eps {
		t.Fatalf("unexpected grow: %+v", grown)
	}
	shrunk := ResizeSymmetric(r, -1, MinFracSize, MaxFracSize)
	if shrunk.W != MinFracSize || shrunk.H != MinFracSize {
		t.Fatalf("min clamp failed: %+v", shrunk)
	}
	huge := ResizeSymmetric(r, 10, MinFracSize, MaxFracSize)
	if huge.W != MaxFracSize || huge.H != MaxFracSize {
		t.Fatalf("max clamp failed: %+v", huge)
	}
}

func TestResizeFreeIndependentAxes(t *testing.T) {
	r := NormalizedRect{X: 0.5, Y: 0.5, W: 0.4, H: 0.12}
	got := ResizeFree(r, 0.2, -0.02, MinFracSize, MaxFracSize)
	if math.Abs(got.W-0.6) > eps || math.Abs(got.H-0.1) > eps {
		t.Fatalf("unexpected free resize: %+v", got)
	}
}

func TestPointInRectRotation(t *testing.T) {
	r := PixelRect{X: 100, Y: 100, W: 80, H: 20, Rotation: 90}
	// After 90 degree rotation, the long axis is vertical.
	if !PointInRect(100, 135, r) {
		t.Fatalf("expected hit along rotated long axis")
	}
	if PointInRect(135, 100, r) {
		t.Fatalf("expected miss along rotated short axis")
	}
	if !PointInRect(100, 100, r) {
		t.Fatalf("center must always hit")
	}
}

func TestGestureLifecycle(t *testing.T) {
	g := Gesture{}
	g = OnDown(g, 10, 10, "el-1", false)
	if g.State != GestureDragging || g.Target != "el-1" {
		t.Fatalf("down should enter dragging: %+v", g)
	}
	g, d := OnMove(g, 50, 40, 400, 300)
	if math.Abs(d.DX-0.1) > eps || math.Abs(d.DY-0.1) > eps {
		t.Fatalf("unexpected move delta: %+v", d)
	}
	if g.LastX != 50 || g.LastY != 40 {
		t.Fatalf("pointer position not advanced: %+v", g)
	}
	g = OnUp(g)
	if g.State != GestureIdle {
		t.Fatalf("up should return to idle")
	}
	// idle moves produce no delta
	_, d = OnMove(g, 200, 200, 400, 300)
	if d.DX != 0 || d.DY != 0 || d.Scale != 0 {
		t.Fatalf("idle gesture leaked a delta: %+v", d)
	}
}

func TestGestureResize(t *testing.T) {
	g := OnDown(Gesture{}, 0, 0, "el-2", true)
	if g.State != GestureResizing {
		t.Fatalf("expected resizing state")
	}
	_, d := OnMove(g, 40, 30, 400, 300)
	// (40/400 + 30/300)/2 = 0.1
	if math.Abs(d.Scale-0.1) > eps {
		t.Fatalf("unexpected resize scalar: %v", d.Scale)
	}
}

func TestGestureBackgroundPressStaysIdle(t *testing.T) {
	g := OnDown(Gesture{}, 5, 5, "", false)
	if g.State != GestureIdle {
		t.Fatalf("background press must stay idle")
	}
}
