/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Pointer gestures are modeled as a small explicit state machine driven by
// three pure transition functions, so drag and resize behavior is unit
// testable without any UI toolkit. All gesture state is transient; nothing
// commits until an explicit apply.

// GestureState enumerates the pointer interaction states.
type GestureState int

const (
	GestureIdle GestureState = iota
	GestureDragging
	GestureResizing
)

func (s GestureState) String() string {
	switch s {
	case GestureDragging:
		return "dragging"
	case GestureResizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Gesture is the immutable snapshot of an in-flight pointer interaction.
// Target is the ID of the element under the pointer (empty when none).
type Gesture struct {
	State  GestureState
	Target string
	// last pointer position in screen pixels
	LastX, LastY float64
}

// GestureDelta is the normalized-space effect of one pointer move.
type GestureDelta struct {
	DX, DY float64 // position delta (dragging)
	Scale  float64 // symmetric size delta (resizing)
}

// OnDown starts a drag or resize on target. resize selects the resize
// handle; with no target the gesture stays idle (background press).
func OnDown(g Gesture, x, y float64, target string, resize bool) Gesture {
	if target == "" {
		return Gesture{State: GestureIdle, LastX: x, LastY: y}
	}
	st := GestureDragging
	if resize {
		st = GestureResizing
	}
	return Gesture{State: st, Target: target, LastX: x, LastY: y}
}

// OnMove advances the gesture to the new pointer position and returns the
// normalized delta for the displayed box size. Idle gestures produce a zero
// delta.
func OnMove(g Gesture, x, y, boxW, boxH float64) (Gesture, GestureDelta) {
	var d GestureDelta
	switch g.State {
	case GestureDragging:
		d.DX, d.DY = DragDelta(x-g.LastX, y-g.LastY, boxW, boxH)
	case GestureResizing:
		d.Scale = ResizeDelta(x-g.LastX, y-g.LastY, boxW, boxH)
	default:
		return g, d
	}
	g.LastX, g.LastY = x, y
	return g, d
}

// OnUp ends any in-flight interaction and returns to idle.
func OnUp(g Gesture) Gesture {
	return Gesture{State: GestureIdle, LastX: g.LastX, LastY: g.LastY}
}
