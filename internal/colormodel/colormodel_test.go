/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package colormodel

import (
	"fmt"
	"math"
	"testing"
)

func TestIsHex(t *testing.T) {
	valid := []string{"#ffffff", "000000", "#AbCdEf", "12ab9F"}
	for _, s := range valid {
		if !IsHex(s) {
			t.Errorf("IsHex(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "#fff", "ggg000", "#1234567", "12 34 56", "#12345"}
	for _, s := range invalid {
		if IsHex(s) {
			t.Errorf("IsHex(%q) = true, want false", s)
		}
	}
}

func TestKnownConversions(t *testing.T) {
	cases := []struct {
		hex     string
		h, s, v float64
	}{
		{"#ff0000", 0, 1, 1},
		{"#00ff00", 120, 1, 1},
		{"#0000ff", 240, 1, 1},
		{"#ffffff", 0, 0, 1},
		{"#000000", 0, 0, 0},
		{"#808080", 0, 0, 128.0 / 255},
		{"#ffff00", 60, 1, 1},
		{"#00ffff", 180, 1, 1},
	}
	for _, c := range cases {
		got, err := HexToHSV(c.hex)
		if err != nil {
			t.Fatalf("HexToHSV(%q): %v", c.hex, err)
		}
		if math.Abs(got.H-c.h) > 1e-9 || math.Abs(got.S-c.s) > 1e-9 || math.Abs(got.V-c.v) > 1e-9 {
			t.Errorf("HexToHSV(%q) = %+v, want h=%v s=%v v=%v", c.hex, got, c.h, c.s, c.v)
		}
	}
}

func TestHueWraps(t *testing.T) {
	if got := HSVToHex(HSV{H: 360, S: 1, V: 1}); got != "#ff0000" {
		t.Fatalf("hue 360 should wrap to red, got %s", got)
	}
	if got := HSVToHex(HSV{H: -120, S: 1, V: 1}); got != "#0000ff" {
		t.Fatalf("hue -120 should wrap to blue, got %s", got)
	}
}

func TestClamping(t *testing.T) {
	if got := HSVToHex(HSV{H: 0, S: 2, V: 5}); got != "#ff0000" {
		t.Fatalf("out-of-range s/v should clamp, got %s", got)
	}
}

// Round trip at byte precision across a dense sample of the color cube.
func TestRoundTrip(t *testing.T) {
	for r := 0; r < 256; r += 17 {
		for g := 0; g < 256; g += 17 {
			for b := 0; b < 256; b += 17 {
				hex := fmt.Sprintf("#%02x%02x%02x", r, g, b)
				hsv, err := HexToHSV(hex)
				if err != nil {
					t.Fatalf("HexToHSV(%q): %v", hex, err)
				}
				if back := HSVToHex(hsv); back != hex {
					t.Fatalf("round trip broken: %s -> %+v -> %s", hex, hsv, back)
				}
			}
		}
	}
}

func TestHexToRGBA(t *testing.T) {
	c, err := HexToRGBA("#10a0f0")
	if err != nil {
		t.Fatalf("HexToRGBA: %v", err)
	}
	if c.R != 0x10 || c.G != 0xa0 || c.B != 0xf0 || c.A != 255 {
		t.Fatalf("unexpected rgba: %+v", c)
	}
	if _, err := HexToRGBA("nope"); err == nil {
		t.Fatalf("expected error for malformed hex")
	}
}
