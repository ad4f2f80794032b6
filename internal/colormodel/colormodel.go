/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package colormodel converts between hex RGB strings and HSV triples.
// Both conversions are pure; every color-picking control (hue wheel,
// saturation/value box, hex entry) goes through these two functions.
package colormodel

import (
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// HSV is a hue/saturation/value triple. H is in degrees [0,360),
// S and V are fractions [0,1].
type HSV struct {
	H float64
	S float64
	V float64
}

var hexPattern = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// IsHex reports whether s is a 6-hex-digit RGB string, with or without a
// leading '#'. Callers validate with this before converting.
func IsHex(s string) bool { return hexPattern.MatchString(s) }

// HexToHSV converts a 6-hex-digit RGB string (leading '#' optional) to HSV.
// Input must satisfy IsHex; malformed input returns an error.
func HexToHSV(hex string) (HSV, error) {
	r, g, b, err := parseHex(hex)
	if err != nil {
		return HSV{}, err
	}
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case maxC == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	var s float64
	if maxC > 0 {
		s = delta / maxC
	}
	return HSV{H: h, S: s, V: maxC}, nil
}

// HSVToHex converts an HSV triple to a lowercase "#rrggbb" string. Hue wraps
// modulo 360; saturation and value are clamped to [0,1]. Round trip holds at
// byte precision: HSVToHex(HexToHSV(c)) == c for any canonical hex c.
func HSVToHex(c HSV) string {
	h := math.Mod(c.H, 360)
	if h < 0 {
		h += 360
	}
	s := clamp01(c.S)
	v := clamp01(c.V)

	chroma := v * s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - chroma

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = chroma, x, 0
	case h < 120:
		rf, gf, bf = x, chroma, 0
	case h < 180:
		rf, gf, bf = 0, chroma, x
	case h < 240:
		rf, gf, bf = 0, x, chroma
	case h < 300:
		rf, gf, bf = x, 0, chroma
	default:
		rf, gf, bf = chroma, 0, x
	}
	r := byte(math.Round((rf + m) * 255))
	g := byte(math.Round((gf + m) * 255))
	b := byte(math.Round((bf + m) * 255))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// HexToRGBA resolves a hex string to an opaque color.RGBA for rasterizers.
func HexToRGBA(hex string) (color.RGBA, error) {
	r, g, b, err := parseHex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func parseHex(hex string) (r, g, b uint8, err error) {
	if !IsHex(hex) {
		return 0, 0, 0, fmt.Errorf("malformed hex color %q", hex)
	}
	s := strings.TrimPrefix(hex, "#")
	rv, _ := strconv.ParseUint(s[0:2], 16, 8)
	gv, _ := strconv.ParseUint(s[2:4], 16, 8)
	bv, _ := strconv.ParseUint(s[4:6], 16, 8)
	return uint8(rv), uint8(gv), uint8(bv), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
