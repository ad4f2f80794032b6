/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package raster wraps image decode/encode and scaling for the editing
// engines. Every engine goes through Decode so a broken source image
// surfaces as one error kind everywhere.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// DecodeError reports an unreadable source or overlay image.
type DecodeError struct {
	Ref string // opaque reference or filename for the message
	Err error
}

func (e *DecodeError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode image %s: %v", e.Ref, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode sniffs and decodes PNG/JPEG/GIF bytes. ref is used only for error
// messages.
func Decode(data []byte, ref string) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	return img, nil
}

// EncodePNG renders img to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ToRGBA copies img into an *image.RGBA with origin at (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Scale resamples img to w x h with Catmull-Rom interpolation. The source
// aspect is not preserved; callers pick the target rect.
func Scale(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// MIME types accepted from the file picker / drag-drop collaborator.
var videoWhitelist = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"video/webm":      true,
}

// AcceptedUpload reports whether a picked file's MIME type may enter the
// library: any image/* plus a small whitelisted video set.
func AcceptedUpload(mime string) bool {
	m := strings.ToLower(strings.TrimSpace(mime))
	if strings.HasPrefix(m, "image/") {
		return true
	}
	return videoWhitelist[m]
}

// KindForMIME maps an accepted MIME type to the asset kind.
func KindForMIME(mime string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(m, "image/"):
		return "image", nil
	case videoWhitelist[m]:
		return "video", nil
	default:
		return "", fmt.Errorf("unsupported media type %q", mime)
	}
}
