/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"imagestudio/internal/editerr"
	"imagestudio/internal/maskpaint"
	"imagestudio/internal/raster"
	"imagestudio/internal/store"
)

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
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

func newSession(t *testing.T, opts Options) (*EditorSession, *store.LibraryHandle, string) {
	t.Helper()
	lh, err := store.InitLibrary(filepath.Join(t.TempDir(), "lib"), store.Library{Name: "test"})
	if err != nil {
		t.Fatalf("InitLibrary: %v", err)
	}
	a, err := lh.ImportAsset("photo", "image/png",
		pngBytes(t, 80, 60, color.RGBA{R: 255, G: 255, B: 255, A: 255}))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}
	s, err := New(lh, a.ID, 80, 60, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, lh, a.ID
}

func TestApplyOverlaysCreatesVersionAndClears(t *testing.T) {
	s, lh, assetID := newSession(t, Options{})
	logo, err := lh.ImportAsset("logo", "image/png", pngBytes(t, 10, 10, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}
	s.Overlays().AddImage(logo.ID)

	num, err := s.ApplyOverlays()
	if err != nil {
		t.Fatalf("ApplyOverlays: %v", err)
	}
	if num != 1 {
		t.Fatalf("version = %d, want 1", num)
	}
	if len(s.Overlays().Elements()) != 0 {
		t.Fatal("overlays not cleared after apply")
	}
	if s.ViewingVersion() != nil {
		t.Fatal("viewer should be on latest after apply")
	}
	vs, err := lh.ListVersions(assetID)
	if err != nil || len(vs) != 1 {
		t.Fatalf("versions = %v err=%v", vs, err)
	}
}

func TestApplyOverlaysAtomicOnBadSource(t *testing.T) {
	s, _, assetID := newSession(t, Options{})
	s.Overlays().AddImage("no-such-ref")

	_, err := s.ApplyOverlays()
	if err == nil {
		t.Fatal("expected failure")
	}
	var de *raster.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	// No version was created and the working list is unchanged.
	vs, _ := s.RefreshVersions()
	if len(vs) != 0 {
		t.Fatalf("versions = %v, want none", vs)
	}
	if len(s.Overlays().Elements()) != 1 {
		t.Fatal("working overlay list changed on failure")
	}
	_ = assetID
}

func TestApplyPaint(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	p := s.Paint()
	p.SetTool(maskpaint.ToolColorize)
	if err := p.SetColor("#0000ff"); err != nil {
		t.Fatalf("SetColor: %v", err)
	}
	p.PointerDown(40, 30, 0)
	p.PointerUp()

	num, err := s.ApplyPaint()
	if err != nil {
		t.Fatalf("ApplyPaint: %v", err)
	}
	if num != 1 {
		t.Fatalf("version = %d, want 1", num)
	}
	if len(p.Strokes()) != 0 {
		t.Fatal("strokes not cleared after apply")
	}
}

func TestApplyCropRotateLinearizesOntoHead(t *testing.T) {
	s, lh, assetID := newSession(t, Options{})

	// First apply: rotate 90.
	s.CropRotate().RotateCW()
	if _, err := s.ApplyCropRotate(); err != nil {
		t.Fatalf("ApplyCropRotate: %v", err)
	}
	b, err := s.BaseBytes()
	if err != nil {
		t.Fatalf("BaseBytes: %v", err)
	}
	img, err := raster.Decode(b, "v1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 80 {
		t.Fatalf("v1 = %v, want 60x80", img.Bounds())
	}

	// View the original, apply again: the result appends after v1, it
	// does not branch.
	zero := 0
	if err := s.SelectVersion(&zero); err != nil {
		t.Fatalf("SelectVersion: %v", err)
	}
	s.CropRotate().RotateCW()
	num, err := s.ApplyCropRotate()
	if err != nil {
		t.Fatalf("second ApplyCropRotate: %v", err)
	}
	if num != 2 {
		t.Fatalf("version = %d, want 2", num)
	}
	vs, _ := lh.ListVersions(assetID)
	if len(vs) != 2 {
		t.Fatalf("versions = %v, want 2 entries", vs)
	}
}

func TestDeleteViewedVersionFallsBackToLatest(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	for i := 0; i < 2; i++ {
		s.CropRotate().RotateCW()
		if _, err := s.ApplyCropRotate(); err != nil {
			t.Fatalf("ApplyCropRotate: %v", err)
		}
	}

	two := 2
	if err := s.SelectVersion(&two); err != nil {
		t.Fatalf("SelectVersion: %v", err)
	}
	if err := s.DeleteVersion(2); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if s.ViewingVersion() != nil {
		t.Fatal("viewer should fall back to latest")
	}
	vs, err := s.RefreshVersions()
	if err != nil {
		t.Fatalf("RefreshVersions: %v", err)
	}
	for _, v := range vs {
		if v.Num == 2 {
			t.Fatal("version 2 still listed after delete")
		}
	}
}

func TestDeleteOriginalRejected(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	if err := s.DeleteVersion(0); !errors.Is(err, store.ErrOriginalImmutable) {
		t.Fatalf("err = %v, want ErrOriginalImmutable", err)
	}
}

type blockingInpaint struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingInpaint) SubmitInpaint(context.Context, string, []byte, string) (string, error) {
	return "j1", nil
}

func (b *blockingInpaint) AwaitResult(context.Context, string, time.Duration, int) (string, error) {
	close(b.started)
	<-b.release
	return "ref/out", nil
}

type stubFetcher struct{ data []byte }

func (f stubFetcher) FetchBytes(context.Context, string) ([]byte, error) { return f.data, nil }

func TestConcurrentApplyRejected(t *testing.T) {
	inpaint := &blockingInpaint{started: make(chan struct{}), release: make(chan struct{})}
	result := pngBytes(t, 80, 60, color.RGBA{G: 255, A: 255})
	s, _, _ := newSession(t, Options{Inpaint: inpaint, Fetcher: stubFetcher{data: result}})

	p := s.Paint()
	p.SetTool(maskpaint.ToolHighlight)
	p.PointerDown(40, 30, 0)
	p.PointerUp()

	done := make(chan error, 1)
	go func() {
		_, err := s.ApplyInpaint(context.Background(), "remove the lamp")
		done <- err
	}()
	<-inpaint.started

	// Second apply on the same asset while the first is in flight.
	if !s.Applying() {
		t.Fatal("apply gate not held")
	}
	if _, err := s.ApplyOverlays(); !errors.Is(err, editerr.ErrConcurrentApply) {
		t.Fatalf("err = %v, want ErrConcurrentApply", err)
	}

	close(inpaint.release)
	if err := <-done; err != nil {
		t.Fatalf("ApplyInpaint: %v", err)
	}
	// The gate is released once the first apply resolves.
	if _, err := s.ApplyOverlays(); err != nil {
		t.Fatalf("apply after release: %v", err)
	}
}

func TestInpaintRequiresMask(t *testing.T) {
	inpaint := &blockingInpaint{started: make(chan struct{}), release: make(chan struct{})}
	s, _, _ := newSession(t, Options{Inpaint: inpaint, Fetcher: stubFetcher{}})
	_, err := s.ApplyInpaint(context.Background(), "prompt")
	if !errors.Is(err, editerr.ErrInvalidRegion) {
		t.Fatalf("err = %v, want ErrInvalidRegion", err)
	}
}

func TestUndoRedoWorkingState(t *testing.T) {
	s, lh, _ := newSession(t, Options{})
	logo, err := lh.ImportAsset("logo", "image/png", pngBytes(t, 10, 10, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}

	s.PushUndo() // state before the gesture: no overlays
	el := s.Overlays().AddImage(logo.ID)
	if err := s.Overlays().Drag(el.ID, 0.1, 0.1); err != nil {
		t.Fatalf("Drag: %v", err)
	}

	if !s.Undo() {
		t.Fatal("Undo failed")
	}
	if len(s.Overlays().Elements()) != 0 {
		t.Fatal("undo did not restore the empty working set")
	}
	if !s.Redo() {
		t.Fatal("Redo failed")
	}
	// Redo brings back the dragged overlay, not the pre-gesture state
	// that Undo restored.
	els := s.Overlays().Elements()
	if len(els) != 1 {
		t.Fatalf("redo restored %d overlays, want the dragged one back", len(els))
	}
	if els[0].Rect != el.Rect {
		t.Fatalf("redo rect = %v, want dragged %v", els[0].Rect, el.Rect)
	}
	if s.Undo(); len(s.Overlays().Elements()) != 0 {
		t.Fatal("second undo did not restore")
	}
}

func TestCancelDiscardsWorkingState(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	s.Overlays().AddImage("ref")
	p := s.Paint()
	p.SetTool(maskpaint.ToolColorize)
	p.PointerDown(1, 1, 0)
	p.PointerUp()
	s.CropRotate().RotateCW()

	s.Cancel()
	if len(s.Overlays().Elements()) != 0 || len(p.Strokes()) != 0 {
		t.Fatal("working state survived cancel")
	}
	if p.Tool() != maskpaint.ToolNone {
		t.Fatalf("tool = %v after cancel", p.Tool())
	}
	vs, _ := s.RefreshVersions()
	if len(vs) != 0 {
		t.Fatal("cancel persisted something")
	}
}
