/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns the working-memory state of one asset being
// edited: overlays, brush strokes, crop region, the active tool and the
// version being viewed. Every Apply funnels through a single gate so a
// second Apply on the same asset is rejected while one is in flight, and
// on success the session re-reads the version list and switches the
// viewer to the new latest.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"imagestudio/internal/croprotate"
	"imagestudio/internal/editerr"
	"imagestudio/internal/geom"
	applog "imagestudio/internal/log"
	"imagestudio/internal/maskpaint"
	"imagestudio/internal/overlay"
	"imagestudio/internal/raster"
	"imagestudio/internal/store"
	"imagestudio/internal/undo"
)

// Inpainter is the AI region-edit collaborator.
type Inpainter interface {
	SubmitInpaint(ctx context.Context, baseImageRef string, maskBytes []byte, prompt string) (string, error)
	AwaitResult(ctx context.Context, jobID string, pollEvery time.Duration, maxPolls int) (string, error)
}

// RefFetcher resolves an opaque reference to raster bytes, typically via
// the hosted storage service.
type RefFetcher interface {
	FetchBytes(ctx context.Context, ref string) ([]byte, error)
}

// Options configures collaborators and the inpaint poll budget. Inpaint
// and Fetcher may be nil when the AI flow is not available.
type Options struct {
	Inpaint   Inpainter
	Fetcher   RefFetcher
	PollEvery time.Duration
	MaxPolls  int
}

// EditorSession is the working state for one asset. Gesture handling and
// engine access run on the UI event loop; Apply calls may come from a
// background worker, guarded by the in-flight gate.
type EditorSession struct {
	lib     *store.LibraryHandle
	assetID string
	opts    Options

	overlays *overlay.Engine
	paint    *maskpaint.Engine
	crop     *croprotate.Engine
	history  *undo.Manager

	mu       sync.Mutex
	applying bool
	// viewing is nil for "latest"; otherwise a specific version number.
	viewing *int
}

// librarySource feeds overlay image refs from the library's originals,
// falling back to the hosted fetcher for remote refs.
type librarySource struct {
	lib     *store.LibraryHandle
	fetcher RefFetcher
}

func (s librarySource) Fetch(ref string) ([]byte, error) {
	if b, err := s.lib.VersionBytes(ref, store.OriginalVersionNum); err == nil {
		return b, nil
	}
	if s.fetcher != nil {
		return s.fetcher.FetchBytes(context.Background(), ref)
	}
	return nil, fmt.Errorf("unresolvable overlay ref %s", ref)
}

// New creates a session for the asset. boxW/boxH is the displayed canvas
// size the paint tools operate in.
func New(lib *store.LibraryHandle, assetID string, boxW, boxH int, opts Options) (*EditorSession, error) {
	a, err := lib.Asset(assetID)
	if err != nil {
		return nil, err
	}
	s := &EditorSession{
		lib:     lib,
		assetID: assetID,
		opts:    opts,
		paint:   maskpaint.NewEngine(boxW, boxH),
		crop:    croprotate.NewEngine(geom.Size{W: float64(a.Width), H: float64(a.Height)}),
		history: undo.NewManager(undo.Config{MaxPerAsset: 64}),
	}
	s.overlays = overlay.NewEngine(librarySource{lib: lib, fetcher: opts.Fetcher}, nil)
	return s, nil
}

// Overlays exposes the overlay working set.
func (s *EditorSession) Overlays() *overlay.Engine { return s.overlays }

// Paint exposes the brush working set.
func (s *EditorSession) Paint() *maskpaint.Engine { return s.paint }

// CropRotate exposes the crop working state.
func (s *EditorSession) CropRotate() *croprotate.Engine { return s.crop }

// AssetID returns the asset this session edits.
func (s *EditorSession) AssetID() string { return s.assetID }

// ViewingVersion returns the viewed version number, or nil for "latest".
func (s *EditorSession) ViewingVersion() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewing == nil {
		return nil
	}
	v := *s.viewing
	return &v
}

// SelectVersion switches which raster subsequent edits use as their base.
// Selecting is read-only; it never mutates the version list. nil selects
// "latest". The crop engine is re-anchored to the new base's dimensions.
func (s *EditorSession) SelectVersion(num *int) error {
	s.mu.Lock()
	if num == nil {
		s.viewing = nil
	} else {
		n := *num
		s.viewing = &n
	}
	s.mu.Unlock()
	return s.refreshCropSource()
}

// BaseBytes reads the raster of the currently viewed version.
func (s *EditorSession) BaseBytes() ([]byte, error) {
	s.mu.Lock()
	viewing := s.viewing
	s.mu.Unlock()
	if viewing != nil {
		return s.lib.VersionBytes(s.assetID, *viewing)
	}
	b, _, err := s.lib.LatestBytes(s.assetID)
	return b, err
}

func (s *EditorSession) refreshCropSource() error {
	b, err := s.BaseBytes()
	if err != nil {
		return err
	}
	img, err := raster.Decode(b, s.assetID)
	if err != nil {
		return err
	}
	s.crop.SetSource(geom.Size{
		W: float64(img.Bounds().Dx()),
		H: float64(img.Bounds().Dy()),
	})
	return nil
}

// beginApply takes the in-flight gate or rejects.
func (s *EditorSession) beginApply() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applying {
		return fmt.Errorf("%w: asset %s", editerr.ErrConcurrentApply, s.assetID)
	}
	s.applying = true
	return nil
}

func (s *EditorSession) endApply() {
	s.mu.Lock()
	s.applying = false
	s.mu.Unlock()
}

// Applying reports whether an apply is in flight, so the UI can disable
// the Apply controls.
func (s *EditorSession) Applying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applying
}

// commit registers raster bytes as a new version, refreshes the list and
// moves the viewer to latest.
func (s *EditorSession) commit(out []byte, op string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("session"), op)
	if len(out) == 0 {
		return 0, fmt.Errorf("%w: empty output", editerr.ErrApplyFailed)
	}
	num, err := s.lib.AddVersion(s.assetID, out)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	s.mu.Lock()
	s.viewing = nil
	s.mu.Unlock()
	if _, err := s.RefreshVersions(); err != nil {
		// The version exists; a stale list is usable.
		l.Warn("refresh after apply failed", slog.Any("err", err))
	}
	l.Info("version committed", slog.String("asset", s.assetID), slog.Int("version", num))
	return num, nil
}

// ApplyOverlays flattens all working overlays onto the viewed base and
// commits the result. On success the overlay list is cleared.
func (s *EditorSession) ApplyOverlays() (int, error) {
	if err := s.beginApply(); err != nil {
		return 0, err
	}
	defer s.endApply()

	base, err := s.BaseBytes()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	out, err := s.overlays.Flatten(base)
	if err != nil {
		return 0, err
	}
	num, err := s.commit(out, "apply_overlays")
	if err != nil {
		return 0, err
	}
	s.overlays.Clear()
	s.history.ClearAsset(s.assetID)
	return num, nil
}

// ApplyOverlayElement flattens a single overlay and commits the result,
// removing just that element and leaving the others live.
func (s *EditorSession) ApplyOverlayElement(id string) (int, error) {
	if err := s.beginApply(); err != nil {
		return 0, err
	}
	defer s.endApply()

	base, err := s.BaseBytes()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	out, err := s.overlays.FlattenElement(base, id)
	if err != nil {
		return 0, err
	}
	num, err := s.commit(out, "apply_overlay_element")
	if err != nil {
		return 0, err
	}
	_ = s.overlays.Remove(id)
	return num, nil
}

// ApplyPaint rasterizes the painted canvas and commits it. Strokes are
// cleared on success.
func (s *EditorSession) ApplyPaint() (int, error) {
	if err := s.beginApply(); err != nil {
		return 0, err
	}
	defer s.endApply()

	base, err := s.BaseBytes()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	out, err := s.paint.Rasterize(base)
	if err != nil {
		return 0, err
	}
	num, err := s.commit(out, "apply_paint")
	if err != nil {
		return 0, err
	}
	s.paint.Clear()
	s.history.ClearAsset(s.assetID)
	return num, nil
}

// ApplyCropRotate renders the crop and rotation at natural resolution and
// commits it.
func (s *EditorSession) ApplyCropRotate() (int, error) {
	if err := s.beginApply(); err != nil {
		return 0, err
	}
	defer s.endApply()

	base, err := s.BaseBytes()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	out, err := s.crop.Apply(base)
	if err != nil {
		return 0, err
	}
	num, err := s.commit(out, "apply_crop_rotate")
	if err != nil {
		return 0, err
	}
	s.history.ClearAsset(s.assetID)
	// The base dimensions changed; re-anchor the crop state.
	return num, s.refreshCropSource()
}

// ApplyInpaint exports the highlighted mask, hands it to the AI service
// with the prompt, and commits the returned image as a new version.
func (s *EditorSession) ApplyInpaint(ctx context.Context, prompt string) (int, error) {
	if s.opts.Inpaint == nil || s.opts.Fetcher == nil {
		return 0, fmt.Errorf("%w: inpaint service not configured", editerr.ErrStorage)
	}
	if err := s.beginApply(); err != nil {
		return 0, err
	}
	defer s.endApply()

	mask, err := s.paint.ExportMask()
	if err != nil {
		return 0, err
	}
	if _, err := s.lib.SaveMask(s.assetID, mask); err != nil {
		return 0, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}

	jobID, err := s.opts.Inpaint.SubmitInpaint(ctx, s.baseRef(), mask, prompt)
	if err != nil {
		return 0, err
	}
	outRef, err := s.opts.Inpaint.AwaitResult(ctx, jobID, s.opts.PollEvery, s.opts.MaxPolls)
	if err != nil {
		return 0, err
	}
	out, err := s.opts.Fetcher.FetchBytes(ctx, outRef)
	if err != nil {
		return 0, err
	}
	num, err := s.commit(out, "apply_inpaint")
	if err != nil {
		return 0, err
	}
	s.paint.Clear()
	s.history.ClearAsset(s.assetID)
	return num, nil
}

// baseRef is the opaque reference for the viewed base handed to the AI
// service: "assetID@versionNum".
func (s *EditorSession) baseRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewing != nil {
		return fmt.Sprintf("%s@%d", s.assetID, *s.viewing)
	}
	if v, ok, err := s.lib.Latest(s.assetID); err == nil && ok {
		return fmt.Sprintf("%s@%d", s.assetID, v.Num)
	}
	return fmt.Sprintf("%s@%d", s.assetID, store.OriginalVersionNum)
}

// RefreshVersions re-reads the version list, retrying once before giving
// up so a transient failure does not leave the viewer stuck.
func (s *EditorSession) RefreshVersions() ([]store.Version, error) {
	vs, err := s.lib.ListVersions(s.assetID)
	if err == nil {
		return vs, nil
	}
	vs, err2 := s.lib.ListVersions(s.assetID)
	if err2 != nil {
		return nil, fmt.Errorf("%w: %v (retry: %v)", editerr.ErrStorage, err, err2)
	}
	return vs, nil
}

// DeleteVersion removes a version; deleting the viewed version drops the
// viewer back to "latest" and refreshes the list.
func (s *EditorSession) DeleteVersion(num int) error {
	if err := s.lib.DeleteVersion(s.assetID, num); err != nil {
		return err
	}
	s.mu.Lock()
	if s.viewing != nil && *s.viewing == num {
		s.viewing = nil
	}
	s.mu.Unlock()
	if _, err := s.RefreshVersions(); err != nil {
		return err
	}
	return s.refreshCropSource()
}

// Cancel discards all working-memory state with no persisted effect.
func (s *EditorSession) Cancel() {
	s.overlays.Clear()
	s.paint.Clear()
	s.paint.SetTool(maskpaint.ToolNone)
	s.history.ClearAsset(s.assetID)
	_ = s.refreshCropSource()
}

// workingState is the serialized undo payload.
type workingState struct {
	Overlays []overlay.Element  `json:"overlays"`
	Strokes  []maskpaint.Stroke `json:"strokes"`
	Rotation int                `json:"rotation"`
	Crop     croprotate.Rect    `json:"crop"`
}

func (s *EditorSession) captureState() ([]byte, error) {
	st := workingState{
		Strokes:  s.paint.Strokes(),
		Rotation: s.crop.Rotation(),
		Crop:     s.crop.Crop(),
	}
	for _, el := range s.overlays.Elements() {
		st.Overlays = append(st.Overlays, *el)
	}
	return json.Marshal(st)
}

// PushUndo captures the current working state onto the undo history.
// Call on pointer-down, before a gesture mutates the state, so Undo
// restores what the user saw before the gesture.
func (s *EditorSession) PushUndo() {
	blob, err := s.captureState()
	if err != nil {
		return
	}
	s.history.Push(undo.Snapshot{AssetID: s.assetID, Blob: blob, TS: time.Now()})
}

// Undo restores the previous working state, if any.
func (s *EditorSession) Undo() bool { return s.step(s.history.Undo) }

// Redo re-applies an undone working state, if any.
func (s *EditorSession) Redo() bool { return s.step(s.history.Redo) }

// step hands the current state to the history so the opposite stack
// holds what the user is stepping away from, then restores the popped
// snapshot.
func (s *EditorSession) step(pop func(string, []byte) (undo.Snapshot, bool)) bool {
	cur, err := s.captureState()
	if err != nil {
		return false
	}
	snap, ok := pop(s.assetID, cur)
	if !ok {
		return false
	}
	var st workingState
	if err := json.Unmarshal(snap.Blob, &st); err != nil {
		return false
	}
	s.overlays.Restore(st.Overlays)
	s.paint.Restore(st.Strokes)
	s.crop.Restore(st.Rotation, st.Crop)
	return true
}
