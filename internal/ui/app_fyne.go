//go:build fyne && cgo

/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"imagestudio/internal/config"
	"imagestudio/internal/crash"
	"imagestudio/internal/export"
	"imagestudio/internal/geom"
	applog "imagestudio/internal/log"
	"imagestudio/internal/maskpaint"
	"imagestudio/internal/overlay"
	"imagestudio/internal/raster"
	"imagestudio/internal/remote"
	"imagestudio/internal/session"
	"imagestudio/internal/store"
	"imagestudio/internal/telemetry"
	"imagestudio/internal/version"
)

// Logical canvas the paint tools operate in.
const (
	paintBoxW = 800
	paintBoxH = 600
)

// editorMode selects which tool family pointer gestures are routed to.
type editorMode int

const (
	modeOverlay editorMode = iota
	modeMask
	modeCrop
)

// Run starts the Fyne-based desktop editor shell.
func Run(libraryDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))
	telemetry.InitDefault()

	var lh *store.LibraryHandle
	defer func() { crash.Recover(lh) }()

	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
	}
	opts := sessionOptions(cfg, token)

	fyneApp := app.NewWithID("imagestudio")
	w := fyneApp.NewWindow("Image Studio")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	setStatus := func(format string, args ...any) { status.SetText(fmt.Sprintf(format, args...)) }

	ec := NewEditorCanvas()
	ec.OnStatus = setStatus

	var sess *session.EditorSession
	currentAssetID := ""

	// Asset navigation (left)
	assetDisplay := []string{}
	assetIDs := []string{}
	assetList := widget.NewList(
		func() int { return len(assetDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(assetDisplay) {
				o.(*widget.Label).SetText(assetDisplay[i])
			}
		},
	)

	// Version history (right), newest last; index 0 is the immutable original.
	versionDisplay := []string{}
	versionNums := []int{}
	versionList := widget.NewList(
		func() int { return len(versionDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(versionDisplay) {
				o.(*widget.Label).SetText(versionDisplay[i])
			}
		},
	)

	refreshAssets := func() {
		assetDisplay = assetDisplay[:0]
		assetIDs = assetIDs[:0]
		if lh != nil {
			for _, a := range lh.Assets() {
				assetDisplay = append(assetDisplay, fmt.Sprintf("%s (%s)", a.Name, a.Kind))
				assetIDs = append(assetIDs, a.ID)
			}
		}
		assetList.Refresh()
	}

	refreshVersions := func() {
		versionDisplay = versionDisplay[:0]
		versionNums = versionNums[:0]
		if lh != nil && currentAssetID != "" {
			versionDisplay = append(versionDisplay, "Original")
			versionNums = append(versionNums, store.OriginalVersionNum)
			if vs, err := lh.ListVersions(currentAssetID); err == nil {
				for _, v := range vs {
					versionDisplay = append(versionDisplay, fmt.Sprintf("v%d  %s", v.Num, v.CreatedAt.Local().Format("2006-01-02 15:04")))
					versionNums = append(versionNums, v.Num)
				}
			}
		}
		versionList.Refresh()
	}

	openAsset := func(assetID string) {
		s, err := session.New(lh, assetID, paintBoxW, paintBoxH, opts)
		if err != nil {
			setStatus("open asset: %v", err)
			return
		}
		sess = s
		currentAssetID = assetID
		ec.SetSession(s)
		refreshVersions()
		ec.RefreshPreview()
		setStatus("Editing %s", assetID)
		telemetry.Event("asset_open", nil)
	}

	assetList.OnSelected = func(id widget.ListItemID) {
		if int(id) < len(assetIDs) {
			openAsset(assetIDs[id])
		}
	}
	versionList.OnSelected = func(id widget.ListItemID) {
		if sess == nil || int(id) >= len(versionNums) {
			return
		}
		num := versionNums[id]
		var sel *int
		// Selecting the newest entry means "follow latest".
		if int(id) != len(versionNums)-1 || num == store.OriginalVersionNum {
			sel = &num
		}
		if err := sess.SelectVersion(sel); err != nil {
			setStatus("select version: %v", err)
			return
		}
		ec.RefreshPreview()
	}

	applyDone := func(num int, err error, what string) {
		if err != nil {
			setStatus("%s failed: %v", what, err)
			return
		}
		refreshVersions()
		ec.RefreshPreview()
		setStatus("%s -> v%d", what, num)
		telemetry.Event("apply", map[string]any{"op": what})
	}

	importAsset := func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer func() { _ = rc.Close() }()
			data, rerr := io.ReadAll(rc)
			if rerr != nil {
				setStatus("import: %v", rerr)
				return
			}
			name := rc.URI().Name()
			mimeType := mimeForUpload(name, data)
			a, ierr := lh.ImportAsset(name, mimeType, data)
			if ierr != nil {
				setStatus("import %s: %v", name, ierr)
				return
			}
			refreshAssets()
			setStatus("Imported %s", a.Name)
		}, w)
		fd.Show()
	}

	addTextOverlay := func() {
		if sess == nil {
			return
		}
		textEntry := widget.NewEntry()
		textEntry.SetText("Caption")
		sizeEntry := widget.NewEntry()
		sizeEntry.SetText("24")
		colorEntry := widget.NewEntry()
		colorEntry.SetText("#ffffff")
		form := []*widget.FormItem{
			widget.NewFormItem("Text", textEntry),
			widget.NewFormItem("Size (pt)", sizeEntry),
			widget.NewFormItem("Color", colorEntry),
		}
		dialog.ShowForm("Add Text Overlay", "Add", "Cancel", form, func(ok bool) {
			if !ok {
				return
			}
			pts, perr := strconv.ParseFloat(strings.TrimSpace(sizeEntry.Text), 64)
			if perr != nil {
				pts = 24
			}
			sess.PushUndo()
			if _, err := sess.Overlays().AddText(textEntry.Text, overlay.PointsToFrac(pts), overlay.DefaultFamily, colorEntry.Text); err != nil {
				setStatus("add text: %v", err)
				return
			}
			ec.RefreshPreview()
		}, w)
	}

	addImageOverlay := func() {
		if sess == nil || lh == nil {
			return
		}
		names := []string{}
		ids := []string{}
		for _, a := range lh.Assets() {
			if a.Kind == "image" && a.ID != currentAssetID {
				names = append(names, a.Name)
				ids = append(ids, a.ID)
			}
		}
		if len(names) == 0 {
			setStatus("No other image assets to overlay")
			return
		}
		sel := widget.NewSelect(names, nil)
		dialog.ShowForm("Add Image Overlay", "Add", "Cancel", []*widget.FormItem{widget.NewFormItem("Asset", sel)}, func(ok bool) {
			if !ok || sel.SelectedIndex() < 0 {
				return
			}
			sess.PushUndo()
			sess.Overlays().AddImage(ids[sel.SelectedIndex()])
			ec.RefreshPreview()
		}, w)
	}

	inpaint := func() {
		if sess == nil {
			return
		}
		if opts.Inpaint == nil {
			setStatus("Inpaint service is not configured")
			return
		}
		promptEntry := widget.NewEntry()
		dialog.ShowForm("AI Region Edit", "Run", "Cancel", []*widget.FormItem{widget.NewFormItem("Prompt", promptEntry)}, func(ok bool) {
			if !ok {
				return
			}
			setStatus("Inpainting...")
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				num, err := sess.ApplyInpaint(ctx, promptEntry.Text)
				fyne.Do(func() { applyDone(num, err, "inpaint") })
			}()
		}, w)
	}

	exportPNG := func() {
		if sess == nil {
			return
		}
		num := store.OriginalVersionNum
		if v := sess.ViewingVersion(); v != nil {
			num = *v
		} else if latest, ok, _ := lh.Latest(currentAssetID); ok {
			num = latest.Num
		}
		path, err := export.VersionPNG(lh, currentAssetID, num)
		if err != nil {
			setStatus("export: %v", err)
			return
		}
		setStatus("Exported %s", filepath.Base(path))
	}

	exportSheet := func() {
		if sess == nil {
			return
		}
		path, err := export.ContactSheetPDF(lh, currentAssetID)
		if err != nil {
			setStatus("contact sheet: %v", err)
			return
		}
		setStatus("Wrote %s", filepath.Base(path))
	}

	deleteVersion := func() {
		if sess == nil {
			return
		}
		v := sess.ViewingVersion()
		if v == nil {
			setStatus("Select a version to delete")
			return
		}
		num := *v
		dialog.ShowConfirm("Delete Version", fmt.Sprintf("Delete v%d? This cannot be undone.", num), func(ok bool) {
			if !ok {
				return
			}
			if err := sess.DeleteVersion(num); err != nil {
				setStatus("delete v%d: %v", num, err)
				return
			}
			refreshVersions()
			ec.RefreshPreview()
			setStatus("Deleted v%d", num)
		}, w)
	}

	// Tool strip
	modeSelect := widget.NewSelect([]string{"Overlay", "Paint", "Crop/Rotate"}, func(s string) {
		if sess == nil {
			return
		}
		switch s {
		case "Paint":
			ec.SetMode(modeMask)
		case "Crop/Rotate":
			ec.SetMode(modeCrop)
		default:
			ec.SetMode(modeOverlay)
		}
		ec.RefreshPreview()
	})
	modeSelect.SetSelected("Overlay")

	brushSelect := widget.NewSelect([]string{"None", "Clone Stamp", "Colorize", "Highlight"}, func(s string) {
		if sess == nil {
			return
		}
		switch s {
		case "Clone Stamp":
			sess.Paint().SetTool(maskpaint.ToolCloneStamp)
		case "Colorize":
			sess.Paint().SetTool(maskpaint.ToolColorize)
		case "Highlight":
			sess.Paint().SetTool(maskpaint.ToolHighlight)
		default:
			sess.Paint().SetTool(maskpaint.ToolNone)
		}
		ec.RefreshPreview()
	})
	brushSelect.SetSelected("None")

	radiusSlider := widget.NewSlider(maskpaint.MinBrushRadius, maskpaint.MaxBrushRadius)
	radiusSlider.Value = 16
	radiusSlider.OnChanged = func(v float64) {
		if sess != nil {
			sess.Paint().SetBrushRadius(v)
		}
	}
	opacitySlider := widget.NewSlider(maskpaint.MinHighlightOpacity, maskpaint.MaxHighlightOpacity)
	opacitySlider.Value = 0.5
	opacitySlider.Step = 0.05
	opacitySlider.OnChanged = func(v float64) {
		if sess != nil {
			sess.Paint().SetOpacity(v)
		}
	}
	brushColor := widget.NewEntry()
	brushColor.SetText("#ff0000")
	brushColor.OnSubmitted = func(s string) {
		if sess == nil {
			return
		}
		if err := sess.Paint().SetColor(s); err != nil {
			setStatus("brush color: %v", err)
		}
	}
	maskCheck := widget.NewCheck("Mask mode", func(on bool) {
		if sess != nil {
			sess.Paint().SetMaskMode(on)
		}
	})

	toolbar := container.NewHBox(
		widget.NewButton("Import", importAsset),
		widget.NewSeparator(),
		modeSelect,
		widget.NewButton("+Image", addImageOverlay),
		widget.NewButton("+Text", addTextOverlay),
		widget.NewSeparator(),
		brushSelect,
		maskCheck,
		widget.NewSeparator(),
		widget.NewButton("Rotate CW", func() {
			if sess != nil {
				sess.PushUndo()
				sess.CropRotate().RotateCW()
				ec.RefreshPreview()
			}
		}),
		widget.NewButton("Rotate CCW", func() {
			if sess != nil {
				sess.PushUndo()
				sess.CropRotate().RotateCCW()
				ec.RefreshPreview()
			}
		}),
	)

	applyBar := container.NewHBox(
		widget.NewButton("Apply Overlays", func() {
			if sess != nil {
				num, err := sess.ApplyOverlays()
				applyDone(num, err, "overlays")
			}
		}),
		widget.NewButton("Apply Paint", func() {
			if sess != nil {
				num, err := sess.ApplyPaint()
				applyDone(num, err, "paint")
			}
		}),
		widget.NewButton("Apply Crop", func() {
			if sess != nil {
				num, err := sess.ApplyCropRotate()
				applyDone(num, err, "crop")
			}
		}),
		widget.NewButton("Inpaint", inpaint),
		widget.NewSeparator(),
		widget.NewButton("Undo", func() {
			if sess != nil && sess.Undo() {
				ec.RefreshPreview()
			}
		}),
		widget.NewButton("Redo", func() {
			if sess != nil && sess.Redo() {
				ec.RefreshPreview()
			}
		}),
		widget.NewButton("Cancel", func() {
			if sess != nil {
				sess.Cancel()
				brushSelect.SetSelected("None")
				ec.RefreshPreview()
			}
		}),
		widget.NewSeparator(),
		widget.NewButton("Export PNG", exportPNG),
		widget.NewButton("Contact Sheet", exportSheet),
		widget.NewButton("Delete Version", deleteVersion),
	)

	// Brush parameter strip kept below the toolbar so sliders get width.
	brushBar := container.NewBorder(nil, nil, widget.NewLabel("Radius"), container.NewBorder(nil, nil, widget.NewLabel("Opacity / Color"), brushColor, opacitySlider), radiusSlider)

	left := container.NewBorder(container.NewVBox(widget.NewLabel("Assets"), widget.NewSeparator()), nil, nil, nil, assetList)
	right := container.NewBorder(container.NewVBox(widget.NewLabel("Versions"), widget.NewSeparator()), nil, nil, nil, versionList)
	center := container.NewBorder(container.NewVBox(toolbar, brushBar, applyBar), status, nil, nil, ec)

	split := container.NewHSplit(left, container.NewHSplit(center, right))
	split.SetOffset(0.18)
	w.SetContent(split)

	// Open or create the library.
	if strings.TrimSpace(libraryDir) != "" {
		h, err := store.Open(libraryDir)
		if err != nil {
			h, err = store.InitLibrary(libraryDir, store.Library{Name: filepath.Base(libraryDir)})
		}
		if err != nil {
			return err
		}
		lh = h
		refreshAssets()
		setStatus("Library: %s", lh.Library.Name)
	} else {
		setStatus("Start with: studio <libraryDir>")
	}

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	w.ShowAndRun()
	return nil
}

func sessionOptions(cfg config.AppConfig, token string) session.Options {
	opts := session.Options{
		PollEvery: time.Duration(cfg.Inpaint.PollEveryMs) * time.Millisecond,
		MaxPolls:  cfg.Inpaint.MaxPollCount,
	}
	if u := strings.TrimSpace(cfg.Storage.BaseURL); u != "" {
		opts.Fetcher = remote.NewClient(u, token, time.Duration(cfg.Storage.TimeoutMs)*time.Millisecond)
	}
	if u := strings.TrimSpace(cfg.Inpaint.BaseURL); u != "" {
		opts.Inpaint = remote.NewInpaintClient(u, token, time.Duration(cfg.Inpaint.TimeoutMs)*time.Millisecond)
	}
	return opts
}

// mimeForUpload sniffs content first and falls back to the extension for
// formats http.DetectContentType does not know.
func mimeForUpload(name string, data []byte) string {
	m := http.DetectContentType(data)
	if m != "application/octet-stream" {
		return m
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	}
	return m
}

// EditorCanvas renders the composited preview and routes pointer gestures
// to the active tool engine.
type EditorCanvas struct {
	widget.BaseWidget

	sess *session.EditorSession
	mode editorMode

	preview  image.Image
	selected string // selected overlay element ID, "" if none

	// Displayed image placement, updated on layout.
	imgX, imgY, imgW, imgH float32

	dragActive bool

	OnStatus func(format string, args ...any)
}

func NewEditorCanvas() *EditorCanvas {
	ec := &EditorCanvas{}
	ec.ExtendBaseWidget(ec)
	return ec
}

func (ec *EditorCanvas) SetSession(s *session.EditorSession) {
	ec.sess = s
	ec.mode = modeOverlay
	ec.selected = ""
	ec.RefreshPreview()
}

func (ec *EditorCanvas) SetMode(m editorMode) {
	ec.mode = m
	ec.selected = ""
}

func (ec *EditorCanvas) PreferredSize() fyne.Size { return fyne.NewSize(paintBoxW, paintBoxH) }

func (ec *EditorCanvas) status(format string, args ...any) {
	if ec.OnStatus != nil {
		ec.OnStatus(format, args...)
	}
}

// RefreshPreview recomputes the preview raster for the current mode.
func (ec *EditorCanvas) RefreshPreview() {
	if ec.sess == nil {
		ec.preview = nil
		ec.Refresh()
		return
	}
	base, err := ec.sess.BaseBytes()
	if err != nil {
		ec.status("load base: %v", err)
		return
	}
	var out []byte
	switch ec.mode {
	case modeMask:
		out, err = ec.sess.Paint().Rasterize(base)
	case modeCrop:
		// The crop frame lives in rotated coordinates, so the preview
		// must show the rotated canvas the pointer maps into.
		out, err = ec.sess.CropRotate().Preview(base)
	default:
		out, err = ec.sess.Overlays().Flatten(base)
	}
	if err != nil {
		ec.status("preview: %v", err)
		return
	}
	img, err := raster.Decode(out, "preview")
	if err != nil {
		ec.status("preview decode: %v", err)
		return
	}
	ec.preview = img
	ec.Refresh()
}

// naturalSize is the preview raster size in pixels.
func (ec *EditorCanvas) naturalSize() geom.Size {
	if ec.preview == nil {
		return geom.Size{W: 1, H: 1}
	}
	b := ec.preview.Bounds()
	return geom.Size{W: float64(b.Dx()), H: float64(b.Dy())}
}

// toImage converts a widget position into preview pixel coordinates.
func (ec *EditorCanvas) toImage(pos fyne.Position) (float64, float64, bool) {
	if ec.imgW <= 0 || ec.imgH <= 0 {
		return 0, 0, false
	}
	n := ec.naturalSize()
	x := (float64(pos.X) - float64(ec.imgX)) / float64(ec.imgW) * n.W
	y := (float64(pos.Y) - float64(ec.imgY)) / float64(ec.imgH) * n.H
	return x, y, true
}

// toPaintBox converts a widget position into the logical paint box.
func (ec *EditorCanvas) toPaintBox(pos fyne.Position) (float64, float64, bool) {
	if ec.imgW <= 0 || ec.imgH <= 0 {
		return 0, 0, false
	}
	x := (float64(pos.X) - float64(ec.imgX)) / float64(ec.imgW) * paintBoxW
	y := (float64(pos.Y) - float64(ec.imgY)) / float64(ec.imgH) * paintBoxH
	return x, y, true
}

// Tapped hit-tests overlay elements, top-most first.
func (ec *EditorCanvas) Tapped(e *fyne.PointEvent) {
	if ec.sess == nil || ec.mode != modeOverlay {
		return
	}
	px, py, ok := ec.toImage(e.Position)
	if !ok {
		return
	}
	if el := ec.sess.Overlays().HitTest(px, py, ec.naturalSize()); el != nil {
		ec.selected = el.ID
	} else {
		ec.selected = ""
	}
	ec.Refresh()
}

func (ec *EditorCanvas) Dragged(e *fyne.DragEvent) {
	if ec.sess == nil {
		return
	}
	start := !ec.dragActive
	ec.dragActive = true

	switch ec.mode {
	case modeMask:
		bx, by, ok := ec.toPaintBox(e.Position)
		if !ok {
			return
		}
		if start {
			ec.sess.PushUndo()
			ec.sess.Paint().PointerDown(bx, by, 1)
		} else {
			ec.sess.Paint().PointerMove(bx, by, 1)
		}
		ec.RefreshPreview()
	case modeCrop:
		px, py, ok := ec.toImage(e.Position)
		if !ok {
			return
		}
		rs := ec.sess.CropRotate().RotatedSize()
		if start {
			ec.sess.PushUndo()
			ec.sess.CropRotate().BeginCrop(px, py, rs)
		} else {
			ec.sess.CropRotate().UpdateCrop(px, py, rs)
		}
		ec.Refresh()
	default:
		if ec.selected == "" {
			return
		}
		if start {
			ec.sess.PushUndo()
		}
		dx, dy := geom.DragDelta(float64(e.Dragged.DX), float64(e.Dragged.DY), float64(ec.imgW), float64(ec.imgH))
		if err := ec.sess.Overlays().Drag(ec.selected, dx, dy); err == nil {
			ec.RefreshPreview()
		}
	}
}

func (ec *EditorCanvas) DragEnd() {
	ec.dragActive = false
	if ec.sess == nil {
		return
	}
	switch ec.mode {
	case modeMask:
		ec.sess.Paint().PointerUp()
	case modeCrop:
		ec.sess.CropRotate().EndCrop()
	}
}

// Scrolled resizes the selected overlay element.
func (ec *EditorCanvas) Scrolled(e *fyne.ScrollEvent) {
	if ec.sess == nil || ec.mode != modeOverlay || ec.selected == "" {
		return
	}
	ec.sess.PushUndo()
	if err := ec.sess.Overlays().Resize(ec.selected, float64(e.Scrolled.DY)*0.002); err == nil {
		ec.RefreshPreview()
	}
}

func (ec *EditorCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	bbox := canvas.NewRectangle(color.RGBA{})
	bbox.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	bbox.StrokeWidth = 1
	bbox.Hide()
	cropRect := canvas.NewRectangle(color.RGBA{R: 255, G: 255, B: 255, A: 24})
	cropRect.StrokeColor = color.RGBA{R: 255, G: 200, B: 0, A: 220}
	cropRect.StrokeWidth = 1
	cropRect.Hide()
	return &editorCanvasRenderer{
		ec:       ec,
		objects:  []fyne.CanvasObject{bg, img, bbox, cropRect},
		bg:       bg,
		img:      img,
		bbox:     bbox,
		cropRect: cropRect,
	}
}

type editorCanvasRenderer struct {
	ec       *EditorCanvas
	objects  []fyne.CanvasObject
	bg       *canvas.Rectangle
	img      *canvas.Image
	bbox     *canvas.Rectangle
	cropRect *canvas.Rectangle
}

func (r *editorCanvasRenderer) Destroy()                     {}
func (r *editorCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *editorCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(400, 300) }
func (r *editorCanvasRenderer) Refresh() {
	r.img.Image = r.ec.preview
	r.Layout(r.ec.Size())
	canvas.Refresh(r.ec)
}

func (r *editorCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	if r.ec.preview == nil {
		r.img.Hide()
		r.bbox.Hide()
		r.cropRect.Hide()
		r.ec.imgW, r.ec.imgH = 0, 0
		return
	}
	r.img.Show()

	// Fit the preview into the widget preserving aspect, centered.
	n := r.ec.naturalSize()
	scale := float64(size.Width) / n.W
	if s := float64(size.Height) / n.H; s < scale {
		scale = s
	}
	w := float32(n.W * scale)
	h := float32(n.H * scale)
	x := (size.Width - w) / 2
	y := (size.Height - h) / 2
	r.ec.imgX, r.ec.imgY, r.ec.imgW, r.ec.imgH = x, y, w, h
	r.img.Resize(fyne.NewSize(w, h))
	r.img.Move(fyne.NewPos(x, y))

	// Selection box for the active overlay element.
	r.bbox.Hide()
	if r.ec.mode == modeOverlay && r.ec.selected != "" && r.ec.sess != nil {
		for _, el := range r.ec.sess.Overlays().Elements() {
			if el.ID != r.ec.selected {
				continue
			}
			px := geom.ToPixels(el.Rect, n)
			sx := float32(px.Left()*scale) + x
			sy := float32(px.Top()*scale) + y
			r.bbox.Show()
			r.bbox.Resize(fyne.NewSize(float32(px.W*scale), float32(px.H*scale)))
			r.bbox.Move(fyne.NewPos(sx, sy))
			break
		}
	}

	// Crop selection in rotated-image coordinates.
	r.cropRect.Hide()
	if r.ec.mode == modeCrop && r.ec.sess != nil {
		cr := r.ec.sess.CropRotate().Crop()
		rs := r.ec.sess.CropRotate().RotatedSize()
		if rs.W > 0 && rs.H > 0 && (cr.W < rs.W || cr.H < rs.H) {
			fx := x + float32(cr.X/rs.W)*w
			fy := y + float32(cr.Y/rs.H)*h
			fw := float32(cr.W/rs.W) * w
			fh := float32(cr.H/rs.H) * h
			r.cropRect.Show()
			r.cropRect.Resize(fyne.NewSize(fw, fh))
			r.cropRect.Move(fyne.NewPos(fx, fy))
		}
	}
}
