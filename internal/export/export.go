/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes versions out of the library: loose PNG files and
// a PDF contact sheet of an asset's version lineage.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"imagestudio/internal/raster"
	"imagestudio/internal/store"
)

// VersionPNG writes one version's raster to the library's exports folder
// and returns the written path. Version 0 exports the original.
func VersionPNG(lh *store.LibraryHandle, assetID string, versionNum int) (string, error) {
	data, err := lh.VersionBytes(assetID, versionNum)
	if err != nil {
		return "", err
	}
	// Originals may be JPEG or GIF; exports are always PNG.
	img, err := raster.Decode(data, assetID)
	if err != nil {
		return "", err
	}
	out, err := raster.EncodePNG(img)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(lh.Root, store.ExportsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure exports dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-v%d.png", assetID, versionNum))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// ContactSheetPDF renders the asset's whole lineage (original plus all
// versions) as a PDF grid, one cell per version, and returns the written
// path.
func ContactSheetPDF(lh *store.LibraryHandle, assetID string) (string, error) {
	a, err := lh.Asset(assetID)
	if err != nil {
		return "", err
	}
	vs, err := lh.ListVersions(assetID)
	if err != nil {
		return "", err
	}
	nums := make([]int, 0, len(vs)+1)
	nums = append(nums, store.OriginalVersionNum)
	for _, v := range vs {
		nums = append(nums, v.Num)
	}

	const (
		pageW   = 210.0 // A4 mm
		margin  = 10.0
		cols    = 3
		cellW   = (pageW - 2*margin) / cols
		cellH   = cellW * 0.75
		labelH  = 6.0
		rowStep = cellH + labelH + 4
	)

	p := gofpdf.New("P", "mm", "A4", "")
	p.SetFont("Helvetica", "", 9)
	p.AddPage()
	p.Cell(0, 8, fmt.Sprintf("%s (%d versions)", a.Name, len(vs)))

	for i, num := range nums {
		col := i % cols
		row := i / cols
		x := margin + float64(col)*cellW
		y := margin + 12 + float64(row%4)*rowStep
		if i > 0 && i%(cols*4) == 0 {
			p.AddPage()
		}

		data, err := lh.VersionBytes(assetID, num)
		if err != nil {
			return "", err
		}
		if a.Kind != "image" {
			// Video assets get a placeholder cell.
			p.Rect(x, y, cellW, cellH, "D")
		} else {
			name := fmt.Sprintf("v%d", num)
			p.RegisterImageOptionsReader(name,
				gofpdf.ImageOptions{ImageType: imageTypeFor(data), ReadDpi: false},
				bytes.NewReader(data))
			p.ImageOptions(name, x, y, cellW, cellH, false,
				gofpdf.ImageOptions{ImageType: imageTypeFor(data)}, 0, "")
		}
		label := fmt.Sprintf("v%d", num)
		if num == store.OriginalVersionNum {
			label = "Original"
		}
		p.SetXY(x, y+cellH)
		p.Cell(cellW, labelH, label)
	}

	dir := filepath.Join(lh.Root, store.ExportsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure exports dir: %w", err)
	}
	path := filepath.Join(dir, assetID+"-versions.pdf")
	if err := p.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

func imageTypeFor(data []byte) string {
	if len(data) > 3 && data[0] == 0xff && data[1] == 0xd8 {
		return "JPG"
	}
	if len(data) > 3 && string(data[1:4]) == "PNG" {
		return "PNG"
	}
	if len(data) > 3 && string(data[0:3]) == "GIF" {
		return "GIF"
	}
	return "PNG"
}
