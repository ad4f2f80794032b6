/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	applog "imagestudio/internal/log"
	"imagestudio/internal/raster"
)

// ImportAsset validates the upload, stores the bytes as the immutable
// original, and registers the asset in the manifest. For images the
// natural dimensions are recorded; videos are stored as-is.
func (lh *LibraryHandle) ImportAsset(name, mimeType string, data []byte) (*Asset, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "import_asset")
	if !raster.AcceptedUpload(mimeType) {
		return nil, fmt.Errorf("unsupported upload type %q", mimeType)
	}

	kind, err := raster.KindForMIME(mimeType)
	if err != nil {
		return nil, err
	}
	a := Asset{
		ID:         uuid.NewString(),
		Name:       name,
		Kind:       kind,
		MIME:       mimeType,
		ImportedAt: time.Now().UTC(),
	}
	if a.Kind == "image" {
		img, err := raster.Decode(data, name)
		if err != nil {
			return nil, err
		}
		a.Width = img.Bounds().Dx()
		a.Height = img.Bounds().Dy()
	}

	rel := filepath.Join(OriginalsDirName, a.ID+extForMIME(mimeType))
	if err := writeFileSync(filepath.Join(lh.Root, rel), data); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}
	a.SourcePath = rel

	lh.Library.Assets = append(lh.Library.Assets, a)
	if err := Save(lh); err != nil {
		return nil, err
	}
	l.Info("asset imported",
		slog.String("asset", a.ID),
		slog.String("kind", a.Kind),
		slog.Int("w", a.Width),
		slog.Int("h", a.Height),
	)
	return lh.asset(a.ID), nil
}

// Assets returns the manifest's asset list.
func (lh *LibraryHandle) Assets() []Asset {
	out := make([]Asset, len(lh.Library.Assets))
	copy(out, lh.Library.Assets)
	return out
}

// Asset returns a copy of the asset with the given id.
func (lh *LibraryHandle) Asset(assetID string) (Asset, error) {
	a := lh.asset(assetID)
	if a == nil {
		return Asset{}, fmt.Errorf("asset %s not found", assetID)
	}
	return *a, nil
}

// RemoveAsset deletes an asset along with its original, all version
// files, masks and cached thumbnails.
func (lh *LibraryHandle) RemoveAsset(assetID string) error {
	l := applog.WithOperation(applog.WithComponent("store"), "remove_asset")
	a := lh.asset(assetID)
	if a == nil {
		return fmt.Errorf("asset %s not found", assetID)
	}

	for i, cand := range lh.Library.Assets {
		if cand.ID == assetID {
			lh.Library.Assets = append(lh.Library.Assets[:i], lh.Library.Assets[i+1:]...)
			break
		}
	}
	if err := Save(lh); err != nil {
		return err
	}

	// File and index cleanup is best-effort once the manifest no longer
	// references the asset.
	if a.SourcePath != "" {
		_ = os.Remove(filepath.Join(lh.Root, a.SourcePath))
	}
	_ = os.RemoveAll(filepath.Join(lh.Root, VersionsDirName, assetID))
	_ = os.RemoveAll(filepath.Join(lh.Root, MasksDirName, assetID))
	if err := DropThumbs(lh.Root, assetID); err != nil {
		l.Warn("drop thumbs failed", slog.String("asset", assetID), slog.Any("err", err))
	}
	l.Info("asset removed", slog.String("asset", assetID))
	return nil
}

// SaveMask stores an exported mask for an asset and returns its path
// relative to the library root. Masks are working artifacts for the AI
// edit flow, not versions.
func (lh *LibraryHandle) SaveMask(assetID string, data []byte) (string, error) {
	if lh.asset(assetID) == nil {
		return "", fmt.Errorf("asset %s not found", assetID)
	}
	dir := filepath.Join(lh.Root, MasksDirName, assetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create mask dir: %w", err)
	}
	rel := filepath.Join(MasksDirName, assetID, time.Now().UTC().Format("20060102-150405")+".png")
	if err := writeFileSync(filepath.Join(lh.Root, rel), data); err != nil {
		return "", fmt.Errorf("store mask: %w", err)
	}
	return rel, nil
}

func extForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
