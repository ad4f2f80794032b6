/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	applog "imagestudio/internal/log"
)

// ErrOriginalImmutable rejects destructive operations on the synthetic
// version 0.
var ErrOriginalImmutable = errors.New("original version is immutable")

// ListVersions returns the asset's persisted versions ascending by number.
// Version 0 (the original) is never part of the list.
func (lh *LibraryHandle) ListVersions(assetID string) ([]Version, error) {
	a := lh.asset(assetID)
	if a == nil {
		return nil, fmt.Errorf("asset %s not found", assetID)
	}
	out := make([]Version, len(a.Versions))
	copy(out, a.Versions)
	sort.Slice(out, func(i, j int) bool { return out[i].Num < out[j].Num })
	return out, nil
}

// Latest returns the version with the maximum number, or ok=false when
// the list is empty and the original is the effective latest.
func (lh *LibraryHandle) Latest(assetID string) (Version, bool, error) {
	vs, err := lh.ListVersions(assetID)
	if err != nil {
		return Version{}, false, err
	}
	if len(vs) == 0 {
		return Version{}, false, nil
	}
	return vs[len(vs)-1], true, nil
}

// AddVersion stores raster bytes as a new version of the asset and
// returns its number. Numbering is append-only: the next number is one
// past the maximum ever used, so deleted numbers are never reused.
func (lh *LibraryHandle) AddVersion(assetID string, rasterBytes []byte) (int, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "add_version")
	a := lh.asset(assetID)
	if a == nil {
		return 0, fmt.Errorf("asset %s not found", assetID)
	}
	if len(rasterBytes) == 0 {
		return 0, errors.New("empty raster")
	}

	// The high-water mark survives deletes; the scan over the listed
	// versions only seeds it for manifests written before the field
	// existed.
	next := a.NextVersionNum
	if next < 1 {
		next = 1
	}
	for _, v := range a.Versions {
		if v.Num >= next {
			next = v.Num + 1
		}
	}

	dir := filepath.Join(lh.Root, VersionsDirName, assetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create version dir: %w", err)
	}
	rel := filepath.Join(VersionsDirName, assetID, fmt.Sprintf("v%d.png", next))
	if err := writeFileSync(filepath.Join(lh.Root, rel), rasterBytes); err != nil {
		return 0, fmt.Errorf("store version: %w", err)
	}

	prevNext := a.NextVersionNum
	a.NextVersionNum = next + 1
	a.Versions = append(a.Versions, Version{
		Num:       next,
		URL:       rel,
		CreatedAt: time.Now().UTC(),
	})
	if err := Save(lh); err != nil {
		// Roll the file back so the tree matches the manifest on disk.
		_ = os.Remove(filepath.Join(lh.Root, rel))
		a.Versions = a.Versions[:len(a.Versions)-1]
		a.NextVersionNum = prevNext
		return 0, err
	}
	l.Info("version added", slog.String("asset", assetID), slog.Int("version", next))
	return next, nil
}

// DeleteVersion removes a persisted version. Version 0 is rejected with
// ErrOriginalImmutable.
func (lh *LibraryHandle) DeleteVersion(assetID string, num int) error {
	l := applog.WithOperation(applog.WithComponent("store"), "delete_version")
	if num == OriginalVersionNum {
		return ErrOriginalImmutable
	}
	a := lh.asset(assetID)
	if a == nil {
		return fmt.Errorf("asset %s not found", assetID)
	}
	idx := -1
	for i, v := range a.Versions {
		if v.Num == num {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("asset %s has no version %d", assetID, num)
	}

	victim := a.Versions[idx]
	a.Versions = append(a.Versions[:idx], a.Versions[idx+1:]...)
	if err := Save(lh); err != nil {
		return err
	}
	_ = os.Remove(filepath.Join(lh.Root, victim.URL))
	if err := DropVersionThumb(lh.Root, assetID, num); err != nil {
		l.Warn("drop thumb failed", slog.String("asset", assetID), slog.Int("version", num), slog.Any("err", err))
	}
	l.Info("version deleted", slog.String("asset", assetID), slog.Int("version", num))
	return nil
}

// VersionBytes reads the raster for a version number; 0 reads the
// original source file.
func (lh *LibraryHandle) VersionBytes(assetID string, num int) ([]byte, error) {
	a := lh.asset(assetID)
	if a == nil {
		return nil, fmt.Errorf("asset %s not found", assetID)
	}
	if num == OriginalVersionNum {
		return os.ReadFile(filepath.Join(lh.Root, a.SourcePath))
	}
	for _, v := range a.Versions {
		if v.Num == num {
			return os.ReadFile(filepath.Join(lh.Root, v.URL))
		}
	}
	return nil, fmt.Errorf("asset %s has no version %d", assetID, num)
}

// LatestBytes reads the raster for the effective latest: the highest
// version if any exist, else the original.
func (lh *LibraryHandle) LatestBytes(assetID string) ([]byte, int, error) {
	v, ok, err := lh.Latest(assetID)
	if err != nil {
		return nil, 0, err
	}
	num := OriginalVersionNum
	if ok {
		num = v.Num
	}
	b, err := lh.VersionBytes(assetID, num)
	return b, num, err
}
