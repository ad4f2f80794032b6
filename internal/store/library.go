/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store persists asset libraries: a JSON manifest with the asset
// and version catalog, the raster files themselves, and an embedded
// SQLite index for thumbnails and fast lookups.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	ManifestFileName = "studio.json"
	BackupsDirName   = "backups"

	OriginalsDirName = "originals"
	VersionsDirName  = "versions"
	MasksDirName     = "masks"
	ExportsDirName   = "exports"
)

var standardSubDirs = []string{
	OriginalsDirName,
	VersionsDirName,
	MasksDirName,
	ExportsDirName,
	BackupsDirName,
}

// LibraryHandle keeps track of the library state loaded/saved from disk.
// Root is the library directory containing studio.json and subfolders.
type LibraryHandle struct {
	Root         string
	ManifestPath string
	Library      Library
}

// InitLibrary creates a new library directory at root (creating it if it
// doesn't exist), scaffolds the standard subfolders, and writes the given
// manifest transactionally.
func InitLibrary(root string, lib Library) (*LibraryHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}

	lh := &LibraryHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Library:      lib,
	}
	if err := Save(lh); err != nil {
		return nil, err
	}
	return lh, nil
}

// Open loads an existing library from the given root directory. If the
// current manifest cannot be read or parsed, it attempts the last backup.
func Open(root string) (*LibraryHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		lib, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &LibraryHandle{Root: root, ManifestPath: mpath, Library: *lib}, nil
	}
	var lib Library
	if uerr := json.Unmarshal(b, &lib); uerr != nil {
		blib, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse manifest: %w; backup attempt: %v", uerr, berr)
		}
		return &LibraryHandle{Root: root, ManifestPath: mpath, Library: *blib}, nil
	}
	return &LibraryHandle{Root: root, ManifestPath: mpath, Library: lib}, nil
}

// Save writes the current manifest to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(lh *LibraryHandle) error {
	if lh == nil {
		return errors.New("nil LibraryHandle")
	}
	if lh.Root == "" || lh.ManifestPath == "" {
		return errors.New("invalid LibraryHandle: missing paths")
	}
	data, err := json.MarshalIndent(lh.Library, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(lh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	if _, statErr := os.Stat(lh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		if cerr := copyFile(lh.ManifestPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: temp file in same directory, then rename over
	// the target.
	dir := filepath.Dir(lh.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed.
	if _, err := os.Stat(lh.ManifestPath); err == nil {
		_ = os.Remove(lh.ManifestPath)
	}
	if rerr := os.Rename(temp, lh.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// AutosaveCrashSnapshot writes the in-memory manifest to the backups
// directory without touching the live manifest file. Intended for crash
// handlers where the regular transactional Save may be unsafe.
func AutosaveCrashSnapshot(lh *LibraryHandle) (string, error) {
	if lh == nil || lh.Root == "" {
		return "", errors.New("nil or invalid LibraryHandle")
	}
	data, err := json.MarshalIndent(lh.Library, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(lh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("autosave-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return path, err
	}
	return path, nil
}

// asset returns a pointer into the manifest for in-place mutation.
func (lh *LibraryHandle) asset(assetID string) *Asset {
	for i := range lh.Library.Assets {
		if lh.Library.Assets[i].ID == assetID {
			return &lh.Library.Assets[i]
		}
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

func openFromLatestBackup(root string) (*Library, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var lib Library
	if err := json.Unmarshal(b, &lib); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &lib, nil
}
