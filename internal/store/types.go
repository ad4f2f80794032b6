/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import "time"

// Library is the manifest of one asset library on disk. It serializes to
// a human-readable JSON manifest at the library root.
type Library struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
	Assets   []Asset  `json:"assets"`
}

// Metadata contains optional descriptive metadata for a library.
type Metadata struct {
	Owner string `json:"owner,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Asset is one editable item: the immutable original plus its derived
// versions. SourcePath is the original's file relative to the library
// root; it is never rewritten after import.
type Asset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"` // image or video
	MIME       string    `json:"mime"`
	SourcePath string    `json:"sourcePath"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	ImportedAt time.Time `json:"importedAt"`
	Versions   []Version `json:"versions"`
	// NextVersionNum is the per-asset high-water mark: the number the
	// next version will take. It only ever grows, so numbers freed by
	// deletes are never handed out again.
	NextVersionNum int `json:"nextVersionNum,omitempty"`
}

// Version is one immutable raster produced by an apply. Num 0 is never
// stored here: it is the synthetic entry for the original, represented
// implicitly by Asset.SourcePath.
//
// Numbers are append-only per asset. A deleted version's number is never
// reassigned, so the list may have gaps.
type Version struct {
	Num       int       `json:"versionNum"`
	URL       string    `json:"url"` // file path relative to the library root
	CreatedAt time.Time `json:"createdAt"`
}

// OriginalVersionNum identifies the synthetic original entry.
const OriginalVersionNum = 0
