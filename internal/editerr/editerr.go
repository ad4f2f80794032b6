/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editerr holds the sentinel errors shared by the editing engines
// and the session layer. Decode failures carry more context and live as
// raster.DecodeError instead.
package editerr

import "errors"

var (
	// ErrApplyFailed reports that a rasterization step failed or produced
	// empty output; no version is created.
	ErrApplyFailed = errors.New("apply failed")

	// ErrInvalidRegion reports a crop or mask region with zero area.
	ErrInvalidRegion = errors.New("invalid region")

	// ErrConcurrentApply rejects a second apply requested while one is
	// still in flight for the same asset.
	ErrConcurrentApply = errors.New("concurrent apply rejected")

	// ErrStorage wraps upload, fetch and delete failures from the
	// storage collaborator.
	ErrStorage = errors.New("storage error")
)
