/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestVersionNumbersAppendOnly(t *testing.T) {
	lh := newTestLibrary(t)
	a, err := lh.ImportAsset("photo", "image/png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := lh.AddVersion(a.ID, pngBytes(t, 4, 4))
		if err != nil {
			t.Fatalf("AddVersion: %v", err)
		}
		if got != want {
			t.Fatalf("version = %d, want %d", got, want)
		}
	}

	// Deleting the head must not release its number.
	if err := lh.DeleteVersion(a.ID, 3); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	got, err := lh.AddVersion(a.ID, pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	if got != 4 {
		t.Fatalf("version after delete = %d, want 4", got)
	}

	vs, err := lh.ListVersions(a.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	nums := make([]int, len(vs))
	for i, v := range vs {
		nums[i] = v.Num
	}
	if len(nums) != 3 || nums[0] != 1 || nums[1] != 2 || nums[2] != 4 {
		t.Fatalf("versions = %v, want [1 2 4]", nums)
	}
}

func TestVersionNumbersSurviveReopen(t *testing.T) {
	lh := newTestLibrary(t)
	a, err := lh.ImportAsset("photo", "image/png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := lh.AddVersion(a.ID, pngBytes(t, 4, 4)); err != nil {
			t.Fatalf("AddVersion: %v", err)
		}
	}
	if err := lh.DeleteVersion(a.ID, 3); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}

	// The high-water mark must be persisted in the manifest, not held
	// only in memory.
	reopened, err := Open(lh.Root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := reopened.AddVersion(a.ID, pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("AddVersion after reopen: %v", err)
	}
	if got != 4 {
		t.Fatalf("version after reopen = %d, want 4", got)
	}
}

func TestOriginalIsImmutable(t *testing.T) {
	lh := newTestLibrary(t)
	a, err := lh.ImportAsset("photo", "image/png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}
	if err := lh.DeleteVersion(a.ID, OriginalVersionNum); !errors.Is(err, ErrOriginalImmutable) {
		t.Fatalf("err = %v, want ErrOriginalImmutable", err)
	}
	// Still rejected with versions present.
	if _, err := lh.AddVersion(a.ID, pngBytes(t, 4, 4)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	if err := lh.DeleteVersion(a.ID, 0); !errors.Is(err, ErrOriginalImmutable) {
		t.Fatalf("err = %v, want ErrOriginalImmutable", err)
	}
}

func TestLatestSemantics(t *testing.T) {
	lh := newTestLibrary(t)
	a, err := lh.ImportAsset("photo", "image/png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}

	// Empty list: latest is the original.
	if _, ok, err := lh.Latest(a.ID); err != nil || ok {
		t.Fatalf("Latest on empty list: ok=%v err=%v", ok, err)
	}
	b, num, err := lh.LatestBytes(a.ID)
	if err != nil || num != OriginalVersionNum || len(b) == 0 {
		t.Fatalf("LatestBytes on empty list: num=%d err=%v", num, err)
	}

	payload := pngBytes(t, 6, 6)
	if _, err := lh.AddVersion(a.ID, payload); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	v, ok, err := lh.Latest(a.ID)
	if err != nil || !ok || v.Num != 1 {
		t.Fatalf("Latest = %+v ok=%v err=%v", v, ok, err)
	}
	b, num, err = lh.LatestBytes(a.ID)
	if err != nil || num != 1 {
		t.Fatalf("LatestBytes: num=%d err=%v", num, err)
	}
	if !bytes.Equal(b, payload) {
		t.Fatal("LatestBytes returned wrong payload")
	}
}

func TestDeleteVersionRemovesFile(t *testing.T) {
	lh := newTestLibrary(t)
	a, err := lh.ImportAsset("photo", "image/png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}
	if _, err := lh.AddVersion(a.ID, pngBytes(t, 4, 4)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	path := filepath.Join(lh.Root, VersionsDirName, a.ID, "v1.png")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("version file missing before delete: %v", err)
	}

	if err := lh.DeleteVersion(a.ID, 1); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("version file survived delete")
	}
	if err := lh.DeleteVersion(a.ID, 1); err == nil {
		t.Fatal("expected error deleting a missing version")
	}
}

func TestVersionBytesUnknown(t *testing.T) {
	lh := newTestLibrary(t)
	a, err := lh.ImportAsset("photo", "image/png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("ImportAsset: %v", err)
	}
	if _, err := lh.VersionBytes(a.ID, 9); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if _, err := lh.VersionBytes("nope", 0); err == nil {
		t.Fatal("expected error for unknown asset")
	}
}
