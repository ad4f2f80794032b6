/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFamily is used when a text overlay does not name a family or
// names one the set does not carry.
const DefaultFamily = "Go"

// FaceSet maps logical family names to parsed TrueType fonts and produces
// faces at a requested pixel size. Parsed fonts are cached; faces are cheap
// and created per call.
type FaceSet struct {
	mu    sync.RWMutex
	fonts map[string]*truetype.Font
}

// DefaultFaces returns a set carrying the embedded Go fonts.
func DefaultFaces() *FaceSet {
	fs := &FaceSet{fonts: map[string]*truetype.Font{}}
	// The embedded fonts always parse; ignore errors for them.
	_ = fs.Register(DefaultFamily, goregular.TTF)
	_ = fs.Register("Go Bold", gobold.TTF)
	_ = fs.Register("Go Italic", goitalic.TTF)
	return fs
}

// Register parses a TTF blob and stores it under the family name. Later
// registrations replace earlier ones.
func (fs *FaceSet) Register(family string, ttf []byte) error {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("register font %s: %w", family, err)
	}
	fs.mu.Lock()
	fs.fonts[family] = f
	fs.mu.Unlock()
	return nil
}

// Families lists the registered family names sorted for stable UI menus.
func (fs *FaceSet) Families() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]string, 0, len(fs.fonts))
	for name := range fs.fonts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve returns a face for the family at the given pixel size, falling
// back to DefaultFamily for unknown names.
func (fs *FaceSet) Resolve(family string, sizePx float64) font.Face {
	fs.mu.RLock()
	f, ok := fs.fonts[family]
	if !ok {
		f = fs.fonts[DefaultFamily]
	}
	fs.mu.RUnlock()
	return truetype.NewFace(f, &truetype.Options{
		Size:    sizePx,
		DPI:     72, // size is interpreted directly in pixels
		Hinting: font.HintingFull,
	})
}
