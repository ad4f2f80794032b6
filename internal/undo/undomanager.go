/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps in-memory snapshots of an asset's working state
// (overlays, strokes, crop) so edits before an apply can be stepped back.
package undo

import (
	"sync"
	"time"
)

// Snapshot represents a reversible working-state blob for an asset.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	AssetID string
	Blob    []byte
	TS      time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerAsset limits snapshots per asset kept in memory (0 means
	// unlimited).
	MaxPerAsset int
	// MinInterval coalesces snapshots captured within the interval for
	// the same asset, replacing the previous one instead of pushing a
	// new entry. Keeps drag gestures from flooding the stack.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per asset with
// performance safeguards. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo map[string][]Snapshot
	redo map[string][]Snapshot

	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records a snapshot for an asset. If within MinInterval from the
// last snapshot on the same asset, it replaces the last one. Clears the
// redo stack for that asset.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.AssetID]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes -= len(last.Blob)
			m.totalBytes += len(s.Blob)
			stack[n-1] = s
			m.undo[s.AssetID] = stack
			m.redo[s.AssetID] = nil
			m.enforceCapsLocked(s.AssetID)
			return
		}
	}
	stack = append(stack, s)
	m.undo[s.AssetID] = stack
	m.totalBytes += len(s.Blob)
	m.redo[s.AssetID] = nil
	m.enforceCapsLocked(s.AssetID)
}

// Undo pops from the asset's undo stack, returning the snapshot to
// restore. The caller's current state goes onto the redo stack, so a
// following Redo brings back what Undo stepped away from rather than
// the snapshot it restored.
func (m *Manager) Undo(assetID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[assetID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[assetID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[assetID] = append(m.redo[assetID], Snapshot{AssetID: assetID, Blob: current, TS: time.Now()})
	return s, true
}

// Redo pops from the asset's redo stack, returning the snapshot to
// restore. The caller's current state goes back onto the undo stack.
func (m *Manager) Redo(assetID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[assetID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[assetID] = r[:len(r)-1]
	m.undo[assetID] = append(m.undo[assetID], Snapshot{AssetID: assetID, Blob: current, TS: time.Now()})
	m.totalBytes += len(current)
	m.enforceCapsLocked(assetID)
	return s, true
}

// ClearAsset clears undo/redo stacks for an asset, used after apply or
// cancel since committed state is owned by the version store.
func (m *Manager) ClearAsset(assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[assetID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, assetID)
	delete(m.redo, assetID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, assets int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assets = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, assets, totalSnapshots
}

func (m *Manager) enforceCapsLocked(assetID string) {
	if m.cfg.MaxPerAsset > 0 {
		stack := m.undo[assetID]
		if len(stack) > m.cfg.MaxPerAsset {
			toDrop := len(stack) - m.cfg.MaxPerAsset
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[assetID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all assets.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestAsset := ""
		oldestIdx := -1
		var oldestTS time.Time
		for id, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestAsset = id
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := m.undo[oldestAsset]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestAsset] = stack[1:]
		if len(m.undo[oldestAsset]) == 0 {
			delete(m.undo, oldestAsset)
		}
	}
}
