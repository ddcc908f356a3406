/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-document undo/redo stacks of graph JSON snapshots.
package undo

import (
	"sync"
	"time"
)

// Snapshot is a graph JSON state of one document. The manager never looks
// inside Graph; its size is estimated as len(Graph).
type Snapshot struct {
	DocID string
	Graph []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerDoc limits number of undo states kept per document (0 means unlimited).
	MaxPerDoc int
	// MinInterval coalesces states recorded within the interval for the same
	// document. The older state is kept so one undo reverts the whole burst.
	MinInterval time.Duration
}

// Manager provides in-memory undo/redo stacks per document with performance safeguards.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-document stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// bytes held by undo stacks
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

// Record pushes the state a document had before a change and clears its
// redo stack.
func (m *Manager) Record(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redo[s.DocID] = nil
	stack := m.undo[s.DocID]
	if n := len(stack); n > 0 && s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		stack[n-1].TS = s.TS
		return
	}
	m.undo[s.DocID] = append(stack, s)
	m.totalBytes += len(s.Graph)
	m.enforceCapsLocked(s.DocID)
}

// Undo pops the newest state of docID. current is kept on the redo stack.
func (m *Manager) Undo(docID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[docID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[docID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Graph)
	m.redo[docID] = append(m.redo[docID], Snapshot{DocID: docID, Graph: current, TS: time.Now()})
	return s, true
}

// Redo pops the newest redo state of docID. current goes back on the undo stack.
func (m *Manager) Redo(docID string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[docID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[docID] = r[:len(r)-1]
	m.undo[docID] = append(m.undo[docID], Snapshot{DocID: docID, Graph: current, TS: time.Now()})
	m.totalBytes += len(current)
	m.enforceCapsLocked(docID)
	return s, true
}

func (m *Manager) CanUndo(docID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[docID]) > 0
}

func (m *Manager) CanRedo(docID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[docID]) > 0
}

// Clear drops both stacks of a document to free memory.
func (m *Manager) Clear(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[docID] {
		m.totalBytes -= len(s.Graph)
	}
	delete(m.undo, docID)
	delete(m.redo, docID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, docs int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, docs, totalSnapshots
}

func (m *Manager) enforceCapsLocked(docID string) {
	if m.cfg.MaxPerDoc > 0 {
		stack := m.undo[docID]
		if len(stack) > m.cfg.MaxPerDoc {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerDoc
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Graph)
			}
			m.undo[docID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all documents
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestDoc := ""
		found := false
		var oldestTS time.Time
		for doc, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestDoc, oldestTS, found = doc, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestDoc]
		m.totalBytes -= len(stack[0].Graph)
		m.undo[oldestDoc] = stack[1:]
		if len(m.undo[oldestDoc]) == 0 {
			delete(m.undo, oldestDoc)
		}
	}
}
