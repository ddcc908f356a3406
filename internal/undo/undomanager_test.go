/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerDoc: 10, MinInterval: 10 * time.Millisecond})
	doc := "d1"
	t0 := time.Now()
	m.Record(Snapshot{DocID: doc, Graph: []byte("a"), TS: t0})
	m.Record(Snapshot{DocID: doc, Graph: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, docs, total := m.Stats(); docs != 1 || total != 2 {
		t.Fatalf("expected 1 doc and 2 snapshots, got docs=%d total=%d", docs, total)
	}
	s, ok := m.Undo(doc, []byte("c"))
	if !ok || string(s.Graph) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v graph=%q", ok, string(s.Graph))
	}
	if !m.CanRedo(doc) {
		t.Fatalf("redo stack empty after undo")
	}
	s, ok = m.Redo(doc, []byte("b"))
	if !ok || string(s.Graph) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v graph=%q", ok, string(s.Graph))
	}
	m.Record(Snapshot{DocID: doc, Graph: []byte("c"), TS: t0.Add(time.Second)})
	if m.CanRedo(doc) {
		t.Fatalf("new change kept redo states")
	}
	if _, ok := m.Undo("other", nil); ok {
		t.Fatalf("undo on unknown doc succeeded")
	}
}

func TestCoalesceKeepsOlderState(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerDoc: 10, MinInterval: 50 * time.Millisecond})
	doc := "d2"
	t0 := time.Now()
	m.Record(Snapshot{DocID: doc, Graph: []byte("1"), TS: t0})
	m.Record(Snapshot{DocID: doc, Graph: []byte("2"), TS: t0.Add(10 * time.Millisecond)}) // coalesce
	m.Record(Snapshot{DocID: doc, Graph: []byte("3"), TS: t0.Add(55 * time.Millisecond)}) // still within 50ms of the refreshed stamp
	_, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo(doc, nil)
	if !ok || string(s.Graph) != "1" {
		t.Fatalf("expected oldest state '1', got ok=%v graph=%q", ok, string(s.Graph))
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerDoc: 2, MinInterval: time.Nanosecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Record(Snapshot{DocID: "d3", Graph: []byte("xxxxx"), TS: t0.Add(time.Duration(i) * time.Millisecond)})
	}
	if tb, _, total := m.Stats(); total != 2 || tb != 10 {
		t.Fatalf("expected MaxPerDoc cap to limit to 2 (10 bytes), got %d (%d bytes)", total, tb)
	}
}

func TestClearAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerDoc: 10, MinInterval: time.Millisecond})
	m.Record(Snapshot{DocID: "d4", Graph: []byte("abcdef"), TS: time.Now()})
	tb, docs, total := m.Stats()
	if tb != 6 || docs != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d docs=%d total=%d", tb, docs, total)
	}
	m.Clear("d4")
	tb, docs, total = m.Stats()
	if tb != 0 || docs != 0 || total != 0 {
		t.Fatalf("expected cleared stats to be zero, got tb=%d docs=%d total=%d", tb, docs, total)
	}
}

func TestGlobalPruneAcrossDocs(t *testing.T) {
	m := NewManager(Config{MaxBytes: 8, MinInterval: time.Millisecond})
	t0 := time.Now()
	m.Record(Snapshot{DocID: "old", Graph: []byte("xxxx"), TS: t0})
	m.Record(Snapshot{DocID: "new", Graph: []byte("yyyy"), TS: t0.Add(time.Second)})
	m.Record(Snapshot{DocID: "new", Graph: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	if m.CanUndo("old") {
		t.Fatalf("expected the oldest document state to be pruned")
	}
	if _, ok := m.Undo("new", nil); !ok {
		t.Fatalf("expected newer document to keep its states")
	}
}
