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
	"bytes"
	"log/slog"
	"time"

	"github.com/clientIO/joint-sub027/internal/graph"
	applog "github.com/clientIO/joint-sub027/internal/log"
)

// Tracker records the states of one graph into a Manager. Changes made
// inside a batch become a single undo step when the outermost batch stops.
type Tracker struct {
	m     *Manager
	g     *graph.Graph
	docID string
	log   *slog.Logger

	last        []byte
	applying    bool
	unsubscribe func()
}

// Track starts recording g under docID.
func Track(m *Manager, g *graph.Graph, docID string) (*Tracker, error) {
	cur, err := g.ToJSON()
	if err != nil {
		return nil, err
	}
	t := &Tracker{m: m, g: g, docID: docID, last: cur, log: applog.ForDocument(applog.WithComponent("undo"), docID)}
	t.unsubscribe = g.Subscribe(t.onEvent)
	return t, nil
}

// Close stops recording. The stacks stay in the manager.
func (t *Tracker) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

func (t *Tracker) onEvent(e graph.Event) {
	if t.applying {
		return
	}
	switch e.Type {
	case graph.EventAdd, graph.EventRemove, graph.EventReset, graph.EventChange, graph.EventBatchStop:
	default:
		return
	}
	if t.g.HasActiveBatch() {
		return
	}
	cur, err := t.g.ToJSON()
	if err != nil {
		t.log.Warn("snapshot failed", slog.Any("err", err))
		return
	}
	if bytes.Equal(cur, t.last) {
		return
	}
	t.m.Record(Snapshot{DocID: t.docID, Graph: t.last, TS: time.Now()})
	t.last = cur
}

// Undo restores the previous state. It reports false when there is none.
func (t *Tracker) Undo() (bool, error) {
	s, ok := t.m.Undo(t.docID, t.last)
	if !ok {
		return false, nil
	}
	return true, t.apply(s.Graph)
}

// Redo reapplies the last undone state.
func (t *Tracker) Redo() (bool, error) {
	s, ok := t.m.Redo(t.docID, t.last)
	if !ok {
		return false, nil
	}
	return true, t.apply(s.Graph)
}

func (t *Tracker) apply(state []byte) error {
	t.applying = true
	defer func() { t.applying = false }()
	if err := t.g.FromJSON(state); err != nil {
		return err
	}
	t.last = state
	return nil
}
