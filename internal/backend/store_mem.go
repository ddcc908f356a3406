/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clientIO/joint-sub027/internal/storage"
)

var _ GraphStore = (*MemStore)(nil)

// MemStore keeps graphs in memory. It backs `serve --memory` and tests.
type MemStore struct {
	mu     sync.RWMutex
	graphs map[string]GraphRecord
	now    func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{graphs: map[string]GraphRecord{}, now: time.Now}
}

func (m *MemStore) Put(_ context.Context, id, name string, graph json.RawMessage, expectVersion int64) (GraphRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.graphs[id]
	switch {
	case expectVersion == 0 && exists:
		return GraphRecord{}, ErrVersionConflict
	case expectVersion != 0 && !exists:
		return GraphRecord{}, ErrNotFound
	case expectVersion != 0 && cur.Version != expectVersion:
		return GraphRecord{}, ErrVersionConflict
	}
	rec := GraphRecord{
		ID:        id,
		Name:      name,
		Version:   cur.Version + 1,
		Graph:     slices.Clone(graph),
		UpdatedAt: m.now().UTC(),
	}
	m.graphs[id] = rec
	return rec, nil
}

func (m *MemStore) Get(_ context.Context, id string) (GraphRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.graphs[id]
	if !ok {
		return GraphRecord{}, ErrNotFound
	}
	rec.Graph = slices.Clone(rec.Graph)
	return rec, nil
}

func (m *MemStore) List(_ context.Context) ([]GraphRecord, error) {
	m.mu.RLock()
	out := make([]GraphRecord, 0, len(m.graphs))
	for _, rec := range m.graphs {
		rec.Graph = nil
		out = append(out, rec)
	}
	m.mu.RUnlock()
	sortRecords(out)
	return out, nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.graphs[id]; !ok {
		return ErrNotFound
	}
	delete(m.graphs, id)
	return nil
}

// Search matches every word of q.Text, case-insensitively, against the graph
// name and the label texts of its cells.
func (m *MemStore) Search(_ context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	words := strings.Fields(strings.ToLower(q.Text))
	m.mu.RLock()
	recs := make([]GraphRecord, 0, len(m.graphs))
	for _, rec := range m.graphs {
		recs = append(recs, rec)
	}
	m.mu.RUnlock()
	sortRecords(recs)

	var out []storage.SearchResult
	for _, rec := range recs {
		types, texts := cellTexts(rec.Graph)
		if len(q.Types) > 0 && !slices.ContainsFunc(q.Types, func(t string) bool { return slices.Contains(types, t) }) {
			continue
		}
		hay := strings.ToLower(rec.Name + " " + strings.Join(texts, " "))
		if !containsAll(hay, words) {
			continue
		}
		out = append(out, storage.SearchResult{ID: rec.ID, Type: "graph", Snippet: rec.Name})
	}
	off := max(q.Offset, 0)
	if off >= len(out) {
		return nil, nil
	}
	out = out[off:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func sortRecords(recs []GraphRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].UpdatedAt.Equal(recs[j].UpdatedAt) {
			return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}

func containsAll(hay string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}

// cellTexts collects the cell types and every string found under a "text"
// key in the graph document.
func cellTexts(doc json.RawMessage) (types, texts []string) {
	var d struct {
		Cells []map[string]any `json:"cells"`
	}
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, nil
	}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			for k, x := range t {
				if s, ok := x.(string); ok && k == "text" {
					texts = append(texts, s)
					continue
				}
				walk(x)
			}
		case []any:
			for _, x := range t {
				walk(x)
			}
		}
	}
	for _, c := range d.Cells {
		if s, ok := c["type"].(string); ok {
			types = append(types, s)
		}
		walk(c)
	}
	return types, texts
}
