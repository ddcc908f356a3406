/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clientIO/joint-sub027/internal/domain"
	"github.com/clientIO/joint-sub027/internal/graph"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(graph.Options{})
	_, err := g.AddCells(
		graph.Attributes{
			"type": graph.TypeRectangle, "id": "a",
			"position": map[string]any{"x": 0, "y": 0},
			"size":     map[string]any{"width": 100, "height": 50},
			"attrs":    map[string]any{"label": map[string]any{"text": "Order service"}},
		},
		graph.Attributes{
			"type": graph.TypeRectangle, "id": "b",
			"position": map[string]any{"x": 300, "y": 0},
			"size":     map[string]any{"width": 100, "height": 50},
			"attrs":    map[string]any{"label": map[string]any{"text": "Billing"}},
		},
		graph.Attributes{
			"type": graph.TypeLink, "id": "l",
			"source": map[string]any{"id": "a"},
			"target": map[string]any{"id": "b"},
			"labels": []any{map[string]any{"attrs": map[string]any{"text": map[string]any{"text": "invoice"}}}},
		},
	)
	if err != nil {
		t.Fatalf("add cells: %v", err)
	}
	return g
}

func newHandle(t *testing.T) *Handle {
	t.Helper()
	root := t.TempDir()
	h, err := InitDocument(root, domain.NewDocument("Test", domain.PaperSettings{Width: 800, Height: 600, GridSize: 10}))
	if err != nil {
		t.Fatalf("InitDocument: %v", err)
	}
	return h
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestInitDocument_Scaffold(t *testing.T) {
	h := newHandle(t)
	for _, d := range []string{ExportsDirName, BackupsDirName} {
		if st, err := os.Stat(filepath.Join(h.Root, d)); err != nil || !st.IsDir() {
			t.Fatalf("missing subdir %s: %v", d, err)
		}
	}
	if _, err := os.Stat(h.Path); err != nil {
		t.Fatalf("document missing: %v", err)
	}
	if h.Doc.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt not stamped")
	}
	if _, err := InitDocument(" ", domain.NewDocument("x", domain.PaperSettings{})); err == nil {
		t.Fatalf("expected error for empty root")
	}
	if _, err := InitDocument(t.TempDir(), domain.Document{}); err == nil {
		t.Fatalf("expected error for invalid document")
	}
}

func TestSaveOpen_RoundTripWithGraph(t *testing.T) {
	h := newHandle(t)
	if err := h.SetGraph(sampleGraph(t)); err != nil {
		t.Fatalf("SetGraph: %v", err)
	}
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Open(h.Root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Doc.ID != h.Doc.ID || got.Doc.Name != "Test" {
		t.Fatalf("doc = %+v", got.Doc)
	}
	g, err := got.LoadGraph(graph.Options{})
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if g.Len() != 3 || g.Cell("l") == nil || !g.Cell("l").IsLink() {
		t.Fatalf("graph cells = %d", g.Len())
	}
	bks, err := Backups(h.Root)
	if err != nil || len(bks) == 0 {
		t.Fatalf("expected a backup of the first save: %v %v", bks, err)
	}
}

func TestOpen_FallsBackToBackup(t *testing.T) {
	h := newHandle(t)
	if err := Save(h); err != nil { // backs up the initial file
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(h.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := Open(h.Root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Doc.ID != h.Doc.ID {
		t.Fatalf("backup doc id = %q", got.Doc.ID)
	}
}

func TestOpen_RejectsInvalidGraph(t *testing.T) {
	root := t.TempDir()
	doc := domain.NewDocument("Bad", domain.PaperSettings{})
	doc.Graph = []byte(`{"cells":[{"id":"no-type"}]}`)
	if err := os.WriteFile(filepath.Join(root, DocumentFileName), mustJSON(t, doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Open(root)
	if err == nil || !strings.Contains(err.Error(), "backup") {
		t.Fatalf("expected open failure mentioning backups, got %v", err)
	}
}

func TestSaveAsAndCrashSnapshot(t *testing.T) {
	h := newHandle(t)
	dst := filepath.Join(t.TempDir(), "copy")
	if err := SaveAs(h, dst); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if h.Root != dst {
		t.Fatalf("root not updated: %s", h.Root)
	}
	if _, err := ReadDocument(filepath.Join(dst, DocumentFileName)); err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	p, err := AutosaveCrashSnapshot(h)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot: %v", err)
	}
	if !strings.Contains(filepath.Base(p), ".crash-") {
		t.Fatalf("crash path = %s", p)
	}
	if err := SaveAs(nil, dst); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
