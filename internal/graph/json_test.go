/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

const sampleDoc = `{"cells":[
  {"type":"standard.Rectangle","id":"a","position":{"x":10,"y":20},"size":{"width":100,"height":60},
   "ports":{"groups":{"in":{"position":{"name":"left"}}},"items":[{"id":"p1","group":"in"}]},
   "embeds":["b"],"custom":{"k":1}},
  {"type":"standard.Ellipse","id":"b","position":{"x":30,"y":30},"size":{"width":20,"height":20},"parent":"a","angle":45},
  {"type":"standard.Link","id":"l","source":{"id":"a","port":"p1"},
   "target":{"id":"b","anchor":{"name":"perpendicular","args":{"dx":5}}},
   "vertices":[{"x":0,"y":0},{"x":5,"y":5}],
   "labels":[{"position":0.5,"attrs":{"text":{"text":"hello"}}}],
   "attrs":{"line":{"stroke":"red"}}}
]}`

func TestFromJSON_RoundTrip(t *testing.T) {
	g := New(Options{})
	if err := g.FromJSON([]byte(sampleDoc)); err != nil {
		t.Fatalf("from json: %v", err)
	}
	if got := idsOf(g.Cells()); got != "a,b,l" {
		t.Fatalf("cells = %s", got)
	}
	a, b, l := g.Cell("a"), g.Cell("b"), g.Cell("l")
	if b.ParentCell() != a || !a.HasPort("p1") {
		t.Fatalf("embedding or ports lost")
	}
	if l.Target.Anchor == nil || l.Target.Anchor.Name != "perpendicular" {
		t.Fatalf("anchor = %+v", l.Target.Anchor)
	}
	if len(l.Labels) != 1 || l.Labels[0].Position.Distance != 0.5 || l.Labels[0].Text() != "hello" {
		t.Fatalf("labels = %+v", l.Labels)
	}
	if s, _ := l.AttrString("line", "stroke"); s != "red" {
		t.Fatalf("stroke = %q", s)
	}
	if w, _ := l.AttrNumber("line", "strokeWidth"); w != 2 {
		t.Fatalf("factory default lost, strokeWidth = %v", w)
	}
	if string(a.Get("custom")) != `{"k":1}` {
		t.Fatalf("extra attribute = %s", a.Get("custom"))
	}
	if got := idsOf(g.ConnectedLinks(a, LinkOptions{})); got != "l" {
		t.Fatalf("links of a = %s", got)
	}

	first, err := g.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	g2 := New(Options{})
	if err := g2.FromJSON(first); err != nil {
		t.Fatalf("reload: %v", err)
	}
	second, err := g2.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip differs:\n%s\n%s", first, second)
	}
}

func TestToJSON_EndpointForms(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, rect("a", 0, 0, 10, 10))
	free := link("l", "a", "")
	free["target"] = map[string]any{"x": 7, "y": 0}
	mustAdd(t, g, free)

	var doc struct {
		Cells []map[string]json.RawMessage `json:"cells"`
	}
	data, err := g.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	l := doc.Cells[1]
	if string(l["source"]) != `{"id":"a"}` {
		t.Fatalf("source = %s", l["source"])
	}
	if string(l["target"]) != `{"x":7,"y":0}` {
		t.Fatalf("target = %s", l["target"])
	}
	if g.Cell("l").TargetPoint() != geometry.Pt(7, 0) {
		t.Fatalf("target point = %v", g.Cell("l").TargetPoint())
	}
}

func TestFromJSON_Rejects(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, rect("keep", 0, 0, 1, 1))
	events := 0
	g.Subscribe(func(Event) { events++ })

	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `{"cells":`, ErrInvalidDocument},
		{"no cells", `{"items":[]}`, ErrMissingCells},
		{"cells not array", `{"cells":{}}`, ErrInvalidDocument},
		{"cell without type", `{"cells":[{"id":"x"}]}`, ErrInvalidDocument},
		{"bad position", `{"cells":[{"type":"standard.Rectangle","position":{"x":"left"}}]}`, ErrInvalidDocument},
		{"duplicate ids", `{"cells":[{"type":"standard.Rectangle","id":"x"},{"type":"standard.Ellipse","id":"x"}]}`, ErrDuplicateID},
	}
	for _, tc := range cases {
		if err := g.FromJSON([]byte(tc.doc)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, err)
		}
	}

	err := g.FromJSON([]byte(`{"cells":[{"type":"standard.Rectangle","id":"x"},{"type":"custom.Node","id":"y"}]}`))
	var cfg *ConfigurationError
	if !errors.As(err, &cfg) || cfg.Type != "custom.Node" {
		t.Fatalf("want ConfigurationError, got %v", err)
	}

	if got := idsOf(g.Cells()); got != "keep" || events != 0 {
		t.Fatalf("graph touched by rejected input: %s, %d events", got, events)
	}
}

func TestFromJSON_EmptyCells(t *testing.T) {
	g := New(Options{})
	mustAdd(t, g, rect("a", 0, 0, 1, 1))
	if err := g.FromJSON([]byte(`{"cells":[]}`)); err != nil {
		t.Fatalf("from json: %v", err)
	}
	if g.Len() != 0 {
		t.Fatalf("len = %d", g.Len())
	}
	data, _ := g.ToJSON()
	if string(data) != `{"cells":[]}` {
		t.Fatalf("empty graph json = %s", data)
	}
}
