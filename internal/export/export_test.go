/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clientIO/joint-sub027/internal/domain"
	"github.com/clientIO/joint-sub027/internal/graph"
	"github.com/clientIO/joint-sub027/internal/highlight"
	"github.com/clientIO/joint-sub027/internal/paper"
	"github.com/clientIO/joint-sub027/internal/storage"
)

// samplePaper renders "Order service" (0,0 120x60, one labelled port) linked
// to "Billing" (300,0) with an "invoice" label, and a stroke highlight on a.
func samplePaper(t *testing.T) (*graph.Graph, *paper.Paper) {
	t.Helper()
	g := graph.New(graph.Options{})
	a := graph.Attributes{
		"type":     graph.TypeRectangle,
		"id":       "a",
		"position": map[string]any{"x": 0, "y": 0},
		"size":     map[string]any{"width": 120, "height": 60},
		"attrs": map[string]any{
			"body":  map[string]any{"fill": "#eeeeee"},
			"label": map[string]any{"text": "Order service"},
		},
		"ports": map[string]any{
			"groups": map[string]any{
				"out": map[string]any{
					"position": map[string]any{"name": "right"},
					"label":    map[string]any{"position": map[string]any{"name": "right"}},
				},
			},
			"items": []any{map[string]any{"id": "o1", "group": "out", "label": map[string]any{"text": "events"}}},
		},
	}
	b := graph.Attributes{
		"type":     graph.TypeRectangle,
		"id":       "b",
		"position": map[string]any{"x": 300, "y": 0},
		"size":     map[string]any{"width": 120, "height": 60},
		"attrs":    map[string]any{"label": map[string]any{"text": "Billing & <Co>"}},
	}
	l := graph.Attributes{
		"type":   graph.TypeLink,
		"id":     "l",
		"source": map[string]any{"id": "a"},
		"target": map[string]any{"id": "b"},
		"labels": []any{map[string]any{"attrs": map[string]any{"text": map[string]any{"text": "invoice"}}}},
	}
	if _, err := g.AddCells(a, b, l); err != nil {
		t.Fatalf("add cells: %v", err)
	}
	p := paper.New(g, paper.Options{GridSize: 20})
	if _, err := p.Highlight("a", paper.SelectorBody, "sel", highlight.NewStroke()); err != nil {
		t.Fatalf("highlight: %v", err)
	}
	p.UpdateViews()
	return g, p
}

func TestBuildScene(t *testing.T) {
	_, p := samplePaper(t)
	s, err := BuildScene(p, Options{Margin: 5, IncludeGrid: true})
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	if s.Bounds.X != -5 || s.Bounds.Y != -5 || s.Grid != 20 || s.GridColor == "" {
		t.Fatalf("bounds/grid = %+v %v %q", s.Bounds, s.Grid, s.GridColor)
	}
	var texts []string
	var polylines, ports int
	for _, it := range s.Items {
		switch {
		case it.Kind == ItemText:
			texts = append(texts, it.Text)
		case it.Kind == ItemPolyline:
			polylines++
		case strings.HasPrefix(it.Class, "port"):
			ports++
		}
	}
	want := "Order service|events|Billing & <Co>|invoice"
	if strings.Join(texts, "|") != want {
		t.Fatalf("texts = %v", texts)
	}
	if polylines != 1 || ports != 1 {
		t.Fatalf("polylines = %d, ports = %d", polylines, ports)
	}
	last := s.Items[len(s.Items)-1]
	if last.Kind != ItemRect || last.Class != "highlight-stroke" || last.Stroke != highlight.DefaultColor {
		t.Fatalf("overlay not painted last: %+v", last)
	}

	s, err = BuildScene(p, Options{SkipHighlights: true})
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	for _, it := range s.Items {
		if it.Class == "highlight-stroke" {
			t.Fatalf("highlight exported despite SkipHighlights")
		}
	}
}

func TestBuildScene_Empty(t *testing.T) {
	p := paper.New(graph.New(graph.Options{}), paper.Options{})
	p.UpdateViews()
	if _, err := BuildScene(p, Options{}); err != ErrNothingToExport {
		t.Fatalf("err = %v", err)
	}
}

func TestRender_SVG(t *testing.T) {
	_, p := samplePaper(t)
	data, err := RenderBytes(p, FormatSVG, RenderOptions{Scale: 2})
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	svg := string(data)
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`viewBox="-10 -10 440 80"`,
		`width="880px"`,
		`<polygon`,
		`<polyline`,
		`class="highlight-stroke"`,
		`>Order service</tspan>`,
		`>Billing &amp; &lt;Co&gt;</tspan>`,
		`>invoice</tspan>`,
		`text-anchor="start"`,
	} {
		if !strings.Contains(svg, want) {
			t.Fatalf("svg missing %q:\n%s", want, svg)
		}
	}
}

func TestRender_PNG(t *testing.T) {
	_, p := samplePaper(t)
	data, err := RenderBytes(p, FormatPNG, RenderOptions{Scale: 2})
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 880 || b.Dy() != 160 {
		t.Fatalf("png size = %v", b)
	}
	// background corner is white
	if r, g, b, _ := img.At(0, 0).RGBA(); r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Fatalf("corner = %v", img.At(0, 0))
	}
}

func TestRender_PDF(t *testing.T) {
	_, p := samplePaper(t)
	data, err := RenderBytes(p, FormatPDF, RenderOptions{Title: "Orders"})
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:min(len(data), 16)])
	}
}

func TestExportFile(t *testing.T) {
	root := t.TempDir()
	_, p := samplePaper(t)
	path, err := ExportFile(root, p, "diagram.svg", RenderOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if path != filepath.Join(root, storage.ExportsDirName, "diagram.svg") {
		t.Fatalf("path = %s", path)
	}
	st, err := os.Stat(path)
	if err != nil || st.Size() == 0 {
		t.Fatalf("stat: %v", err)
	}
	if _, err := ExportFile(root, p, "diagram.gif", RenderOptions{}); err == nil {
		t.Fatalf("gif accepted")
	}
	abs := filepath.Join(t.TempDir(), "out", "d.pdf")
	if got, err := ExportFile(root, p, abs, RenderOptions{}); err != nil || got != abs {
		t.Fatalf("abs export = %s, %v", got, err)
	}
}

func TestPreview_Cached(t *testing.T) {
	root := t.TempDir()
	g, p := samplePaper(t)
	h, err := storage.InitDocument(root, domain.NewDocument("Orders", domain.PaperSettings{}))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := h.SetGraph(g); err != nil {
		t.Fatalf("set graph: %v", err)
	}
	ctx := context.Background()
	first, err := Preview(ctx, h, p, FormatSVG, RenderOptions{})
	if err != nil || len(first) == 0 {
		t.Fatalf("preview: %v", err)
	}
	total, err := storage.TotalPreviewBytes(ctx, root)
	if err != nil || total != int64(len(first)) {
		t.Fatalf("cached bytes = %d, %v", total, err)
	}
	again, err := Preview(ctx, h, p, FormatSVG, RenderOptions{})
	if err != nil || !bytes.Equal(first, again) {
		t.Fatalf("cache missed: %v", err)
	}
	// a changed graph invalidates the entry
	g.Cell("b").SetAttr("label/text", "Payments")
	if err := h.SetGraph(g); err != nil {
		t.Fatalf("set graph: %v", err)
	}
	fresh, err := Preview(ctx, h, p, FormatSVG, RenderOptions{})
	if err != nil || !strings.Contains(string(fresh), ">Payments</tspan>") {
		t.Fatalf("stale preview: %v", err)
	}
}
