/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a paper to SVG, PDF and PNG.
//
// Every format draws the same flattened Scene, built from the rendered cell
// views and their highlight overlays, so the outputs agree on geometry.
package export

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/highlight"
	"github.com/clientIO/joint-sub027/internal/paper"
)

// ItemKind tells a writer how to draw an Item.
type ItemKind int

const (
	ItemPolygon ItemKind = iota
	ItemPolyline
	ItemRect
	ItemText
)

// Anchors follow the SVG text-anchor values.
const (
	AnchorStart  = "start"
	AnchorMiddle = "middle"
	AnchorEnd    = "end"
)

const (
	defaultFontSize    = 14.0
	defaultMargin      = 10.0
	defaultBackground  = "#ffffff"
	defaultGridColor   = "#e6e6e6"
	defaultBodyFill    = "#ffffff"
	defaultBodyStroke  = "#333333"
	defaultLineStroke  = "#333333"
	defaultTextFill    = "#333333"
	defaultPortFill    = "#31d0c6"
	defaultPortStroke  = "#2c3e50"
	defaultLinkWidth   = 2.0
	defaultStrokeWidth = 1.0
)

var ErrNothingToExport = errors.New("export: paper has no rendered cells")

// Item is one drawable primitive in scene coordinates.
type Item struct {
	Kind   ItemKind
	CellID string
	Class  string
	Points []geometry.Point // polygon or polyline
	Rect   geometry.Rect    // ItemRect
	Rx, Ry float64

	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64

	Text     string
	At       geometry.Point
	FontSize float64
	Anchor   string
	// DY shifts the first line, in ems, like the SVG dy attribute.
	DY float64
	// Angle rotates text clockwise about At, in degrees.
	Angle float64
}

// Scene is a flattened, drawable copy of a rendered paper.
type Scene struct {
	Bounds     geometry.Rect
	Background string
	Grid       float64
	GridColor  string
	Items      []Item
}

// Options control which parts of the paper are drawn.
type Options struct {
	// Margin is added around the content bbox. Zero means 10.
	Margin     float64
	Background string
	// IncludeGrid draws the paper grid behind the cells.
	IncludeGrid bool
	GridColor   string
	// SkipHighlights leaves highlight overlays out.
	SkipHighlights bool
}

// BuildScene flattens the rendered views of p in z order. Views that have not
// been rendered yet are skipped; call p.UpdateViews first.
func BuildScene(p *paper.Paper, opt Options) (Scene, error) {
	content, ok := p.ContentBBox()
	if !ok {
		return Scene{}, ErrNothingToExport
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = defaultMargin
	}
	s := Scene{
		Bounds:     content.Inflate(margin, margin),
		Background: opt.Background,
		GridColor:  opt.GridColor,
	}
	if s.Background == "" {
		s.Background = defaultBackground
	}
	if opt.IncludeGrid {
		s.Grid = p.Options().GridSize
		if s.GridColor == "" {
			s.GridColor = defaultGridColor
		}
	}
	var overlays []Item
	for _, v := range p.Views() {
		if !v.IsRendered() {
			continue
		}
		if v.Cell().IsLink() {
			s.Items = append(s.Items, linkItems(v)...)
		} else {
			s.Items = append(s.Items, elementItems(v)...)
		}
		if !opt.SkipHighlights {
			overlays = append(overlays, overlayItems(v, p.Highlighters().All(v))...)
		}
	}
	// overlays paint above every cell
	s.Items = append(s.Items, overlays...)
	return s, nil
}

func elementItems(v *paper.CellView) []Item {
	c := v.Cell()
	g := v.Element
	body := Item{
		Kind:        ItemPolygon,
		CellID:      c.ID,
		Class:       strings.Join(nodeClasses(v, paper.SelectorBody), " "),
		Points:      g.Outline,
		Fill:        attrOr(c.Attrs, defaultBodyFill, "body", "fill"),
		Stroke:      attrOr(c.Attrs, defaultBodyStroke, "body", "stroke"),
		StrokeWidth: numberOr(c.Attrs, defaultStrokeWidth, "body", "strokeWidth"),
		Opacity:     nodeOpacity(v, paper.SelectorBody),
	}
	out := []Item{body}
	if text := g.Label; text != "" {
		out = append(out, Item{
			Kind:     ItemText,
			CellID:   c.ID,
			Text:     text,
			At:       g.BBox.Center(),
			FontSize: numberOr(c.Attrs, defaultFontSize, "label", "fontSize"),
			Fill:     attrOr(c.Attrs, defaultTextFill, "label", "fill"),
			Anchor:   AnchorMiddle,
			DY:       0.3,
			Opacity:  nodeOpacity(v, paper.SelectorLabel),
		})
	}
	for _, pv := range g.Ports {
		sel := paper.PortSelector(pv.ID)
		b := pv.BBox
		pts := []geometry.Point{b.Origin(), b.TopRight(), b.Corner(), b.BottomLeft()}
		if n := v.Node(sel); n != nil && len(n.Outline()) > 1 {
			pts = n.Outline()
		}
		out = append(out, Item{
			Kind:        ItemPolygon,
			CellID:      c.ID,
			Class:       strings.Join(append([]string{"port"}, nodeClasses(v, sel)...), " "),
			Points:      pts,
			Fill:        attrOr(pv.Attrs, defaultPortFill, "portBody", "fill"),
			Stroke:      attrOr(pv.Attrs, defaultPortStroke, "portBody", "stroke"),
			StrokeWidth: numberOr(pv.Attrs, defaultStrokeWidth, "portBody", "strokeWidth"),
			Opacity:     nodeOpacity(v, sel),
		})
		if pv.LabelText == "" {
			continue
		}
		out = append(out, Item{
			Kind:     ItemText,
			CellID:   c.ID,
			Class:    "port-label",
			Text:     pv.LabelText,
			At:       pv.LabelAt,
			FontSize: numberOr(pv.Attrs, defaultFontSize, "label", "fontSize"),
			Fill:     attrOr(pv.Attrs, defaultTextFill, "label", "fill"),
			Anchor:   anchorOr(pv.Label.TextAnchor),
			DY:       parseEm(pv.Label.TextY),
			Angle:    pv.Label.Angle,
			Opacity:  1,
		})
	}
	return out
}

func linkItems(v *paper.CellView) []Item {
	c := v.Cell()
	g := v.Link
	// one polyline per subpath; a jumpover gap starts a new one
	runs := [][]geometry.Point{g.Route}
	if sp := g.Path.Subpaths(); len(sp) > 0 {
		runs = runs[:0]
		for _, r := range sp {
			runs = append(runs, r.Points)
		}
	}
	class := strings.Join(nodeClasses(v, paper.SelectorBody), " ")
	stroke := attrOr(c.Attrs, defaultLineStroke, "line", "stroke")
	width := numberOr(c.Attrs, defaultLinkWidth, "line", "strokeWidth")
	var out []Item
	for _, pts := range runs {
		out = append(out, Item{
			Kind:        ItemPolyline,
			CellID:      c.ID,
			Class:       class,
			Points:      pts,
			Stroke:      stroke,
			StrokeWidth: width,
			Opacity:     nodeOpacity(v, paper.SelectorBody),
		})
	}
	if last := runs[len(runs)-1]; len(last) > 1 {
		n := len(last)
		out = append(out, arrowHead(c.ID, last[n-2], last[n-1], stroke, width))
	}
	for i, l := range g.Labels {
		if l.Text == "" {
			continue
		}
		out = append(out, Item{
			Kind:     ItemText,
			CellID:   c.ID,
			Class:    "label",
			Text:     l.Text,
			At:       l.At,
			FontSize: numberOr(l.Attrs, defaultFontSize, "text", "fontSize"),
			Fill:     attrOr(l.Attrs, defaultTextFill, "text", "fill"),
			Anchor:   AnchorMiddle,
			DY:       0.3,
			Opacity:  nodeOpacity(v, paper.LinkLabelSelector(i)),
		})
	}
	return out
}

// arrowHead is a filled triangle pointing at tip.
func arrowHead(cellID string, from, tip geometry.Point, stroke string, width float64) Item {
	size := 4 + 2*width
	d := tip.Difference(from)
	length := math.Hypot(d.X, d.Y)
	if length == 0 {
		return Item{Kind: ItemPolygon, CellID: cellID, Points: []geometry.Point{tip}, Opacity: 1}
	}
	ux, uy := d.X/length, d.Y/length
	base := geometry.Pt(tip.X-ux*size, tip.Y-uy*size)
	half := size / 2
	return Item{
		Kind:   ItemPolygon,
		CellID: cellID,
		Class:  "marker-target",
		Points: []geometry.Point{
			tip,
			geometry.Pt(base.X-uy*half, base.Y+ux*half),
			geometry.Pt(base.X+uy*half, base.Y-ux*half),
		},
		Fill:        stroke,
		Stroke:      stroke,
		StrokeWidth: 1,
		Opacity:     1,
	}
}

func overlayItems(v *paper.CellView, hs []*highlight.Highlighter) []Item {
	var out []Item
	for _, h := range hs {
		o := h.Overlay()
		if o == nil || !h.IsMounted() {
			continue
		}
		it := Item{
			CellID:      v.Cell().ID,
			Class:       o.Class,
			Fill:        attrOr(o.Attrs, "none", "fill"),
			Stroke:      attrOr(o.Attrs, highlight.DefaultColor, "stroke"),
			StrokeWidth: numberOr(o.Attrs, highlight.DefaultStrokeWidth, "stroke-width"),
			Opacity:     numberOr(o.Attrs, 1, "opacity"),
		}
		if len(o.Points) > 0 {
			it.Kind = ItemPolygon
			it.Points = o.Points
		} else {
			it.Kind = ItemRect
			it.Rect = o.Rect
			it.Rx, it.Ry = o.Rx, o.Ry
		}
		out = append(out, it)
	}
	return out
}

func nodeClasses(v *paper.CellView, sel string) []string {
	if n := v.Node(sel); n != nil {
		return n.Classes()
	}
	return nil
}

func nodeOpacity(v *paper.CellView, sel string) float64 {
	if n := v.Node(sel); n != nil {
		return n.Opacity()
	}
	return 1
}

func lookup(attrs map[string]any, path ...string) (any, bool) {
	var cur any = attrs
	for _, k := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func attrOr(attrs map[string]any, def string, path ...string) string {
	if v, ok := lookup(attrs, path...); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func numberOr(attrs map[string]any, def float64, path ...string) float64 {
	v, ok := lookup(attrs, path...)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSuffix(n, "px"), 64); err == nil {
			return f
		}
	}
	return def
}

func anchorOr(a string) string {
	switch a {
	case AnchorStart, AnchorEnd:
		return a
	}
	return AnchorMiddle
}

// parseEm reads "0.3em", ".3em", "-1em" or a bare number as ems.
func parseEm(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "em"))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
