/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package highlight

import (
	"maps"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

const (
	DefaultColor       = "#FEB663"
	DefaultStrokeWidth = 3.0
	DefaultPadding     = 3.0
	DefaultClassName   = "hl"
	DefaultOpacity     = 0.3
)

func defaultStrokeAttrs() map[string]any {
	return map[string]any{"stroke": DefaultColor, "stroke-width": DefaultStrokeWidth, "fill": "none"}
}

// Stroke outlines the node's bbox, inflated by Padding.
type Stroke struct {
	Padding float64
	Rx, Ry  float64
	Attrs   map[string]any
}

// NewStroke returns a stroke painter with the default padding and colour.
func NewStroke() *Stroke { return &Stroke{Padding: DefaultPadding} }

func (s *Stroke) Highlight(h *Highlighter, n Node) {
	attrs := defaultStrokeAttrs()
	maps.Copy(attrs, s.Attrs)
	h.SetOverlay(&Overlay{
		Class: "highlight-stroke",
		Rect:  n.BBox().Inflate(s.Padding, s.Padding),
		Rx:    s.Rx,
		Ry:    s.Ry,
		Attrs: attrs,
	})
}

func (s *Stroke) Unhighlight(h *Highlighter, _ Node) { h.SetOverlay(nil) }

// Mask traces the node's outline pushed outwards by Padding.
type Mask struct {
	Padding float64
	Attrs   map[string]any
}

func NewMask() *Mask { return &Mask{Padding: DefaultPadding} }

func (m *Mask) Highlight(h *Highlighter, n Node) {
	attrs := defaultStrokeAttrs()
	maps.Copy(attrs, m.Attrs)
	pts := n.Outline()
	if len(pts) < 3 {
		r := n.BBox()
		pts = []geometry.Point{r.Origin(), r.TopRight(), r.Corner(), r.BottomLeft()}
	}
	h.SetOverlay(&Overlay{
		Class:  "highlight-mask",
		Points: padOutline(pts, m.Padding),
		Attrs:  attrs,
	})
}

func (m *Mask) Unhighlight(h *Highlighter, _ Node) { h.SetOverlay(nil) }

// padOutline moves every point away from the outline's centroid by padding.
func padOutline(pts []geometry.Point, padding float64) []geometry.Point {
	c := geometry.NewPolygon(pts...).BBox().Center()
	out := make([]geometry.Point, len(pts))
	for i, p := range pts {
		if p.Equals(c) {
			out[i] = p
			continue
		}
		out[i] = p.Move(c, padding)
	}
	return out
}

// AddClass adds a class name to the node.
type AddClass struct {
	ClassName string
}

func (a AddClass) name() string {
	if a.ClassName == "" {
		return DefaultClassName
	}
	return a.ClassName
}

func (a AddClass) Highlight(_ *Highlighter, n Node)   { n.AddClass(a.name()) }
func (a AddClass) Unhighlight(_ *Highlighter, n Node) { n.RemoveClass(a.name()) }

// Opacity fades the node to Alpha.
type Opacity struct {
	Alpha float64
}

func (o Opacity) Highlight(_ *Highlighter, n Node) {
	alpha := o.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultOpacity
	}
	n.SetOpacity(alpha)
}

func (o Opacity) Unhighlight(_ *Highlighter, n Node) { n.SetOpacity(1) }
