/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package paper

import (
	"log/slog"
	"math"
	"strings"

	"github.com/clientIO/joint-sub027/internal/connect"
	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/graph"
	"github.com/clientIO/joint-sub027/internal/highlight"
	"github.com/clientIO/joint-sub027/internal/ids"
	"github.com/clientIO/joint-sub027/internal/layout"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/route"
	"github.com/clientIO/joint-sub027/internal/schedule"
	"github.com/clientIO/joint-sub027/internal/textlayout"
)

// View update flags.
const (
	FlagRender schedule.Flags = 1 << 1
	FlagUpdate schedule.Flags = 1 << 2
)

// Update priorities; highlighters use highlight.UpdatePriority.
const (
	ElementPriority = 1
	LinkPriority    = 2
)

// ellipseSegments is the number of points approximating an ellipse outline.
const ellipseSegments = 32

// PortView is a port placed on the paper.
type PortView struct {
	ID     string
	Group  string
	Center geometry.Point // paper coordinates, element rotation applied
	BBox   geometry.Rect  // unrotated, centred on the port
	Angle  float64        // port angle plus element angle
	Shape  connect.Shape
	Attrs  map[string]any

	Label     layout.LabelTransform
	LabelText string
	LabelAt   geometry.Point // label anchor point in paper coordinates
}

// ElementGeometry is the result of rendering an element.
type ElementGeometry struct {
	BBox    geometry.Rect // unrotated
	Angle   float64
	Outline []geometry.Point // rotated outline in paper coordinates
	Ports   []PortView
	// Label is the label text after wrapping.
	Label string
}

// LinkLabelView is a link label placed along the route.
type LinkLabelView struct {
	Text  string         `json:"text"`
	At    geometry.Point `json:"at"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// LinkGeometry is the result of rendering a link.
type LinkGeometry struct {
	SourceAnchor geometry.Point `json:"sourceAnchor"`
	TargetAnchor geometry.Point `json:"targetAnchor"`
	SourcePoint  geometry.Point `json:"sourcePoint"`
	TargetPoint  geometry.Point `json:"targetPoint"`
	// Route runs from SourcePoint over the router's points to TargetPoint.
	Route []geometry.Point `json:"route"`
	// Path is the connector's drawing of the route; D is its SVG form.
	Path   geometry.Path   `json:"-"`
	D      string          `json:"d"`
	Labels []LinkLabelView `json:"labels,omitempty"`
}

// CellView renders one cell. It is created and owned by a Paper.
type CellView struct {
	cid   string
	cell  *graph.Cell
	paper *Paper

	rendered bool
	mounted  bool
	removed  bool
	nodes    map[string]*Node

	Element ElementGeometry
	Link    LinkGeometry
	// Err is the error of the last update, if any.
	Err error
}

func newCellView(p *Paper, c *graph.Cell) *CellView {
	return &CellView{cid: ids.NewViewCID(), cell: c, paper: p, nodes: map[string]*Node{}}
}

func (v *CellView) CID() string       { return v.cid }
func (v *CellView) Cell() *graph.Cell { return v.cell }
func (v *CellView) IsMounted() bool   { return v.mounted && !v.removed }
func (v *CellView) IsRendered() bool  { return v.rendered }
func (v *CellView) Paper() *Paper     { return v.paper }
func (v *CellView) priority() int     { return priorityOf(v.cell) }

// Notify emits event on the paper with the view attached.
func (v *CellView) Notify(event string, args ...any) {
	v.paper.notify(Event{Type: event, View: v, Args: args})
}

func priorityOf(c *graph.Cell) int {
	if c.IsLink() {
		return LinkPriority
	}
	return ElementPriority
}

// FindNode resolves a selector to a rendered node.
func (v *CellView) FindNode(selector string) highlight.Node {
	if n := v.node(selector); n != nil {
		return n
	}
	return nil
}

func (v *CellView) node(selector string) *Node {
	if v.removed {
		return nil
	}
	if selector == "" {
		selector = SelectorRoot
	}
	return v.nodes[selector]
}

// Node returns the node for selector, nil when there is none.
func (v *CellView) Node(selector string) *Node { return v.node(selector) }

// ConfirmUpdate renders or updates the view.
func (v *CellView) ConfirmUpdate(flags schedule.Flags) schedule.Flags {
	if v.removed {
		return 0
	}
	if v.cell.IsLink() {
		v.Err = v.updateLink()
	} else {
		v.Err = v.updateElement()
	}
	if v.Err != nil {
		applog.ForView(v.paper.log, v.cid, v.cell.ID).Warn("view update failed", slog.Any("err", v.Err))
	}
	if flags&FlagRender != 0 && !v.rendered {
		v.rendered = true
		v.mounted = true
		v.paper.highlighters.Mount(v)
		return 0
	}
	v.paper.highlighters.Update(v, "")
	return 0
}

func (v *CellView) detach() {
	v.removed = true
	v.mounted = false
	for _, n := range v.nodes {
		n.detached = true
	}
}

func (v *CellView) ensureNode(selector string) *Node {
	n, ok := v.nodes[selector]
	if !ok {
		n = newNode(v.cid, selector)
		v.nodes[selector] = n
	}
	return n
}

// pruneNodes drops nodes not in keep.
func (v *CellView) pruneNodes(keep map[string]bool) {
	for sel, n := range v.nodes {
		if !keep[sel] {
			n.detached = true
			delete(v.nodes, sel)
		}
	}
}

func (v *CellView) updateElement() error {
	c := v.cell
	bbox := c.BBox()
	center := bbox.Center()
	g := ElementGeometry{
		BBox:    bbox,
		Angle:   c.Angle,
		Outline: rotateAll(shapeOutline(c.Shape, bbox), center, c.Angle),
	}
	keep := map[string]bool{SelectorRoot: true, SelectorBody: true}
	v.ensureNode(SelectorRoot).setGeometry(rotateAll(rectPoints(bbox), center, c.Angle))
	v.ensureNode(SelectorBody).setGeometry(g.Outline)

	if text, _ := c.AttrString("label", "text"); text != "" {
		size, ok := c.AttrNumber("label", "fontSize")
		if !ok {
			size = 14
		}
		text = v.paper.wrapLabel(c, bbox, text, size)
		g.Label = text
		box := textBox(v.paper.text, center, text, size, "middle", "middle")
		v.ensureNode(SelectorLabel).setGeometry(rectPoints(box))
		keep[SelectorLabel] = true
	}

	metrics, err := c.PortMetrics(v.paper.layouts)
	if err != nil {
		v.Element = g
		v.pruneNodes(keep)
		return err
	}
	for _, m := range metrics {
		local := c.Position.Add(m.Transform.Point())
		pc := local
		if c.Angle != 0 {
			pc = local.Rotate(center, -c.Angle)
		}
		box := geometry.R(local.X-m.Size.Width/2, local.Y-m.Size.Height/2, m.Size.Width, m.Size.Height)
		pv := PortView{
			ID:        m.Port.ID,
			Group:     m.Port.Group,
			Center:    pc,
			BBox:      box,
			Angle:     m.Transform.Angle + c.Angle,
			Shape:     m.Shape,
			Attrs:     m.Attrs,
			Label:     m.Label,
			LabelText: m.LabelText,
			LabelAt:   local.Add(geometry.Pt(m.Label.X, m.Label.Y)).Rotate(center, -c.Angle),
		}
		g.Ports = append(g.Ports, pv)

		sel := PortSelector(pv.ID)
		outline := rotateAll(shapeOutline(m.Shape, box), center, c.Angle)
		if len(outline) == 0 {
			outline = []geometry.Point{pc}
		}
		v.ensureNode(sel).setGeometry(outline)
		keep[sel] = true
	}
	v.Element = g
	v.pruneNodes(keep)
	return nil
}

func (v *CellView) updateLink() error {
	c := v.cell
	reg := v.paper.connect

	src, srcErr := v.paper.endTerminal(c, c.Source)
	tgt, tgtErr := v.paper.endTerminal(c, c.Target)
	if srcErr != nil {
		return srcErr
	}
	if tgtErr != nil {
		return tgtErr
	}

	var lg LinkGeometry
	var err error
	n := len(c.Vertices)

	// source anchor looks at the first vertex, or the target's centre
	srcRef := tgt.center
	if n > 0 {
		srcRef = c.Vertices[0]
	}
	lg.SourceAnchor = src.point
	if src.magnet != nil {
		if lg.SourceAnchor, err = reg.ResolveAnchor(*src.magnet, srcRef, c.Source.Anchor); err != nil {
			return err
		}
	}
	tgtRef := lg.SourceAnchor
	if n > 0 {
		tgtRef = c.Vertices[n-1]
	}
	lg.TargetAnchor = tgt.point
	if tgt.magnet != nil {
		if lg.TargetAnchor, err = reg.ResolveAnchor(*tgt.magnet, tgtRef, c.Target.Anchor); err != nil {
			return err
		}
	}

	srcBox, tgtBox := src.bbox(lg.SourceAnchor), tgt.bbox(lg.TargetAnchor)
	routed, err := v.paper.routes.Route(route.Request{
		Vertices:     c.Vertices,
		SourceAnchor: lg.SourceAnchor,
		TargetAnchor: lg.TargetAnchor,
		SourceBBox:   srcBox,
		TargetBBox:   tgtBox,
		SourceID:     c.Source.ID,
		TargetID:     c.Target.ID,
		Obstacles:    v.paper.obstacles(c),
	}, c.Router)
	if err != nil {
		return err
	}
	m := len(routed)

	// connection points look at the first and last route point
	srcLineRef := lg.TargetAnchor
	if m > 0 {
		srcLineRef = routed[0]
	}
	lg.SourcePoint = lg.SourceAnchor
	if src.magnet != nil {
		if lg.SourcePoint, err = reg.ResolveConnectionPoint(*src.magnet, srcLineRef, lg.SourceAnchor, c.Source.ConnectionPoint); err != nil {
			return err
		}
	}
	tgtLineRef := lg.SourceAnchor
	if m > 0 {
		tgtLineRef = routed[m-1]
	}
	lg.TargetPoint = lg.TargetAnchor
	if tgt.magnet != nil {
		if lg.TargetPoint, err = reg.ResolveConnectionPoint(*tgt.magnet, tgtLineRef, lg.TargetAnchor, c.Target.ConnectionPoint); err != nil {
			return err
		}
	}

	lg.Route = append([]geometry.Point{lg.SourcePoint}, routed...)
	lg.Route = append(lg.Route, lg.TargetPoint)

	lg.Path, err = v.paper.routes.Connect(route.Connection{
		SourcePoint: lg.SourcePoint,
		TargetPoint: lg.TargetPoint,
		Route:       routed,
		SourceBBox:  srcBox,
		TargetBBox:  tgtBox,
		Crossings:   v.paper.crossings(c),
	}, c.Connector)
	if err != nil {
		return err
	}
	lg.D = lg.Path.D()
	outline := pathPoints(lg.Path)
	if len(outline) == 0 {
		outline = lg.Route
	}
	line := geometry.NewPolyline(outline...)

	keep := map[string]bool{SelectorRoot: true, SelectorBody: true}
	v.ensureNode(SelectorRoot).setGeometry(rectPoints(line.BBox()))
	v.ensureNode(SelectorBody).setGeometry(outline)

	for i, l := range c.Labels {
		at := labelPoint(line, l.Position)
		lv := LinkLabelView{Text: l.Text(), At: at, Attrs: l.Attrs}
		lg.Labels = append(lg.Labels, lv)
		size := 14.0
		if s, ok := l.Attrs["text"].(map[string]any); ok {
			if f, ok := s["fontSize"].(float64); ok {
				size = f
			}
		}
		sel := LinkLabelSelector(i)
		v.ensureNode(sel).setGeometry(rectPoints(textBox(v.paper.text, at, lv.Text, size, "middle", "middle")))
		keep[sel] = true
	}
	if len(c.Labels) > 0 {
		v.nodes[SelectorLabel] = v.nodes[LinkLabelSelector(0)]
		keep[SelectorLabel] = true
	}
	v.Link = lg
	v.pruneNodes(keep)
	return nil
}

// pathPoints flattens every subpath of p into one run of points.
func pathPoints(p geometry.Path) []geometry.Point {
	var out []geometry.Point
	for _, sp := range p.Subpaths() {
		out = append(out, sp.Points...)
	}
	return out
}

// obstacles are the element boxes a router may avoid: every element except
// the ancestors of the link ends.
func (p *Paper) obstacles(link *graph.Cell) []route.Obstacle {
	skip := map[string]bool{}
	for _, e := range []graph.Endpoint{link.Source, link.Target} {
		if end := p.graph.Cell(e.ID); e.IsCell() && end != nil {
			for _, a := range end.Ancestors() {
				skip[a.ID] = true
			}
		}
	}
	var out []route.Obstacle
	for _, el := range p.graph.Elements() {
		if skip[el.ID] {
			continue
		}
		out = append(out, route.Obstacle{ID: el.ID, Type: el.Type, BBox: el.BBox()})
	}
	return out
}

// crossings are the routes a jumpover link bridges: links drawn by smooth
// are never jumped, and of the links after this one only those that do not
// jump themselves.
func (p *Paper) crossings(link *graph.Cell) [][]geometry.Point {
	if p.connectorName(link) != "jumpover" {
		return nil
	}
	var out [][]geometry.Point
	after := false
	for _, l := range p.graph.Links() {
		if l == link {
			after = true
			continue
		}
		name := p.connectorName(l)
		if name == "smooth" || (after && name == "jumpover") {
			continue
		}
		if lv := p.views[l.ID]; lv != nil && len(lv.Link.Route) > 1 {
			out = append(out, lv.Link.Route)
		}
	}
	return out
}

func (p *Paper) connectorName(link *graph.Cell) string {
	if link.Connector != nil && link.Connector.Name != "" {
		return link.Connector.Name
	}
	return p.routes.DefaultConnector.Name
}

// terminal is what a link end attaches to: a magnet, or a fixed point.
type terminal struct {
	magnet *connect.Magnet
	point  geometry.Point
	center geometry.Point
}

// bbox is the rotated magnet box, or an empty box at the anchor of a free end.
func (t terminal) bbox(anchor geometry.Point) geometry.Rect {
	if t.magnet == nil {
		return geometry.Rect{X: anchor.X, Y: anchor.Y}
	}
	m := t.magnet
	if m.Angle == 0 {
		return m.BBox
	}
	return geometry.BoundingRect(rotateAll(rectPoints(m.BBox), m.Origin, m.Angle))
}

func (p *Paper) endTerminal(link *graph.Cell, e graph.Endpoint) (terminal, error) {
	if !e.IsCell() {
		return terminal{point: e.Point, center: e.Point}, nil
	}
	other := p.graph.Cell(e.ID)
	if other == nil {
		return terminal{point: e.Point, center: e.Point}, nil
	}
	if other.IsLink() {
		var mid geometry.Point
		if ov := p.views[other.ID]; ov != nil && len(ov.Link.Route) > 0 {
			mid = geometry.NewPolyline(ov.Link.Route...).PointAt(0.5)
		} else {
			mid = geometry.NewPolyline(other.Points()...).PointAt(0.5)
		}
		return terminal{point: mid, center: mid}, nil
	}
	if e.Port != "" {
		m, err := other.PortMagnet(e.Port)
		if err != nil {
			return terminal{}, err
		}
		return terminal{magnet: &m, center: m.Center()}, nil
	}
	m := other.Magnet()
	return terminal{magnet: &m, center: m.Center()}, nil
}

// labelPoint places a label: distances in (0, 1] are ratios of the route
// length, negative ones are measured from the end. Offset moves the label to
// the right of the route direction.
func labelPoint(route geometry.Polyline, pos graph.LinkLabelPosition) geometry.Point {
	length := route.Length()
	d := pos.Distance
	switch {
	case d > 0 && d <= 1:
		d *= length
	case d < 0:
		d = length + d
	}
	d = min(max(d, 0), length)
	at := route.PointAtLength(d)
	if pos.Offset == 0 || length == 0 {
		return at
	}
	a := route.PointAtLength(max(d-1, 0))
	b := route.PointAtLength(min(d+1, length))
	dir := b.Difference(a)
	if dir.Magnitude() == 0 {
		return at
	}
	normal := geometry.Pt(-dir.Y, dir.X).Normalize(pos.Offset)
	return at.Add(normal)
}

func rectPoints(r geometry.Rect) []geometry.Point {
	return []geometry.Point{r.Origin(), r.TopRight(), r.Corner(), r.BottomLeft()}
}

func rotateAll(pts []geometry.Point, origin geometry.Point, angle float64) []geometry.Point {
	if angle == 0 {
		return pts
	}
	out := make([]geometry.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Rotate(origin, -angle)
	}
	return out
}

// shapeOutline returns the polygon of a shape inside bbox; ellipses are
// sampled.
func shapeOutline(s connect.Shape, bbox geometry.Rect) []geometry.Point {
	if s.Kind != connect.ShapeEllipse {
		return s.Vertices(bbox)
	}
	c := bbox.Center()
	rx, ry := bbox.Width/2, bbox.Height/2
	out := make([]geometry.Point, ellipseSegments)
	for i := range out {
		t := 2 * math.Pi * float64(i) / ellipseSegments
		out[i] = geometry.Pt(c.X+rx*math.Cos(t), c.Y+ry*math.Sin(t))
	}
	return out
}

// textBox is the box of text anchored at p.
func textBox(m textlayout.Measurer, p geometry.Point, text string, fontSize float64, anchor, baseline string) geometry.Rect {
	w, h := textlayout.Box(m, text, fontSize)
	x := p.X - w/2
	switch anchor {
	case layout.AnchorStart:
		x = p.X
	case layout.AnchorEnd:
		x = p.X - w
	}
	y := p.Y - h/2
	if baseline == "top" {
		y = p.Y
	}
	return geometry.R(x, y, w, h)
}

// wrapLabel applies label/textWrap. Width and height are absolute when
// positive and relative to the element size when negative; a missing
// height does not limit the lines.
func (p *Paper) wrapLabel(c *graph.Cell, bbox geometry.Rect, text string, size float64) string {
	ww, ok := c.AttrNumber("label", "textWrap", "width")
	if !ok {
		return text
	}
	if ww < 0 {
		ww += bbox.Width
	}
	hh, _ := c.AttrNumber("label", "textWrap", "height")
	if hh < 0 {
		hh += bbox.Height
	}
	if ww <= 0 {
		return ""
	}
	return strings.Join(textlayout.Wrap(p.text, text, size, ww, hh), "\n")
}
