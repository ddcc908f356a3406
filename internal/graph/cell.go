/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graph

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/clientIO/joint-sub027/internal/connect"
	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/ids"
	"github.com/clientIO/joint-sub027/internal/layout"
	"github.com/clientIO/joint-sub027/internal/route"
)

// Kind tells elements and links apart.
type Kind uint8

const (
	KindElement Kind = iota
	KindLink
)

func (k Kind) String() string {
	if k == KindLink {
		return "link"
	}
	return "element"
}

// Size is the width and height of an element.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Attributes is a flat attribute bag as found in graph JSON.
type Attributes map[string]any

// Cell is an element or a link of a graph.
//
// Fields may be read directly. Mutations go through the setters so the owning
// graph can keep its order and indexes current and notify subscribers.
type Cell struct {
	ID   string
	Type string
	Kind Kind
	Z    float64

	// Element attributes.
	Position geometry.Point
	Size     Size
	Angle    float64
	Shape    connect.Shape
	Ports    Ports

	// Link attributes.
	Source   Endpoint
	Target   Endpoint
	Vertices []geometry.Point
	Labels   []LinkLabel
	// Router and Connector override the paper defaults when set.
	Router    *route.RouterSpec
	Connector *route.ConnectorSpec

	Attrs  map[string]any
	Parent string
	Embeds []string

	// Extra keeps attributes this package does not interpret, so they
	// survive a JSON round trip.
	Extra map[string]json.RawMessage

	hasZ  bool
	seq   uint64
	graph *Graph
}

// NewElement returns an element of type typ with a 1x1 size.
func NewElement(typ string, shape connect.Shape, attrs map[string]any) *Cell {
	return &Cell{Type: typ, Kind: KindElement, Size: Size{Width: 1, Height: 1}, Shape: shape, Attrs: attrs}
}

// NewLink returns a link of type typ with both ends at the origin.
func NewLink(typ string, attrs map[string]any) *Cell {
	return &Cell{Type: typ, Kind: KindLink, Attrs: attrs}
}

func (c *Cell) IsElement() bool { return c.Kind == KindElement }
func (c *Cell) IsLink() bool    { return c.Kind == KindLink }

// Graph returns the graph the cell belongs to, or nil.
func (c *Cell) Graph() *Graph { return c.graph }

// HasZ reports whether z was set explicitly or by a graph.
func (c *Cell) HasZ() bool { return c.hasZ }

func (c *Cell) String() string { return c.Type + "#" + c.ID }

var defaultLayouts = layout.NewRegistry()

func (c *Cell) layouts() *layout.Registry {
	if c.graph != nil && c.graph.layouts != nil {
		return c.graph.layouts
	}
	return defaultLayouts
}

// changed reports a mutation to the owning graph.
func (c *Cell) changed(attr string, prev, value any) {
	if c.graph != nil {
		c.graph.cellChanged(c, attr, prev, value)
	}
}

// BBox is the unrotated bounding box. For links it spans the source point,
// the vertices and the target point.
func (c *Cell) BBox() geometry.Rect {
	if c.IsLink() {
		return geometry.BoundingRect(c.Points())
	}
	return geometry.R(c.Position.X, c.Position.Y, c.Size.Width, c.Size.Height)
}

// RotatedBBox is the bounding box of the rotated element.
func (c *Cell) RotatedBBox() geometry.Rect {
	b := c.BBox()
	if c.IsLink() || c.Angle == 0 {
		return b
	}
	return b.RotateAroundCenter(c.Angle)
}

func (c *Cell) Center() geometry.Point { return c.BBox().Center() }

// StrokeWidth reads the stroke width of the body (elements) or line (links).
func (c *Cell) StrokeWidth() float64 {
	part := "body"
	if c.IsLink() {
		part = "line"
	}
	w, _ := attrNumber(c.Attrs, part, "strokeWidth")
	return w
}

// Magnet is the element body as a link end target.
func (c *Cell) Magnet() connect.Magnet {
	m := connect.ElementMagnet(c.BBox(), c.Angle, c.Shape)
	m.StrokeWidth = c.StrokeWidth()
	return m
}

const maxLinkDepth = 8

// Points returns source point, vertices and target point of a link.
func (c *Cell) Points() []geometry.Point { return c.points(0) }

func (c *Cell) points(depth int) []geometry.Point {
	out := make([]geometry.Point, 0, len(c.Vertices)+2)
	out = append(out, c.endPoint(c.Source, depth))
	out = append(out, c.Vertices...)
	return append(out, c.endPoint(c.Target, depth))
}

func (c *Cell) SourcePoint() geometry.Point { return c.endPoint(c.Source, 0) }
func (c *Cell) TargetPoint() geometry.Point { return c.endPoint(c.Target, 0) }

// endPoint resolves an end without anchors: the port centre, the element
// centre, the middle of a link or the free point.
func (c *Cell) endPoint(e Endpoint, depth int) geometry.Point {
	if !e.IsCell() || c.graph == nil {
		return e.Point
	}
	other := c.graph.Cell(e.ID)
	if other == nil {
		return e.Point
	}
	if other.IsLink() {
		if depth >= maxLinkDepth {
			return e.Point
		}
		return geometry.NewPolyline(other.points(depth + 1)...).PointAt(0.5)
	}
	if e.Port != "" {
		if p, err := other.PortCenter(e.Port); err == nil {
			return p
		}
	}
	return other.Center()
}

// SourceCell returns the cell the source end refers to.
func (c *Cell) SourceCell() *Cell { return c.endCell(c.Source) }
func (c *Cell) TargetCell() *Cell { return c.endCell(c.Target) }

func (c *Cell) endCell(e Endpoint) *Cell {
	if !e.IsCell() || c.graph == nil {
		return nil
	}
	return c.graph.Cell(e.ID)
}

// HasLoop reports a link whose ends refer to the same cell. With deep an end
// embedded in the other also counts.
func (c *Cell) HasLoop(deep bool) bool {
	if !c.Source.IsCell() || !c.Target.IsCell() {
		return false
	}
	if c.Source.ID == c.Target.ID {
		return true
	}
	if !deep || c.graph == nil {
		return false
	}
	s, t := c.SourceCell(), c.TargetCell()
	if s == nil || t == nil {
		return false
	}
	return s.IsEmbeddedIn(t, true) || t.IsEmbeddedIn(s, true)
}

func (c *Cell) SetPosition(x, y float64) {
	prev := c.Position
	if prev.X == x && prev.Y == y {
		return
	}
	c.Position = geometry.Pt(x, y)
	c.changed("position", prev, c.Position)
}

func (c *Cell) Resize(width, height float64) {
	prev := c.Size
	next := Size{Width: width, Height: height}
	if prev == next {
		return
	}
	c.Size = next
	c.changed("size", prev, next)
}

// Rotate sets the angle (absolute) or adds to it, normalised to [0, 360).
func (c *Cell) Rotate(angle float64, absolute bool) {
	prev := c.Angle
	if !absolute {
		angle += prev
	}
	angle = geometry.NormalizeAngle(angle)
	if angle == 360 {
		angle = 0
	}
	if angle == prev {
		return
	}
	c.Angle = angle
	c.changed("angle", prev, angle)
}

func (c *Cell) SetShape(s connect.Shape) {
	prev := c.Shape
	c.Shape = s
	c.changed("shape", prev, s)
}

func (c *Cell) SetZ(z float64) {
	prev, had := c.Z, c.hasZ
	c.Z, c.hasZ = z, true
	if had && prev == z {
		return
	}
	c.changed("z", prev, z)
}

func (c *Cell) SetSource(e Endpoint) {
	prev := c.Source
	c.Source = e
	c.changed("source", prev, e)
}

func (c *Cell) SetTarget(e Endpoint) {
	prev := c.Target
	c.Target = e
	c.changed("target", prev, e)
}

func (c *Cell) SetVertices(v []geometry.Point) {
	prev := c.Vertices
	c.Vertices = slices.Clone(v)
	c.changed("vertices", prev, c.Vertices)
}

func (c *Cell) SetRouter(r *route.RouterSpec) {
	prev := c.Router
	c.Router = r.Clone()
	c.changed("router", prev, c.Router)
}

func (c *Cell) SetConnector(k *route.ConnectorSpec) {
	prev := c.Connector
	c.Connector = k.Clone()
	c.changed("connector", prev, c.Connector)
}

func (c *Cell) SetLabels(labels []LinkLabel) {
	prev := c.Labels
	c.Labels = slices.Clone(labels)
	c.changed("labels", prev, c.Labels)
}

// SetAttr sets a presentation attribute by slash path, e.g. "body/fill".
func (c *Cell) SetAttr(path string, value any) {
	prev := cloneAttrs(c.Attrs)
	if c.Attrs == nil {
		c.Attrs = map[string]any{}
	}
	keys := strings.Split(path, "/")
	m := c.Attrs
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
	c.changed("attrs", prev, c.Attrs)
}

// Set assigns an attribute by its JSON name. Unknown names land in Extra.
func (c *Cell) Set(attr string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("graph: set %q: %w", attr, err)
	}
	decode := func(dst any) error {
		if err := json.Unmarshal(b, dst); err != nil {
			return fmt.Errorf("graph: set %q: %w", attr, err)
		}
		return nil
	}
	switch attr {
	case "position":
		var p geometry.Point
		if err := decode(&p); err != nil {
			return err
		}
		c.SetPosition(p.X, p.Y)
	case "size":
		var s Size
		if err := decode(&s); err != nil {
			return err
		}
		c.Resize(s.Width, s.Height)
	case "angle":
		var a float64
		if err := decode(&a); err != nil {
			return err
		}
		c.Rotate(a, true)
	case "z":
		var z float64
		if err := decode(&z); err != nil {
			return err
		}
		c.SetZ(z)
	case "shape":
		var s connect.Shape
		if err := decode(&s); err != nil {
			return err
		}
		c.SetShape(s)
	case "source", "target":
		var e Endpoint
		if err := decode(&e); err != nil {
			return err
		}
		if attr == "source" {
			c.SetSource(e)
		} else {
			c.SetTarget(e)
		}
	case "vertices":
		var v []geometry.Point
		if err := decode(&v); err != nil {
			return err
		}
		c.SetVertices(v)
	case "router":
		var r *route.RouterSpec
		if err := decode(&r); err != nil {
			return err
		}
		c.SetRouter(r)
	case "connector":
		var k *route.ConnectorSpec
		if err := decode(&k); err != nil {
			return err
		}
		c.SetConnector(k)
	case "labels":
		var l []LinkLabel
		if err := decode(&l); err != nil {
			return err
		}
		c.SetLabels(l)
	case "attrs":
		var a map[string]any
		if err := decode(&a); err != nil {
			return err
		}
		prev := c.Attrs
		c.Attrs = a
		c.changed("attrs", prev, a)
	case "type", "id", "parent", "embeds", "ports":
		return fmt.Errorf("graph: attribute %q cannot be set directly", attr)
	default:
		if c.Extra == nil {
			c.Extra = map[string]json.RawMessage{}
		}
		prev := c.Extra[attr]
		c.Extra[attr] = b
		c.changed(attr, prev, json.RawMessage(b))
	}
	return nil
}

// Get returns the JSON encoding of one attribute, or nil when absent.
func (c *Cell) Get(attr string) json.RawMessage {
	v, ok := c.attributes()[attr]
	if !ok {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// Translate moves the cell and everything embedded in it. Links move their
// vertices and free ends.
func (c *Cell) Translate(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	if c.IsLink() {
		if !c.Source.IsCell() {
			s := c.Source
			s.Point = s.Point.Offset(dx, dy)
			c.SetSource(s)
		}
		if !c.Target.IsCell() {
			t := c.Target
			t.Point = t.Point.Offset(dx, dy)
			c.SetTarget(t)
		}
		if len(c.Vertices) > 0 {
			c.SetVertices(geometry.NewPolyline(c.Vertices...).Translate(dx, dy).Points)
		}
	} else {
		c.SetPosition(c.Position.X+dx, c.Position.Y+dy)
	}
	for _, e := range c.EmbeddedCells(EmbedOptions{}) {
		e.Translate(dx, dy)
	}
}

// Scale scales the cell geometry relative to origin.
func (c *Cell) Scale(sx, sy float64, origin geometry.Point) {
	if c.IsLink() {
		if !c.Source.IsCell() {
			s := c.Source
			s.Point = s.Point.Scale(sx, sy, origin)
			c.SetSource(s)
		}
		if !c.Target.IsCell() {
			t := c.Target
			t.Point = t.Point.Scale(sx, sy, origin)
			c.SetTarget(t)
		}
		if len(c.Vertices) > 0 {
			c.SetVertices(geometry.NewPolyline(c.Vertices...).Scale(sx, sy, origin).Points)
		}
		return
	}
	b := c.BBox().Scale(sx, sy, origin)
	c.withBatch("scale", func() {
		c.SetPosition(b.X, b.Y)
		c.Resize(b.Width, b.Height)
	})
}

// Remove takes the cell out of its graph together with its embeds and
// connected links.
func (c *Cell) Remove(opt RemoveOptions) {
	if c.graph != nil {
		c.graph.removeCell(c, opt)
	}
}

// Clone copies the cell under a new id, without parent and embeds.
func (c *Cell) Clone() *Cell {
	out := &Cell{
		ID:       ids.NewCellID(),
		Type:     c.Type,
		Kind:     c.Kind,
		Z:        c.Z,
		Position: c.Position,
		Size:     c.Size,
		Angle:    c.Angle,
		Shape:    connect.Shape{Kind: c.Shape.Kind, Points: slices.Clone(c.Shape.Points)},
		Ports:    c.Ports.clone(),
		Source:   c.Source.clone(),
		Target:   c.Target.clone(),
		Vertices: slices.Clone(c.Vertices),
		Attrs:    cloneAttrs(c.Attrs),
		hasZ:     c.hasZ,
	}
	out.Router = c.Router.Clone()
	out.Connector = c.Connector.Clone()
	for _, l := range c.Labels {
		out.Labels = append(out.Labels, LinkLabel{Position: l.Position, Attrs: cloneAttrs(l.Attrs)})
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = slices.Clone(v)
		}
	}
	return out
}

func (c *Cell) withBatch(name string, fn func()) {
	if c.graph == nil {
		fn()
		return
	}
	c.graph.StartBatch(name)
	fn()
	c.graph.StopBatch(name)
}

var cellFields = []string{
	"type", "id", "z", "position", "size", "angle", "shape", "ports",
	"source", "target", "vertices", "router", "connector", "labels", "attrs",
	"parent", "embeds",
}

// attributes flattens the cell into its JSON attribute bag.
func (c *Cell) attributes() map[string]any {
	out := make(map[string]any, len(c.Extra)+len(cellFields))
	maps.Copy(out, rawAny(c.Extra))
	out["type"] = c.Type
	out["id"] = c.ID
	if c.hasZ {
		out["z"] = c.Z
	}
	if c.IsLink() {
		out["source"] = c.Source
		out["target"] = c.Target
		if len(c.Vertices) > 0 {
			out["vertices"] = c.Vertices
		}
		if len(c.Labels) > 0 {
			out["labels"] = c.Labels
		}
		if c.Router != nil {
			out["router"] = c.Router
		}
		if c.Connector != nil {
			out["connector"] = c.Connector
		}
	} else {
		out["position"] = c.Position
		out["size"] = c.Size
		out["angle"] = c.Angle
		out["shape"] = c.Shape
		if len(c.Ports.Groups) > 0 || len(c.Ports.Items) > 0 {
			out["ports"] = c.Ports
		}
	}
	if len(c.Attrs) > 0 {
		out["attrs"] = c.Attrs
	}
	if c.Parent != "" {
		out["parent"] = c.Parent
	}
	if len(c.Embeds) > 0 {
		out["embeds"] = c.Embeds
	}
	return out
}

func rawAny(m map[string]json.RawMessage) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c *Cell) MarshalJSON() ([]byte, error) { return json.Marshal(c.attributes()) }

// UnmarshalJSON overlays a JSON attribute bag on the cell. Presentation
// attributes are merged deeply into the existing ones so factory defaults
// survive.
func (c *Cell) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("graph: cell: %w", err)
	}
	fields := map[string]any{
		"type": &c.Type, "id": &c.ID, "z": &c.Z,
		"position": &c.Position, "size": &c.Size, "angle": &c.Angle,
		"shape": &c.Shape, "ports": &c.Ports,
		"source": &c.Source, "target": &c.Target,
		"vertices": &c.Vertices, "labels": &c.Labels,
		"router": &c.Router, "connector": &c.Connector,
		"parent": &c.Parent, "embeds": &c.Embeds,
	}
	for k, v := range raw {
		if k == "attrs" {
			var attrs map[string]any
			if err := json.Unmarshal(v, &attrs); err != nil {
				return fmt.Errorf("graph: cell attribute %q: %w", k, err)
			}
			c.Attrs = mergeAttrs(c.Attrs, attrs)
			continue
		}
		dst, ok := fields[k]
		if !ok {
			if c.Extra == nil {
				c.Extra = map[string]json.RawMessage{}
			}
			c.Extra[k] = slices.Clone(v)
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("graph: cell attribute %q: %w", k, err)
		}
	}
	if _, ok := raw["z"]; ok {
		c.hasZ = true
	}
	return nil
}

// Endpoint is one end of a link: a cell (optionally a port of it) or a free
// point.
type Endpoint struct {
	ID              string
	Port            string
	Point           geometry.Point
	Anchor          *connect.AnchorSpec
	ConnectionPoint *connect.ConnectionPointSpec
}

// clone copies e without sharing its anchor or connection point specs.
func (e Endpoint) clone() Endpoint {
	if e.Anchor != nil {
		a := *e.Anchor
		e.Anchor = &a
	}
	if e.ConnectionPoint != nil {
		cp := *e.ConnectionPoint
		if cp.Args.Insideout != nil {
			v := *cp.Args.Insideout
			cp.Args.Insideout = &v
		}
		e.ConnectionPoint = &cp
	}
	return e
}

func CellEnd(id string) Endpoint         { return Endpoint{ID: id} }
func PortEnd(id, port string) Endpoint   { return Endpoint{ID: id, Port: port} }
func PointEnd(x, y float64) Endpoint     { return Endpoint{Point: geometry.Pt(x, y)} }
func (e Endpoint) IsCell() bool          { return e.ID != "" }
func (e Endpoint) IsPort(id string) bool { return e.ID == id && e.Port != "" }

type endpointJSON struct {
	ID              string                       `json:"id,omitempty"`
	Port            string                       `json:"port,omitempty"`
	X               *float64                     `json:"x,omitempty"`
	Y               *float64                     `json:"y,omitempty"`
	Anchor          *connect.AnchorSpec          `json:"anchor,omitempty"`
	ConnectionPoint *connect.ConnectionPointSpec `json:"connectionPoint,omitempty"`
}

// MarshalJSON writes {id, port} for cell ends and {x, y} for points.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	out := endpointJSON{ID: e.ID, Port: e.Port, Anchor: e.Anchor, ConnectionPoint: e.ConnectionPoint}
	if e.ID == "" {
		x, y := e.Point.X, e.Point.Y
		out.X, out.Y = &x, &y
	}
	return json.Marshal(out)
}

func (e *Endpoint) UnmarshalJSON(b []byte) error {
	var raw endpointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("graph: link end: %w", err)
	}
	*e = Endpoint{ID: raw.ID, Port: raw.Port, Anchor: raw.Anchor, ConnectionPoint: raw.ConnectionPoint}
	if raw.X != nil {
		e.Point.X = *raw.X
	}
	if raw.Y != nil {
		e.Point.Y = *raw.Y
	}
	return nil
}

// LinkLabelPosition places a label along a link. Distances in (0, 1] are
// ratios of the link length, larger ones absolute lengths from the source and
// negative ones lengths from the target. Offset moves the label sideways.
type LinkLabelPosition struct {
	Distance float64 `json:"distance"`
	Offset   float64 `json:"offset,omitempty"`
}

func (p *LinkLabelPosition) UnmarshalJSON(b []byte) error {
	var d float64
	if err := json.Unmarshal(b, &d); err == nil {
		*p = LinkLabelPosition{Distance: d}
		return nil
	}
	type plain LinkLabelPosition
	return json.Unmarshal(b, (*plain)(p))
}

type LinkLabel struct {
	Position LinkLabelPosition `json:"position"`
	Attrs    map[string]any    `json:"attrs,omitempty"`
}

// Text returns attrs.text.text, the label string.
func (l LinkLabel) Text() string {
	t, _ := attrString(l.Attrs, "text", "text")
	return t
}

func attrValue(attrs map[string]any, path ...string) (any, bool) {
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

func attrNumber(attrs map[string]any, path ...string) (float64, bool) {
	v, ok := attrValue(attrs, path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func attrString(attrs map[string]any, path ...string) (string, bool) {
	v, ok := attrValue(attrs, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AttrString reads a string presentation attribute by path.
func (c *Cell) AttrString(path ...string) (string, bool) { return attrString(c.Attrs, path...) }

// AttrNumber reads a numeric presentation attribute by path.
func (c *Cell) AttrNumber(path ...string) (float64, bool) { return attrNumber(c.Attrs, path...) }

func cloneAttrs(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAttrs(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// mergeAttrs merges src into a copy of dst; nested objects merge, everything
// else is replaced.
func mergeAttrs(dst, src map[string]any) map[string]any {
	out := cloneAttrs(dst)
	if out == nil {
		out = make(map[string]any, len(src))
	}
	for k, v := range src {
		sm, sok := v.(map[string]any)
		dm, dok := out[k].(map[string]any)
		if sok && dok {
			out[k] = mergeAttrs(dm, sm)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}
