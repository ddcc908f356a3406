/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/clientIO/joint-sub027/internal/connect"
	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/ids"
	"github.com/clientIO/joint-sub027/internal/layout"
)

// GroupArgs are the layout arguments of a port group: per-port defaults
// plus the group level options, flattened into one JSON object.
type GroupArgs struct {
	layout.PortArgs
	layout.Options
}

// PortPosition names the port layout of a group.
type PortPosition struct {
	Name string    `json:"name,omitempty"`
	Args GroupArgs `json:"args,omitzero"`
}

// PortLabelPosition names the label layout of a group or port.
type PortLabelPosition struct {
	Name string              `json:"name,omitempty"`
	Args layout.LabelOptions `json:"args,omitzero"`
}

type PortLabel struct {
	Position PortLabelPosition `json:"position,omitzero"`
	Text     string            `json:"text,omitempty"`
}

// PortGroup holds the defaults shared by the ports of a group.
type PortGroup struct {
	Position PortPosition   `json:"position,omitzero"`
	Label    PortLabel      `json:"label,omitzero"`
	Size     Size           `json:"size,omitzero"`
	Shape    *connect.Shape `json:"shape,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// Port is one port item. Args override the group's position args.
type Port struct {
	ID    string          `json:"id"`
	Group string          `json:"group,omitempty"`
	Args  layout.PortArgs `json:"args,omitzero"`
	Label *PortLabel      `json:"label,omitempty"`
	Size  *Size           `json:"size,omitempty"`
	Shape *connect.Shape  `json:"shape,omitempty"`
	Attrs map[string]any  `json:"attrs,omitempty"`
}

type Ports struct {
	Groups map[string]PortGroup `json:"groups,omitempty"`
	Items  []Port               `json:"items,omitempty"`
}

func (p Ports) clone() Ports {
	out := Ports{Items: make([]Port, 0, len(p.Items))}
	if p.Groups != nil {
		out.Groups = make(map[string]PortGroup, len(p.Groups))
		for name, g := range p.Groups {
			g.Attrs = cloneAttrs(g.Attrs)
			out.Groups[name] = g
		}
	}
	for _, port := range p.Items {
		port.Attrs = cloneAttrs(port.Attrs)
		if port.Label != nil {
			l := *port.Label
			port.Label = &l
		}
		out.Items = append(out.Items, port)
	}
	if len(out.Items) == 0 {
		out.Items = nil
	}
	return out
}

func (p Ports) index(id string) int {
	return slices.IndexFunc(p.Items, func(port Port) bool { return port.ID == id })
}

// PortMetric is a port placed by its group layout, relative to the element
// origin, with its label placement.
type PortMetric struct {
	Port      Port
	Index     int // position within the group
	Transform layout.Transform
	Label     layout.LabelTransform
	LabelText string
	Size      Size
	Shape     connect.Shape
	Attrs     map[string]any
}

func (c *Cell) HasPort(id string) bool { return c.Ports.index(id) >= 0 }

func (c *Cell) Port(id string) (Port, bool) {
	i := c.Ports.index(id)
	if i < 0 {
		return Port{}, false
	}
	return c.Ports.Items[i], true
}

func (c *Cell) PortsByGroup(group string) []Port {
	var out []Port
	for _, p := range c.Ports.Items {
		if p.Group == group {
			out = append(out, p)
		}
	}
	return out
}

// AddPort appends a port. A port without id gets a generated one.
func (c *Cell) AddPort(p Port) error { return c.InsertPort(len(c.Ports.Items), p) }

func (c *Cell) AddPorts(ports ...Port) error {
	for _, p := range ports {
		if err := c.AddPort(p); err != nil {
			return err
		}
	}
	return nil
}

// InsertPort inserts a port before index.
func (c *Cell) InsertPort(index int, p Port) error {
	if p.ID == "" {
		p.ID = ids.NewCellID()
	}
	if c.HasPort(p.ID) {
		return fmt.Errorf("%w: %s on %s", ErrDuplicatePort, p.ID, c.ID)
	}
	index = max(0, min(index, len(c.Ports.Items)))
	prev := c.Ports.clone()
	c.Ports.Items = slices.Insert(c.Ports.Items, index, p)
	c.changed("ports", prev, c.Ports)
	return nil
}

// RemovePort drops a port and removes the links attached to it.
func (c *Cell) RemovePort(id string) error {
	i := c.Ports.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s on %s", ErrUnknownPort, id, c.ID)
	}
	prev := c.Ports.clone()
	c.Ports.Items = slices.Delete(c.Ports.Items, i, i+1)
	if g := c.graph; g != nil {
		g.StartBatch("port-remove")
		for _, l := range g.ConnectedLinks(c, LinkOptions{}) {
			if l.Source.IsPort(c.ID) && l.Source.Port == id || l.Target.IsPort(c.ID) && l.Target.Port == id {
				g.removeCell(l, RemoveOptions{})
			}
		}
		c.changed("ports", prev, c.Ports)
		g.StopBatch("port-remove")
		return nil
	}
	c.changed("ports", prev, c.Ports)
	return nil
}

// SetPortGroup defines or replaces a port group.
func (c *Cell) SetPortGroup(name string, group PortGroup) {
	prev := c.Ports.clone()
	if c.Ports.Groups == nil {
		c.Ports.Groups = map[string]PortGroup{}
	} else {
		c.Ports.Groups = maps.Clone(c.Ports.Groups)
	}
	c.Ports.Groups[name] = group
	c.changed("ports", prev, c.Ports)
}

// ensurePortIDs gives ids to ports loaded without one.
func (c *Cell) ensurePortIDs() {
	for i := range c.Ports.Items {
		if c.Ports.Items[i].ID == "" {
			c.Ports.Items[i].ID = ids.NewCellID()
		}
	}
}

// PortMetrics lays out all ports, group by group, with reg (the graph's
// layout registry when nil). The result follows the item order.
func (c *Cell) PortMetrics(reg *layout.Registry) ([]PortMetric, error) {
	if reg == nil {
		reg = c.layouts()
	}
	bbox := geometry.R(0, 0, c.Size.Width, c.Size.Height)

	var order []string
	members := map[string][]int{}
	for i, p := range c.Ports.Items {
		if _, ok := members[p.Group]; !ok {
			order = append(order, p.Group)
		}
		members[p.Group] = append(members[p.Group], i)
	}

	out := make([]PortMetric, len(c.Ports.Items))
	for _, name := range order {
		idx := members[name]
		group := c.Ports.Groups[name]
		args := make([]layout.PortArgs, len(idx))
		for j, i := range idx {
			args[j] = mergePortArgs(group.Position.Args.PortArgs, c.Ports.Items[i].Args)
		}
		ts, err := reg.LayoutPorts(group.Position.Name, args, bbox, group.Position.Args.Options)
		if err != nil {
			return nil, fmt.Errorf("graph: ports of %s, group %q: %w", c.ID, name, err)
		}
		for j, i := range idx {
			p := c.Ports.Items[i]
			var t layout.Transform
			if j < len(ts) {
				t = ts[j]
			}
			labelName, labelOpt, text := group.Label.Position.Name, group.Label.Position.Args, group.Label.Text
			if p.Label != nil {
				if p.Label.Position.Name != "" {
					labelName = p.Label.Position.Name
				}
				labelOpt = mergeLabelOptions(labelOpt, p.Label.Position.Args)
				if p.Label.Text != "" {
					text = p.Label.Text
				}
			}
			lt, err := reg.LayoutLabel(labelName, t.Point(), bbox, labelOpt)
			if err != nil {
				return nil, fmt.Errorf("graph: port %s label: %w", p.ID, err)
			}
			m := PortMetric{
				Port:      p,
				Index:     j,
				Transform: t,
				Label:     lt,
				LabelText: text,
				Size:      group.Size,
				Shape:     connect.EllipseShape(),
				Attrs:     mergeAttrs(group.Attrs, p.Attrs),
			}
			if p.Size != nil {
				m.Size = *p.Size
			}
			if p.Shape != nil {
				m.Shape = *p.Shape
			} else if group.Shape != nil {
				m.Shape = *group.Shape
			}
			out[i] = m
		}
	}
	return out, nil
}

// PortMetric lays out the ports and returns the one with id.
func (c *Cell) PortMetric(id string) (PortMetric, error) {
	i := c.Ports.index(id)
	if i < 0 {
		return PortMetric{}, fmt.Errorf("%w: %s on %s", ErrUnknownPort, id, c.ID)
	}
	all, err := c.PortMetrics(nil)
	if err != nil {
		return PortMetric{}, err
	}
	return all[i], nil
}

// PortCenter is the port position in paper coordinates, element rotation
// applied.
func (c *Cell) PortCenter(id string) (geometry.Point, error) {
	m, err := c.PortMetric(id)
	if err != nil {
		return geometry.Point{}, err
	}
	p := c.Position.Add(m.Transform.Point())
	if c.Angle != 0 {
		p = p.Rotate(c.Center(), -c.Angle)
	}
	return p, nil
}

// PortBBox is the unrotated port box centred on its layout position.
func (c *Cell) PortBBox(id string) (geometry.Rect, error) {
	m, err := c.PortMetric(id)
	if err != nil {
		return geometry.Rect{}, err
	}
	p := c.Position.Add(m.Transform.Point())
	return geometry.R(p.X-m.Size.Width/2, p.Y-m.Size.Height/2, m.Size.Width, m.Size.Height), nil
}

// PortMagnet is a port as a link end target; it turns with the element.
func (c *Cell) PortMagnet(id string) (connect.Magnet, error) {
	m, err := c.PortMetric(id)
	if err != nil {
		return connect.Magnet{}, err
	}
	bbox, _ := c.PortBBox(id)
	sw, _ := attrNumber(m.Attrs, "body", "strokeWidth")
	return connect.Magnet{
		BBox:        bbox,
		Angle:       c.Angle,
		Origin:      c.Center(),
		Shape:       m.Shape,
		StrokeWidth: sw,
	}, nil
}

func mergePortArgs(base, over layout.PortArgs) layout.PortArgs {
	out := base
	if over.X.IsSet() {
		out.X = over.X
	}
	if over.Y.IsSet() {
		out.Y = over.Y
	}
	if over.Angle != nil {
		out.Angle = over.Angle
	}
	if over.Dx != 0 {
		out.Dx = over.Dx
	}
	if over.Dy != 0 {
		out.Dy = over.Dy
	}
	if over.Dr != 0 {
		out.Dr = over.Dr
	}
	if over.CompensateRotation {
		out.CompensateRotation = true
	}
	return out
}

func mergeLabelOptions(base, over layout.LabelOptions) layout.LabelOptions {
	out := base
	if over.X != nil {
		out.X = over.X
	}
	if over.Y != nil {
		out.Y = over.Y
	}
	if over.Angle != nil {
		out.Angle = over.Angle
	}
	if over.Offset != nil {
		out.Offset = over.Offset
	}
	if over.TextAnchor != "" {
		out.TextAnchor = over.TextAnchor
	}
	if over.TextY != "" {
		out.TextY = over.TextY
	}
	return out
}
