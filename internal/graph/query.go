/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graph

import (
	"slices"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

func (g *Graph) Cell(id string) *Cell { return g.byID[id] }

// Cells returns all members ordered by z.
func (g *Graph) Cells() []*Cell { return slices.Clone(g.cells) }

func (g *Graph) Len() int { return len(g.cells) }

func (g *Graph) Elements() []*Cell { return g.filter((*Cell).IsElement) }
func (g *Graph) Links() []*Cell    { return g.filter((*Cell).IsLink) }

func (g *Graph) filter(keep func(*Cell) bool) []*Cell {
	var out []*Cell
	for _, c := range g.cells {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (g *Graph) FirstCell() *Cell {
	if len(g.cells) == 0 {
		return nil
	}
	return g.cells[0]
}

func (g *Graph) LastCell() *Cell {
	if len(g.cells) == 0 {
		return nil
	}
	return g.cells[len(g.cells)-1]
}

// MinZ is the z of the bottom cell, 0 for an empty graph.
func (g *Graph) MinZ() float64 {
	if c := g.FirstCell(); c != nil {
		return c.Z
	}
	return 0
}

// MaxZ is the z of the top cell, 0 for an empty graph.
func (g *Graph) MaxZ() float64 {
	if c := g.LastCell(); c != nil {
		return c.Z
	}
	return 0
}

// LinkOptions select links by direction. Leaving both Inbound and Outbound
// unset means both.
type LinkOptions struct {
	Inbound  bool
	Outbound bool
	// Indirect follows links attached to links.
	Indirect bool
	// Deep also collects links of embedded cells.
	Deep bool
	// IncludeEnclosed keeps deep links whose both ends are embedded.
	IncludeEnclosed bool
}

func (o LinkOptions) directions() (in, out bool) {
	if !o.Inbound && !o.Outbound {
		return true, true
	}
	return o.Inbound, o.Outbound
}

// ConnectedLinks returns the links attached to c.
func (g *Graph) ConnectedLinks(c *Cell, opt LinkOptions) []*Cell {
	inbound, outbound := opt.directions()
	var links []*Cell
	seen := map[string]bool{}

	var addOut, addIn func(*Cell)
	follow := func(l *Cell) {
		if opt.Indirect {
			if inbound {
				addIn(l)
			}
			if outbound {
				addOut(l)
			}
		}
	}
	addOut = func(m *Cell) {
		for _, id := range slices.Clone(g.out[m.ID]) {
			if seen[id] {
				continue
			}
			l := g.byID[id]
			links = append(links, l)
			seen[id] = true
			follow(l)
		}
		if opt.Indirect && m.IsLink() {
			if t := m.TargetCell(); t != nil && t.IsLink() && !seen[t.ID] {
				links = append(links, t)
				seen[t.ID] = true
				addOut(t)
			}
		}
	}
	addIn = func(m *Cell) {
		for _, id := range slices.Clone(g.in[m.ID]) {
			if seen[id] {
				continue
			}
			l := g.byID[id]
			links = append(links, l)
			seen[id] = true
			follow(l)
		}
		if opt.Indirect && m.IsLink() {
			if s := m.SourceCell(); s != nil && s.IsLink() && !seen[s.ID] {
				links = append(links, s)
				seen[s.ID] = true
				addIn(s)
			}
		}
	}

	if outbound {
		addOut(c)
	}
	if inbound {
		addIn(c)
	}

	if opt.Deep {
		embedded := c.EmbeddedCells(EmbedOptions{Deep: true})
		inside := map[string]bool{}
		for _, e := range embedded {
			if e.IsElement() {
				inside[e.ID] = true
			}
		}
		collect := func(index map[string][]string, e *Cell) {
			for _, id := range index[e.ID] {
				if seen[id] {
					continue
				}
				l := g.byID[id]
				if !opt.IncludeEnclosed && inside[l.Source.ID] && inside[l.Target.ID] {
					continue
				}
				links = append(links, l)
				seen[id] = true
			}
		}
		for _, e := range embedded {
			if e.IsLink() {
				continue
			}
			if outbound {
				collect(g.out, e)
			}
			if inbound {
				collect(g.in, e)
			}
		}
	}
	return links
}

// Neighbors returns the elements at the other end of c's links.
func (g *Graph) Neighbors(c *Cell, opt LinkOptions) []*Cell {
	inbound, outbound := opt.directions()
	var out []*Cell
	seen := map[string]bool{}
	add := func(id string, loop bool) {
		if id == "" || seen[id] {
			return
		}
		n := g.byID[id]
		if n == nil || !n.IsElement() {
			return
		}
		if loop || (n != c && (!opt.Deep || !n.IsEmbeddedIn(c, true))) {
			seen[id] = true
			out = append(out, n)
		}
	}
	for _, l := range g.ConnectedLinks(c, opt) {
		loop := l.HasLoop(opt.Deep)
		if inbound {
			add(l.Source.ID, loop)
		}
		if outbound {
			add(l.Target.ID, loop)
		}
	}
	if c.IsLink() {
		if inbound {
			if s := c.SourceCell(); s != nil && s.IsElement() && !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
		if outbound {
			if t := c.TargetCell(); t != nil && t.IsElement() && !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// CommonAncestor returns the nearest cell all of cells are embedded in.
func (g *Graph) CommonAncestor(cells ...*Cell) *Cell {
	if len(cells) == 0 {
		return nil
	}
	chains := make([][]string, len(cells))
	for i, c := range cells {
		for p := c.Parent; p != ""; {
			chains[i] = append(chains[i], p)
			pc := g.byID[p]
			if pc == nil {
				break
			}
			p = pc.Parent
		}
	}
	slices.SortStableFunc(chains, func(a, b []string) int { return len(a) - len(b) })
	for _, id := range chains[0] {
		common := true
		for _, ch := range chains[1:] {
			if !slices.Contains(ch, id) {
				common = false
				break
			}
		}
		if common {
			return g.byID[id]
		}
	}
	return nil
}

// SearchOptions steer a traversal. Inbound reverses the link direction.
type SearchOptions struct {
	LinkOptions
	BreadthFirst bool
}

// Visitor is called once per reached element with its level. Returning false
// stops the traversal from expanding that element.
type Visitor func(c *Cell, distance int) bool

func (g *Graph) Search(c *Cell, visit Visitor, opt SearchOptions) {
	if opt.BreadthFirst {
		g.BFS(c, visit, opt.LinkOptions)
		return
	}
	g.DFS(c, visit, opt.LinkOptions)
}

func (g *Graph) BFS(c *Cell, visit Visitor, opt LinkOptions) {
	visited := map[string]bool{}
	distance := map[string]int{c.ID: 0}
	queue := []*Cell{c}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next.ID] {
			continue
		}
		visited[next.ID] = true
		if !visit(next, distance[next.ID]) {
			continue
		}
		for _, n := range g.Neighbors(next, opt) {
			distance[n.ID] = distance[next.ID] + 1
			queue = append(queue, n)
		}
	}
}

func (g *Graph) DFS(c *Cell, visit Visitor, opt LinkOptions) {
	visited := map[string]bool{}
	distance := map[string]int{c.ID: 0}
	stack := []*Cell{c}
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[next.ID] {
			continue
		}
		visited[next.ID] = true
		if !visit(next, distance[next.ID]) {
			continue
		}
		neighbors := g.Neighbors(next, opt)
		for i := len(neighbors) - 1; i >= 0; i-- {
			distance[neighbors[i].ID] = distance[next.ID] + 1
			stack = append(stack, neighbors[i])
		}
	}
}

// Successors returns every element reachable from c along link direction.
func (g *Graph) Successors(c *Cell, opt SearchOptions) []*Cell {
	opt.Inbound, opt.Outbound = false, true
	return g.reachable(c, opt)
}

// Predecessors returns every element reaching c.
func (g *Graph) Predecessors(c *Cell, opt SearchOptions) []*Cell {
	opt.Inbound, opt.Outbound = true, false
	return g.reachable(c, opt)
}

func (g *Graph) reachable(c *Cell, opt SearchOptions) []*Cell {
	var out []*Cell
	g.Search(c, func(e *Cell, _ int) bool {
		if e != c {
			out = append(out, e)
		}
		return true
	}, opt)
	return out
}

// Sources are the elements without inbound links.
func (g *Graph) Sources() []*Cell {
	return g.filter(func(c *Cell) bool { return c.IsElement() && len(g.in[c.ID]) == 0 })
}

// Sinks are the elements without outbound links.
func (g *Graph) Sinks() []*Cell {
	return g.filter(func(c *Cell) bool { return c.IsElement() && len(g.out[c.ID]) == 0 })
}

func (g *Graph) IsSource(c *Cell) bool { return len(g.in[c.ID]) == 0 }
func (g *Graph) IsSink(c *Cell) bool   { return len(g.out[c.ID]) == 0 }

// IsSuccessor reports whether b is reachable from a.
func (g *Graph) IsSuccessor(a, b *Cell) bool {
	return g.finds(a, b, LinkOptions{Outbound: true})
}

// IsPredecessor reports whether a is reachable from b.
func (g *Graph) IsPredecessor(a, b *Cell) bool {
	return g.finds(a, b, LinkOptions{Inbound: true})
}

func (g *Graph) finds(a, b *Cell, opt LinkOptions) bool {
	found := false
	g.DFS(a, func(e *Cell, _ int) bool {
		if e == b && e != a {
			found = true
		}
		return !found
	}, opt)
	return found
}

// IsNeighbor reports a link between a and b in the selected directions.
func (g *Graph) IsNeighbor(a, b *Cell, opt LinkOptions) bool {
	inbound, outbound := opt.directions()
	for _, l := range g.ConnectedLinks(a, opt) {
		if inbound && l.Source.ID != "" && l.Source.ID == b.ID {
			return true
		}
		if outbound && l.Target.ID != "" && l.Target.ID == b.ID {
			return true
		}
	}
	return false
}

// Subgraph returns cells plus the ends of their links and the links joining
// them. With deep, embedded cells count as well.
func (g *Graph) Subgraph(cells []*Cell, deep bool) []*Cell {
	var out, elements, links []*Cell
	in := map[string]bool{}
	push := func(c *Cell) {
		if c == nil || in[c.ID] {
			return
		}
		in[c.ID] = true
		out = append(out, c)
		if c.IsLink() {
			links = append(links, c)
		} else {
			elements = append(elements, c)
		}
	}
	for _, c := range cells {
		push(c)
		if deep {
			for _, e := range c.EmbeddedCells(EmbedOptions{Deep: true}) {
				push(e)
			}
		}
	}
	for _, l := range links {
		if l.Source.ID != "" {
			push(g.byID[l.Source.ID])
		}
		if l.Target.ID != "" {
			push(g.byID[l.Target.ID])
		}
	}
	for _, e := range slices.Clone(elements) {
		for _, l := range g.ConnectedLinks(e, LinkOptions{Deep: deep}) {
			if !in[l.ID] && l.Source.ID != "" && in[l.Source.ID] && l.Target.ID != "" && in[l.Target.ID] {
				in[l.ID] = true
				out = append(out, l)
			}
		}
	}
	return out
}

// CloneSubgraph clones Subgraph(cells, deep); see CloneCells.
func (g *Graph) CloneSubgraph(cells []*Cell, deep bool) map[string]*Cell {
	return CloneCells(g.Subgraph(cells, deep))
}

// CloneCells clones cells and rewires link ends, parents and embeds that
// point inside the set to the clones. The map is keyed by original id.
func CloneCells(cells []*Cell) map[string]*Cell {
	clones := make(map[string]*Cell, len(cells))
	var uniq []*Cell
	for _, c := range cells {
		if _, ok := clones[c.ID]; ok {
			continue
		}
		clones[c.ID] = c.Clone()
		uniq = append(uniq, c)
	}
	for _, c := range uniq {
		cl := clones[c.ID]
		if cl.IsLink() {
			if s, ok := clones[cl.Source.ID]; ok && cl.Source.ID != "" {
				cl.Source.ID = s.ID
			}
			if t, ok := clones[cl.Target.ID]; ok && cl.Target.ID != "" {
				cl.Target.ID = t.ID
			}
		}
		if p, ok := clones[c.Parent]; ok && c.Parent != "" {
			cl.Parent = p.ID
		}
		for _, id := range c.Embeds {
			if e, ok := clones[id]; ok {
				cl.Embeds = append(cl.Embeds, e.ID)
			}
		}
	}
	return clones
}

// FindModelsFromPoint returns the elements whose rotated bbox contains p.
func (g *Graph) FindModelsFromPoint(p geometry.Point) []*Cell {
	return g.filter(func(c *Cell) bool { return c.IsElement() && c.RotatedBBox().ContainsPoint(p) })
}

// FindModelsInArea returns the elements intersecting r, or inside r when
// strict.
func (g *Graph) FindModelsInArea(r geometry.Rect, strict bool) []*Cell {
	return g.filter(func(c *Cell) bool {
		if !c.IsElement() {
			return false
		}
		b := c.RotatedBBox()
		if strict {
			return r.ContainsRect(b)
		}
		_, ok := r.Intersect(b)
		return ok
	})
}

var rectPoints = map[string]func(geometry.Rect) geometry.Point{
	"center":       geometry.Rect.Center,
	"origin":       geometry.Rect.Origin,
	"topLeft":      geometry.Rect.Origin,
	"topMiddle":    geometry.Rect.TopMiddle,
	"topRight":     geometry.Rect.TopRight,
	"rightMiddle":  geometry.Rect.RightMiddle,
	"bottomRight":  geometry.Rect.Corner,
	"corner":       geometry.Rect.Corner,
	"bottomMiddle": geometry.Rect.BottomMiddle,
	"bottomLeft":   geometry.Rect.BottomLeft,
	"leftMiddle":   geometry.Rect.LeftMiddle,
}

// FindModelsUnderElement returns the elements under el, excluding el and its
// descendants. searchBy is "bbox" (default) or a named bbox point such as
// "center" or "topLeft".
func (g *Graph) FindModelsUnderElement(el *Cell, searchBy string) []*Cell {
	bbox := el.RotatedBBox()
	var found []*Cell
	if pick, ok := rectPoints[searchBy]; ok {
		found = g.FindModelsFromPoint(pick(bbox))
	} else {
		found = g.FindModelsInArea(bbox, false)
	}
	return slices.DeleteFunc(found, func(c *Cell) bool { return c == el || c.IsEmbeddedIn(el, true) })
}

// BBox is the union of the rotated bounds of all cells.
func (g *Graph) BBox() (geometry.Rect, bool) { return CellsBBox(g.cells) }

// CellsBBox is the union of the rotated bounds of cells.
func CellsBBox(cells []*Cell) (geometry.Rect, bool) {
	var out geometry.Rect
	ok := false
	for _, c := range cells {
		b := c.RotatedBBox()
		if !ok {
			out, ok = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, ok
}

// Translate moves every top level cell; embedded cells follow their parents.
func (g *Graph) Translate(dx, dy float64) {
	for _, c := range g.Cells() {
		if !c.IsEmbedded() {
			c.Translate(dx, dy)
		}
	}
}

// Resize scales all cells so their bounds become width x height.
func (g *Graph) Resize(width, height float64) { g.ResizeCells(width, height, g.Cells()) }

func (g *Graph) ResizeCells(width, height float64, cells []*Cell) {
	bbox, ok := CellsBBox(cells)
	if !ok || bbox.Width == 0 || bbox.Height == 0 {
		return
	}
	sx := max(width/bbox.Width, 0)
	sy := max(height/bbox.Height, 0)
	for _, c := range cells {
		c.Scale(sx, sy, bbox.Origin())
	}
}
