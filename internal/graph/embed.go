/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graph

import (
	"cmp"
	"fmt"
	"slices"
)

// Embed makes children part of c. Links are put in front of the embeds
// list, elements at its end.
func (c *Cell) Embed(children ...*Cell) error {
	for _, ch := range children {
		if ch == c || c.IsEmbeddedIn(ch, true) {
			return fmt.Errorf("%w: %s into %s", ErrRecursiveEmbedding, ch.ID, c.ID)
		}
	}
	for _, ch := range children {
		if ch.Parent != "" && ch.Parent != c.ID {
			return fmt.Errorf("%w: %s is embedded in %s", ErrAlreadyEmbedded, ch.ID, ch.Parent)
		}
	}
	prev := slices.Clone(c.Embeds)
	embeds := slices.Clone(c.Embeds)
	for _, ch := range children {
		if slices.Contains(embeds, ch.ID) {
			continue
		}
		if ch.IsLink() {
			embeds = slices.Insert(embeds, 0, ch.ID)
		} else {
			embeds = append(embeds, ch.ID)
		}
	}
	c.withBatch("embed", func() {
		for _, ch := range children {
			if ch.Parent != c.ID {
				old := ch.Parent
				ch.Parent = c.ID
				ch.changed("parent", old, c.ID)
			}
		}
		c.Embeds = embeds
		c.changed("embeds", prev, embeds)
	})
	return nil
}

// Unembed releases children from c. Cells not embedded in c are ignored.
func (c *Cell) Unembed(children ...*Cell) {
	prev := slices.Clone(c.Embeds)
	embeds := slices.Clone(c.Embeds)
	c.withBatch("unembed", func() {
		for _, ch := range children {
			if ch.Parent != c.ID {
				continue
			}
			embeds = slices.DeleteFunc(embeds, func(id string) bool { return id == ch.ID })
			ch.Parent = ""
			ch.changed("parent", c.ID, "")
		}
		if len(embeds) == len(prev) {
			return
		}
		if len(embeds) == 0 {
			embeds = nil
		}
		c.Embeds = embeds
		c.changed("embeds", prev, embeds)
	})
}

// ParentCell resolves Parent in the graph.
func (c *Cell) ParentCell() *Cell {
	if c.Parent == "" || c.graph == nil {
		return nil
	}
	return c.graph.Cell(c.Parent)
}

// Ancestors lists the parents from the nearest up to the root.
func (c *Cell) Ancestors() []*Cell {
	var out []*Cell
	seen := map[*Cell]bool{c: true}
	for p := c.ParentCell(); p != nil && !seen[p]; p = p.ParentCell() {
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (c *Cell) IsEmbedded() bool { return c.Parent != "" }

// IsEmbeddedIn reports whether c is a child (deep: a descendant) of other.
func (c *Cell) IsEmbeddedIn(other *Cell, deep bool) bool {
	if other == nil || c.Parent == "" {
		return false
	}
	if !deep || c.graph == nil {
		return c.Parent == other.ID
	}
	for _, a := range c.Ancestors() {
		if a.ID == other.ID {
			return true
		}
	}
	return c.Parent == other.ID
}

// EmbedOptions select which embedded cells to return and in which order.
type EmbedOptions struct {
	Deep         bool
	BreadthFirst bool
	// SortSiblings orders the children of each cell by z.
	SortSiblings bool
}

// EmbeddedCells returns the children of c, or with Deep all descendants in
// depth-first (default) or breadth-first order.
func (c *Cell) EmbeddedCells(opt EmbedOptions) []*Cell {
	if c.graph == nil {
		return nil
	}
	if !opt.Deep {
		return c.children(opt.SortSiblings)
	}
	var out []*Cell
	seen := map[*Cell]bool{c: true}
	if opt.BreadthFirst {
		queue := c.children(opt.SortSiblings)
		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next.children(opt.SortSiblings)...)
		}
		return out
	}
	stack := c.children(opt.SortSiblings)
	slices.Reverse(stack)
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		kids := next.children(opt.SortSiblings)
		slices.Reverse(kids)
		stack = append(stack, kids...)
	}
	return out
}

func (c *Cell) children(sortByZ bool) []*Cell {
	var out []*Cell
	for _, id := range c.Embeds {
		if e := c.graph.Cell(id); e != nil {
			out = append(out, e)
		}
	}
	if sortByZ {
		slices.SortStableFunc(out, func(a, b *Cell) int { return cmp.Compare(a.Z, b.Z) })
	}
	return out
}

// ZOptions control ToFront and ToBack.
type ZOptions struct {
	// Deep moves the embedded cells along.
	Deep bool
	// DepthFirst walks the embeds depth first instead of breadth first.
	DepthFirst bool
	// KeepEmbedOrder keeps the current z order of the moved cells instead of
	// putting every child in front of its parent.
	KeepEmbedOrder bool
}

// ToFront moves c (and with Deep its descendants) above all other cells.
func (c *Cell) ToFront(opt ZOptions) {
	g := c.graph
	if g == nil {
		return
	}
	cells := c.zGroup(opt)
	z := g.MaxZ() - float64(len(cells)) + 1
	update := g.indexOf(cells[0]) != len(g.cells)-len(cells)
	if !update {
		update = !zRun(cells, z)
	}
	if !update {
		return
	}
	z += float64(len(cells))
	c.withBatch("to-front", func() {
		for i, cell := range cells {
			cell.SetZ(z + float64(i))
		}
	})
}

// ToBack moves c (and with Deep its descendants) below all other cells.
func (c *Cell) ToBack(opt ZOptions) {
	g := c.graph
	if g == nil {
		return
	}
	cells := c.zGroup(opt)
	z := g.MinZ()
	update := g.indexOf(cells[0]) != 0
	if !update {
		update = !zRun(cells, z)
	}
	if !update {
		return
	}
	z -= float64(len(cells))
	c.withBatch("to-back", func() {
		for i, cell := range cells {
			cell.SetZ(z + float64(i))
		}
	})
}

func (c *Cell) zGroup(opt ZOptions) []*Cell {
	cells := []*Cell{c}
	if opt.Deep {
		cells = append(cells, c.EmbeddedCells(EmbedOptions{
			Deep:         true,
			BreadthFirst: !opt.DepthFirst,
			SortSiblings: !opt.KeepEmbedOrder,
		})...)
	}
	if opt.KeepEmbedOrder {
		slices.SortStableFunc(cells, func(a, b *Cell) int { return cmp.Compare(a.Z, b.Z) })
	}
	return cells
}

// zRun reports whether cells already carry z, z+1, z+2...
func zRun(cells []*Cell, z float64) bool {
	for i, c := range cells {
		if c.Z != z+float64(i) {
			return false
		}
	}
	return true
}

func (g *Graph) indexOf(c *Cell) int { return slices.Index(g.cells, c) }
