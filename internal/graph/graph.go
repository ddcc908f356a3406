/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package graph holds the cell collection: elements and links ordered by z,
// their embedding tree, adjacency indexes and change events.
//
// A Graph is not safe for concurrent use; its owner serialises access.
package graph

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/clientIO/joint-sub027/internal/ids"
	"github.com/clientIO/joint-sub027/internal/layout"
	applog "github.com/clientIO/joint-sub027/internal/log"
)

// Event types.
const (
	EventAdd        = "add"
	EventRemove     = "remove"
	EventReset      = "reset"
	EventChange     = "change"
	EventSort       = "sort"
	EventBatchStart = "batch:start"
	EventBatchStop  = "batch:stop"
)

// ChangeEvent is the event type for a change of one attribute.
func ChangeEvent(attr string) string { return EventChange + ":" + attr }

// Event is delivered to subscribers after the graph changed.
type Event struct {
	Type  string
	Cell  *Cell
	Attr  string // change events
	Prev  any
	Value any
	Batch string // batch events

	// Reset events carry the new members and the cells that were dropped.
	Cells   []*Cell
	Dropped []*Cell
}

type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

type Options struct {
	Registry *Registry
	Layouts  *layout.Registry
	Logger   *slog.Logger
}

type Graph struct {
	registry *Registry
	layouts  *layout.Registry
	log      *slog.Logger

	cells []*Cell // sorted by (z, seq)
	byID  map[string]*Cell
	out   map[string][]string // cell id -> ids of links leaving it
	in    map[string][]string // cell id -> ids of links entering it
	seq   uint64

	batches map[string]int
	subs    []subscription
	nextSub int
}

// New returns an empty graph. Zero options use the standard registry.
func New(opt Options) *Graph {
	if opt.Registry == nil {
		opt.Registry = DefaultRegistry()
	}
	if opt.Layouts == nil {
		opt.Layouts = layout.NewRegistry()
	}
	if opt.Logger == nil {
		opt.Logger = applog.WithComponent("graph")
	}
	return &Graph{
		registry: opt.Registry,
		layouts:  opt.Layouts,
		log:      opt.Logger,
		byID:     map[string]*Cell{},
		out:      map[string][]string{},
		in:       map[string][]string{},
		batches:  map[string]int{},
	}
}

func (g *Graph) Registry() *Registry        { return g.registry }
func (g *Graph) Layouts() *layout.Registry { return g.layouts }

// Subscribe registers fn for all events and returns its cancel function.
func (g *Graph) Subscribe(fn Listener) (unsubscribe func()) {
	g.nextSub++
	id := g.nextSub
	g.subs = append(g.subs, subscription{id: id, fn: fn})
	return func() {
		g.subs = slices.DeleteFunc(g.subs, func(s subscription) bool { return s.id == id })
	}
}

func (g *Graph) emit(e Event) {
	for _, s := range slices.Clone(g.subs) {
		s.fn(e)
	}
}

func (g *Graph) StartBatch(name string) {
	g.batches[name]++
	g.emit(Event{Type: EventBatchStart, Batch: name})
}

func (g *Graph) StopBatch(name string) {
	g.batches[name]--
	g.emit(Event{Type: EventBatchStop, Batch: name})
}

// HasActiveBatch reports an open batch among names, or any open batch when
// no names are given.
func (g *Graph) HasActiveBatch(names ...string) bool {
	if len(names) == 0 {
		for _, n := range g.batches {
			if n > 0 {
				return true
			}
		}
		return false
	}
	for _, name := range names {
		if g.batches[name] > 0 {
			return true
		}
	}
	return false
}

// AddCell builds a cell from attrs through the registry and adds it.
func (g *Graph) AddCell(attrs Attributes) (*Cell, error) {
	c, err := g.registry.Build(attrs)
	if err != nil {
		return nil, err
	}
	if err := g.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddCells adds several attribute bags inside one "add" batch. It stops at
// the first failing cell.
func (g *Graph) AddCells(attrs ...Attributes) ([]*Cell, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	g.StartBatch("add")
	defer g.StopBatch("add")
	out := make([]*Cell, 0, len(attrs))
	for _, a := range attrs {
		c, err := g.AddCell(a)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Add inserts built cells. A cell without z goes on top.
func (g *Graph) Add(cells ...*Cell) error {
	if len(cells) > 1 {
		g.StartBatch("add")
		defer g.StopBatch("add")
	}
	for _, c := range cells {
		if err := g.add(c); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) add(c *Cell) error {
	if err := g.admit(c); err != nil {
		return err
	}
	ensureID(c)
	if _, dup := g.byID[c.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
	}
	if !c.hasZ {
		c.Z, c.hasZ = g.MaxZ()+1, true
	}
	g.seq++
	c.seq = g.seq
	c.graph = g
	g.byID[c.ID] = c
	i, _ := slices.BinarySearchFunc(g.cells, c, compareCells)
	g.cells = slices.Insert(g.cells, i, c)
	g.indexLink(c)
	g.emit(Event{Type: EventAdd, Cell: c})
	return nil
}

// admit checks what every member must satisfy. It does not touch c.
func (g *Graph) admit(c *Cell) error {
	if !g.registry.Has(c.Type) {
		return &ConfigurationError{Type: c.Type}
	}
	if c.graph != nil && c.graph != g {
		return fmt.Errorf("%w: %s", ErrForeignCell, c.ID)
	}
	return nil
}

func ensureID(c *Cell) {
	if c.ID == "" {
		c.ID = ids.NewCellID()
	}
}

func compareCells(a, b *Cell) int {
	if r := cmp.Compare(a.Z, b.Z); r != 0 {
		return r
	}
	return cmp.Compare(a.seq, b.seq)
}

// ResetCells replaces all members with cells built from attrs.
func (g *Graph) ResetCells(attrs []Attributes) error {
	cells := make([]*Cell, 0, len(attrs))
	for _, a := range attrs {
		c, err := g.registry.Build(a)
		if err != nil {
			return err
		}
		cells = append(cells, c)
	}
	return g.Reset(cells)
}

// Reset replaces all members in one step. Every cell is validated before
// anything changes. Dropped cells lose their graph without remove events,
// indexes are rebuilt once and a single reset event is emitted.
func (g *Graph) Reset(cells []*Cell) error {
	seen := make(map[string]bool, len(cells))
	for _, c := range cells {
		if err := g.admit(c); err != nil {
			return err
		}
		if c.ID == "" {
			continue
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
	}
	for _, c := range cells {
		ensureID(c)
	}

	keep := make(map[*Cell]bool, len(cells))
	for _, c := range cells {
		keep[c] = true
	}
	var dropped []*Cell
	for _, c := range g.cells {
		if !keep[c] {
			c.graph = nil
			dropped = append(dropped, c)
		}
	}

	maxZ := 0.0
	for _, c := range cells {
		if c.hasZ {
			maxZ = max(maxZ, c.Z)
		}
	}
	g.cells = make([]*Cell, 0, len(cells))
	g.byID = make(map[string]*Cell, len(cells))
	for _, c := range cells {
		if !c.hasZ {
			maxZ++
			c.Z, c.hasZ = maxZ, true
		}
		g.seq++
		c.seq = g.seq
		c.graph = g
		g.byID[c.ID] = c
		g.cells = append(g.cells, c)
	}
	slices.SortStableFunc(g.cells, compareCells)
	g.rebuildIndexes()

	g.log.Debug("cells reset", slog.String("op", "reset"), slog.Int("cells", len(cells)), slog.Int("dropped", len(dropped)))
	g.emit(Event{Type: EventReset, Cells: g.Cells(), Dropped: dropped})
	return nil
}

// RemoveOptions control what happens to links attached to a removed cell.
type RemoveOptions struct {
	// DisconnectLinks turns the attached ends into points at (0, 0)
	// instead of removing the links.
	DisconnectLinks bool

	clear bool
}

func (g *Graph) RemoveCells(cells []*Cell, opt RemoveOptions) {
	if len(cells) == 0 {
		return
	}
	g.StartBatch("remove")
	for _, c := range cells {
		g.removeCell(c, opt)
	}
	g.StopBatch("remove")
}

func (g *Graph) RemoveCell(c *Cell, opt RemoveOptions) { g.removeCell(c, opt) }

// removeCell unembeds c, removes its embeds, removes or disconnects its
// links and finally detaches c.
func (g *Graph) removeCell(c *Cell, opt RemoveOptions) {
	if c == nil || c.graph != g {
		return
	}
	g.StartBatch("remove")
	defer g.StopBatch("remove")

	if p := c.ParentCell(); p != nil {
		p.Unembed(c)
	}
	for _, e := range c.EmbeddedCells(EmbedOptions{}) {
		g.removeCell(e, opt)
	}
	if !opt.clear {
		if opt.DisconnectLinks {
			g.DisconnectLinks(c)
		} else {
			g.RemoveLinks(c)
		}
	}
	if c.graph != g {
		return
	}
	g.cells = slices.DeleteFunc(g.cells, func(o *Cell) bool { return o == c })
	delete(g.byID, c.ID)
	g.unindexLink(c)
	c.graph = nil
	g.emit(Event{Type: EventRemove, Cell: c})
}

// DisconnectLinks moves the ends attached to c to the point (0, 0).
func (g *Graph) DisconnectLinks(c *Cell) {
	for _, l := range g.ConnectedLinks(c, LinkOptions{}) {
		if l.Source.ID == c.ID {
			l.SetSource(PointEnd(0, 0))
		} else {
			l.SetTarget(PointEnd(0, 0))
		}
	}
}

// RemoveLinks removes every link attached to c.
func (g *Graph) RemoveLinks(c *Cell) {
	for _, l := range g.ConnectedLinks(c, LinkOptions{}) {
		g.removeCell(l, RemoveOptions{})
	}
}

// Clear removes all cells, links first.
func (g *Graph) Clear() {
	if len(g.cells) == 0 {
		return
	}
	g.StartBatch("clear")
	order := slices.Clone(g.cells)
	slices.SortStableFunc(order, func(a, b *Cell) int { return cmp.Compare(b.Kind, a.Kind) })
	for _, c := range order {
		g.removeCell(c, RemoveOptions{clear: true})
	}
	g.StopBatch("clear")
}

// cellChanged keeps order and indexes current and notifies subscribers.
func (g *Graph) cellChanged(c *Cell, attr string, prev, value any) {
	switch attr {
	case "source":
		if p, ok := prev.(Endpoint); ok && p.ID != "" {
			g.out[p.ID] = removeID(g.out[p.ID], c.ID)
		}
		if c.Source.ID != "" {
			g.out[c.Source.ID] = appendID(g.out[c.Source.ID], c.ID)
		}
	case "target":
		if p, ok := prev.(Endpoint); ok && p.ID != "" {
			g.in[p.ID] = removeID(g.in[p.ID], c.ID)
		}
		if c.Target.ID != "" {
			g.in[c.Target.ID] = appendID(g.in[c.Target.ID], c.ID)
		}
	case "z":
		slices.SortStableFunc(g.cells, compareCells)
	}
	g.emit(Event{Type: ChangeEvent(attr), Cell: c, Attr: attr, Prev: prev, Value: value})
	g.emit(Event{Type: EventChange, Cell: c, Attr: attr, Prev: prev, Value: value})
	if attr == "z" {
		g.emit(Event{Type: EventSort})
	}
}

func (g *Graph) indexLink(c *Cell) {
	if !c.IsLink() {
		return
	}
	if c.Source.ID != "" {
		g.out[c.Source.ID] = appendID(g.out[c.Source.ID], c.ID)
	}
	if c.Target.ID != "" {
		g.in[c.Target.ID] = appendID(g.in[c.Target.ID], c.ID)
	}
}

func (g *Graph) unindexLink(c *Cell) {
	if !c.IsLink() {
		return
	}
	if c.Source.ID != "" {
		g.out[c.Source.ID] = removeID(g.out[c.Source.ID], c.ID)
	}
	if c.Target.ID != "" {
		g.in[c.Target.ID] = removeID(g.in[c.Target.ID], c.ID)
	}
}

func (g *Graph) rebuildIndexes() {
	g.out = map[string][]string{}
	g.in = map[string][]string{}
	for _, c := range g.cells {
		g.indexLink(c)
	}
}

func appendID(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

func removeID(list []string, id string) []string {
	out := slices.DeleteFunc(list, func(s string) bool { return s == id })
	if len(out) == 0 {
		return nil
	}
	return out
}
