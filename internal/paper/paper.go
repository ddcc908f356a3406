/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package paper keeps one view per cell of a graph and brings the views up
// to date through a priority update queue. Views compute geometry only; the
// export package turns them into pictures.
package paper

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/clientIO/joint-sub027/internal/connect"
	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/graph"
	"github.com/clientIO/joint-sub027/internal/highlight"
	"github.com/clientIO/joint-sub027/internal/layout"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/route"
	"github.com/clientIO/joint-sub027/internal/schedule"
	"github.com/clientIO/joint-sub027/internal/textlayout"
)

// Paper events.
const (
	EventRenderDone = "render:done"
	EventViewAdded  = "view:add"
	EventViewRemove = "view:remove"
)

const freezeKey = "paper"

var ErrUnknownCell = errors.New("paper: no view for cell")

type Options struct {
	// Layouts defaults to the graph's layout registry.
	Layouts *layout.Registry
	Connect *connect.Registry
	// Routes holds routers and connectors and the defaults for links that
	// name none.
	Routes *route.Registry
	// BatchSize caps views per flush; zero flushes everything at once.
	BatchSize int
	Width     float64
	Height    float64
	GridSize  float64
	Frozen    bool
	Logger    *slog.Logger
	// Text measures label text; nil estimates 0.6em per character.
	Text textlayout.Measurer
}

// Event is delivered to paper subscribers.
type Event struct {
	Type string
	View *CellView
	Args []any
}

type Paper struct {
	opt          Options
	graph        *graph.Graph
	layouts      *layout.Registry
	connect      *connect.Registry
	routes       *route.Registry
	queue        *schedule.Queue
	highlighters *highlight.Registry
	text         textlayout.Measurer
	log          *slog.Logger

	views map[string]*CellView // by cell id
	byCID map[string]*CellView

	unsubscribe func()
	subs        []func(Event)
}

// New creates a paper for g with a view for every cell already in it.
func New(g *graph.Graph, opt Options) *Paper {
	if opt.Logger == nil {
		opt.Logger = applog.WithComponent("paper")
	}
	if opt.Layouts == nil {
		opt.Layouts = g.Layouts()
	}
	if opt.Connect == nil {
		opt.Connect = connect.NewRegistry()
	}
	if opt.Routes == nil {
		opt.Routes = route.NewRegistry()
	}
	q := schedule.New()
	p := &Paper{
		opt:          opt,
		graph:        g,
		layouts:      opt.Layouts,
		connect:      opt.Connect,
		routes:       opt.Routes,
		queue:        q,
		highlighters: highlight.NewRegistry(q, opt.Logger.With(slog.String("sub", "highlight"))),
		text:         opt.Text,
		log:          opt.Logger,
		views:        map[string]*CellView{},
		byCID:        map[string]*CellView{},
	}
	if opt.Frozen {
		q.Freeze(freezeKey)
	}
	for _, c := range g.Cells() {
		p.addView(c)
	}
	p.unsubscribe = g.Subscribe(p.onGraphEvent)
	return p
}

func (p *Paper) Graph() *graph.Graph                       { return p.graph }
func (p *Paper) Queue() *schedule.Queue                    { return p.queue }
func (p *Paper) Highlighters() *highlight.Registry         { return p.highlighters }
func (p *Paper) Connect() *connect.Registry                { return p.connect }
func (p *Paper) Routes() *route.Registry                   { return p.routes }
func (p *Paper) Options() Options                          { return p.opt }
func (p *Paper) FindView(cellID string) *CellView          { return p.views[cellID] }
func (p *Paper) FindViewByCID(cid string) *CellView        { return p.byCID[cid] }
func (p *Paper) Subscribe(fn func(Event))                  { p.subs = append(p.subs, fn) }
func (p *Paper) notify(e Event)                            { p.emit(e) }
func (p *Paper) IsFrozen() bool                            { return p.queue.IsFrozen() }
func (p *Paper) Freeze()                                   { p.queue.Freeze(freezeKey) }
func (p *Paper) Unfreeze()                                 { p.queue.Unfreeze(freezeKey) }
func (p *Paper) HasScheduledUpdates() bool                 { return p.queue.Len() > 0 }
func (p *Paper) requestView(v *CellView, f schedule.Flags) { p.queue.Request(v, f, v.priority()) }

// Close detaches the paper from its graph and drops all views.
func (p *Paper) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.removeAllViews()
	p.queue.Reset()
}

// Views returns the views in graph order (back to front).
func (p *Paper) Views() []*CellView {
	out := make([]*CellView, 0, len(p.views))
	for _, c := range p.graph.Cells() {
		if v := p.views[c.ID]; v != nil {
			out = append(out, v)
		}
	}
	return out
}

// UpdateViews flushes the update queue until it runs empty or a flush only
// postpones. Views requeued while flushing are picked up in the following
// rounds.
func (p *Paper) UpdateViews() schedule.Stats {
	var total schedule.Stats
	if p.queue.IsFrozen() {
		total.Empty = p.queue.Len() == 0
		return total
	}
	for {
		st := p.queue.Flush(p.opt.BatchSize)
		total.Updated += st.Updated
		total.Postponed += st.Postponed
		for _, pr := range st.Priorities {
			if !slices.Contains(total.Priorities, pr) {
				total.Priorities = append(total.Priorities, pr)
			}
		}
		total.Empty = st.Empty
		if st.Empty || st.Updated == 0 {
			break
		}
	}
	slices.Sort(total.Priorities)
	p.log.Debug("views updated",
		slog.String("op", "flush"),
		slog.Int("updated", total.Updated),
		slog.Int("postponed", total.Postponed),
		slog.Bool("empty", total.Empty))
	if total.Empty {
		p.emit(Event{Type: EventRenderDone, Args: []any{total.Updated}})
	}
	return total
}

// RequestUpdate queues a full update of the view of cellID.
func (p *Paper) RequestUpdate(cellID string) error {
	v := p.views[cellID]
	if v == nil {
		return ErrUnknownCell
	}
	p.requestView(v, FlagUpdate)
	return nil
}

// Highlight adds a highlighter painted by painter on the node selector of the
// cell's view.
func (p *Paper) Highlight(cellID, selector, id string, painter highlight.Painter) (*highlight.Highlighter, error) {
	v := p.views[cellID]
	if v == nil {
		return nil, ErrUnknownCell
	}
	return p.highlighters.Add(v, selector, id, painter)
}

// Unhighlight removes highlighter id from the cell's view.
func (p *Paper) Unhighlight(cellID, id string) {
	if v := p.views[cellID]; v != nil {
		p.highlighters.Remove(v, id)
	}
}

// ContentBBox is the union of the rendered views; false when nothing has
// been rendered.
func (p *Paper) ContentBBox() (geometry.Rect, bool) {
	var out geometry.Rect
	found := false
	for _, v := range p.views {
		if !v.rendered {
			continue
		}
		r := v.Node(SelectorRoot).BBox()
		for _, pv := range v.Element.Ports {
			r = r.Union(pv.BBox)
		}
		if !found {
			out, found = r, true
			continue
		}
		out = out.Union(r)
	}
	return out, found
}

// Snap rounds a paper coordinate to the grid.
func (p *Paper) Snap(pt geometry.Point) geometry.Point {
	if p.opt.GridSize <= 0 {
		return pt
	}
	return pt.SnapToGrid(p.opt.GridSize, p.opt.GridSize)
}

func (p *Paper) emit(e Event) {
	for _, fn := range p.subs {
		fn(e)
	}
}

func (p *Paper) addView(c *graph.Cell) *CellView {
	if v, ok := p.views[c.ID]; ok {
		return v
	}
	v := newCellView(p, c)
	p.views[c.ID] = v
	p.byCID[v.cid] = v
	p.requestView(v, FlagRender)
	p.emit(Event{Type: EventViewAdded, View: v})
	return v
}

func (p *Paper) removeView(c *graph.Cell) {
	v := p.views[c.ID]
	if v == nil {
		return
	}
	p.highlighters.RemoveAll(v)
	p.queue.Cancel(v)
	v.detach()
	delete(p.views, c.ID)
	delete(p.byCID, v.cid)
	p.emit(Event{Type: EventViewRemove, View: v})
}

func (p *Paper) removeAllViews() {
	for _, v := range p.views {
		p.removeView(v.cell)
	}
}

func (p *Paper) onGraphEvent(e graph.Event) {
	switch e.Type {
	case graph.EventAdd:
		p.addView(e.Cell)
		p.requestLinks(e.Cell)
	case graph.EventRemove:
		p.removeView(e.Cell)
	case graph.EventReset:
		p.removeAllViews()
		for _, c := range e.Cells {
			p.addView(c)
		}
	case graph.EventChange:
		if e.Attr == "z" || e.Cell == nil {
			return
		}
		if v := p.views[e.Cell.ID]; v != nil {
			p.requestView(v, FlagUpdate)
		}
		p.requestLinks(e.Cell)
	}
}

// requestLinks queues the links attached to c, which depend on its geometry.
func (p *Paper) requestLinks(c *graph.Cell) {
	if c.Graph() == nil {
		return
	}
	for _, l := range p.graph.ConnectedLinks(c, graph.LinkOptions{Indirect: true}) {
		if v := p.views[l.ID]; v != nil {
			p.requestView(v, FlagUpdate)
		}
	}
}
