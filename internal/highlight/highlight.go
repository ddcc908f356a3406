/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package highlight decorates nodes of cell views. Highlighters are kept in
// a Registry owned by the paper and are updated through its update queue.
package highlight

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/ids"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/schedule"
)

const (
	HighlightFlag  schedule.Flags = 1
	UpdatePriority                = 3
)

// EventInvalid is notified on the view when a highlighter's node is gone.
const EventInvalid = "cell:highlight:invalid"

var ErrMissingID = errors.New("highlight: an id is required")

// Node is a rendered part of a cell view that can be decorated.
type Node interface {
	NodeID() string
	// BBox is the node's box in paper coordinates.
	BBox() geometry.Rect
	// Outline is the node's outline in paper coordinates.
	Outline() []geometry.Point
	AddClass(name string)
	RemoveClass(name string)
	SetOpacity(v float64)
}

// View is the cell view a highlighter is attached to.
type View interface {
	CID() string
	IsMounted() bool
	// FindNode resolves a selector; nil when nothing matches.
	FindNode(selector string) Node
	Notify(event string, args ...any)
}

// Painter draws and clears one kind of highlight.
type Painter interface {
	Highlight(h *Highlighter, n Node)
	Unhighlight(h *Highlighter, n Node)
}

// Overlay is a shape a painter draws over the paper.
type Overlay struct {
	Class  string
	Points []geometry.Point // closed outline
	Rect   geometry.Rect    // used when Points is empty
	Rx, Ry float64
	Attrs  map[string]any
}

// Highlighter is one highlight of one node of a view.
type Highlighter struct {
	ID       string
	CID      string
	View     View
	Selector string
	Painter  Painter

	node            Node
	overlay         *Overlay
	updateRequested bool
	postponed       bool
	mounted         bool
	reg             *Registry
}

func (h *Highlighter) Node() Node            { return h.node }
func (h *Highlighter) Overlay() *Overlay     { return h.overlay }
func (h *Highlighter) IsMounted() bool       { return h.mounted }
func (h *Highlighter) SetOverlay(o *Overlay) { h.overlay = o }

// ConfirmUpdate runs the queued update. An unmounted view postpones it to
// the next Mount.
func (h *Highlighter) ConfirmUpdate(schedule.Flags) schedule.Flags {
	h.updateRequested = false
	if !h.View.IsMounted() {
		h.postponed = true
		return 0
	}
	h.update()
	return 0
}

func (h *Highlighter) requestUpdate() {
	h.updateRequested = true
	h.reg.queue.Request(h, HighlightFlag, UpdatePriority)
}

func (h *Highlighter) update() {
	if h.updateRequested {
		return
	}
	h.postponed = false
	prev := h.node
	h.node = h.View.FindNode(h.Selector)
	if prev != nil {
		h.Painter.Unhighlight(h, prev)
	}
	if h.node != nil {
		h.Painter.Highlight(h, h.node)
		h.mount()
		return
	}
	h.unmount()
	applog.ForView(h.reg.log, h.View.CID(), "").Debug("highlight node not found", slog.String("id", h.ID), slog.String("selector", h.Selector))
	h.View.Notify(EventInvalid, h.ID, h)
}

func (h *Highlighter) mount() {
	if h.mounted {
		return
	}
	if h.postponed {
		h.update()
		return
	}
	h.mounted = true
}

func (h *Highlighter) unmount() { h.mounted = false }

func (h *Highlighter) remove() {
	if h.node != nil {
		h.Painter.Unhighlight(h, h.node)
		h.node = nil
	}
	h.unmount()
	h.reg.queue.Cancel(h)
}

type viewRefs struct {
	byID  map[string]*Highlighter
	order []string
}

// Registry holds the highlighters of one paper, keyed by view cid and id.
type Registry struct {
	queue *schedule.Queue
	views map[string]*viewRefs
	log   *slog.Logger
}

func NewRegistry(queue *schedule.Queue, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = applog.WithComponent("highlight")
	}
	return &Registry{queue: queue, views: map[string]*viewRefs{}, log: logger}
}

// Add registers a highlighter for selector on v and requests its update. An
// id already registered for v returns the existing highlighter unchanged.
func (r *Registry) Add(v View, selector, id string, p Painter) (*Highlighter, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if h := r.Get(v, id); h != nil {
		return h, nil
	}
	h := &Highlighter{
		ID:       id,
		CID:      ids.NewHighlighterID(),
		View:     v,
		Selector: selector,
		Painter:  p,
		reg:      r,
	}
	refs := r.views[v.CID()]
	if refs == nil {
		refs = &viewRefs{byID: map[string]*Highlighter{}}
		r.views[v.CID()] = refs
	}
	refs.byID[id] = h
	refs.order = append(refs.order, id)
	h.requestUpdate()
	return h, nil
}

func (r *Registry) Get(v View, id string) *Highlighter {
	refs := r.views[v.CID()]
	if refs == nil {
		return nil
	}
	return refs.byID[id]
}

// All returns the highlighters of v in the order they were added.
func (r *Registry) All(v View) []*Highlighter {
	refs := r.views[v.CID()]
	if refs == nil {
		return nil
	}
	out := make([]*Highlighter, 0, len(refs.order))
	for _, id := range refs.order {
		out = append(out, refs.byID[id])
	}
	return out
}

// Len counts the registered highlighters.
func (r *Registry) Len() int {
	n := 0
	for _, refs := range r.views {
		n += len(refs.order)
	}
	return n
}

// Remove unhighlights and drops one highlighter of v. Unknown ids are
// ignored.
func (r *Registry) Remove(v View, id string) {
	r.removeRef(v.CID(), id)
}

// RemoveAll drops every highlighter of v.
func (r *Registry) RemoveAll(v View) {
	refs := r.views[v.CID()]
	if refs == nil {
		return
	}
	for _, id := range append([]string(nil), refs.order...) {
		r.removeRef(v.CID(), id)
	}
}

// RemoveEverywhere drops the highlighters with id from all views, or every
// highlighter when id is empty.
func (r *Registry) RemoveEverywhere(id string) {
	for cid, refs := range r.views {
		for _, hid := range append([]string(nil), refs.order...) {
			if id == "" || hid == id {
				r.removeRef(cid, hid)
			}
		}
	}
}

func (r *Registry) removeRef(cid, id string) {
	refs := r.views[cid]
	if refs == nil {
		return
	}
	h, ok := refs.byID[id]
	if !ok {
		return
	}
	h.remove()
	delete(refs.byID, id)
	for i, o := range refs.order {
		if o == id {
			refs.order = append(refs.order[:i], refs.order[i+1:]...)
			break
		}
	}
	if len(refs.order) == 0 {
		delete(r.views, cid)
	}
}

// Update re-resolves and repaints the highlighters of v (only id when set).
func (r *Registry) Update(v View, id string) {
	for _, h := range r.pick(v, id) {
		h.update()
	}
}

// Mount shows the highlighters of v, running postponed updates.
func (r *Registry) Mount(v View) {
	for _, h := range r.pick(v, "") {
		h.mount()
	}
}

func (r *Registry) Unmount(v View) {
	for _, h := range r.pick(v, "") {
		h.unmount()
	}
}

func (r *Registry) pick(v View, id string) []*Highlighter {
	if id == "" {
		return r.All(v)
	}
	if h := r.Get(v, id); h != nil {
		return []*Highlighter{h}
	}
	return nil
}

// UniqueID derives a highlighter id from a node and the painter options.
func UniqueID(n Node, opt any) string {
	b, err := json.Marshal(opt)
	if err != nil || opt == nil {
		return n.NodeID()
	}
	return n.NodeID() + string(b)
}
