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
	"slices"
	"strings"

	"github.com/clientIO/joint-sub027/internal/connect"
	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/ids"
)

const (
	TypeRectangle  = "standard.Rectangle"
	TypeEllipse    = "standard.Ellipse"
	TypeCircle     = "standard.Circle"
	TypeRhombus    = "standard.Rhombus"
	TypeTriangle   = "standard.Triangle"
	TypePolygon    = "standard.Polygon"
	TypeLink       = "standard.Link"
	TypeDoubleLink = "standard.DoubleLink"
)

// Factory returns a new cell carrying the defaults of one type.
type Factory func() *Cell

// Entry binds a type tag to its factory.
type Entry struct {
	Type    string
	Factory Factory
}

// Registry maps type tags to factories. It cannot change once built.
type Registry struct {
	factories map[string]Factory
	types     []string
}

// NewRegistry validates entries and builds a registry: tags are dotted
// ("namespace.Name"), unique, and their factory builds a cell of that type.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory, len(entries))}
	for _, e := range entries {
		if !validTag(e.Type) {
			return nil, fmt.Errorf("%w: %q is not a dotted type tag", ErrInvalidType, e.Type)
		}
		if _, dup := r.factories[e.Type]; dup {
			return nil, fmt.Errorf("%w: %q registered twice", ErrInvalidType, e.Type)
		}
		if e.Factory == nil {
			return nil, fmt.Errorf("%w: %q has no factory", ErrInvalidType, e.Type)
		}
		if c := e.Factory(); c == nil || c.Type != e.Type {
			return nil, fmt.Errorf("%w: factory for %q builds another type", ErrInvalidType, e.Type)
		}
		r.factories[e.Type] = e.Factory
		r.types = append(r.types, e.Type)
	}
	slices.Sort(r.types)
	return r, nil
}

func validTag(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\r\n/") {
			return false
		}
	}
	return true
}

func (r *Registry) Has(typ string) bool {
	_, ok := r.factories[typ]
	return ok
}

// Types lists the registered tags, sorted.
func (r *Registry) Types() []string { return slices.Clone(r.types) }

// New returns a fresh cell of typ without id.
func (r *Registry) New(typ string) (*Cell, error) {
	f, ok := r.factories[typ]
	if !ok {
		return nil, &ConfigurationError{Type: typ}
	}
	return f(), nil
}

// Build makes a cell from an attribute bag.
func (r *Registry) Build(attrs Attributes) (*Cell, error) {
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("graph: cell attributes: %w", err)
	}
	return r.BuildJSON(b)
}

// BuildJSON makes a cell from its JSON attribute bag. Cells without id get a
// uuid.
func (r *Registry) BuildJSON(data []byte) (*Cell, error) {
	var head struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("graph: cell: %w", err)
	}
	typ, ok := head.Type.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("%w: cell without a type", ErrInvalidType)
	}
	c, err := r.New(typ)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = ids.NewCellID()
	}
	c.ensurePortIDs()
	return c, nil
}

// DefaultRegistry holds the standard shapes and links.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(StandardEntries()...)
	if err != nil {
		panic(err)
	}
	return r
}

func StandardEntries() []Entry {
	element := func(typ string, shape func() connect.Shape) Entry {
		return Entry{Type: typ, Factory: func() *Cell { return NewElement(typ, shape(), bodyAttrs()) }}
	}
	return []Entry{
		element(TypeRectangle, connect.Rectangle),
		element(TypeEllipse, connect.EllipseShape),
		element(TypeCircle, connect.EllipseShape),
		element(TypeRhombus, connect.Rhombus),
		element(TypeTriangle, connect.Triangle),
		element(TypePolygon, func() connect.Shape {
			return connect.PolygonShape(geometry.Pt(0.5, 0), geometry.Pt(1, 0.4), geometry.Pt(0.8, 1), geometry.Pt(0.2, 1), geometry.Pt(0, 0.4))
		}),
		{Type: TypeLink, Factory: func() *Cell {
			return NewLink(TypeLink, map[string]any{
				"line": map[string]any{"stroke": "#333333", "strokeWidth": 2.0},
			})
		}},
		{Type: TypeDoubleLink, Factory: func() *Cell {
			return NewLink(TypeDoubleLink, map[string]any{
				"line":    map[string]any{"stroke": "#ffffff", "strokeWidth": 4.0},
				"outline": map[string]any{"stroke": "#333333", "strokeWidth": 6.0},
			})
		}},
	}
}

func bodyAttrs() map[string]any {
	return map[string]any{
		"body":  map[string]any{"fill": "#ffffff", "stroke": "#333333", "strokeWidth": 2.0},
		"label": map[string]any{"fill": "#333333", "fontSize": 14.0, "text": ""},
	}
}
