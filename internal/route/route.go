/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package route turns link vertices into route points (routers) and route
// points into a drawable path (connectors).
//
// A router sees the anchors and bounding boxes of both link ends plus the
// element boxes it should avoid, and returns the points between the ends.
// The connection points are resolved afterwards against the first and last
// route point, and a connector draws source point, route and target point.
package route

import (
	"errors"
	"fmt"

	"github.com/clientIO/joint-sub027/internal/connect"
	"github.com/clientIO/joint-sub027/internal/geometry"
)

var (
	ErrUnknownRouter    = errors.New("route: unknown router")
	ErrUnknownConnector = errors.New("route: unknown connector")
	// ErrNoRoute is returned by a pathfinding router that gave up; the
	// registry falls back to the orthogonal router.
	ErrNoRoute = errors.New("route: no route found")
)

// RouterSpec names a router and its arguments as stored on a link.
type RouterSpec struct {
	Name string        `json:"name"`
	Args RouterOptions `json:"args"`
}

// ConnectorSpec names a connector and its arguments as stored on a link.
type ConnectorSpec struct {
	Name string           `json:"name"`
	Args ConnectorOptions `json:"args"`
}

// Clone copies s; nil stays nil.
func (s *RouterSpec) Clone() *RouterSpec {
	if s == nil {
		return nil
	}
	out := *s
	out.Args = s.Args.clone()
	return &out
}

// Clone copies s; nil stays nil.
func (s *ConnectorSpec) Clone() *ConnectorSpec {
	if s == nil {
		return nil
	}
	out := *s
	out.Args = s.Args.clone()
	return &out
}

// RouterOptions are the arguments of all built-in routers; each router reads
// the fields it understands. Zero values select the defaults.
type RouterOptions struct {
	// Padding around the end boxes: orthogonal 20, manhattan one step.
	Padding *connect.Sides `json:"padding,omitempty"`
	// Step is the manhattan grid size, default 10.
	Step float64 `json:"step,omitempty"`
	// MaximumLoops bounds the manhattan search, default 2000.
	MaximumLoops int `json:"maximumLoops,omitempty"`
	// MaxAllowedDirectionChange in degrees, default 90.
	MaxAllowedDirectionChange float64 `json:"maxAllowedDirectionChange,omitempty"`
	// StartDirections and EndDirections name the sides a manhattan route
	// may leave and enter by: top, right, bottom, left.
	StartDirections []string `json:"startDirections,omitempty"`
	EndDirections   []string `json:"endDirections,omitempty"`
	// ExcludeEnds lists "source" and/or "target" to not avoid those elements.
	ExcludeEnds []string `json:"excludeEnds,omitempty"`
	// ExcludeTypes lists cell types that are not obstacles.
	ExcludeTypes []string `json:"excludeTypes,omitempty"`
}

func (o RouterOptions) clone() RouterOptions {
	if o.Padding != nil {
		p := *o.Padding
		o.Padding = &p
	}
	o.StartDirections = append([]string(nil), o.StartDirections...)
	o.EndDirections = append([]string(nil), o.EndDirections...)
	o.ExcludeEnds = append([]string(nil), o.ExcludeEnds...)
	o.ExcludeTypes = append([]string(nil), o.ExcludeTypes...)
	return o
}

func (o RouterOptions) padding(def float64) connect.Sides {
	if o.Padding != nil {
		return *o.Padding
	}
	return connect.AllSides(def)
}

// paddingBox turns sides into a MoveAndExpand delta.
func paddingBox(s connect.Sides) geometry.Rect {
	return geometry.Rect{X: -s.Left, Y: -s.Top, Width: s.Left + s.Right, Height: s.Top + s.Bottom}
}

// Obstacle is an element box a router may have to avoid.
type Obstacle struct {
	ID   string
	Type string
	BBox geometry.Rect
}

// Request is the input of a router. Free link ends have a zero-size box at
// the end point and an empty ID.
type Request struct {
	Vertices     []geometry.Point
	SourceAnchor geometry.Point
	TargetAnchor geometry.Point
	SourceBBox   geometry.Rect
	TargetBBox   geometry.Rect
	SourceID     string
	TargetID     string
	// Obstacles are the candidate element boxes; the caller leaves out the
	// ancestors of both ends. ExcludeEnds and ExcludeTypes apply on top.
	Obstacles []Obstacle
}

// RouterFunc returns the route points between the two anchors.
type RouterFunc func(req Request, opt RouterOptions) ([]geometry.Point, error)

// Connection is the input of a connector.
type Connection struct {
	SourcePoint geometry.Point
	TargetPoint geometry.Point
	Route       []geometry.Point
	// SourceBBox and TargetBBox let the curve connector pick tangents.
	SourceBBox geometry.Rect
	TargetBBox geometry.Rect
	// Crossings are the routes of other links the jumpover connector jumps.
	Crossings [][]geometry.Point
}

// points is source point, route and target point.
func (c Connection) points() []geometry.Point {
	out := make([]geometry.Point, 0, len(c.Route)+2)
	out = append(out, c.SourcePoint)
	out = append(out, c.Route...)
	return append(out, c.TargetPoint)
}

// ConnectorFunc draws a connection.
type ConnectorFunc func(c Connection, opt ConnectorOptions) (geometry.Path, error)

// Registry holds routers and connectors by name, and the defaults used when
// a link names none.
type Registry struct {
	routers    map[string]RouterFunc
	connectors map[string]ConnectorFunc

	DefaultRouter    RouterSpec
	DefaultConnector ConnectorSpec
}

func NewRegistry() *Registry {
	return &Registry{
		routers: map[string]RouterFunc{
			"normal":     Normal,
			"orthogonal": Orthogonal,
			"manhattan":  Manhattan,
		},
		connectors: map[string]ConnectorFunc{
			"normal":   NormalConnector,
			"straight": Straight,
			"rounded":  Rounded,
			"smooth":   Smooth,
			"curve":    Curve,
			"jumpover": Jumpover,
		},
		DefaultRouter:    RouterSpec{Name: "normal"},
		DefaultConnector: ConnectorSpec{Name: "normal"},
	}
}

func (r *Registry) RegisterRouter(name string, fn RouterFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("route: register router %q: name and function required", name)
	}
	r.routers[name] = fn
	return nil
}

func (r *Registry) RegisterConnector(name string, fn ConnectorFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("route: register connector %q: name and function required", name)
	}
	r.connectors[name] = fn
	return nil
}

func (r *Registry) Router(name string) (RouterFunc, error) {
	fn, ok := r.routers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRouter, name)
	}
	return fn, nil
}

func (r *Registry) Connector(name string) (ConnectorFunc, error) {
	fn, ok := r.connectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnector, name)
	}
	return fn, nil
}

// Route runs spec (or the default). A router that reports ErrNoRoute is
// replaced by the orthogonal router with the same options.
func (r *Registry) Route(req Request, spec *RouterSpec) ([]geometry.Point, error) {
	s := r.DefaultRouter
	if spec != nil && spec.Name != "" {
		s = *spec
	}
	fn, err := r.Router(s.Name)
	if err != nil {
		return nil, err
	}
	pts, err := fn(req, s.Args)
	if errors.Is(err, ErrNoRoute) {
		return Orthogonal(req, s.Args)
	}
	return pts, err
}

// Connect runs spec (or the default).
func (r *Registry) Connect(c Connection, spec *ConnectorSpec) (geometry.Path, error) {
	s := r.DefaultConnector
	if spec != nil && spec.Name != "" {
		s = *spec
	}
	fn, err := r.Connector(s.Name)
	if err != nil {
		return geometry.Path{}, err
	}
	return fn(c, s.Args)
}

// Normal returns the vertices unchanged.
func Normal(req Request, _ RouterOptions) ([]geometry.Point, error) {
	return append([]geometry.Point(nil), req.Vertices...), nil
}
