/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package connect

import (
	"errors"
	"fmt"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

var (
	ErrUnknownAnchor          = errors.New("connect: unknown anchor")
	ErrUnknownConnectionPoint = errors.New("connect: unknown connection point")
)

// AnchorSpec names an anchor and its arguments as stored on a link end.
type AnchorSpec struct {
	Name string        `json:"name"`
	Args AnchorOptions `json:"args"`
}

// ConnectionPointSpec names a connection point and its arguments.
type ConnectionPointSpec struct {
	Name string                 `json:"name"`
	Args ConnectionPointOptions `json:"args"`
}

// Registry holds anchors and connection points by name, and the defaults
// used when a link end names none.
type Registry struct {
	anchors          map[string]AnchorFunc
	connectionPoints map[string]ConnectionPointFunc

	DefaultAnchor          AnchorSpec
	DefaultConnectionPoint ConnectionPointSpec
}

func NewRegistry() *Registry {
	return &Registry{
		anchors: map[string]AnchorFunc{
			"center":        Center,
			"top":           Top,
			"bottom":        Bottom,
			"left":          Left,
			"right":         Right,
			"topLeft":       TopLeft,
			"topRight":      TopRight,
			"bottomLeft":    BottomLeft,
			"bottomRight":   BottomRight,
			"perpendicular": Perpendicular,
			"midSide":       MidSide,
			"modelCenter":   ModelCenter,
		},
		connectionPoints: map[string]ConnectionPointFunc{
			"anchor":    AnchorPoint,
			"bbox":      BBoxPoint,
			"rectangle": RectanglePoint,
			"boundary":  BoundaryPoint,
		},
		DefaultAnchor:          AnchorSpec{Name: "center"},
		DefaultConnectionPoint: ConnectionPointSpec{Name: "bbox"},
	}
}

func (r *Registry) RegisterAnchor(name string, fn AnchorFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("connect: register anchor %q: name and function required", name)
	}
	r.anchors[name] = fn
	return nil
}

func (r *Registry) RegisterConnectionPoint(name string, fn ConnectionPointFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("connect: register connection point %q: name and function required", name)
	}
	r.connectionPoints[name] = fn
	return nil
}

func (r *Registry) Anchor(name string) (AnchorFunc, error) {
	fn, ok := r.anchors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnchor, name)
	}
	return fn, nil
}

func (r *Registry) ConnectionPoint(name string) (ConnectionPointFunc, error) {
	fn, ok := r.connectionPoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnectionPoint, name)
	}
	return fn, nil
}

// ResolveAnchor runs spec (or the default) against m.
func (r *Registry) ResolveAnchor(m Magnet, ref geometry.Point, spec *AnchorSpec) (geometry.Point, error) {
	s := r.DefaultAnchor
	if spec != nil && spec.Name != "" {
		s = *spec
	}
	fn, err := r.Anchor(s.Name)
	if err != nil {
		return geometry.Point{}, err
	}
	return fn(m, ref, s.Args), nil
}

// ResolveConnectionPoint runs spec (or the default) on the line ref->anchor.
func (r *Registry) ResolveConnectionPoint(m Magnet, ref, anchor geometry.Point, spec *ConnectionPointSpec) (geometry.Point, error) {
	s := r.DefaultConnectionPoint
	if spec != nil && spec.Name != "" {
		s = *spec
	}
	fn, err := r.ConnectionPoint(s.Name)
	if err != nil {
		return geometry.Point{}, err
	}
	return fn(geometry.NewLine(ref, anchor), m, s.Args), nil
}
