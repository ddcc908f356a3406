/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

var ErrUnknownLayout = errors.New("layout: unknown layout")

// Registry maps layout names to port and label layout functions.
type Registry struct {
	ports  map[string]PortLayout
	labels map[string]LabelLayout
}

// NewRegistry returns a registry holding the built-in layouts.
func NewRegistry() *Registry {
	return &Registry{
		ports: map[string]PortLayout{
			"line":          Line,
			"left":          Left,
			"right":         Right,
			"top":           Top,
			"bottom":        Bottom,
			"absolute":      Absolute,
			"ellipse":       Ellipse,
			"ellipseSpread": EllipseSpread,
		},
		labels: map[string]LabelLayout{
			"manual":          Manual,
			"left":            LabelLeft,
			"right":           LabelRight,
			"top":             LabelTop,
			"bottom":          LabelBottom,
			"outside":         Outside,
			"outsideOriented": OutsideOriented,
			"inside":          Inside,
			"insideOriented":  InsideOriented,
			"radial":          Radial,
			"radialOriented":  RadialOriented,
		},
	}
}

// RegisterPort adds or replaces a custom port layout.
func (r *Registry) RegisterPort(name string, fn PortLayout) error {
	if name == "" || fn == nil {
		return fmt.Errorf("layout: register port layout %q: name and function required", name)
	}
	r.ports[name] = fn
	return nil
}

// RegisterLabel adds or replaces a custom label layout.
func (r *Registry) RegisterLabel(name string, fn LabelLayout) error {
	if name == "" || fn == nil {
		return fmt.Errorf("layout: register label layout %q: name and function required", name)
	}
	r.labels[name] = fn
	return nil
}

func (r *Registry) Port(name string) (PortLayout, error) {
	fn, ok := r.ports[name]
	if !ok {
		return nil, fmt.Errorf("%w: port layout %q", ErrUnknownLayout, name)
	}
	return fn, nil
}

func (r *Registry) Label(name string) (LabelLayout, error) {
	fn, ok := r.labels[name]
	if !ok {
		return nil, fmt.Errorf("%w: label layout %q", ErrUnknownLayout, name)
	}
	return fn, nil
}

// PortNames lists registered port layouts, sorted.
func (r *Registry) PortNames() []string {
	out := make([]string, 0, len(r.ports))
	for k := range r.ports {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LayoutPorts runs the named layout; an empty name means "left".
func (r *Registry) LayoutPorts(name string, ports []PortArgs, bbox geometry.Rect, opt Options) ([]Transform, error) {
	if name == "" {
		name = "left"
	}
	fn, err := r.Port(name)
	if err != nil {
		return nil, err
	}
	return fn(ports, bbox, opt), nil
}

// LayoutLabel runs the named label layout; an empty name means "left".
func (r *Registry) LayoutLabel(name string, pos geometry.Point, bbox geometry.Rect, opt LabelOptions) (LabelTransform, error) {
	if name == "" {
		name = "left"
	}
	fn, err := r.Label(name)
	if err != nil {
		return LabelTransform{}, err
	}
	return fn(pos, bbox, opt), nil
}
