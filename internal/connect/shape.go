/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package connect resolves where links attach to elements: element outlines,
// anchors and connection points.
package connect

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

var ErrUnknownShape = errors.New("connect: unknown shape")

// ShapeKind is the fixed outline taxonomy of elements.
type ShapeKind uint8

const (
	ShapeRectangle ShapeKind = iota
	ShapeEllipse
	ShapeRhombus
	ShapeTriangle
	ShapeHexagon
	ShapePolygon
)

var shapeNames = [...]string{
	ShapeRectangle: "rectangle",
	ShapeEllipse:   "ellipse",
	ShapeRhombus:   "rhombus",
	ShapeTriangle:  "triangle",
	ShapeHexagon:   "hexagon",
	ShapePolygon:   "polygon",
}

func (k ShapeKind) String() string {
	if int(k) < len(shapeNames) {
		return shapeNames[k]
	}
	return "unknown"
}

func ParseShapeKind(name string) (ShapeKind, error) {
	for i, n := range shapeNames {
		if strings.EqualFold(n, name) {
			return ShapeKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// Shape is an element outline. Points are only used by ShapePolygon and are
// relative to the bbox: (0,0) is the origin, (1,1) the corner.
type Shape struct {
	Kind   ShapeKind
	Points []geometry.Point
}

func Rectangle() Shape { return Shape{Kind: ShapeRectangle} }

func EllipseShape() Shape { return Shape{Kind: ShapeEllipse} }

func Rhombus() Shape { return Shape{Kind: ShapeRhombus} }

func Triangle() Shape { return Shape{Kind: ShapeTriangle} }

func Hexagon() Shape { return Shape{Kind: ShapeHexagon} }

func PolygonShape(points ...geometry.Point) Shape {
	return Shape{Kind: ShapePolygon, Points: append([]geometry.Point(nil), points...)}
}

// Vertices returns the outline corners in traversal order, nil for ellipses.
func (s Shape) Vertices(bbox geometry.Rect) []geometry.Point {
	switch s.Kind {
	case ShapeRectangle:
		return []geometry.Point{bbox.Origin(), bbox.TopRight(), bbox.Corner(), bbox.BottomLeft()}
	case ShapeRhombus:
		return []geometry.Point{bbox.TopMiddle(), bbox.RightMiddle(), bbox.BottomMiddle(), bbox.LeftMiddle()}
	case ShapeTriangle:
		return []geometry.Point{bbox.TopMiddle(), bbox.Corner(), bbox.BottomLeft()}
	case ShapeHexagon:
		return []geometry.Point{
			geometry.NewLine(bbox.TopMiddle(), bbox.Origin()).Midpoint(),
			geometry.NewLine(bbox.TopMiddle(), bbox.TopRight()).Midpoint(),
			bbox.RightMiddle(),
			geometry.NewLine(bbox.BottomMiddle(), bbox.Corner()).Midpoint(),
			geometry.NewLine(bbox.BottomMiddle(), bbox.BottomLeft()).Midpoint(),
			bbox.LeftMiddle(),
		}
	case ShapePolygon:
		out := make([]geometry.Point, len(s.Points))
		for i, p := range s.Points {
			out[i] = geometry.Pt(bbox.X+p.X*bbox.Width, bbox.Y+p.Y*bbox.Height)
		}
		return out
	}
	return nil
}

// Outline returns the outline geometry inside bbox.
func (s Shape) Outline(bbox geometry.Rect) geometry.Shape {
	switch s.Kind {
	case ShapeRectangle:
		return bbox
	case ShapeEllipse:
		return geometry.EllipseFromRect(bbox)
	}
	return geometry.NewPolygon(s.Vertices(bbox)...)
}

// Edges lists the outline edges in traversal order, closing edge last.
func (s Shape) Edges(bbox geometry.Rect) []geometry.Line {
	v := s.Vertices(bbox)
	if len(v) < 2 {
		return nil
	}
	edges := make([]geometry.Line, len(v))
	for i := range v {
		edges[i] = geometry.NewLine(v[i], v[(i+1)%len(v)])
	}
	return edges
}

// ContainsPoint reports whether p lies inside or on the outline.
func (s Shape) ContainsPoint(bbox geometry.Rect, p geometry.Point) bool {
	switch o := s.Outline(bbox).(type) {
	case geometry.Rect:
		return o.ContainsPoint(p)
	case geometry.Ellipse:
		return o.ContainsPoint(p)
	case geometry.Polygon:
		return o.ContainsPoint(p)
	}
	return false
}

// ConnectionPoint returns where the ray from the bbox centre towards ref
// leaves the outline. Polygonal outlines test their edges in traversal order
// and the first hit wins. A zero-size bbox, a ref at the centre or a miss
// yield the centre.
func (s Shape) ConnectionPoint(bbox geometry.Rect, ref geometry.Point) geometry.Point {
	center := bbox.Center()
	if bbox.Width <= 0 || bbox.Height <= 0 || ref.Equals(center) {
		return center
	}
	far := reach(center, ref, bbox)
	switch s.Kind {
	case ShapeRectangle:
		if p, ok := bbox.IntersectionWithLineFromCenterToPoint(far, 0); ok {
			return p
		}
	case ShapeEllipse:
		return geometry.EllipseFromRect(bbox).IntersectionWithLineFromCenterToPoint(ref, 0)
	default:
		ray := geometry.NewLine(center, far)
		for _, edge := range s.Edges(bbox) {
			if p, ok := edge.Intersection(ray); ok {
				return p
			}
		}
	}
	return center
}

// reach extends center->ref so it leaves bbox even when ref lies inside.
func reach(center, ref geometry.Point, bbox geometry.Rect) geometry.Point {
	d := center.Distance(ref)
	diag := math.Hypot(bbox.Width, bbox.Height)
	if d >= diag {
		return ref
	}
	return center.Lerp(ref, diag/d)
}

type shapeJSON struct {
	Kind   string           `json:"kind"`
	Points []geometry.Point `json:"points,omitempty"`
}

// MarshalJSON writes the bare name, or an object for polygons.
func (s Shape) MarshalJSON() ([]byte, error) {
	if s.Kind != ShapePolygon {
		return json.Marshal(s.Kind.String())
	}
	return json.Marshal(shapeJSON{Kind: s.Kind.String(), Points: s.Points})
}

func (s *Shape) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		k, err := ParseShapeKind(name)
		if err != nil {
			return err
		}
		*s = Shape{Kind: k}
		return nil
	}
	var raw shapeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("connect: shape: %w", err)
	}
	k, err := ParseShapeKind(raw.Kind)
	if err != nil {
		return err
	}
	*s = Shape{Kind: k, Points: raw.Points}
	return nil
}
