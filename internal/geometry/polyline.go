/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"math"
	"sort"
)

// Polyline is an open sequence of connected segments.
type Polyline struct {
	Points []Point `json:"points"`
}

// Polygon is a polyline whose last point connects back to the first.
type Polygon struct {
	Polyline
}

func NewPolyline(points ...Point) Polyline {
	return Polyline{Points: append([]Point(nil), points...)}
}

func NewPolygon(points ...Point) Polygon { return Polygon{NewPolyline(points...)} }

// PolygonFromRect lists the corners clockwise from the origin.
func PolygonFromRect(r Rect) Polygon {
	return NewPolygon(r.TopLeft(), r.TopRight(), r.BottomRight(), r.BottomLeft())
}

func (p Polyline) Kind() Kind { return KindPolyline }
func (p Polygon) Kind() Kind  { return KindPolygon }

func (p Polyline) BBox() Rect { return BoundingRect(p.Points) }

func (p Polyline) Clone() Polyline { return NewPolyline(p.Points...) }

func (p Polyline) Start() (Point, bool) {
	if len(p.Points) == 0 {
		return Point{}, false
	}
	return p.Points[0], true
}

func (p Polyline) End() (Point, bool) {
	if len(p.Points) == 0 {
		return Point{}, false
	}
	return p.Points[len(p.Points)-1], true
}

// Close appends the start point when the polyline is not already closed.
func (p Polyline) Close() Polyline {
	out := p.Clone()
	s, ok := p.Start()
	if !ok {
		return out
	}
	if e, _ := p.End(); !e.Equals(s) {
		out.Points = append(out.Points, s)
	}
	return out
}

// Segments returns the lines between consecutive points.
func (p Polyline) Segments() []Line {
	if len(p.Points) < 2 {
		return nil
	}
	out := make([]Line, 0, len(p.Points)-1)
	for i := 0; i < len(p.Points)-1; i++ {
		out = append(out, Line{p.Points[i], p.Points[i+1]})
	}
	return out
}

// Segments of a polygon include the closing edge.
func (p Polygon) Segments() []Line { return p.Close().Segments() }

func (p Polyline) Length() float64 {
	var l float64
	for _, s := range p.Segments() {
		l += s.Length()
	}
	return l
}

func (p Polygon) Length() float64 { return p.Close().Length() }

// ContainsPoint reports whether p lies on the outline or inside the area
// the points enclose (even-odd rule).
func (p Polyline) ContainsPoint(pt Point) bool {
	n := len(p.Points)
	if n == 0 {
		return false
	}
	crossings := 0
	startIdx := n - 1
	for endIdx := 0; endIdx < n; endIdx++ {
		start, end := p.Points[startIdx], p.Points[endIdx]
		if pt.Equals(start) {
			return true
		}
		seg := Line{start, end}
		if seg.ContainsPoint(pt) {
			return true
		}
		if (pt.Y <= start.Y && pt.Y > end.Y) || (pt.Y > start.Y && pt.Y <= end.Y) {
			xd := math.Max(start.X-pt.X, end.X-pt.X)
			if xd >= 0 {
				ray := Line{pt, Point{pt.X + xd, pt.Y}}
				if _, ok := seg.Intersection(ray); ok {
					crossings++
				}
			}
		}
		startIdx = endIdx
	}
	return crossings%2 == 1
}

// ClosestPointLength returns the length along the polyline of the point nearest to pt.
func (p Polyline) ClosestPointLength(pt Point) float64 {
	if len(p.Points) < 2 {
		return 0
	}
	var cpLength, length float64
	minSq := math.Inf(1)
	for _, seg := range p.Segments() {
		segLen := seg.Length()
		t := seg.ClosestPointNormalizedLength(pt)
		if sq := seg.PointAt(t).SquaredDistance(pt); sq < minSq {
			minSq = sq
			cpLength = length + t*segLen
		}
		length += segLen
	}
	return cpLength
}

func (p Polyline) ClosestPoint(pt Point) Point {
	return p.PointAtLength(p.ClosestPointLength(pt))
}

// PointAtLength walks from the start, or from the end for negative lengths.
func (p Polyline) PointAtLength(length float64) Point {
	n := len(p.Points)
	if n == 0 {
		return Point{}
	}
	if n == 1 {
		return p.Points[0]
	}
	fromStart := true
	if length < 0 {
		fromStart = false
		length = -length
	}
	segs := p.Segments()
	var acc float64
	var last Line
	for i := range segs {
		idx := i
		if !fromStart {
			idx = len(segs) - 1 - i
		}
		seg := segs[idx]
		l := seg.Length()
		if length <= acc+l {
			if fromStart {
				return seg.PointAtLength(length - acc)
			}
			return seg.PointAtLength(-(length - acc))
		}
		acc += l
		last = seg
	}
	if fromStart {
		return last.End
	}
	return last.Start
}

// PointAt takes a ratio of the total length.
func (p Polyline) PointAt(ratio float64) Point {
	if ratio <= 0 {
		s, _ := p.Start()
		return s
	}
	if ratio >= 1 {
		e, _ := p.End()
		return e
	}
	return p.PointAtLength(ratio * p.Length())
}

// IntersectionWithLine collects one crossing per segment, nil when none.
func (p Polyline) IntersectionWithLine(l Line) []Point {
	return intersectSegments(p.Segments(), l)
}

func (p Polygon) IntersectionWithLine(l Line) []Point {
	return intersectSegments(p.Segments(), l)
}

func intersectSegments(segs []Line, l Line) []Point {
	var out []Point
	for _, s := range segs {
		if pt, ok := l.Intersection(s); ok {
			out = append(out, pt)
		}
	}
	return out
}

func (p Polyline) Translate(dx, dy float64) Polyline {
	out := p.Clone()
	for i := range out.Points {
		out.Points[i] = out.Points[i].Offset(dx, dy)
	}
	return out
}

func (p Polyline) Scale(sx, sy float64, origin Point) Polyline {
	out := p.Clone()
	for i := range out.Points {
		out.Points[i] = out.Points[i].Scale(sx, sy, origin)
	}
	return out
}

func (p Polyline) Rotate(origin Point, angle float64) Polyline {
	out := p.Clone()
	for i := range out.Points {
		out.Points[i] = out.Points[i].Rotate(origin, angle)
	}
	return out
}

func (p Polyline) Round(precision int) Polyline {
	out := p.Clone()
	for i := range out.Points {
		out.Points[i] = out.Points[i].Round(precision)
	}
	return out
}

// Simplify drops middle points closer than threshold to the chord of their neighbours.
func (p Polyline) Simplify(threshold float64) Polyline {
	pts := append([]Point(nil), p.Points...)
	if len(pts) < 3 {
		return Polyline{Points: pts}
	}
	i := 0
	for i+2 < len(pts) {
		chord := Line{pts[i], pts[i+2]}
		if chord.ClosestPoint(pts[i+1]).Distance(pts[i+1]) <= threshold {
			pts = append(pts[:i+1], pts[i+2:]...)
			continue
		}
		i++
	}
	return Polyline{Points: pts}
}

// ConvexHull returns the hull points (monotone chain). Collinear points on the
// hull are dropped.
func (p Polyline) ConvexHull() Polyline {
	pts := append([]Point(nil), p.Points...)
	if len(pts) < 3 {
		return Polyline{Points: pts}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X == pts[j].X {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})
	hull := make([]Point, 0, 2*len(pts))
	for _, pt := range pts {
		for len(hull) >= 2 && hull[len(hull)-2].Cross(hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		pt := pts[i]
		for len(hull) >= lower && hull[len(hull)-2].Cross(hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	return Polyline{Points: hull[:len(hull)-1]}
}
