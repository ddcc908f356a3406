/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Line is a segment from Start to End.
type Line struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

func NewLine(start, end Point) Line { return Line{Start: start, End: end} }

func (l Line) Kind() Kind { return KindLine }

func (l Line) BBox() Rect {
	left := math.Min(l.Start.X, l.End.X)
	top := math.Min(l.Start.Y, l.End.Y)
	return Rect{X: left, Y: top, Width: math.Abs(l.End.X - l.Start.X), Height: math.Abs(l.End.Y - l.Start.Y)}
}

func (l Line) Length() float64 { return l.Start.Distance(l.End) }

func (l Line) SquaredLength() float64 { return l.Start.SquaredDistance(l.End) }

func (l Line) Vector() Point { return l.End.Difference(l.Start) }

func (l Line) Midpoint() Point { return l.Start.Lerp(l.End, 0.5) }

// IsDifferentiable is false for zero-length segments.
func (l Line) IsDifferentiable() bool { return !l.Start.Equals(l.End) }

// Angle is the clockwise angle to the positive x axis in [0, 360); NaN when degenerate.
func (l Line) Angle() float64 {
	if !l.IsDifferentiable() {
		return math.NaN()
	}
	a := -l.Start.Theta(l.End)
	if a < 0 {
		a += 360
	}
	return a
}

// Bearing returns a compass direction name for the segment.
func (l Line) Bearing() string {
	lat1 := ToRad(l.Start.Y)
	lat2 := ToRad(l.End.Y)
	dLon := ToRad(l.End.X - l.Start.X)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := ToDeg(math.Atan2(y, x))
	bearings := [...]string{"NE", "E", "SE", "S", "SW", "W", "NW", "N"}
	idx := brng - 22.5
	if idx < 0 {
		idx += 360
	}
	return bearings[int(idx/45)%len(bearings)]
}

// PointAt returns the point at ratio t, clamped to the segment.
func (l Line) PointAt(t float64) Point {
	if t <= 0 {
		return l.Start
	}
	if t >= 1 {
		return l.End
	}
	return l.Start.Lerp(l.End, t)
}

// PointAtLength measures from Start, or from End for negative lengths.
func (l Line) PointAtLength(length float64) Point {
	fromStart := true
	if length < 0 {
		fromStart = false
		length = -length
	}
	total := l.Length()
	if length >= total {
		if fromStart {
			return l.End
		}
		return l.Start
	}
	if fromStart {
		return l.PointAt(length / total)
	}
	return l.PointAt((total - length) / total)
}

// ClosestPointNormalizedLength returns the ratio of the projection of p, in [0,1].
// Zero-length segments yield 0.
func (l Line) ClosestPointNormalizedLength(p Point) float64 {
	sq := l.SquaredLength()
	if sq == 0 {
		return 0
	}
	product := l.Vector().Dot(p.Difference(l.Start))
	r := math.Min(1, math.Max(0, product/sq))
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func (l Line) ClosestPoint(p Point) Point {
	return l.PointAt(l.ClosestPointNormalizedLength(p))
}

func (l Line) ClosestPointLength(p Point) float64 {
	return l.ClosestPointNormalizedLength(p) * l.Length()
}

// Intersection returns the crossing point of two segments.
func (l Line) Intersection(o Line) (Point, bool) {
	d1 := l.Vector()
	d2 := o.Vector()
	det := d1.X*d2.Y - d1.Y*d2.X
	delta := o.Start.Difference(l.Start)
	alpha := delta.X*d2.Y - delta.Y*d2.X
	beta := delta.X*d1.Y - delta.Y*d1.X
	if det == 0 || alpha*det < 0 || beta*det < 0 {
		return Point{}, false
	}
	if det > 0 {
		if alpha > det || beta > det {
			return Point{}, false
		}
	} else if alpha < det || beta < det {
		return Point{}, false
	}
	return Point{l.Start.X + alpha*d1.X/det, l.Start.Y + alpha*d1.Y/det}, true
}

// IntersectShape returns the intersection points of the segment with a shape,
// nil when there are none.
func (l Line) IntersectShape(s Shape) []Point {
	switch v := s.(type) {
	case Line:
		if p, ok := l.Intersection(v); ok {
			return []Point{p}
		}
		return nil
	case Rect:
		return v.IntersectionWithLine(l)
	case Ellipse:
		return v.IntersectionWithLine(l)
	case Polyline:
		return v.IntersectionWithLine(l)
	case Polygon:
		return v.IntersectionWithLine(l)
	case Path:
		return v.IntersectionWithLine(l, defaultPathPrecision)
	case *Path:
		return v.IntersectionWithLine(l, defaultPathPrecision)
	}
	return nil
}

// ContainsPoint reports whether p lies on the segment.
func (l Line) ContainsPoint(p Point) bool {
	if l.Start.Cross(p, l.End) != 0 {
		return false
	}
	length := l.Length()
	if l.Start.Distance(p) > length {
		return false
	}
	return p.Distance(l.End) <= length
}

// PointOffset is the signed distance of p from the infinite line.
func (l Line) PointOffset(p Point) float64 {
	det := (l.End.X-l.Start.X)*(p.Y-l.Start.Y) - (l.End.Y-l.Start.Y)*(p.X-l.Start.X)
	return det / l.Length()
}

// Parallel returns a copy shifted by distance along the left-hand normal.
func (l Line) Parallel(distance float64) Line {
	if !l.IsDifferentiable() {
		return l
	}
	eRef := l.Start.Rotate(l.End, 270)
	sRef := l.End.Rotate(l.Start, 90)
	return Line{Start: l.Start.Move(sRef, distance), End: l.End.Move(eRef, distance)}
}

// SetLength scales the segment around Start.
func (l Line) SetLength(length float64) Line {
	cur := l.Length()
	if cur == 0 {
		return l
	}
	f := length / cur
	return l.Scale(f, f, l.Start)
}

func (l Line) Scale(sx, sy float64, origin Point) Line {
	return Line{l.Start.Scale(sx, sy, origin), l.End.Scale(sx, sy, origin)}
}

func (l Line) Rotate(origin Point, angle float64) Line {
	return Line{l.Start.Rotate(origin, angle), l.End.Rotate(origin, angle)}
}

func (l Line) Translate(dx, dy float64) Line {
	return Line{l.Start.Offset(dx, dy), l.End.Offset(dx, dy)}
}

func (l Line) Round(precision int) Line {
	return Line{l.Start.Round(precision), l.End.Round(precision)}
}

func (l Line) Equals(o Line) bool { return l.Start.Equals(o.Start) && l.End.Equals(o.End) }
