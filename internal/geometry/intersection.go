/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedPair is returned by Exists for shape pairs without a test.
var ErrUnsupportedPair = errors.New("geometry: unsupported intersection pair")

// Exists reports whether two shapes intersect. Pairs handled only in the
// reverse order are swapped. Paths are flattened with the default precision.
func Exists(a, b Shape) (bool, error) {
	return exists(derefPath(a), derefPath(b), false)
}

func exists(a, b Shape, swapped bool) (bool, error) {
	switch s1 := a.(type) {
	case Line:
		if s2, ok := b.(Line); ok {
			return LineWithLine(s1, s2), nil
		}
	case Ellipse:
		switch s2 := b.(type) {
		case Line:
			return EllipseWithLine(s1, s2), nil
		case Ellipse:
			return EllipseWithEllipse(s1, s2), nil
		}
	case Rect:
		switch s2 := b.(type) {
		case Line:
			return RectWithLine(s1, s2), nil
		case Ellipse:
			return RectWithEllipse(s1, s2), nil
		case Rect:
			return RectWithRect(s1, s2), nil
		}
	case Polyline:
		switch s2 := b.(type) {
		case Line:
			return PolylineWithLine(s1, s2), nil
		case Ellipse:
			return PolylineWithEllipse(s1, s2), nil
		case Rect:
			return PolylineWithRect(s1, s2), nil
		case Polyline:
			return PolylineWithPolyline(s1, s2), nil
		}
	case Polygon:
		switch s2 := b.(type) {
		case Line:
			return PolygonWithLine(s1, s2), nil
		case Ellipse:
			return PolygonWithEllipse(s1, s2), nil
		case Rect:
			return PolygonWithRect(s1, s2), nil
		case Polyline:
			return PolygonWithPolyline(s1, s2), nil
		case Polygon:
			return PolygonWithPolygon(s1, s2), nil
		}
	case Path:
		switch s2 := b.(type) {
		case Line:
			return PathWithLine(s1, s2), nil
		case Ellipse:
			return PathWithEllipse(s1, s2), nil
		case Rect:
			return PathWithRect(s1, s2), nil
		case Polyline:
			return PathWithPolyline(s1, s2), nil
		case Polygon:
			return PathWithPolygon(s1, s2), nil
		case Path:
			return PathWithPath(s1, s2), nil
		}
	}
	if !swapped && a.Kind() != b.Kind() {
		return exists(b, a, true)
	}
	return false, fmt.Errorf("%w: %s and %s", ErrUnsupportedPair, a.Kind(), b.Kind())
}

func derefPath(s Shape) Shape {
	if p, ok := s.(*Path); ok && p != nil {
		return *p
	}
	return s
}

func LineWithLine(l1, l2 Line) bool {
	s1x := l1.End.X - l1.Start.X
	s1y := l1.End.Y - l1.Start.Y
	s2x := l2.End.X - l2.Start.X
	s2y := l2.End.Y - l2.Start.Y
	s3x := l1.Start.X - l2.Start.X
	s3y := l1.Start.Y - l2.Start.Y
	p := s1x*s2y - s2x*s1y
	s := (s1x*s3y - s1y*s3x) / p
	t := (s2x*s3y - s2y*s3x) / p
	return s >= 0 && s <= 1 && t >= 0 && t <= 1
}

func EllipseWithLine(e Ellipse, l Line) bool {
	x1 := l.Start.X - e.X
	x2 := l.End.X - e.X
	y1 := l.Start.Y - e.Y
	y2 := l.End.Y - e.Y
	rx2 := e.A * e.A
	ry2 := e.B * e.B
	dx := x2 - x1
	dy := y2 - y1
	a := dx*dx/rx2 + dy*dy/ry2
	b := 2*x1*dx/rx2 + 2*y1*dy/ry2
	c := x1*x1/rx2 + y1*y1/ry2 - 1
	d := b*b - 4*a*c
	switch {
	case d == 0:
		t := -b / 2 / a
		return t >= 0 && t <= 1
	case d > 0:
		sq := math.Sqrt(d)
		t1 := (-b + sq) / 2 / a
		t2 := (-b - sq) / 2 / a
		return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1)
	}
	return false
}

func EllipseWithEllipse(e1, e2 Ellipse) bool { return ellipsesIntersection(e1, 0, e2, 0) }

func RectWithLine(r Rect, l Line) bool {
	s, e := l.Start, l.End
	if (s.X > r.X+r.Width && e.X > r.X+r.Width) ||
		(s.X < r.X && e.X < r.X) ||
		(s.Y > r.Y+r.Height && e.Y > r.Y+r.Height) ||
		(s.Y < r.Y && e.Y < r.Y) {
		return false
	}
	if r.ContainsPoint(s) || r.ContainsPoint(e) {
		return true
	}
	return LineWithLine(r.TopLine(), l) ||
		LineWithLine(r.RightLine(), l) ||
		LineWithLine(r.BottomLine(), l) ||
		LineWithLine(r.LeftLine(), l)
}

func RectWithEllipse(r Rect, e Ellipse) bool {
	if !RectWithRect(r, RectFromEllipse(e)) {
		return false
	}
	return PolygonWithEllipse(PolygonFromRect(r), e)
}

// RectWithRect is strict: touching edges do not intersect.
func RectWithRect(r1, r2 Rect) bool {
	return r1.X < r2.X+r2.Width &&
		r1.X+r1.Width > r2.X &&
		r1.Y < r2.Y+r2.Height &&
		r1.Y+r1.Height > r2.Y
}

func PolylineWithLine(p Polyline, l Line) bool        { return polylineWithLine(p, l, false) }
func PolylineWithEllipse(p Polyline, e Ellipse) bool  { return polylineWithEllipse(p, e, false) }
func PolylineWithRect(p Polyline, r Rect) bool        { return polylineWithRect(p, r, false) }
func PolylineWithPolyline(p1, p2 Polyline) bool       { return polylineWithPolyline(p1, p2, false) }
func PolygonWithLine(p Polygon, l Line) bool          { return polylineWithLine(p.Polyline, l, true) }
func PolygonWithEllipse(p Polygon, e Ellipse) bool    { return polylineWithEllipse(p.Polyline, e, true) }
func PolygonWithRect(p Polygon, r Rect) bool          { return polylineWithRect(p.Polyline, r, true) }
func PolygonWithPolyline(p Polygon, pl Polyline) bool { return polylineWithPolyline(p.Polyline, pl, true) }
func PolygonWithPolygon(p1, p2 Polygon) bool          { return polylineWithPolygon(p1.Polyline, p2.Polyline, true) }

func PathWithLine(p Path, l Line) bool {
	for _, sp := range p.Subpaths() {
		if polylineWithLine(sp.Polyline, l, sp.Closed) {
			return true
		}
	}
	return false
}

func PathWithEllipse(p Path, e Ellipse) bool {
	for _, sp := range p.Subpaths() {
		if polylineWithEllipse(sp.Polyline, e, sp.Closed) {
			return true
		}
	}
	return false
}

func PathWithRect(p Path, r Rect) bool { return PathWithPolygon(p, PolygonFromRect(r)) }

func PathWithPolyline(p Path, pl Polyline) bool { return pathWithPolyline(p, pl, false) }

func PathWithPolygon(p Path, pg Polygon) bool { return pathWithPolyline(p, pg.Polyline, true) }

func PathWithPath(p1, p2 Path) bool {
	for _, sp := range p1.Subpaths() {
		if sp.Closed {
			if PathWithPolygon(p2, Polygon{sp.Polyline}) {
				return true
			}
		} else if PathWithPolyline(p2, sp.Polyline) {
			return true
		}
	}
	return false
}

func closedPoints(p Polyline) []Point {
	s, ok := p.Start()
	if !ok {
		return nil
	}
	if e, _ := p.End(); e.Equals(s) {
		return p.Points
	}
	return append(append([]Point(nil), p.Points...), s)
}

func polylineWithLine(p Polyline, l Line, interior bool) bool {
	pts := p.Points
	if interior {
		if p.ContainsPoint(l.Start) {
			return true
		}
		pts = closedPoints(p)
	}
	for i := 0; i < len(pts)-1; i++ {
		if LineWithLine(l, Line{pts[i], pts[i+1]}) {
			return true
		}
	}
	return false
}

func polylineWithEllipse(p Polyline, e Ellipse, interior bool) bool {
	s, ok := p.Start()
	if !ok {
		return false
	}
	if e.ContainsPoint(s) {
		return true
	}
	pts := p.Points
	if interior {
		if p.ContainsPoint(e.Center()) {
			return true
		}
		pts = closedPoints(p)
	}
	for i := 0; i < len(pts)-1; i++ {
		if EllipseWithLine(e, Line{pts[i], pts[i+1]}) {
			return true
		}
	}
	return false
}

func polylineWithRect(p Polyline, r Rect, interior bool) bool {
	return polylineWithPolygon(p, PolygonFromRect(r).Polyline, interior)
}

func polylineWithPolyline(p1, p2 Polyline, interior bool) bool {
	outline := p1
	if interior {
		if s, ok := p2.Start(); ok && p1.ContainsPoint(s) {
			return true
		}
		outline = p1.Close()
	}
	for i := 0; i < len(p2.Points)-1; i++ {
		if PolylineWithLine(outline, Line{p2.Points[i], p2.Points[i+1]}) {
			return true
		}
	}
	return false
}

func polylineWithPolygon(p Polyline, pg Polyline, interior bool) bool {
	if s, ok := p.Start(); ok && pg.ContainsPoint(s) {
		return true
	}
	return polylineWithPolyline(p, pg.Close(), interior)
}

func pathWithPolyline(p Path, pl Polyline, interior bool) bool {
	for _, sp := range p.Subpaths() {
		if sp.Closed {
			if polylineWithPolygon(pl, sp.Polyline, interior) {
				return true
			}
		} else if polylineWithPolyline(pl, sp.Polyline, interior) {
			return true
		}
	}
	return false
}

// ellipsesIntersection compares the conics of two (optionally rotated)
// ellipses; w1 and w2 are rotations in radians.
func ellipsesIntersection(e1 Ellipse, w1 float64, e2 Ellipse, w2 float64) bool {
	sinW1, cosW1 := math.Sin(w1), math.Cos(w1)
	sinW2, cosW2 := math.Sin(w2), math.Cos(w2)
	sinW1s, cosW1s, sinCos1 := sinW1*sinW1, cosW1*cosW1, sinW1*cosW1
	sinW2s, cosW2s, sinCos2 := sinW2*sinW2, cosW2*cosW2, sinW2*cosW2
	a1s, b1s := e1.A*e1.A, e1.B*e1.B
	a2s, b2s := e2.A*e2.A, e2.B*e2.B

	A1 := a1s*sinW1s + b1s*cosW1s
	A2 := a2s*sinW2s + b2s*cosW2s
	B1 := a1s*cosW1s + b1s*sinW1s
	B2 := a2s*cosW2s + b2s*sinW2s
	C1 := 2 * (b1s - a1s) * sinCos1
	C2 := 2 * (b2s - a2s) * sinCos2
	D1 := -2*A1*e1.X - C1*e1.Y
	D2 := -2*A2*e2.X - C2*e2.Y
	E1 := -C1*e1.X - 2*B1*e1.Y
	E2 := -C2*e2.X - 2*B2*e2.Y
	F1 := A1*e1.X*e1.X + B1*e1.Y*e1.Y + C1*e1.X*e1.Y - a1s*b1s
	F2 := A2*e2.X*e2.X + B2*e2.Y*e2.Y + C2*e2.X*e2.Y - a2s*b2s

	C1, C2 = C1/2, C2/2
	D1, D2 = D1/2, D2/2
	E1, E2 = E1/2, E2/2

	l3 := det3(A1, C1, D1, C1, B1, E1, D1, E1, F1)
	l0 := det3(A2, C2, D2, C2, B2, E2, D2, E2, F2)
	l2 := 0.33333333 * (det3(A2, C1, D1, C2, B1, E1, D2, E1, F1) +
		det3(A1, C2, D1, C1, B2, E1, D1, E2, F1) +
		det3(A1, C1, D2, C1, B1, E2, D1, E1, F2))
	l1 := 0.33333333 * (det3(A1, C2, D2, C1, B2, E2, D1, E2, F2) +
		det3(A2, C1, D2, C2, B1, E2, D2, E1, F2) +
		det3(A2, C2, D1, C2, B2, E1, D2, E2, F1))

	delta1 := det2(l3, l2, l2, l1)
	delta2 := det2(l3, l1, l2, l0)
	delta3 := det2(l2, l1, l1, l0)
	dP := det2(2*delta1, delta2, delta2, 2*delta3)

	return !(dP > 0 && (l1 > 0 || l2 > 0))
}

func det2(a, b, c, d float64) float64 { return a*d - b*c }

// det3 takes the matrix row by row.
func det3(m00, m01, m02, m10, m11, m12, m20, m21, m22 float64) float64 {
	return m00*m11*m22 - m00*m12*m21 - m01*m10*m22 + m01*m12*m20 + m02*m10*m21 - m02*m11*m20
}
