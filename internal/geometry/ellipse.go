/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Ellipse is centered at (X, Y) with semi-axes A (horizontal) and B (vertical).
type Ellipse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// EllipseFromRect inscribes an ellipse in r.
func EllipseFromRect(r Rect) Ellipse {
	c := r.Center()
	return Ellipse{X: c.X, Y: c.Y, A: r.Width / 2, B: r.Height / 2}
}

func (e Ellipse) Kind() Kind    { return KindEllipse }
func (e Ellipse) BBox() Rect    { return RectFromEllipse(e) }
func (e Ellipse) Center() Point { return Point{e.X, e.Y} }

// NormalizedDistance is <1 inside, 1 on the boundary and >1 outside.
func (e Ellipse) NormalizedDistance(p Point) float64 {
	dx, dy := p.X-e.X, p.Y-e.Y
	return dx*dx/(e.A*e.A) + dy*dy/(e.B*e.B)
}

func (e Ellipse) ContainsPoint(p Point) bool { return e.NormalizedDistance(p) <= 1 }

func (e Ellipse) Inflate(dx, dy float64) Ellipse {
	e.A += 2 * dx
	e.B += 2 * dy
	return e
}

func (e Ellipse) Equals(o Ellipse) bool {
	return e.X == o.X && e.Y == o.Y && e.A == o.A && e.B == o.B
}

// IntersectionWithLine solves the segment/ellipse quadratic for t in [0,1].
func (e Ellipse) IntersectionWithLine(l Line) []Point {
	rx2, ry2 := e.A*e.A, e.B*e.B
	dir := l.Vector()
	diff := l.Start.Difference(e.Center())
	mDir := Point{dir.X / rx2, dir.Y / ry2}
	mDiff := Point{diff.X / rx2, diff.Y / ry2}
	a := dir.Dot(mDir)
	b := dir.Dot(mDiff)
	c := diff.Dot(mDiff) - 1
	d := b*b - a*c
	if d < 0 || a == 0 {
		return nil
	}
	var out []Point
	if d > 0 {
		root := math.Sqrt(d)
		ta := (-b - root) / a
		tb := (-b + root) / a
		if ta >= 0 && ta <= 1 {
			out = append(out, l.Start.Lerp(l.End, ta))
		}
		if tb >= 0 && tb <= 1 {
			out = append(out, l.Start.Lerp(l.End, tb))
		}
		return out
	}
	if t := -b / a; t >= 0 && t <= 1 {
		out = append(out, l.Start.Lerp(l.End, t))
	}
	return out
}

// IntersectionWithLineFromCenterToPoint returns the boundary point on the
// ray from the center through p, with the ellipse rotated by angle.
func (e Ellipse) IntersectionWithLineFromCenterToPoint(p Point, angle float64) Point {
	center := e.Center()
	if angle != 0 {
		p = p.Rotate(center, angle)
	}
	dx := p.X - e.X
	dy := p.Y - e.Y
	var result Point
	if dx == 0 {
		result = e.BBox().PointNearestToPoint(p)
	} else {
		m := dy / dx
		x := math.Sqrt(1 / (1/(e.A*e.A) + m*m/(e.B*e.B)))
		if dx < 0 {
			x = -x
		}
		result = Point{e.X + x, e.Y + m*x}
	}
	if angle != 0 {
		return result.Rotate(center, -angle)
	}
	return result
}

// TangentTheta returns the angle of the tangent at boundary point p.
func (e Ellipse) TangentTheta(p Point) float64 {
	const refPointDelta = 30
	x0, y0 := p.X, p.Y
	a, b := e.A, e.B
	center := e.BBox().Center()
	m, n := center.X, center.Y

	q1 := x0 > center.X+a/2
	q3 := x0 < center.X-a/2

	var x, y float64
	if q1 || q3 {
		if x0 > center.X {
			y = y0 - refPointDelta
		} else {
			y = y0 + refPointDelta
		}
		x = a*a/(x0-m) - (a*a*(y0-n)*(y-n))/(b*b*(x0-m)) + m
	} else {
		if y0 > center.Y {
			x = x0 + refPointDelta
		} else {
			x = x0 - refPointDelta
		}
		y = b*b/(y0-n) - (b*b*(x0-m)*(x-m))/(a*a*(y0-n)) + n
	}
	return Point{x, y}.Theta(p)
}
