/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Point is a 2D point or vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Offset(dx, dy float64) Point { return Point{p.X + dx, p.Y + dy} }

// Difference returns p - q.
func (p Point) Difference(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

func (p Point) Distance(q Point) float64 { return math.Sqrt(p.SquaredDistance(q)) }

func (p Point) SquaredDistance(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

func (p Point) ManhattanDistance(q Point) float64 {
	return math.Abs(q.X-p.X) + math.Abs(q.Y-p.Y)
}

func (p Point) Magnitude() float64 { return math.Sqrt(p.X*p.X + p.Y*p.Y) }

// Normalize scales the vector to the given length (1 when length is 0).
// A zero vector is returned unchanged.
func (p Point) Normalize(length float64) Point {
	if length == 0 {
		length = 1
	}
	m := p.Magnitude()
	if m == 0 {
		return p
	}
	s := length / m
	return Point{p.X * s, p.Y * s}
}

func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of (p1-p) x (p2-p).
func (p Point) Cross(p1, p2 Point) float64 {
	return (p1.X-p.X)*(p2.Y-p.Y) - (p1.Y-p.Y)*(p2.X-p.X)
}

func (p Point) Equals(q Point) bool { return p.X == q.X && p.Y == q.Y }

func (p Point) Lerp(q Point, t float64) Point {
	return Point{(1-t)*p.X + t*q.X, (1-t)*p.Y + t*q.Y}
}

// Theta is the angle of the vector p->q in degrees, [0, 360), y axis inverted.
func (p Point) Theta(q Point) float64 {
	y := -(q.Y - p.Y)
	x := q.X - p.X
	rad := math.Atan2(y, x)
	if rad < 0 {
		rad = 2*math.Pi + rad
	}
	return 180 * rad / math.Pi
}

// AngleBetween returns the angle at p between p1 and p2 in [0, 360).
// NaN when p coincides with either point.
func (p Point) AngleBetween(p1, p2 Point) float64 {
	if p.Equals(p1) || p.Equals(p2) {
		return math.NaN()
	}
	a := p.Theta(p2) - p.Theta(p1)
	if a < 0 {
		a += 360
	}
	return a
}

// VectorAngle treats p and q as vectors from the origin.
func (p Point) VectorAngle(q Point) float64 {
	return Point{}.AngleBetween(p, q)
}

// ChangeInAngle measures how the angle around ref changes when p moved by (dx, dy).
func (p Point) ChangeInAngle(dx, dy float64, ref Point) float64 {
	return p.Offset(-dx, -dy).Theta(ref) - p.Theta(ref)
}

// Rotate rotates p around origin by angle degrees (counter-clockwise on screen).
func (p Point) Rotate(origin Point, angle float64) Point {
	if angle == 0 {
		return p
	}
	rad := ToRad(NormalizeAngle(-angle))
	c, s := math.Cos(rad), math.Sin(rad)
	return Point{
		X: c*(p.X-origin.X) - s*(p.Y-origin.Y) + origin.X,
		Y: s*(p.X-origin.X) + c*(p.Y-origin.Y) + origin.Y,
	}
}

// Move moves p along the line from ref through p by distance.
// Negative distance moves towards ref.
func (p Point) Move(ref Point, distance float64) Point {
	theta := ToRad(ref.Theta(p))
	return p.Offset(math.Cos(theta)*distance, -math.Sin(theta)*distance)
}

// Reflection mirrors p through ref.
func (p Point) Reflection(ref Point) Point {
	return ref.Move(p, ref.Distance(p))
}

func (p Point) Scale(sx, sy float64, origin Point) Point {
	return Point{origin.X + sx*(p.X-origin.X), origin.Y + sy*(p.Y-origin.Y)}
}

func (p Point) Round(precision int) Point {
	return Point{Round(p.X, precision), Round(p.Y, precision)}
}

func (p Point) SnapToGrid(gx, gy float64) Point {
	if gy == 0 {
		gy = gx
	}
	return Point{SnapToGrid(p.X, gx), SnapToGrid(p.Y, gy)}
}

// ChooseClosest returns the point nearest to p; false for an empty slice.
func (p Point) ChooseClosest(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	best, bestD := points[0], math.Inf(1)
	for _, q := range points {
		if d := p.SquaredDistance(q); d < bestD {
			best, bestD = q, d
		}
	}
	return best, true
}

// AdhereToRect clamps p into r.
func (p Point) AdhereToRect(r Rect) Point {
	if r.ContainsPoint(p) {
		return p
	}
	return Point{
		X: math.Min(math.Max(p.X, r.X), r.X+r.Width),
		Y: math.Min(math.Max(p.Y, r.Y), r.Y+r.Height),
	}
}

// ToPolar returns (distance, angle in radians) relative to origin.
func (p Point) ToPolar(origin Point) Point {
	return Point{p.Distance(origin), ToRad(origin.Theta(p))}
}

// FromPolar builds a point at distance and angle (radians) from origin.
func FromPolar(distance, angle float64, origin Point) Point {
	x := math.Abs(distance * math.Cos(angle))
	y := math.Abs(distance * math.Sin(angle))
	deg := NormalizeAngle(ToDeg(angle))
	switch {
	case deg < 90:
		y = -y
	case deg < 180:
		x, y = -x, -y
	case deg < 270:
		x = -x
	}
	return Point{origin.X + x, origin.Y + y}
}

func (p Point) String() string { return formatNum(p.X) + "@" + formatNum(p.Y) }
