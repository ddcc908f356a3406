/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Side names one edge of a rectangle.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, Width: w, Height: h} }

// RectFromPoints returns the normalized rectangle spanned by a and b.
func RectFromPoints(a, b Point) Rect {
	return Rect{X: a.X, Y: a.Y, Width: b.X - a.X, Height: b.Y - a.Y}.Normalize()
}

// RectFromEllipse returns the bounding box of e.
func RectFromEllipse(e Ellipse) Rect {
	return Rect{X: e.X - e.A, Y: e.Y - e.B, Width: 2 * e.A, Height: 2 * e.B}
}

// BoundingRect returns the smallest rectangle containing all points.
func BoundingRect(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r Rect) Kind() Kind { return KindRect }
func (r Rect) BBox() Rect { return r }

func (r Rect) Origin() Point       { return Point{r.X, r.Y} }
func (r Rect) TopLeft() Point      { return r.Origin() }
func (r Rect) TopRight() Point     { return Point{r.X + r.Width, r.Y} }
func (r Rect) BottomLeft() Point   { return Point{r.X, r.Y + r.Height} }
func (r Rect) Corner() Point       { return Point{r.X + r.Width, r.Y + r.Height} }
func (r Rect) BottomRight() Point  { return r.Corner() }
func (r Rect) Center() Point       { return Point{r.X + r.Width/2, r.Y + r.Height/2} }
func (r Rect) TopMiddle() Point    { return Point{r.X + r.Width/2, r.Y} }
func (r Rect) BottomMiddle() Point { return Point{r.X + r.Width/2, r.Y + r.Height} }
func (r Rect) LeftMiddle() Point   { return Point{r.X, r.Y + r.Height/2} }
func (r Rect) RightMiddle() Point  { return Point{r.X + r.Width, r.Y + r.Height/2} }

func (r Rect) TopLine() Line    { return Line{r.Origin(), r.TopRight()} }
func (r Rect) RightLine() Line  { return Line{r.TopRight(), r.Corner()} }
func (r Rect) BottomLine() Line { return Line{r.BottomLeft(), r.Corner()} }
func (r Rect) LeftLine() Line   { return Line{r.Origin(), r.BottomLeft()} }

func (r Rect) Area() float64 { return r.Width * r.Height }

func (r Rect) Equals(o Rect) bool {
	a, b := r.Normalize(), o.Normalize()
	return a.X == b.X && a.Y == b.Y && a.Width == b.Width && a.Height == b.Height
}

// Normalize flips negative widths or heights.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// ContainsPoint includes the boundary.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// ContainsRect is false when either rectangle is empty.
func (r Rect) ContainsRect(o Rect) bool {
	a, b := r.Normalize(), o.Normalize()
	if a.Width == 0 || a.Height == 0 || b.Width == 0 || b.Height == 0 {
		return false
	}
	return b.X >= a.X && b.Y >= a.Y && b.X+b.Width <= a.X+a.Width && b.Y+b.Height <= a.Y+a.Height
}

// Intersect returns the overlapping area; touching edges do not overlap.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	ro, rc := r.Origin(), r.Corner()
	oo, oc := o.Origin(), o.Corner()
	if oc.X <= ro.X || oc.Y <= ro.Y || oo.X >= rc.X || oo.Y >= rc.Y {
		return Rect{}, false
	}
	x := math.Max(ro.X, oo.X)
	y := math.Max(ro.Y, oo.Y)
	return Rect{X: x, Y: y, Width: math.Min(rc.X, oc.X) - x, Height: math.Min(rc.Y, oc.Y) - y}, true
}

func (r Rect) Union(o Rect) Rect {
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{X: x, Y: y, Width: math.Max(r.X+r.Width, o.X+o.Width) - x, Height: math.Max(r.Y+r.Height, o.Y+o.Height) - y}
}

func (r Rect) Inflate(dx, dy float64) Rect {
	return Rect{X: r.X - dx, Y: r.Y - dy, Width: r.Width + 2*dx, Height: r.Height + 2*dy}
}

func (r Rect) Offset(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// MoveAndExpand adds each component of o to r.
func (r Rect) MoveAndExpand(o Rect) Rect {
	return Rect{X: r.X + o.X, Y: r.Y + o.Y, Width: r.Width + o.Width, Height: r.Height + o.Height}
}

func (r Rect) Scale(sx, sy float64, origin Point) Rect {
	o := r.Origin().Scale(sx, sy, origin)
	return Rect{X: o.X, Y: o.Y, Width: r.Width * sx, Height: r.Height * sy}
}

func (r Rect) Round(precision int) Rect {
	return Rect{Round(r.X, precision), Round(r.Y, precision), Round(r.Width, precision), Round(r.Height, precision)}
}

func (r Rect) SnapToGrid(gx, gy float64) Rect {
	o := r.Origin().SnapToGrid(gx, gy)
	c := r.Corner().SnapToGrid(gx, gy)
	return Rect{X: o.X, Y: o.Y, Width: c.X - o.X, Height: c.Y - o.Y}
}

// RotateAroundCenter returns the bounding box of r rotated by angle around its center.
func (r Rect) RotateAroundCenter(angle float64) Rect {
	if angle == 0 {
		return r
	}
	theta := ToRad(angle)
	st := math.Abs(math.Sin(theta))
	ct := math.Abs(math.Cos(theta))
	w := r.Width*ct + r.Height*st
	h := r.Width*st + r.Height*ct
	return Rect{X: r.X + (r.Width-w)/2, Y: r.Y + (r.Height-h)/2, Width: w, Height: h}
}

// SideNearestToPoint compares signed distances in the order left, right, top, bottom.
func (r Rect) SideNearestToPoint(p Point) Side {
	closest, side := p.X-r.X, SideLeft
	if d := r.X + r.Width - p.X; d < closest {
		closest, side = d, SideRight
	}
	if d := p.Y - r.Y; d < closest {
		closest, side = d, SideTop
	}
	if d := r.Y + r.Height - p.Y; d < closest {
		side = SideBottom
	}
	return side
}

// PointNearestToPoint projects inside points to the nearest side and clamps
// outside points onto the rectangle.
func (r Rect) PointNearestToPoint(p Point) Point {
	if r.ContainsPoint(p) {
		switch r.SideNearestToPoint(p) {
		case SideRight:
			return Point{r.X + r.Width, p.Y}
		case SideLeft:
			return Point{r.X, p.Y}
		case SideBottom:
			return Point{p.X, r.Y + r.Height}
		case SideTop:
			return Point{p.X, r.Y}
		}
	}
	return p.AdhereToRect(r)
}

// IntersectionWithLine returns distinct crossings of l with the sides,
// nil when there are none.
func (r Rect) IntersectionWithLine(l Line) []Point {
	var points []Point
	seen := make(map[string]bool, 4)
	for _, side := range [...]Line{r.TopLine(), r.RightLine(), r.BottomLine(), r.LeftLine()} {
		p, ok := l.Intersection(side)
		if !ok {
			continue
		}
		if k := p.String(); !seen[k] {
			seen[k] = true
			points = append(points, p)
		}
	}
	return points
}

// IntersectionWithLineFromCenterToPoint returns where the ray from the center
// to p leaves the rectangle rotated by angle.
func (r Rect) IntersectionWithLineFromCenterToPoint(p Point, angle float64) (Point, bool) {
	center := r.Center()
	if angle != 0 {
		p = p.Rotate(center, angle)
	}
	sides := [...]Line{r.TopLine(), r.RightLine(), r.BottomLine(), r.LeftLine()}
	connector := Line{center, p}
	for i := len(sides) - 1; i >= 0; i-- {
		if hit, ok := sides[i].Intersection(connector); ok {
			if angle != 0 {
				hit = hit.Rotate(center, -angle)
			}
			return hit, true
		}
	}
	return Point{}, false
}

// MaxRectScaleToFit returns the largest scale factors of r around origin
// which keep it inside limit.
func (r Rect) MaxRectScaleToFit(limit Rect, origin Point) (sx, sy float64) {
	sx, sy = math.Inf(1), math.Inf(1)
	o := origin
	corners := [...]Point{r.TopLeft(), r.TopRight(), r.BottomLeft(), r.Corner()}
	lo, lc := limit.Origin(), limit.Corner()
	for _, c := range corners {
		if c.X > o.X {
			sx = math.Min(sx, (lc.X-o.X)/(c.X-o.X))
		} else if c.X < o.X {
			sx = math.Min(sx, (lo.X-o.X)/(c.X-o.X))
		}
		if c.Y > o.Y {
			sy = math.Min(sy, (lc.Y-o.Y)/(c.Y-o.Y))
		} else if c.Y < o.Y {
			sy = math.Min(sy, (lo.Y-o.Y)/(c.Y-o.Y))
		}
	}
	return sx, sy
}

func (r Rect) MaxRectUniformScaleToFit(limit Rect, origin Point) float64 {
	sx, sy := r.MaxRectScaleToFit(limit, origin)
	return math.Min(sx, sy)
}

func (r Rect) String() string {
	return r.Origin().String() + " " + r.Corner().String()
}
