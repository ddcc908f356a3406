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
	"strings"
)

// Path commands and shapes.

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

// defaultPathPrecision is used when a path takes part in intersection tests.
const defaultPathPrecision = 2

type PathCmd struct {
	Op   PathOp
	Data [6]float64 // enough for cubic; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

func (p Path) Kind() Kind { return KindPath }

// BBox is the bounding box of the flattened outline.
func (p Path) BBox() Rect {
	var pts []Point
	for _, sp := range p.ToPolylines(defaultPathPrecision) {
		pts = append(pts, sp.Points...)
	}
	return BoundingRect(pts)
}

// Subpath is one flattened run of a path; Closed is set when it ended with Close.
type Subpath struct {
	Polyline
	Closed bool
}

// ToPolylines flattens every subpath. Curves are sampled with 2^(precision+2)
// segments.
func (p Path) ToPolylines(precision int) []Subpath {
	if precision < 0 {
		precision = 0
	}
	steps := 1 << uint(precision+2)
	var out []Subpath
	var cur Subpath
	var pen, start Point
	flush := func() {
		if len(cur.Points) > 0 {
			out = append(out, cur)
		}
		cur = Subpath{}
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			flush()
			pen = Point{c.Data[0], c.Data[1]}
			start = pen
			cur.Points = append(cur.Points, pen)
		case LineTo:
			if len(cur.Points) == 0 {
				cur.Points = append(cur.Points, pen)
			}
			pen = Point{c.Data[0], c.Data[1]}
			cur.Points = append(cur.Points, pen)
		case QuadTo:
			if len(cur.Points) == 0 {
				cur.Points = append(cur.Points, pen)
			}
			// elevate to cubic
			q := Point{c.Data[0], c.Data[1]}
			end := Point{c.Data[2], c.Data[3]}
			c1 := pen.Lerp(q, 2.0/3)
			c2 := end.Lerp(q, 2.0/3)
			cur.Points = appendCubic(cur.Points, pen, c1, c2, end, steps)
			pen = end
		case CubicTo:
			if len(cur.Points) == 0 {
				cur.Points = append(cur.Points, pen)
			}
			end := Point{c.Data[4], c.Data[5]}
			cur.Points = appendCubic(cur.Points, pen, Point{c.Data[0], c.Data[1]}, Point{c.Data[2], c.Data[3]}, end, steps)
			pen = end
		case Close:
			if len(cur.Points) > 0 {
				if !pen.Equals(start) {
					cur.Points = append(cur.Points, start)
				}
				cur.Closed = true
			}
			pen = start
			flush()
		}
	}
	flush()
	return out
}

func appendCubic(dst []Point, p0, p1, p2, p3 Point, steps int) []Point {
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		mt := 1 - t
		a := mt * mt * mt
		b := 3 * mt * mt * t
		c := 3 * mt * t * t
		d := t * t * t
		dst = append(dst, Point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return dst
}

// IntersectionWithLine intersects l with every flattened subpath.
func (p Path) IntersectionWithLine(l Line, precision int) []Point {
	var out []Point
	for _, sp := range p.ToPolylines(precision) {
		out = append(out, sp.IntersectionWithLine(l)...)
	}
	return out
}

// ClosestPoint returns the point of the flattened outline nearest to pt.
func (p Path) ClosestPoint(pt Point) (Point, bool) {
	best, bestD, found := Point{}, math.Inf(1), false
	for _, sp := range p.ToPolylines(defaultPathPrecision) {
		cp := sp.ClosestPoint(pt)
		if d := cp.SquaredDistance(pt); d < bestD {
			best, bestD, found = cp, d, true
		}
	}
	return best, found
}

// D renders the path as SVG path data.
func (p Path) D() string {
	var b strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			b.WriteString("M " + formatNum(c.Data[0]) + " " + formatNum(c.Data[1]))
		case LineTo:
			b.WriteString("L " + formatNum(c.Data[0]) + " " + formatNum(c.Data[1]))
		case QuadTo:
			b.WriteString("Q " + joinNums(c.Data[:4]))
		case CubicTo:
			b.WriteString("C " + joinNums(c.Data[:6]))
		case Close:
			b.WriteString("Z")
		}
	}
	return b.String()
}

func joinNums(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = formatNum(f)
	}
	return strings.Join(parts, " ")
}

// PathFromPolyline builds an open path through the points.
func PathFromPolyline(pl Polyline) Path {
	var p Path
	for i, pt := range pl.Points {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	return p
}

// Subpaths flattens with the default precision.
func (p Path) Subpaths() []Subpath { return p.ToPolylines(defaultPathPrecision) }
