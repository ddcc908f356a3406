/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package route

import (
	"fmt"
	"math"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

// ConnectorOptions are the arguments of all built-in connectors. Zero values
// select the defaults.
type ConnectorOptions struct {
	// Radius of rounded corners: rounded and straight 10, jumpover 0.
	Radius float64 `json:"radius,omitempty"`
	// CornerType of the straight connector: point, line, cubic or gap.
	CornerType string `json:"cornerType,omitempty"`
	// Direction of smooth (auto, horizontal, vertical, legacy) and curve
	// (auto, horizontal, vertical, closest-point, outwards).
	Direction string `json:"direction,omitempty"`
	// MinOffset is the smallest control point offset of a smooth link
	// without route, default 100.
	MinOffset *float64 `json:"minOffset,omitempty"`

	// Curve tuning, defaults 0.6, 80 and 0.5.
	DistanceCoefficient     float64 `json:"distanceCoefficient,omitempty"`
	AngleTangentCoefficient float64 `json:"angleTangentCoefficient,omitempty"`
	Tension                 float64 `json:"tension,omitempty"`
	// SourceDirection and TargetDirection override the curve tangents:
	// up, down, left, right, auto, closest-point or outwards.
	SourceDirection string `json:"sourceDirection,omitempty"`
	TargetDirection string `json:"targetDirection,omitempty"`
	// Precision rounds curve coordinates, default 3.
	Precision *int `json:"precision,omitempty"`

	// Size of a jump, default 5.
	Size float64 `json:"size,omitempty"`
	// Jump is arc, gap or cubic.
	Jump string `json:"jump,omitempty"`
}

func (o ConnectorOptions) clone() ConnectorOptions {
	if o.MinOffset != nil {
		v := *o.MinOffset
		o.MinOffset = &v
	}
	if o.Precision != nil {
		v := *o.Precision
		o.Precision = &v
	}
	return o
}

const (
	oneThird  = 1.0 / 3
	twoThirds = 2.0 / 3

	defaultCornerRadius = 10
)

// NormalConnector draws straight segments through all points.
func NormalConnector(c Connection, _ ConnectorOptions) (geometry.Path, error) {
	return polylinePath(c.points()), nil
}

func polylinePath(pts []geometry.Point) geometry.Path {
	var p geometry.Path
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	return p
}

// Straight draws segments and cuts each corner by CornerType.
func Straight(c Connection, opt ConnectorOptions) (geometry.Path, error) {
	corner := opt.CornerType
	if corner == "" {
		corner = "point"
	}
	switch corner {
	case "point", "line", "cubic", "gap":
	default:
		return geometry.Path{}, fmt.Errorf("route: straight: unknown corner type %q", corner)
	}
	radius := opt.Radius
	if radius <= 0 {
		radius = defaultCornerRadius
	}
	pts := c.points()
	if corner == "point" {
		return polylinePath(pts), nil
	}
	var p geometry.Path
	p.MoveTo(pts[0].X, pts[0].Y)
	for i := 1; i < len(pts)-1; i++ {
		start, end := cornerCut(pts[i-1], pts[i], pts[i+1], radius)
		p.LineTo(start.X, start.Y)
		switch corner {
		case "line":
			p.LineTo(end.X, end.Y)
		case "gap":
			p.MoveTo(end.X, end.Y)
		case "cubic":
			cornerCubic(&p, start, pts[i], end)
		}
	}
	last := pts[len(pts)-1]
	p.LineTo(last.X, last.Y)
	return p, nil
}

// Rounded replaces every corner by a cubic arc of at most Radius, never
// longer than half of either adjacent segment.
func Rounded(c Connection, opt ConnectorOptions) (geometry.Path, error) {
	radius := opt.Radius
	if radius <= 0 {
		radius = defaultCornerRadius
	}
	pts := c.points()
	var p geometry.Path
	p.MoveTo(pts[0].X, pts[0].Y)
	for i := 1; i < len(pts)-1; i++ {
		start, end := cornerCut(pts[i-1], pts[i], pts[i+1], radius)
		p.LineTo(start.X, start.Y)
		cornerCubic(&p, start, pts[i], end)
	}
	last := pts[len(pts)-1]
	p.LineTo(last.X, last.Y)
	return p, nil
}

// cornerCut returns where a corner at curr is cut on the segments towards
// prev and next.
func cornerCut(prev, curr, next geometry.Point, radius float64) (start, end geometry.Point) {
	startMove := -math.Min(radius, curr.Distance(prev)/2)
	endMove := -math.Min(radius, curr.Distance(next)/2)
	return curr.Move(prev, startMove).Round(0), curr.Move(next, endMove).Round(0)
}

func cornerCubic(p *geometry.Path, start, curr, end geometry.Point) {
	c1 := geometry.Pt(oneThird*start.X+twoThirds*curr.X, twoThirds*curr.Y+oneThird*start.Y)
	c2 := geometry.Pt(oneThird*end.X+twoThirds*curr.X, twoThirds*curr.Y+oneThird*end.Y)
	p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
}

// Smooth draws a bezier spline through the route. Without route the single
// curve leaves and enters by the sides of the end boxes the connection points
// sit on.
func Smooth(c Connection, opt ConnectorOptions) (geometry.Path, error) {
	if len(c.Route) > 0 {
		return throughPoints(c.points()), nil
	}
	minOffset := 100.0
	if opt.MinOffset != nil {
		minOffset = *opt.MinOffset
	}
	src, tgt := c.SourcePoint, c.TargetPoint
	srcSide := c.SourceBBox.SideNearestToPoint(src)
	tgtSide := c.TargetBBox.SideNearestToPoint(tgt)

	var c1, c2 geometry.Point
	switch opt.Direction {
	case "legacy":
		if math.Abs(src.X-tgt.X) >= math.Abs(src.Y-tgt.Y) {
			mx := (src.X + tgt.X) / 2
			c1, c2 = geometry.Pt(mx, src.Y), geometry.Pt(mx, tgt.Y)
		} else {
			my := (src.Y + tgt.Y) / 2
			c1, c2 = geometry.Pt(src.X, my), geometry.Pt(tgt.X, my)
		}
	case "horizontal":
		off := math.Max(math.Abs(src.X-(src.X+tgt.X)/2), minOffset)
		c1 = geometry.Pt(src.X+off, src.Y)
		if srcSide == geometry.SideLeft {
			c1.X = src.X - off
		}
		c2 = geometry.Pt(tgt.X-off, tgt.Y)
		if tgtSide == geometry.SideRight {
			c2.X = tgt.X + off
		}
	case "vertical":
		off := math.Max(math.Abs(src.Y-(src.Y+tgt.Y)/2), minOffset)
		c1 = geometry.Pt(src.X, src.Y+off)
		if srcSide == geometry.SideTop {
			c1.Y = src.Y - off
		}
		c2 = geometry.Pt(tgt.X, tgt.Y-off)
		if tgtSide == geometry.SideBottom {
			c2.Y = tgt.Y + off
		}
	case "", "auto":
		c1 = sideControl(srcSide, src, src, tgt)
		c2 = sideControl(tgtSide, tgt, src, tgt)
	default:
		return geometry.Path{}, fmt.Errorf("route: smooth: unknown direction %q", opt.Direction)
	}
	var p geometry.Path
	p.MoveTo(src.X, src.Y)
	p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, tgt.X, tgt.Y)
	return p, nil
}

// sideControl keeps the control point on the axis that leaves side.
func sideControl(side geometry.Side, end, src, tgt geometry.Point) geometry.Point {
	if side == geometry.SideTop || side == geometry.SideBottom {
		return geometry.Pt(end.X, (src.Y+tgt.Y)/2)
	}
	return geometry.Pt((src.X+tgt.X)/2, end.Y)
}

// throughPoints fits an open bezier spline through knots by solving the
// tridiagonal system for the first control points.
func throughPoints(knots []geometry.Point) geometry.Path {
	var p geometry.Path
	p.MoveTo(knots[0].X, knots[0].Y)
	n := len(knots) - 1
	if n < 1 {
		return p
	}
	if n == 1 {
		c1 := geometry.Pt((2*knots[0].X+knots[1].X)/3, (2*knots[0].Y+knots[1].Y)/3)
		c2 := geometry.Pt(2*c1.X-knots[0].X, 2*c1.Y-knots[0].Y)
		p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, knots[1].X, knots[1].Y)
		return p
	}

	rhs := make([]float64, n)
	for i := 1; i < n-1; i++ {
		rhs[i] = 4*knots[i].X + 2*knots[i+1].X
	}
	rhs[0] = knots[0].X + 2*knots[1].X
	rhs[n-1] = (8*knots[n-1].X + knots[n].X) / 2
	xs := firstControlPoints(rhs)

	rhs = make([]float64, n)
	for i := 1; i < n-1; i++ {
		rhs[i] = 4*knots[i].Y + 2*knots[i+1].Y
	}
	rhs[0] = knots[0].Y + 2*knots[1].Y
	rhs[n-1] = (8*knots[n-1].Y + knots[n].Y) / 2
	ys := firstControlPoints(rhs)

	for i := 0; i < n; i++ {
		var c2 geometry.Point
		if i < n-1 {
			c2 = geometry.Pt(2*knots[i+1].X-xs[i+1], 2*knots[i+1].Y-ys[i+1])
		} else {
			c2 = geometry.Pt((knots[n].X+xs[n-1])/2, (knots[n].Y+ys[n-1])/2)
		}
		p.CubicTo(xs[i], ys[i], c2.X, c2.Y, knots[i+1].X, knots[i+1].Y)
	}
	return p
}

func firstControlPoints(rhs []float64) []float64 {
	n := len(rhs)
	x := make([]float64, n)
	tmp := make([]float64, n)
	b := 2.0
	x[0] = rhs[0] / b
	for i := 1; i < n; i++ {
		tmp[i] = 1 / b
		if i < n-1 {
			b = 4 - tmp[i]
		} else {
			b = 3.5 - tmp[i]
		}
		x[i] = (rhs[i] - x[i-1]) / b
	}
	for i := 1; i < n; i++ {
		x[n-i-1] -= tmp[n-i] * x[n-i]
	}
	return x
}
