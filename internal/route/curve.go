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

// Curve draws a Catmull-Rom spline through the route, converted to bezier
// segments. The end tangents follow Direction (or the Source/TargetDirection
// overrides) and grow when the first or last segment bends away from them.
func Curve(c Connection, opt ConnectorOptions) (geometry.Path, error) {
	coeff := opt.DistanceCoefficient
	if coeff == 0 {
		coeff = 0.6
	}
	angleCoeff := opt.AngleTangentCoefficient
	if angleCoeff == 0 {
		angleCoeff = 80
	}
	tau := opt.Tension
	if tau == 0 {
		tau = 0.5
	}
	precision := 3
	if opt.Precision != nil {
		precision = *opt.Precision
	}
	direction := opt.Direction
	if direction == "" {
		direction = "auto"
	}

	pts := c.points()
	last := len(pts) - 1

	srcDir, err := tangentDirection(opt.SourceDirection, direction, c.SourceBBox, pts[0], pts[1], true)
	if err != nil {
		return geometry.Path{}, err
	}
	tgtDir, err := tangentDirection(opt.TargetDirection, direction, c.TargetBBox, pts[last], pts[last-1], false)
	if err != nil {
		return geometry.Path{}, err
	}
	srcTangent := endTangent(srcDir, pts[0], pts[1], coeff, angleCoeff)
	tgtTangent := endTangent(tgtDir, pts[last], pts[last-1], coeff, angleCoeff)

	var p geometry.Path
	p.MoveTo(pts[0].X, pts[0].Y)
	for _, cr := range catmullRom(pts, srcTangent, tgtTangent, coeff, tau) {
		c1 := geometry.Pt(cr[1].X+(cr[2].X-cr[0].X)/(6*tau), cr[1].Y+(cr[2].Y-cr[0].Y)/(6*tau))
		c2 := geometry.Pt(cr[2].X+(cr[3].X-cr[1].X)/(6*tau), cr[2].Y+(cr[3].Y-cr[1].Y)/(6*tau))
		c1, c2, end := c1.Round(precision), c2.Round(precision), cr[2].Round(precision)
		p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
	}
	return p, nil
}

// tangentDirection is the unit vector a curve leaves end by. next is the
// neighbouring route point.
func tangentDirection(override, direction string, box geometry.Rect, end, next geometry.Point, source bool) (geometry.Point, error) {
	name := direction
	if override != "" {
		name = override
	}
	switch name {
	case "up":
		return geometry.Pt(0, -1), nil
	case "down":
		return geometry.Pt(0, 1), nil
	case "left":
		return geometry.Pt(-1, 0), nil
	case "right":
		return geometry.Pt(1, 0), nil
	case "closest-point":
		return next.Difference(end).Normalize(1), nil
	case "outwards":
		return end.Difference(box.Center()).Normalize(1), nil
	case "horizontal":
		if box.SideNearestToPoint(end) == geometry.SideLeft {
			return geometry.Pt(-1, 0), nil
		}
		return geometry.Pt(1, 0), nil
	case "vertical":
		if box.SideNearestToPoint(end) == geometry.SideTop {
			return geometry.Pt(0, -1), nil
		}
		return geometry.Pt(0, 1), nil
	case "auto":
		return sideVector(box.SideNearestToPoint(end)), nil
	}
	which := "target"
	if source {
		which = "source"
	}
	return geometry.Point{}, fmt.Errorf("route: curve: unknown %s direction %q", which, name)
}

func sideVector(s geometry.Side) geometry.Point {
	switch s {
	case geometry.SideTop:
		return geometry.Pt(0, -1)
	case geometry.SideBottom:
		return geometry.Pt(0, 1)
	case geometry.SideLeft:
		return geometry.Pt(-1, 0)
	}
	return geometry.Pt(1, 0)
}

func endTangent(dir, end, next geometry.Point, coeff, angleCoeff float64) geometry.Point {
	length := end.Distance(next) * coeff
	if angle := vectorAngle(dir, next.Difference(end).Normalize(1)); angle > math.Pi/4 {
		length += (angle - math.Pi/4) * angleCoeff
	}
	return geometry.Pt(dir.X*length, dir.Y*length)
}

func vectorAngle(v1, v2 geometry.Point) float64 {
	m := v1.Magnitude() * v2.Magnitude()
	if m == 0 {
		return 0
	}
	return math.Acos(math.Max(-1, math.Min(1, v1.Dot(v2)/m)))
}

func det(v1, v2 geometry.Point) float64 { return v1.X*v2.Y - v1.Y*v2.X }

func rotateVec(v geometry.Point, angle float64) geometry.Point {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return geometry.Pt(cos*v.X-sin*v.Y, sin*v.X+cos*v.Y)
}

// catmullRom returns the four Catmull-Rom points of every route segment.
func catmullRom(pts []geometry.Point, srcTangent, tgtTangent geometry.Point, coeff, tau float64) [][4]geometry.Point {
	n := len(pts) - 1
	dist := make([]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = pts[i].Distance(pts[i+1])
	}
	// in[i] and out[i] are the tangents entering and leaving vertex i
	in := make([]geometry.Point, n+1)
	out := make([]geometry.Point, n+1)
	out[0] = srcTangent
	in[n] = tgtTangent
	for i := 1; i < n; i++ {
		prev, next := pts[i-1], pts[i+1]
		if i == 1 {
			prev = prev.Offset(srcTangent.X, srcTangent.Y)
		}
		if i == n-1 {
			next = next.Offset(tgtTangent.X, tgtTangent.Y)
		}
		v1 := prev.Difference(pts[i]).Normalize(1)
		v2 := next.Difference(pts[i]).Normalize(1)
		vAngle := vectorAngle(v1, v2)
		rot := (math.Pi - vAngle) / 2
		if det(v1, v2) < 0 {
			rot = -rot
		}
		pd := det(pts[i].Difference(pts[i+1]), pts[i].Difference(pts[i-1]))
		if vAngle < math.Pi/2 && ((rot < 0 && pd < 0) || (rot > 0 && pd > 0)) {
			rot -= math.Pi
		}
		t := rotateVec(v2, rot)
		in[i] = geometry.Pt(t.X*dist[i-1]*coeff, t.Y*dist[i-1]*coeff)
		out[i] = geometry.Pt(t.X*dist[i]*coeff, t.Y*dist[i]*coeff)
	}

	curves := make([][4]geometry.Point, n)
	for i := 0; i < n; i++ {
		p0 := pts[i+1].Offset(-out[i].X/tau, -out[i].Y/tau)
		var p3 geometry.Point
		if i == n-1 {
			p3 = pts[i].Offset(in[i+1].X/tau, in[i+1].Y/tau)
		} else {
			p3 = pts[i].Offset(-in[i+1].X/tau, -in[i+1].Y/tau)
		}
		curves[i] = [4]geometry.Point{p0, pts[i], pts[i+1], p3}
	}
	return curves
}
