/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout positions ports around an element and labels around ports.
//
// Port layouts receive the element bbox relative to the element origin and
// return one Transform per port, in input order.
package layout

import (
	"github.com/clientIO/joint-sub027/internal/geometry"
)

// PortArgs are the per-port arguments after the group defaults were merged in.
type PortArgs struct {
	X                  Value    `json:"x,omitzero"`
	Y                  Value    `json:"y,omitzero"`
	Angle              *float64 `json:"angle,omitempty"`
	Dx                 float64  `json:"dx,omitempty"`
	Dy                 float64  `json:"dy,omitempty"`
	Dr                 float64  `json:"dr,omitempty"`
	CompensateRotation bool     `json:"compensateRotation,omitempty"`
}

// PointArg is a point whose coordinates may be percentages or calc().
type PointArg struct {
	X Value `json:"x"`
	Y Value `json:"y"`
}

func (p PointArg) resolve(bbox geometry.Rect, def geometry.Point) geometry.Point {
	out := def
	if v, ok := p.X.Resolve(bbox, bbox.Width); ok {
		out.X = v
	}
	if v, ok := p.Y.Resolve(bbox, bbox.Height); ok {
		out.Y = v
	}
	return out
}

// Options are the group level layout arguments.
type Options struct {
	Start      *PointArg `json:"start,omitempty"`
	End        *PointArg `json:"end,omitempty"`
	StartAngle float64   `json:"startAngle,omitempty"`
	Step       float64   `json:"step,omitempty"`
}

// Transform is a computed port position relative to the element origin.
type Transform struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

func (t Transform) Point() geometry.Point { return geometry.Pt(t.X, t.Y) }

// PortLayout computes one transform per port.
type PortLayout func(ports []PortArgs, bbox geometry.Rect, opt Options) []Transform

// Line spreads ports evenly between opt.Start (default origin) and opt.End
// (default corner).
func Line(ports []PortArgs, bbox geometry.Rect, opt Options) []Transform {
	start := bbox.Origin()
	end := bbox.Corner()
	if opt.Start != nil {
		start = opt.Start.resolve(bbox, start)
	}
	if opt.End != nil {
		end = opt.End.resolve(bbox, end)
	}
	return lineLayout(ports, start, end, bbox)
}

func Left(ports []PortArgs, bbox geometry.Rect, _ Options) []Transform {
	return lineLayout(ports, bbox.Origin(), bbox.BottomLeft(), bbox)
}

func Right(ports []PortArgs, bbox geometry.Rect, _ Options) []Transform {
	return lineLayout(ports, bbox.TopRight(), bbox.Corner(), bbox)
}

func Top(ports []PortArgs, bbox geometry.Rect, _ Options) []Transform {
	return lineLayout(ports, bbox.Origin(), bbox.TopRight(), bbox)
}

func Bottom(ports []PortArgs, bbox geometry.Rect, _ Options) []Transform {
	return lineLayout(ports, bbox.BottomLeft(), bbox.Corner(), bbox)
}

func lineLayout(ports []PortArgs, p1, p2 geometry.Point, bbox geometry.Rect) []Transform {
	seg := geometry.NewLine(p1, p2)
	n := float64(len(ports))
	out := make([]Transform, len(ports))
	for i, port := range ports {
		p := seg.PointAt((float64(i) + 0.5) / n)
		p = p.Offset(port.Dx, port.Dy)
		out[i] = argTransform(Transform{X: p.X, Y: p.Y}, bbox, port)
	}
	return out
}

// Absolute places ports at their explicit x/y/angle, zero when unset.
func Absolute(ports []PortArgs, bbox geometry.Rect, _ Options) []Transform {
	out := make([]Transform, len(ports))
	for i, port := range ports {
		out[i] = argTransform(Transform{}, bbox, port)
	}
	return out
}

// EllipseSpread distributes ports around the inscribed ellipse, opt.Step
// degrees apart (default 360/n) starting at opt.StartAngle from the top.
func EllipseSpread(ports []PortArgs, bbox geometry.Rect, opt Options) []Transform {
	n := len(ports)
	step := opt.Step
	if step == 0 && n > 0 {
		step = 360 / float64(n)
	}
	return ellipseLayout(ports, bbox, opt.StartAngle, func(i int) float64 {
		return float64(i) * step
	})
}

// Ellipse centres the ports around opt.StartAngle, opt.Step degrees apart (default 20).
func Ellipse(ports []PortArgs, bbox geometry.Rect, opt Options) []Transform {
	n := float64(len(ports))
	step := opt.Step
	if step == 0 {
		step = 20
	}
	return ellipseLayout(ports, bbox, opt.StartAngle, func(i int) float64 {
		return (float64(i) + 0.5 - n/2) * step
	})
}

func ellipseLayout(ports []PortArgs, bbox geometry.Rect, startAngle float64, stepFn func(int) float64) []Transform {
	center := bbox.Center()
	ratio := 1.0
	if bbox.Height != 0 {
		ratio = bbox.Width / bbox.Height
	}
	top := bbox.TopMiddle()
	shape := geometry.EllipseFromRect(bbox)
	out := make([]Transform, len(ports))
	for i, port := range ports {
		angle := startAngle + stepFn(i)
		p := top.Rotate(center, -angle).Scale(ratio, 1, center)
		var theta float64
		if port.CompensateRotation {
			theta = -shape.TangentTheta(p)
		}
		if port.Dx != 0 || port.Dy != 0 {
			p = p.Offset(port.Dx, port.Dy)
		}
		if port.Dr != 0 {
			p = p.Move(center, port.Dr)
		}
		p = p.Round(0)
		out[i] = argTransform(Transform{X: p.X, Y: p.Y, Angle: theta}, bbox, port)
	}
	return out
}

// argTransform applies explicit x, y and angle overrides.
func argTransform(t Transform, bbox geometry.Rect, port PortArgs) Transform {
	if v, ok := port.X.Resolve(bbox, bbox.Width); ok {
		t.X = v
	}
	if v, ok := port.Y.Resolve(bbox, bbox.Height); ok {
		t.Y = v
	}
	if port.Angle != nil {
		t.Angle = *port.Angle
	}
	return t
}
