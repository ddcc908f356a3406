/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package connect

import (
	"encoding/json"
	"math"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

// farLength is the length rays are extended to when a hit must be found.
const farLength = 1e6

// Offset moves a connection point back along the link (X) and sideways (Y).
// In JSON it is a number or an {x, y} object.
type Offset struct {
	X    float64
	Y    float64
	HasY bool
}

func (o Offset) MarshalJSON() ([]byte, error) {
	if !o.HasY {
		return json.Marshal(o.X)
	}
	return json.Marshal(map[string]float64{"x": o.X, "y": o.Y})
}

func (o *Offset) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*o = Offset{X: v}
		return nil
	}
	var raw struct {
		X float64  `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = Offset{X: raw.X}
	if raw.Y != nil {
		o.Y, o.HasY = *raw.Y, true
	}
	return nil
}

// ConnectionPointOptions are the arguments of all built-in connection points.
type ConnectionPointOptions struct {
	Offset      Offset  `json:"offset,omitzero"`
	Stroke      bool    `json:"stroke,omitempty"`
	Align       string  `json:"align,omitempty"`
	AlignOffset float64 `json:"alignOffset,omitempty"`
	Sticky      bool    `json:"sticky,omitempty"`
	Extrapolate bool    `json:"extrapolate,omitempty"`
	Insideout   *bool   `json:"insideout,omitempty"`
}

// ConnectionPointFunc returns the point where a link meets m. line runs from
// the reference point to the anchor.
type ConnectionPointFunc func(line geometry.Line, m Magnet, opt ConnectionPointOptions) geometry.Point

// offsetPoint moves p1 towards p2 by -offset.X, never past p2, after shifting
// both sideways by offset.Y.
func offsetPoint(p1, p2 geometry.Point, off Offset) geometry.Point {
	if off.HasY {
		l := geometry.NewLine(p2, p1).Parallel(off.Y)
		p2, p1 = l.Start, l.End
	}
	if off.X == 0 || !isFinite(off.X) {
		return p1
	}
	length := p1.Distance(p2)
	return p1.Move(p2, -math.Min(off.X, length-1))
}

// alignLine makes the link horizontal or vertical on the given side.
func alignLine(l geometry.Line, side string, offset float64) geometry.Line {
	start, end := l.Start, l.End
	var a, b *geometry.Point
	var dir float64
	vertical := false
	switch side {
	case "left":
		a, b, dir = &end, &start, -1
	case "right":
		a, b, dir = &start, &end, 1
	case "top":
		a, b, dir, vertical = &end, &start, -1, true
	case "bottom":
		a, b, dir, vertical = &start, &end, 1, true
	default:
		return l
	}
	coord := func(p *geometry.Point) *float64 {
		if vertical {
			return &p.Y
		}
		return &p.X
	}
	if *coord(&start) < *coord(&end) {
		*coord(a) = *coord(b)
	} else {
		*coord(b) = *coord(a)
	}
	*coord(a) += dir * offset
	*coord(b) += dir * offset
	return geometry.Line{Start: start, End: end}
}

// AnchorPoint uses the anchor itself, optionally aligned to a side.
func AnchorPoint(line geometry.Line, _ Magnet, opt ConnectionPointOptions) geometry.Point {
	if opt.Align != "" {
		line = alignLine(line, opt.Align, opt.AlignOffset)
	}
	return offsetPoint(line.End, line.Start, opt.Offset)
}

// BBoxPoint intersects the link with the bounds of the rotated magnet.
func BBoxPoint(line geometry.Line, m Magnet, opt ConnectionPointOptions) geometry.Point {
	bbox := m.NodeBBox()
	if opt.Stroke {
		bbox = bbox.Inflate(m.StrokeWidth/2, m.StrokeWidth/2)
	}
	cp, ok := line.Start.ChooseClosest(bbox.IntersectionWithLine(line))
	if !ok {
		cp = line.End
	}
	return offsetPoint(cp, line.Start, opt.Offset)
}

// RectanglePoint intersects the link with the rotated magnet rectangle.
func RectanglePoint(line geometry.Line, m Magnet, opt ConnectionPointOptions) geometry.Point {
	if m.Angle == 0 {
		return BBoxPoint(line, m, opt)
	}
	bbox := m.BBox
	if opt.Stroke {
		bbox = bbox.Inflate(m.StrokeWidth/2, m.StrokeWidth/2)
	}
	local := line.Rotate(m.Origin, m.Angle)
	cp := line.End
	if hit, ok := local.Start.ChooseClosest(bbox.IntersectionWithLine(local.SetLength(farLength))); ok {
		cp = m.toPaper(hit)
	}
	return offsetPoint(cp, line.Start, opt.Offset)
}

// BoundaryPoint intersects the link with the magnet outline. Sticky falls back
// to the outline point closest to the reference; Insideout=false keeps the
// anchor when the reference lies inside the magnet.
func BoundaryPoint(line geometry.Line, m Magnet, opt ConnectionPointOptions) geometry.Point {
	anchor := line.End
	local := geometry.Line{Start: m.toLocal(line.Start), End: m.toLocal(line.End)}
	ref := local.Start

	if opt.Insideout != nil && !*opt.Insideout && m.BBox.ContainsPoint(ref) {
		return anchor
	}
	if opt.Extrapolate {
		local = local.SetLength(farLength)
	}

	outline := m.Shape.Outline(m.BBox)
	hit, ok := ref.ChooseClosest(local.IntersectShape(outline))
	if !ok && opt.Sticky {
		ok = true
		switch o := outline.(type) {
		case geometry.Rect:
			hit = o.PointNearestToPoint(ref)
		case geometry.Ellipse:
			hit = o.IntersectionWithLineFromCenterToPoint(ref, 0)
		case geometry.Polygon:
			hit = o.Close().ClosestPoint(ref)
		default:
			ok = false
		}
	}

	cp := anchor
	if ok {
		cp = m.toPaper(hit)
	}
	off := opt.Offset
	if opt.Stroke {
		off.X += m.StrokeWidth / 2
	}
	return offsetPoint(cp, line.Start, off)
}
