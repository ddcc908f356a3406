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
	"sort"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

const (
	defaultJumpSize = 5
	// a jump needs this much room besides its own size at segment ends
	jumpProximity = 1
)

type jumpLine struct {
	geometry.Line
	jump bool
}

// Jumpover draws straight segments and bridges every crossing with one of
// the polylines in c.Crossings. Which links to jump is the caller's choice.
func Jumpover(c Connection, opt ConnectorOptions) (geometry.Path, error) {
	size := opt.Size
	if size <= 0 {
		size = defaultJumpSize
	}
	kind := opt.Jump
	if kind == "" {
		kind = "arc"
	}
	switch kind {
	case "arc", "gap", "cubic":
	default:
		return geometry.Path{}, fmt.Errorf("route: jumpover: unknown jump %q", kind)
	}

	own := segments(c.points())
	others := make([][]geometry.Line, 0, len(c.Crossings))
	for _, pts := range c.Crossings {
		others = append(others, segments(pts))
	}

	var lines []jumpLine
	for _, l := range own {
		var hits []geometry.Point
		for _, segs := range others {
			segs = append([]geometry.Line(nil), segs...)
			// an overlapping segment that ends on l also shares its next
			// segment's start with l; count that corner once
			if i := overlapIndex(l, segs); i >= 0 && l.ContainsPoint(segs[i].End) && i+1 < len(segs) {
				segs = append(segs[:i+1], segs[i+2:]...)
			}
			for _, s := range segs {
				if p, ok := l.Intersection(s); ok {
					hits = append(hits, p)
				}
			}
		}
		if len(hits) == 0 {
			lines = append(lines, jumpLine{Line: l})
			continue
		}
		sort.SliceStable(hits, func(i, j int) bool {
			return l.Start.SquaredDistance(hits[i]) < l.Start.SquaredDistance(hits[j])
		})
		lines = append(lines, jumps(l, hits, size)...)
	}
	return jumpPath(lines, size, kind, opt.Radius), nil
}

func segments(pts []geometry.Point) []geometry.Line {
	if len(pts) < 2 {
		return nil
	}
	out := make([]geometry.Line, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		out = append(out, geometry.NewLine(pts[i], pts[i+1]))
	}
	return out
}

// overlapIndex returns the first segment whose bounding box overlaps l's.
func overlapIndex(l geometry.Line, segs []geometry.Line) int {
	a := l.BBox()
	for i, s := range segs {
		b := s.BBox()
		if a.X <= b.X+b.Width && b.X <= a.X+a.Width && a.Y <= b.Y+b.Height && b.Y <= a.Y+a.Height {
			return i
		}
	}
	return -1
}

// jumps splits l around the sorted crossings. Crossings too close to an end
// of the segment are not jumped; crossings closer than size merge into one.
func jumps(l geometry.Line, hits []geometry.Point, size float64) []jumpLine {
	var out []jumpLine
	skip := make([]bool, len(hits))
	for i, p := range hits {
		if skip[i] {
			continue
		}
		cur := jumpLine{Line: l}
		if n := len(out); n > 0 {
			cur = out[n-1]
			out = out[:n-1]
		}
		start := p.Move(cur.Start, -size)
		end := p.Move(cur.Start, size)

		if i+1 < len(hits) {
			next := hits[i+1]
			if d := end.Distance(next); d <= size {
				end = next.Move(cur.Start, d)
				skip[i+1] = true
			}
		} else if start.Distance(cur.End) < size*2+jumpProximity {
			out = append(out, cur)
			continue
		}
		if end.Distance(cur.Start) < size*2+jumpProximity {
			out = append(out, cur)
			continue
		}
		out = append(out,
			jumpLine{Line: geometry.NewLine(cur.Start, start)},
			jumpLine{Line: geometry.NewLine(start, end), jump: true},
			jumpLine{Line: geometry.NewLine(end, cur.End)},
		)
	}
	return out
}

func jumpPath(lines []jumpLine, size float64, kind string, radius float64) geometry.Path {
	var p geometry.Path
	if len(lines) == 0 {
		return p
	}
	p.MoveTo(lines[0].Start.X, lines[0].Start.Y)
	for i, l := range lines {
		if !l.jump {
			if radius == 0 || i+1 >= len(lines) || lines[i+1].jump {
				p.LineTo(l.End.X, l.End.Y)
				continue
			}
			start, end := cornerCut(l.Start, l.End, lines[i+1].End, radius)
			p.LineTo(start.X, start.Y)
			cornerCubic(&p, start, l.End, end)
			continue
		}
		diff := l.Start.Difference(l.End)
		flip := diff.X < 0 || (diff.X == 0 && diff.Y < 0)
		switch kind {
		case "gap":
			p.MoveTo(l.End.X, l.End.Y)
		case "cubic":
			angle := l.Start.Theta(l.End)
			xOff, yOff := size*0.6, size*1.35
			if flip {
				yOff = -yOff
			}
			c1 := geometry.Pt(l.Start.X+xOff, l.Start.Y+yOff).Rotate(l.Start, angle)
			c2 := geometry.Pt(l.End.X-xOff, l.End.Y+yOff).Rotate(l.End, angle)
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, l.End.X, l.End.Y)
		default:
			// semicircle from two cubics
			angle := -90.0
			if flip {
				angle += 180
			}
			mid := l.Midpoint()
			center := geometry.NewLine(mid, l.End).Rotate(mid, angle)
			c1 := geometry.NewLine(l.Start, mid).PointAt(twoThirds).Rotate(l.Start, angle)
			c2 := center.PointAt(oneThird).Rotate(center.End, -angle)
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, center.End.X, center.End.Y)
			c1 = center.PointAt(oneThird).Rotate(center.End, angle)
			c2 = geometry.NewLine(mid, l.End).PointAt(oneThird).Rotate(l.End, -angle)
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, l.End.X, l.End.Y)
		}
	}
	return p
}
