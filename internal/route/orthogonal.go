/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package route

import (
	"math"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

const defaultOrthogonalPadding = 20

// bearing is the compass direction of an axis-aligned segment.
type bearing byte

const (
	noBearing bearing = 0
	north     bearing = 'N'
	south     bearing = 'S'
	east      bearing = 'E'
	west      bearing = 'W'
)

func (b bearing) opposite() bearing {
	switch b {
	case north:
		return south
	case south:
		return north
	case east:
		return west
	case west:
		return east
	}
	return noBearing
}

// radians is the polar angle of b, y pointing up.
func (b bearing) radians() float64 {
	switch b {
	case north:
		return -math.Pi / 2 * 3
	case south:
		return -math.Pi / 2
	case west:
		return math.Pi
	}
	return 0
}

// bearingOf is set only when from and to share an axis.
func bearingOf(from, to geometry.Point) bearing {
	switch {
	case from.X == to.X && from.Y > to.Y:
		return north
	case from.X == to.X:
		return south
	case from.Y == to.Y && from.X > to.X:
		return west
	case from.Y == to.Y:
		return east
	}
	return noBearing
}

// sizeAlong is the width for horizontal bearings and the height otherwise.
func sizeAlong(r geometry.Rect, b bearing) float64 {
	if b == west || b == east {
		return r.Width
	}
	return r.Height
}

func pointBox(p geometry.Point) geometry.Rect { return geometry.Rect{X: p.X, Y: p.Y} }

// freeJoin returns the corner between p1 and p2 that lies outside box.
func freeJoin(p1, p2 geometry.Point, box geometry.Rect) geometry.Point {
	p := geometry.Pt(p1.X, p2.Y)
	if box.ContainsPoint(p) {
		p = geometry.Pt(p2.X, p1.Y)
	}
	return p
}

type partial struct {
	points    []geometry.Point
	direction bearing
}

func vertexVertex(from, to geometry.Point, b bearing) partial {
	p1 := geometry.Pt(from.X, to.Y)
	p2 := geometry.Pt(to.X, from.Y)
	d1 := bearingOf(from, p1)
	d2 := bearingOf(from, p2)
	opp := b.opposite()
	p := p2
	if d1 == b || (d1 != opp && (d2 == opp || d2 != b)) {
		p = p1
	}
	return partial{points: []geometry.Point{p}, direction: bearingOf(p, to)}
}

func elementVertex(from, to geometry.Point, fromBox geometry.Rect) partial {
	p := freeJoin(from, to, fromBox)
	return partial{points: []geometry.Point{p}, direction: bearingOf(p, to)}
}

func vertexElement(from, to geometry.Point, toBox geometry.Rect, b bearing) partial {
	candidates := []geometry.Point{geometry.Pt(from.X, to.Y), geometry.Pt(to.X, from.Y)}
	var free, freeBearing []geometry.Point
	for _, p := range candidates {
		if toBox.ContainsPoint(p) {
			continue
		}
		free = append(free, p)
		if bearingOf(p, from) != b {
			freeBearing = append(freeBearing, p)
		}
	}
	if len(freeBearing) > 0 {
		// prefer a corner that keeps the previous direction
		p := freeBearing[0]
		for _, q := range freeBearing {
			if bearingOf(from, q) == b {
				p = q
			}
		}
		return partial{points: []geometry.Point{p}, direction: bearingOf(p, to)}
	}
	// every corner is inside the target or doubles back: leave the target
	// box along the current direction and join from there
	inside := candidates[0]
	for _, p := range candidates {
		if !containsPoint(free, p) {
			inside = p
			break
		}
	}
	p2 := to.Move(inside, -sizeAlong(toBox, b)/2)
	p1 := freeJoin(p2, from, toBox)
	return partial{points: []geometry.Point{p1, p2}, direction: bearingOf(p2, to)}
}

func containsPoint(pts []geometry.Point, p geometry.Point) bool {
	for _, q := range pts {
		if q.Equals(p) {
			return true
		}
	}
	return false
}

func elementElement(from, to geometry.Point, fromBox, toBox geometry.Rect) partial {
	r := elementVertex(to, from, toBox)
	p1 := r.points[0]
	if !fromBox.ContainsPoint(p1) {
		return r
	}
	r = elementVertex(from, to, fromBox)
	p2 := r.points[0]
	if !toBox.ContainsPoint(p2) {
		return r
	}
	fromBorder := from.Move(p2, -sizeAlong(fromBox, bearingOf(from, p2))/2)
	toBorder := to.Move(p1, -sizeAlong(toBox, bearingOf(to, p1))/2)
	mid := geometry.NewLine(fromBorder, toBorder).Midpoint()
	start := elementVertex(from, mid, fromBox)
	end := vertexVertex(mid, to, start.direction)
	return partial{points: []geometry.Point{start.points[0], end.points[0]}, direction: end.direction}
}

// insideElement routes out of the union of both boxes and back in, for ends
// that overlap or touch.
func insideElement(from, to geometry.Point, fromBox, toBox geometry.Rect, b bearing) partial {
	boundary := fromBox.Union(toBox).Inflate(1, 1)
	center := boundary.Center()
	reversed := center.Distance(to) > center.Distance(from)
	start, end := from, to
	if reversed {
		start, end = to, from
	}

	var p1 geometry.Point
	if b != noBearing {
		p1 = geometry.FromPolar(boundary.Width+boundary.Height, b.radians(), start)
		p1 = boundary.PointNearestToPoint(p1).Move(p1, -1)
	} else {
		p1 = boundary.PointNearestToPoint(start).Move(start, 1)
	}
	p2 := freeJoin(p1, end, boundary)

	var pts []geometry.Point
	if p1.Round(0).Equals(p2.Round(0)) {
		p2 = geometry.FromPolar(boundary.Width+boundary.Height, geometry.ToRad(p1.Theta(start))+math.Pi/2, end)
		p2 = boundary.PointNearestToPoint(p2).Move(end, 1).Round(0)
		p3 := freeJoin(p1, p2, boundary)
		if reversed {
			pts = []geometry.Point{p2, p3, p1}
		} else {
			pts = []geometry.Point{p1, p3, p2}
		}
	} else if reversed {
		pts = []geometry.Point{p2, p1}
	} else {
		pts = []geometry.Point{p1, p2}
	}
	dir := bearingOf(p2, to)
	if reversed {
		dir = bearingOf(p1, to)
	}
	return partial{points: pts, direction: dir}
}

// Orthogonal returns axis-aligned route points through the vertices. The end
// boxes are padded (default 20) and a route never starts or ends by running
// back through its own element.
func Orthogonal(req Request, opt RouterOptions) ([]geometry.Point, error) {
	pad := paddingBox(opt.padding(defaultOrthogonalPadding))
	srcBox := req.SourceBBox.MoveAndExpand(pad).Union(pointBox(req.SourceAnchor))
	tgtBox := req.TargetBBox.MoveAndExpand(pad).Union(pointBox(req.TargetAnchor))

	pts := make([]geometry.Point, 0, len(req.Vertices)+2)
	pts = append(pts, req.SourceAnchor)
	pts = append(pts, req.Vertices...)
	pts = append(pts, req.TargetAnchor)

	var out []geometry.Point
	var b bearing
	last := len(pts) - 1
	for i := 0; i < last; i++ {
		from, to := pts[i], pts[i+1]
		orthogonal := bearingOf(from, to) != noBearing
		var r *partial

		switch {
		case i == 0 && i+1 == last:
			// touching ends count as overlapping
			if _, ok := srcBox.Intersect(tgtBox.Inflate(1, 1)); ok {
				p := insideElement(from, to, srcBox, tgtBox, noBearing)
				r = &p
			} else if !orthogonal {
				p := elementElement(from, to, srcBox, tgtBox)
				r = &p
			}
		case i == 0:
			if srcBox.ContainsPoint(to) {
				p := insideElement(from, to, srcBox, pointBox(to).MoveAndExpand(pad), noBearing)
				r = &p
			} else if !orthogonal {
				p := elementVertex(from, to, srcBox)
				r = &p
			}
		case i+1 == last:
			loop := orthogonal && bearingOf(to, from) == b
			if tgtBox.ContainsPoint(from) || loop {
				p := insideElement(from, to, pointBox(from).MoveAndExpand(pad), tgtBox, b)
				r = &p
			} else if !orthogonal {
				p := vertexElement(from, to, tgtBox, b)
				r = &p
			}
		case !orthogonal:
			p := vertexVertex(from, to, b)
			r = &p
		}

		if r != nil {
			out = append(out, r.points...)
			b = r.direction
		} else {
			b = bearingOf(from, to)
		}
		if i+1 < last {
			out = append(out, to)
		}
	}
	return out, nil
}
