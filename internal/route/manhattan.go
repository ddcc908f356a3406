/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package route

import (
	"container/heap"
	"math"
	"slices"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

const (
	defaultStep         = 10
	defaultMaximumLoops = 2000
	defaultMaxChange    = 90
	manhattanPrecision  = 1
	// obstacle boxes are bucketed in cells of this size
	obstacleCell = 100
)

var allDirections = []string{"top", "right", "bottom", "left"}

var directionVectors = map[string]geometry.Point{
	"top":    {X: 0, Y: -1},
	"right":  {X: 1, Y: 0},
	"bottom": {X: 0, Y: 1},
	"left":   {X: -1, Y: 0},
}

// move is one grid step with its screen angle (0 east, 90 north).
type move struct {
	dx, dy float64
	angle  float64
}

// Manhattan routes around obstacles with an A* search on a grid of Step
// through each vertex in turn. It returns ErrNoRoute when the search runs
// out of loops or has no accessible start or end point.
func Manhattan(req Request, opt RouterOptions) ([]geometry.Point, error) {
	s := newSearch(req, opt)

	srcBox := req.SourceBBox.MoveAndExpand(s.pad)
	tgtBox := req.TargetBBox.MoveAndExpand(s.pad)
	tail := req.SourceAnchor

	var out []geometry.Point
	from := endpoint{anchor: req.SourceAnchor, box: srcBox, isBox: true, dirs: s.startDirs}
	for i := 0; i <= len(req.Vertices); i++ {
		var to endpoint
		if i < len(req.Vertices) {
			to = endpoint{anchor: req.Vertices[i]}
		} else {
			to = endpoint{anchor: req.TargetAnchor, box: tgtBox, isBox: true, dirs: s.endDirs}
		}
		part, ok := s.find(from, to)
		if !ok {
			return nil, ErrNoRoute
		}
		if len(part) > 0 && part[0].Equals(tail) {
			part = part[1:]
		}
		if len(part) > 0 {
			tail = part[len(part)-1]
		}
		out = append(out, part...)
		from = to
	}
	return out, nil
}

type endpoint struct {
	anchor geometry.Point
	box    geometry.Rect
	isBox  bool
	dirs   []string
}

type search struct {
	step      float64
	maxLoops  int
	maxChange float64
	pad       geometry.Rect
	startDirs []string
	endDirs   []string
	moves     []move
	obstacles map[geometry.Point][]geometry.Rect

	// direction the previous partial route arrived by
	prevAngle    float64
	hasPrevAngle bool
}

func newSearch(req Request, opt RouterOptions) *search {
	s := &search{
		step:      opt.Step,
		maxLoops:  opt.MaximumLoops,
		maxChange: opt.MaxAllowedDirectionChange,
		startDirs: opt.StartDirections,
		endDirs:   opt.EndDirections,
		obstacles: map[geometry.Point][]geometry.Rect{},
	}
	if s.step <= 0 {
		s.step = defaultStep
	}
	if s.maxLoops <= 0 {
		s.maxLoops = defaultMaximumLoops
	}
	if s.maxChange <= 0 {
		s.maxChange = defaultMaxChange
	}
	if len(s.startDirs) == 0 {
		s.startDirs = allDirections
	}
	if len(s.endDirs) == 0 {
		s.endDirs = allDirections
	}
	s.pad = paddingBox(opt.padding(s.step))
	s.moves = []move{
		{dx: s.step, angle: 0},
		{dx: -s.step, angle: 180},
		{dy: s.step, angle: 270},
		{dy: -s.step, angle: 90},
	}

	skip := map[string]bool{}
	for _, end := range opt.ExcludeEnds {
		switch end {
		case "source":
			skip[req.SourceID] = true
		case "target":
			skip[req.TargetID] = true
		}
	}
	delete(skip, "")
	for _, o := range req.Obstacles {
		if skip[o.ID] || slices.Contains(opt.ExcludeTypes, o.Type) {
			continue
		}
		box := o.BBox.MoveAndExpand(s.pad)
		origin := box.Origin().SnapToGrid(obstacleCell, obstacleCell)
		corner := box.Corner().SnapToGrid(obstacleCell, obstacleCell)
		for x := origin.X; x <= corner.X; x += obstacleCell {
			for y := origin.Y; y <= corner.Y; y += obstacleCell {
				k := geometry.Pt(x, y)
				s.obstacles[k] = append(s.obstacles[k], box)
			}
		}
	}
	return s
}

func (s *search) blocked(p geometry.Point) bool {
	for _, box := range s.obstacles[p.SnapToGrid(obstacleCell, obstacleCell)] {
		if box.ContainsPoint(p) {
			return true
		}
	}
	return false
}

func (s *search) penalty(change float64) float64 {
	if change == 0 {
		return 0
	}
	return s.step / 2
}

// grid spans source to target with cells close to step that divide the
// distance evenly.
type grid struct {
	source geometry.Point
	x, y   float64
}

func newGrid(step float64, source, target geometry.Point) grid {
	return grid{source: source, x: gridDimension(target.X-source.X, step), y: gridDimension(target.Y-source.Y, step)}
}

func gridDimension(diff, step float64) float64 {
	if diff == 0 {
		return step
	}
	abs := math.Abs(diff)
	n := math.Round(abs / step)
	if n == 0 {
		return abs
	}
	return step + (abs-n*step)/n
}

func (g grid) align(p geometry.Point) geometry.Point {
	return geometry.Pt(
		geometry.SnapToGrid(p.X-g.source.X, g.x)+g.source.X,
		geometry.SnapToGrid(p.Y-g.source.Y, g.y)+g.source.Y,
	).Round(manhattanPrecision)
}

// directionAngle is the grid direction (0, 90, 180, 270) from start to end.
func (s *search) directionAngle(start, end geometry.Point, g grid) float64 {
	fixed := geometry.Pt(start.X+(end.X-start.X)/g.x*s.step, start.Y+(end.Y-start.Y)/g.y*s.step)
	quadrant := 360.0 / float64(len(s.moves))
	a := geometry.NormalizeAngle(start.Theta(fixed) + quadrant/2)
	return quadrant * math.Floor(a/quadrant)
}

func directionChange(a1, a2 float64) float64 {
	c := math.Abs(a1 - a2)
	if c > 180 {
		return 360 - c
	}
	return c
}

// rectPoints are the grid points just outside box in each allowed direction
// from anchor, plus the anchor itself when it lies outside the box.
func rectPoints(anchor geometry.Point, box geometry.Rect, dirs []string, g grid) []geometry.Point {
	var out []geometry.Point
	v := anchor.Difference(box.Center())
	for _, name := range allDirections {
		if !slices.Contains(dirs, name) {
			continue
		}
		d := directionVectors[name]
		end := geometry.Pt(anchor.X+d.X*(math.Abs(v.X)+box.Width), anchor.Y+d.Y*(math.Abs(v.Y)+box.Height))
		var far geometry.Point
		found := false
		best := -1.0
		for _, p := range box.IntersectionWithLine(geometry.NewLine(anchor, end)) {
			if dist := anchor.SquaredDistance(p); dist > best {
				best, far, found = dist, p, true
			}
		}
		if !found {
			continue
		}
		p := g.align(far)
		if box.ContainsPoint(p) {
			p = g.align(p.Offset(d.X*g.x, d.Y*g.y))
		}
		out = append(out, p)
	}
	if !box.ContainsPoint(anchor) {
		out = append(out, g.align(anchor))
	}
	return out
}

func estimateCost(p geometry.Point, ends []geometry.Point) float64 {
	m := math.Inf(1)
	for _, e := range ends {
		m = math.Min(m, p.ManhattanDistance(e))
	}
	return m
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func unitDiff(a, b geometry.Point) geometry.Point {
	d := a.Difference(b)
	return geometry.Pt(sign(d.X), sign(d.Y))
}

// find runs one A* search between two route ends and returns the turn
// points only.
func (s *search) find(from, to endpoint) ([]geometry.Point, bool) {
	start := from.anchor.Round(manhattanPrecision)
	end := to.anchor.Round(manhattanPrecision)
	g := newGrid(s.step, start, end)

	startPoints := []geometry.Point{start}
	if from.isBox {
		startPoints = rectPoints(start, from.box, from.dirs, g)
	}
	endPoints := []geometry.Point{end}
	if to.isBox {
		endPoints = rectPoints(end, to.box, to.dirs, g)
	}
	startPoints = slices.DeleteFunc(startPoints, s.blocked)
	endPoints = slices.DeleteFunc(endPoints, s.blocked)
	if len(startPoints) == 0 || len(endPoints) == 0 {
		return nil, false
	}

	samePoints := slices.Equal(startPoints, endPoints)
	isEnd := make(map[geometry.Point]bool, len(endPoints))
	for _, p := range endPoints {
		isEnd[p] = true
	}

	open := &nodeQueue{}
	nodes := map[geometry.Point]*node{}
	closed := map[geometry.Point]bool{}
	parents := map[geometry.Point]geometry.Point{}
	seq := 0
	push := func(p geometry.Point, cost float64) {
		seq++
		n := &node{pt: p, cost: cost, f: cost + estimateCost(p, endPoints), seq: seq}
		if old, ok := nodes[p]; ok && old.index >= 0 {
			old.cost, old.f, old.seq = n.cost, n.f, n.seq
			heap.Fix(open, old.index)
			return
		}
		nodes[p] = n
		heap.Push(open, n)
	}
	for _, p := range startPoints {
		push(p, 0)
	}

	pathBeginning := !s.hasPrevAngle
	for loops := s.maxLoops; open.Len() > 0 && loops > 0; loops-- {
		cur := heap.Pop(open).(*node)
		closed[cur.pt] = true
		parent, hasParent := parents[cur.pt]
		isStart := cur.pt.Equals(start)

		var prevAngle float64
		hasPrev := true
		switch {
		case hasParent:
			prevAngle = s.directionAngle(parent, cur.pt, g)
		case !pathBeginning:
			prevAngle = s.prevAngle
		case !isStart:
			prevAngle = s.directionAngle(start, cur.pt, g)
		default:
			hasPrev = false
		}

		if !(samePoints && !hasParent) && isEnd[cur.pt] {
			s.prevAngle, s.hasPrevAngle = prevAngle, hasPrev
			return reconstruct(parents, cur.pt, start, end), true
		}

		for _, m := range s.moves {
			change := directionChange(prevAngle, m.angle)
			if !(pathBeginning && isStart) && change > s.maxChange {
				continue
			}
			next := g.align(cur.pt.Offset(m.dx/s.step*g.x, m.dy/s.step*g.y))
			if closed[next] || s.blocked(next) {
				continue
			}
			if isEnd[next] && !next.Equals(end) {
				if directionChange(m.angle, s.directionAngle(next, end, g)) > s.maxChange {
					continue
				}
			}
			pen := s.penalty(change)
			if isStart {
				pen = 0
			}
			cost := cur.cost + s.step + pen
			if old, ok := nodes[next]; !ok || old.index < 0 || cost < old.cost {
				parents[next] = cur.pt
				push(next, cost)
			}
		}
	}
	return nil, false
}

// reconstruct walks back from tail and keeps the points where the direction
// changes.
func reconstruct(parents map[geometry.Point]geometry.Point, tail, from, to geometry.Point) []geometry.Point {
	var route []geometry.Point
	prev := unitDiff(to, tail)
	cur := tail
	parent, ok := parents[cur]
	for ok {
		if d := unitDiff(cur, parent); !d.Equals(prev) {
			route = append(route, cur)
			prev = d
		}
		cur = parent
		parent, ok = parents[cur]
	}
	if !unitDiff(cur, from).Equals(prev) {
		route = append(route, cur)
	}
	slices.Reverse(route)
	return route
}

type node struct {
	pt    geometry.Point
	cost  float64
	f     float64
	seq   int
	index int
}

// nodeQueue orders by estimated total cost; among equal costs the most
// recently queued node comes first.
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq > q[j].seq
}
func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *nodeQueue) Push(x any) {
	n := x.(*node)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*q = old[:len(old)-1]
	return n
}
