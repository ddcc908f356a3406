/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"errors"
	"math"
	"testing"
)

func almostEq(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestPoint_ThetaRotateMove(t *testing.T) {
	o := Pt(0, 0)
	if th := o.Theta(Pt(10, 0)); th != 0 {
		t.Fatalf("theta right: %v", th)
	}
	if th := o.Theta(Pt(0, -10)); !almostEq(th, 90, 1e-9) {
		t.Fatalf("theta up: %v", th)
	}
	if th := o.Theta(Pt(0, 10)); !almostEq(th, 270, 1e-9) {
		t.Fatalf("theta down: %v", th)
	}

	r := Pt(10, 0).Rotate(o, 90)
	if !almostEq(r.X, 0, 1e-9) || !almostEq(r.Y, -10, 1e-9) {
		t.Fatalf("rotate 90: %v", r)
	}
	r = Pt(50, 0).Rotate(Pt(50, 50), -90)
	if !almostEq(r.X, 100, 1e-9) || !almostEq(r.Y, 50, 1e-9) {
		t.Fatalf("rotate -90 around center: %v", r)
	}

	if m := Pt(10, 0).Move(o, 5); !almostEq(m.X, 15, 1e-9) || !almostEq(m.Y, 0, 1e-9) {
		t.Fatalf("move away: %v", m)
	}
	if m := Pt(10, 0).Move(o, -5); !almostEq(m.X, 5, 1e-9) {
		t.Fatalf("move towards: %v", m)
	}
}

func TestRound_HalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		prec int
		want float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -2},
		{-0.5, 0, 0},
		{1.005, 1, 1},
		{12.34, 1, 12.3},
	}
	for _, c := range cases {
		if got := Round(c.in, c.prec); !almostEq(got, c.want, 1e-9) {
			t.Fatalf("Round(%v, %d) = %v, want %v", c.in, c.prec, got, c.want)
		}
	}
}

func TestLine_IntersectionAndDegenerate(t *testing.T) {
	a := NewLine(Pt(0, 0), Pt(10, 10))
	b := NewLine(Pt(0, 10), Pt(10, 0))
	p, ok := a.Intersection(b)
	if !ok || !almostEq(p.X, 5, 1e-9) || !almostEq(p.Y, 5, 1e-9) {
		t.Fatalf("expected 5@5, got %v ok=%v", p, ok)
	}
	if _, ok := a.Intersection(NewLine(Pt(0, 1), Pt(10, 11))); ok {
		t.Fatalf("parallel lines must not intersect")
	}
	z := NewLine(Pt(3, 3), Pt(3, 3))
	if r := z.ClosestPointNormalizedLength(Pt(10, 10)); r != 0 {
		t.Fatalf("zero-length closest ratio = %v", r)
	}
	if !math.IsNaN(z.Angle()) {
		t.Fatalf("zero-length angle should be NaN")
	}
	if ang := NewLine(Pt(0, 0), Pt(0, 10)).Angle(); !almostEq(ang, 90, 1e-9) {
		t.Fatalf("downward angle = %v", ang)
	}
}

func TestRect_IntersectionWithLineFromCenterToPoint(t *testing.T) {
	r := R(0, 0, 140, 70)
	p, ok := r.IntersectionWithLineFromCenterToPoint(Pt(200, 35), 0)
	if !ok || !almostEq(p.X, 140, 1e-9) || !almostEq(p.Y, 35, 1e-9) {
		t.Fatalf("want 140@35, got %v ok=%v", p, ok)
	}
	p, ok = r.IntersectionWithLineFromCenterToPoint(Pt(70, -100), 0)
	if !ok || !almostEq(p.X, 70, 1e-9) || !almostEq(p.Y, 0, 1e-9) {
		t.Fatalf("want 70@0, got %v ok=%v", p, ok)
	}
	if _, ok := r.IntersectionWithLineFromCenterToPoint(Pt(80, 40), 0); ok {
		t.Fatalf("point inside must not produce a boundary hit")
	}
}

func TestRect_IntersectionWithLineDedupes(t *testing.T) {
	r := R(0, 0, 10, 10)
	pts := r.IntersectionWithLine(NewLine(Pt(-10, -10), Pt(10, 10)))
	if len(pts) != 2 {
		t.Fatalf("expected 2 distinct points, got %v", pts)
	}
	if pts := r.IntersectionWithLine(NewLine(Pt(20, 20), Pt(30, 30))); pts != nil {
		t.Fatalf("expected nil, got %v", pts)
	}
}

func TestRect_SideAndNearestPoint(t *testing.T) {
	r := R(0, 0, 100, 50)
	if s := r.SideNearestToPoint(Pt(10, 25)); s != SideLeft {
		t.Fatalf("side = %s", s)
	}
	if s := r.SideNearestToPoint(Pt(50, 48)); s != SideBottom {
		t.Fatalf("side = %s", s)
	}
	if p := r.PointNearestToPoint(Pt(10, 25)); !p.Equals(Pt(0, 25)) {
		t.Fatalf("nearest inside = %v", p)
	}
	if p := r.PointNearestToPoint(Pt(150, -20)); !p.Equals(Pt(100, 0)) {
		t.Fatalf("nearest outside = %v", p)
	}
}

func TestEllipse_BoundaryAndTangent(t *testing.T) {
	e := EllipseFromRect(R(0, 0, 140, 70))
	p := e.IntersectionWithLineFromCenterToPoint(Pt(300, 35), 0)
	if !almostEq(p.X, 140, 1e-9) || !almostEq(p.Y, 35, 1e-9) {
		t.Fatalf("want 140@35, got %v", p)
	}
	// dx == 0 falls back to the bbox
	p = e.IntersectionWithLineFromCenterToPoint(Pt(70, 200), 0)
	if !almostEq(p.X, 70, 1e-9) || !almostEq(p.Y, 70, 1e-9) {
		t.Fatalf("vertical ray: %v", p)
	}

	c := EllipseFromRect(R(0, 0, 100, 100))
	if th := c.TangentTheta(Pt(100, 50)); !almostEq(th, 270, 1e-9) {
		t.Fatalf("tangent at right = %v", th)
	}
	if th := c.TangentTheta(Pt(50, 0)); !almostEq(th, 0, 1e-9) {
		t.Fatalf("tangent at top = %v", th)
	}
}

func TestEllipse_IntersectionWithLine(t *testing.T) {
	e := Ellipse{X: 0, Y: 0, A: 10, B: 5}
	pts := e.IntersectionWithLine(NewLine(Pt(-20, 0), Pt(20, 0)))
	if len(pts) != 2 || !almostEq(pts[0].X, -10, 1e-9) || !almostEq(pts[1].X, 10, 1e-9) {
		t.Fatalf("horizontal chord: %v", pts)
	}
	if pts := e.IntersectionWithLine(NewLine(Pt(-20, 20), Pt(20, 20))); pts != nil {
		t.Fatalf("miss expected, got %v", pts)
	}
}

func TestPolygon_ContainsPoint(t *testing.T) {
	sq := PolygonFromRect(R(0, 0, 10, 10))
	if !sq.ContainsPoint(Pt(5, 5)) {
		t.Fatalf("center should be inside")
	}
	if !sq.ContainsPoint(Pt(10, 5)) {
		t.Fatalf("edge point should be inside")
	}
	if sq.ContainsPoint(Pt(15, 5)) {
		t.Fatalf("outside point reported inside")
	}
	if l := sq.Length(); !almostEq(l, 40, 1e-9) {
		t.Fatalf("polygon perimeter = %v", l)
	}
}

func TestPolyline_SimplifyHullClosest(t *testing.T) {
	pl := NewPolyline(Pt(0, 0), Pt(5, 0), Pt(10, 0), Pt(10, 10))
	s := pl.Simplify(0)
	if len(s.Points) != 3 {
		t.Fatalf("simplify: %v", s.Points)
	}
	if len(pl.Points) != 4 {
		t.Fatalf("simplify must not mutate the receiver")
	}
	h := NewPolyline(Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10), Pt(5, 5)).ConvexHull()
	if len(h.Points) != 4 {
		t.Fatalf("hull: %v", h.Points)
	}
	cp := pl.ClosestPoint(Pt(12, 5))
	if !almostEq(cp.X, 10, 1e-9) || !almostEq(cp.Y, 5, 1e-9) {
		t.Fatalf("closest point: %v", cp)
	}
	if p := pl.PointAtLength(-5); !almostEq(p.X, 10, 1e-9) || !almostEq(p.Y, 5, 1e-9) {
		t.Fatalf("point at negative length: %v", p)
	}
}

func TestPath_ToPolylines(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.LineTo(10, 10)
	p.Close()
	p.MoveTo(20, 0)
	p.CubicTo(20, 10, 30, 10, 30, 0)
	sps := p.ToPolylines(0)
	if len(sps) != 2 {
		t.Fatalf("want 2 subpaths, got %d", len(sps))
	}
	if !sps[0].Closed || sps[1].Closed {
		t.Fatalf("closed flags: %v %v", sps[0].Closed, sps[1].Closed)
	}
	if n := len(sps[1].Points); n != 5 {
		t.Fatalf("cubic at precision 0 should have 4 segments, got %d points", n)
	}
	if e, _ := sps[1].End(); !e.Equals(Pt(30, 0)) {
		t.Fatalf("cubic end = %v", e)
	}
	if d := p.D(); d != "M 0 0 L 10 0 L 10 10 Z M 20 0 C 20 10 30 10 30 0" {
		t.Fatalf("path data = %q", d)
	}
}

type dot struct{ Point }

func (dot) Kind() Kind   { return KindLine }
func (d dot) BBox() Rect { return Rect{X: d.X, Y: d.Y} }

func TestExists_Pairs(t *testing.T) {
	cases := []struct {
		name string
		a, b Shape
		want bool
	}{
		{"ellipses overlapping", Ellipse{0, 0, 10, 10}, Ellipse{15, 0, 10, 10}, true},
		{"ellipses apart", Ellipse{0, 0, 10, 10}, Ellipse{30, 0, 10, 10}, false},
		{"ellipse inside ellipse", Ellipse{0, 0, 20, 10}, Ellipse{0, 0, 5, 5}, true},
		{"ellipse far away", Ellipse{0, 0, 20, 10}, Ellipse{50, 50, 5, 5}, false},
		{"line crossing rect", R(0, 0, 10, 10), NewLine(Pt(-5, 5), Pt(15, 5)), true},
		{"line inside rect", R(0, 0, 10, 10), NewLine(Pt(2, 2), Pt(8, 8)), true},
		{"line beside rect", R(0, 0, 10, 10), NewLine(Pt(20, 0), Pt(20, 10)), false},
		{"rects overlapping", R(0, 0, 10, 10), R(5, 5, 10, 10), true},
		{"rects touching", R(0, 0, 10, 10), R(10, 0, 10, 10), false},
		{"rects apart", R(0, 0, 10, 10), R(11, 0, 10, 10), false},
		{"polygon contains rect", NewPolygon(Pt(0, 0), Pt(100, 0), Pt(100, 100), Pt(0, 100)), R(40, 40, 5, 5), true},
		{"open polyline around rect", NewPolyline(Pt(0, 0), Pt(100, 0), Pt(100, 100), Pt(0, 100)), R(40, 40, 5, 5), false},
	}
	for _, c := range cases {
		got, err := Exists(c.a, c.b)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
		rev, err := Exists(c.b, c.a)
		if err != nil || rev != got {
			t.Fatalf("%s: not symmetric (%v, %v)", c.name, rev, err)
		}
	}
}

func pathOf(closed bool, pts ...Point) *Path {
	p := &Path{}
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	if closed {
		p.Close()
	}
	return p
}

func TestExists_EdgeCases(t *testing.T) {
	figureEight := NewPolyline(Pt(0, 0), Pt(10, 10), Pt(10, 0), Pt(0, 10))
	square := NewPolygon(Pt(0, 0), Pt(100, 0), Pt(100, 100), Pt(0, 100))
	cases := []struct {
		name string
		a, b Shape
		want bool
	}{
		{"tangent touches ellipse once", Ellipse{0, 0, 10, 5}, NewLine(Pt(-20, 5), Pt(20, 5)), true},
		{"line just outside ellipse", Ellipse{0, 0, 10, 5}, NewLine(Pt(-20, 6), Pt(20, 6)), false},
		{"line inside ellipse", Ellipse{0, 0, 10, 10}, NewLine(Pt(-2, 0), Pt(2, 0)), false},
		{"figure eight crosses itself", figureEight, figureEight, true},
		{"zero length line in rect", R(0, 0, 10, 10), NewLine(Pt(5, 5), Pt(5, 5)), true},
		{"zero length line on line", NewLine(Pt(0, 0), Pt(10, 10)), NewLine(Pt(5, 5), Pt(5, 5)), false},
		{"polygon contains ellipse", square, Ellipse{50, 50, 5, 5}, true},
		{"ellipse contains polygon", Ellipse{50, 50, 100, 100}, NewPolygon(Pt(45, 45), Pt(55, 45), Pt(55, 55)), true},
		{"polygon apart from ellipse", NewPolygon(Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)), Ellipse{50, 50, 5, 5}, false},
		{"paths crossing", pathOf(false, Pt(0, 0), Pt(10, 10)), pathOf(false, Pt(0, 10), Pt(10, 0)), true},
		{"paths apart", pathOf(false, Pt(0, 0), Pt(10, 10)), pathOf(false, Pt(20, 0), Pt(30, 0)), false},
		{"closed path contains path", pathOf(true, Pt(0, 0), Pt(100, 0), Pt(100, 100), Pt(0, 100)), pathOf(false, Pt(40, 40), Pt(60, 60)), true},
	}
	for _, c := range cases {
		got, err := Exists(c.a, c.b)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
		rev, err := Exists(c.b, c.a)
		if err != nil || rev != got {
			t.Fatalf("%s: not symmetric (%v, %v)", c.name, rev, err)
		}
	}
}

func TestExists_PathAndUnsupported(t *testing.T) {
	p := &Path{}
	p.MoveTo(0, 0)
	p.LineTo(10, 10)
	ok, err := Exists(p, NewLine(Pt(0, 10), Pt(10, 0)))
	if err != nil || !ok {
		t.Fatalf("path/line: %v %v", ok, err)
	}
	if _, err := Exists(dot{Pt(1, 1)}, R(0, 0, 5, 5)); !errors.Is(err, ErrUnsupportedPair) {
		t.Fatalf("expected ErrUnsupportedPair, got %v", err)
	}
}
