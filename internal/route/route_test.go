/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package route

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

func full(req Request, pts []geometry.Point) []geometry.Point {
	out := append([]geometry.Point{req.SourceAnchor}, pts...)
	return append(out, req.TargetAnchor)
}

func assertAxisAligned(t *testing.T, pts []geometry.Point) {
	t.Helper()
	for i := 0; i+1 < len(pts); i++ {
		if pts[i].X != pts[i+1].X && pts[i].Y != pts[i+1].Y {
			t.Fatalf("segment %v -> %v is diagonal (route %v)", pts[i], pts[i+1], pts)
		}
	}
}

func twoBoxes() Request {
	src := geometry.R(0, 0, 40, 40)
	tgt := geometry.R(200, 100, 40, 40)
	return Request{
		SourceAnchor: src.Center(), TargetAnchor: tgt.Center(),
		SourceBBox: src, TargetBBox: tgt,
		SourceID: "a", TargetID: "b",
	}
}

func TestNormal_ReturnsVerticesCopy(t *testing.T) {
	req := twoBoxes()
	req.Vertices = []geometry.Point{{X: 5, Y: 5}}
	got, err := Normal(req, RouterOptions{})
	if err != nil || len(got) != 1 || !got[0].Equals(geometry.Pt(5, 5)) {
		t.Fatalf("normal = %v, %v", got, err)
	}
	got[0].X = 99
	if req.Vertices[0].X != 5 {
		t.Fatalf("normal aliased the vertices")
	}
}

func TestOrthogonal_ElementToElement(t *testing.T) {
	req := twoBoxes()
	got, err := Orthogonal(req, RouterOptions{})
	if err != nil {
		t.Fatalf("orthogonal: %v", err)
	}
	if len(got) != 1 || !got[0].Equals(geometry.Pt(220, 20)) {
		t.Fatalf("route = %v, want [220@20]", got)
	}
	assertAxisAligned(t, full(req, got))
}

func TestOrthogonal_ThroughVertex(t *testing.T) {
	req := twoBoxes()
	req.Vertices = []geometry.Point{{X: 100, Y: 200}}
	got, err := Orthogonal(req, RouterOptions{})
	if err != nil {
		t.Fatalf("orthogonal: %v", err)
	}
	want := []geometry.Point{{X: 20, Y: 200}, {X: 100, Y: 200}, {X: 220, Y: 200}}
	if len(got) != len(want) {
		t.Fatalf("route = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equals(want[i]) {
			t.Fatalf("route = %v, want %v", got, want)
		}
	}
	assertAxisAligned(t, full(req, got))
}

func TestOrthogonal_OverlappingEndsLeaveTheUnion(t *testing.T) {
	src := geometry.R(0, 0, 100, 100)
	tgt := geometry.R(50, 50, 100, 100)
	req := Request{SourceAnchor: src.Center(), TargetAnchor: tgt.Center(), SourceBBox: src, TargetBBox: tgt}
	got, err := Orthogonal(req, RouterOptions{})
	if err != nil || len(got) == 0 {
		t.Fatalf("route = %v, %v", got, err)
	}
	union := src.Union(tgt).MoveAndExpand(paddingBox(RouterOptions{}.padding(defaultOrthogonalPadding)))
	for _, p := range got {
		if union.Inflate(-0.5, -0.5).ContainsPoint(p) {
			t.Fatalf("route point %v inside the padded union %v", p, union)
		}
	}
}

func manhattanRequest() (Request, geometry.Rect) {
	src := geometry.R(0, 0, 40, 40)
	tgt := geometry.R(300, 0, 40, 40)
	wall := geometry.R(150, 0, 20, 40)
	return Request{
		SourceAnchor: src.Center(), TargetAnchor: tgt.Center(),
		SourceBBox: src, TargetBBox: tgt,
		SourceID: "a", TargetID: "b",
		Obstacles: []Obstacle{
			{ID: "a", Type: "standard.Rectangle", BBox: src},
			{ID: "b", Type: "standard.Rectangle", BBox: tgt},
			{ID: "wall", Type: "standard.Rectangle", BBox: wall},
		},
	}, wall
}

func TestManhattan_RoutesAroundObstacle(t *testing.T) {
	req, wall := manhattanRequest()
	got, err := Manhattan(req, RouterOptions{})
	if err != nil {
		t.Fatalf("manhattan: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("route %v does not turn around the wall", got)
	}
	pts := full(req, got)
	assertAxisAligned(t, pts)
	for i := 0; i+1 < len(pts); i++ {
		if geometry.RectWithLine(wall, geometry.NewLine(pts[i], pts[i+1])) {
			t.Fatalf("segment %v -> %v crosses the wall", pts[i], pts[i+1])
		}
	}
}

func TestManhattan_ExcludedTypeIsNotAvoided(t *testing.T) {
	req, _ := manhattanRequest()
	got, err := Manhattan(req, RouterOptions{ExcludeTypes: []string{"standard.Rectangle"}})
	if err != nil {
		t.Fatalf("manhattan: %v", err)
	}
	// nothing in the way: the anchors share a row, so no turn is needed
	if len(got) != 0 {
		t.Fatalf("route = %v, want straight", got)
	}
}

func TestManhattan_FallsBackToOrthogonal(t *testing.T) {
	req, _ := manhattanRequest()
	req.Obstacles = append(req.Obstacles, Obstacle{ID: "sea", BBox: geometry.R(-1000, -1000, 2000, 2000)})
	if _, err := Manhattan(req, RouterOptions{}); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}

	reg := NewRegistry()
	got, err := reg.Route(req, &RouterSpec{Name: "manhattan"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	want, _ := Orthogonal(req, RouterOptions{})
	if len(got) != len(want) {
		t.Fatalf("fallback = %v, want %v", got, want)
	}
}

func TestRegistry_UnknownNames(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Route(twoBoxes(), &RouterSpec{Name: "metro"}); !errors.Is(err, ErrUnknownRouter) {
		t.Fatalf("router err = %v", err)
	}
	if _, err := reg.Connect(Connection{}, &ConnectorSpec{Name: "wavy"}); !errors.Is(err, ErrUnknownConnector) {
		t.Fatalf("connector err = %v", err)
	}
	if err := reg.RegisterRouter("", Normal); err == nil {
		t.Fatalf("empty router name accepted")
	}
}

func TestRegistry_DefaultsAndCustom(t *testing.T) {
	reg := NewRegistry()
	c := Connection{SourcePoint: geometry.Pt(0, 0), TargetPoint: geometry.Pt(10, 0)}
	p, err := reg.Connect(c, nil)
	if err != nil || len(p.Cmds) != 2 || p.Cmds[1].Op != geometry.LineTo {
		t.Fatalf("default connector = %+v, %v", p, err)
	}
	called := false
	_ = reg.RegisterRouter("fixed", func(Request, RouterOptions) ([]geometry.Point, error) {
		called = true
		return []geometry.Point{{X: 1, Y: 1}}, nil
	})
	reg.DefaultRouter = RouterSpec{Name: "fixed"}
	if got, _ := reg.Route(twoBoxes(), nil); !called || len(got) != 1 {
		t.Fatalf("custom default router not used: %v", got)
	}
}

func TestSpecJSON_PaddingNumberAndClone(t *testing.T) {
	var s RouterSpec
	if err := json.Unmarshal([]byte(`{"name":"manhattan","args":{"padding":15,"step":20,"excludeTypes":["note"]}}`), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Args.Padding == nil || s.Args.Padding.Left != 15 || s.Args.Step != 20 {
		t.Fatalf("spec = %+v", s)
	}
	c := s.Clone()
	c.Args.Padding.Left = 1
	c.Args.ExcludeTypes[0] = "x"
	if s.Args.Padding.Left != 15 || s.Args.ExcludeTypes[0] != "note" {
		t.Fatalf("clone shares state with the original")
	}
	var nilSpec *RouterSpec
	if nilSpec.Clone() != nil {
		t.Fatalf("nil clone")
	}
}

func lastEnd(p geometry.Path) geometry.Point {
	c := p.Cmds[len(p.Cmds)-1]
	switch c.Op {
	case geometry.CubicTo:
		return geometry.Pt(c.Data[4], c.Data[5])
	case geometry.QuadTo:
		return geometry.Pt(c.Data[2], c.Data[3])
	}
	return geometry.Pt(c.Data[0], c.Data[1])
}

func corner() Connection {
	return Connection{SourcePoint: geometry.Pt(0, 0), TargetPoint: geometry.Pt(100, 100), Route: []geometry.Point{{X: 100, Y: 0}}}
}

func TestRounded_CutsCorner(t *testing.T) {
	p, err := Rounded(corner(), ConnectorOptions{})
	if err != nil {
		t.Fatalf("rounded: %v", err)
	}
	ops := []geometry.PathOp{geometry.MoveTo, geometry.LineTo, geometry.CubicTo, geometry.LineTo}
	if len(p.Cmds) != len(ops) {
		t.Fatalf("cmds = %+v", p.Cmds)
	}
	for i, op := range ops {
		if p.Cmds[i].Op != op {
			t.Fatalf("cmd %d = %v, want %v", i, p.Cmds[i].Op, op)
		}
	}
	if d := p.Cmds[1].Data; d[0] != 90 || d[1] != 0 {
		t.Fatalf("corner starts at %v,%v", d[0], d[1])
	}
	if d := p.Cmds[2].Data; d[4] != 100 || d[5] != 10 {
		t.Fatalf("corner ends at %v,%v", d[4], d[5])
	}
}

func TestStraight_CornerTypes(t *testing.T) {
	cases := []struct {
		corner string
		ops    []geometry.PathOp
	}{
		{"", []geometry.PathOp{geometry.MoveTo, geometry.LineTo, geometry.LineTo}},
		{"line", []geometry.PathOp{geometry.MoveTo, geometry.LineTo, geometry.LineTo, geometry.LineTo}},
		{"gap", []geometry.PathOp{geometry.MoveTo, geometry.LineTo, geometry.MoveTo, geometry.LineTo}},
		{"cubic", []geometry.PathOp{geometry.MoveTo, geometry.LineTo, geometry.CubicTo, geometry.LineTo}},
	}
	for _, tc := range cases {
		p, err := Straight(corner(), ConnectorOptions{CornerType: tc.corner})
		if err != nil {
			t.Fatalf("%q: %v", tc.corner, err)
		}
		if len(p.Cmds) != len(tc.ops) {
			t.Fatalf("%q: cmds = %+v", tc.corner, p.Cmds)
		}
		for i, op := range tc.ops {
			if p.Cmds[i].Op != op {
				t.Fatalf("%q: cmd %d = %v, want %v", tc.corner, i, p.Cmds[i].Op, op)
			}
		}
	}
	if _, err := Straight(corner(), ConnectorOptions{CornerType: "bevel"}); err == nil {
		t.Fatalf("unknown corner type accepted")
	}
}

func TestSmooth_EndsAtTarget(t *testing.T) {
	c := Connection{
		SourcePoint: geometry.Pt(40, 20), TargetPoint: geometry.Pt(200, 120),
		SourceBBox: geometry.R(0, 0, 40, 40), TargetBBox: geometry.R(200, 100, 40, 40),
	}
	for _, dir := range []string{"", "legacy", "horizontal", "vertical"} {
		p, err := Smooth(c, ConnectorOptions{Direction: dir})
		if err != nil {
			t.Fatalf("%q: %v", dir, err)
		}
		if len(p.Cmds) != 2 || p.Cmds[1].Op != geometry.CubicTo || !lastEnd(p).Equals(c.TargetPoint) {
			t.Fatalf("%q: path = %+v", dir, p.Cmds)
		}
	}
	// auto leaves the right side horizontally
	p, _ := Smooth(c, ConnectorOptions{})
	if d := p.Cmds[1].Data; d[1] != 20 || d[0] != 120 {
		t.Fatalf("first control = %v,%v, want 120,20", d[0], d[1])
	}

	c.Route = []geometry.Point{{X: 100, Y: 60}, {X: 150, Y: 20}}
	p, err := Smooth(c, ConnectorOptions{})
	if err != nil || len(p.Cmds) != 4 {
		t.Fatalf("spline = %+v, %v", p.Cmds, err)
	}
	if !lastEnd(p).Equals(c.TargetPoint) || p.Cmds[1].Data[4] != 100 || p.Cmds[1].Data[5] != 60 {
		t.Fatalf("spline misses its knots: %+v", p.Cmds)
	}
}

func TestCurve_PassesThroughRoute(t *testing.T) {
	c := Connection{
		SourcePoint: geometry.Pt(40, 20), TargetPoint: geometry.Pt(200, 120),
		SourceBBox: geometry.R(0, 0, 40, 40), TargetBBox: geometry.R(200, 100, 40, 40),
		Route: []geometry.Point{{X: 120, Y: 80}},
	}
	p, err := Curve(c, ConnectorOptions{})
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	if len(p.Cmds) != 3 || p.Cmds[1].Data[4] != 120 || p.Cmds[1].Data[5] != 80 || !lastEnd(p).Equals(c.TargetPoint) {
		t.Fatalf("curve = %+v", p.Cmds)
	}
	// auto tangent leaves the right side: first control point is right of
	// the source and on its row
	if d := p.Cmds[1].Data; d[0] <= 40 || d[1] != 20 {
		t.Fatalf("source tangent control = %v,%v", d[0], d[1])
	}
	if _, err := Curve(c, ConnectorOptions{SourceDirection: "sideways"}); err == nil {
		t.Fatalf("unknown direction accepted")
	}
}

func TestJumpover_BridgesCrossing(t *testing.T) {
	c := Connection{
		SourcePoint: geometry.Pt(0, 50), TargetPoint: geometry.Pt(100, 50),
		Crossings: [][]geometry.Point{{{X: 50, Y: 0}, {X: 50, Y: 100}}},
	}
	p, err := Jumpover(c, ConnectorOptions{Jump: "gap"})
	if err != nil {
		t.Fatalf("jumpover: %v", err)
	}
	if len(p.Cmds) != 4 || p.Cmds[2].Op != geometry.MoveTo {
		t.Fatalf("gap path = %+v", p.Cmds)
	}
	if d := p.Cmds[1].Data; d[0] != 45 || d[1] != 50 {
		t.Fatalf("gap starts at %v,%v", d[0], d[1])
	}
	if d := p.Cmds[2].Data; d[0] != 55 || d[1] != 50 {
		t.Fatalf("gap ends at %v,%v", d[0], d[1])
	}

	p, err = Jumpover(c, ConnectorOptions{})
	if err != nil || len(p.Cmds) != 5 {
		t.Fatalf("arc path = %+v, %v", p.Cmds, err)
	}
	top := p.Cmds[2].Data
	if math.Abs(math.Abs(top[5]-50)-5) > 1e-9 || math.Abs(top[4]-50) > 1e-9 {
		t.Fatalf("arc apex = %v,%v, want 5 off the line at x=50", top[4], top[5])
	}

	plain, _ := Jumpover(Connection{SourcePoint: c.SourcePoint, TargetPoint: c.TargetPoint}, ConnectorOptions{})
	if len(plain.Cmds) != 2 {
		t.Fatalf("no crossings should draw a line: %+v", plain.Cmds)
	}
}

func TestJumpover_CrossingNearEndIsNotJumped(t *testing.T) {
	c := Connection{
		SourcePoint: geometry.Pt(0, 50), TargetPoint: geometry.Pt(100, 50),
		Crossings: [][]geometry.Point{{{X: 96, Y: 0}, {X: 96, Y: 100}}},
	}
	p, _ := Jumpover(c, ConnectorOptions{})
	if len(p.Cmds) != 2 {
		t.Fatalf("jump too close to the end: %+v", p.Cmds)
	}
}
