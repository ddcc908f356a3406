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
	"errors"
	"math"
	"testing"

	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/layout"
)

func almostEq(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func near(p, q geometry.Point) bool { return almostEq(p.X, q.X, 1e-6) && almostEq(p.Y, q.Y, 1e-6) }

func TestShape_ConnectionPoint(t *testing.T) {
	cases := []struct {
		name  string
		shape Shape
		bbox  geometry.Rect
		ref   geometry.Point
		want  geometry.Point
	}{
		{"rectangle right", Rectangle(), geometry.R(0, 0, 140, 70), geometry.Pt(200, 35), geometry.Pt(140, 35)},
		{"ellipse major axis", EllipseShape(), geometry.R(0, 0, 140, 70), geometry.Pt(1000, 35), geometry.Pt(140, 35)},
		{"rhombus lower right", Rhombus(), geometry.R(0, 0, 100, 100), geometry.Pt(200, 100), geometry.Pt(87.5, 62.5)},
		{"triangle base", Triangle(), geometry.R(0, 0, 100, 100), geometry.Pt(50, 200), geometry.Pt(50, 100)},
		{"rectangle ref inside", Rectangle(), geometry.R(0, 0, 100, 100), geometry.Pt(60, 50), geometry.Pt(100, 50)},
		{"zero size", Rectangle(), geometry.R(10, 10, 0, 0), geometry.Pt(50, 50), geometry.Pt(10, 10)},
		{"ref at centre", Rhombus(), geometry.R(0, 0, 100, 100), geometry.Pt(50, 50), geometry.Pt(50, 50)},
	}
	for _, c := range cases {
		got := c.shape.ConnectionPoint(c.bbox, c.ref)
		if !near(got, c.want) {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
		if again := c.shape.ConnectionPoint(c.bbox, c.ref); !again.Equals(got) {
			t.Fatalf("%s: not idempotent: %v then %v", c.name, got, again)
		}
	}
}

func TestShape_PolygonEdgesInTraversalOrder(t *testing.T) {
	// The ray from the bbox centre crosses the edge at x=75 before the one
	// at x=100, but the x=100 edge comes first in the outline.
	s := PolygonShape(geometry.Pt(1, 0), geometry.Pt(1, 1), geometry.Pt(0.75, 1), geometry.Pt(0.75, 0))
	got := s.ConnectionPoint(geometry.R(0, 0, 100, 100), geometry.Pt(200, 50))
	if !near(got, geometry.Pt(100, 50)) {
		t.Fatalf("got %v, want first edge hit (100,50)", got)
	}
}

func TestShape_JSON(t *testing.T) {
	b, err := json.Marshal(Rhombus())
	if err != nil || string(b) != `"rhombus"` {
		t.Fatalf("marshal rhombus: %s %v", b, err)
	}
	poly := PolygonShape(geometry.Pt(0, 0), geometry.Pt(1, 0), geometry.Pt(0.5, 1))
	b, err = json.Marshal(poly)
	if err != nil {
		t.Fatalf("marshal polygon: %v", err)
	}
	var back Shape
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Kind != ShapePolygon || len(back.Points) != 3 || !back.Points[2].Equals(geometry.Pt(0.5, 1)) {
		t.Fatalf("round trip: %+v", back)
	}
	if err := json.Unmarshal([]byte(`"star"`), &back); !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("expected ErrUnknownShape, got %v", err)
	}
}

func TestBBoxAnchors(t *testing.T) {
	m := ElementMagnet(geometry.R(0, 0, 100, 50), 0, Rectangle())
	if p := Center(m, geometry.Point{}, AnchorOptions{}); !p.Equals(geometry.Pt(50, 25)) {
		t.Fatalf("center: %v", p)
	}
	if p := Top(m, geometry.Point{}, AnchorOptions{Dx: layout.Expr("10%")}); !p.Equals(geometry.Pt(60, 0)) {
		t.Fatalf("top with percentage dx: %v", p)
	}
	if p := BottomRight(m, geometry.Point{}, AnchorOptions{Dy: layout.Expr("calc(-0.5*h)")}); !p.Equals(geometry.Pt(100, 25)) {
		t.Fatalf("bottomRight with calc dy: %v", p)
	}

	rot := ElementMagnet(geometry.R(0, 0, 100, 50), 90, Rectangle())
	if p := TopLeft(rot, geometry.Point{}, AnchorOptions{}); !near(p, geometry.Pt(25, -25)) {
		t.Fatalf("topLeft of rotated bounds: %v", p)
	}
	if p := TopLeft(rot, geometry.Point{}, AnchorOptions{Rotate: true}); !near(p, geometry.Pt(75, -25)) {
		t.Fatalf("topLeft rotated with element: %v", p)
	}
}

func TestPerpendicularAndMidSide(t *testing.T) {
	m := ElementMagnet(geometry.R(0, 0, 100, 50), 0, Rectangle())
	if p := Perpendicular(m, geometry.Pt(300, 10), AnchorOptions{}); !p.Equals(geometry.Pt(50, 10)) {
		t.Fatalf("perpendicular horizontal: %v", p)
	}
	if p := Perpendicular(m, geometry.Pt(30, 300), AnchorOptions{}); !p.Equals(geometry.Pt(30, 25)) {
		t.Fatalf("perpendicular vertical: %v", p)
	}
	if p := Perpendicular(m, geometry.Pt(300, 300), AnchorOptions{}); !p.Equals(geometry.Pt(50, 25)) {
		t.Fatalf("perpendicular fallback: %v", p)
	}

	cases := []struct {
		name string
		ref  geometry.Point
		opt  AnchorOptions
		want geometry.Point
	}{
		{"auto", geometry.Pt(300, 10), AnchorOptions{}, geometry.Pt(100, 25)},
		{"vertical", geometry.Pt(300, 10), AnchorOptions{Mode: SideVertical}, geometry.Pt(50, 0)},
		{"prefer horizontal inside span", geometry.Pt(40, -100), AnchorOptions{Mode: SidePreferHorizontal}, geometry.Pt(50, 0)},
		{"prefer horizontal outside span", geometry.Pt(300, -100), AnchorOptions{Mode: SidePreferHorizontal}, geometry.Pt(100, 25)},
		{"padding", geometry.Pt(300, 25), AnchorOptions{Padding: 10}, geometry.Pt(110, 25)},
	}
	for _, c := range cases {
		if got := MidSide(m, c.ref, c.opt); !got.Equals(c.want) {
			t.Fatalf("midSide %s: got %v want %v", c.name, got, c.want)
		}
	}
	if p := ModelCenter(m, geometry.Point{}, AnchorOptions{Dx: layout.Num(5)}); !p.Equals(geometry.Pt(55, 25)) {
		t.Fatalf("modelCenter: %v", p)
	}
}

func TestBBoxAndAnchorConnectionPoints(t *testing.T) {
	m := ElementMagnet(geometry.R(0, 0, 100, 50), 0, Rectangle())
	line := geometry.NewLine(geometry.Pt(300, 25), geometry.Pt(50, 25))
	if p := BBoxPoint(line, m, ConnectionPointOptions{}); !near(p, geometry.Pt(100, 25)) {
		t.Fatalf("bbox: %v", p)
	}
	if p := BBoxPoint(line, m, ConnectionPointOptions{Offset: Offset{X: 10}}); !near(p, geometry.Pt(110, 25)) {
		t.Fatalf("bbox with offset: %v", p)
	}
	m.StrokeWidth = 4
	if p := BBoxPoint(line, m, ConnectionPointOptions{Stroke: true}); !near(p, geometry.Pt(102, 25)) {
		t.Fatalf("bbox with stroke: %v", p)
	}

	aligned := AnchorPoint(geometry.NewLine(geometry.Pt(300, 100), geometry.Pt(50, 25)), m,
		ConnectionPointOptions{Align: "top", AlignOffset: 5})
	if !aligned.Equals(geometry.Pt(50, 20)) {
		t.Fatalf("anchor aligned top: %v", aligned)
	}
}

func TestRectanglePoint_Rotated(t *testing.T) {
	m := ElementMagnet(geometry.R(0, 0, 100, 50), 90, Rectangle())
	line := geometry.NewLine(geometry.Pt(300, 25), geometry.Pt(50, 25))
	if p := RectanglePoint(line, m, ConnectionPointOptions{}); !near(p, geometry.Pt(75, 25)) {
		t.Fatalf("rectangle rotated: %v", p)
	}
}

func TestBoundaryPoint(t *testing.T) {
	m := ElementMagnet(geometry.R(0, 0, 140, 70), 0, EllipseShape())
	line := geometry.NewLine(geometry.Pt(300, 35), geometry.Pt(70, 35))
	if p := BoundaryPoint(line, m, ConnectionPointOptions{}); !near(p, geometry.Pt(140, 35)) {
		t.Fatalf("boundary ellipse: %v", p)
	}
	if p := BoundaryPoint(line, m, ConnectionPointOptions{Extrapolate: true}); !near(p, geometry.Pt(140, 35)) {
		t.Fatalf("boundary extrapolated: %v", p)
	}

	short := geometry.NewLine(geometry.Pt(300, 35), geometry.Pt(200, 35))
	if p := BoundaryPoint(short, m, ConnectionPointOptions{}); !p.Equals(geometry.Pt(200, 35)) {
		t.Fatalf("no hit should keep the anchor: %v", p)
	}
	if p := BoundaryPoint(short, m, ConnectionPointOptions{Sticky: true}); !near(p, geometry.Pt(140, 35)) {
		t.Fatalf("sticky: %v", p)
	}

	off := false
	inside := geometry.NewLine(geometry.Pt(60, 35), geometry.Pt(70, 35))
	if p := BoundaryPoint(inside, m, ConnectionPointOptions{Insideout: &off}); !p.Equals(geometry.Pt(70, 35)) {
		t.Fatalf("insideout=false: %v", p)
	}

	rh := ElementMagnet(geometry.R(0, 0, 100, 100), 0, Rhombus())
	if p := BoundaryPoint(geometry.NewLine(geometry.Pt(200, 50), geometry.Pt(50, 50)), rh, ConnectionPointOptions{}); !near(p, geometry.Pt(100, 50)) {
		t.Fatalf("boundary rhombus: %v", p)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	m := ElementMagnet(geometry.R(0, 0, 100, 50), 0, Rectangle())
	a, err := r.ResolveAnchor(m, geometry.Pt(300, 25), nil)
	if err != nil || !a.Equals(geometry.Pt(50, 25)) {
		t.Fatalf("default anchor: %v %v", a, err)
	}
	cp, err := r.ResolveConnectionPoint(m, geometry.Pt(300, 25), a, nil)
	if err != nil || !near(cp, geometry.Pt(100, 25)) {
		t.Fatalf("default connection point: %v %v", cp, err)
	}
	if _, err := r.ResolveAnchor(m, geometry.Point{}, &AnchorSpec{Name: "nowhere"}); !errors.Is(err, ErrUnknownAnchor) {
		t.Fatalf("expected ErrUnknownAnchor, got %v", err)
	}
	if _, err := r.ConnectionPoint("spline"); !errors.Is(err, ErrUnknownConnectionPoint) {
		t.Fatalf("expected ErrUnknownConnectionPoint, got %v", err)
	}
}

func TestOptionsJSON(t *testing.T) {
	var opt AnchorOptions
	if err := json.Unmarshal([]byte(`{"mode":"prefer-vertical","preferenceThreshold":5,"dx":"50%"}`), &opt); err != nil {
		t.Fatalf("anchor options: %v", err)
	}
	if opt.PreferenceThreshold != AllSides(5) || opt.Mode != SidePreferVertical || !opt.Dx.IsPercentage() {
		t.Fatalf("anchor options: %+v", opt)
	}
	var cp ConnectionPointOptions
	if err := json.Unmarshal([]byte(`{"offset":{"x":3,"y":4},"sticky":true}`), &cp); err != nil {
		t.Fatalf("connection point options: %v", err)
	}
	if cp.Offset != (Offset{X: 3, Y: 4, HasY: true}) || !cp.Sticky {
		t.Fatalf("connection point options: %+v", cp)
	}
}
