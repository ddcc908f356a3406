/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package paper

import (
	"math"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

// Guide orientations and kinds.
const (
	GuideVertical   = "vertical"
	GuideHorizontal = "horizontal"
	GuideEdge       = "edge"
	GuideCenter     = "center"
)

// SnapOptions controls element to element snapping.
type SnapOptions struct {
	// Threshold is the largest distance that still snaps. Zero means 6.
	Threshold float64
	Edges     bool
	Centers   bool
}

// Guide is an alignment line found while snapping. Position is the x of a
// vertical guide or the y of a horizontal one; From and To span both boxes.
type Guide struct {
	Orientation string         `json:"orientation"`
	Kind        string         `json:"kind"`
	Position    float64        `json:"position"`
	From        geometry.Point `json:"from"`
	To          geometry.Point `json:"to"`
}

type snapCandidate struct {
	delta float64
	dist  float64
	guide Guide
}

// SnapLines moves the box of cellID, proposed at moving, onto the nearest
// edge or centre of another rendered element. X and Y snap independently;
// the guides of each applied snap are returned.
func (p *Paper) SnapLines(cellID string, moving geometry.Rect, opt SnapOptions) (geometry.Rect, []Guide) {
	if opt.Threshold <= 0 {
		opt.Threshold = 6
	}
	bestX := snapCandidate{dist: math.Inf(1)}
	bestY := snapCandidate{dist: math.Inf(1)}
	consider := func(best *snapCandidate, delta float64, g Guide) {
		d := math.Abs(delta)
		if d <= opt.Threshold && d < best.dist {
			*best = snapCandidate{delta: delta, dist: d, guide: g}
		}
	}

	m := moving.Normalize()
	mc := m.Center()
	for _, v := range p.Views() {
		c := v.Cell()
		if c.ID == cellID || !c.IsElement() || !v.IsRendered() {
			continue
		}
		a := v.Element.BBox
		ac := a.Center()
		if opt.Edges {
			for _, ax := range []float64{a.X, a.X + a.Width} {
				g := verticalGuide(ax, m, a, GuideEdge)
				consider(&bestX, m.X-ax, g)
				consider(&bestX, m.X+m.Width-ax, g)
			}
			for _, ay := range []float64{a.Y, a.Y + a.Height} {
				g := horizontalGuide(ay, m, a, GuideEdge)
				consider(&bestY, m.Y-ay, g)
				consider(&bestY, m.Y+m.Height-ay, g)
			}
		}
		if opt.Centers {
			consider(&bestX, mc.X-ac.X, verticalGuide(ac.X, m, a, GuideCenter))
			consider(&bestY, mc.Y-ac.Y, horizontalGuide(ac.Y, m, a, GuideCenter))
		}
	}

	snapped := m
	var guides []Guide
	if !math.IsInf(bestX.dist, 1) {
		snapped.X -= bestX.delta
		guides = append(guides, bestX.guide)
	}
	if !math.IsInf(bestY.dist, 1) {
		snapped.Y -= bestY.delta
		guides = append(guides, bestY.guide)
	}
	return snapped, guides
}

func verticalGuide(x float64, a, b geometry.Rect, kind string) Guide {
	y0 := math.Min(a.Y, b.Y)
	y1 := math.Max(a.Y+a.Height, b.Y+b.Height)
	return Guide{Orientation: GuideVertical, Kind: kind, Position: x, From: geometry.Pt(x, y0), To: geometry.Pt(x, y1)}
}

func horizontalGuide(y float64, a, b geometry.Rect, kind string) Guide {
	x0 := math.Min(a.X, b.X)
	x1 := math.Max(a.X+a.Width, b.X+b.Width)
	return Guide{Orientation: GuideHorizontal, Kind: kind, Position: y, From: geometry.Pt(x0, y), To: geometry.Pt(x1, y)}
}
