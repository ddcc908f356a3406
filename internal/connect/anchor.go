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
	"github.com/clientIO/joint-sub027/internal/layout"
)

// SideMode selects how midSide picks a side.
type SideMode string

const (
	SideAuto             SideMode = "auto"
	SideHorizontal       SideMode = "horizontal"
	SideVertical         SideMode = "vertical"
	SidePreferHorizontal SideMode = "prefer-horizontal"
	SidePreferVertical   SideMode = "prefer-vertical"
)

// Sides holds per-side values. In JSON it is a number for all sides or an
// object with top/right/bottom/left.
type Sides struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

func AllSides(v float64) Sides { return Sides{v, v, v, v} }

func (s *Sides) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*s = AllSides(v)
		return nil
	}
	type plain Sides
	return json.Unmarshal(b, (*plain)(s))
}

// AnchorOptions are the arguments of all built-in anchors; each anchor reads
// the fields it understands.
type AnchorOptions struct {
	Dx                  layout.Value `json:"dx,omitzero"`
	Dy                  layout.Value `json:"dy,omitzero"`
	Rotate              bool         `json:"rotate,omitempty"`
	Padding             float64      `json:"padding,omitempty"`
	Mode                SideMode     `json:"mode,omitempty"`
	PreferenceThreshold Sides        `json:"preferenceThreshold,omitzero"`
}

// AnchorFunc returns the anchor of a link end on m; ref is the reference
// point the link comes from.
type AnchorFunc func(m Magnet, ref geometry.Point, opt AnchorOptions) geometry.Point

var (
	Center      = bboxAnchor(geometry.Rect.Center)
	Top         = bboxAnchor(geometry.Rect.TopMiddle)
	Bottom      = bboxAnchor(geometry.Rect.BottomMiddle)
	Left        = bboxAnchor(geometry.Rect.LeftMiddle)
	Right       = bboxAnchor(geometry.Rect.RightMiddle)
	TopLeft     = bboxAnchor(geometry.Rect.Origin)
	TopRight    = bboxAnchor(geometry.Rect.TopRight)
	BottomLeft  = bboxAnchor(geometry.Rect.BottomLeft)
	BottomRight = bboxAnchor(geometry.Rect.Corner)
)

// bboxAnchor picks a point of the magnet bbox. With Rotate the point is taken
// from the unrotated bbox and rotated with the element, otherwise from the
// bounds of the rotated magnet.
func bboxAnchor(pick func(geometry.Rect) geometry.Point) AnchorFunc {
	return func(m Magnet, _ geometry.Point, opt AnchorOptions) geometry.Point {
		bbox := m.NodeBBox()
		if opt.Rotate {
			bbox = m.BBox
		}
		p := pick(bbox)
		if dx, ok := opt.Dx.Resolve(bbox, bbox.Width); ok && isFinite(dx) {
			p.X += dx
		}
		if dy, ok := opt.Dy.Resolve(bbox, bbox.Height); ok && isFinite(dy) {
			p.Y += dy
		}
		if opt.Rotate {
			p = m.toPaper(p)
		}
		return p
	}
}

// Perpendicular keeps the link orthogonal to the magnet when the reference
// point lies within its horizontal or vertical span.
func Perpendicular(m Magnet, ref geometry.Point, opt AnchorOptions) geometry.Point {
	bbox := m.NodeBBox()
	anchor := bbox.Center()
	tl, br := bbox.Origin(), bbox.Corner()
	pad := opt.Padding
	angle := m.Angle

	switch {
	case tl.Y+pad <= ref.Y && ref.Y <= br.Y-pad:
		dy := ref.Y - anchor.Y
		if angle != 0 && angle != 180 {
			anchor.X += dy / math.Tan(geometry.ToRad(angle))
		}
		anchor.Y += dy
	case tl.X+pad <= ref.X && ref.X <= br.X-pad:
		dx := ref.X - anchor.X
		if angle != 90 && angle != 270 {
			anchor.Y += dx * math.Tan(geometry.ToRad(angle))
		}
		anchor.X += dx
	}
	return anchor
}

// MidSide returns the middle of the side facing ref.
func MidSide(m Magnet, ref geometry.Point, opt AnchorOptions) geometry.Point {
	bbox := m.NodeBBox()
	if opt.Rotate {
		bbox = m.BBox
		ref = m.toLocal(ref)
	}
	if opt.Padding != 0 {
		bbox = bbox.Inflate(opt.Padding, opt.Padding)
	}

	var anchor geometry.Point
	switch middleSide(bbox, ref, opt) {
	case geometry.SideLeft:
		anchor = bbox.LeftMiddle()
	case geometry.SideRight:
		anchor = bbox.RightMiddle()
	case geometry.SideTop:
		anchor = bbox.TopMiddle()
	default:
		anchor = bbox.BottomMiddle()
	}
	if opt.Rotate {
		anchor = m.toPaper(anchor)
	}
	return anchor
}

func middleSide(r geometry.Rect, p geometry.Point, opt AnchorOptions) geometry.Side {
	th := opt.PreferenceThreshold
	vertical := func() geometry.Side {
		if p.Y < r.Y+r.Height/2 {
			return geometry.SideTop
		}
		return geometry.SideBottom
	}
	horizontal := func() geometry.Side {
		if p.X < r.X+r.Width/2 {
			return geometry.SideLeft
		}
		return geometry.SideRight
	}
	switch opt.Mode {
	case SidePreferVertical:
		if p.Y > r.Y-th.Top && p.Y < r.Y+r.Height+th.Bottom {
			return horizontal()
		}
		return vertical()
	case SideVertical:
		return vertical()
	case SidePreferHorizontal:
		if p.X > r.X-th.Left && p.X < r.X+r.Width+th.Right {
			return vertical()
		}
		return horizontal()
	case SideHorizontal:
		return horizontal()
	}
	return r.SideNearestToPoint(p)
}

// ModelCenter is the rotated centre of the magnet shifted by dx/dy.
func ModelCenter(m Magnet, _ geometry.Point, opt AnchorOptions) geometry.Point {
	c := m.Center()
	if dx, ok := opt.Dx.Resolve(m.BBox, m.BBox.Width); ok && isFinite(dx) {
		c.X += dx
	}
	if dy, ok := opt.Dy.Resolve(m.BBox, m.BBox.Height); ok && isFinite(dy) {
		c.Y += dy
	}
	return c
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
