/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"math"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

// Text anchors used by label layouts.
const (
	AnchorStart  = "start"
	AnchorMiddle = "middle"
	AnchorEnd    = "end"
)

// LabelOptions are explicit label arguments. Nil fields fall back to the
// layout's defaults.
type LabelOptions struct {
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Angle      *float64 `json:"angle,omitempty"`
	Offset     *float64 `json:"offset,omitempty"`
	TextAnchor string   `json:"textAnchor,omitempty"`
	TextY      string   `json:"textY,omitempty"`
}

// LabelTransform is the label offset relative to the port, its rotation and
// the text attributes (SVG text-anchor and y).
type LabelTransform struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Angle      float64 `json:"angle"`
	TextAnchor string  `json:"textAnchor,omitempty"`
	TextY      string  `json:"textY,omitempty"`
}

// LabelLayout places a label for a port at portPos on an element with bbox.
type LabelLayout func(portPos geometry.Point, bbox geometry.Rect, opt LabelOptions) LabelTransform

func F(v float64) *float64 { return &v }

// withDefaults fills unset options from def.
func withDefaults(opt LabelOptions, def LabelTransform) LabelTransform {
	out := def
	if opt.X != nil {
		out.X = *opt.X
	}
	if opt.Y != nil {
		out.Y = *opt.Y
	}
	if opt.Angle != nil {
		out.Angle = *opt.Angle
	}
	if opt.TextAnchor != "" {
		out.TextAnchor = opt.TextAnchor
	}
	if opt.TextY != "" {
		out.TextY = opt.TextY
	}
	return out
}

func Manual(_ geometry.Point, _ geometry.Rect, opt LabelOptions) LabelTransform {
	return withDefaults(opt, LabelTransform{})
}

func LabelLeft(_ geometry.Point, _ geometry.Rect, opt LabelOptions) LabelTransform {
	return withDefaults(opt, LabelTransform{X: -15, TextY: ".3em", TextAnchor: AnchorEnd})
}

func LabelRight(_ geometry.Point, _ geometry.Rect, opt LabelOptions) LabelTransform {
	return withDefaults(opt, LabelTransform{X: 15, TextY: ".3em", TextAnchor: AnchorStart})
}

func LabelTop(_ geometry.Point, _ geometry.Rect, opt LabelOptions) LabelTransform {
	return withDefaults(opt, LabelTransform{Y: -15, TextY: "0", TextAnchor: AnchorMiddle})
}

func LabelBottom(_ geometry.Point, _ geometry.Rect, opt LabelOptions) LabelTransform {
	return withDefaults(opt, LabelTransform{Y: 15, TextY: ".6em", TextAnchor: AnchorMiddle})
}

func Outside(pos geometry.Point, bbox geometry.Rect, opt LabelOptions) LabelTransform {
	return outsideLayout(pos, bbox, false, opt)
}

func OutsideOriented(pos geometry.Point, bbox geometry.Rect, opt LabelOptions) LabelTransform {
	return outsideLayout(pos, bbox, true, opt)
}

func Inside(pos geometry.Point, bbox geometry.Rect, opt LabelOptions) LabelTransform {
	return insideLayout(pos, bbox, false, opt)
}

func InsideOriented(pos geometry.Point, bbox geometry.Rect, opt LabelOptions) LabelTransform {
	return insideLayout(pos, bbox, true, opt)
}

func Radial(pos geometry.Point, bbox geometry.Rect, opt LabelOptions) LabelTransform {
	return radialLayout(pos.Difference(bbox.Center()), false, opt)
}

func RadialOriented(pos geometry.Point, bbox geometry.Rect, opt LabelOptions) LabelTransform {
	return radialLayout(pos.Difference(bbox.Center()), true, opt)
}

func offsetOr(opt LabelOptions, def float64) float64 {
	if opt.Offset != nil {
		return *opt.Offset
	}
	return def
}

// bboxAngles returns the thetas from the centre to the corners in the order
// top-left, top-right, bottom-right, bottom-left.
func bboxAngles(bbox geometry.Rect) [4]float64 {
	c := bbox.Center()
	return [4]float64{
		c.Theta(bbox.Origin()),
		c.Theta(bbox.TopRight()),
		c.Theta(bbox.Corner()),
		c.Theta(bbox.BottomLeft()),
	}
}

func outsideLayout(pos geometry.Point, bbox geometry.Rect, oriented bool, opt LabelOptions) LabelTransform {
	offset := offsetOr(opt, 15)
	angle := bbox.Center().Theta(pos)
	a := bboxAngles(bbox)

	var out LabelTransform
	switch {
	case angle < a[1] || angle > a[2]:
		out = LabelTransform{X: offset, TextY: ".3em", TextAnchor: AnchorStart}
	case angle < a[0]:
		out = LabelTransform{Y: -offset}
		if oriented {
			out.Angle, out.TextAnchor, out.TextY = -90, AnchorStart, ".3em"
		} else {
			out.TextAnchor, out.TextY = AnchorMiddle, "0"
		}
	case angle < a[3]:
		out = LabelTransform{X: -offset, TextY: ".3em", TextAnchor: AnchorEnd}
	default:
		out = LabelTransform{Y: offset}
		if oriented {
			out.Angle, out.TextAnchor, out.TextY = 90, AnchorStart, ".3em"
		} else {
			out.TextAnchor, out.TextY = AnchorMiddle, ".6em"
		}
	}
	out.X, out.Y = geometry.Round(out.X, 0), geometry.Round(out.Y, 0)
	return out
}

func insideLayout(pos geometry.Point, bbox geometry.Rect, oriented bool, opt LabelOptions) LabelTransform {
	offset := offsetOr(opt, 15)
	angle := bbox.Center().Theta(pos)
	a := bboxAngles(bbox)

	var out LabelTransform
	switch {
	case angle < a[1] || angle > a[2]:
		out = LabelTransform{X: -offset, TextY: ".3em", TextAnchor: AnchorEnd}
	case angle < a[0]:
		out = LabelTransform{Y: offset}
		if oriented {
			out.Angle, out.TextAnchor, out.TextY = 90, AnchorStart, ".3em"
		} else {
			out.TextAnchor, out.TextY = AnchorMiddle, ".6em"
		}
	case angle < a[3]:
		out = LabelTransform{X: offset, TextY: ".3em", TextAnchor: AnchorStart}
	default:
		out = LabelTransform{Y: -offset}
		if oriented {
			out.Angle, out.TextAnchor, out.TextY = -90, AnchorStart, ".3em"
		} else {
			out.TextAnchor, out.TextY = AnchorMiddle, "0"
		}
	}
	out.X, out.Y = geometry.Round(out.X, 0), geometry.Round(out.Y, 0)
	return out
}

// radialLayout offsets the label along the ray from the element centre
// through the port; centerOffset is the port position relative to the centre.
func radialLayout(centerOffset geometry.Point, oriented bool, opt LabelOptions) LabelTransform {
	origin := geometry.Pt(0, 0)
	angle := -centerOffset.Theta(origin)
	orient := angle
	off := centerOffset.Move(origin, offsetOr(opt, 20)).Difference(centerOffset).Round(0)

	out := LabelTransform{TextY: ".3em"}
	switch {
	case math.Mod(angle+90, 180) == 0:
		out.TextAnchor = AnchorMiddle
		if oriented {
			out.TextAnchor = AnchorEnd
		} else if angle == -270 {
			out.TextY = "0em"
		}
	case angle > -270 && angle < -90:
		out.TextAnchor = AnchorStart
		orient = angle - 180
	default:
		out.TextAnchor = AnchorEnd
	}
	out.X, out.Y = geometry.Round(off.X, 0), geometry.Round(off.Y, 0)
	if oriented {
		out.Angle = orient
	}
	return out
}
