/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry holds the 2D primitives used by layouts, anchors and
// connection points. All types are plain values; methods return new values
// and never mutate the receiver.
//
// Angles are in degrees. Theta is measured counter-clockwise with the y axis
// pointing up (screen y inverted), rotations follow the screen convention
// (positive angle turns counter-clockwise on screen).
package geometry

import (
	"math"
	"strconv"
)

// Kind tags the concrete type behind a Shape.
type Kind uint8

const (
	KindLine Kind = iota + 1
	KindRect
	KindEllipse
	KindPolyline
	KindPolygon
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindRect:
		return "rect"
	case KindEllipse:
		return "ellipse"
	case KindPolyline:
		return "polyline"
	case KindPolygon:
		return "polygon"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}

// Shape is implemented by every primitive that takes part in intersection tests.
type Shape interface {
	Kind() Kind
	BBox() Rect
}

// ToRad converts degrees to radians.
func ToRad(deg float64) float64 { return deg * math.Pi / 180 }

// ToDeg converts radians to degrees.
func ToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeAngle maps an angle into [0, 360]. -360 maps to 360, like the
// browser implementation this mirrors.
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, 360)
	if angle < 0 {
		a += 360
	}
	return a
}

// Round rounds half up (towards +Inf) to the given number of decimals.
// math.Round rounds half away from zero, which differs for negative halves.
func Round(v float64, precision int) float64 {
	f := 1.0
	if precision > 0 {
		f = math.Pow(10, float64(precision))
	}
	return math.Floor(v*f+0.5) / f
}

// SnapToGrid snaps value to the nearest multiple of gridSize.
func SnapToGrid(value, gridSize float64) float64 {
	if gridSize == 0 {
		return value
	}
	return gridSize * Round(value/gridSize, 0)
}

func formatNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
