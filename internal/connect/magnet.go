/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package connect

import "github.com/clientIO/joint-sub027/internal/geometry"

// Magnet is the part of an element a link end attaches to: the element body
// or one of its ports.
type Magnet struct {
	BBox        geometry.Rect  // unrotated bounds in paper coordinates
	Angle       float64        // rotation of the owning element in degrees
	Origin      geometry.Point // rotation centre, the element centre
	Shape       Shape
	StrokeWidth float64
}

// ElementMagnet is the magnet of an element body rotated around its own centre.
func ElementMagnet(bbox geometry.Rect, angle float64, shape Shape) Magnet {
	return Magnet{BBox: bbox, Angle: angle, Origin: bbox.Center(), Shape: shape}
}

// toPaper maps a point of the unrotated frame to paper coordinates.
func (m Magnet) toPaper(p geometry.Point) geometry.Point { return p.Rotate(m.Origin, -m.Angle) }

// toLocal is the inverse of toPaper.
func (m Magnet) toLocal(p geometry.Point) geometry.Point { return p.Rotate(m.Origin, m.Angle) }

// NodeBBox is the axis-aligned bounds of the rotated magnet.
func (m Magnet) NodeBBox() geometry.Rect {
	if m.Angle == 0 {
		return m.BBox
	}
	b := m.BBox
	return geometry.BoundingRect([]geometry.Point{
		m.toPaper(b.Origin()), m.toPaper(b.TopRight()),
		m.toPaper(b.Corner()), m.toPaper(b.BottomLeft()),
	})
}

// Center is the rotated centre of the magnet.
func (m Magnet) Center() geometry.Point { return m.toPaper(m.BBox.Center()) }

// BoundaryPoint resolves the outline point towards ref, honouring rotation.
func (m Magnet) BoundaryPoint(ref geometry.Point) geometry.Point {
	return m.toPaper(m.Shape.ConnectionPoint(m.BBox, m.toLocal(ref)))
}
