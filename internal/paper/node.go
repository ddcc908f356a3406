/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package paper

import (
	"slices"
	"strconv"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

// Node selectors understood by CellView.FindNode.
const (
	SelectorRoot  = "root"
	SelectorBody  = "body"
	SelectorLabel = "label"
	portPrefix    = "port:"
)

// PortSelector returns the selector of a port node.
func PortSelector(id string) string { return portPrefix + id }

// LinkLabelSelector returns the selector of the i-th link label.
func LinkLabelSelector(i int) string { return SelectorLabel + ":" + strconv.Itoa(i) }

// Node is a rendered part of a view. Its geometry follows the view; classes
// and opacity are decorations added by highlighters. A detached node ignores
// decoration calls.
type Node struct {
	id       string
	selector string
	bbox     geometry.Rect
	outline  []geometry.Point
	classes  []string
	opacity  float64
	detached bool
}

func newNode(cid, selector string) *Node {
	return &Node{id: cid + "/" + selector, selector: selector, opacity: 1}
}

func (n *Node) NodeID() string            { return n.id }
func (n *Node) Selector() string          { return n.selector }
func (n *Node) BBox() geometry.Rect       { return n.bbox }
func (n *Node) Outline() []geometry.Point { return slices.Clone(n.outline) }
func (n *Node) Classes() []string         { return slices.Clone(n.classes) }
func (n *Node) Opacity() float64          { return n.opacity }
func (n *Node) Detached() bool            { return n.detached }

func (n *Node) AddClass(name string) {
	if n.detached || name == "" || slices.Contains(n.classes, name) {
		return
	}
	n.classes = append(n.classes, name)
}

func (n *Node) RemoveClass(name string) {
	if n.detached {
		return
	}
	n.classes = slices.DeleteFunc(n.classes, func(c string) bool { return c == name })
}

func (n *Node) SetOpacity(v float64) {
	if n.detached {
		return
	}
	n.opacity = min(max(v, 0), 1)
}

func (n *Node) setGeometry(outline []geometry.Point) {
	n.outline = outline
	n.bbox = geometry.BoundingRect(outline)
}
