/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/color"
	"strconv"
	"strings"
)

var namedColors = map[string]color.RGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 128, 0, 255},
	"blue":   {0, 0, 255, 255},
	"orange": {255, 165, 0, 255},
	"yellow": {255, 255, 0, 255},
	"gray":   {128, 128, 128, 255},
	"grey":   {128, 128, 128, 255},
}

// parseColor understands #rgb, #rrggbb and a few colour names. "none",
// "transparent" and anything unknown report false so nothing is painted.
func parseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

// withOpacity scales the colour to premultiplied alpha.
func withOpacity(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	a := max(opacity, 0)
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(float64(c.A) * a),
	}
}
