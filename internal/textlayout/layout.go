/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and wraps label text. Measurement sits behind
// an interface so layout stays deterministic without fonts installed.
package textlayout

import (
	"strings"
	"unicode/utf8"
)

// LineHeight is the line advance in ems.
const LineHeight = 1.2

// Measurer returns the advance width of a single line of text.
type Measurer interface {
	Width(line string, fontSize float64) float64
}

// Estimate measures every rune as a fixed share of the font size. The zero
// value uses 0.6em, close to the average advance of sans-serif text.
type Estimate struct {
	Em float64
}

func (e Estimate) Width(line string, fontSize float64) float64 {
	em := e.Em
	if em <= 0 {
		em = 0.6
	}
	return float64(utf8.RuneCountInString(line)) * fontSize * em
}

// Box returns the size of text broken at newlines.
func Box(m Measurer, text string, fontSize float64) (w, h float64) {
	if m == nil {
		m = Estimate{}
	}
	lines := strings.Split(text, "\n")
	for _, l := range lines {
		w = max(w, m.Width(l, fontSize))
	}
	return w, float64(len(lines)) * fontSize * LineHeight
}

// Wrap breaks text into lines no wider than maxWidth, breaking at spaces and
// keeping explicit newlines. A word wider than maxWidth gets a line of its
// own. When maxHeight > 0 lines that do not fit are dropped and the last kept
// line ends in an ellipsis.
func Wrap(m Measurer, text string, fontSize, maxWidth, maxHeight float64) []string {
	if m == nil {
		m = Estimate{}
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		if maxWidth <= 0 {
			out = append(out, para)
			continue
		}
		cur := ""
		for _, word := range strings.Fields(para) {
			next := word
			if cur != "" {
				next = cur + " " + word
			}
			if cur != "" && m.Width(next, fontSize) > maxWidth {
				out = append(out, cur)
				cur = word
				continue
			}
			cur = next
		}
		out = append(out, cur)
	}
	if maxHeight <= 0 {
		return out
	}
	fit := int(maxHeight / (fontSize * LineHeight))
	if fit >= len(out) {
		return out
	}
	if fit <= 0 {
		return nil
	}
	out = out[:fit]
	out[fit-1] = ellipsize(m, out[fit-1], fontSize, maxWidth)
	return out
}

// ellipsize appends an ellipsis, trimming runes until the line fits.
func ellipsize(m Measurer, line string, fontSize, maxWidth float64) string {
	const ell = "…"
	r := []rune(strings.TrimRight(line, " "))
	for len(r) > 0 && maxWidth > 0 && m.Width(string(r)+ell, fontSize) > maxWidth {
		r = r[:len(r)-1]
	}
	return string(r) + ell
}
