/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"testing"
)

func TestEstimate_Box(t *testing.T) {
	w, h := Box(nil, "abcd\nab", 10)
	if w != 24 || h != 24 {
		t.Fatalf("box = %v x %v, want 24 x 24", w, h)
	}
	if w := (Estimate{Em: 0.5}).Width("héllo", 10); w != 25 {
		t.Fatalf("width counts runes: %v", w)
	}
}

func TestWrap_BreaksAtSpaces(t *testing.T) {
	// 6 px per rune at size 10
	lines := Wrap(nil, "Hello world from Go", 10, 70, 0)
	want := []string{"Hello world", "from Go"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
}

func TestWrap_KeepsNewlinesAndLongWords(t *testing.T) {
	lines := Wrap(nil, "a\nextraordinarily long", 10, 30, 0)
	want := []string{"a", "extraordinarily", "long"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	if got := Wrap(nil, "no limit here", 10, 0, 0); len(got) != 1 {
		t.Fatalf("zero width must not wrap: %q", got)
	}
}

func TestWrap_EllipsisWhenTooTall(t *testing.T) {
	// two lines of 12 px fit into 30
	lines := Wrap(nil, "one two three four", 10, 40, 30)
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	last := lines[1]
	if !strings.HasSuffix(last, "…") {
		t.Fatalf("last line %q has no ellipsis", last)
	}
	if w := (Estimate{}).Width(last, 10); w > 40 {
		t.Fatalf("ellipsized line too wide: %v", w)
	}
	if got := Wrap(nil, "x", 10, 40, 5); got != nil {
		t.Fatalf("nothing fits: %q", got)
	}
}

func TestGoRegular_Measures(t *testing.T) {
	m := GoRegular()
	narrow := m.Width("iii", 14)
	wide := m.Width("WWW", 14)
	if narrow <= 0 || wide <= narrow {
		t.Fatalf("iii=%v WWW=%v", narrow, wide)
	}
	if m.Width("WWW", 28) <= wide*1.9 {
		t.Fatalf("width should scale with size")
	}
	if m.Width("", 14) != 0 {
		t.Fatalf("empty text has width")
	}
}
