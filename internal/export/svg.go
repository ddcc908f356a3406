/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

// WriteSVG writes a standalone SVG document of s to w. The viewBox stays in
// paper units; scale only changes the width and height attributes.
func WriteSVG(w io.Writer, s Scene, scale float64) error {
	if scale <= 0 {
		scale = 1
	}
	b := s.Bounds
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"%s %s %s %s\">\n",
		int(math.Ceil(b.Width*scale)), int(math.Ceil(b.Height*scale)), num(b.X), num(b.Y), num(b.Width), num(b.Height))
	wf("  <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" fill=\"%s\"/>\n", num(b.X), num(b.Y), num(b.Width), num(b.Height), escAttr(s.Background))

	if s.Grid > 0 {
		wf("  <g class=\"grid\" stroke=\"%s\" stroke-width=\"0.5\">\n", escAttr(s.GridColor))
		for _, l := range gridLines(b, s.Grid) {
			wf("    <line x1=\"%s\" y1=\"%s\" x2=\"%s\" y2=\"%s\"/>\n", num(l[0].X), num(l[0].Y), num(l[1].X), num(l[1].Y))
		}
		wf("  </g>\n")
	}

	for _, it := range s.Items {
		switch it.Kind {
		case ItemPolygon:
			if len(it.Points) < 2 {
				continue
			}
			wf("  <polygon%s points=\"%s\"%s/>\n", classAttr(it.Class), pointsAttr(it.Points), paintAttrs(it))
		case ItemPolyline:
			if len(it.Points) < 2 {
				continue
			}
			wf("  <polyline%s points=\"%s\" fill=\"none\"%s/>\n", classAttr(it.Class), pointsAttr(it.Points), paintAttrs(it))
		case ItemRect:
			r := it.Rect.Normalize()
			wf("  <rect%s x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\"", classAttr(it.Class), num(r.X), num(r.Y), num(r.Width), num(r.Height))
			if it.Rx > 0 || it.Ry > 0 {
				wf(" rx=\"%s\" ry=\"%s\"", num(it.Rx), num(it.Ry))
			}
			wf("%s/>\n", paintAttrs(it))
		case ItemText:
			writeSVGText(wf, it)
		}
	}

	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// writeSVGText emits one <text> with a <tspan> per line.
func writeSVGText(wf func(string, ...any), it Item) {
	lines := strings.Split(it.Text, "\n")
	wf("  <text%s x=\"%s\" y=\"%s\" font-family=\"sans-serif\" font-size=\"%s\" text-anchor=\"%s\" fill=\"%s\"",
		classAttr(it.Class), num(it.At.X), num(it.At.Y), num(it.FontSize), it.Anchor, escAttr(it.Fill))
	if it.Opacity < 1 {
		wf(" opacity=\"%s\"", num(it.Opacity))
	}
	if it.Angle != 0 {
		wf(" transform=\"rotate(%s %s %s)\"", num(it.Angle), num(it.At.X), num(it.At.Y))
	}
	wf(">")
	// multi-line text is centred on its middle line
	first := it.DY - float64(len(lines)-1)*0.6
	for i, l := range lines {
		dy := 1.2
		if i == 0 {
			dy = first
		}
		wf("<tspan x=\"%s\" dy=\"%sem\">%s</tspan>", num(it.At.X), num(dy), escText(l))
	}
	wf("</text>\n")
}

func paintAttrs(it Item) string {
	var sb strings.Builder
	if it.Kind != ItemPolyline {
		fill := it.Fill
		if fill == "" {
			fill = "none"
		}
		fmt.Fprintf(&sb, " fill=\"%s\"", escAttr(fill))
	}
	if it.Stroke != "" {
		fmt.Fprintf(&sb, " stroke=\"%s\" stroke-width=\"%s\"", escAttr(it.Stroke), num(it.StrokeWidth))
	}
	if it.Opacity < 1 {
		fmt.Fprintf(&sb, " opacity=\"%s\"", num(it.Opacity))
	}
	return sb.String()
}

func classAttr(class string) string {
	if class == "" {
		return ""
	}
	return " class=\"" + escAttr(class) + "\""
}

func pointsAttr(pts []geometry.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

// gridLines returns the grid segments inside b, aligned to multiples of size.
func gridLines(b geometry.Rect, size float64) [][2]geometry.Point {
	var out [][2]geometry.Point
	for x := math.Ceil(b.X/size) * size; x <= b.X+b.Width; x += size {
		out = append(out, [2]geometry.Point{geometry.Pt(x, b.Y), geometry.Pt(x, b.Y+b.Height)})
	}
	for y := math.Ceil(b.Y/size) * size; y <= b.Y+b.Height; y += size {
		out = append(out, [2]geometry.Point{geometry.Pt(b.X, y), geometry.Pt(b.X+b.Width, y)})
	}
	return out
}

func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}

func escAttr(s string) string {
	// naive escaping sufficient for attribute values we produce
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
