/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/jung-kurt/gofpdf"
)

// WritePDF writes s as a single page PDF. One paper unit maps to one point and
// the page is exactly the scene bounds. Text uses the built-in Helvetica so
// nothing is embedded.
func WritePDF(w io.Writer, s Scene, title string) error {
	b := s.Bounds
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: b.Width, Ht: b.Height},
	})
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.SetCreator("jointgeo", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// shift scene coordinates to the page origin
	at := func(p geometry.Point) (float64, float64) { return p.X - b.X, p.Y - b.Y }

	if c, ok := parseColor(s.Background); ok {
		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		pdf.Rect(0, 0, b.Width, b.Height, "F")
	}
	if s.Grid > 0 {
		if c, ok := parseColor(s.GridColor); ok {
			pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
			pdf.SetLineWidth(0.5)
			for _, l := range gridLines(b, s.Grid) {
				x1, y1 := at(l[0])
				x2, y2 := at(l[1])
				pdf.Line(x1, y1, x2, y2)
			}
		}
	}

	for _, it := range s.Items {
		pdf.SetAlpha(math.Min(math.Max(it.Opacity, 0), 1), "Normal")
		style := pdfPaint(pdf, it)
		switch it.Kind {
		case ItemPolygon:
			if len(it.Points) < 2 || style == "" {
				continue
			}
			pdf.Polygon(pdfPoints(it.Points, at), style)
		case ItemPolyline:
			if len(it.Points) < 2 || !strings.Contains(style, "D") {
				continue
			}
			x, y := at(it.Points[0])
			pdf.MoveTo(x, y)
			for _, p := range it.Points[1:] {
				x, y = at(p)
				pdf.LineTo(x, y)
			}
			pdf.DrawPath("D")
		case ItemRect:
			if style == "" {
				continue
			}
			r := it.Rect.Normalize()
			if it.Rx > 0 || it.Ry > 0 {
				pdf.Polygon(pdfPoints(roundedRectPoints(r, it.Rx, it.Ry), at), style)
				continue
			}
			x, y := at(r.Origin())
			pdf.Rect(x, y, r.Width, r.Height, style)
		case ItemText:
			c, ok := parseColor(it.Fill)
			if !ok {
				continue
			}
			pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
			pdf.SetFont("Helvetica", "", it.FontSize)
			if it.Angle != 0 {
				ax, ay := at(it.At)
				pdf.TransformBegin()
				// gofpdf turns counter-clockwise
				pdf.TransformRotate(-it.Angle, ax, ay)
			}
			for _, ln := range textLines(it) {
				txt := tr(ln.text)
				x, y := at(ln.at)
				x -= anchorShift(it.Anchor) * pdf.GetStringWidth(txt)
				pdf.Text(x, y, txt)
			}
			if it.Angle != 0 {
				pdf.TransformEnd()
			}
		}
	}
	pdf.SetAlpha(1, "Normal")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfPaint sets the colours of it and returns the gofpdf style string, empty
// when neither fill nor stroke paints anything.
func pdfPaint(pdf *gofpdf.Fpdf, it Item) string {
	style := ""
	if c, ok := parseColor(it.Fill); ok && it.Kind != ItemPolyline {
		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		style += "F"
	}
	if c, ok := parseColor(it.Stroke); ok && it.StrokeWidth > 0 {
		pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
		pdf.SetLineWidth(it.StrokeWidth)
		style += "D"
	}
	return style
}

func pdfPoints(pts []geometry.Point, at func(geometry.Point) (float64, float64)) []gofpdf.PointType {
	out := make([]gofpdf.PointType, len(pts))
	for i, p := range pts {
		out[i].X, out[i].Y = at(p)
	}
	return out
}

type textLine struct {
	text string
	at   geometry.Point // baseline anchor
}

// textLines splits a text item into baseline positioned lines, matching the
// tspan layout of the SVG writer.
func textLines(it Item) []textLine {
	lines := strings.Split(it.Text, "\n")
	out := make([]textLine, len(lines))
	y := it.At.Y + (it.DY-float64(len(lines)-1)*0.6)*it.FontSize
	for i, l := range lines {
		out[i] = textLine{text: l, at: geometry.Pt(it.At.X, y)}
		y += 1.2 * it.FontSize
	}
	return out
}

// anchorShift is the share of the text width left of the anchor point.
func anchorShift(anchor string) float64 {
	switch anchor {
	case AnchorStart:
		return 0
	case AnchorEnd:
		return 1
	}
	return 0.5
}

// roundedRectPoints approximates a rounded rectangle with quarter arcs.
func roundedRectPoints(r geometry.Rect, rx, ry float64) []geometry.Point {
	if ry <= 0 {
		ry = rx
	}
	if rx <= 0 {
		rx = ry
	}
	rx = math.Min(rx, r.Width/2)
	ry = math.Min(ry, r.Height/2)
	const steps = 6
	corners := []struct {
		c     geometry.Point
		start float64
	}{
		{geometry.Pt(r.X+r.Width-rx, r.Y+ry), -math.Pi / 2},
		{geometry.Pt(r.X+r.Width-rx, r.Y+r.Height-ry), 0},
		{geometry.Pt(r.X+rx, r.Y+r.Height-ry), math.Pi / 2},
		{geometry.Pt(r.X+rx, r.Y+ry), math.Pi},
	}
	out := make([]geometry.Point, 0, 4*(steps+1))
	for _, k := range corners {
		for i := 0; i <= steps; i++ {
			a := k.start + float64(i)*(math.Pi/2)/steps
			out = append(out, geometry.Pt(k.c.X+rx*math.Cos(a), k.c.Y+ry*math.Sin(a)))
		}
	}
	return out
}
