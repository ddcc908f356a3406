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
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/clientIO/joint-sub027/internal/geometry"
)

var (
	regularOnce sync.Once
	regularFont *truetype.Font
	regularErr  error
	faceMu      sync.Mutex
	faces       = map[float64]font.Face{}
)

// faceFor returns a cached Go Regular face of the given pixel size.
func faceFor(size float64) (font.Face, error) {
	regularOnce.Do(func() {
		regularFont, regularErr = truetype.Parse(goregular.TTF)
	})
	if regularErr != nil {
		return nil, fmt.Errorf("parse font: %w", regularErr)
	}
	faceMu.Lock()
	defer faceMu.Unlock()
	if f, ok := faces[size]; ok {
		return f, nil
	}
	f := truetype.NewFace(regularFont, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	faces[size] = f
	return f, nil
}

// WritePNG rasterises s at scale pixels per paper unit.
func WritePNG(w io.Writer, s Scene, scale float64) error {
	if scale <= 0 {
		scale = 1
	}
	b := s.Bounds
	pw := max(int(math.Ceil(b.Width*scale)), 1)
	ph := max(int(math.Ceil(b.Height*scale)), 1)
	dc := gg.NewContext(pw, ph)
	dc.Scale(scale, scale)
	dc.Translate(-b.X, -b.Y)

	if c, ok := parseColor(s.Background); ok {
		dc.SetColor(c)
		dc.Clear()
	}
	if s.Grid > 0 {
		if c, ok := parseColor(s.GridColor); ok {
			dc.SetColor(c)
			dc.SetLineWidth(0.5)
			for _, l := range gridLines(b, s.Grid) {
				dc.DrawLine(l[0].X, l[0].Y, l[1].X, l[1].Y)
				dc.Stroke()
			}
		}
	}

	for _, it := range s.Items {
		switch it.Kind {
		case ItemPolygon:
			if len(it.Points) < 2 {
				continue
			}
			tracePath(dc, it.Points, true)
			paintPath(dc, it)
		case ItemPolyline:
			if len(it.Points) < 2 {
				continue
			}
			tracePath(dc, it.Points, false)
			it.Fill = ""
			paintPath(dc, it)
		case ItemRect:
			r := it.Rect.Normalize()
			if it.Rx > 0 || it.Ry > 0 {
				dc.DrawRoundedRectangle(r.X, r.Y, r.Width, r.Height, math.Max(it.Rx, it.Ry))
			} else {
				dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
			}
			paintPath(dc, it)
		case ItemText:
			c, ok := parseColor(it.Fill)
			if !ok {
				continue
			}
			face, err := faceFor(it.FontSize)
			if err != nil {
				return err
			}
			dc.SetFontFace(face)
			dc.SetColor(withOpacity(c, it.Opacity))
			dc.Push()
			if it.Angle != 0 {
				dc.RotateAbout(gg.Radians(it.Angle), it.At.X, it.At.Y)
			}
			for _, ln := range textLines(it) {
				dc.DrawStringAnchored(ln.text, ln.at.X, ln.at.Y, anchorShift(it.Anchor), 0)
			}
			dc.Pop()
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func tracePath(dc *gg.Context, pts []geometry.Point, closed bool) {
	dc.NewSubPath()
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	if closed {
		dc.ClosePath()
	}
}

// paintPath fills then strokes the current path and clears it.
func paintPath(dc *gg.Context, it Item) {
	if c, ok := parseColor(it.Fill); ok {
		dc.SetColor(withOpacity(c, it.Opacity))
		dc.FillPreserve()
	}
	if c, ok := parseColor(it.Stroke); ok && it.StrokeWidth > 0 {
		dc.SetColor(withOpacity(c, it.Opacity))
		dc.SetLineWidth(it.StrokeWidth)
		dc.StrokePreserve()
	}
	dc.ClearPath()
}
