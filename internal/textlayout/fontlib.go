/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontMeasurer measures text with an OpenType font, including kerning.
// Faces are cached per size; it is safe for concurrent use.
type FontMeasurer struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontMeasurer parses a TTF or OTF font.
func NewFontMeasurer(data []byte) (*FontMeasurer, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &FontMeasurer{font: f, faces: map[float64]font.Face{}}, nil
}

// LoadFontMeasurer reads a font file from path.
func LoadFontMeasurer(path string) (*FontMeasurer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	m, err := NewFontMeasurer(data)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", path, err)
	}
	return m, nil
}

var (
	goRegularOnce sync.Once
	goRegular     *FontMeasurer
)

// GoRegular measures with the bundled Go Regular font, the face the PNG
// writer draws with.
func GoRegular() *FontMeasurer {
	goRegularOnce.Do(func() {
		m, err := NewFontMeasurer(goregular.TTF)
		if err != nil {
			panic(err)
		}
		goRegular = m
	})
	return goRegular
}

func (m *FontMeasurer) face(size float64) (font.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(m.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	m.faces[size] = f
	return f, nil
}

// Width falls back to Estimate when no face can be built for fontSize.
func (m *FontMeasurer) Width(line string, fontSize float64) float64 {
	if fontSize <= 0 {
		return 0
	}
	f, err := m.face(fontSize)
	if err != nil {
		return Estimate{}.Width(line, fontSize)
	}
	m.mu.Lock()
	adv := font.MeasureString(f, line)
	m.mu.Unlock()
	return float64(adv) / 64
}
