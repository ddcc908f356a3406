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
	"path/filepath"
	"strings"

	"github.com/clientIO/joint-sub027/internal/paper"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls a batch export of one paper to several formats.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <document>/exports/<preset>/.
//   - Each format writes <Name>.<format> into OutDir.
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // allowed: svg, png, pdf; empty means preset defaults
	Name        string   // file base name; defaults to "diagram"
	Scale       float64  // when > 0 overrides the preset's raster scale
	IncludeGrid *bool    // when set, overrides the preset's default
	OutDir      string
}

// BatchExport writes p in every format of the preset and returns the paths.
func BatchExport(root string, p *paper.Paper, opt BatchOptions) ([]string, error) {
	if p == nil {
		return nil, fmt.Errorf("paper is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	name := opt.Name
	if name == "" {
		name = "diagram"
	}

	ro := presetOptions(opt.Preset)
	if opt.Scale > 0 {
		ro.Scale = opt.Scale
	}
	if opt.IncludeGrid != nil {
		ro.IncludeGrid = *opt.IncludeGrid
	}

	var out []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		path, err := ExportFile(root, p, filepath.Join(baseOut, name+"."+f), ro)
		if err != nil {
			return out, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, path)
	}
	return out, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"svg", "png"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"svg"}
	}
}

// presetOptions: web keeps highlights at screen scale, print drops them and
// doubles the raster resolution.
func presetOptions(p PresetName) RenderOptions {
	switch p {
	case PresetPrint:
		return RenderOptions{Options: Options{SkipHighlights: true, IncludeGrid: false}, Scale: 2}
	default:
		return RenderOptions{Scale: 1}
	}
}
