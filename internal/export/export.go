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
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/clientIO/joint-sub027/internal/paper"
	"github.com/clientIO/joint-sub027/internal/storage"
)

// Format names an output format. The values double as preview kinds.
type Format string

const (
	FormatSVG Format = storage.PreviewKindSVG
	FormatPNG Format = storage.PreviewKindPNG
	FormatPDF Format = storage.PreviewKindPDF
)

// RenderOptions extend the scene Options with per-format settings.
type RenderOptions struct {
	Options
	// Scale is pixels per paper unit for PNG and the size factor of SVG.
	Scale float64
	// Title is written to the PDF metadata.
	Title string
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "svg", "png", "pdf":
		return Format(ext), nil
	default:
		return "", fmt.Errorf("export: unsupported file extension %q", filepath.Ext(path))
	}
}

// Render draws the rendered views of p to w. Pending view updates are flushed
// first so the output matches the current graph.
func Render(w io.Writer, p *paper.Paper, f Format, opt RenderOptions) error {
	if p == nil {
		return fmt.Errorf("paper is nil")
	}
	p.UpdateViews()
	s, err := BuildScene(p, opt.Options)
	if err != nil {
		return err
	}
	switch f {
	case FormatSVG:
		return WriteSVG(w, s, opt.Scale)
	case FormatPNG:
		return WritePNG(w, s, opt.Scale)
	case FormatPDF:
		return WritePDF(w, s, opt.Title)
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}

// RenderBytes is Render into memory.
func RenderBytes(p *paper.Paper, f Format, opt RenderOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, p, f, opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResolveOutPath places a relative output path under the document's exports
// folder.
func ResolveOutPath(root, outPath string) string {
	if filepath.IsAbs(outPath) {
		return outPath
	}
	return filepath.Join(root, storage.ExportsDirName, outPath)
}

// ExportFile renders p to outPath, choosing the format by extension. A
// relative path lands in root's exports folder. It returns the written path.
func ExportFile(root string, p *paper.Paper, outPath string, opt RenderOptions) (string, error) {
	f, err := FormatFromPath(outPath)
	if err != nil {
		return "", err
	}
	outPath = ResolveOutPath(root, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	data, err := RenderBytes(p, f, opt)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", f, err)
	}
	return outPath, nil
}

// Preview returns a cached rendering of the document behind h, rendering and
// storing it when the cache has none for the current graph. W and H of the
// cache key are the pixel size of the output.
func Preview(ctx context.Context, h *storage.Handle, p *paper.Paper, f Format, opt RenderOptions) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("nil Handle")
	}
	p.UpdateViews()
	content, ok := p.ContentBBox()
	if !ok {
		return nil, ErrNothingToExport
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = defaultMargin
	}
	key := storage.PreviewKey{
		DocID:     h.Doc.ID,
		GraphHash: storage.GraphHash(h.Doc.Graph),
		Kind:      string(f),
		W:         int(math.Ceil((content.Width + 2*margin) * scale)),
		H:         int(math.Ceil((content.Height + 2*margin) * scale)),
	}
	return storage.GetOrCreatePreview(ctx, h.Root, key, func(context.Context) ([]byte, error) {
		return RenderBytes(p, f, opt)
	})
}
