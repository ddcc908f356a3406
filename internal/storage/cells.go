/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/clientIO/joint-sub027/internal/geometry"
	"github.com/clientIO/joint-sub027/internal/graph"
)

// CellRow is one indexed cell.
type CellRow struct {
	ID     string
	Type   string
	Kind   string
	Z      float64
	Parent string
	BBox   geometry.Rect
	Text   string
}

// SearchQuery filters a text search over cell labels.
type SearchQuery struct {
	Text   string
	Types  []string // cell types; empty means all
	Limit  int
	Offset int
}

type SearchResult struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Snippet string `json:"snippet"`
}

// IndexGraph replaces the cell index of root with the cells of g.
func IndexGraph(ctx context.Context, root string, g *graph.Graph) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	return writeCells(ctx, db, g)
}

func rowFor(c *graph.Cell) CellRow {
	return CellRow{
		ID:     c.ID,
		Type:   c.Type,
		Kind:   c.Kind.String(),
		Z:      c.Z,
		Parent: c.Parent,
		BBox:   c.RotatedBBox(),
		Text:   cellText(c),
	}
}

// cellText joins the label texts of a cell.
func cellText(c *graph.Cell) string {
	var parts []string
	if c.IsLink() {
		for _, l := range c.Labels {
			if s := strings.TrimSpace(l.Text()); s != "" {
				parts = append(parts, s)
			}
		}
	} else if s, ok := c.AttrString("label", "text"); ok && strings.TrimSpace(s) != "" {
		parts = append(parts, strings.TrimSpace(s))
	}
	for _, p := range c.Ports.Items {
		if s, ok := attrText(p.Attrs); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func attrText(attrs map[string]any) (string, bool) {
	lbl, ok := attrs["label"].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := lbl["text"].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func writeCells(ctx context.Context, db *sql.DB, g *graph.Graph) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cells;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear cells: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO cells(id, type, kind, z, parent, x, y, width, height, text) VALUES(?,?,?,?,?,?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	if g != nil {
		for _, c := range g.Cells() {
			r := rowFor(c)
			parent := sql.NullString{String: r.Parent, Valid: r.Parent != ""}
			if _, err := ins.ExecContext(ctx, r.ID, r.Type, r.Kind, r.Z, parent, r.BBox.X, r.BBox.Y, r.BBox.Width, r.BBox.Height, r.Text); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert cell %s: %w", r.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// QueryCellsInArea returns the indexed cells whose bbox intersects area, or
// lies inside it when strict, in z order.
func QueryCellsInArea(ctx context.Context, root string, area geometry.Rect, strict bool) ([]CellRow, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	a := area.Normalize()
	q := `SELECT id, type, kind, z, parent, x, y, width, height, text FROM cells
		WHERE x <= ? AND y <= ? AND x + width >= ? AND y + height >= ?
		ORDER BY z ASC, rowid ASC`
	args := []any{a.X + a.Width, a.Y + a.Height, a.X, a.Y}
	if strict {
		q = `SELECT id, type, kind, z, parent, x, y, width, height, text FROM cells
			WHERE x >= ? AND y >= ? AND x + width <= ? AND y + height <= ?
			ORDER BY z ASC, rowid ASC`
		args = []any{a.X, a.Y, a.X + a.Width, a.Y + a.Height}
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()
	var out []CellRow
	for rows.Next() {
		var r CellRow
		var parent, text sql.NullString
		if err := rows.Scan(&r.ID, &r.Type, &r.Kind, &r.Z, &parent, &r.BBox.X, &r.BBox.Y, &r.BBox.Width, &r.BBox.Height, &text); err != nil {
			return nil, err
		}
		r.Parent, r.Text = parent.String, text.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// SearchCells runs a full-text query over cell labels.
func SearchCells(ctx context.Context, root string, q SearchQuery) ([]SearchResult, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, nil
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	where := []string{"fts_cells MATCH ?"}
	args := []any{ftsQuery(text)}
	if len(q.Types) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(q.Types)), ",")
		where = append(where, "c.type IN ("+ph+")")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	args = append(args, limit, max(q.Offset, 0))
	// contentless FTS has no column values, so the snippet comes from cells.text
	sqlq := `SELECT c.id, c.type, c.text FROM fts_cells
		JOIN cells c ON c.rowid = fts_cells.rowid
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY bm25(fts_cells), c.z
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, fmt.Errorf("search cells: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var snippet sql.NullString
		if err := rows.Scan(&r.ID, &r.Type, &snippet); err != nil {
			return nil, err
		}
		r.Snippet = snippet.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ftsQuery quotes each term and matches it as a prefix.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"*`
	}
	return strings.Join(fields, " ")
}
