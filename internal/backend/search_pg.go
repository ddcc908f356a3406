/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/clientIO/joint-sub027/internal/storage"
)

// Search runs a full-text query over graph names and cell label texts and
// maps hits to storage.SearchResult so results compare with the local index.
// Result IDs are graph ids; Types keeps graphs containing a cell of any of
// the given types.
func (s *PGStore) Search(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	text := strings.TrimSpace(q.Text)
	if text != "" {
		tq := place(text)
		b.WriteString("SELECT g.id, 'graph', COALESCE(ts_headline('simple', g.name || ' ' || g.doc::text, plainto_tsquery('simple', " + tq + "), ")
		b.WriteString("'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') FROM graphs g ")
		b.WriteString("WHERE g.search_vector @@ plainto_tsquery('simple', " + tq + ") ")
	} else {
		b.WriteString("SELECT g.id, 'graph', '' FROM graphs g WHERE TRUE ")
	}
	if len(q.Types) > 0 {
		b.WriteString(" AND EXISTS (SELECT 1 FROM jsonb_array_elements(g.doc->'cells') c WHERE c->>'type' = ANY (" + place(q.Types) + ")) ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	b.WriteString(" ORDER BY g.updated_at DESC, g.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(max(q.Offset, 0)))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.ID, &r.Type, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
