/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"log/slog"
)

// Attribute keys naming the diagram a record is about.
const (
	DocKey  = "doc"
	CellKey = "cell"
	ViewKey = "view"
)

type scope struct {
	doc, cell, view string
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithDocument returns a context whose records are tagged doc=id.
func WithDocument(ctx context.Context, id string) context.Context {
	s := scopeFrom(ctx)
	s.doc = id
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithView returns a context whose records are tagged with the view cid and
// the id of the cell it renders.
func WithView(ctx context.Context, cid, cellID string) context.Context {
	s := scopeFrom(ctx)
	s.view, s.cell = cid, cellID
	return context.WithValue(ctx, scopeKey{}, s)
}

// DocumentFrom returns the document id set by WithDocument.
func DocumentFrom(ctx context.Context) string { return scopeFrom(ctx).doc }

// ForDocument tags l with the document id.
func ForDocument(l *slog.Logger, id string) *slog.Logger {
	if id == "" {
		return l
	}
	return l.With(slog.String(DocKey, id))
}

// ForCell tags l with a cell id.
func ForCell(l *slog.Logger, id string) *slog.Logger {
	if id == "" {
		return l
	}
	return l.With(slog.String(CellKey, id))
}

// ForView tags l with a view cid and its cell id.
func ForView(l *slog.Logger, cid, cellID string) *slog.Logger {
	attrs := make([]any, 0, 2)
	if cid != "" {
		attrs = append(attrs, slog.String(ViewKey, cid))
	}
	if cellID != "" {
		attrs = append(attrs, slog.String(CellKey, cellID))
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

const (
	hasDoc uint8 = 1 << iota
	hasCell
	hasView
)

// diagramHandler adds doc, cell and view from the record context unless the
// logger already carries that key.
type diagramHandler struct {
	next slog.Handler
	has  uint8
}

func newDiagramHandler(h slog.Handler) *diagramHandler { return &diagramHandler{next: h} }

func (d *diagramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return d.next.Enabled(ctx, level)
}

func (d *diagramHandler) Handle(ctx context.Context, r slog.Record) error {
	s := scopeFrom(ctx)
	var add []slog.Attr
	if s.doc != "" && d.has&hasDoc == 0 {
		add = append(add, slog.String(DocKey, s.doc))
	}
	if s.view != "" && d.has&hasView == 0 {
		add = append(add, slog.String(ViewKey, s.view))
	}
	if s.cell != "" && d.has&hasCell == 0 {
		add = append(add, slog.String(CellKey, s.cell))
	}
	if len(add) > 0 {
		r = r.Clone()
		r.AddAttrs(add...)
	}
	return d.next.Handle(ctx, r)
}

func (d *diagramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	has := d.has
	for _, a := range attrs {
		switch a.Key {
		case DocKey:
			has |= hasDoc
		case CellKey:
			has |= hasCell
		case ViewKey:
			has |= hasView
		}
	}
	return &diagramHandler{next: d.next.WithAttrs(attrs), has: has}
}

// Context attributes of records logged under a group land inside the group.
func (d *diagramHandler) WithGroup(name string) slog.Handler {
	return &diagramHandler{next: d.next.WithGroup(name), has: d.has}
}
