/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clientIO/joint-sub027/internal/ids"
)

// language=SQL
// dialect=SQLite
const insertSnapshotSQL = `INSERT INTO snapshots(id, doc_id, ts, cells, graph) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestSnapshotSQL = `SELECT id, doc_id, ts, cells, graph FROM snapshots WHERE doc_id = ? ORDER BY ts DESC, rowid DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listSnapshotsSQL = `SELECT id, doc_id, ts, cells, graph FROM snapshots WHERE doc_id = ? ORDER BY ts DESC, rowid DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldSnapshotsSQL = `DELETE FROM snapshots WHERE doc_id = ? AND id NOT IN (
	SELECT id FROM snapshots WHERE doc_id = ? ORDER BY ts DESC, rowid DESC LIMIT ?
)`

// tsLayout sorts lexicographically in UTC.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Snapshot is a stored copy of a document's cells.
type Snapshot struct {
	ID    string
	DocID string
	TS    time.Time
	Cells int
	Graph json.RawMessage
}

// SaveSnapshot stores the document's current graph JSON.
func SaveSnapshot(ctx context.Context, h *Handle, ts time.Time) (Snapshot, error) {
	if h == nil {
		return Snapshot{}, errors.New("nil Handle")
	}
	var counted struct {
		Cells []json.RawMessage `json:"cells"`
	}
	if err := json.Unmarshal(h.Doc.Graph, &counted); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot graph: %w", err)
	}
	s := Snapshot{
		ID:    ids.NewSnapshotID(),
		DocID: h.Doc.ID,
		TS:    ts.UTC(),
		Cells: len(counted.Cells),
		Graph: append(json.RawMessage(nil), h.Doc.Graph...),
	}
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() { _ = db.Close() }()
	if _, err := db.ExecContext(ctx, insertSnapshotSQL, s.ID, s.DocID, s.TS.Format(tsLayout), s.Cells, []byte(s.Graph)); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func scanSnapshot(sc interface{ Scan(...any) error }) (Snapshot, error) {
	var s Snapshot
	var tsStr string
	var blob []byte
	if err := sc.Scan(&s.ID, &s.DocID, &tsStr, &s.Cells, &blob); err != nil {
		return s, err
	}
	s.TS, _ = time.Parse(tsLayout, tsStr)
	s.Graph = blob
	return s, nil
}

// LatestSnapshot returns the newest snapshot of the document or nil if none.
func LatestSnapshot(ctx context.Context, h *Handle) (*Snapshot, error) {
	if h == nil {
		return nil, errors.New("nil Handle")
	}
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	s, err := scanSnapshot(db.QueryRowContext(ctx, selectLatestSnapshotSQL, h.Doc.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSnapshots returns up to limit most recent snapshots, newest first.
func ListSnapshots(ctx context.Context, h *Handle, limit int) ([]Snapshot, error) {
	if h == nil {
		return nil, errors.New("nil Handle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listSnapshotsSQL, h.Doc.ID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps at most keepLast snapshots of the document and deletes older ones.
func PruneSnapshots(ctx context.Context, h *Handle, keepLast int) (int64, error) {
	if h == nil {
		return 0, errors.New("nil Handle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldSnapshotsSQL, h.Doc.ID, h.Doc.ID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
