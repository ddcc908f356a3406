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
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openRaw(t *testing.T, root string) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(IndexPath(root)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIndexInitCreatesWALAndSchema(t *testing.T) {
	root := t.TempDir()
	idx, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	_ = idx.Close()

	db := openRaw(t, root)
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','cells','fts_cells','snapshots','previews')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 6 {
		t.Fatalf("expected 6 tables, got %d", cnt)
	}
	var schema int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil || schema != schemaVersion {
		t.Fatalf("schema = %d (%v)", schema, err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO cells(id, type, kind, z, x, y, width, height, text) VALUES('c1','t','element',1,0,0,1,1,'hello world')`); err != nil {
		t.Fatalf("insert cell: %v", err)
	}
	var hits int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fts_cells WHERE fts_cells MATCH 'hello'").Scan(&hits); err != nil || hits != 1 {
		t.Fatalf("fts hits = %d (%v)", hits, err)
	}
	if _, err := InitOrOpenIndex("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestMigrations_UpgradeV1ToV2(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	db := openRaw(t, root)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE cells (id TEXT PRIMARY KEY, type TEXT NOT NULL, kind TEXT NOT NULL, z REAL NOT NULL, parent TEXT, x REAL NOT NULL, y REAL NOT NULL, width REAL NOT NULL, height REAL NOT NULL, text TEXT);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	mdb, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	defer mdb.Close()
	var schema int
	if err := mdb.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != 2 {
		t.Fatalf("expected schema 2 after migration, got %d", schema)
	}
	var cnt int
	if err := mdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name IN ('idx_cells_bbox','idx_cells_z','idx_cells_parent')`).Scan(&cnt); err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if cnt != 3 {
		t.Fatalf("expected 3 cell indexes after migration, got %d", cnt)
	}
}

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	root := t.TempDir()
	g := sampleGraph(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := IndexGraph(ctx, root, g); err != nil {
		t.Fatalf("IndexGraph: %v", err)
	}
	if rebuilt, err := DetectAndRebuildIndex(ctx, root, g); err != nil || rebuilt {
		t.Fatalf("healthy index rebuilt=%v err=%v", rebuilt, err)
	}

	idx := IndexPath(root)
	removeIndexFiles(idx)
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, root, g)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	entries, _ := os.ReadDir(filepath.Join(root, IndexDirName, "backups"))
	if len(entries) == 0 {
		t.Fatalf("expected backup of the corrupt index")
	}
	rows, err := SearchCells(ctx, root, SearchQuery{Text: "billing"})
	if err != nil || len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("search after rebuild = %+v (%v)", rows, err)
	}
}
