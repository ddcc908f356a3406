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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clientIO/joint-sub027/internal/graph"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-document derived data under the document root.
	IndexDirName  = ".jointgeo"
	IndexFileName = "index.sqlite"

	// baseSchema is written into a fresh database; migrations take it from there.
	baseSchema = 1
	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the document's embedded index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-document SQLite index exists at .jointgeo/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers may close it when no longer needed.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("document root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(root)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, baseSchema, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrations maps a schema version to the statements that produce it.
var migrations = map[int][]string{
	2: {
		`CREATE INDEX IF NOT EXISTS idx_cells_bbox ON cells(x, y, width, height);`,
		`CREATE INDEX IF NOT EXISTS idx_cells_z ON cells(z);`,
		`CREATE INDEX IF NOT EXISTS idx_cells_parent ON cells(parent);`,
	},
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per cell. Links store the bbox of their route.
		`CREATE TABLE IF NOT EXISTS cells (
			id     TEXT PRIMARY KEY,
			type   TEXT NOT NULL,
			kind   TEXT NOT NULL,
			z      REAL NOT NULL,
			parent TEXT,
			x      REAL NOT NULL,
			y      REAL NOT NULL,
			width  REAL NOT NULL,
			height REAL NOT NULL,
			text   TEXT
		);`,

		// Contentless FTS5 index fed from cells via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_cells USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id     TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			ts     TEXT NOT NULL,
			cells  INTEGER NOT NULL,
			graph  BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_doc_ts ON snapshots(doc_id, ts);`,

		`CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			doc_id      TEXT    NOT NULL,
			graph_hash  TEXT    NOT NULL,
			kind        TEXT    NOT NULL,
			w           INTEGER NOT NULL DEFAULT 0,
			h           INTEGER NOT NULL DEFAULT 0,
			blob        BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(doc_id, kind, w, h);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS cells_ai AFTER INSERT ON cells BEGIN
			INSERT INTO fts_cells(rowid, text) VALUES (new.rowid, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS cells_ad AFTER DELETE ON cells BEGIN
			INSERT INTO fts_cells(fts_cells, rowid, text) VALUES ('delete', old.rowid, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS cells_au AFTER UPDATE OF text ON cells BEGIN
			INSERT INTO fts_cells(fts_cells, rowid, text) VALUES ('delete', old.rowid, old.text);
			INSERT INTO fts_cells(rowid, text) VALUES (new.rowid, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index from g if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, root string, g *graph.Graph) (bool, error) {
	path := IndexPath(root)
	db, err := InitOrOpenIndex(root)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, root, g); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM cells LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, root, g); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .jointgeo/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(indexPath string) {
	for _, p := range []string{indexPath, indexPath + "-wal", indexPath + "-shm"} {
		_ = os.Remove(p)
	}
}

// RebuildIndex drops and recreates the cell tables and fills them from g.
// Snapshots and previews are kept. The cell index is derived from diagram.json.
func RebuildIndex(ctx context.Context, root string, g *graph.Graph) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS cells_ai;",
		"DROP TRIGGER IF EXISTS cells_ad;",
		"DROP TRIGGER IF EXISTS cells_au;",
		"DROP TABLE IF EXISTS cells;",
		"DROP TABLE IF EXISTS fts_cells;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	for _, q := range migrations[schemaVersion] {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("recreate indexes: %w", err)
		}
	}
	return writeCells(ctx, db, g)
}
