/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNotFound        = errors.New("backend: graph not found")
	ErrVersionConflict = errors.New("backend: version conflict")
)

// GraphRecord is one stored graph. Version starts at 1 and grows by one on
// every successful Put.
type GraphRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Version   int64           `json:"version"`
	Graph     json.RawMessage `json:"graph,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// GraphStore persists graphs for the HTTP server.
type GraphStore interface {
	// Put creates the graph when expectVersion is 0 and otherwise replaces it
	// only if the stored version equals expectVersion.
	Put(ctx context.Context, id, name string, graph json.RawMessage, expectVersion int64) (GraphRecord, error)
	Get(ctx context.Context, id string) (GraphRecord, error)
	// List returns the graphs without their documents, newest first.
	List(ctx context.Context) ([]GraphRecord, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error)
}

var _ GraphStore = (*PGStore)(nil)

// PGStore is the postgres GraphStore, over the pgx database/sql driver.
type PGStore struct {
	db *sql.DB
}

// OpenStore connects to dsn, pings and applies pending migrations.
func OpenStore(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

// Ping reports whether the database answers.
func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) Put(ctx context.Context, id, name string, graph json.RawMessage, expectVersion int64) (GraphRecord, error) {
	rec := GraphRecord{ID: id, Name: name}
	var row *sql.Row
	if expectVersion == 0 {
		row = s.db.QueryRowContext(ctx, `INSERT INTO graphs(id, name, version, doc) VALUES ($1, $2, 1, $3)
			ON CONFLICT (id) DO NOTHING RETURNING version, updated_at`, id, name, string(graph))
	} else {
		row = s.db.QueryRowContext(ctx, `UPDATE graphs SET name = $2, doc = $3, version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $4 RETURNING version, updated_at`, id, name, string(graph), expectVersion)
	}
	err := row.Scan(&rec.Version, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if expectVersion != 0 {
			if _, gerr := s.Get(ctx, id); errors.Is(gerr, ErrNotFound) {
				return GraphRecord{}, ErrNotFound
			}
		}
		return GraphRecord{}, ErrVersionConflict
	}
	if err != nil {
		return GraphRecord{}, fmt.Errorf("put graph: %w", err)
	}
	rec.Graph = graph
	return rec, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (GraphRecord, error) {
	rec := GraphRecord{ID: id}
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT name, version, doc, updated_at FROM graphs WHERE id = $1`, id).
		Scan(&rec.Name, &rec.Version, &doc, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return GraphRecord{}, ErrNotFound
	}
	if err != nil {
		return GraphRecord{}, fmt.Errorf("get graph: %w", err)
	}
	rec.Graph = doc
	return rec, nil
}

func (s *PGStore) List(ctx context.Context) ([]GraphRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, version, updated_at FROM graphs ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []GraphRecord
	for rows.Next() {
		var r GraphRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Version, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete graph: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each version in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
