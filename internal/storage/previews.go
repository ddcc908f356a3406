/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Preview kinds match the export formats.
const (
	PreviewKindSVG = "svg"
	PreviewKindPNG = "png"
	PreviewKindPDF = "pdf"
)

const defaultPreviewsMaxBytes = 256 * 1024 * 1024

// PreviewKey identifies one cached rendering of a document. GraphHash ties
// the entry to the graph it was rendered from.
type PreviewKey struct {
	DocID     string
	GraphHash string
	Kind      string
	W, H      int
}

// GraphHash returns the hex sha256 of a graph JSON.
func GraphHash(graphJSON []byte) string {
	sum := sha256.Sum256(graphJSON)
	return hex.EncodeToString(sum[:])
}

func validKind(kind string) bool {
	switch kind {
	case PreviewKindSVG, PreviewKindPNG, PreviewKindPDF:
		return true
	}
	return false
}

// GetPreview returns the cached blob for k and updates last_access. A missing
// entry or one rendered from another graph yields nil.
func GetPreview(ctx context.Context, root string, k PreviewKey) ([]byte, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var blob []byte
	var hash string
	err = db.QueryRowContext(ctx, `SELECT blob, graph_hash FROM previews WHERE doc_id=? AND kind=? AND w=? AND h=?`,
		k.DocID, k.Kind, k.W, k.H).Scan(&blob, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	if hash != k.GraphHash {
		return nil, nil
	}
	now := time.Now().UTC().Format(tsLayout)
	_, _ = db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE doc_id=? AND kind=? AND w=? AND h=?`, now, k.DocID, k.Kind, k.W, k.H)
	return blob, nil
}

// PutPreview upserts a preview blob and enforces the cache size cap via LRU eviction.
func PutPreview(ctx context.Context, root string, k PreviewKey, blob []byte) error {
	if !validKind(k.Kind) {
		return fmt.Errorf("invalid kind: %s", k.Kind)
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	now := time.Now().UTC().Format(tsLayout)
	_, err = db.ExecContext(ctx, `INSERT INTO previews(doc_id,graph_hash,kind,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(doc_id,kind,w,h) DO UPDATE SET graph_hash=excluded.graph_hash, blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		k.DocID, k.GraphHash, k.Kind, k.W, k.H, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	capBytes, err := MaxPreviewsBytesFromEnv()
	if err != nil {
		return err
	}
	if capBytes > 0 {
		if err := EvictPreviewsToFit(ctx, db, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it using the provided generator.
func GetOrCreatePreview(ctx context.Context, root string, k PreviewKey, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetPreview(ctx, root, k); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := PutPreview(ctx, root, k, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func EvictPreviewsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	// oldest access first, NULLs first, ties by insertion
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]any, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Important: close the rows cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(toDelete)), ",") + `)`
	if _, err := db.ExecContext(ctx, q, toDelete...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size
func TotalPreviewBytes(ctx context.Context, root string) (int64, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxPreviewsBytesFromEnv reads JG_PREVIEWS_MAX_BYTES, defaulting to 256MB
// when unset or not positive.
func MaxPreviewsBytesFromEnv() (int64, error) {
	var env struct {
		MaxBytes int64 `envconfig:"PREVIEWS_MAX_BYTES" default:"268435456"`
	}
	if err := envconfig.Process("JG", &env); err != nil {
		return 0, fmt.Errorf("previews cap: %w", err)
	}
	if env.MaxBytes <= 0 {
		return defaultPreviewsMaxBytes, nil
	}
	return env.MaxBytes, nil
}
