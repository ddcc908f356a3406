/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/clientIO/joint-sub027/internal/domain"
	"github.com/clientIO/joint-sub027/internal/graph"
	applog "github.com/clientIO/joint-sub027/internal/log"
)

const (
	DocumentFileName = "diagram.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"
)

var standardSubDirs = []string{ExportsDirName, BackupsDirName}

// Handle keeps track of a document loaded from or saved to disk.
// Root is the directory containing diagram.json and its subfolders.
type Handle struct {
	Root string
	Path string
	Doc  domain.Document
}

// InitDocument creates a document directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders and writes doc transactionally.
func InitDocument(root string, doc domain.Document) (*Handle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	h := &Handle{Root: root, Path: filepath.Join(root, DocumentFileName), Doc: doc}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create document root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads the document in root. A document that cannot be read, parsed or
// validated is replaced by the latest backup that can.
func Open(root string) (*Handle, error) {
	path := filepath.Join(root, DocumentFileName)
	doc, err := readDocument(path)
	if err != nil {
		l := applog.WithOperation(applog.WithComponent("storage"), "open")
		l.Warn("document unreadable, trying backups", slog.String("path", path), slog.Any("err", err))
		backup, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open document: %w; backup attempt: %v", err, berr)
		}
		return &Handle{Root: root, Path: path, Doc: *backup}, nil
	}
	return &Handle{Root: root, Path: path, Doc: *doc}, nil
}

// ReadDocument reads and validates one document file without backup fallback.
func ReadDocument(path string) (*domain.Document, error) { return readDocument(path) }

func readDocument(path string) (*domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d domain.Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := graph.Validate(d.Graph); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save writes h.Doc to disk with transactional semantics
// and a timestamped backup of the previous file (if present).
func Save(h *Handle) error {
	if h == nil {
		return errors.New("nil Handle")
	}
	if h.Root == "" || h.Path == "" {
		return errors.New("invalid Handle: missing paths")
	}
	h.Doc.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(h.Doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", DocumentFileName, stamp))
		if cerr := copyFile(h.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
	}

	// temp file in the same directory, then rename over the target
	dir := filepath.Dir(h.Path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", DocumentFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp document: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(h.Path); err == nil {
		_ = os.Remove(h.Path)
	}
	if rerr := os.Rename(temp, h.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace document: %w", rerr)
	}
	return nil
}

// SaveAs writes the document to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(h *Handle, newRoot string) error {
	if h == nil {
		return errors.New("nil Handle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	h.Root = newRoot
	h.Path = filepath.Join(newRoot, DocumentFileName)
	return Save(h)
}

// LoadGraph builds a graph from the document's cells.
func (h *Handle) LoadGraph(opt graph.Options) (*graph.Graph, error) {
	g := graph.New(opt)
	if err := g.FromJSON(h.Doc.Graph); err != nil {
		return nil, err
	}
	return g, nil
}

// SetGraph replaces the document's cells with the current state of g. The
// document is not saved.
func (h *Handle) SetGraph(g *graph.Graph) error {
	b, err := g.ToJSON()
	if err != nil {
		return err
	}
	h.Doc.Graph = b
	return nil
}

// AutosaveCrashSnapshot writes the in-memory document next to the backups
// without touching diagram.json.
func AutosaveCrashSnapshot(h *Handle) (string, error) {
	if h == nil || h.Root == "" {
		return "", errors.New("invalid Handle")
	}
	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(h.Doc, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", DocumentFileName, time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Backups lists the backup files of root, oldest first.
func Backups(root string) ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, DocumentFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(root, BackupsDirName, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// openFromLatestBackup returns the newest backup that loads.
func openFromLatestBackup(root string) (*domain.Document, error) {
	candidates, err := Backups(root)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		d, err := readDocument(candidates[i])
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no usable backup: %w", lastErr)
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
