/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSON(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines in %q", b)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInit_FileGetsDocumentScopedJSON(t *testing.T) {
	// temp dir rather than t.TempDir: the rotating writer keeps the file open
	fpath := filepath.Join(os.TempDir(), fmt.Sprintf("jg_log_%d.json", time.Now().UnixNano()))
	t.Cleanup(func() { _ = os.Remove(fpath) })

	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { Init(Options{Level: "error"}) })

	l := ForDocument(WithOperation(WithComponent("storage"), "save"), "doc_1")
	l.Info("document saved", slog.Int("cells", 3))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSON(t, b)
	want := map[string]any{
		"app": AppName, "component": "storage", "op": "save",
		"doc": "doc_1", "msg": "document saved", "cells": float64(3),
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("%s = %v, want %v (record %v)", k, m[k], v, m)
		}
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr: %v", m)
	}
}

func TestNew_JSONTakesDocumentFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Format: "json"})
	ctx := WithView(WithDocument(context.Background(), "doc_9"), "view_1", "cell-a")
	l.WarnContext(ctx, "view update failed")

	m := lastJSON(t, buf.Bytes())
	if m["doc"] != "doc_9" || m["view"] != "view_1" || m["cell"] != "cell-a" {
		t.Fatalf("context attrs missing: %v", m)
	}
	if DocumentFrom(ctx) != "doc_9" {
		t.Fatalf("DocumentFrom = %q", DocumentFrom(ctx))
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("JG_LOG_LEVEL", "warn")
	t.Setenv("JG_LOG_FORMAT", "json")
	t.Setenv("JG_LOG_SOURCE", "TRUE")
	t.Setenv("JG_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	t.Setenv("JG_LOG_LEVEL", "")
	if got := FromEnv().Level; got != "info" {
		t.Fatalf("default level = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"-8":      slog.Level(-8),
		"2":       slog.Level(2),
		"loud":    slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
