/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/clientIO/joint-sub027/internal/domain"
	"github.com/clientIO/joint-sub027/internal/storage"
	"github.com/clientIO/joint-sub027/internal/telemetry"
)

func crashyHandle(t *testing.T) *storage.Handle {
	t.Helper()
	root := t.TempDir()
	doc := domain.NewDocument("Org chart", domain.PaperSettings{})
	doc.Graph = json.RawMessage(`{"cells":[{"id":"a","type":"standard.Rectangle"}]}`)
	return &storage.Handle{Root: root, Path: filepath.Join(root, storage.DocumentFileName), Doc: doc}
}

func TestWriteReport_NoDocumentGoesToTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("report outside temp dir: %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.HasPrefix(s, "JointGeo Crash Report\n") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
	if strings.Contains(s, "Document:") || strings.Contains(s, "GraphBytes:") {
		t.Fatalf("document lines without a document: %s", s)
	}
}

func TestWriteReport_DescribesOpenDocument(t *testing.T) {
	h := crashyHandle(t)
	path, err := writeReport(h, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(h.Root, storage.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	s := string(b)
	for _, want := range []string{
		"DocumentRoot: " + h.Root,
		"Document: Org chart (" + h.Doc.ID + ")",
		"GraphBytes: " + strconv.Itoa(len(h.Doc.Graph)),
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("report lacks %q:\n%s", want, s)
		}
	}
}

func TestReportBody_AnonymizedDropsRootAndName(t *testing.T) {
	h := crashyHandle(t)
	s := string(reportBody(h, "x", []byte("stack"), false))
	if strings.Contains(s, h.Root) || strings.Contains(s, "Org chart") {
		t.Fatalf("anonymized report leaks local data:\n%s", s)
	}
	if !strings.Contains(s, "Document: "+h.Doc.ID+"\n") {
		t.Fatalf("anonymized report lacks document id:\n%s", s)
	}
}

func TestRecover_UploadsAnonymizedReport(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []string
		mime string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, string(b))
		mime = r.Header.Get("Content-Type")
		mu.Unlock()
	}))
	defer srv.Close()

	c := telemetry.New(telemetry.Config{OptIn: true, CrashURL: srv.URL})
	defer c.Close()
	prev := telemetry.SetDefault(c)
	defer telemetry.SetDefault(prev)

	oldStderr := os.Stderr
	devnull, _ := os.Open(os.DevNull)
	os.Stderr = devnull
	defer func() { os.Stderr = oldStderr; _ = devnull.Close() }()
	oldExit := exitFn
	code := 0
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	h := crashyHandle(t)
	func() {
		defer Recover(h)
		panic("layout exploded")
	}()

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("uploads = %d, want 1", len(got))
	}
	if !strings.Contains(got[0], "Panic: layout exploded") || strings.Contains(got[0], h.Root) {
		t.Fatalf("unexpected upload:\n%s", got[0])
	}
	if !strings.HasPrefix(mime, "text/plain") {
		t.Fatalf("content type = %q", mime)
	}
}
