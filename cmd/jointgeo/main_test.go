package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clientIO/joint-sub027/internal/config"
	"github.com/clientIO/joint-sub027/internal/graph"
	applog "github.com/clientIO/joint-sub027/internal/log"
	"github.com/clientIO/joint-sub027/internal/storage"
)

const cliGraph = `{"cells":[
	{"type":"standard.Rectangle","id":"a","position":{"x":0,"y":0},"size":{"width":100,"height":50},"attrs":{"label":{"text":"Gateway"}}},
	{"type":"standard.Rectangle","id":"b","position":{"x":300,"y":0},"size":{"width":100,"height":50},"attrs":{"label":{"text":"Ledger"}}},
	{"type":"standard.Link","id":"l","source":{"id":"a"},"target":{"id":"b"}}
]}`

func newTestApp() (*app, *bytes.Buffer) {
	var out bytes.Buffer
	var h *storage.Handle
	return &app{cfg: config.Defaults(), out: &out, log: applog.WithComponent("cli"), handle: &h}, &out
}

func TestCLI_InitImportLayoutRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc")
	src := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(src, []byte(cliGraph), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	a, out := newTestApp()
	if err := a.run([]string{"init", dir, "Payments"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := a.run([]string{"validate", src}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out.String(), "OK: 2 elements, 1 links") {
		t.Fatalf("validate output: %q", out.String())
	}
	if err := a.run([]string{"import", dir, src}); err != nil {
		t.Fatalf("import: %v", err)
	}

	out.Reset()
	if err := a.run([]string{"layout", dir}); err != nil {
		t.Fatalf("layout: %v", err)
	}
	var views []layoutOut
	if err := json.Unmarshal(out.Bytes(), &views); err != nil {
		t.Fatalf("layout json: %v\n%s", err, out.String())
	}
	if len(views) != 3 || views[2].Link == nil {
		t.Fatalf("layout = %+v", views)
	}
	if sp := views[2].Link.SourcePoint; math.Abs(sp.X-100) > 1e-6 || math.Abs(sp.Y-25) > 1e-6 {
		t.Fatalf("link source point = %+v", sp)
	}

	out.Reset()
	if err := a.run([]string{"render", "-scale", "2", dir, "out.svg"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, storage.ExportsDirName, "out.svg"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(b), "Ledger") {
		t.Fatalf("svg missing label")
	}
}

func TestCLI_Usage(t *testing.T) {
	a, _ := newTestApp()
	if err := a.run([]string{"bogus"}); !errors.Is(err, errUsage) {
		t.Fatalf("unknown command: err = %v", err)
	}
	if err := a.run([]string{"render", "only-dir"}); !errors.Is(err, errUsage) {
		t.Fatalf("missing out: err = %v", err)
	}
	if err := a.run([]string{"snapshot", "explode", t.TempDir()}); err == nil {
		t.Fatalf("expected error for unknown snapshot action")
	}
}

func TestCLI_MoveAndApply(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doc")
	src := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(src, []byte(cliGraph), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a, out := newTestApp()
	for _, args := range [][]string{{"init", dir, "Payments"}, {"import", dir, src}} {
		if err := a.run(args); err != nil {
			t.Fatalf("%s: %v", args[0], err)
		}
	}

	// grid 10 takes 297,4 to 300,0 which lines up with b
	out.Reset()
	if err := a.run([]string{"move", "-snap", dir, "a", "297", "4"}); err != nil {
		t.Fatalf("move: %v", err)
	}
	h, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	g, err := h.LoadGraph(graph.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pos := g.Cell("a").Position; pos.X != 300 || pos.Y != 0 {
		t.Fatalf("a at %v, want (300,0)", pos)
	}

	ops := `[
		{"op":"attr","id":"b","path":"label/text","value":"Ledger v2"},
		{"op":"resize","id":"b","width":150,"height":60},
		{"op":"undo"}
	]`
	opsPath := filepath.Join(t.TempDir(), "ops.json")
	if err := os.WriteFile(opsPath, []byte(ops), 0o644); err != nil {
		t.Fatalf("write ops: %v", err)
	}
	if err := a.run([]string{"apply", dir, opsPath}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	h, _ = storage.Open(dir)
	g, _ = h.LoadGraph(graph.Options{})
	b := g.Cell("b")
	if b.Size.Width != 100 {
		t.Fatalf("resize not undone: %v", b.Size)
	}
	if text, _ := b.AttrString("label", "text"); text != "Ledger v2" {
		t.Fatalf("label = %q", text)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(bad, []byte(`[{"op":"explode"}]`), 0o644)
	if err := a.run([]string{"apply", dir, bad}); err == nil || !strings.Contains(err.Error(), "unknown op") {
		t.Fatalf("bad op: err = %v", err)
	}
}
