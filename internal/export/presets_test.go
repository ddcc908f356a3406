package export

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBatchExport_WebPreset(t *testing.T) {
	root := t.TempDir()
	_, p := samplePaper(t)
	paths, err := BatchExport(root, p, BatchOptions{Preset: PresetWeb})
	if err != nil {
		t.Fatalf("batch export web: %v", err)
	}
	checks := []string{
		filepath.Join(root, "exports", "web", "diagram.svg"),
		filepath.Join(root, "exports", "web", "diagram.png"),
	}
	if len(paths) != len(checks) {
		t.Fatalf("paths = %v", paths)
	}
	for i, p := range checks {
		if paths[i] != p {
			t.Fatalf("path %d = %s", i, paths[i])
		}
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
}

func TestBatchExport_PrintPreset(t *testing.T) {
	root := t.TempDir()
	_, p := samplePaper(t)
	grid := true
	if _, err := BatchExport(root, p, BatchOptions{Preset: PresetPrint, Name: "orders", IncludeGrid: &grid}); err != nil {
		t.Fatalf("batch export print: %v", err)
	}
	for _, p := range []string{
		filepath.Join(root, "exports", "print", "orders.pdf"),
		filepath.Join(root, "exports", "print", "orders.png"),
	} {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
}

func TestBatchExport_UnknownFormat(t *testing.T) {
	_, p := samplePaper(t)
	if _, err := BatchExport(t.TempDir(), p, BatchOptions{Formats: []string{"cbz"}}); err == nil {
		t.Fatalf("cbz accepted")
	}
}
