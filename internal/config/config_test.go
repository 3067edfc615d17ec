package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeToml(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, defaultFilename), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeToml(t, dir, `
[project]
name = "demo"
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.VM.RegBufferLimit != 4096 || c.VM.CallFrameMax != 256 || c.VM.GCThreshold != 64 {
		t.Fatalf("defaults not applied: %+v", c.VM)
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	dir := t.TempDir()
	writeToml(t, dir, `
[project]
name = "demo"

[vm]
reg_buffer_limit = 8192
call_frame_max = 64
gc_threshold = 128
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.VM.RegBufferLimit != 8192 || c.VM.CallFrameMax != 64 || c.VM.GCThreshold != 128 {
		t.Fatalf("overrides not honored: %+v", c.VM)
	}
}

func TestLoadRejectsNegativeCallFrameMax(t *testing.T) {
	dir := t.TempDir()
	writeToml(t, dir, `
[project]
name = "demo"

[vm]
call_frame_max = -1
`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected schema validation error for negative call_frame_max")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for missing rasp.toml")
	}
}

func TestFindAndLoadWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeToml(t, root, `
[project]
name = "demo"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c == nil {
		t.Fatalf("FindAndLoad found nothing")
	}
	if c.Project.Name != "demo" {
		t.Fatalf("Project.Name = %q, want demo", c.Project.Name)
	}
}

func TestFindAndLoadReturnsNilWhenAbsent(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil Config, got %+v", c)
	}
}
