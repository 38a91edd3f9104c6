package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediacache/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("storage", dir, 0); !result.Passed {
		t.Fatalf("expected pass with no floor, got %s", result.Detail)
	}
	if result := CheckFreeSpace("storage", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure for an unreachable floor")
	}
}

func TestCheckTemplates(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	if result := CheckTemplates(cfg); result.Passed || !result.Optional {
		t.Fatalf("expected optional failure without templates, got %+v", result)
	}

	testsupport.WriteBytes(t, cfg.Paths.TemplatesFile, []byte(`
[[template]]
key = "web"
type = "video"
revision = 1
`))
	if result := CheckTemplates(cfg); !result.Passed {
		t.Fatalf("expected templates to pass, got %+v", result)
	}

	testsupport.WriteBytes(t, cfg.Paths.TemplatesFile, []byte(`
[[template]]
key = "web"
type = "video"
storage = "offsite"
`))
	result := CheckTemplates(cfg)
	if result.Passed || !strings.Contains(result.Detail, "offsite") {
		t.Fatalf("expected unknown storage failure, got %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteBytes(t, cfg.Paths.TemplatesFile, []byte("[[template]]\nkey = \"raw\"\ntype = \"original\"\n"))

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}

	cfg.Volumes[0].Root = filepath.Join(t.TempDir(), "gone")
	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 || !strings.HasPrefix(failed[0].Name, "Volume") {
		t.Fatalf("expected a single volume failure, got %+v", failed)
	}
}
