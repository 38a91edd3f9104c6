package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "a", "b", "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestAtomicCopyOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "out", "dst.bin")

	if err := os.WriteFile(src, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AtomicCopy(src, dst); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("second version"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AtomicCopy(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second version" {
		t.Fatalf("unexpected content %q", got)
	}
	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the destination file, found %d entries", len(entries))
	}
}

func TestAtomicCopy_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := AtomicCopy(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin")); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(filepath.Join(dir, "dst.bin")); !os.IsNotExist(err) {
		t.Fatal("destination should not exist")
	}
}

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	for path, content := range map[string]string{a: "same", b: "same", c: "diff"} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if same, err := SameContent(a, b); err != nil || !same {
		t.Fatalf("expected identical, got %v err=%v", same, err)
	}
	if same, err := SameContent(a, c); err != nil || same {
		t.Fatalf("expected different, got %v err=%v", same, err)
	}
	if same, err := SameContent(a, filepath.Join(dir, "missing")); err != nil || same {
		t.Fatalf("expected missing to compare as different, got %v err=%v", same, err)
	}
	sum, size, err := HashFile(a)
	if err != nil || size != 4 || len(sum) != 32 {
		t.Fatalf("HashFile: size=%d len=%d err=%v", size, len(sum), err)
	}
}
