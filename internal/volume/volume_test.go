package volume_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediacache/internal/mediatype"
	"mediacache/internal/testsupport"
	"mediacache/internal/volume"
)

func newManager(t *testing.T) (*volume.Manager, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	manager, err := volume.NewManager(cfg, db, mediatype.New())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager, testsupport.VolumeRoot(cfg)
}

func TestRegisterInsideVolume(t *testing.T) {
	manager, root := newManager(t)
	ctx := context.Background()

	source := filepath.Join(root, "clips", "intro.mp4")
	testsupport.WriteFile(t, source, 2048)

	file, err := manager.Register(ctx, testsupport.DefaultVolumeID, source)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if file.Version != 1 || file.MediaType != "mp4" || file.MimeType != "video/mp4" || file.Size != 2048 {
		t.Fatalf("unexpected file: %+v", file)
	}
	if file.RelPath != "clips/intro.mp4" || file.Path != source {
		t.Fatalf("expected in-place reference, got rel=%q path=%q", file.RelPath, file.Path)
	}

	vol, err := manager.GetByID(testsupport.DefaultVolumeID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	found, err := vol.FindFile(ctx, file.ID, 1)
	if err != nil {
		t.Fatalf("FindFile: %v", err)
	}
	if found.Path != source || found.Name != "intro.mp4" {
		t.Fatalf("unexpected lookup: %+v", found)
	}

	// Second lookup is served from the cache and must return an independent copy.
	found.Name = "mutated"
	again, err := vol.FindFile(ctx, file.ID, 1)
	if err != nil {
		t.Fatalf("FindFile cached: %v", err)
	}
	if again.Name != "intro.mp4" {
		t.Fatalf("cached record was mutated: %+v", again)
	}
}

func TestRegisterImportsOutsideFiles(t *testing.T) {
	manager, root := newManager(t)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "scan.pdf")
	testsupport.WriteBytes(t, outside, []byte("%PDF-1.4\n"))

	file, err := manager.Register(ctx, testsupport.DefaultVolumeID, outside)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if filepath.Dir(file.Path) == filepath.Dir(outside) {
		t.Fatal("expected file to be imported into the volume")
	}
	if rel, err := filepath.Rel(root, file.Path); err != nil || rel != filepath.FromSlash(file.RelPath) {
		t.Fatalf("imported path %q not under root %q", file.Path, root)
	}
	data, err := os.ReadFile(file.Path)
	if err != nil || string(data) != "%PDF-1.4\n" {
		t.Fatalf("imported content mismatch: %q err=%v", data, err)
	}

	next, err := manager.AddVersion(ctx, testsupport.DefaultVolumeID, file.ID, outside)
	if err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	if next.ID != file.ID || next.Version != 2 {
		t.Fatalf("unexpected version: %+v", next)
	}

	vol, _ := manager.GetByID(testsupport.DefaultVolumeID)
	files, err := vol.Files(ctx)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 file versions, got %d", len(files))
	}
}

func TestLookupErrors(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	if _, err := manager.GetByID("nope"); !errors.Is(err, volume.ErrVolumeNotFound) {
		t.Fatalf("expected ErrVolumeNotFound, got %v", err)
	}
	vol, err := manager.GetByID(testsupport.DefaultVolumeID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := vol.FindFile(ctx, "missing", 1); !errors.Is(err, volume.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if _, err := manager.AddVersion(ctx, testsupport.DefaultVolumeID, "missing", "/dev/null"); !errors.Is(err, volume.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound from AddVersion, got %v", err)
	}
	if _, err := manager.Register(ctx, testsupport.DefaultVolumeID, filepath.Join(t.TempDir(), "absent.mp4")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
