package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mediacache/internal/config"
	"mediacache/internal/database"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(t.TempDir(), "data")

	db, err := database.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if db.Path() != cfg.DatabasePath() {
		t.Fatalf("unexpected path: %q", db.Path())
	}

	health, err := db.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected readable database, got %+v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("unexpected missing tables: %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.SchemaVersion != 1 {
		t.Fatalf("unexpected schema version %d", health.SchemaVersion)
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	first, err := database.OpenPath(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := first.Exec(context.Background(),
		"INSERT INTO properties (namespace, key, value, updated_at) VALUES ('ns', 'k', 'v', 'now')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = first.Close()

	second, err := database.OpenPath(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	var value string
	if err := second.QueryRow(context.Background(), "SELECT value FROM properties WHERE namespace = 'ns'").Scan(&value); err != nil {
		t.Fatalf("select: %v", err)
	}
	if value != "v" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := database.OpenPath(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(context.Background(), "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = db.Close()

	if _, err := database.OpenPath(path); !errors.Is(err, database.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	if database.IsBusy(nil) {
		t.Fatal("nil error is not busy")
	}
	if !database.IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected busy detection from message")
	}
	if database.IsBusy(errors.New("no such table")) {
		t.Fatal("unexpected busy classification")
	}
}

func TestPlaceholders(t *testing.T) {
	if got := database.Placeholders(3); got != "?,?,?" {
		t.Fatalf("unexpected placeholders %q", got)
	}
	if got := database.Placeholders(0); got != "" {
		t.Fatalf("expected empty placeholders, got %q", got)
	}
}
