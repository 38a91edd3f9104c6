package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediacache/internal/execx"
	"mediacache/internal/testsupport"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present")
	reqs := []Requirement{
		{Name: "Present", Command: present, VersionArgs: []string{"-version"}},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}
	runner := &execx.FakeRunner{Handler: func(context.Context, string, []string) ([]byte, error) {
		return []byte("present version 7.1\nbuilt with gcc\n"), nil
	}}

	results := CheckBinaries(context.Background(), runner, reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Version != "present version 7.1" {
		t.Fatalf("unexpected first result %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
	if calls := runner.Calls(); len(calls) != 1 || calls[0].Name != present {
		t.Fatalf("expected a single version probe of %s, got %v", present, calls)
	}
}

func TestCheckBinariesVersionFailureKeepsAvailability(t *testing.T) {
	present := writeStub(t, t.TempDir(), "tool")
	runner := &execx.FakeRunner{Handler: func(context.Context, string, []string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}}
	results := CheckBinaries(context.Background(), runner, []Requirement{{Name: "Tool", Command: present, VersionArgs: []string{"-v"}}})
	if !results[0].Available || results[0].Detail == "" {
		t.Fatalf("expected available tool with probe detail, got %#v", results[0])
	}
}

func TestRequirementsAndMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe"))
	statuses := CheckBinaries(context.Background(), nil, Requirements(cfg))
	if len(statuses) != 4 {
		t.Fatalf("expected 4 requirements, got %d", len(statuses))
	}
	for _, status := range Missing(statuses) {
		t.Fatalf("required tool reported missing: %#v", status)
	}

	t.Setenv("PATH", "")
	missing := Missing(CheckBinaries(context.Background(), nil, Requirements(cfg)))
	if len(missing) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe missing, got %#v", missing)
	}
}
