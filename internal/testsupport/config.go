package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediacache/internal/config"
)

// DefaultVolumeID names the volume every test config carries.
const DefaultVolumeID = "media"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LockDir = filepath.Join(base, "lock")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TemplatesFile = filepath.Join(base, "templates.toml")
	cfgVal.Storages = []config.Storage{{Name: "default", Type: "filesystem", Dir: filepath.Join(base, "storage")}}
	cfgVal.Volumes = []config.Volume{{ID: DefaultVolumeID, Root: filepath.Join(base, "volume")}}
	cfgVal.HTTP.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, volume := range builder.cfg.Volumes {
		if err := os.MkdirAll(volume.Root, 0o755); err != nil {
			t.Fatalf("mkdir volume root: %v", err)
		}
	}
	return builder.cfg
}

// WithWorkers overrides the worker resolution order.
func WithWorkers(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processor.Workers = append([]string(nil), names...)
	}
}

// WithStorage adds a named filesystem storage under the temp base.
func WithStorage(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storages = append(b.cfg.Storages, config.Storage{
			Name: name,
			Type: "filesystem",
			Dir:  filepath.Join(b.baseDir, "storage-"+name),
		})
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the external tools used by the
// workers are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "soffice", "pdftoppm"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// VolumeRoot returns the root directory of the default test volume.
func VolumeRoot(cfg *config.Config) string {
	for _, volume := range cfg.Volumes {
		if volume.ID == DefaultVolumeID {
			return volume.Root
		}
	}
	return ""
}
