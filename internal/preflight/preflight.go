package preflight

import (
	"context"
	"fmt"

	"mediacache/internal/config"
	"mediacache/internal/template"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional failures are reported but do not block processing.
	Optional bool
}

// RunAll executes the filesystem and template checks for cfg.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
	}
	for _, volume := range cfg.Volumes {
		result := CheckReadable(fmt.Sprintf("Volume %s", volume.ID), volume.Root)
		results = append(results, result)
	}
	for _, storage := range cfg.Storages {
		name := fmt.Sprintf("Storage %s", storage.Name)
		result := CheckDirectoryAccess(name, storage.Dir)
		if result.Passed {
			result = CheckFreeSpace(name, storage.Dir, uint64(storage.MinFreeMiB)*1024*1024)
		}
		results = append(results, result)
	}
	results = append(results, CheckTemplates(cfg))
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			out = append(out, result)
		}
	}
	return out
}

// CheckTemplates loads the templates file and verifies every template names a
// configured storage backend.
func CheckTemplates(cfg *config.Config) Result {
	const name = "Templates"
	repo, err := template.Load(cfg.Paths.TemplatesFile)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	all := repo.All()
	if len(all) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (no templates defined)", cfg.Paths.TemplatesFile), Optional: true}
	}
	for _, tpl := range all {
		if _, ok := cfg.StorageByName(tpl.Storage); !ok {
			return Result{Name: name, Detail: fmt.Sprintf("template %q uses unknown storage %q", tpl.Key, tpl.Storage)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d templates", len(all))}
}
