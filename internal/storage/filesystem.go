package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"mediacache/internal/fileutil"
	"mediacache/internal/logging"
	"mediacache/internal/mediacache"
)

// Filesystem stores renditions below a root directory using the layout
// <template>/<id[0:2]>/<id>.<ext>.
type Filesystem struct {
	name    string
	root    string
	minFree uint64
	statfs  func(path string) (total, free uint64, err error)
	logger  *slog.Logger
}

// NewFilesystem returns a filesystem backend. minFree is the number of bytes
// that must stay available after a store; zero disables the check.
func NewFilesystem(name, root string, minFree uint64, logger *slog.Logger) *Filesystem {
	return &Filesystem{
		name:    name,
		root:    root,
		minFree: minFree,
		statfs:  realStatfs,
		logger:  logging.NewComponentLogger(logger, "storage"),
	}
}

// Name returns the configured backend name.
func (f *Filesystem) Name() string { return f.name }

// Root returns the storage root directory.
func (f *Filesystem) Root() string { return f.root }

// Path returns where item's rendition lives, whether or not it exists.
func (f *Filesystem) Path(item *mediacache.CacheItem) (string, error) {
	if item == nil || strings.TrimSpace(item.ID) == "" {
		return "", errors.New("storage: cache item id is required")
	}
	if strings.TrimSpace(item.TemplateKey) == "" {
		return "", errors.New("storage: cache item template key is required")
	}
	shard := item.ID
	if len(shard) > 2 {
		shard = shard[:2]
	}
	ext := strings.TrimPrefix(item.Extension, ".")
	if ext == "" {
		ext = "bin"
	}
	return filepath.Join(f.root, sanitize(item.TemplateKey), shard, item.ID+"."+ext), nil
}

// Store copies localPath into place. Identical content already at the
// destination is left untouched.
func (f *Filesystem) Store(ctx context.Context, item *mediacache.CacheItem, localPath string) error {
	dest, err := f.Path(item)
	if err != nil {
		return err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("storage %s: inspect source: %w", f.name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("storage %s: source %q is a directory", f.name, localPath)
	}

	same, err := fileutil.SameContent(localPath, dest)
	if err != nil {
		return fmt.Errorf("storage %s: compare existing: %w", f.name, err)
	}
	if same {
		f.logger.DebugContext(ctx, "rendition unchanged",
			logging.String(logging.FieldCacheItemID, item.ID),
			logging.String("path", dest),
		)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("storage %s: ensure directory: %w", f.name, err)
	}
	if err := f.ensureSpace(filepath.Dir(dest), uint64(info.Size())); err != nil {
		return err
	}
	if err := fileutil.AtomicCopy(localPath, dest); err != nil {
		return fmt.Errorf("storage %s: write rendition: %w", f.name, err)
	}
	f.removeStaleSiblings(ctx, item, dest)

	f.logger.InfoContext(ctx, "rendition stored",
		logging.String(logging.FieldCacheItemID, item.ID),
		logging.String(logging.FieldTemplateKey, item.TemplateKey),
		logging.String("path", dest),
		logging.Int64("size_bytes", info.Size()),
		logging.String(logging.FieldEventType, "rendition_stored"),
	)
	return nil
}

// Locate reports where item's rendition is stored and whether it exists.
func (f *Filesystem) Locate(item *mediacache.CacheItem) (string, bool, error) {
	dest, err := f.Path(item)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(dest)
	if errors.Is(err, os.ErrNotExist) {
		return dest, false, nil
	}
	if err != nil {
		return dest, false, err
	}
	return dest, !info.IsDir(), nil
}

// Remove deletes item's rendition. Missing renditions are not an error.
func (f *Filesystem) Remove(ctx context.Context, item *mediacache.CacheItem) error {
	dest, err := f.Path(item)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage %s: remove rendition: %w", f.name, err)
	}
	f.logger.InfoContext(ctx, "rendition removed",
		logging.String(logging.FieldCacheItemID, item.ID),
		logging.String("path", dest),
	)
	return nil
}

func (f *Filesystem) ensureSpace(dir string, need uint64) error {
	if f.minFree == 0 || f.statfs == nil {
		return nil
	}
	_, free, err := f.statfs(dir)
	if err != nil {
		return fmt.Errorf("storage %s: statfs: %w", f.name, err)
	}
	if free < need+f.minFree {
		return fmt.Errorf("%w: storage %s has %d bytes free, needs %d plus a %d byte floor",
			ErrInsufficientSpace, f.name, free, need, f.minFree)
	}
	return nil
}

// removeStaleSiblings drops renditions of the same item stored under a
// different extension by an earlier run.
func (f *Filesystem) removeStaleSiblings(ctx context.Context, item *mediacache.CacheItem, keep string) {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(keep), item.ID+".*"))
	if err != nil {
		return
	}
	for _, match := range matches {
		if match == keep || strings.HasSuffix(match, ".tmp") {
			continue
		}
		if err := os.Remove(match); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(f.logger, "stale rendition not removed", "rendition_cleanup_failed",
				logging.String(logging.FieldCacheItemID, item.ID),
				logging.String("path", match),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the file manually"),
				logging.String(logging.FieldImpact, "storage keeps an unused file"),
			)
		}
	}
}

func sanitize(value string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", " ", "-", ":", "-")
	value = strings.Trim(replacer.Replace(strings.TrimSpace(value)), "-.")
	if value == "" {
		return "template"
	}
	return value
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
