package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediacache/internal/logging"
	"mediacache/internal/media/ffprobe"
	"mediacache/internal/mediacache"
	"mediacache/internal/mediatype"
	"mediacache/internal/services"
	"mediacache/internal/storage"
	"mediacache/internal/template"
	"mediacache/internal/transmute"
	"mediacache/internal/volume"
)

// Worker renders one class of templates.
type Worker interface {
	Name() string
	// Accept must be cheap and free of side effects; the resolver calls it
	// for every candidate on every item.
	Accept(tpl *template.Template, file *volume.File, mt mediatype.MediaType) bool
	// Process renders item and persists its final state. The returned error
	// is reserved for failures to persist; processing failures are recorded
	// on the item.
	Process(ctx context.Context, item *mediacache.CacheItem, tpl *template.Template, file *volume.File, mt mediatype.MediaType) (*mediacache.CacheItem, error)
}

// CacheUpdater persists cache items.
type CacheUpdater interface {
	UpdateCacheItem(ctx context.Context, item *mediacache.CacheItem) error
}

// StorageProvider resolves storage backends by name.
type StorageProvider interface {
	Get(name string) (storage.Storage, error)
}

// Deps are the collaborators shared by every worker.
type Deps struct {
	Cache      CacheUpdater
	Storages   StorageProvider
	MediaTypes *mediatype.Registry
	Transmutor *transmute.Transmutor
	Prober     ffprobe.Prober
	Logger     *slog.Logger
	TempDir    string
	Now        func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) registry() *mediatype.Registry {
	if d.MediaTypes != nil {
		return d.MediaTypes
	}
	return mediatype.New()
}

// run carries the per-item state through the shared lifecycle.
type run struct {
	deps   Deps
	worker string
	item   *mediacache.CacheItem
	tpl    *template.Template
	file   *volume.File
	logger *slog.Logger
	temps  []string
}

func (d Deps) start(ctx context.Context, worker string, item *mediacache.CacheItem, tpl *template.Template, file *volume.File) *run {
	item.VolumeID = file.VolumeID
	item.FileID = file.ID
	item.FileVersion = file.Version
	item.TemplateKey = tpl.Key
	item.TemplateRevision = tpl.Revision
	item.CacheStatus = mediacache.StatusDelegate
	item.QueueStatus = mediacache.QueueDone
	item.MimeType = file.MimeType
	item.MediaType = strings.ToLower(file.MediaType)
	item.Extension = ""
	item.FileSize = 0
	item.Width = nil
	item.Height = nil
	item.Error = ""
	item.FinishedAt = nil

	ctx = services.WithWorker(services.WithItemID(ctx, item.ID), worker)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(d.Logger, "worker")).With(
		logging.String(logging.FieldTemplateKey, tpl.Key),
		logging.String(logging.FieldFileID, file.ID),
		logging.String(logging.FieldVolumeID, file.VolumeID),
	)
	return &run{deps: d, worker: worker, item: item, tpl: tpl, file: file, logger: logger}
}

// missing records an unmet precondition.
func (r *run) missing(reason, input string) {
	r.item.MarkMissing(reason, r.deps.now())
	logging.WarnWithContext(r.logger, "cache item input missing", "item_missing",
		logging.String("reason", reason),
		logging.String("input", input),
		logging.String(logging.FieldErrorHint, "verify the source file and template"),
		logging.String(logging.FieldImpact, "no rendition produced for this item"),
	)
}

// fail records a processing error. Errors raised after the per-item deadline
// carry the timeout cause so the stored message names it.
func (r *run) fail(ctx context.Context, err error) {
	if cause := context.Cause(ctx); cause != nil && errors.Is(cause, services.ErrTimeout) && !errors.Is(err, services.ErrTimeout) {
		err = fmt.Errorf("%w: %w", cause, err)
	}
	r.item.Fail(err, r.deps.now())
	logging.ErrorWithContext(r.logger, r.worker+" worker error", "item_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "raise processor.item_timeout or check for a hung tool"
	case errors.Is(err, services.ErrExternalTool):
		return "run the failing tool by hand against the input"
	case errors.Is(err, storage.ErrInsufficientSpace):
		return "free space on the storage volume"
	default:
		return "check logs for details"
	}
}

// tempPath returns <temp_dir>/<item id>.<ext> after removing any stale file.
func (r *run) tempPath(ext string) (string, error) {
	dir := r.deps.TempDir
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(dir, r.item.ID+"."+ext)
	if err := os.RemoveAll(path); err != nil {
		return "", fmt.Errorf("remove stale temp output: %w", err)
	}
	r.temps = append(r.temps, path)
	return path, nil
}

// complete marks the item OK with metadata derived from the output file.
func (r *run) complete(output string, width, height int) error {
	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("inspect output: %w", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, r.worker, "render", "output file is empty", nil)
	}
	mt, err := r.deps.registry().FindByFilename(output)
	if err != nil {
		return fmt.Errorf("detect output media type: %w", err)
	}
	r.item.MimeType = mt.MimeType
	r.item.MediaType = mt.Key
	r.item.Extension = strings.TrimPrefix(filepath.Ext(output), ".")
	if r.item.Extension == "" {
		r.item.Extension = mt.PrimaryExtension()
	}
	r.item.FileSize = info.Size()
	if width > 0 && height > 0 {
		r.item.SetDimensions(width, height)
	}
	r.item.Complete(r.deps.now())
	return nil
}

// store hands an OK item's output to the template's storage backend. A
// storage failure turns the item into an error.
func (r *run) store(ctx context.Context, output string) {
	if r.item.CacheStatus != mediacache.StatusOK {
		return
	}
	backend, err := r.deps.Storages.Get(r.tpl.Storage)
	if err == nil {
		err = backend.Store(ctx, r.item, output)
	}
	if err != nil {
		r.item.Width, r.item.Height = nil, nil
		r.fail(ctx, services.Wrap(services.ErrTransient, "storage", "store", r.tpl.Storage, err))
	}
}

// finish persists the item and removes temp outputs. Persisting ignores the
// item deadline so a timed-out item is still recorded.
func (r *run) finish(ctx context.Context) (*mediacache.CacheItem, error) {
	for _, path := range r.temps {
		_ = os.RemoveAll(path)
	}
	if err := r.deps.Cache.UpdateCacheItem(context.WithoutCancel(ctx), r.item); err != nil {
		return r.item, fmt.Errorf("persist cache item %s: %w", r.item.ID, err)
	}
	r.logger.Info("cache item processed",
		logging.String("cache_status", string(r.item.CacheStatus)),
		logging.String("queue_status", string(r.item.QueueStatus)),
		logging.String(logging.FieldEventType, "item_processed"),
	)
	return r.item, nil
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// matchesFormat reports whether the template asks to keep sources already in
// the target format.
func matchesFormat(tpl *template.Template, file *volume.File, format string) bool {
	return tpl.BoolParameter("match_format", false) && strings.EqualFold(file.MediaType, format)
}

// inputMissing reports whether a transmutation error means there is no usable
// input rather than a failed conversion.
func inputMissing(err error) bool {
	return errors.Is(err, transmute.ErrUnsupported) || errors.Is(err, os.ErrNotExist)
}
