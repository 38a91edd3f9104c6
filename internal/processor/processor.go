package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mediacache/internal/logging"
	"mediacache/internal/mediacache"
	"mediacache/internal/mediatype"
	"mediacache/internal/services"
	"mediacache/internal/template"
	"mediacache/internal/volume"
	"mediacache/internal/worker"
)

// Property coordinates of the last-run timestamp.
const (
	PropertyNamespace = "mediacache"
	PropertyLastRun   = "last_run"
)

// VolumeResolver looks up volumes by id.
type VolumeResolver interface {
	GetByID(id string) (*volume.Volume, error)
}

// TemplateFinder looks up templates by key.
type TemplateFinder interface {
	Find(key string) (*template.Template, error)
}

// MediaTypeFinder looks up media types by key.
type MediaTypeFinder interface {
	Find(key string) (mediatype.MediaType, error)
}

// PropertyStore records process-wide timestamps.
type PropertyStore interface {
	SetTime(ctx context.Context, namespace, key string, t time.Time) error
	GetTime(ctx context.Context, namespace, key string) (time.Time, bool, error)
}

// Options wires a Processor.
type Options struct {
	Locker     Locker
	Volumes    VolumeResolver
	Templates  TemplateFinder
	MediaTypes MediaTypeFinder
	Resolver   *worker.Resolver
	Properties PropertyStore
	Metrics    *Metrics
	Logger     *slog.Logger
	// ItemTimeout bounds one worker run; zero disables the bound.
	ItemTimeout time.Duration
	Now         func() time.Time
}

// Processor runs workers over queued cache items.
type Processor struct {
	locker      Locker
	volumes     VolumeResolver
	templates   TemplateFinder
	mediaTypes  MediaTypeFinder
	resolver    *worker.Resolver
	props       PropertyStore
	metrics     *Metrics
	logger      *slog.Logger
	itemTimeout time.Duration
	now         func() time.Time
}

// New validates opts and constructs a Processor.
func New(opts Options) (*Processor, error) {
	switch {
	case opts.Locker == nil:
		return nil, errors.New("processor: locker is required")
	case opts.Volumes == nil:
		return nil, errors.New("processor: volume resolver is required")
	case opts.Templates == nil:
		return nil, errors.New("processor: template finder is required")
	case opts.MediaTypes == nil:
		return nil, errors.New("processor: media type finder is required")
	case opts.Resolver == nil:
		return nil, errors.New("processor: worker resolver is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		locker:      opts.Locker,
		volumes:     opts.Volumes,
		templates:   opts.Templates,
		mediaTypes:  opts.MediaTypes,
		resolver:    opts.Resolver,
		props:       opts.Properties,
		metrics:     opts.Metrics,
		logger:      logging.NewComponentLogger(opts.Logger, "processor"),
		itemTimeout: opts.ItemTimeout,
		now:         now,
	}, nil
}

// ProcessQueue processes every item of queue in order while holding the
// lock. It returns ErrAlreadyRunning without touching any item when another
// processor holds the lock. Item failures are reported through callback and
// on the items themselves; only lookup failures and cancellation end the run
// early.
func (p *Processor) ProcessQueue(ctx context.Context, queue *mediacache.Queue, callback Callback) error {
	unlock, err := p.acquire()
	if err != nil {
		return err
	}
	defer p.release(unlock)

	started := p.now()
	p.logger.Info("queue run started",
		logging.Int("items", queue.Len()),
		logging.String(logging.FieldEventType, "queue_run_started"),
	)

	processed := 0
	for _, item := range queue.All() {
		if err := ctx.Err(); err != nil {
			p.metrics.observeRun("cancelled")
			return fmt.Errorf("queue run interrupted after %d items: %w", processed, err)
		}
		if _, err := p.process(ctx, item, callback); err != nil {
			p.metrics.observeRun("aborted")
			logging.ErrorWithContext(p.logger, "queue run aborted", "queue_run_aborted",
				logging.String(logging.FieldCacheItemID, item.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check volume, template and media type configuration"),
			)
			return err
		}
		processed++
	}

	p.metrics.observeRun("completed")
	p.logger.Info("queue run finished",
		logging.Int("processed", processed),
		logging.Duration("elapsed", p.now().Sub(started)),
		logging.String(logging.FieldEventType, "queue_run_finished"),
	)
	return nil
}

// ProcessItem processes a single item under the lock. It returns nil when no
// worker accepted the item.
func (p *Processor) ProcessItem(ctx context.Context, item *mediacache.CacheItem, callback Callback) (*mediacache.CacheItem, error) {
	if item == nil {
		return nil, errors.New("cache item is nil")
	}
	unlock, err := p.acquire()
	if err != nil {
		return nil, err
	}
	defer p.release(unlock)
	return p.process(ctx, item, callback)
}

func (p *Processor) acquire() (Unlocker, error) {
	unlock, err := p.locker.TryLock()
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			p.metrics.observeRun("conflict")
			logging.WarnWithContext(p.logger, "processor lock held; run refused", "processor_locked",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "wait for the running processor to finish"),
				logging.String(logging.FieldImpact, "no items processed by this invocation"),
			)
		}
		return nil, err
	}
	return unlock, nil
}

func (p *Processor) release(unlock Unlocker) {
	if err := unlock.Unlock(); err != nil {
		logging.WarnWithContext(p.logger, "processor lock release failed", "processor_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no processor is running"),
			logging.String(logging.FieldImpact, "later runs may be refused"),
		)
	}
}

// process runs one item. The error return is reserved for lookup failures.
func (p *Processor) process(ctx context.Context, item *mediacache.CacheItem, callback Callback) (*mediacache.CacheItem, error) {
	logger := p.logger.With(
		logging.String(logging.FieldCacheItemID, item.ID),
		logging.String(logging.FieldTemplateKey, item.TemplateKey),
		logging.String(logging.FieldFileID, item.FileID),
	)

	tpl, file, mt, err := p.lookup(ctx, item)
	if err != nil {
		return nil, err
	}

	w := p.resolver.Resolve(tpl, file, mt)
	if w == nil {
		logger.Info("no worker accepts cache item",
			logging.String("media_type", mt.Key),
			logging.String("template_type", tpl.Type),
			logging.String(logging.FieldEventType, "item_skipped"),
		)
		outcome := Outcome{Kind: Skipped, Reason: ReasonNoWorker, Item: item}
		p.metrics.observeItem("", outcome, 0)
		callback.emit(outcome)
		return nil, nil
	}

	itemCtx, cancel := p.itemContext(ctx)
	started := p.now()
	result, err := w.Process(itemCtx, item, tpl, file, mt)
	cancel()
	elapsed := p.now().Sub(started)

	outcome := p.outcome(w.Name(), result, err)
	if err != nil {
		logging.ErrorWithContext(logger, "cache item not persisted", "item_persist_failed",
			logging.String(logging.FieldWorker, w.Name()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database access"),
		)
	}
	p.metrics.observeItem(w.Name(), outcome, elapsed)
	p.markRun(ctx, logger)
	callback.emit(outcome)
	return result, nil
}

func (p *Processor) lookup(ctx context.Context, item *mediacache.CacheItem) (*template.Template, *volume.File, mediatype.MediaType, error) {
	vol, err := p.volumes.GetByID(item.VolumeID)
	if err != nil {
		return nil, nil, mediatype.MediaType{}, fmt.Errorf("cache item %s: resolve volume: %w", item.ID, err)
	}
	file, err := vol.FindFile(ctx, item.FileID, item.FileVersion)
	if err != nil {
		return nil, nil, mediatype.MediaType{}, fmt.Errorf("cache item %s: find file: %w", item.ID, err)
	}
	tpl, err := p.templates.Find(item.TemplateKey)
	if err != nil {
		return nil, nil, mediatype.MediaType{}, fmt.Errorf("cache item %s: find template: %w", item.ID, err)
	}
	mt, err := p.mediaTypes.Find(file.MediaType)
	if err != nil {
		return nil, nil, mediatype.MediaType{}, fmt.Errorf("cache item %s: find media type: %w", item.ID, err)
	}
	return tpl, file, mt, nil
}

func (p *Processor) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.itemTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	cause := services.Wrap(services.ErrTimeout, "", "", fmt.Sprintf("timed out after %s", p.itemTimeout), nil)
	return context.WithTimeoutCause(ctx, p.itemTimeout, cause)
}

func (p *Processor) outcome(workerName string, item *mediacache.CacheItem, err error) Outcome {
	switch {
	case item == nil && err == nil:
		return Outcome{Kind: Skipped, Reason: ReasonNoCacheItem, Worker: workerName}
	case item == nil:
		return Outcome{Kind: Failed, Worker: workerName, Status: mediacache.StatusError, Err: err}
	case err != nil:
		return Outcome{Kind: Failed, Worker: workerName, Item: item, Status: item.CacheStatus, Err: err}
	case item.CacheStatus == mediacache.StatusError:
		return Outcome{Kind: Failed, Worker: workerName, Item: item, Status: item.CacheStatus, Err: errors.New(item.Error)}
	default:
		return Outcome{Kind: Completed, Worker: workerName, Item: item, Status: item.CacheStatus}
	}
}

func (p *Processor) markRun(ctx context.Context, logger *slog.Logger) {
	now := p.now()
	p.metrics.setLastRun(now)
	if p.props == nil {
		return
	}
	if err := p.props.SetTime(context.WithoutCancel(ctx), PropertyNamespace, PropertyLastRun, now); err != nil {
		logging.WarnWithContext(logger, "last run timestamp not recorded", "last_run_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database access"),
			logging.String(logging.FieldImpact, "health check may report a stale queue"),
		)
	}
}
