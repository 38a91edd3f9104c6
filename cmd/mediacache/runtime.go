package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mediacache/internal/config"
	"mediacache/internal/database"
	"mediacache/internal/execx"
	"mediacache/internal/media/ffprobe"
	"mediacache/internal/mediacache"
	"mediacache/internal/mediatype"
	"mediacache/internal/notifications"
	"mediacache/internal/processor"
	"mediacache/internal/properties"
	"mediacache/internal/storage"
	"mediacache/internal/template"
	"mediacache/internal/transmute"
	"mediacache/internal/volume"
	"mediacache/internal/worker"
)

var errRuntimeClosed = errors.New("runtime already closed")

// runtime holds the collaborators shared by the commands of one invocation.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *database.DB
	cache      *mediacache.Manager
	volumes    *volume.Manager
	storages   *storage.Manager
	templates  *template.Repository
	mediaTypes *mediatype.Registry
	props      *properties.Store
	registry   *prometheus.Registry
	resolver   *worker.Resolver
	processor  *processor.Processor
	locker     *processor.FlockLocker
	notifier   notifications.Service
}

func openRuntime(cfg *config.Config, logger *slog.Logger, runner execx.Runner) (*runtime, error) {
	templates, err := template.Load(cfg.Paths.TemplatesFile)
	if err != nil {
		return nil, err
	}
	storages, err := storage.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	mediaTypes := mediatype.FromConfig(cfg)
	volumes, err := volume.NewManager(cfg, db, mediaTypes)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rt := &runtime{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		cache:      mediacache.NewManager(db),
		volumes:    volumes,
		storages:   storages,
		templates:  templates,
		mediaTypes: mediaTypes,
		props:      properties.New(db),
		registry:   prometheus.NewRegistry(),
		locker:     processor.NewFlockLocker(cfg.Paths.LockDir),
		notifier:   notifications.NewService(cfg),
	}
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := worker.Deps{
		Cache:      rt.cache,
		Storages:   storages,
		MediaTypes: mediaTypes,
		Transmutor: transmute.New(transmute.Tools{
			FFmpeg:   cfg.FFmpegBinary(),
			Soffice:  cfg.SofficeBinary(),
			Pdftoppm: cfg.PdftoppmBinary(),
		}, runner, filepath.Join(cfg.Paths.TempDir, "transmute")),
		Prober:  ffprobe.NewCommand(cfg.FFprobeBinary(), runner),
		Logger:  logger,
		TempDir: cfg.Paths.TempDir,
	}
	rt.resolver, err = worker.NewOrderedResolver(cfg.Processor.Workers, worker.Standard(cfg, deps, runner)...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rt.processor, err = processor.New(processor.Options{
		Locker:      rt.locker,
		Volumes:     volumes,
		Templates:   templates,
		MediaTypes:  mediaTypes,
		Resolver:    rt.resolver,
		Properties:  rt.props,
		Metrics:     processor.NewMetrics(rt.registry),
		Logger:      logger,
		ItemTimeout: cfg.ItemTimeout(),
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return rt, nil
}

func (r *runtime) Close() error {
	if r == nil || r.db == nil {
		return errRuntimeClosed
	}
	err := r.db.Close()
	r.db = nil
	return err
}
