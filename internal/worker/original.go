package worker

import (
	"context"

	"mediacache/internal/applier"
	"mediacache/internal/mediacache"
	"mediacache/internal/mediatype"
	"mediacache/internal/template"
	"mediacache/internal/volume"
)

// Original stores the source file unchanged. It accepts every media type and
// belongs at the end of the resolution order.
type Original struct {
	deps Deps
}

// NewOriginal constructs the passthrough worker.
func NewOriginal(deps Deps) *Original {
	return &Original{deps: deps}
}

// Name returns "original".
func (w *Original) Name() string { return template.TypeOriginal }

// Accept takes every original template.
func (w *Original) Accept(tpl *template.Template, _ *volume.File, _ mediatype.MediaType) bool {
	return tpl.Type == template.TypeOriginal
}

// Process copies the source into storage. Dimensions are recorded for
// images and videos when they can be read.
func (w *Original) Process(ctx context.Context, item *mediacache.CacheItem, tpl *template.Template, file *volume.File, mt mediatype.MediaType) (*mediacache.CacheItem, error) {
	r := w.deps.start(ctx, w.Name(), item, tpl, file)
	if !fileExists(file.Path) {
		r.missing("Input file not found.", file.Path)
		return r.finish(ctx)
	}

	width, height := w.dimensions(ctx, file.Path, mt)
	if err := r.complete(file.Path, width, height); err != nil {
		r.fail(ctx, err)
	}
	r.store(ctx, file.Path)
	return r.finish(ctx)
}

func (w *Original) dimensions(ctx context.Context, path string, mt mediatype.MediaType) (int, int) {
	switch mt.Category {
	case mediatype.CategoryImage:
		if width, height, err := applier.ImageDimensions(path); err == nil {
			return width, height
		}
	case mediatype.CategoryVideo:
		if w.deps.Prober == nil {
			return 0, 0
		}
		if probe, err := w.deps.Prober.Inspect(ctx, path); err == nil {
			if width, height, err := probe.Dimensions(); err == nil {
				return width, height
			}
		}
	}
	return 0, 0
}

var _ Worker = (*Original)(nil)
