package worker

import (
	"context"

	"mediacache/internal/applier"
	"mediacache/internal/mediacache"
	"mediacache/internal/mediatype"
	"mediacache/internal/services"
	"mediacache/internal/template"
	"mediacache/internal/volume"
)

// Video transcodes video sources.
type Video struct {
	deps     Deps
	appliers []applier.Applier
}

// NewVideo constructs the video worker. Appliers are tried in order.
func NewVideo(deps Deps, appliers ...applier.Applier) *Video {
	return &Video{deps: deps, appliers: appliers}
}

// Name returns "video".
func (w *Video) Name() string { return template.TypeVideo }

// Accept takes video templates for video sources and animated GIFs.
func (w *Video) Accept(tpl *template.Template, _ *volume.File, mt mediatype.MediaType) bool {
	return tpl.Type == template.TypeVideo && (mt.Category == mediatype.CategoryVideo || mt.Key == "gif")
}

// Process transcodes the source into the template's container.
func (w *Video) Process(ctx context.Context, item *mediacache.CacheItem, tpl *template.Template, file *volume.File, mt mediatype.MediaType) (*mediacache.CacheItem, error) {
	input, transmuteErr := w.deps.Transmutor.ToVideo(ctx, file, mt)

	r := w.deps.start(ctx, w.Name(), item, tpl, file)
	switch {
	case transmuteErr != nil && !inputMissing(transmuteErr):
		r.fail(ctx, transmuteErr)
		return r.finish(ctx)
	case !fileExists(input):
		r.missing("Input file not found.", input)
		return r.finish(ctx)
	}
	selected := applier.Select(w.appliers, tpl, input)
	if selected == nil {
		r.missing("No suitable video template applier found.", input)
		return r.finish(ctx)
	}

	format := applier.VideoFormat(tpl)
	output, err := r.tempPath(format)
	if err != nil {
		r.fail(ctx, err)
		return r.finish(ctx)
	}

	if err := w.render(ctx, r, selected, input, &output, format); err != nil {
		r.fail(ctx, err)
	}
	r.store(ctx, output)
	return r.finish(ctx)
}

func (w *Video) render(ctx context.Context, r *run, selected applier.Applier, input string, output *string, format string) error {
	if matchesFormat(r.tpl, r.file, format) {
		*output = input
	} else if err := selected.Apply(ctx, r.tpl, input, *output); err != nil {
		return err
	}

	probe, err := w.deps.Prober.Inspect(ctx, *output)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffprobe", "inspect output", "", err)
	}
	width, height, err := probe.Dimensions()
	if err != nil {
		return services.Wrap(services.ErrValidation, "ffprobe", "inspect output", "", err)
	}
	return r.complete(*output, width, height)
}

var _ Worker = (*Video)(nil)
