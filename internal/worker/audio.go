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

// Audio transcodes audio, or the audio track of a video.
type Audio struct {
	deps     Deps
	appliers []applier.Applier
}

// NewAudio constructs the audio worker.
func NewAudio(deps Deps, appliers ...applier.Applier) *Audio {
	return &Audio{deps: deps, appliers: appliers}
}

// Name returns "audio".
func (w *Audio) Name() string { return template.TypeAudio }

// Accept takes audio templates for audio and video sources.
func (w *Audio) Accept(tpl *template.Template, _ *volume.File, mt mediatype.MediaType) bool {
	return tpl.Type == template.TypeAudio &&
		(mt.Category == mediatype.CategoryAudio || mt.Category == mediatype.CategoryVideo)
}

// Process transcodes the source into the template's audio format.
func (w *Audio) Process(ctx context.Context, item *mediacache.CacheItem, tpl *template.Template, file *volume.File, mt mediatype.MediaType) (*mediacache.CacheItem, error) {
	input, transmuteErr := w.deps.Transmutor.ToAudio(ctx, file, mt)

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
		r.missing("No suitable audio template applier found.", input)
		return r.finish(ctx)
	}

	format := applier.AudioFormat(tpl)
	output, err := r.tempPath(format)
	if err != nil {
		r.fail(ctx, err)
		return r.finish(ctx)
	}
	if matchesFormat(tpl, file, format) {
		output = input
	} else if err := selected.Apply(ctx, tpl, input, output); err != nil {
		r.fail(ctx, err)
		return r.finish(ctx)
	}

	probe, err := w.deps.Prober.Inspect(ctx, output)
	switch {
	case err != nil:
		r.fail(ctx, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect output", "", err))
	case probe.AudioStreamCount() == 0:
		r.fail(ctx, services.Wrap(services.ErrValidation, "ffprobe", "inspect output", "no audio stream in output", nil))
	default:
		if err := r.complete(output, 0, 0); err != nil {
			r.fail(ctx, err)
		}
	}
	r.store(ctx, output)
	return r.finish(ctx)
}

var _ Worker = (*Audio)(nil)
