package worker

import (
	"context"

	"mediacache/internal/applier"
	"mediacache/internal/mediacache"
	"mediacache/internal/mediatype"
	"mediacache/internal/template"
	"mediacache/internal/volume"
)

// Image renders still images from images, video frames and document pages.
type Image struct {
	deps    Deps
	applier *applier.Image
}

// NewImage constructs the image worker.
func NewImage(deps Deps, img *applier.Image) *Image {
	if img == nil {
		img = applier.NewImage()
	}
	return &Image{deps: deps, applier: img}
}

// Name returns "image".
func (w *Image) Name() string { return template.TypeImage }

// Accept takes image templates for any source a still can be taken from.
func (w *Image) Accept(tpl *template.Template, _ *volume.File, mt mediatype.MediaType) bool {
	if tpl.Type != template.TypeImage || mt.Key == "svg" {
		return false
	}
	switch mt.Category {
	case mediatype.CategoryImage, mediatype.CategoryVideo, mediatype.CategoryDocument:
		return true
	default:
		return false
	}
}

// Process renders the template. The frame_offset parameter picks the video
// frame in seconds.
func (w *Image) Process(ctx context.Context, item *mediacache.CacheItem, tpl *template.Template, file *volume.File, mt mediatype.MediaType) (*mediacache.CacheItem, error) {
	offset := float64(tpl.IntParameter("frame_offset", 0))
	input, transmuteErr := w.deps.Transmutor.ToImage(ctx, file, mt, offset)

	r := w.deps.start(ctx, w.Name(), item, tpl, file)
	switch {
	case transmuteErr != nil && !inputMissing(transmuteErr):
		r.fail(ctx, transmuteErr)
		return r.finish(ctx)
	case !fileExists(input):
		r.missing("Input file not found.", input)
		return r.finish(ctx)
	case !w.applier.Accepts(tpl, input):
		r.missing("No suitable image template applier found.", input)
		return r.finish(ctx)
	}

	format := applier.ImageFormat(tpl)
	output, err := r.tempPath(format)
	if err != nil {
		r.fail(ctx, err)
		return r.finish(ctx)
	}

	var width, height int
	if input == file.Path && matchesFormat(tpl, file, format) {
		output = input
		width, height, err = applier.ImageDimensions(input)
	} else {
		var result applier.ImageResult
		result, err = w.applier.Apply(ctx, tpl, input, output)
		width, height = result.Width, result.Height
	}
	if err == nil {
		err = r.complete(output, width, height)
	}
	if err != nil {
		r.fail(ctx, err)
	}
	r.store(ctx, output)
	return r.finish(ctx)
}

var _ Worker = (*Image)(nil)
