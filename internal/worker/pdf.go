package worker

import (
	"bytes"
	"context"
	"io"
	"os"

	"mediacache/internal/mediacache"
	"mediacache/internal/mediatype"
	"mediacache/internal/services"
	"mediacache/internal/template"
	"mediacache/internal/volume"
)

var pdfMagic = []byte("%PDF-")

// PDF renders documents as PDF, converting office formats with LibreOffice.
type PDF struct {
	deps Deps
}

// NewPDF constructs the document worker.
func NewPDF(deps Deps) *PDF {
	return &PDF{deps: deps}
}

// Name returns "pdf".
func (w *PDF) Name() string { return template.TypePDF }

// Accept takes pdf templates for document sources.
func (w *PDF) Accept(tpl *template.Template, _ *volume.File, mt mediatype.MediaType) bool {
	return tpl.Type == template.TypePDF && mt.Category == mediatype.CategoryDocument
}

// Process converts the source and checks the result is a PDF.
func (w *PDF) Process(ctx context.Context, item *mediacache.CacheItem, tpl *template.Template, file *volume.File, mt mediatype.MediaType) (*mediacache.CacheItem, error) {
	r := w.deps.start(ctx, w.Name(), item, tpl, file)
	if !fileExists(file.Path) {
		r.missing("Input file not found.", file.Path)
		return r.finish(ctx)
	}

	output, err := w.deps.Transmutor.ToPDF(ctx, file, mt)
	switch {
	case err != nil && inputMissing(err):
		r.missing("No suitable document converter found.", file.Path)
		return r.finish(ctx)
	case err != nil:
		r.fail(ctx, err)
		return r.finish(ctx)
	}

	if err := checkPDF(output); err != nil {
		r.fail(ctx, err)
	} else if err := r.complete(output, 0, 0); err != nil {
		r.fail(ctx, err)
	}
	r.store(ctx, output)
	return r.finish(ctx)
}

func checkPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return services.Wrap(services.ErrValidation, "pdf", "verify output", "output is not a PDF document", nil)
	}
	return nil
}

var _ Worker = (*PDF)(nil)
