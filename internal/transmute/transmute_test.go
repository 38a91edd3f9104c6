package transmute_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"mediacache/internal/execx"
	"mediacache/internal/mediatype"
	"mediacache/internal/services"
	"mediacache/internal/testsupport"
	"mediacache/internal/transmute"
	"mediacache/internal/volume"
)

func lookup(t *testing.T, key string) mediatype.MediaType {
	t.Helper()
	mt, err := mediatype.New().Find(key)
	if err != nil {
		t.Fatalf("Find(%s): %v", key, err)
	}
	return mt
}

func sourceFile(t *testing.T, name string) *volume.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testsupport.WriteFile(t, path, 64)
	return &volume.File{ID: "file-1", Version: 2, Name: name, Path: path}
}

// outputWriter fakes the tools by creating the output they would write: the
// last argument plus suffix, or the converted PDF for soffice.
func outputWriter(t *testing.T, suffix string) *execx.FakeRunner {
	return &execx.FakeRunner{Handler: func(_ context.Context, name string, args []string) ([]byte, error) {
		var out string
		switch name {
		case "soffice":
			dir := args[slices.Index(args, "--outdir")+1]
			src := args[len(args)-1]
			out = filepath.Join(dir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".pdf")
		default:
			out = args[len(args)-1] + suffix
		}
		testsupport.WriteBytes(t, out, []byte("x"))
		return nil, nil
	}}
}

func TestPassThrough(t *testing.T) {
	runner := &execx.FakeRunner{}
	tr := transmute.New(transmute.Tools{}, runner, t.TempDir())
	ctx := context.Background()

	video := sourceFile(t, "clip.mp4")
	if got, err := tr.ToVideo(ctx, video, lookup(t, "mp4")); err != nil || got != video.Path {
		t.Fatalf("ToVideo passthrough: %q %v", got, err)
	}
	if got, err := tr.ToAudio(ctx, video, lookup(t, "mp4")); err != nil || got != video.Path {
		t.Fatalf("ToAudio from video: %q %v", got, err)
	}
	photo := sourceFile(t, "photo.jpg")
	if got, err := tr.ToImage(ctx, photo, lookup(t, "jpg"), 0); err != nil || got != photo.Path {
		t.Fatalf("ToImage passthrough: %q %v", got, err)
	}
	pdf := sourceFile(t, "doc.pdf")
	if got, err := tr.ToPDF(ctx, pdf, lookup(t, "pdf")); err != nil || got != pdf.Path {
		t.Fatalf("ToPDF passthrough: %q %v", got, err)
	}
	if len(runner.Calls()) != 0 {
		t.Fatalf("expected no tool invocations, got %v", runner.Calls())
	}
}

func TestUnsupported(t *testing.T) {
	tr := transmute.New(transmute.Tools{}, &execx.FakeRunner{}, t.TempDir())
	ctx := context.Background()
	zip := sourceFile(t, "a.zip")
	if _, err := tr.ToVideo(ctx, zip, lookup(t, "zip")); !errors.Is(err, transmute.ErrUnsupported) {
		t.Fatalf("ToVideo: %v", err)
	}
	if _, err := tr.ToAudio(ctx, zip, lookup(t, "zip")); !errors.Is(err, transmute.ErrUnsupported) {
		t.Fatalf("ToAudio: %v", err)
	}
	if _, err := tr.ToImage(ctx, zip, lookup(t, "zip"), 0); !errors.Is(err, transmute.ErrUnsupported) {
		t.Fatalf("ToImage: %v", err)
	}
	if _, err := tr.ToPDF(ctx, zip, lookup(t, "zip")); !errors.Is(err, transmute.ErrUnsupported) {
		t.Fatalf("ToPDF: %v", err)
	}
}

func TestVideoFrameExtraction(t *testing.T) {
	runner := outputWriter(t, "")
	tr := transmute.New(transmute.Tools{FFmpeg: "ffmpeg"}, runner, t.TempDir())
	video := sourceFile(t, "clip.mov")

	out, err := tr.ToImage(context.Background(), video, lookup(t, "mov"), 2.5)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	if filepath.Ext(out) != ".png" || !strings.Contains(out, "file-1-v2") {
		t.Fatalf("unexpected frame path %q", out)
	}
	calls := runner.CallsTo("ffmpeg")
	if len(calls) != 1 || !strings.Contains(calls[0].String(), "-ss 2.500") {
		t.Fatalf("unexpected calls %v", calls)
	}

	// A fresh intermediate is reused.
	if _, err := tr.ToImage(context.Background(), video, lookup(t, "mov"), 2.5); err != nil {
		t.Fatalf("ToImage again: %v", err)
	}
	if len(runner.CallsTo("ffmpeg")) != 1 {
		t.Fatal("expected cached frame to be reused")
	}
}

func TestOfficeDocumentToImage(t *testing.T) {
	runner := outputWriter(t, ".png")
	tr := transmute.New(transmute.Tools{}, runner, t.TempDir())
	doc := sourceFile(t, "report.docx")

	out, err := tr.ToImage(context.Background(), doc, lookup(t, "docx"), 0)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	if filepath.Base(out) != "page1.png" {
		t.Fatalf("unexpected page path %q", out)
	}
	if len(runner.CallsTo("soffice")) != 1 || len(runner.CallsTo("pdftoppm")) != 1 {
		t.Fatalf("unexpected calls %v", runner.Calls())
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected page image: %v", err)
	}
}

func TestToolFailureIsExternalToolError(t *testing.T) {
	runner := &execx.FakeRunner{Handler: func(context.Context, string, []string) ([]byte, error) {
		return nil, errors.New("exit status 77")
	}}
	tr := transmute.New(transmute.Tools{}, runner, t.TempDir())
	_, err := tr.ToPDF(context.Background(), sourceFile(t, "sheet.xlsx"), lookup(t, "xlsx"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}

	silent := &execx.FakeRunner{}
	tr = transmute.New(transmute.Tools{}, silent, t.TempDir())
	_, err = tr.ToPDF(context.Background(), sourceFile(t, "sheet.xlsx"), lookup(t, "xlsx"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected missing output to be an ErrExternalTool, got %v", err)
	}
}
