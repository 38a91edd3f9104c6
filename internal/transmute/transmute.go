// Package transmute converts source files into the canonical intermediate a
// worker expects: a video container, an audio stream, a still image or a PDF.
// Sources that already have the right shape are returned unchanged.
package transmute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mediacache/internal/execx"
	"mediacache/internal/mediatype"
	"mediacache/internal/services"
	"mediacache/internal/volume"
)

// ErrUnsupported is returned when a source cannot be converted.
var ErrUnsupported = errors.New("unsupported transmutation")

// Tools names the external binaries used for conversion.
type Tools struct {
	FFmpeg   string
	Soffice  string
	Pdftoppm string
}

// Transmutor converts files into a scratch directory.
type Transmutor struct {
	tools   Tools
	runner  execx.Runner
	scratch string
}

// New constructs a Transmutor writing intermediates under scratchDir.
func New(tools Tools, runner execx.Runner, scratchDir string) *Transmutor {
	if tools.FFmpeg == "" {
		tools.FFmpeg = "ffmpeg"
	}
	if tools.Soffice == "" {
		tools.Soffice = "soffice"
	}
	if tools.Pdftoppm == "" {
		tools.Pdftoppm = "pdftoppm"
	}
	if runner == nil {
		runner = execx.NewCommandRunner()
	}
	return &Transmutor{tools: tools, runner: runner, scratch: scratchDir}
}

// ToVideo returns a path to a video for file. Video sources pass through;
// animated images are wrapped into an mp4.
func (t *Transmutor) ToVideo(ctx context.Context, file *volume.File, mt mediatype.MediaType) (string, error) {
	switch {
	case mt.Category == mediatype.CategoryVideo:
		return file.Path, nil
	case mt.Key == "gif":
		out, err := t.target(file, "video", "mp4")
		if err != nil {
			return "", err
		}
		if fresh(out, file.Path) {
			return out, nil
		}
		args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", file.Path,
			"-movflags", "faststart", "-pix_fmt", "yuv420p",
			"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2", out}
		if _, err := t.runner.Run(ctx, t.tools.FFmpeg, args...); err != nil {
			return "", services.Wrap(services.ErrExternalTool, "transmute", "gif to video", file.Name, err)
		}
		return out, nil
	default:
		return "", unsupported("video", mt)
	}
}

// ToAudio returns a path ffmpeg can read an audio stream from.
func (t *Transmutor) ToAudio(_ context.Context, file *volume.File, mt mediatype.MediaType) (string, error) {
	switch mt.Category {
	case mediatype.CategoryAudio, mediatype.CategoryVideo:
		return file.Path, nil
	default:
		return "", unsupported("audio", mt)
	}
}

// ToImage returns a still image for file: raster images pass through, videos
// yield a frame at the requested offset in seconds, PDFs and office
// documents yield their first page.
func (t *Transmutor) ToImage(ctx context.Context, file *volume.File, mt mediatype.MediaType, offsetSeconds float64) (string, error) {
	switch mt.Category {
	case mediatype.CategoryImage:
		if mt.Key == "svg" {
			return "", unsupported("image", mt)
		}
		return file.Path, nil
	case mediatype.CategoryVideo:
		out, err := t.target(file, "frame-"+strconv.FormatFloat(offsetSeconds, 'f', -1, 64), "png")
		if err != nil {
			return "", err
		}
		if fresh(out, file.Path) {
			return out, nil
		}
		args := []string{"-hide_banner", "-loglevel", "error", "-y",
			"-ss", strconv.FormatFloat(offsetSeconds, 'f', 3, 64),
			"-i", file.Path, "-frames:v", "1", out}
		if _, err := t.runner.Run(ctx, t.tools.FFmpeg, args...); err != nil {
			return "", services.Wrap(services.ErrExternalTool, "transmute", "extract frame", file.Name, err)
		}
		if !exists(out) {
			return "", services.Wrap(services.ErrExternalTool, "transmute", "extract frame", "ffmpeg produced no frame", nil)
		}
		return out, nil
	case mediatype.CategoryDocument:
		pdf, err := t.ToPDF(ctx, file, mt)
		if err != nil {
			return "", err
		}
		return t.rasterizeFirstPage(ctx, file, pdf)
	default:
		return "", unsupported("image", mt)
	}
}

// ToPDF returns a PDF for file, converting office documents with LibreOffice.
func (t *Transmutor) ToPDF(ctx context.Context, file *volume.File, mt mediatype.MediaType) (string, error) {
	if mt.Key == "pdf" {
		return file.Path, nil
	}
	if mt.Category != mediatype.CategoryDocument {
		return "", unsupported("pdf", mt)
	}
	dir, err := t.workDir(file)
	if err != nil {
		return "", err
	}
	base := filepath.Base(file.Path)
	out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if fresh(out, file.Path) {
		return out, nil
	}
	args := []string{"--headless", "--norestore", "--convert-to", "pdf", "--outdir", dir, file.Path}
	if _, err := t.runner.Run(ctx, t.tools.Soffice, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transmute", "convert to pdf", file.Name, err)
	}
	if !exists(out) {
		return "", services.Wrap(services.ErrExternalTool, "transmute", "convert to pdf", "soffice produced no output", nil)
	}
	return out, nil
}

func (t *Transmutor) rasterizeFirstPage(ctx context.Context, file *volume.File, pdf string) (string, error) {
	out, err := t.target(file, "page1", "png")
	if err != nil {
		return "", err
	}
	if fresh(out, pdf) {
		return out, nil
	}
	prefix := strings.TrimSuffix(out, ".png")
	args := []string{"-png", "-r", "150", "-f", "1", "-l", "1", "-singlefile", pdf, prefix}
	if _, err := t.runner.Run(ctx, t.tools.Pdftoppm, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "transmute", "rasterize pdf", file.Name, err)
	}
	if !exists(out) {
		return "", services.Wrap(services.ErrExternalTool, "transmute", "rasterize pdf", "pdftoppm produced no output", nil)
	}
	return out, nil
}

// workDir is unique per file version so intermediates can be reused.
func (t *Transmutor) workDir(file *volume.File) (string, error) {
	if strings.TrimSpace(t.scratch) == "" {
		return "", errors.New("transmute: scratch directory not configured")
	}
	dir := filepath.Join(t.scratch, "transmute", fmt.Sprintf("%s-v%d", file.ID, file.Version))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("transmute: create work dir: %w", err)
	}
	return dir, nil
}

func (t *Transmutor) target(file *volume.File, name, ext string) (string, error) {
	dir, err := t.workDir(file)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+"."+ext), nil
}

// fresh reports whether out exists and is not older than src.
func fresh(out, src string) bool {
	outInfo, err := os.Stat(out)
	if err != nil || outInfo.Size() == 0 {
		return false
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	return !outInfo.ModTime().Before(srcInfo.ModTime())
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func unsupported(target string, mt mediatype.MediaType) error {
	return fmt.Errorf("%w: %s (%s) to %s", ErrUnsupported, mt.Key, mt.Category, target)
}
