package applier

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"mediacache/internal/services"
	"mediacache/internal/template"
)

// DefaultImageFormat is used when an image template does not name a format.
const DefaultImageFormat = "jpg"

const defaultJPEGQuality = 85

// Resize methods understood by the image applier.
const (
	MethodFit     = "fit"
	MethodFill    = "fill"
	MethodStretch = "stretch"
)

// ImageResult describes the rendered image.
type ImageResult struct {
	Width  int
	Height int
	Format string
}

// Image scales and re-encodes still images without external tools.
type Image struct{}

// NewImage constructs the image applier.
func NewImage() *Image { return &Image{} }

// Name identifies the applier in logs.
func (a *Image) Name() string { return "image" }

// Accepts reports whether the target format can be encoded and input read.
func (a *Image) Accepts(tpl *template.Template, input string) bool {
	return encodable(ImageFormat(tpl)) && readable(input)
}

// ImageFormat returns the normalised output format of tpl.
func ImageFormat(tpl *template.Template) string {
	format := strings.ToLower(strings.TrimPrefix(tpl.StringParameter("format", DefaultImageFormat), "."))
	switch format {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	default:
		return format
	}
}

func encodable(format string) bool {
	switch format {
	case "jpg", "png", "gif", "bmp", "tiff":
		return true
	default:
		return false
	}
}

// Apply renders input to output. Parameters: width, height, method
// (fit, fill, stretch), upscale, quality, format.
func (a *Image) Apply(ctx context.Context, tpl *template.Template, input, output string) (ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return ImageResult{}, err
	}
	format := ImageFormat(tpl)
	if !encodable(format) {
		return ImageResult{}, fmt.Errorf("%w: image format %q", ErrUnsupported, format)
	}

	src, err := decodeImage(input)
	if err != nil {
		return ImageResult{}, services.Wrap(services.ErrValidation, "image", "decode", filepath.Base(input), err)
	}

	dst := Resize(src,
		tpl.IntParameter("width", 0),
		tpl.IntParameter("height", 0),
		strings.ToLower(tpl.StringParameter("method", MethodFit)),
		tpl.BoolParameter("upscale", false),
	)

	if err := ctx.Err(); err != nil {
		return ImageResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return ImageResult{}, err
	}
	out, err := os.Create(output)
	if err != nil {
		return ImageResult{}, err
	}
	if err := encodeImage(out, dst, format, tpl.IntParameter("quality", defaultJPEGQuality)); err != nil {
		_ = out.Close()
		return ImageResult{}, services.Wrap(services.ErrExternalTool, "image", "encode", format, err)
	}
	if err := out.Close(); err != nil {
		return ImageResult{}, err
	}
	bounds := dst.Bounds()
	return ImageResult{Width: bounds.Dx(), Height: bounds.Dy(), Format: format}, nil
}

// Resize scales src to the requested box. A zero width or height is derived
// from the aspect ratio; without upscale the image never grows.
func Resize(src image.Image, width, height int, method string, upscale bool) image.Image {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 || (width <= 0 && height <= 0) {
		return src
	}

	switch {
	case width <= 0:
		width = sw * height / sh
	case height <= 0:
		height = sh * width / sw
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	crop := sb
	tw, th := width, height
	switch method {
	case MethodStretch:
	case MethodFill:
		// Crop the source to the target aspect ratio around its centre.
		if sw*th > sh*tw {
			cw := sh * tw / th
			x0 := sb.Min.X + (sw-cw)/2
			crop = image.Rect(x0, sb.Min.Y, x0+cw, sb.Max.Y)
		} else {
			ch := sw * th / tw
			y0 := sb.Min.Y + (sh-ch)/2
			crop = image.Rect(sb.Min.X, y0, sb.Max.X, y0+ch)
		}
	default:
		if sw*th > sh*tw {
			th = max(1, sh*tw/sw)
		} else {
			tw = max(1, sw*th/sh)
		}
	}

	if !upscale && (tw > crop.Dx() || th > crop.Dy()) {
		if crop == sb {
			return src
		}
		tw, th = crop.Dx(), crop.Dy()
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}

// ImageDimensions reads the pixel size of an image file without decoding it.
func ImageDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func encodeImage(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "jpg":
		if quality <= 0 || quality > 100 {
			quality = defaultJPEGQuality
		}
		return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: quality})
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: image format %q", ErrUnsupported, format)
	}
}

// flatten composites img over white since JPEG carries no alpha channel.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}
