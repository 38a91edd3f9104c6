package applier_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"mediacache/internal/applier"
	"mediacache/internal/execx"
	"mediacache/internal/services"
	"mediacache/internal/template"
	"mediacache/internal/testsupport"
)

func videoTemplate(params map[string]any) *template.Template {
	return &template.Template{Key: "web", Type: template.TypeVideo, Parameters: params}
}

func TestVideoArgs(t *testing.T) {
	tpl := videoTemplate(map[string]any{
		"format":        "mkv",
		"width":         int64(1280),
		"video_codec":   "libx264",
		"video_bitrate": "2M",
		"crf":           int64(23),
		"audio_codec":   "aac",
		"audio_bitrate": "128k",
	})
	args := applier.VideoArgs(tpl, "/in.mov", "/out.mkv")
	line := strings.Join(args, " ")
	for _, want := range []string{
		"-i /in.mov",
		"-vf scale=1280:-2",
		"-c:v libx264",
		"-b:v 2M",
		"-crf 23",
		"-c:a aac",
		"-b:a 128k",
		"-f matroska /out.mkv",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}

	silent := applier.VideoArgs(videoTemplate(map[string]any{"audio": false}), "/in", "/out")
	if !slices.Contains(silent, "-an") {
		t.Fatalf("expected -an when audio disabled: %v", silent)
	}
	if got := silent[len(silent)-2]; got != applier.DefaultVideoFormat {
		t.Fatalf("expected default muxer %q, got %q", applier.DefaultVideoFormat, got)
	}
}

func TestAudioArgs(t *testing.T) {
	tpl := &template.Template{Key: "podcast", Type: template.TypeAudio, Parameters: map[string]any{
		"format":            "ogg",
		"audio_channels":    int64(1),
		"audio_sample_rate": int64(44100),
		"duration":          "30",
	}}
	line := strings.Join(applier.AudioArgs(tpl, "/in.wav", "/out.ogg"), " ")
	for _, want := range []string{"-t 30 -i /in.wav -vn", "-ac 1", "-ar 44100", "-f ogg /out.ogg"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestFFmpegVideoApplyWrapsFailures(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.mp4")
	testsupport.WriteFile(t, input, 16)

	runner := &execx.FakeRunner{Handler: func(context.Context, string, []string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}}
	video := applier.NewFFmpegVideo("ffmpeg-test", runner)
	tpl := videoTemplate(nil)
	if !video.Accepts(tpl, input) {
		t.Fatal("expected ffmpeg applier to accept default encoder")
	}
	err := video.Apply(context.Background(), tpl, input, "/out.flv")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if calls := runner.CallsTo("ffmpeg-test"); len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %v", runner.Calls())
	}
}

func TestSelectHonoursEncoderParameter(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.mp4")
	testsupport.WriteFile(t, input, 16)

	ffmpeg := applier.NewFFmpegVideo("", &execx.FakeRunner{})
	drapto := applier.NewDrapto(nil)
	list := []applier.Applier{drapto, ffmpeg}

	if got := applier.Select(list, videoTemplate(nil), input); got != ffmpeg {
		t.Fatalf("expected ffmpeg, got %v", got)
	}
	if got := applier.Select(list, videoTemplate(map[string]any{"encoder": "Drapto"}), input); got != drapto {
		t.Fatalf("expected drapto, got %v", got)
	}
	if got := applier.Select(list, videoTemplate(map[string]any{"encoder": "drapto", "format": "mp4"}), input); got != nil {
		t.Fatalf("drapto only writes mkv, got %v", got)
	}
	if got := applier.Select(list, videoTemplate(map[string]any{"encoder": "x"}), input); got != nil {
		t.Fatalf("expected no applier, got %v", got)
	}
	if got := applier.Select(list, videoTemplate(nil), filepath.Join(t.TempDir(), "absent")); got != nil {
		t.Fatalf("expected no applier for missing input, got %v", got)
	}
}

func TestVideoFormatDefaultsToMatroskaForDrapto(t *testing.T) {
	if got := applier.VideoFormat(videoTemplate(map[string]any{"encoder": "drapto"})); got != applier.DraptoFormat {
		t.Fatalf("expected %q, got %q", applier.DraptoFormat, got)
	}
	if got := applier.VideoFormat(videoTemplate(nil)); got != applier.DefaultVideoFormat {
		t.Fatalf("expected %q, got %q", applier.DefaultVideoFormat, got)
	}
	if got := applier.VideoFormat(videoTemplate(map[string]any{"encoder": "drapto", "format": ".MKV"})); got != "mkv" {
		t.Fatalf("expected mkv, got %q", got)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestImageApplyFit(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.png")
	writePNG(t, input, 200, 100)

	tpl := &template.Template{Key: "thumb", Type: template.TypeImage, Parameters: map[string]any{
		"width":  int64(50),
		"height": int64(50),
		"format": "jpeg",
	}}
	img := applier.NewImage()
	if !img.Accepts(tpl, input) {
		t.Fatal("expected image applier to accept jpeg output")
	}
	output := filepath.Join(dir, "out.jpg")
	result, err := img.Apply(context.Background(), tpl, input, output)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Width != 50 || result.Height != 25 || result.Format != "jpg" {
		t.Fatalf("unexpected result %+v", result)
	}
	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" || cfg.Width != 50 || cfg.Height != 25 {
		t.Fatalf("unexpected output %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestResizeMethods(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	tests := []struct {
		name          string
		width, height int
		method        string
		upscale       bool
		wantW, wantH  int
	}{
		{"fit", 100, 100, applier.MethodFit, false, 100, 50},
		{"fill", 100, 100, applier.MethodFill, false, 100, 100},
		{"stretch", 100, 100, applier.MethodStretch, false, 100, 100},
		{"width only", 200, 0, applier.MethodFit, false, 200, 100},
		{"no upscale", 800, 0, applier.MethodFit, false, 400, 200},
		{"upscale", 800, 0, applier.MethodFit, true, 800, 400},
		{"no box", 0, 0, applier.MethodFit, false, 400, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applier.Resize(src, tt.width, tt.height, tt.method, tt.upscale).Bounds()
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Fatalf("got %dx%d want %dx%d", got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestImageApplyRejectsUndecodableInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.png")
	testsupport.WriteBytes(t, input, []byte("not an image"))
	tpl := &template.Template{Key: "thumb", Parameters: map[string]any{"format": "png"}}
	_, err := applier.NewImage().Apply(context.Background(), tpl, input, filepath.Join(dir, "out.png"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if applier.NewImage().Accepts(&template.Template{Parameters: map[string]any{"format": "webp"}}, input) {
		t.Fatal("webp output is not encodable")
	}
}
