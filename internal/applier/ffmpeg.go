package applier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mediacache/internal/execx"
	"mediacache/internal/services"
	"mediacache/internal/template"
)

// DefaultVideoFormat is used when a video template does not name a format.
const DefaultVideoFormat = "flv"

// DefaultAudioFormat is used when an audio template does not name a format.
const DefaultAudioFormat = "mp3"

var muxers = map[string]string{
	"mkv":  "matroska",
	"ogv":  "ogg",
	"oga":  "ogg",
	"m4a":  "ipod",
	"mpeg": "mpeg",
	"mpg":  "mpeg",
}

func muxer(format string) string {
	if name, ok := muxers[format]; ok {
		return name
	}
	return format
}

// FFmpegVideo transcodes video with ffmpeg.
type FFmpegVideo struct {
	binary string
	runner execx.Runner
}

// NewFFmpegVideo constructs the ffmpeg video applier.
func NewFFmpegVideo(binary string, runner execx.Runner) *FFmpegVideo {
	if binary == "" {
		binary = "ffmpeg"
	}
	if runner == nil {
		runner = execx.NewCommandRunner()
	}
	return &FFmpegVideo{binary: binary, runner: runner}
}

// Name identifies the applier in logs.
func (a *FFmpegVideo) Name() string { return "ffmpeg-video" }

// Accepts handles every template that does not ask for another encoder.
func (a *FFmpegVideo) Accepts(tpl *template.Template, input string) bool {
	switch strings.ToLower(tpl.StringParameter("encoder", "ffmpeg")) {
	case "", "ffmpeg":
		return readable(input)
	default:
		return false
	}
}

// Apply runs ffmpeg with arguments derived from the template.
func (a *FFmpegVideo) Apply(ctx context.Context, tpl *template.Template, input, output string) error {
	args := VideoArgs(tpl, input, output)
	if _, err := a.runner.Run(ctx, a.binary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "transcode video", tpl.Key, err)
	}
	return nil
}

// VideoArgs builds the ffmpeg command line for a video template. Recognised
// parameters: format (or video_format), width, height, video_codec, video_bitrate, crf,
// frame_rate, audio (bool), audio_codec, audio_bitrate, audio_channels,
// audio_sample_rate, start, duration.
func VideoArgs(tpl *template.Template, input, output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	args = append(args, seekArgs(tpl)...)
	args = append(args, "-i", input)

	if scale := scaleFilter(tpl.IntParameter("width", 0), tpl.IntParameter("height", 0)); scale != "" {
		args = append(args, "-vf", scale)
	}
	if codec := tpl.StringParameter("video_codec", ""); codec != "" {
		args = append(args, "-c:v", codec)
	}
	if bitrate := tpl.StringParameter("video_bitrate", ""); bitrate != "" {
		args = append(args, "-b:v", bitrate)
	}
	if crf := tpl.IntParameter("crf", 0); crf > 0 {
		args = append(args, "-crf", strconv.Itoa(crf))
	}
	if rate := tpl.StringParameter("frame_rate", ""); rate != "" {
		args = append(args, "-r", rate)
	}
	if tpl.BoolParameter("audio", true) {
		args = append(args, audioArgs(tpl)...)
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-f", muxer(VideoFormat(tpl)), output)
	return args
}

// VideoFormat returns the target container of a video template, read from
// format or the older video_format parameter. Drapto templates default to mkv.
func VideoFormat(tpl *template.Template) string {
	def := DefaultVideoFormat
	if usesDrapto(tpl) {
		def = DraptoFormat
	}
	format := tpl.StringParameter("format", tpl.StringParameter("video_format", def))
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

// AudioFormat returns the target container of an audio template.
func AudioFormat(tpl *template.Template) string {
	format := tpl.StringParameter("format", tpl.StringParameter("audio_format", DefaultAudioFormat))
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

func seekArgs(tpl *template.Template) []string {
	var args []string
	if start := tpl.StringParameter("start", ""); start != "" {
		args = append(args, "-ss", start)
	}
	if duration := tpl.StringParameter("duration", ""); duration != "" {
		args = append(args, "-t", duration)
	}
	return args
}

func audioArgs(tpl *template.Template) []string {
	var args []string
	if codec := tpl.StringParameter("audio_codec", ""); codec != "" {
		args = append(args, "-c:a", codec)
	}
	if bitrate := tpl.StringParameter("audio_bitrate", ""); bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	if channels := tpl.IntParameter("audio_channels", 0); channels > 0 {
		args = append(args, "-ac", strconv.Itoa(channels))
	}
	if rate := tpl.IntParameter("audio_sample_rate", 0); rate > 0 {
		args = append(args, "-ar", strconv.Itoa(rate))
	}
	return args
}

// scaleFilter keeps the aspect ratio when only one side is given; -2 keeps
// the computed side even as most encoders require.
func scaleFilter(width, height int) string {
	switch {
	case width > 0 && height > 0:
		return fmt.Sprintf("scale=%d:%d", width, height)
	case width > 0:
		return fmt.Sprintf("scale=%d:-2", width)
	case height > 0:
		return fmt.Sprintf("scale=-2:%d", height)
	default:
		return ""
	}
}

// FFmpegAudio transcodes audio with ffmpeg.
type FFmpegAudio struct {
	binary string
	runner execx.Runner
}

// NewFFmpegAudio constructs the ffmpeg audio applier.
func NewFFmpegAudio(binary string, runner execx.Runner) *FFmpegAudio {
	if binary == "" {
		binary = "ffmpeg"
	}
	if runner == nil {
		runner = execx.NewCommandRunner()
	}
	return &FFmpegAudio{binary: binary, runner: runner}
}

// Name identifies the applier in logs.
func (a *FFmpegAudio) Name() string { return "ffmpeg-audio" }

// Accepts reports whether input can be read.
func (a *FFmpegAudio) Accepts(_ *template.Template, input string) bool {
	return readable(input)
}

// Apply runs ffmpeg with arguments derived from the template.
func (a *FFmpegAudio) Apply(ctx context.Context, tpl *template.Template, input, output string) error {
	if _, err := a.runner.Run(ctx, a.binary, AudioArgs(tpl, input, output)...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "transcode audio", tpl.Key, err)
	}
	return nil
}

// AudioArgs builds the ffmpeg command line for an audio template.
func AudioArgs(tpl *template.Template, input, output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	args = append(args, seekArgs(tpl)...)
	args = append(args, "-i", input, "-vn")
	args = append(args, audioArgs(tpl)...)
	args = append(args, "-f", muxer(AudioFormat(tpl)), output)
	return args
}

var (
	_ Applier = (*FFmpegVideo)(nil)
	_ Applier = (*FFmpegAudio)(nil)
)
