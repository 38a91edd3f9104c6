package worker

import (
	"mediacache/internal/applier"
	"mediacache/internal/config"
	"mediacache/internal/execx"
)

// Standard builds every worker with the production appliers.
func Standard(cfg *config.Config, deps Deps, runner execx.Runner) []Worker {
	ffmpeg := cfg.FFmpegBinary()
	return []Worker{
		NewVideo(deps,
			applier.NewDrapto(deps.Logger),
			applier.NewFFmpegVideo(ffmpeg, runner),
		),
		NewAudio(deps, applier.NewFFmpegAudio(ffmpeg, runner)),
		NewImage(deps, applier.NewImage()),
		NewPDF(deps),
		NewOriginal(deps),
	}
}
