// Package applier renders a template against an input file.
//
// Video and audio appliers drive ffmpeg through an execx.Runner; the video
// applier can also hand the encode to the drapto AV1 library when the
// template sets encoder = "drapto". The image applier decodes, scales and
// re-encodes in process.
package applier
