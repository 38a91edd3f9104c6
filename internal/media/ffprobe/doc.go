// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//   - Prober: the inspection seam workers depend on
//
// Command implements Prober by running the ffprobe binary through an
// execx.Runner; helper methods on Result expose stream counts, the first
// video stream's dimensions, and duration parsing.
package ffprobe
