// Package ffmpeg builds and runs the single transcode command used by the
// pipeline and turns ffmpeg failures into typed, classified errors.
//
// Every conversion uses the same fixed parameter set; only the video encoder
// changes with the configured mode (libx265 on CPU, hevc_nvenc on NVIDIA).
// Output always lands next to the input as <stem>.converted.mp4.
//
// Files:
//   - profile.go: Profile and the per-mode encoder selection.
//   - builder.go: Build assembles the argument vector.
//   - executor.go: Execute runs ffmpeg and captures stderr.
//   - errors.go: stderr classification and ConversionError.
//   - encoders.go: parsing of `ffmpeg -encoders` for preflight checks.
//   - transcoder.go: Transcoder.Convert ties the above together.
package ffmpeg
