// Package encoding drives the transcode phase: it plans ffmpeg invocations
// from probed stream metadata, runs the encoder with incremental progress
// reporting, and routes each staged file to the completed tree on success or
// the errors tree on failure.
package encoding
