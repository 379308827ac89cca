// Package services defines shared error-handling utilities consumed by the
// pipeline phases and external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (validation vs external tool vs transient) consistent
//     across the staging and transcode phases.
//   - Startup classification so the CLI can tell configuration problems,
//     which abort the run, apart from per-file failures, which never do.
//
// Use these helpers when wiring new phase logic so operational behaviour
// stays uniform across the pipeline.
package services
