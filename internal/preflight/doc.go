// Package preflight provides startup readiness checks for the filesystem
// paths, external binaries, and credentials a pipeline run depends on. A
// failed check aborts the run before any file is touched.
package preflight
