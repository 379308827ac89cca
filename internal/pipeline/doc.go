// Package pipeline coordinates a full run: sequential staging, transcoding
// through a bounded worker pool, and end-of-run tree reconciliation. Results
// flow from workers to a single aggregator goroutine that owns the summary
// counters.
package pipeline
