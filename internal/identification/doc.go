// Package identification resolves guessed titles against TMDB.
//
// The Resolver wraps the TMDB client with an in-process cache and the
// degradation policy the pipeline depends on: every provider failure —
// timeout, non-200, malformed body, zero results — collapses to an absent
// result so callers always take their fallback path. Absent results are
// cached alongside hits so a title the provider has already reported as
// unknown is never queried twice in one run.
package identification
