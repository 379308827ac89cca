// Package tmdb provides a minimal client for The Movie Database API.
//
// It exposes exactly the lookups the resolver needs: movie search, TV search,
// TV series detail (for year-range computation), and episode detail (for
// episode titles). Every request carries a bounded timeout so a hung lookup
// can never stall a pipeline run.
package tmdb
