package identification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"spool/internal/identification/tmdb"
	"spool/internal/logging"
)

// Metadata is the outcome of a successful provider lookup. Year is a string
// because ongoing series render as an open range like "2005-".
type Metadata struct {
	TMDBID int64
	Title  string
	Year   string
}

// Resolver performs cached TMDB lookups. The cache is keyed by
// (kind, normalized title, year) and holds absent outcomes too; staging is
// single-threaded today, but the mutex keeps the cache safe if that ever
// changes.
type Resolver struct {
	searcher tmdb.Searcher
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]*Metadata
}

// NewResolver builds a Resolver around the given searcher.
func NewResolver(searcher tmdb.Searcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		searcher: searcher,
		logger:   logging.WithComponent(logger, "resolver"),
		cache:    make(map[string]*Metadata),
	}
}

// Movie looks up a movie by title and optional year hint. A nil result means
// no confident match; the caller must fall back to filename heuristics.
func (r *Resolver) Movie(ctx context.Context, title string, year int) *Metadata {
	key := cacheKey("movie", title, year)
	if meta, ok := r.cached(key); ok {
		return meta
	}

	meta := r.searchMovie(ctx, title, year)
	r.store(key, meta)
	return meta
}

// Series looks up a TV series by title and optional first-air-year hint. On a
// match, a second detail request computes the year range; if that request
// fails, the coarse first-air year from the search result is used instead.
func (r *Resolver) Series(ctx context.Context, title string, year int) *Metadata {
	key := cacheKey("tv", title, year)
	if meta, ok := r.cached(key); ok {
		return meta
	}

	meta := r.searchSeries(ctx, title, year)
	r.store(key, meta)
	return meta
}

// EpisodeTitle fetches the human name for an episode, or "" when the provider
// has none (not yet aired, specials, lookup failure).
func (r *Resolver) EpisodeTitle(ctx context.Context, showID int64, season, episode int) string {
	detail, err := r.searcher.GetEpisode(ctx, showID, season, episode)
	if err != nil {
		r.logger.Debug("episode lookup failed",
			logging.Int64("tmdb_id", showID),
			logging.Int("season", season),
			logging.Int("episode", episode),
			logging.Error(err))
		return ""
	}
	return strings.TrimSpace(detail.Name)
}

func (r *Resolver) searchMovie(ctx context.Context, title string, year int) *Metadata {
	resp, err := r.searcher.SearchMovie(ctx, title, year)
	if err != nil {
		r.logger.Debug("movie search failed", logging.String("title", title), logging.Error(err))
		return nil
	}
	if len(resp.Results) == 0 {
		return nil
	}

	// The provider's first-ranked result is trusted; the similarity score is
	// observability only.
	top := resp.Results[0]
	r.logMatch(title, top.Title, top.ID)
	return &Metadata{
		TMDBID: top.ID,
		Title:  top.Title,
		Year:   yearOf(top.ReleaseDate),
	}
}

func (r *Resolver) searchSeries(ctx context.Context, title string, year int) *Metadata {
	resp, err := r.searcher.SearchTV(ctx, title, year)
	if err != nil {
		r.logger.Debug("series search failed", logging.String("title", title), logging.Error(err))
		return nil
	}
	if len(resp.Results) == 0 {
		return nil
	}

	top := resp.Results[0]
	r.logMatch(title, top.Name, top.ID)

	details, err := r.searcher.GetTVDetails(ctx, top.ID)
	if err != nil {
		r.logger.Debug("series detail fetch failed, using first-air year",
			logging.Int64("tmdb_id", top.ID), logging.Error(err))
		return &Metadata{TMDBID: top.ID, Title: top.Name, Year: yearOf(top.FirstAirDate)}
	}

	return &Metadata{TMDBID: top.ID, Title: details.Name, Year: seriesYearRange(details)}
}

// seriesYearRange renders the canonical year representation for a series:
// an open range "YYYY-" while the show is ongoing or its end date is unknown,
// a single year when it started and ended in the same year, and a closed
// range "YYYY-YYYY" otherwise.
func seriesYearRange(details *tmdb.TVDetails) string {
	start := yearOf(details.FirstAirDate)
	if start == "Unknown" {
		return start
	}
	end := yearOf(details.LastAirDate)
	switch details.Status {
	case "Returning Series", "In Production", "Planned":
		return start + "-"
	}
	switch {
	case end == "Unknown":
		return start + "-"
	case start == end:
		return start
	default:
		return start + "-" + end
	}
}

func (r *Resolver) logMatch(searched, matched string, id int64) {
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	similarity := edlib.JaroWinklerSimilarity(strings.ToLower(searched), strings.ToLower(matched))
	r.logger.Debug("provider match",
		logging.String("searched", searched),
		logging.String("matched", matched),
		logging.Int64("tmdb_id", id),
		logging.Float64("similarity", float64(similarity)))
}

func (r *Resolver) cached(key string) (*Metadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.cache[key]
	return meta, ok
}

func (r *Resolver) store(key string, meta *Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = meta
}

func cacheKey(kind, title string, year int) string {
	return fmt.Sprintf("%s:%s:%d", kind, strings.ToLower(strings.TrimSpace(title)), year)
}

func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return "Unknown"
	}
	return date[:4]
}
