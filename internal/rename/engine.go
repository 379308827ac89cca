package rename

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"spool/internal/identification"
	"spool/internal/logging"
	"spool/internal/media/filename"
	"spool/internal/naming"
)

// minimum usable title length after trimming; anything shorter is treated as
// no title at all.
const minTitleLength = 2

var fallbackTitleRe = regexp.MustCompile(`^(.+?)\s*\(?\d{4}\)?`)

// Outcome is the final renaming decision for one file.
//
// Path is relative to the content root (Movies or TV Shows). When Renamable is
// false, Path is the original filename unchanged and the file must be routed
// to manual review, never into the normal tree. Matched=false with
// Renamable=true is a best-effort fallback name built only from filename
// heuristics.
type Outcome struct {
	Path      string
	Matched   bool
	Renamable bool
}

// MetadataSource is the resolver surface the engine depends on.
type MetadataSource interface {
	Movie(ctx context.Context, title string, year int) *identification.Metadata
	Series(ctx context.Context, title string, year int) *identification.Metadata
	EpisodeTitle(ctx context.Context, showID int64, season, episode int) string
}

// Engine resolves destination paths for movies and TV episodes.
type Engine struct {
	source MetadataSource
	logger *slog.Logger
}

// NewEngine builds an Engine around a metadata source.
func NewEngine(source MetadataSource, logger *slog.Logger) *Engine {
	return &Engine{source: source, logger: logging.WithComponent(logger, "rename")}
}

// ResolveMovie computes the destination for a movie file.
func (e *Engine) ResolveMovie(ctx context.Context, path string) Outcome {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	guessedTitle, guessedYear := filename.GuessTitleYear(stem)
	searchTitle := guessedTitle
	if searchTitle == "" {
		searchTitle = filename.Normalize(stem)
	}

	e.logger.Debug("movie lookup",
		logging.String("file", base),
		logging.String("search", searchTitle),
		logging.String("guessed_year", guessedYear))

	yearHint, _ := strconv.Atoi(guessedYear)
	meta := e.source.Movie(ctx, searchTitle, yearHint)
	if meta == nil {
		e.logger.Debug("no provider match", logging.String("file", base), logging.String("search", searchTitle))
		return e.movieFallback(base, stem, ext, guessedTitle, guessedYear)
	}

	title := naming.Sanitize(meta.Title)
	folder := naming.FolderName(title, meta.Year, meta.TMDBID)
	file := naming.MovieFilename(title, meta.Year, meta.TMDBID, ext)
	return Outcome{Path: filepath.Join(folder, file), Matched: true, Renamable: true}
}

func (e *Engine) movieFallback(base, stem, ext, guessedTitle, guessedYear string) Outcome {
	title := strings.TrimSpace(guessedTitle)
	if len(title) < minTitleLength {
		title = extractFallbackTitle(stem)
	}
	if len(strings.TrimSpace(title)) < minTitleLength {
		return Outcome{Path: base}
	}
	folder := naming.FolderName(title, guessedYear, 0)
	file := naming.MovieFilename(title, guessedYear, 0, ext)
	return Outcome{Path: filepath.Join(folder, file), Renamable: true}
}

// ResolveEpisode computes the destination for a TV episode, either
// season/episode-numbered or date-based depending on the parsed identity.
func (e *Engine) ResolveEpisode(ctx context.Context, path string, id filename.Identity) Outcome {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	e.logger.Debug("series lookup",
		logging.String("file", base),
		logging.String("search", id.SearchTitle),
		logging.String("air_date", id.AirDate))

	meta := e.source.Series(ctx, id.SearchTitle, 0)
	if meta == nil {
		e.logger.Debug("no provider match", logging.String("file", base), logging.String("search", id.SearchTitle))
		return e.episodeFallback(base, ext, id)
	}

	series := naming.Sanitize(meta.Title)

	if id.AirDate != "" {
		folderYear := meta.Year
		if id.AirYear > 0 {
			folderYear = strconv.Itoa(id.AirYear)
		}
		folder := filepath.Join(naming.FolderName(series, folderYear, meta.TMDBID), dateSeasonFolder(id.AirYear))
		file := naming.DatedFilename(series, id.AirDate, ext)
		return Outcome{Path: filepath.Join(folder, file), Matched: true, Renamable: true}
	}

	episodeTitle := e.episodeTitle(ctx, stem, meta.TMDBID, id.Season, id.Episode)
	folder := filepath.Join(naming.FolderName(series, meta.Year, meta.TMDBID), naming.SeasonFolder(id.Season))
	file := naming.EpisodeFilename(series, id.Season, id.Episode, episodeTitle, ext)
	return Outcome{Path: filepath.Join(folder, file), Matched: true, Renamable: true}
}

// episodeTitle picks the episode name by priority: a title embedded in the
// filename wins over the provider's episode detail, which wins over the bare
// token. Community-supplied filenames for long-running shows are usually more
// reliable than a provider's episode-numbering scheme.
func (e *Engine) episodeTitle(ctx context.Context, stem string, showID int64, season, episode int) string {
	if title := filename.EpisodeTitleFromStem(stem); title != "" {
		return naming.Sanitize(title)
	}
	if title := e.source.EpisodeTitle(ctx, showID, season, episode); title != "" {
		return naming.Sanitize(title)
	}
	return naming.EpisodeToken(season, episode)
}

func (e *Engine) episodeFallback(base, ext string, id filename.Identity) Outcome {
	guessedTitle, guessedYear := filename.GuessTitleYear(id.SearchTitle)
	title := strings.TrimSpace(guessedTitle)
	if len(title) < minTitleLength {
		return Outcome{Path: base}
	}

	if id.AirDate != "" {
		folderYear := ""
		if id.AirYear > 0 {
			folderYear = guessedYear
			if folderYear == "" {
				folderYear = strconv.Itoa(id.AirYear)
			}
		}
		folder := filepath.Join(naming.FolderName(title, folderYear, 0), dateSeasonFolder(id.AirYear))
		file := naming.DatedFilename(title, id.AirDate, ext)
		return Outcome{Path: filepath.Join(folder, file), Renamable: true}
	}

	folder := filepath.Join(naming.FolderName(title, guessedYear, 0), naming.SeasonFolder(id.Season))
	file := naming.EpisodeFilename(title, id.Season, id.Episode, "", ext)
	return Outcome{Path: filepath.Join(folder, file), Renamable: true}
}

// dateSeasonFolder renders the season segment for date-based episodes: the
// air year when known, the literal "Season 01" otherwise.
func dateSeasonFolder(airYear int) string {
	if airYear > 0 {
		return "Season " + strconv.Itoa(airYear)
	}
	return "Season 01"
}

// extractFallbackTitle strips a trailing year pattern from a stem when the
// primary title guess came up too short.
func extractFallbackTitle(stem string) string {
	if match := fallbackTitleRe.FindStringSubmatch(stem); match != nil {
		return filename.Normalize(match[1])
	}
	return filename.Normalize(stem)
}
