package naming

import (
	"fmt"
	"regexp"
	"strings"
)

// tmdbTagRe matches the provider tag embedded in folder and file names. Its
// presence marks a file as already processed.
var tmdbTagRe = regexp.MustCompile(`tmdb-\d+`)

var invalidCharReplacer = strings.NewReplacer(
	"<", "", ">", "", ":", "", "\"", "", "/", "", "\\", "", "|", "", "?", "", "*", "",
)

// Sanitize removes filesystem-invalid characters from a name and trims
// surrounding whitespace.
func Sanitize(name string) string {
	return strings.TrimSpace(invalidCharReplacer.Replace(name))
}

// Tag renders the provider identifier tag, e.g. "{tmdb-11145}".
func Tag(tmdbID int64) string {
	return fmt.Sprintf("{tmdb-%d}", tmdbID)
}

// HasTag reports whether a name already carries a provider tag.
func HasTag(name string) bool {
	return tmdbTagRe.MatchString(name)
}

// FolderName builds a canonical folder name for a title.
//
// The year is used verbatim so open ranges like "2005-" survive; callers must
// supply a non-empty year whenever passing a provider id, or the output will
// contain literal empty parentheses.
func FolderName(title, year string, tmdbID int64) string {
	if tmdbID > 0 {
		return fmt.Sprintf("%s (%s) %s", title, year, Tag(tmdbID))
	}
	if year != "" {
		return fmt.Sprintf("%s (%s)", title, year)
	}
	return title
}

// MovieFilename builds a canonical movie filename. With a provider id the tag
// is embedded; otherwise the fallback grammar applies: "Title (Year).ext" when
// a year is known, else "Title.ext".
func MovieFilename(title, year string, tmdbID int64, ext string) string {
	switch {
	case tmdbID > 0:
		return fmt.Sprintf("%s (%s) %s%s", title, year, Tag(tmdbID), ext)
	case year != "":
		return fmt.Sprintf("%s (%s)%s", title, year, ext)
	default:
		return title + ext
	}
}

// SeasonFolder renders the "Season NN" folder segment.
func SeasonFolder(season int) string {
	return fmt.Sprintf("Season %02d", season)
}

// EpisodeToken renders the canonical sNNeMM token.
func EpisodeToken(season, episode int) string {
	return fmt.Sprintf("s%02de%02d", season, episode)
}

// EpisodeFilename builds an episode-numbered filename. The episode title is
// omitted when it case-insensitively equals the token itself, avoiding
// "Show - s01e01 - s01e01" duplication.
func EpisodeFilename(series string, season, episode int, episodeTitle, ext string) string {
	token := EpisodeToken(season, episode)
	title := strings.TrimSpace(episodeTitle)
	if title == "" || strings.EqualFold(title, token) {
		return fmt.Sprintf("%s - %s%s", series, token, ext)
	}
	return fmt.Sprintf("%s - %s - %s%s", series, token, title, ext)
}

// DatedFilename builds a date-based episode filename, e.g.
// "The Daily Show - 2023-04-17.mkv".
func DatedFilename(series, date, ext string) string {
	return fmt.Sprintf("%s - %s%s", series, date, ext)
}
