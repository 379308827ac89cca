package filename

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	seasonEpisodeRe = regexp.MustCompile(`[Ss](\d{1,2})[Ee](\d{1,2})`)
	airDateRe       = regexp.MustCompile(`(20\d{2}|19\d{2})[-_. ](0[1-9]|1[0-2])[-_. ](0[1-9]|[12]\d|3[01])`)
	parenYearRe     = regexp.MustCompile(`\((19|20)\d{2}\)`)
	anyParenYearRe  = regexp.MustCompile(`\(\d{4}\)`)
	bareYearRe      = regexp.MustCompile(`(19|20)\d{2}`)
	whitespaceRe    = regexp.MustCompile(`\s+`)

	// Release-group vocabulary stripped from guessed titles. Whole words only;
	// anything this misses just stays in the fallback title.
	releaseTagRe = regexp.MustCompile(`(?i)\b(480p|720p|1080p|2160p|4k|hdr|hdr10\+?|dv|web[- ]?dl|bluray|webrip|x264|x265|h\.264|h\.265|ddp?\d?\.?\d?|atmos|remux)\b`)

	episodeTitleRe = regexp.MustCompile(`[Ss]\d{1,2}[Ee]\d{1,2}\s*-\s*(.+)$`)

	titleCaser = cases.Title(language.English)
)

// Kind classifies a file as a movie or a TV episode.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
)

// Identity is the parsed guess about a file's subject, derived once from the
// filename stem and consumed by the renaming engine.
type Identity struct {
	Kind        Kind
	RawStem     string
	SearchTitle string

	// Season/Episode are valid only when HasEpisode is set.
	Season     int
	Episode    int
	HasEpisode bool

	// AirDate (YYYY-MM-DD) identifies date-based episodes; mutually
	// exclusive with HasEpisode, which always takes precedence.
	AirDate string
	AirYear int

	GuessedTitle string
	GuessedYear  string
}

// Identify derives an Identity from a filename stem. A season/episode token
// classifies the file as a TV episode; failing that, a date token does; failing
// both, the file is treated as a movie.
func Identify(stem string) Identity {
	id := Identity{RawStem: stem}

	if season, episode, ok := ParseSeasonEpisode(stem); ok {
		id.Kind = KindEpisode
		id.Season = season
		id.Episode = episode
		id.HasEpisode = true
		id.SearchTitle = CleanSearchTitle(stem, "")
		return id
	}

	if date, year, ok := ParseAirDate(stem); ok {
		id.Kind = KindEpisode
		id.AirDate = date
		id.AirYear = year
		id.SearchTitle = CleanSearchTitle(stem, date)
		return id
	}

	id.Kind = KindMovie
	title, year := GuessTitleYear(stem)
	id.GuessedTitle = title
	id.GuessedYear = year
	if title != "" {
		id.SearchTitle = title
	} else {
		id.SearchTitle = Normalize(stem)
	}
	return id
}

// ParseSeasonEpisode extracts season and episode numbers from an sNNeMM token.
// The first match wins; multi-episode stems like S01E01E02 yield only the
// first pair.
func ParseSeasonEpisode(stem string) (season, episode int, ok bool) {
	match := seasonEpisodeRe.FindStringSubmatch(stem)
	if match == nil {
		return 0, 0, false
	}
	season, _ = strconv.Atoi(match[1])
	episode, _ = strconv.Atoi(match[2])
	return season, episode, true
}

// ParseAirDate finds a broadcast-date token and normalizes it to YYYY-MM-DD.
// Month and day are range-validated by the pattern itself.
func ParseAirDate(stem string) (date string, year int, ok bool) {
	match := airDateRe.FindStringSubmatch(stem)
	if match == nil {
		return "", 0, false
	}
	year, _ = strconv.Atoi(match[1])
	return fmt.Sprintf("%s-%s-%s", match[1], match[2], match[3]), year, true
}

// Normalize replaces underscore and dot separators with spaces and collapses
// runs of whitespace.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "_", " ")
	text = strings.ReplaceAll(text, ".", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// GuessTitleYear makes a best-effort extraction of a human title and year from
// a noisy stem. A parenthesized year wins; otherwise the last bare 19xx/20xx
// token is taken as the year and everything before it as the title. Release
// tags are stripped from the tail and all-caps titles are converted to title
// case so library folders don't shout.
func GuessTitleYear(stem string) (title, year string) {
	s := Normalize(stem)

	titlePart := s
	if loc := parenYearRe.FindStringIndex(s); loc != nil {
		year = bareYearRe.FindString(s[loc[0]:loc[1]])
		titlePart = strings.TrimSpace(s[:loc[0]])
	} else if locs := bareYearRe.FindAllStringIndex(s, -1); locs != nil {
		last := locs[len(locs)-1]
		year = s[last[0]:last[1]]
		titlePart = strings.TrimSpace(s[:last[0]])
	}

	// "hdr10+" loses its word boundary at the "+", so the regex strips only
	// "hdr10" and the sign survives; the cutset picks it up.
	titlePart = releaseTagRe.ReplaceAllString(titlePart, "")
	titlePart = strings.Trim(whitespaceRe.ReplaceAllString(titlePart, " "), " -_()+")
	if isAllUpper(titlePart) {
		titlePart = titleCaser.String(titlePart)
	}
	return strings.TrimSpace(titlePart), year
}

// EpisodeTitleFromStem extracts a human episode title embedded in the stem.
// The segment after the season/episode token is preferred; otherwise the last
// " - " segment qualifies provided it is not itself a season/episode token.
// Returns "" when no segment qualifies.
func EpisodeTitleFromStem(stem string) string {
	s := Normalize(stem)

	if match := episodeTitleRe.FindStringSubmatch(s); match != nil {
		if candidate := strings.Trim(match[1], " -_"); candidate != "" {
			return candidate
		}
	}

	parts := strings.Split(s, " - ")
	cleaned := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) >= 2 {
		candidate := cleaned[len(cleaned)-1]
		if !seasonEpisodeRe.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}

// CleanSearchTitle reduces a stem to the base title used for provider search.
// Season/episode tokens, trailing " - " segments, parenthesized years, and the
// detected date literal (tolerant of -, _, ., or space separators) are all
// noise that would pollute search relevance.
func CleanSearchTitle(stem, date string) string {
	s := stem
	if loc := seasonEpisodeRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	if idx := strings.Index(s, " - "); idx >= 0 {
		s = s[:idx]
	}
	s = anyParenYearRe.ReplaceAllString(s, "")
	if date != "" {
		pattern := strings.ReplaceAll(regexp.QuoteMeta(date), `-`, `[-_. ]`)
		if re, err := regexp.Compile(pattern); err == nil {
			s = re.ReplaceAllString(s, "")
		}
	}
	return Normalize(s)
}

func isAllUpper(s string) bool {
	return s != "" && s == strings.ToUpper(s) && s != strings.ToLower(s)
}
