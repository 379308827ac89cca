package config

const (
	defaultLogDir       = "~/.local/share/spool/logs"
	defaultTMDBLanguage = "en-US"
	defaultTMDBBaseURL  = "https://api.themoviedb.org/3"
	defaultLogFormat    = "auto"
	defaultLogLevel     = "info"
	defaultWorkers      = 4
)

// Canonical subfolder names under the pipeline root.
const (
	queueFolder         = "queue"
	stagingFolder       = "staging"
	completedFolder     = "completed"
	errorsFolder        = "errors"
	transcodeWorkFolder = "transcoding"
)

// Content subdirectories inside the queue, completed, and errors trees.
const (
	MoviesFolder  = "Movies"
	TVShowsFolder = "TV Shows"
)

// ContentFolders lists the canonical content subdirectories in library order.
func ContentFolders() []string {
	return []string{MoviesFolder, TVShowsFolder}
}

// Unmatched-file routing policies. Fallback stages unidentified files under a
// name guessed from the filename; review sends them straight to the errors tree.
const (
	PolicyFallback = "fallback"
	PolicyReview   = "review"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		TMDB: TMDB{
			Language: defaultTMDBLanguage,
			BaseURL:  defaultTMDBBaseURL,
		},
		Transcode: Transcode{
			Workers:      defaultWorkers,
			SkipHEVC:     true,
			DeleteSource: true,
			Overwrite:    true,
		},
		Behavior: Behavior{
			UnmatchedPolicy: PolicyFallback,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
