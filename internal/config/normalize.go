package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeTranscode()
	c.normalizeBehavior()
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.Root = strings.TrimSpace(c.Paths.Root)
	if c.Paths.Root != "" {
		if c.Paths.Root, err = expandPath(c.Paths.Root); err != nil {
			return fmt.Errorf("paths.root: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if value, ok := os.LookupEnv("TMDB_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.TMDB.APIKey = strings.TrimSpace(value)
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
}

func (c *Config) normalizeTranscode() {
	if c.Transcode.Workers <= 0 {
		c.Transcode.Workers = defaultWorkers
	}
	c.Transcode.Encoder = strings.TrimSpace(c.Transcode.Encoder)
	c.Transcode.FFmpeg = strings.TrimSpace(c.Transcode.FFmpeg)
	c.Transcode.FFprobe = strings.TrimSpace(c.Transcode.FFprobe)
}

func (c *Config) normalizeBehavior() {
	c.Behavior.UnmatchedPolicy = strings.ToLower(strings.TrimSpace(c.Behavior.UnmatchedPolicy))
	if c.Behavior.UnmatchedPolicy == "" {
		c.Behavior.UnmatchedPolicy = PolicyFallback
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "auto":
		c.Logging.Format = "auto"
	case "console", "json":
	default:
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	if c.Logging.File == "" {
		if value, ok := os.LookupEnv("SPOOL_LOG_FILE"); ok {
			c.Logging.File = strings.TrimSpace(value)
		}
	}
	if c.Logging.File != "" {
		expanded, err := expandPath(c.Logging.File)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}
