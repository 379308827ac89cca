package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	Root   string `toml:"root"`
	LogDir string `toml:"log_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Transcode contains configuration for the encoding phase.
type Transcode struct {
	Workers          int    `toml:"workers"`
	Encoder          string `toml:"encoder"`
	FFmpeg           string `toml:"ffmpeg"`
	FFprobe          string `toml:"ffprobe"`
	SkipHEVC         bool   `toml:"skip_hevc"`
	DeleteSource     bool   `toml:"delete_source"`
	Overwrite        bool   `toml:"overwrite"`
	ForceAudioAAC    bool   `toml:"force_audio_aac"`
	IncludeSubtitles bool   `toml:"include_subtitles"`
}

// Behavior contains policy knobs for ambiguous pipeline decisions.
type Behavior struct {
	UnmatchedPolicy string `toml:"unmatched_policy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for Spool.
//
// Configuration sections by subsystem:
//   - Paths: pipeline root and log directory
//   - TMDB: metadata lookups via The Movie Database
//   - Transcode: worker count, encoder selection, and source handling
//   - Behavior: routing policy for files TMDB cannot identify
//   - Logging: log format, level, and optional mirror file
type Config struct {
	Paths     Paths     `toml:"paths"`
	TMDB      TMDB      `toml:"tmdb"`
	Transcode Transcode `toml:"transcode"`
	Behavior  Behavior  `toml:"behavior"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/spool/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/spool/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("spool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ApplyRoot overrides the pipeline root, expanding user paths. Used when the
// root is supplied as a command-line argument rather than via the config file.
func (c *Config) ApplyRoot(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	c.Paths.Root = expanded
	return nil
}

// QueueDir returns the input directory scanned for new files.
func (c *Config) QueueDir() string {
	return filepath.Join(c.Paths.Root, queueFolder)
}

// StagingDir returns the intermediate directory holding renamed files awaiting transcode.
func (c *Config) StagingDir() string {
	return filepath.Join(c.Paths.Root, stagingFolder)
}

// CompletedDir returns the final library output directory.
func (c *Config) CompletedDir() string {
	return filepath.Join(c.Paths.Root, completedFolder)
}

// ErrorsDir returns the landing zone for manual review and failed files.
func (c *Config) ErrorsDir() string {
	return filepath.Join(c.Paths.Root, errorsFolder)
}

// TranscodeWorkDir returns the scratch directory encoder output is written to
// before promotion into the completed tree.
func (c *Config) TranscodeWorkDir() string {
	return filepath.Join(c.StagingDir(), transcodeWorkFolder)
}

// EnsureDirectories creates required directories for a pipeline run. The queue
// directory is deliberately not created here; a missing queue is a startup
// error surfaced by preflight.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if strings.TrimSpace(c.Paths.Root) == "" {
		return nil
	}
	for _, dir := range []string{c.StagingDir(), c.CompletedDir(), c.ErrorsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for transcoding.
func (c *Config) FFmpegBinary() string {
	if c.Transcode.FFmpeg != "" {
		return c.Transcode.FFmpeg
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for stream inspection.
func (c *Config) FFprobeBinary() string {
	if c.Transcode.FFprobe != "" {
		return c.Transcode.FFprobe
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
