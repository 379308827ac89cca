package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"spool/internal/config"
)

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "spool", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Paths.Root != "" {
		t.Fatalf("expected empty root by default, got %q", cfg.Paths.Root)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != config.Default().TMDB.BaseURL {
		t.Fatalf("unexpected TMDB base url: %q", cfg.TMDB.BaseURL)
	}
	if cfg.Transcode.Workers != 4 {
		t.Fatalf("expected default worker count 4, got %d", cfg.Transcode.Workers)
	}
	if !cfg.Transcode.SkipHEVC {
		t.Fatal("expected skip_hevc enabled by default")
	}
	if !cfg.Transcode.DeleteSource {
		t.Fatal("expected delete_source enabled by default")
	}
	if cfg.Transcode.ForceAudioAAC {
		t.Fatal("expected force_audio_aac disabled by default")
	}
	if cfg.Behavior.UnmatchedPolicy != config.PolicyFallback {
		t.Fatalf("unexpected unmatched policy: %q", cfg.Behavior.UnmatchedPolicy)
	}
	if cfg.Logging.Format != "auto" {
		t.Fatalf("unexpected logging format: %q", cfg.Logging.Format)
	}
}

func TestDirAccessorsJoinRoot(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	root := filepath.Join(tempHome, "media")
	if err := cfg.ApplyRoot(root); err != nil {
		t.Fatalf("ApplyRoot failed: %v", err)
	}

	if got, want := cfg.QueueDir(), filepath.Join(root, "queue"); got != want {
		t.Fatalf("QueueDir: got %q want %q", got, want)
	}
	if got, want := cfg.StagingDir(), filepath.Join(root, "staging"); got != want {
		t.Fatalf("StagingDir: got %q want %q", got, want)
	}
	if got, want := cfg.CompletedDir(), filepath.Join(root, "completed"); got != want {
		t.Fatalf("CompletedDir: got %q want %q", got, want)
	}
	if got, want := cfg.ErrorsDir(), filepath.Join(root, "errors"); got != want {
		t.Fatalf("ErrorsDir: got %q want %q", got, want)
	}
	if !strings.HasPrefix(cfg.TranscodeWorkDir(), cfg.StagingDir()) {
		t.Fatalf("expected work dir under staging, got %q", cfg.TranscodeWorkDir())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.StagingDir(), cfg.CompletedDir(), cfg.ErrorsDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.QueueDir()); !os.IsNotExist(err) {
		t.Fatalf("expected queue dir to be left alone, stat err: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "spool.toml")

	type payload struct {
		TMDB struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"tmdb"`
		Transcode struct {
			Workers int    `toml:"workers"`
			Encoder string `toml:"encoder"`
		} `toml:"transcode"`
		Behavior struct {
			UnmatchedPolicy string `toml:"unmatched_policy"`
		} `toml:"behavior"`
	}
	custom := payload{}
	custom.TMDB.APIKey = "abc123"
	custom.TMDB.BaseURL = "https://example.com/tmdb"
	custom.Transcode.Workers = 2
	custom.Transcode.Encoder = "hevc_nvenc"
	custom.Behavior.UnmatchedPolicy = "REVIEW"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.TMDB.APIKey != "abc123" {
		t.Fatalf("expected TMDB key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != "https://example.com/tmdb" {
		t.Fatalf("expected TMDB base url override, got %q", cfg.TMDB.BaseURL)
	}
	if cfg.Transcode.Workers != 2 {
		t.Fatalf("expected worker override 2, got %d", cfg.Transcode.Workers)
	}
	if cfg.Transcode.Encoder != "hevc_nvenc" {
		t.Fatalf("expected encoder override, got %q", cfg.Transcode.Encoder)
	}
	if cfg.Behavior.UnmatchedPolicy != config.PolicyReview {
		t.Fatalf("expected normalized review policy, got %q", cfg.Behavior.UnmatchedPolicy)
	}
}

func TestFFBinariesConfigurable(t *testing.T) {
	cfg := config.Default()
	if got := cfg.FFmpegBinary(); got != "ffmpeg" {
		t.Fatalf("default ffmpeg binary: got %q want %q", got, "ffmpeg")
	}
	if got := cfg.FFprobeBinary(); got != "ffprobe" {
		t.Fatalf("default ffprobe binary: got %q want %q", got, "ffprobe")
	}

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "spool.toml")
	type payload struct {
		Transcode struct {
			FFmpeg  string `toml:"ffmpeg"`
			FFprobe string `toml:"ffprobe"`
		} `toml:"transcode"`
	}
	custom := payload{}
	custom.Transcode.FFmpeg = "/opt/ffmpeg/bin/ffmpeg"
	custom.Transcode.FFprobe = "  /opt/ffmpeg/bin/ffprobe  "
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("TMDB_API_KEY", "test-key")
	loaded, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := loaded.FFmpegBinary(); got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg binary override: got %q", got)
	}
	if got := loaded.FFprobeBinary(); got != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("ffprobe binary override: got %q", got)
	}
}

func TestEnvVarOverridesConfigFileForTMDBKey(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "spool.toml")

	type payload struct {
		TMDB struct {
			APIKey string `toml:"api_key"`
		} `toml:"tmdb"`
	}
	custom := payload{}
	custom.TMDB.APIKey = "file-tmdb"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("TMDB_API_KEY", "env-tmdb")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "env-tmdb" {
		t.Errorf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_tmdb_api_key_here") {
		t.Fatalf("sample config missing placeholder TMDB key: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Transcode.Workers != 4 {
		t.Fatalf("expected sample workers 4, got %d", cfg.Transcode.Workers)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing TMDB API key")
	}

	cfg = config.Default()
	cfg.TMDB.APIKey = "key"
	cfg.Behavior.UnmatchedPolicy = "sideways"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown unmatched policy")
	}

	cfg = config.Default()
	cfg.TMDB.APIKey = "key"
	cfg.Transcode.Workers = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative worker count")
	}
}
