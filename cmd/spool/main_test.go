package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/config"
	"spool/internal/staging"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.toml")
	content := strings.Join([]string{
		"[paths]",
		`root = "` + filepath.Join(dir, "library") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"",
		"[tmdb]",
		`api_key = "abcdef123456"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigInitRefusesExisting(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# keep\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runCommand(t, "config", "init", "--path", target)
	if err == nil {
		t.Fatal("expected error for existing config without --overwrite")
	}
	if !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	path := writeTestConfig(t)

	out, err := runCommand(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "abcdef123456") {
		t.Fatal("full API key must not be printed")
	}
	if !strings.Contains(out, "abcd****") {
		t.Fatalf("expected masked key in output: %q", out)
	}
	if !strings.Contains(out, "behavior.unmatched_policy") {
		t.Fatalf("expected settings table in output: %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "spool ") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunRequiresRoot(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.toml")
	content := strings.Join([]string{
		"[paths]",
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"",
		"[tmdb]",
		`api_key = "k"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := runCommand(t, "--config", path, "run")
	if err == nil {
		t.Fatal("run without a root must fail")
	}
	if !strings.Contains(err.Error(), "root is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunPreflightFailureExitsCode2(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	path := writeTestConfig(t)
	// Root exists but holds no queue directory, so preflight must fail.
	cfgDir := filepath.Dir(path)
	if err := os.MkdirAll(filepath.Join(cfgDir, "library"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", path, "run")
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	coded, ok := err.(*exitCodeError)
	if !ok {
		t.Fatalf("expected exitCodeError, got %T: %v", err, err)
	}
	if coded.code != 2 {
		t.Fatalf("expected exit code 2, got %d", coded.code)
	}
	if !strings.Contains(out, "Queue directory") {
		t.Fatalf("expected check table in output: %q", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	if !strings.Contains(out, "only") {
		t.Fatalf("missing cell in output: %q", out)
	}
	if !strings.Contains(out, "A") || !strings.Contains(out, "B") {
		t.Fatalf("missing headers in output: %q", out)
	}
}

func TestResultRowsRelativizePaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Root = filepath.Join(string(filepath.Separator), "library")

	rows := resultRows(&cfg, []staging.Result{
		{
			Status: staging.StatusOK,
			Source: filepath.Join(cfg.Paths.Root, "queue", "Movies", "a.mkv"),
			Target: filepath.Join(cfg.Paths.Root, "completed", "Movies", "A (2020).mp4"),
		},
		{Status: staging.StatusSkip, Source: "relative/path.mkv"},
	})

	if rows[0][1] != filepath.Join("queue", "Movies", "a.mkv") {
		t.Fatalf("source not relativized: %q", rows[0][1])
	}
	if rows[0][2] != filepath.Join("completed", "Movies", "A (2020).mp4") {
		t.Fatalf("target not relativized: %q", rows[0][2])
	}
	if rows[1][1] != "relative/path.mkv" {
		t.Fatalf("relative path must pass through: %q", rows[1][1])
	}
}

func TestMaskKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "(unset)"},
		{"ab", "****"},
		{"abcdefgh", "abcd****"},
	}
	for _, tc := range cases {
		if got := maskKey(tc.in); got != tc.want {
			t.Errorf("maskKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
