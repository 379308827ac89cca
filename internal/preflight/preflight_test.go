package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"spool/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryAccess("Pipeline root", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s: %+v", dir, result)
	}

	missing := CheckDirectoryAccess("Pipeline root", filepath.Join(dir, "nope"))
	if missing.Passed {
		t.Fatal("missing directory must fail")
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	notDir := CheckDirectoryAccess("Pipeline root", file)
	if notDir.Passed {
		t.Fatal("regular file must fail the directory check")
	}
}

func TestCheckQueueDirectory(t *testing.T) {
	dir := t.TempDir()
	if result := CheckQueueDirectory(dir); !result.Passed {
		t.Fatalf("expected pass: %+v", result)
	}
	if result := CheckQueueDirectory(filepath.Join(dir, "queue")); result.Passed {
		t.Fatal("missing queue must fail")
	}
}

func TestCheckAPIKey(t *testing.T) {
	if result := CheckAPIKey(""); result.Passed {
		t.Fatal("empty key must fail")
	}
	if result := CheckAPIKey("abc123"); !result.Passed {
		t.Fatalf("configured key must pass: %+v", result)
	}
}

func TestRunAllAggregates(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	cfg.TMDB.APIKey = "key"
	if err := os.MkdirAll(cfg.QueueDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(&cfg)
	// Root, queue, API key, ffmpeg, ffprobe.
	if len(results) != 5 {
		t.Fatalf("expected 5 checks, got %d: %+v", len(results), results)
	}

	if AllPassed(results[:3]) != true {
		t.Fatalf("filesystem and credential checks should pass: %+v", results[:3])
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed([]Result{{Passed: true}, {Passed: true}}) {
		t.Fatal("expected true")
	}
	if AllPassed([]Result{{Passed: true}, {Passed: false}}) {
		t.Fatal("expected false")
	}
	if !AllPassed(nil) {
		t.Fatal("no checks means nothing failed")
	}
}
