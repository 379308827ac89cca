package deps

import (
	"os"
	"path/filepath"
	"testing"

	"spool/internal/config"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	results := CheckBinaries([]Requirement{
		{Name: "Ghost", Command: "definitely-not-a-real-binary-xyz"},
	})
	if len(results) != 1 {
		t.Fatalf("expected one status, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("missing binary reported as available")
	}
	if results[0].Detail == "" {
		t.Fatal("missing binary needs a detail message")
	}
}

func TestCheckBinariesFindsExecutable(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-tool")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	results := CheckBinaries([]Requirement{{Name: "Fake", Command: "fake-tool"}})
	if !results[0].Available {
		t.Fatalf("expected available, got %+v", results[0])
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Unset"}})
	if results[0].Available {
		t.Fatal("empty command must not be available")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %q", results[0].Detail)
	}
}

func TestRequirementsCoverEncoderAndProber(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected two requirements, got %d", len(reqs))
	}
	names := map[string]bool{}
	for _, req := range reqs {
		names[req.Name] = true
		if req.Optional {
			t.Fatalf("%s must be mandatory", req.Name)
		}
	}
	if !names["FFmpeg"] || !names["FFprobe"] {
		t.Fatalf("unexpected requirement names: %v", names)
	}
}
