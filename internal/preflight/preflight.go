package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"spool/internal/config"
	"spool/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every startup check for the given config. Callers abort
// before any file processing when a result has Passed=false.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Pipeline root", cfg.Paths.Root),
		CheckQueueDirectory(cfg.QueueDir()),
		CheckAPIKey(cfg.TMDB.APIKey),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: binaryDetail(status),
		})
	}
	return results
}

// AllPassed reports whether every check succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckDirectoryAccess verifies that the directory exists and is readable,
// writable, and traversable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckQueueDirectory verifies the queue exists. It is never auto-created; a
// missing queue usually means the root points at the wrong tree.
func CheckQueueDirectory(path string) Result {
	const name = "Queue directory"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckAPIKey verifies a TMDB credential is configured. Validity is only
// provable with a network call, which preflight deliberately avoids.
func CheckAPIKey(key string) Result {
	const name = "TMDB API key"
	if key == "" {
		return Result{Name: name, Detail: "missing (set tmdb.api_key or TMDB_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

func binaryDetail(status deps.Status) string {
	if status.Available {
		return status.Command
	}
	return status.Detail
}
