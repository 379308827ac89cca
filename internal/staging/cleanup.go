package staging

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"spool/internal/config"
	"spool/internal/fileutil"
	"spool/internal/logging"
)

// CleanupError pairs a path with the error that prevented its reconciliation.
type CleanupError struct {
	Path  string
	Error error
}

// CleanupResult reports the outcome of end-of-run reconciliation.
type CleanupResult struct {
	Swept  []string
	Errors []CleanupError
}

// Cleanup reconciles the working trees after the worker pool drains. Any file
// still inside the staging tree is stray (an interrupted or crashed transcode,
// or a retained source) and is parked under errors/ at its relative path
// before the staging tree is reset. Leftover queue files are parked the same
// way and the queue is reset to its canonical content subfolders.
func Cleanup(cfg *config.Config, logger *slog.Logger) CleanupResult {
	log := logging.WithComponent(logger, "cleanup")
	result := CleanupResult{}

	// Partial encoder output is garbage, not user data; drop it before the
	// sweep so it never lands in errors.
	if err := os.RemoveAll(cfg.TranscodeWorkDir()); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: cfg.TranscodeWorkDir(), Error: err})
	}

	sweepTree(cfg.StagingDir(), cfg.ErrorsDir(), log, &result)
	if err := os.RemoveAll(cfg.StagingDir()); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: cfg.StagingDir(), Error: err})
	}
	if err := os.MkdirAll(cfg.StagingDir(), 0o755); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: cfg.StagingDir(), Error: err})
	}

	sweepTree(cfg.QueueDir(), cfg.ErrorsDir(), log, &result)
	for _, folder := range config.ContentFolders() {
		dir := filepath.Join(cfg.QueueDir(), folder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
	}

	if len(result.Swept) > 0 {
		log.Info("stray files swept to errors", logging.Int("count", len(result.Swept)))
	}
	return result
}

// sweepTree moves every regular file under root into errorsDir preserving the
// relative path.
func sweepTree(root, errorsDir string, log *slog.Logger, result *CleanupResult) {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = entry.Name()
		}
		dest := filepath.Join(errorsDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			return nil
		}
		if err := fileutil.MoveFile(path, dest); err != nil {
			log.Warn("failed to sweep stray file",
				logging.String("path", path),
				logging.Error(err))
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			return nil
		}
		result.Swept = append(result.Swept, path)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
	}
}
