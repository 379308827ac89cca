package encoding

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"spool/internal/logging"
	"spool/internal/services"
)

const (
	// progressLogInterval throttles per-file progress lines; ffmpeg emits a
	// stats line several times per second.
	progressLogInterval = 60 * time.Second

	maxStderrLines = 40
)

// Runner executes ffmpeg subprocesses and streams their stderr for progress.
type Runner struct {
	binary string
	logger *slog.Logger
}

// NewRunner builds a Runner around the given ffmpeg binary name.
func NewRunner(binary string, logger *slog.Logger) *Runner {
	return &Runner{binary: binary, logger: logging.WithComponent(logger, "ffmpeg")}
}

// Run launches the encoder and blocks until it exits, returning the exit code
// and the retained tail of non-progress stderr lines. The context is checked
// only before launch: a running encode is never killed mid-write, so
// cancellation takes effect between files.
//
// A non-zero exit code is returned with a nil error; the error return is
// reserved for failures to launch or drain the process at all.
func (r *Runner) Run(ctx context.Context, args []string, name string, durationSeconds float64) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return -1, "", err
	}

	cmd := exec.Command(r.binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, "", fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, "", services.Wrap(services.ErrExternalTool, "transcode", "start", "launch "+r.binary, err)
	}

	// The pipe must be drained while the process runs; buffering stderr to
	// completion deadlocks once the OS pipe buffer fills.
	tail := r.consumeStderr(stderr, name, durationSeconds)

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), tail, nil
		}
		return -1, tail, services.Wrap(services.ErrExternalTool, "transcode", "wait", "wait for "+r.binary, err)
	}
	return 0, tail, nil
}

func (r *Runner) consumeStderr(pipe io.Reader, name string, durationSeconds float64) string {
	scanner := bufio.NewScanner(pipe)
	scanner.Split(scanLinesWithCR)

	var tail []string
	var lastLog time.Time
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.Contains(line, "time=") {
			if time.Since(lastLog) >= progressLogInterval {
				r.logProgress(name, line, durationSeconds)
				lastLog = time.Now()
			}
			continue
		}

		tail = append(tail, line)
		if len(tail) > maxStderrLines {
			tail = tail[1:]
		}
	}
	return strings.Join(tail, "\n")
}

func (r *Runner) logProgress(name, line string, durationSeconds float64) {
	elapsed := parseProgressTime(line)
	speed := parseEncodingSpeed(line)

	attrs := []logging.Attr{logging.String("file", name)}
	if elapsed > 0 && durationSeconds > 0 {
		percent := math.Min(100, elapsed/durationSeconds*100)
		attrs = append(attrs, logging.Float64("percent", math.Round(percent*10)/10))
		if speed > 0 && durationSeconds > elapsed {
			remaining := time.Duration((durationSeconds - elapsed) / speed * float64(time.Second))
			if eta := formatETA(remaining); eta != "" {
				attrs = append(attrs, logging.String("eta", eta))
			}
		}
	}
	if speed > 0 {
		attrs = append(attrs, logging.Float64("speed", speed))
	}
	r.logger.Info("transcoding", logging.Args(attrs...)...)
}

// scanLinesWithCR splits on both \r and \n; ffmpeg redraws its stats line
// with bare carriage returns.
func scanLinesWithCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i := 0; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			advance = i + 1
			for advance < len(data) && (data[advance] == '\r' || data[advance] == '\n') {
				advance++
			}
			return advance, data[0:i], nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// parseProgressTime extracts the elapsed media time in seconds from a stats
// line like "frame= 812 fps= 54 ... time=00:01:23.45 bitrate=... speed=2.1x".
func parseProgressTime(line string) float64 {
	idx := strings.Index(line, "time=")
	if idx == -1 {
		return 0
	}
	token := strings.TrimLeft(line[idx+5:], " ")
	if end := strings.IndexAny(token, " \t"); end > 0 {
		token = token[:end]
	}

	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return 0
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return hours*3600 + minutes*60 + seconds
}

// parseEncodingSpeed extracts the realtime multiplier from a stats line.
func parseEncodingSpeed(line string) float64 {
	idx := strings.Index(line, "speed=")
	if idx == -1 {
		return 0
	}
	token := strings.TrimLeft(line[idx+6:], " ")
	if end := strings.IndexAny(token, "x \t"); end > 0 {
		token = token[:end]
	}

	speed, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return 0
	}
	return speed
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}
