package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index          int    `json:"index"`
	CodecName      string `json:"codec_name"`
	CodecType      string `json:"codec_type"`
	Duration       string `json:"duration"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	PixFmt         string `json:"pix_fmt"`
	ColorPrimaries string `json:"color_primaries"`
	ColorTransfer  string `json:"color_transfer"`
	ColorSpace     string `json:"color_space"`
	SampleRate     string `json:"sample_rate"`
	Channels       int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// VideoSummary condenses the primary video stream and container duration into
// the fields the transcode planner cares about.
type VideoSummary struct {
	Codec           string
	Width           int
	Height          int
	PixFmt          string
	ColorPrimaries  string
	ColorTransfer   string
	ColorSpace      string
	DurationSeconds float64
}

// Is4K reports whether the stream qualifies for the 4K bitrate tier.
func (v VideoSummary) Is4K() bool {
	return v.Width >= 3800 || v.Height >= 2000
}

// IsHDR reports whether the color metadata indicates an HDR transfer.
func (v VideoSummary) IsHDR() bool {
	return v.ColorPrimaries == "bt2020" || v.ColorTransfer == "smpte2084" || v.ColorTransfer == "arib-std-b67"
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// InspectVideo probes a path and returns the primary-video summary. It fails
// when the container holds no video stream at all.
func InspectVideo(ctx context.Context, binary string, path string) (VideoSummary, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return VideoSummary{}, err
	}
	summary, ok := result.PrimaryVideo()
	if !ok {
		return VideoSummary{}, fmt.Errorf("ffprobe inspect: no video stream in %s", path)
	}
	return summary, nil
}

// PrimaryVideo returns a summary of the first video stream, if any.
func (r Result) PrimaryVideo() (VideoSummary, bool) {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		return VideoSummary{
			Codec:           stream.CodecName,
			Width:           stream.Width,
			Height:          stream.Height,
			PixFmt:          stream.PixFmt,
			ColorPrimaries:  stream.ColorPrimaries,
			ColorTransfer:   stream.ColorTransfer,
			ColorSpace:      stream.ColorSpace,
			DurationSeconds: r.DurationSeconds(),
		}, true
	}
	return VideoSummary{}, false
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	duration := parseFloat(r.Format.Duration)
	if math.IsNaN(duration) || duration < 0 {
		return 0
	}
	return duration
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
