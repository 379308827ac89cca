package encoding

import (
	"path/filepath"
	"runtime"
	"strings"

	"spool/internal/media/ffprobe"
)

// Plan is a fully resolved ffmpeg invocation for one file.
type Plan struct {
	Args    []string
	FourK   bool
	HDR     bool
	AACFlag bool
	Subs    bool
}

// SelectEncoder resolves the HEVC encoder name: an explicit configuration
// value wins, otherwise the platform default (VideoToolbox on macOS, software
// libx265 everywhere else).
func SelectEncoder(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	if runtime.GOOS == "darwin" {
		return "hevc_videotoolbox"
	}
	return "libx265"
}

// BuildPlan assembles the ffmpeg argument list for transcoding src to dst.
//
// Resolution picks the bitrate tier: 4K sources get 20000k/25000k/40000k and
// profile main10, everything else 7000k/9000k/14000k and profile main. The
// 10-bit p010le pixel format is used only for 4K HDR sources. Audio is
// re-encoded to AAC when forced or when the source container is .avi, and
// stream-copied otherwise. The hvc1 tag and +faststart keep the output
// Plex/QuickTime compatible.
func BuildPlan(src, dst string, video ffprobe.VideoSummary, encoder string, forceAudioAAC, includeSubtitles bool) Plan {
	plan := Plan{
		FourK:   video.Is4K(),
		HDR:     video.IsHDR(),
		AACFlag: forceAudioAAC || strings.EqualFold(filepath.Ext(src), ".avi"),
		Subs:    includeSubtitles,
	}

	bitrate, maxrate, bufsize := "7000k", "9000k", "14000k"
	profile, pixFmt := "main", "yuv420p"
	if plan.FourK {
		bitrate, maxrate, bufsize = "20000k", "25000k", "40000k"
		profile = "main10"
		if plan.HDR {
			pixFmt = "p010le"
		}
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-stats",
		"-i", src,
		"-map", "0",
		"-c:v", encoder,
		"-b:v", bitrate,
		"-maxrate", maxrate,
		"-bufsize", bufsize,
		"-profile:v", profile,
		"-pix_fmt", pixFmt,
		"-tag:v", "hvc1",
	}

	if plan.AACFlag {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-c:a", "copy")
	}

	if plan.Subs {
		args = append(args, "-c:s", "copy")
	} else {
		args = append(args, "-sn")
	}

	args = append(args, "-movflags", "+faststart", dst)
	plan.Args = args
	return plan
}
