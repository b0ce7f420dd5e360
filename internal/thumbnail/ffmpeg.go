package thumbnail

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// MaxSeekSeconds caps how far into the video the frame is taken.
const MaxSeekSeconds = 1.0

// FFmpegExtractor decodes frames with the ffmpeg and ffprobe binaries.
type FFmpegExtractor struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpegExtractor returns an extractor using the given binaries ("" = look up in PATH).
func NewFFmpegExtractor(ffmpegPath, ffprobePath string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegExtractor{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Extract writes the frame at SeekOffset(duration) to framePath.
func (f *FFmpegExtractor) Extract(ctx context.Context, videoPath, framePath string) error {
	duration, err := f.Duration(ctx, videoPath)
	if err != nil {
		duration = 0
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(SeekOffset(duration), 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-y",
		framePath,
	}
	out, err := exec.CommandContext(ctx, f.FFmpegPath, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, strings.TrimSpace(string(out)))
	}
	if st, err := os.Stat(framePath); err != nil || st.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no frame for %s", videoPath)
	}
	return nil
}

// Duration returns the container duration in seconds.
func (f *FFmpegExtractor) Duration(ctx context.Context, videoPath string) (float64, error) {
	out, err := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	).CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, strings.TrimSpace(string(out)))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// SeekOffset picks the frame position: min(1s, 10% of duration). Unknown
// durations use the first frame.
func SeekOffset(duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	if tenth := duration * 0.1; tenth < MaxSeekSeconds {
		return tenth
	}
	return MaxSeekSeconds
}
