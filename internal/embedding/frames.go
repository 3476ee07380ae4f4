package embedding

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// videoDuration returns the duration of the video at path in seconds, via ffprobe.
func videoDuration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", out, err)
	}
	return d, nil
}

// frameTimestamps picks n sample points in [0, duration), weighted toward the
// first half of the video, where the relevant content usually is: 60% of the
// samples come from the first half, the rest from the second.
func frameTimestamps(duration float64, n int) []float64 {
	if n <= 0 || duration <= 0 {
		return nil
	}
	firstHalf := n * 6 / 10
	if firstHalf == 0 {
		firstHalf = 1
	}
	secondHalf := n - firstHalf

	ts := make([]float64, 0, n)
	mid := duration / 2
	for i := 0; i < firstHalf; i++ {
		ts = append(ts, mid*float64(i)/float64(firstHalf))
	}
	for i := 0; i < secondHalf; i++ {
		ts = append(ts, mid+(duration-mid)*float64(i)/float64(secondHalf))
	}
	sort.Float64s(ts)
	return ts
}

// extractFrames writes one JPEG per timestamp into a temp directory and
// returns the frame paths. The caller removes the directory when done.
func extractFrames(ctx context.Context, videoPath string, timestamps []float64) (dir string, frames []string, err error) {
	dir, err = os.MkdirTemp("", "omoide-frames-*")
	if err != nil {
		return "", nil, fmt.Errorf("create frame dir: %w", err)
	}
	for i, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(dir)
			return "", nil, err
		}
		frame := filepath.Join(dir, fmt.Sprintf("frame-%03d.jpg", i))
		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-v", "error",
			"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
			"-i", videoPath,
			"-frames:v", "1",
			"-q:v", "2",
			"-y", frame,
		)
		if err := cmd.Run(); err != nil {
			// A seek past the last keyframe can fail; skip that sample.
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("no frames extracted from %s", videoPath)
	}
	return dir, frames, nil
}
