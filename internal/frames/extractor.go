// Package frames turns a local video file into an ordered set of frame
// images and packages them for publishing. It owns no remote I/O; callers
// hand it paths and collect paths back.
package frames

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ExtractResult reports what one extraction produced.
type ExtractResult struct {
	FramePaths    []string
	FrameCount    int
	VideoDuration float64
}

// Extractor samples frames from a video at a fixed temporal rate using
// ffmpeg. The fps rate is set once at construction.
type Extractor struct {
	fps    int
	format string
}

func NewExtractor(fps int) *Extractor {
	if fps <= 0 {
		fps = 1
	}
	return &Extractor{fps: fps, format: "jpg"}
}

// ExtractFrames writes sampled frames into outputDir and returns their paths
// in frame order. Zero frames is reported as an error: a video that yields
// nothing is a content problem, not an empty success.
func (e *Extractor) ExtractFrames(ctx context.Context, videoPath, outputDir string) (*ExtractResult, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	duration, err := e.Probe(ctx, videoPath)
	if err != nil {
		// Duration is informational only; extraction decides success.
		duration = 0
	}

	pattern := filepath.Join(outputDir, fmt.Sprintf("frame_%%06d.%s", e.format))
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", e.fps),
		"-q:v", "2",
		"-y",
		pattern,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(out))
	}

	paths, err := filepath.Glob(filepath.Join(outputDir, "frame_*."+e.format))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames extracted from video")
	}

	return &ExtractResult{
		FramePaths:    paths,
		FrameCount:    len(paths),
		VideoDuration: duration,
	}, nil
}

// Probe returns the video duration in seconds via ffprobe.
func (e *Extractor) Probe(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseDuration(string(out))
}

func parseDuration(raw string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(raw), err)
	}
	return d, nil
}
