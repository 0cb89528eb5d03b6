package frames

import (
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"10.5\n", 10.5, false},
		{"2.000000", 2.0, false},
		{"  7 ", 7, false},
		{"N/A", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDuration(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDuration(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestExtractFramesMissingInput(t *testing.T) {
	requireFFmpeg(t)

	tmp := t.TempDir()
	_, err := NewExtractor(1).ExtractFrames(context.Background(), filepath.Join(tmp, "missing.mp4"), tmp)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestExtractFramesFromGeneratedVideo(t *testing.T) {
	requireFFmpeg(t)

	tmp := t.TempDir()
	videoPath := filepath.Join(tmp, "test.mp4")
	generateTestVideo(t, videoPath, 3)

	framesDir := filepath.Join(tmp, "frames")
	result, err := NewExtractor(1).ExtractFrames(context.Background(), videoPath, framesDir)
	if err != nil {
		t.Fatalf("ExtractFrames returned error: %v", err)
	}

	if result.FrameCount == 0 {
		t.Fatal("expected at least one frame")
	}
	if len(result.FramePaths) != result.FrameCount {
		t.Fatalf("frame count %d does not match paths %d", result.FrameCount, len(result.FramePaths))
	}
	// 3 seconds at 1 fps: allow for ffmpeg rounding at the boundaries.
	if result.FrameCount < 2 || result.FrameCount > 4 {
		t.Fatalf("unexpected frame count for 3s video at 1fps: %d", result.FrameCount)
	}
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}
}

func generateTestVideo(t *testing.T, path string, seconds int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", "testsrc=duration="+strconv.Itoa(seconds)+":size=320x240:rate=10",
		"-pix_fmt", "yuv420p",
		"-y",
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate test video: %v (%s)", err, out)
	}
}
