package frames

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func createTestFrame(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test frame: %v", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
}

func TestGeneratePreviewFitsWithinBox(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "frame_000001.jpg")
	dst := filepath.Join(tmp, "preview.jpg")
	createTestFrame(t, src, 1280, 720)

	if err := GeneratePreview(src, dst, 512, 512); err != nil {
		t.Fatalf("GeneratePreview returned error: %v", err)
	}

	out, err := imaging.Open(dst)
	if err != nil {
		t.Fatalf("failed to open preview: %v", err)
	}
	bounds := out.Bounds()
	if bounds.Dx() > 512 || bounds.Dy() > 512 {
		t.Fatalf("preview %dx%d exceeds 512x512 box", bounds.Dx(), bounds.Dy())
	}
	// Fit preserves aspect ratio, so the wide source should hit the width cap.
	if bounds.Dx() != 512 {
		t.Fatalf("expected preview width 512, got %d", bounds.Dx())
	}
}

func TestGeneratePreviewMissingSource(t *testing.T) {
	tmp := t.TempDir()
	err := GeneratePreview(filepath.Join(tmp, "missing.jpg"), filepath.Join(tmp, "out.jpg"), 256, 256)
	if err == nil {
		t.Fatal("expected error for missing source frame")
	}
}
