package frames

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// GeneratePreview renders a bounded preview image from one extracted frame.
// The source is fitted inside boxW x boxH without upscaling.
func GeneratePreview(framePath, dstPath string, boxW, boxH int) error {
	src, err := imaging.Open(framePath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open frame: %w", err)
	}

	preview := imaging.Fit(src, boxW, boxH, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := imaging.Save(preview, dstPath); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}
