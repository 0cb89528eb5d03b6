package frames

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

// Archiver bundles extracted frames into one compressed zip.
type Archiver struct{}

func NewArchiver() *Archiver { return &Archiver{} }

// CreateArchive writes filePaths into a zip at outputPath, storing each entry
// under its base name.
func (a *Archiver) CreateArchive(ctx context.Context, filePaths []string, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	for _, fp := range filePaths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := addFile(zw, fp); err != nil {
			return fmt.Errorf("add %s: %w", fp, err)
		}
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, file)
	return err
}

var unsafeChars = regexp.MustCompile(`[^\w.-]`)

// SanitizeName replaces anything outside [A-Za-z0-9_.-] with underscores so
// titles and filenames are safe as path components and object keys.
func SanitizeName(name string) string {
	if name == "" {
		return "video"
	}
	return unsafeChars.ReplaceAllString(name, "_")
}

// ArchiveName builds the deterministic archive filename for one run.
func ArchiveName(runID, title string) string {
	return fmt.Sprintf("%s_%s_frames.zip", runID, SanitizeName(title))
}
