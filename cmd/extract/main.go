// cmd/extract is a standalone CLI for running frame extraction and
// packaging against a local file, without any queue or object store.
//
// Usage:
//   ./extract -input video.mp4 -out ./frames
//   ./extract -input video.mp4 -out ./frames -fps 2 -archive frames.zip
//   ./extract -input video.mp4 -probe
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/SOAT-TechChallenge/video-processing-service/internal/frames"
)

func main() {
	input := flag.String("input", "", "input video path (required)")
	out := flag.String("out", "./frames", "directory for extracted frames")
	fps := flag.Int("fps", 1, "frames per second to sample")
	archive := flag.String("archive", "", "also package frames into this zip")
	probe := flag.Bool("probe", false, "print video duration and exit")
	timeout := flag.Int("timeout", 300, "extraction timeout in seconds")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "error: -input is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*input); err != nil {
		log.Fatalf("input not found: %s", *input)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	extractor := frames.NewExtractor(*fps)

	if *probe {
		duration, err := extractor.Probe(ctx, *input)
		if err != nil {
			log.Fatalf("probe failed: %v", err)
		}
		fmt.Printf("duration: %.2fs\n", duration)
		return
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	start := time.Now()
	result, err := extractor.ExtractFrames(ctx, *input, *out)
	if err != nil {
		log.Fatalf("extraction failed: %v", err)
	}

	fmt.Printf("extracted %d frames in %v (video duration %.2fs)\n",
		result.FrameCount, time.Since(start).Round(time.Millisecond), result.VideoDuration)

	if *archive != "" {
		archiver := frames.NewArchiver()
		if err := archiver.CreateArchive(ctx, result.FramePaths, *archive); err != nil {
			log.Fatalf("archive failed: %v", err)
		}
		info, err := os.Stat(*archive)
		if err != nil {
			log.Fatalf("stat archive: %v", err)
		}
		fmt.Printf("archive %s (%d bytes)\n", *archive, info.Size())
	}
}
