// Package pipeline drives one work item through the full
// validate -> fetch -> extract -> package -> publish -> notify sequence.
// Process never returns an error: every failure mode is folded into a
// Failed result so callers only ever make a binary ack decision.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SOAT-TechChallenge/video-processing-service/internal/frames"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/metrics"
	"github.com/SOAT-TechChallenge/video-processing-service/pkg/schema"
)

// ObjectStore is the artifact-store surface the pipeline needs.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key, destPath string) error
	Upload(ctx context.Context, key, srcPath, contentType string) error
}

// Extractor produces frame images from a local video file.
type Extractor interface {
	ExtractFrames(ctx context.Context, videoPath, outputDir string) (*frames.ExtractResult, error)
}

// Archiver bundles frame files into one archive.
type Archiver interface {
	CreateArchive(ctx context.Context, filePaths []string, outputPath string) error
}

// Notifier reports run outcomes to a recipient. Calls are dispatched on a
// goroutine and never awaited; errors are logged only.
type Notifier interface {
	NotifyCompletion(ctx context.Context, to, title, archiveName string) error
	NotifyFailure(ctx context.Context, to, title, errMsg string) error
}

// EventPublisher emits the per-run done event. A nil publisher disables
// event publishing.
type EventPublisher interface {
	PublishJSON(subject string, v any) error
}

// Config carries the pipeline's filesystem and concurrency settings.
type Config struct {
	UploadDir     string
	OutputDir     string
	OutputPrefix  string
	Workers       int
	ResultSubject string
}

// Processor is the orchestrator. One instance serves all triggers (queue and
// HTTP); concurrent Process calls are independent except for the bounded
// worker pool gating the CPU-heavy stages.
type Processor struct {
	store     ObjectStore
	extractor Extractor
	archiver  Archiver
	notifier  Notifier
	events    EventPublisher

	uploadDir     string
	outputDir     string
	outputPrefix  string
	resultSubject string

	sem      chan struct{}
	notifyWG sync.WaitGroup
	logger   *slog.Logger
}

func New(store ObjectStore, extractor Extractor, archiver Archiver, notifier Notifier, events EventPublisher, cfg Config, logger *slog.Logger) *Processor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	return &Processor{
		store:         store,
		extractor:     extractor,
		archiver:      archiver,
		notifier:      notifier,
		events:        events,
		uploadDir:     cfg.UploadDir,
		outputDir:     cfg.OutputDir,
		outputPrefix:  cfg.OutputPrefix,
		resultSubject: cfg.ResultSubject,
		sem:           make(chan struct{}, workers),
		logger:        logger,
	}
}

// OutputDir exposes where finished archives are staged locally.
func (p *Processor) OutputDir() string { return p.outputDir }

// stepError carries the failure classification out of the run steps.
type stepError struct {
	ftype schema.FailureType
	msg   string
	err   error
}

func (e *stepError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func failStep(ftype schema.FailureType, msg string, err error) *stepError {
	return &stepError{ftype: ftype, msg: msg, err: err}
}

// Process runs item to completion and returns its terminal result.
func (p *Processor) Process(ctx context.Context, item schema.WorkItem) schema.ProcessingResult {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "source_key", item.SourceKey)
	start := time.Now()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	result := schema.ProcessingResult{
		ID: runID,
		Metadata: map[string]string{
			"sourceKey":   item.SourceKey,
			"title":       item.DisplayTitle(),
			"description": item.Description,
		},
	}

	archiveName := frames.ArchiveName(runID, item.DisplayTitle())
	outputKey, frameCount, err := p.run(ctx, runID, archiveName, item, logger)
	if err != nil {
		se, ok := err.(*stepError)
		if !ok {
			se = failStep(schema.FailureTypeTransfer, "processing error", err)
		}
		result.Status = schema.StatusFailed
		result.Error = se.Error()
		result.FailureType = se.ftype
		logger.Error("run failed", "failure_type", se.ftype, "err", se.Error())
		metrics.RunsTotal.WithLabelValues(string(schema.StatusFailed)).Inc()
	} else {
		result.Status = schema.StatusCompleted
		result.OutputKey = outputKey
		result.FrameCount = frameCount
		logger.Info("run completed", "frame_count", frameCount, "output_key", outputKey, "elapsed", time.Since(start).Round(time.Millisecond))
		metrics.RunsTotal.WithLabelValues(string(schema.StatusCompleted)).Inc()
	}

	p.dispatchNotification(item, result, archiveName, logger)
	p.publishDone(item, result, start)

	return result
}

// run executes the ordered steps and owns the temp workspace. Cleanup runs
// on every exit path; the staged archive in outputDir is not part of the
// workspace and survives the run.
func (p *Processor) run(ctx context.Context, runID, archiveName string, item schema.WorkItem, logger *slog.Logger) (outputKey string, frameCount int, err error) {
	// Step 1: validate.
	if item.SourceKey == "" {
		return "", 0, failStep(schema.FailureTypeValidation, "missing source key", nil)
	}

	// Step 2: existence check.
	exists, err := p.store.Exists(ctx, item.SourceKey)
	if err != nil {
		return "", 0, failStep(schema.FailureTypeTransfer, "existence check failed", err)
	}
	if !exists {
		return "", 0, failStep(schema.FailureTypeNotFound, fmt.Sprintf("source not found: %s", item.SourceKey), nil)
	}

	// Per-run workspace. Unique names keep concurrent runs apart even for
	// the same source key.
	videoPath := filepath.Join(p.uploadDir, runID+"_"+frames.SanitizeName(filepath.Base(item.SourceKey)))
	tempDir := filepath.Join(p.outputDir, "temp_"+runID)
	defer p.cleanupWorkspace(videoPath, tempDir, logger)

	// Step 3: fetch.
	dlStart := time.Now()
	if err := p.store.Download(ctx, item.SourceKey, videoPath); err != nil {
		return "", 0, failStep(schema.FailureTypeTransfer, "download error", err)
	}
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Extraction and packaging are CPU-bound; a bounded pool keeps them
	// from starving everything else.
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return "", 0, failStep(schema.FailureTypeTransfer, "cancelled while waiting for worker", ctx.Err())
	}
	defer func() { <-p.sem }()

	// Step 4: extract.
	exStart := time.Now()
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", 0, failStep(schema.FailureTypeContent, "create temp directory", err)
	}
	extract, err := p.extractor.ExtractFrames(ctx, videoPath, tempDir)
	if err != nil {
		return "", 0, failStep(schema.FailureTypeContent, "no frames extracted", err)
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.FramesExtractedTotal.Add(float64(extract.FrameCount))
	logger.Info("frames extracted", "count", extract.FrameCount, "video_duration", extract.VideoDuration)

	// Step 5: package.
	zipStart := time.Now()
	archivePath := filepath.Join(p.outputDir, archiveName)
	if err := p.archiver.CreateArchive(ctx, extract.FramePaths, archivePath); err != nil {
		return "", 0, failStep(schema.FailureTypeContent, "archive creation failed", err)
	}
	metrics.StageDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Step 6: publish.
	upStart := time.Now()
	outputKey = p.outputPrefix + archiveName
	if err := p.store.Upload(ctx, outputKey, archivePath, "application/zip"); err != nil {
		return "", 0, failStep(schema.FailureTypeTransfer, "upload error", err)
	}
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	p.publishPreview(ctx, runID, extract.FramePaths[0], tempDir, logger)

	return outputKey, extract.FrameCount, nil
}

// publishPreview uploads a small preview image derived from the first frame.
// Best effort: failures are logged and never affect the run.
func (p *Processor) publishPreview(ctx context.Context, runID, framePath, tempDir string, logger *slog.Logger) {
	previewName := runID + "_preview.jpg"
	previewPath := filepath.Join(tempDir, previewName)
	if err := frames.GeneratePreview(framePath, previewPath, 512, 512); err != nil {
		logger.Warn("preview generation failed", "err", err)
		return
	}
	if err := p.store.Upload(ctx, p.outputPrefix+previewName, previewPath, "image/jpeg"); err != nil {
		logger.Warn("preview upload failed", "err", err)
	}
}

func (p *Processor) cleanupWorkspace(videoPath, tempDir string, logger *slog.Logger) {
	if err := os.Remove(videoPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("cleanup video file failed", "path", videoPath, "err", err)
	}
	if err := os.RemoveAll(tempDir); err != nil {
		logger.Warn("cleanup temp dir failed", "path", tempDir, "err", err)
	}
}

// dispatchNotification fires the completion or failure email without waiting
// for the outcome. A Notifier failure never downgrades the run's result.
func (p *Processor) dispatchNotification(item schema.WorkItem, result schema.ProcessingResult, archiveName string, logger *slog.Logger) {
	if item.Email == "" || p.notifier == nil {
		return
	}
	p.notifyWG.Add(1)
	go func() {
		defer p.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var err error
		if result.Completed() {
			err = p.notifier.NotifyCompletion(ctx, item.Email, item.DisplayTitle(), archiveName)
		} else {
			err = p.notifier.NotifyFailure(ctx, item.Email, item.DisplayTitle(), result.Error)
		}
		if err != nil {
			logger.Warn("notification failed", "to", item.Email, "err", err)
		}
	}()
}

func (p *Processor) publishDone(item schema.WorkItem, result schema.ProcessingResult, start time.Time) {
	if p.events == nil {
		return
	}
	done := schema.ProcessingDone{
		ID:               result.ID,
		SourceKey:        item.SourceKey,
		OutputKey:        result.OutputKey,
		FrameCount:       result.FrameCount,
		Status:           result.Status,
		Error:            result.Error,
		FailureType:      result.FailureType,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		HappenedAt:       time.Now().Unix(),
	}
	if err := p.events.PublishJSON(p.resultSubject, done); err != nil {
		p.logger.Error("publish done event failed", "subject", p.resultSubject, "id", result.ID, "err", err)
	}
}

// WaitNotifications blocks until all in-flight notification goroutines have
// finished. Used by graceful shutdown and tests.
func (p *Processor) WaitNotifications() {
	p.notifyWG.Wait()
}
