// cmd/server runs the video processing service: the queue consumer, the
// manual HTTP API, and the metrics endpoint in one process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/SOAT-TechChallenge/video-processing-service/internal/api"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/bus"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/config"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/frames"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/metrics"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/notify"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/pipeline"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/queue"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"bucket", cfg.S3Bucket,
		"queue_url", orNotConfigured(cfg.SQSQueueURL),
		"input_prefix", cfg.InputPrefix,
		"output_prefix", cfg.OutputPrefix,
		"fps", cfg.FramesPerSecond,
		"workers", cfg.MaxWorkers,
	)

	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatal(logger, "ensure directory", err, "dir", dir)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		fatal(logger, "load aws config", err)
	}

	store := storage.NewGateway(s3.NewFromConfig(awsCfg), cfg.S3Bucket)
	extractor := frames.NewExtractor(cfg.FramesPerSecond)
	archiver := frames.NewArchiver()
	notifier := notify.NewClient(cfg.NotificationURL, cfg.NotificationToken, logger)

	var events *bus.Client
	if cfg.NATSURL != "" {
		events, err = bus.Connect(cfg.NATSURL)
		if err != nil {
			fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
		}
		defer events.Close()
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL, "result_subject", cfg.ResultSubject)
	}

	proc := pipeline.New(store, extractor, archiver, notifier, events, pipeline.Config{
		UploadDir:     cfg.UploadDir,
		OutputDir:     cfg.OutputDir,
		OutputPrefix:  cfg.OutputPrefix,
		Workers:       cfg.MaxWorkers,
		ResultSubject: cfg.ResultSubject,
	}, logger)

	metricsSrv := metrics.StartServer(cfg.MetricsPort, logger)

	apiSrv := api.NewServer(proc, store, cfg.OutputDir, api.Info{
		Bucket:      cfg.S3Bucket,
		QueueURL:    cfg.SQSQueueURL,
		InputPrefix: cfg.InputPrefix,
	}, logger)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: apiSrv.Router(),
	}
	go func() {
		logger.Info("http server starting", "port", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	var consumer *queue.Consumer
	consumerDone := make(chan struct{})
	if cfg.QueueEnabled() {
		consumer = queue.NewConsumer(sqs.NewFromConfig(awsCfg), proc, queue.Config{
			QueueURL:    cfg.SQSQueueURL,
			MaxMessages: cfg.MaxMessages,
			WaitSeconds: cfg.WaitSeconds,
			PollSleep:   time.Duration(cfg.PollSleepSecs) * time.Second,
			ErrorSleep:  time.Duration(cfg.ErrSleepSecs) * time.Second,
		}, logger)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("consumer error", "err", err)
			}
		}()
	} else {
		close(consumerDone)
		logger.Info("manual mode: no queue configured, use the HTTP endpoints")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if consumer != nil {
		consumer.Stop()
	}
	cancel()
	<-consumerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	proc.WaitNotifications()
	logger.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orNotConfigured(s string) string {
	if s == "" {
		return "not configured"
	}
	return s
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
