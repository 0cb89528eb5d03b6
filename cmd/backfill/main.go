// cmd/backfill enqueues one work item per stored video so a queue-driven
// worker reprocesses them. With -dry-run it only prints what it would send.
//
// Usage:
//   ./backfill -prefix videos/ -limit 50
//   ./backfill -dry-run
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/SOAT-TechChallenge/video-processing-service/internal/config"
	"github.com/SOAT-TechChallenge/video-processing-service/internal/storage"
	"github.com/SOAT-TechChallenge/video-processing-service/pkg/schema"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	prefix := flag.String("prefix", "", "source prefix to scan (default: configured input prefix)")
	limit := flag.Int("limit", 0, "maximum number of items to enqueue (0 = no limit)")
	dryRun := flag.Bool("dry-run", false, "print work items instead of sending them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal(logger, "load config", err)
	}
	if !cfg.QueueEnabled() && !*dryRun {
		fatal(logger, "SQS_QUEUE_URL is required unless -dry-run is set", nil)
	}
	if *prefix == "" {
		*prefix = cfg.InputPrefix
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		fatal(logger, "load aws config", err)
	}

	store := storage.NewGateway(s3.NewFromConfig(awsCfg), cfg.S3Bucket)
	objects, err := store.List(ctx, *prefix)
	if err != nil {
		fatal(logger, "list videos", err, "prefix", *prefix)
	}
	logger.Info("scan complete", "prefix", *prefix, "found", len(objects))

	sqsClient := sqs.NewFromConfig(awsCfg)

	enqueued := 0
	for _, obj := range objects {
		if *limit > 0 && enqueued >= *limit {
			break
		}

		item := schema.WorkItem{SourceKey: obj.Key}
		body, err := json.Marshal(item)
		if err != nil {
			fatal(logger, "marshal work item", err, "key", obj.Key)
		}

		if *dryRun {
			fmt.Println(string(body))
			enqueued++
			continue
		}

		_, err = sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(cfg.SQSQueueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			fatal(logger, "send message", err, "key", obj.Key)
		}
		logger.Info("enqueued", "key", obj.Key, "size", obj.Size)
		enqueued++
	}

	logger.Info("backfill finished", "enqueued", enqueued, "dry_run", *dryRun)
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	logger.Error(msg, attrs...)
	os.Exit(1)
}
