// Package queue consumes work items from SQS and hands them to the
// processing pipeline. Delivery is at-least-once: a message is deleted only
// after its pipeline run completes; anything else is left for the queue's
// own redelivery after the visibility timeout.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/SOAT-TechChallenge/video-processing-service/internal/metrics"
	"github.com/SOAT-TechChallenge/video-processing-service/pkg/schema"
)

// Processor is what the consumer drives; satisfied by pipeline.Processor.
type Processor interface {
	Process(ctx context.Context, item schema.WorkItem) schema.ProcessingResult
}

// API is the subset of the SQS client the consumer needs.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Config tunes the polling loop.
type Config struct {
	QueueURL    string
	MaxMessages int
	WaitSeconds int
	PollSleep   time.Duration
	ErrorSleep  time.Duration
}

// Consumer long-polls one queue and drives every received batch to
// completion before polling again. It buffers nothing: an item is either
// processed now or left on the queue.
type Consumer struct {
	client  API
	proc    Processor
	cfg     Config
	logger  *slog.Logger
	stopped atomic.Bool
}

func NewConsumer(client API, proc Processor, cfg Config, logger *slog.Logger) *Consumer {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 10
	}
	if cfg.WaitSeconds <= 0 {
		cfg.WaitSeconds = 20
	}
	if cfg.PollSleep <= 0 {
		cfg.PollSleep = time.Second
	}
	if cfg.ErrorSleep <= 0 {
		cfg.ErrorSleep = 10 * time.Second
	}
	return &Consumer{client: client, proc: proc, cfg: cfg, logger: logger}
}

// Stop requests a cooperative shutdown. It takes effect at the top of the
// next poll iteration and does not abort in-flight runs.
func (c *Consumer) Stop() {
	c.stopped.Store(true)
}

// Run polls until Stop is called or ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("queue consumer starting",
		"queue_url", c.cfg.QueueURL,
		"max_messages", c.cfg.MaxMessages,
		"wait_seconds", c.cfg.WaitSeconds,
	)

	for {
		if c.stopped.Load() {
			c.logger.Info("queue consumer stopped")
			return nil
		}
		select {
		case <-ctx.Done():
			c.logger.Info("queue consumer context cancelled")
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.cfg.QueueURL),
			MaxNumberOfMessages: int32(c.cfg.MaxMessages),
			WaitTimeSeconds:     int32(c.cfg.WaitSeconds),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("receive failed", "err", err)
			c.sleep(ctx, c.cfg.ErrorSleep)
			continue
		}

		if len(out.Messages) > 0 {
			c.handleBatch(ctx, out.Messages)
		}

		c.sleep(ctx, c.cfg.PollSleep)
	}
}

// handleBatch dispatches every well-formed item concurrently and waits for
// all of them before returning. Each run acks its own message on success.
func (c *Consumer) handleBatch(ctx context.Context, msgs []types.Message) {
	c.logger.Info("received batch", "count", len(msgs))
	metrics.MessagesReceivedTotal.Add(float64(len(msgs)))

	var wg sync.WaitGroup
	for _, msg := range msgs {
		item, ok := c.parse(msg)
		if !ok {
			// Left un-acked on purpose: unparseable messages stay
			// visible for operator inspection or DLQ redirection.
			continue
		}

		wg.Add(1)
		go func(m types.Message, item schema.WorkItem) {
			defer wg.Done()
			result := c.proc.Process(ctx, item)
			if result.Completed() {
				c.ack(ctx, m)
			} else {
				c.logger.Warn("item failed, leaving message for redelivery",
					"source_key", item.SourceKey,
					"run_id", result.ID,
					"err", result.Error,
				)
			}
		}(msg, item)
	}
	wg.Wait()
}

func (c *Consumer) parse(msg types.Message) (schema.WorkItem, bool) {
	var item schema.WorkItem
	body := aws.ToString(msg.Body)
	if err := json.Unmarshal([]byte(body), &item); err != nil {
		metrics.MessagesDiscardedTotal.Inc()
		c.logger.Error("malformed message body, skipping",
			"message_id", aws.ToString(msg.MessageId),
			"err", err,
		)
		return schema.WorkItem{}, false
	}
	return item, true
}

func (c *Consumer) ack(ctx context.Context, msg types.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error("delete message failed",
			"message_id", aws.ToString(msg.MessageId),
			"err", err,
		)
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
