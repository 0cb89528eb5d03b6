package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting the service reads from the environment.
// SQSQueueURL is optional: when empty the service runs in manual mode and
// only the HTTP endpoints can trigger processing.
type Config struct {
	AWSRegion    string `env:"AWS_REGION"     envDefault:"us-east-1"`
	S3Bucket     string `env:"S3_BUCKET_NAME"`
	SQSQueueURL  string `env:"SQS_QUEUE_URL"`
	InputPrefix  string `env:"INPUT_PREFIX"  envDefault:"videos/"`
	OutputPrefix string `env:"OUTPUT_PREFIX" envDefault:"processed/"`

	UploadDir string `env:"UPLOAD_DIR" envDefault:"./data/uploads"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./data/outputs"`

	FramesPerSecond int `env:"FRAMES_PER_SECOND" envDefault:"1"`
	MaxWorkers      int `env:"MAX_WORKERS"       envDefault:"5"`

	MaxMessages   int `env:"SQS_MAX_MESSAGES"     envDefault:"10"`
	WaitSeconds   int `env:"SQS_WAIT_SECONDS"     envDefault:"20"`
	PollSleepSecs int `env:"POLL_SLEEP_SECONDS"   envDefault:"1"`
	ErrSleepSecs  int `env:"ERROR_SLEEP_SECONDS"  envDefault:"10"`

	NotificationURL   string `env:"NOTIFICATION_SERVICE_URL"`
	NotificationToken string `env:"API_SECURITY_INTERNAL_TOKEN"`

	NATSURL       string `env:"NATS_URL"`
	ResultSubject string `env:"RESULT_SUBJECT" envDefault:"video.frames.done"`

	HTTPPort    int    `env:"HTTP_PORT"    envDefault:"8000"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.S3Bucket == "" {
		errs = append(errs, "S3_BUCKET_NAME is required")
	}
	if c.SQSQueueURL != "" && !strings.HasPrefix(c.SQSQueueURL, "https://sqs.") {
		errs = append(errs, fmt.Sprintf("invalid SQS_QUEUE_URL: %s", c.SQSQueueURL))
	}
	if c.FramesPerSecond <= 0 {
		errs = append(errs, "FRAMES_PER_SECOND must be greater than zero")
	}
	if c.MaxWorkers <= 0 {
		errs = append(errs, "MAX_WORKERS must be greater than zero")
	}
	if c.MaxMessages <= 0 || c.MaxMessages > 10 {
		errs = append(errs, "SQS_MAX_MESSAGES must be between 1 and 10")
	}
	if c.WaitSeconds < 0 || c.WaitSeconds > 20 {
		errs = append(errs, "SQS_WAIT_SECONDS must be between 0 and 20")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, " | "))
	}
	return nil
}

// QueueEnabled reports whether the SQS consumer should run.
func (c *Config) QueueEnabled() bool { return c.SQSQueueURL != "" }
