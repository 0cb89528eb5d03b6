// Package notify sends run-outcome emails through the external
// notification service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const tokenHeader = "x-apigateway-token"

// Client calls the external notification service. Every send is
// fire-and-forget from the pipeline's point of view: errors are returned so
// the caller can log them, but they never influence a run's outcome.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Configured reports whether the client has enough settings to send anything.
func (c *Client) Configured() bool { return c.baseURL != "" && c.token != "" }

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (c *Client) send(ctx context.Context, to, subject, body string) error {
	if !c.Configured() {
		c.logger.Warn("notification skipped, service not configured", "to", to)
		return nil
	}

	payload, err := json.Marshal(emailRequest{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	url := c.baseURL + "/notification/send-email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}

// NotifyCompletion reports a successful run to the recipient.
func (c *Client) NotifyCompletion(ctx context.Context, to, title, archiveName string) error {
	subject := fmt.Sprintf("Processing Completed: %s", title)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Good news! The video '%s' was processed successfully.\n"+
			"The archive '%s' is now available in your storage.\n\n"+
			"Regards,\nVideo Processing Team",
		title, archiveName,
	)
	return c.send(ctx, to, subject, body)
}

// NotifyFailure reports a failed run to the recipient.
func (c *Client) NotifyFailure(ctx context.Context, to, title, errMsg string) error {
	subject := fmt.Sprintf("Processing Failed: %s", title)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Unfortunately an error occurred while extracting frames from the video '%s'.\n"+
			"Technical details: %s\n\n"+
			"Please try uploading the video again.\n\n"+
			"Regards,\nVideo Processing Team",
		title, errMsg,
	)
	return c.send(ctx, to, subject, body)
}
