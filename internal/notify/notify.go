// Package notify posts run-completion triggers to a configured webhook so
// downstream consumers (reporting mailers, dashboards) know a batch landed.
package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"leasing-sync/internal/config"
)

// RunCompletion is the webhook payload for a finished reconciliation run.
type RunCompletion struct {
	BatchID     string `json:"batch_id"`
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at"`
}

// Notifier delivers run-completion triggers over HTTP.
type Notifier struct {
	client  *resty.Client
	url     string
	enabled bool
	logger  *zap.Logger
}

// NewNotifier creates a Notifier from config. A disabled notifier is valid
// and turns NotifyRunCompleted into a no-op.
func NewNotifier(cfg config.NotifyConfig, logger *zap.Logger) *Notifier {
	client := resty.New().
		SetTimeout(cfg.GetNotifyTimeout()).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Notifier{
		client:  client,
		url:     cfg.WebhookURL,
		enabled: cfg.Enabled && cfg.WebhookURL != "",
		logger:  logger,
	}
}

// NotifyRunCompleted posts the completion trigger. Delivery failures are
// returned for logging but never fail the run itself.
func (n *Notifier) NotifyRunCompleted(batchID, status string) error {
	if !n.enabled {
		return nil
	}

	payload := RunCompletion{
		BatchID:     batchID,
		Status:      status,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := n.client.R().
		SetBody(payload).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	n.logger.Info("run completion delivered",
		zap.String("batch_id", batchID),
		zap.String("status", status))
	return nil
}
