// Package notify delivers "interested lead" alerts to Slack and to a
// configurable outbound webhook. Deliveries are fire-and-forget for the
// ingestion pipeline, but every webhook attempt is recorded durably.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leadbox/leadbox/internal/models"
)

const (
	slackPreviewLimit   = 200
	webhookPreviewLimit = 500
)

// AttemptRecorder persists webhook delivery attempts.
type AttemptRecorder interface {
	RecordDeliveryAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error
}

// Notifier sends interest notifications. Either URL may be empty, in which
// case that channel is skipped.
type Notifier struct {
	slackWebhookURL string
	webhookURL      string
	recorder        AttemptRecorder
	httpClient      *http.Client
	logger          *zap.Logger
}

// NewNotifier creates a notifier with a 10-second per-request timeout.
func NewNotifier(slackWebhookURL, webhookURL string, recorder AttemptRecorder, logger *zap.Logger) *Notifier {
	return &Notifier{
		slackWebhookURL: slackWebhookURL,
		webhookURL:      webhookURL,
		recorder:        recorder,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NotifyInterest sends the Slack alert and the outbound webhook for one
// newly classified message. Failures are logged, never returned as fatal:
// a broken notification channel must not block ingestion.
func (n *Notifier) NotifyInterest(ctx context.Context, msg *models.Message) error {
	if err := n.sendSlack(ctx, msg); err != nil {
		n.logger.Warn("slack notification failed",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}

	if err := n.sendWebhook(ctx, msg); err != nil {
		n.logger.Warn("webhook delivery failed",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}

	return nil
}

type slackField struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string       `json:"type"`
	Text   *slackField  `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func (n *Notifier) sendSlack(ctx context.Context, msg *models.Message) error {
	if n.slackWebhookURL == "" {
		return nil
	}

	from := msg.FromName
	if from == "" {
		from = msg.FromAddress
	}

	payload := slackMessage{
		Text: "New Interested Email",
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackField{Type: "plain_text", Text: "New Interested Email"},
			},
			{
				Type: "section",
				Fields: []slackField{
					{Type: "mrkdwn", Text: "*From:*\n" + from},
					{Type: "mrkdwn", Text: "*Email:*\n" + msg.FromAddress},
				},
			},
			{
				Type: "section",
				Fields: []slackField{
					{Type: "mrkdwn", Text: "*Subject:*\n" + msg.Subject},
				},
			},
			{
				Type: "section",
				Text: &slackField{Type: "mrkdwn", Text: "*Preview:*\n" + preview(msg.BodyText, slackPreviewLimit)},
			},
		},
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.slackWebhookURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack returned status %d: %s", resp.StatusCode, body)
	}

	return nil
}

type webhookPayload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      webhookData `json:"data"`
}

type webhookData struct {
	From        string    `json:"from"`
	FromName    string    `json:"from_name"`
	Subject     string    `json:"subject"`
	BodyPreview string    `json:"body_preview"`
	ReceivedAt  time.Time `json:"received_at"`
}

// sendWebhook posts the interest event and records the delivery attempt
// regardless of outcome.
func (n *Notifier) sendWebhook(ctx context.Context, msg *models.Message) error {
	if n.webhookURL == "" {
		return nil
	}

	payload := webhookPayload{
		Event:     "email.interested",
		Timestamp: time.Now().UTC(),
		Data: webhookData{
			From:        msg.FromAddress,
			FromName:    msg.FromName,
			Subject:     msg.Subject,
			BodyPreview: preview(msg.BodyText, webhookPreviewLimit),
			ReceivedAt:  msg.ReceivedAt,
		},
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	attempt := &models.DeliveryAttempt{
		MessageID: msg.ID,
		Target:    n.webhookURL,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		attempt.Status = models.DeliveryStatusError
		attempt.ResponseBody = err.Error()
		n.recordAttempt(ctx, attempt)
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	code := resp.StatusCode
	attempt.ResponseCode = &code
	attempt.ResponseBody = string(body)

	if resp.StatusCode < 300 {
		attempt.Status = models.DeliveryStatusSuccess
		n.recordAttempt(ctx, attempt)
		return nil
	}

	attempt.Status = models.DeliveryStatusFailed
	n.recordAttempt(ctx, attempt)
	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}

func (n *Notifier) recordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) {
	if n.recorder == nil {
		return
	}
	if err := n.recorder.RecordDeliveryAttempt(ctx, attempt); err != nil {
		n.logger.Error("failed to record delivery attempt",
			zap.String("message_id", attempt.MessageID),
			zap.Error(err),
		)
	}
}

func preview(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
