package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/renolink/bids-service/internal/model"
)

// WebhookSender posts notifications to the platform's notification service.
type WebhookSender struct {
	url    string
	client *http.Client
}

func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	UserID   string                      `json:"userId"`
	Type     string                      `json:"type"`
	Title    string                      `json:"title"`
	Content  string                      `json:"content"`
	Data     map[string]string           `json:"data,omitempty"`
	Channels []model.NotificationChannel `json:"channels"`
}

func (s *WebhookSender) Send(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(webhookPayload{
		UserID:   n.UserID.String(),
		Type:     n.Type,
		Title:    n.Title,
		Content:  n.Content,
		Data:     n.Data,
		Channels: n.Channels,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender is used when no webhook is configured.
type NoopSender struct{}

func (NoopSender) Send(context.Context, model.Notification) error { return nil }
