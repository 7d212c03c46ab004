package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
)

// WebhookSink posts each fragment as JSON to an HTTP mesh gateway.
type WebhookSink struct {
	url        string
	wantAck    bool
	httpClient *http.Client
}

// Payload is the JSON body sent to the gateway.
type Payload struct {
	Channel int    `json:"channel"`
	Text    string `json:"text"`
	WantAck bool   `json:"want_ack"`
}

// NewWebhookSink creates a WebhookSink.
func NewWebhookSink(url string, timeout time.Duration, wantAck bool) *WebhookSink {
	return &WebhookSink{
		url:     url,
		wantAck: wantAck,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (w *WebhookSink) Validate() error {
	if w.url == "" {
		return errors.New("mesh webhook: url is required")
	}
	return nil
}

// Deliver implements delivery.Sink. Any 2xx response is success.
func (w *WebhookSink) Deliver(ctx context.Context, text string, channel domain.Channel) error {
	body, err := json.Marshal(Payload{Channel: int(channel), Text: text, WantAck: w.wantAck})
	if err != nil {
		return fmt.Errorf("mesh webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mesh webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mesh webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mesh webhook: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
