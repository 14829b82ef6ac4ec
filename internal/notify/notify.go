// Package notify delivers one-time challenge codes to principals through
// the platform's mail gateway. Delivery is best-effort: a failed dispatch
// is logged and never fails the lock transition that minted the code.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternlund/lockguard/internal/logger"
)

// Sender delivers a challenge code to a principal.
type Sender interface {
	SendCode(ctx context.Context, principal, code, purpose string) error
}

// codePayload is the JSON body posted to the mail gateway.
type codePayload struct {
	Principal string `json:"principal"`
	Code      string `json:"code"`
	Purpose   string `json:"purpose"`
	SentAt    string `json:"sent_at"`
}

// WebhookSender posts challenge codes to a configured webhook URL.
type WebhookSender struct {
	url    string
	client *http.Client
	log    logger.Logger
}

// NewWebhookSender creates a Sender that posts to the given URL. An empty
// URL yields a sender that drops codes with a warning, so a deployment
// without a mail gateway still functions (codes are visible in the
// operator log at debug level).
func NewWebhookSender(url string, log logger.Logger) *WebhookSender {
	return &WebhookSender{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.WithComponent("notify"),
	}
}

// SendCode posts (principal, code, purpose) to the mail gateway.
func (s *WebhookSender) SendCode(ctx context.Context, principal, code, purpose string) error {
	if s.url == "" {
		s.log.Warnw("no mail gateway configured, challenge code not delivered",
			"principal", principal, "purpose", purpose)
		s.log.Debugw("challenge code", "principal", principal, "code", code)
		return nil
	}

	payload, err := json.Marshal(codePayload{
		Principal: principal,
		Code:      code,
		Purpose:   purpose,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshalling code payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
