package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Provider posts the rule payload as JSON to the action's URL.
type Provider struct {
	client    *http.Client
	userAgent string
}

func New(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "fleetwatch-webhook/1"
	}
	return &Provider{client: &http.Client{Timeout: timeout}, userAgent: ua}
}

func (p *Provider) Send(ctx context.Context, delivery domain.Delivery) error {
	if strings.TrimSpace(delivery.URL) == "" {
		return fmt.Errorf("%w: webhook url is empty", domain.ErrDeliveryRejected)
	}

	body, err := json.Marshal(delivery.Payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	for key, value := range delivery.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if trimmed := strings.TrimSpace(string(raw)); trimmed != "" {
			return fmt.Errorf("%w: webhook status=%d body=%s", domain.ErrDeliveryRejected, resp.StatusCode, trimmed)
		}
		return fmt.Errorf("%w: webhook status=%d", domain.ErrDeliveryRejected, resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
