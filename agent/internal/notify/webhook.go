package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookTarget is one webhook endpoint.
type WebhookTarget struct {
	// Type is one of: slack | teams | http.
	Type string
	URL  string
}

// WebhookSink posts notifications to webhook targets. Deliveries across all
// targets share one rate limiter.
type WebhookSink struct {
	targets []WebhookTarget
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookSink returns a sink delivering at most perSecond posts per
// second, bursting up to one post per target. A nil client gets a 10s timeout.
func NewWebhookSink(targets []WebhookTarget, perSecond float64, client *http.Client) (*WebhookSink, error) {
	for _, t := range targets {
		switch t.Type {
		case "slack", "teams", "http":
		default:
			return nil, fmt.Errorf("notify: unknown webhook type %q", t.Type)
		}
		if t.URL == "" {
			return nil, fmt.Errorf("notify: %s webhook has no url", t.Type)
		}
	}
	if perSecond <= 0 {
		return nil, fmt.Errorf("notify: webhook rate must be positive")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookSink{
		targets: targets,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), max(1, len(targets))),
	}, nil
}

// Notify posts n to every target and joins the delivery errors.
func (s *WebhookSink) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, t := range s.targets {
		if err := s.limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notify: %s webhook: %w", t.Type, err))
			continue
		}
		body, err := webhookPayload(t.Type, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.post(ctx, t.URL, body); err != nil {
			errs = append(errs, fmt.Errorf("notify: %s webhook: %w", t.Type, err))
		}
	}
	return errors.Join(errs...)
}

func webhookPayload(typ string, n Notification) ([]byte, error) {
	switch typ {
	case "slack":
		return json.Marshal(map[string]string{
			"text": fmt.Sprintf("*%s* %s", urgencyLabel(n.Urgency), n.Summary),
		})
	case "teams":
		return json.Marshal(map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": urgencyColor(n.Urgency),
			"summary":    n.Summary,
			"title":      fmt.Sprintf("OpsGenie %s", n.Body()),
			"text":       n.Summary,
		})
	case "http":
		return json.Marshal(map[string]interface{}{"notification": n})
	}
	return nil, fmt.Errorf("notify: unknown webhook type %q", typ)
}

func (s *WebhookSink) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func urgencyLabel(u Urgency) string {
	switch u {
	case UrgencyCritical:
		return "[CRITICAL]"
	case UrgencyNormal:
		return "[NORMAL]"
	default:
		return "[LOW]"
	}
}

func urgencyColor(u Urgency) string {
	switch u {
	case UrgencyCritical:
		return "FF4F6A"
	case UrgencyNormal:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
