package opsgenie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production endpoint of the US instance.
	DefaultBaseURL = "https://api.opsgenie.com"

	defaultTimeout = 10 * time.Second
	alertsPath     = "/v2/alerts"

	// maxErrorBody bounds how much of an error reply is kept in APIError.
	maxErrorBody = 512
)

// APIError is returned when the API answers with an HTTP error status.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("opsgenie: http %d", e.StatusCode)
	}
	return fmt.Sprintf("opsgenie: http %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	// APIKey is sent as "GenieKey <APIKey>" on every request. Required.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Timeout bounds one HTTP request. Defaults to 10s.
	Timeout time.Duration

	// Transport is the underlying RoundTripper; http.DefaultTransport when nil.
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Client talks to the OpsGenie REST API.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New validates opts and returns a ready Client.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("opsgenie: api key is required")
	}
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("opsgenie: parse base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("opsgenie: base url %q must be an absolute http(s) URL", raw)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rt := opts.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base: base,
		http: &http.Client{
			Transport: &genieKeyRoundTripper{base: rt, key: opts.APIKey},
			Timeout:   timeout,
		},
		logger: logger,
	}, nil
}

// genieKeyRoundTripper injects the API key header into every outgoing request.
type genieKeyRoundTripper struct {
	base http.RoundTripper
	key  string
}

func (t *genieKeyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "GenieKey "+t.key)
	return t.base.RoundTrip(req)
}

// ListAlerts fetches one page of alerts matching req.
func (c *Client) ListAlerts(ctx context.Context, req ListRequest) (*ListResponse, error) {
	q := url.Values{}
	if req.Query != "" {
		q.Set("query", req.Query)
	}
	q.Set("offset", strconv.Itoa(req.Offset))
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Order != "" {
		q.Set("order", req.Order)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + alertsPath
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("opsgenie: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("opsgenie: list alerts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("opsgenie: read body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(resp, body)
	}

	out := &ListResponse{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("opsgenie: undecodable list response, treating as empty",
			"status", resp.StatusCode, "err", err)
		return &ListResponse{}, nil
	}
	return out, nil
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
	}
	var payload struct {
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
		if payload.RequestID != "" {
			apiErr.RequestID = payload.RequestID
		}
		return apiErr
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	apiErr.Message = msg
	return apiErr
}
