package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBasePath       = "https://api.opsgenie.com"
	DefaultAPIKeyEnv      = "OPSGENIE_API_KEY"
	DefaultHistoryDays    = 7
	DefaultUpdateInterval = 60 * time.Second
	DefaultRequestLimit   = 100
	DefaultRequestTimeout = 10 * time.Second
	DefaultPageDelay      = time.Second
	DefaultAppName        = "opsgenie-desktop"
	DefaultWebhookRate    = 1.0
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"

	// MaxRequestLimit is the largest page size the OpsGenie list API accepts.
	MaxRequestLimit = 100
)

// ErrInvalid marks configuration that must stop the agent before it starts
// polling. Every error returned by Validate wraps it.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level agent configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	OpsGenie OpsGenieConfig `yaml:"opsgenie"`
	Notify   NotifyConfig   `yaml:"notify"`
	Status   StatusConfig   `yaml:"status"`
	Log      LogConfig      `yaml:"log"`
}

// OpsGenieConfig holds the alert API connection and polling settings.
type OpsGenieConfig struct {
	// APIKey is the literal API key. Prefer APIKeyEnv in files that are
	// checked into version control.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv is the name of the environment variable holding the key.
	// Used only when APIKey is empty.
	APIKeyEnv string `yaml:"api_key_env"`

	// BasePath is the base URL of the OpsGenie API.
	BasePath string `yaml:"base_path"`

	// HistoryDays bounds how far back the first query looks for closed alerts.
	HistoryDays int `yaml:"history_days"`

	// UpdateInterval controls how often OpsGenie is polled.
	UpdateInterval time.Duration `yaml:"update_interval"`

	// RequestLimit is the page size of each list request.
	RequestLimit int `yaml:"request_limit"`

	// RequestTimeout bounds a single page request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PageDelay is the pause between two page requests of the same cycle.
	PageDelay time.Duration `yaml:"page_delay"`
}

// Key returns the API key, resolving APIKeyEnv when no literal key is set.
func (o OpsGenieConfig) Key() string {
	if o.APIKey != "" {
		return o.APIKey
	}
	if o.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(o.APIKeyEnv)
}

// NotifyConfig selects and configures the notification sinks.
type NotifyConfig struct {
	Desktop  DesktopConfig   `yaml:"desktop"`
	Webhooks []WebhookConfig `yaml:"webhooks"`

	// WebhookRate is the maximum number of webhook deliveries per second,
	// shared by all webhook targets.
	WebhookRate float64 `yaml:"webhook_rate"`
}

// DesktopConfig configures freedesktop notifications over D-Bus.
type DesktopConfig struct {
	Enabled bool   `yaml:"enabled"`
	AppName string `yaml:"app_name"`
	Icon    string `yaml:"icon"`

	// ExpireTimeout is passed to the notification server; zero or negative
	// lets the server decide.
	ExpireTimeout time.Duration `yaml:"expire_timeout"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URL is the literal webhook URL.
	URL string `yaml:"url"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	// Used only when URL is empty.
	URLEnv string `yaml:"url_env"`
}

// ResolveURL returns the webhook URL, resolving URLEnv when URL is empty.
func (w WebhookConfig) ResolveURL() string {
	if w.URL != "" {
		return w.URL
	}
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// StatusConfig configures the optional local status surface.
type StatusConfig struct {
	// Listen is the HTTP listen address for the status API, /metrics and the
	// notification WebSocket. Empty disables the HTTP server.
	Listen string `yaml:"listen"`

	// GRPCListen is the listen address of the gRPC health service.
	// Empty disables it.
	GRPCListen string `yaml:"grpc_listen"`
}

// LogConfig configures process logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: text | json.
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults. Load does not validate:
// command-line overrides are applied first, then Validate is called.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		OpsGenie: OpsGenieConfig{
			APIKeyEnv:      DefaultAPIKeyEnv,
			BasePath:       DefaultBasePath,
			HistoryDays:    DefaultHistoryDays,
			UpdateInterval: DefaultUpdateInterval,
			RequestLimit:   DefaultRequestLimit,
			RequestTimeout: DefaultRequestTimeout,
			PageDelay:      DefaultPageDelay,
		},
		Notify: NotifyConfig{
			Desktop: DesktopConfig{
				Enabled: true,
				AppName: DefaultAppName,
			},
			WebhookRate: DefaultWebhookRate,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Validate checks required fields and structural constraints.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("config: %w: %w", ErrInvalid, err)
	}
	return nil
}

func validate(cfg *Config) error {
	og := cfg.OpsGenie
	if og.Key() == "" {
		return fmt.Errorf("opsgenie.api_key is required (or set $%s)", og.APIKeyEnv)
	}
	u, err := url.Parse(og.BasePath)
	if err != nil {
		return fmt.Errorf("opsgenie.base_path: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("opsgenie.base_path %q must be an absolute http(s) URL", og.BasePath)
	}
	if og.HistoryDays <= 0 {
		return fmt.Errorf("opsgenie.history_days must be positive")
	}
	if og.UpdateInterval <= 0 {
		return fmt.Errorf("opsgenie.update_interval must be positive")
	}
	if og.RequestLimit <= 0 || og.RequestLimit > MaxRequestLimit {
		return fmt.Errorf("opsgenie.request_limit must be between 1 and %d", MaxRequestLimit)
	}
	if og.RequestTimeout <= 0 {
		return fmt.Errorf("opsgenie.request_timeout must be positive")
	}
	if og.PageDelay < 0 {
		return fmt.Errorf("opsgenie.page_delay must not be negative")
	}

	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URL == "" && wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d]: url or url_env is required", i)
		}
	}
	if len(cfg.Notify.Webhooks) > 0 && cfg.Notify.WebhookRate <= 0 {
		return fmt.Errorf("notify.webhook_rate must be positive")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}
