package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
opsgenie:
  api_key: "abc123"
  base_path: "https://api.eu.opsgenie.com"
  history_days: 3
  update_interval: 30s
  request_limit: 50
notify:
  desktop:
    enabled: false
  webhooks:
    - type: slack
      url: "https://hooks.slack.com/services/x"
status:
  listen: "127.0.0.1:9808"
log:
  level: debug
  format: json
`
	cfg := loadValid(t, yaml)

	if cfg.OpsGenie.Key() != "abc123" {
		t.Errorf("api_key: got %q", cfg.OpsGenie.Key())
	}
	if cfg.OpsGenie.BasePath != "https://api.eu.opsgenie.com" {
		t.Errorf("base_path: got %q", cfg.OpsGenie.BasePath)
	}
	if cfg.OpsGenie.HistoryDays != 3 {
		t.Errorf("history_days: got %d", cfg.OpsGenie.HistoryDays)
	}
	if cfg.OpsGenie.UpdateInterval != 30*time.Second {
		t.Errorf("update_interval: got %v", cfg.OpsGenie.UpdateInterval)
	}
	if cfg.OpsGenie.RequestLimit != 50 {
		t.Errorf("request_limit: got %d", cfg.OpsGenie.RequestLimit)
	}
	if cfg.Notify.Desktop.Enabled {
		t.Error("desktop.enabled: got true, want false")
	}
	if len(cfg.Notify.Webhooks) != 1 || cfg.Notify.Webhooks[0].Type != "slack" {
		t.Errorf("webhooks: got %+v", cfg.Notify.Webhooks)
	}
	if cfg.Status.Listen != "127.0.0.1:9808" {
		t.Errorf("status.listen: got %q", cfg.Status.Listen)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format: got %q", cfg.Log.Format)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadValid(t, `
opsgenie:
  api_key: "abc123"
`)

	if cfg.OpsGenie.BasePath != DefaultBasePath {
		t.Errorf("default base_path: got %q, want %q", cfg.OpsGenie.BasePath, DefaultBasePath)
	}
	if cfg.OpsGenie.HistoryDays != DefaultHistoryDays {
		t.Errorf("default history_days: got %d, want %d", cfg.OpsGenie.HistoryDays, DefaultHistoryDays)
	}
	if cfg.OpsGenie.UpdateInterval != DefaultUpdateInterval {
		t.Errorf("default update_interval: got %v, want %v", cfg.OpsGenie.UpdateInterval, DefaultUpdateInterval)
	}
	if cfg.OpsGenie.RequestLimit != DefaultRequestLimit {
		t.Errorf("default request_limit: got %d, want %d", cfg.OpsGenie.RequestLimit, DefaultRequestLimit)
	}
	if cfg.OpsGenie.PageDelay != DefaultPageDelay {
		t.Errorf("default page_delay: got %v, want %v", cfg.OpsGenie.PageDelay, DefaultPageDelay)
	}
	if !cfg.Notify.Desktop.Enabled {
		t.Error("default desktop.enabled: got false, want true")
	}
	if cfg.Notify.Desktop.AppName != DefaultAppName {
		t.Errorf("default app_name: got %q", cfg.Notify.Desktop.AppName)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("default log.level: got %q", cfg.Log.Level)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := loadStringErr(t, "opsgenie: [unterminated"); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing key", `opsgenie: {api_key_env: "UNSET_FOR_TEST"}`},
		{"relative base path", `opsgenie: {api_key: k, base_path: "api.opsgenie.com"}`},
		{"zero history", `opsgenie: {api_key: k, history_days: 0}`},
		{"negative interval", `opsgenie: {api_key: k, update_interval: -1s}`},
		{"limit too large", `opsgenie: {api_key: k, request_limit: 101}`},
		{"limit zero", `opsgenie: {api_key: k, request_limit: 0}`},
		{"negative page delay", `opsgenie: {api_key: k, page_delay: -1s}`},
		{"unknown webhook type", "opsgenie: {api_key: k}\nnotify: {webhooks: [{type: pager, url: 'http://x'}]}"},
		{"webhook without url", "opsgenie: {api_key: k}\nnotify: {webhooks: [{type: http}]}"},
		{"unknown log level", "opsgenie: {api_key: k}\nlog: {level: loud}"},
		{"unknown log format", "opsgenie: {api_key: k}\nlog: {format: xml}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := loadStringErr(t, tc.yaml)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestValidate_RequestLimitBounds(t *testing.T) {
	for _, limit := range []int{1, MaxRequestLimit} {
		cfg := Default()
		cfg.OpsGenie.APIKey = "k"
		cfg.OpsGenie.RequestLimit = limit
		if err := cfg.Validate(); err != nil {
			t.Errorf("request_limit %d: unexpected error %v", limit, err)
		}
	}
}

func TestOpsGenieConfig_Key(t *testing.T) {
	t.Setenv("TEST_OPSGENIE_KEY", "fromenv")

	tests := []struct {
		name string
		cfg  OpsGenieConfig
		want string
	}{
		{"literal wins", OpsGenieConfig{APIKey: "literal", APIKeyEnv: "TEST_OPSGENIE_KEY"}, "literal"},
		{"from env", OpsGenieConfig{APIKeyEnv: "TEST_OPSGENIE_KEY"}, "fromenv"},
		{"nothing set", OpsGenieConfig{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Key(); got != tc.want {
				t.Errorf("Key(): got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWebhookConfig_ResolveURL(t *testing.T) {
	t.Setenv("TEAMS_URL", "https://teams.example.com/webhook")
	w := WebhookConfig{Type: "teams", URLEnv: "TEAMS_URL"}
	if got := w.ResolveURL(); got != "https://teams.example.com/webhook" {
		t.Errorf("ResolveURL(): got %q", got)
	}
}

func TestWatch_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "opsgenie: {history_days: 2}\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { reloaded <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Unparseable content must not reach onChange. Content without a key is
	// delivered as-is; the caller layers flags on top before validating.
	writeFile(t, path, "opsgenie: [unterminated\n")
	writeFile(t, path, "opsgenie: {history_days: 9}\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-reloaded:
			if c.OpsGenie.HistoryDays != 9 {
				continue
			}
			if c.OpsGenie.APIKey != "" {
				t.Errorf("api_key = %q, want empty", c.OpsGenie.APIKey)
			}
			if c.OpsGenie.RequestLimit != DefaultRequestLimit {
				t.Errorf("request_limit = %d, want default", c.OpsGenie.RequestLimit)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func loadValid(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	return Load(path)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
