// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{OpsGenie, Notify, Status, Log}: full config tree parsed from YAML
//   - OpsGenieConfig: api_key / api_key_env, base_path, history_days,
//     update_interval, request_limit, request_timeout, page_delay
//   - NotifyConfig: desktop (D-Bus) settings, webhook targets and their
//     shared delivery rate
//   - StatusConfig: optional HTTP and gRPC health listen addresses
//   - LogConfig: level and format (text|json)
//
// Load(path) reads the YAML file over Default(). Validate() is separate so
// command-line flags can override file values before the result is checked;
// every validation failure wraps ErrInvalid.
//
// Watch(ctx, path, onChange) uses fsnotify on the parent directory and calls
// onChange with each successfully reloaded and validated Config.
package config
