package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/config"
)

// loadConfig reads the config file, if any, applies explicitly set flags on
// top and validates the result.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag given on the command line or
// through its environment variable.
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	og := &cfg.OpsGenie
	if key := cmd.String("api-key"); key != "" {
		og.APIKey = key
	}
	if cmd.IsSet("history") {
		og.HistoryDays = int(cmd.Int("history"))
	}
	if cmd.IsSet("interval") {
		og.UpdateInterval = time.Duration(cmd.Int("interval")) * time.Second
	}
	if cmd.IsSet("request-limit") {
		og.RequestLimit = int(cmd.Int("request-limit"))
	}
	if cmd.IsSet("base-path") {
		og.BasePath = cmd.String("base-path")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("status-listen") {
		cfg.Status.Listen = cmd.String("status-listen")
	}
	if cmd.IsSet("grpc-listen") {
		cfg.Status.GRPCListen = cmd.String("grpc-listen")
	}
	if cmd.Bool("no-desktop") {
		cfg.Notify.Desktop.Enabled = false
	}
}
