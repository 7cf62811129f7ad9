package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "opsgenie-agent:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "opsgenie-agent",
		Usage:   "poll OpsGenie and raise desktop notifications for new alerts",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (defaults are used when empty)",
				Sources: cli.EnvVars("OPSGENIE_AGENT_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Aliases: []string{"k"},
				Usage:   "OpsGenie API key",
				Sources: cli.EnvVars("OPSGENIE_API_KEY"),
			},
			&cli.IntFlag{
				Name:  "history",
				Usage: "days of closed alerts to load on startup",
				Value: 7,
			},
			&cli.IntFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "seconds between updates",
				Value:   60,
			},
			&cli.IntFlag{
				Name:  "request-limit",
				Usage: "alerts per page request (max 100)",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  "base-path",
				Usage: "OpsGenie API base URL",
				Value: "https://api.opsgenie.com",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug | info | warn | error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text | json",
			},
			&cli.StringFlag{
				Name:  "status-listen",
				Usage: "listen address for the status HTTP API (disabled when empty)",
			},
			&cli.StringFlag{
				Name:  "grpc-listen",
				Usage: "listen address for the gRPC health service (disabled when empty)",
			},
			&cli.BoolFlag{
				Name:  "no-desktop",
				Usage: "do not send desktop notifications",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return run(ctx, cmd, cfg)
		},
	}
}
