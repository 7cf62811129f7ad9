package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alertsync"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/config"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/logging"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/metrics"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/notify"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/opsgenie"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/scheduler"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/sdnotify"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/status"
)

const shutdownTimeout = 5 * time.Second

// run wires every component from cfg and blocks until ctx is cancelled.
func run(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
	levelVar := new(slog.LevelVar)
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	levelVar.Set(level)
	logger, err := logging.New(os.Stderr, cfg.Log.Format, levelVar)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	og := cfg.OpsGenie
	slog.Info("opsgenie-agent starting",
		"version", version,
		"base_path", og.BasePath,
		"history_days", og.HistoryDays,
		"update_interval", og.UpdateInterval,
		"request_limit", og.RequestLimit,
	)

	client, err := opsgenie.New(opsgenie.Options{
		APIKey:  og.Key(),
		BaseURL: og.BasePath,
		Timeout: og.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	store := alert.NewStore()
	m := metrics.New()
	engine := alertsync.NewEngine(store, client, alertsync.Options{
		HistoryDays:  og.HistoryDays,
		RequestLimit: og.RequestLimit,
		PageDelay:    og.PageDelay,
		Metrics:      m,
		Logger:       logger,
	})

	var hub *notify.Hub
	if cfg.Status.Listen != "" {
		hub = notify.NewHub(notify.DefaultReplay)
	}
	sink, err := buildSink(cfg.Notify, hub, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(store, sink, m, logger)

	tracker := status.NewTracker()
	sd := sdnotify.New(logger)
	var grpcHealth *status.GRPCHealth

	sched := scheduler.New(engine, dispatcher, scheduler.Options{
		Interval: og.UpdateInterval,
		Metrics:  m,
		Logger:   logger,
		OnCycle: func(res scheduler.CycleResult) {
			tracker.Observe(res)
			if grpcHealth != nil {
				grpcHealth.SetServing(res.Err == nil)
			}
			warnSD(logger, "watchdog", sd.Watchdog())
			warnSD(logger, "status", sd.Status("%d alerts known, last cycle %s", store.Len(), tracker.Snapshot().State))
		},
	})

	// Side services stop when run returns.
	svcCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()

	var httpSrv *http.Server
	if cfg.Status.Listen != "" {
		lis, err := net.Listen("tcp", cfg.Status.Listen)
		if err != nil {
			return fmt.Errorf("status listen %s: %w", cfg.Status.Listen, err)
		}
		httpSrv = &http.Server{
			Handler: status.New(status.Deps{
				Store:          store,
				Tracker:        tracker,
				Metrics:        m,
				Hub:            hub,
				SchedulerState: func() string { return sched.State().String() },
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go hub.Run(svcCtx)
		go func() {
			slog.Info("status API listening", "addr", lis.Addr().String())
			if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status API error", "err", err)
			}
		}()
	}

	if cfg.Status.GRPCListen != "" {
		lis, err := net.Listen("tcp", cfg.Status.GRPCListen)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", cfg.Status.GRPCListen, err)
		}
		grpcHealth = status.NewGRPCHealth()
		go func() {
			slog.Info("gRPC health listening", "addr", lis.Addr().String())
			if err := grpcHealth.Serve(lis); err != nil {
				slog.Error("gRPC health error", "err", err)
			}
		}()
	}

	if path := cmd.String("config"); path != "" {
		go func() {
			r := &reloader{cmd: cmd, level: levelVar, sched: sched, engine: engine}
			err := config.Watch(svcCtx, path, func(updated *config.Config) {
				if err := r.apply(updated); err != nil {
					slog.Error("config reload rejected", "err", err)
				}
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	go sd.KeepAlive(svcCtx)
	warnSD(logger, "ready", sd.Ready())

	runErr := sched.Run(ctx)

	slog.Info("opsgenie-agent shutting down")
	warnSD(logger, "stopping", sd.Stopping())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("status API shutdown", "err", err)
		}
	}
	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	return runErr
}

// warnSD logs a failed service manager notification. The agent keeps running.
func warnSD(logger *slog.Logger, state string, err error) {
	if err != nil {
		logger.Warn("sdnotify failed", "state", state, "err", err)
	}
}

// buildSink assembles the configured notification sinks. With nothing else
// configured, notifications are only logged.
func buildSink(cfg config.NotifyConfig, hub *notify.Hub, logger *slog.Logger) (notify.Sink, error) {
	var sinks notify.MultiSink

	if cfg.Desktop.Enabled {
		desktop, err := notify.NewDesktopSink(notify.DesktopOptions{
			AppName:       cfg.Desktop.AppName,
			Icon:          cfg.Desktop.Icon,
			ExpireTimeout: cfg.Desktop.ExpireTimeout,
		})
		if err != nil {
			// Headless hosts still get the other sinks.
			logger.Warn("desktop notifications unavailable", "err", err)
		} else {
			sinks = append(sinks, desktop)
		}
	}

	if len(cfg.Webhooks) > 0 {
		targets := make([]notify.WebhookTarget, 0, len(cfg.Webhooks))
		for _, wh := range cfg.Webhooks {
			url := wh.ResolveURL()
			if url == "" {
				logger.Warn("webhook url is empty, skipping", "type", wh.Type, "url_env", wh.URLEnv)
				continue
			}
			targets = append(targets, notify.WebhookTarget{Type: wh.Type, URL: url})
		}
		if len(targets) > 0 {
			ws, err := notify.NewWebhookSink(targets, cfg.WebhookRate, nil)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, ws)
		}
	}

	if hub != nil {
		sinks = append(sinks, hub)
	}

	if len(sinks) == 0 || (len(sinks) == 1 && hub != nil) {
		sinks = append(sinks, notify.LogSink{Logger: logger})
	}
	return sinks, nil
}
