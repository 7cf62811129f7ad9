package main

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/config"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/logging"
)

type intervalSetter interface {
	SetInterval(d time.Duration)
}

type syncTuner interface {
	SetHistoryDays(days int)
	SetRequestLimit(limit int)
}

// reloader applies a reloaded config file to the running components.
// Command-line flags keep precedence over the file, as at startup.
type reloader struct {
	cmd    *cli.Command
	level  *slog.LevelVar
	sched  intervalSetter
	engine syncTuner
}

// apply re-applies flags on top of updated, validates the result and pushes
// the live-tunable settings. An invalid result changes nothing.
func (r *reloader) apply(updated *config.Config) error {
	applyFlags(r.cmd, updated)
	if err := updated.Validate(); err != nil {
		return err
	}

	og := updated.OpsGenie
	if lvl, err := logging.ParseLevel(updated.Log.Level); err == nil {
		r.level.Set(lvl)
	}
	r.sched.SetInterval(og.UpdateInterval)
	r.engine.SetHistoryDays(og.HistoryDays)
	r.engine.SetRequestLimit(og.RequestLimit)

	slog.Info("config hot-reloaded",
		"log_level", updated.Log.Level,
		"update_interval", og.UpdateInterval,
		"history_days", og.HistoryDays,
		"request_limit", og.RequestLimit,
	)
	return nil
}
