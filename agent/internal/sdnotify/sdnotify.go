// Package sdnotify reports service lifecycle to systemd when the agent runs
// as a Type=notify unit. Outside systemd every call is a no-op.
package sdnotify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
}

// New returns a Notifier. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Ready reports that startup finished.
func (n *Notifier) Ready() error {
	return n.send(daemon.SdNotifyReady)
}

// Watchdog pets the service watchdog.
func (n *Notifier) Watchdog() error {
	return n.send(daemon.SdNotifyWatchdog)
}

// Stopping reports that shutdown has begun.
func (n *Notifier) Stopping() error {
	return n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) error {
	return n.send("STATUS=" + fmt.Sprintf(format, args...))
}

// WatchdogInterval returns the configured watchdog timeout, or 0 when the
// unit has no watchdog.
func (n *Notifier) WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("sdnotify: read watchdog settings", "err", err)
		return 0
	}
	return d
}

// KeepAlive pets the watchdog at half its timeout until ctx is cancelled.
// It returns immediately when no watchdog is configured.
func (n *Notifier) KeepAlive(ctx context.Context) {
	interval := n.WatchdogInterval() / 2
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := n.Watchdog(); err != nil {
				n.logger.Warn("sdnotify: watchdog", "err", err)
			}
		}
	}
}

func (n *Notifier) send(state string) error {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		return fmt.Errorf("sdnotify: %s: %w", state, err)
	}
	if sent {
		n.logger.Debug("sdnotify: sent", "state", state)
	}
	return nil
}
