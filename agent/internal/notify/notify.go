package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
)

// ErrMalformedAlert is returned for an alert that qualifies for a
// notification but lacks a field the notification needs.
var ErrMalformedAlert = errors.New("malformed alert")

// Urgency is the three-level notification severity. The numeric values are
// the freedesktop "urgency" hint bytes.
type Urgency uint8

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyNormal:
		return "normal"
	case UrgencyCritical:
		return "critical"
	default:
		return fmt.Sprintf("urgency(%d)", uint8(u))
	}
}

// MarshalText encodes the urgency by name.
func (u Urgency) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UrgencyFor maps an alert priority to an urgency. Unknown or absent
// priorities map to UrgencyLow.
func UrgencyFor(priority *string) Urgency {
	if priority == nil {
		return UrgencyLow
	}
	switch *priority {
	case "P1", "P2":
		return UrgencyCritical
	case "P3", "P4":
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

// Notification is what a Sink delivers.
type Notification struct {
	AlertID  string    `json:"alert_id"`
	TinyID   string    `json:"tiny_id,omitempty"`
	Summary  string    `json:"summary"`
	Urgency  Urgency   `json:"urgency"`
	Priority string    `json:"priority,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// Body returns a one-line detail string for sinks that show one.
func (n Notification) Body() string {
	switch {
	case n.Priority != "" && n.TinyID != "":
		return fmt.Sprintf("%s #%s", n.Priority, n.TinyID)
	case n.Priority != "":
		return n.Priority
	case n.TinyID != "":
		return "#" + n.TinyID
	}
	return ""
}

// NewNotification builds the notification for a. It returns an error
// wrapping ErrMalformedAlert when a has no message.
func NewNotification(a alert.Alert, now time.Time) (Notification, error) {
	if a.Message == nil {
		return Notification{}, fmt.Errorf("notify: alert %s has no message: %w", a.ID, ErrMalformedAlert)
	}
	n := Notification{
		AlertID: a.ID,
		TinyID:  a.TinyID,
		Summary: *a.Message,
		Urgency: UrgencyFor(a.Priority),
		Tags:    a.Tags,
		SentAt:  now,
	}
	if a.Priority != nil {
		n.Priority = *a.Priority
	}
	return n, nil
}

// Sink delivers notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// MultiSink delivers to every sink in order and joins their errors.
type MultiSink []Sink

// Notify sends n to every sink, even after a failure.
func (m MultiSink) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each notification as a log record.
type LogSink struct {
	Logger *slog.Logger
}

// Notify logs n; critical notifications are logged at warn level.
func (s LogSink) Notify(ctx context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Urgency == UrgencyCritical {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "notify: alert",
		"alert_id", n.AlertID,
		"tiny_id", n.TinyID,
		"urgency", n.Urgency.String(),
		"summary", n.Summary,
	)
	return nil
}
