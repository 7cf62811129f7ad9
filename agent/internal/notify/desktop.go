package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsMethod = notificationsName + ".Notify"
)

// busCaller is the part of dbus.BusObject DesktopSink uses.
type busCaller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DesktopOptions configures a DesktopSink.
type DesktopOptions struct {
	AppName string
	Icon    string

	// ExpireTimeout is how long the popup stays up; zero or negative lets
	// the notification server decide.
	ExpireTimeout time.Duration
}

// DesktopSink shows notifications through the freedesktop notification
// service on the session bus.
type DesktopSink struct {
	obj  busCaller
	opts DesktopOptions
}

// NewDesktopSink connects to the session bus.
func NewDesktopSink(opts DesktopOptions) (*DesktopSink, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("notify: connect session bus: %w", err)
	}
	return &DesktopSink{
		obj:  conn.Object(notificationsName, notificationsPath),
		opts: opts,
	}, nil
}

// Notify sends n to the notification server.
func (s *DesktopSink) Notify(ctx context.Context, n Notification) error {
	expire := int32(-1)
	if s.opts.ExpireTimeout > 0 {
		expire = int32(s.opts.ExpireTimeout / time.Millisecond)
	}
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(n.Urgency)),
	}

	call := s.obj.CallWithContext(ctx, notificationsMethod, 0,
		s.opts.AppName,
		uint32(0), // replaces_id
		s.opts.Icon,
		n.Summary,
		n.Body(),
		[]string{}, // actions
		hints,
		expire,
	)
	if call.Err != nil {
		return fmt.Errorf("notify: desktop: %w", call.Err)
	}
	return nil
}
