// Package notify turns newly observed alerts into user notifications.
//
// Dispatcher applies the paging policy: only alerts that are open and
// explicitly unacknowledged are sent, with an Urgency derived from the alert
// priority (P1/P2 critical, P3/P4 normal, anything else low). Alerts without
// a message are skipped with ErrMalformedAlert. A failing sink never stops
// the rest of a batch.
//
// Sinks:
//   - DesktopSink: freedesktop notifications over the D-Bus session bus
//   - WebhookSink: slack | teams | http JSON posts, rate limited
//   - Hub: WebSocket broadcast with replay of recent notifications
//   - LogSink: one structured log line per notification
//   - MultiSink: fan-out to several sinks
package notify
