// Package logging builds the process slog handler.
//
// "json" uses slog's JSON handler; "text" renders through
// charmbracelet/log for a readable console. Both honour a shared LevelVar so
// the level can change on config reload, and both add the cycle id carried
// by the context, if any.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type ctxKey struct{}

// WithCycle returns a context whose log records carry cycle=id.
func WithCycle(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CycleID returns the cycle id stored by WithCycle, or "".
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ParseLevel converts debug | info | warn | error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q", s)
}

// New returns a logger writing to w in format ("text" or "json"), filtered
// by level.
func New(w io.Writer, format string, level *slog.LevelVar) (*slog.Logger, error) {
	var inner slog.Handler
	switch format {
	case "json":
		inner = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case "text", "":
		inner = charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
			Level:           charmlog.DebugLevel,
		})
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	return slog.New(&handler{inner: inner, level: level}), nil
}

// handler applies the dynamic level and injects the cycle id.
type handler struct {
	inner slog.Handler
	level slog.Leveler
}

func (h *handler) Enabled(ctx context.Context, l slog.Level) bool {
	if h.level != nil && l < h.level.Level() {
		return false
	}
	return h.inner.Enabled(ctx, l)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if id := CycleID(ctx); id != "" {
		r = r.Clone()
		r.AddAttrs(slog.String("cycle", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{inner: h.inner.WithAttrs(attrs), level: h.level}
}

func (h *handler) WithGroup(name string) slog.Handler {
	return &handler{inner: h.inner.WithGroup(name), level: h.level}
}
