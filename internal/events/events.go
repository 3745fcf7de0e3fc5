// Package events publishes fest's application events (request errors, route
// table rebuilds, export runs) to slog and optionally to NATS.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Type names an event.
type Type string

const (
	RequestError      Type = "request.error"
	RouteTableRebuilt Type = "route_table.rebuilt"
	RouteTableFailed  Type = "route_table.failed"
	ExportCompleted   Type = "export.completed"
)

// Event is one application event.
type Event struct {
	Type   Type           `json:"type"`
	Time   time.Time      `json:"time"`
	Fields map[string]any `json:"fields,omitempty"`
}

// New creates an event stamped with the current time.
func New(t Type, fields map[string]any) Event {
	return Event{Type: t, Time: time.Now().UTC(), Fields: fields}
}

// Notifier receives application events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes events to a slog logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, ev Event) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]slog.Attr, 0, len(ev.Fields)+1)
	attrs = append(attrs, slog.String("event", string(ev.Type)))
	for k, v := range ev.Fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	level := slog.LevelInfo
	if ev.Type == RequestError || ev.Type == RouteTableFailed {
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx, level, "event", attrs...)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit sends ev to n, logging instead of returning a delivery failure.
func Emit(ctx context.Context, n Notifier, t Type, fields map[string]any) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, New(t, fields)); err != nil {
		slog.Warn("event delivery failed", slog.String("event", string(t)), slog.String("error", err.Error()))
	}
}
