package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "fest.events"

// NATSNotifier publishes events as JSON on "<subject>.<event type>".
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to url.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	if url == "" {
		return nil, ferrors.ValidationError("nats url is required").Build()
	}
	conn, err := nats.Connect(url,
		nats.Name("fest"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to NATS").WithContext("url", url).Build()
	}
	return newNATSNotifier(conn, subject), nil
}

func newNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	slog.Info("NATS event sink initialized", "url", conn.ConnectedUrl(), "subject", subject)
	return &NATSNotifier{conn: conn, subject: strings.TrimSuffix(subject, ".")}
}

// Subject returns the subject an event type is published on.
func (n *NATSNotifier) Subject(t Type) string {
	return n.subject + "." + string(t)
}

func (n *NATSNotifier) Notify(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.conn.Publish(n.Subject(ev.Type), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// Open returns the log notifier, fanned out to NATS when url is set. A NATS
// connection failure is logged and the log notifier is used alone. The
// returned func closes the NATS connection.
func Open(url, subject string) (Notifier, func() error) {
	logSink := LogNotifier{}
	if url == "" {
		return logSink, func() error { return nil }
	}
	n, err := NewNATSNotifier(url, subject)
	if err != nil {
		slog.Warn("NATS event sink unavailable; logging events only", "url", url, "error", err)
		return logSink, func() error { return nil }
	}
	return Multi{logSink, n}, n.Close
}
