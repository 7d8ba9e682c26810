package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/amishk599/applynow/internal/model"
)

// Ensure NATSNotifier implements model.Notifier.
var _ model.Notifier = (*NATSNotifier)(nil)

// DefaultNATSSubject is where alerts are published when none is configured.
const DefaultNATSSubject = "applynow.alerts"

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier hands alerts to an external bot process over NATS.
type NATSNotifier struct {
	conn    Publisher
	subject string
	logger  *slog.Logger
}

// AlertMessage is the payload published for each alert.
type AlertMessage struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url string, timeout time.Duration) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("applynow-dispatcher"),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return conn, nil
}

// NewNATSNotifier returns a notifier publishing on subject.
func NewNATSNotifier(conn Publisher, subject string, logger *slog.Logger) *NATSNotifier {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSNotifier{conn: conn, subject: subject, logger: logger}
}

// Send publishes one AlertMessage.
func (n *NATSNotifier) Send(_ context.Context, subscriberID int64, text string) error {
	data, err := json.Marshal(AlertMessage{UserID: subscriberID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal alert message: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", n.subject, err)
	}
	n.logger.Debug("published alert", "subject", n.subject, "user_id", subscriberID)
	return nil
}
