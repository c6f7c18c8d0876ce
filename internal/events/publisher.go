package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Lifecycle event types published for control-plane consumption.
const (
	TypeStreamProvisioned   = "stream.provisioned"
	TypeStreamDeprovisioned = "stream.deprovisioned"
	TypeSessionEnded        = "session.ended"
	TypeSessionExpired      = "session.expired"
)

type Event struct {
	Type      string    `json:"type"`
	TenantID  string    `json:"tenantId"`
	CameraID  string    `json:"cameraId"`
	SessionID string    `json:"sessionId,omitempty"`
	Version   int64     `json:"version,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers lifecycle events. Publishing is best-effort; callers
// log failures and move on.
type Publisher interface {
	Publish(evt Event) error
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(Event) error { return nil }

// NATSPublisher publishes events to a single subject with bounded retry.
type NATSPublisher struct {
	conn       *nats.Conn
	subject    string
	maxRetries int
}

func NewNATSPublisher(conn *nats.Conn, subject string, maxRetries int) *NATSPublisher {
	return &NATSPublisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
	}
}

func (p *NATSPublisher) Publish(evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(p.subject, data)
		if err == nil {
			return nil
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}

	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, err)
}
