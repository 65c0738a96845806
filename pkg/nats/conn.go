package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const StreamName = "EVENTS"

// StreamSubjects are captured by the EVENTS stream.
var StreamSubjects = []string{"events.>", "usage.>"}

// Connect dials NATS with the reconnect policy shared by the publisher,
// the subscriber and capability request/reply.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}
