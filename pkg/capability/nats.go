package capability

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
)

// ErrorHeader is set by responders to signal a failed invocation; the body then holds the message.
const ErrorHeader = "Capability-Error"

// NatsCapability invokes a capability over NATS request/reply.
type NatsCapability struct {
	manifest Manifest
	nc       *nats.Conn
	subject  string
}

func NewNatsCapability(m Manifest, nc *nats.Conn, subject string) *NatsCapability {
	return &NatsCapability{manifest: m, nc: nc, subject: subject}
}

func (c *NatsCapability) Manifest() Manifest { return c.manifest }

func (c *NatsCapability) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	msg, err := c.nc.RequestWithContext(ctx, c.subject, args)
	if err != nil {
		return nil, &InvocationError{Capability: c.manifest.Name, Err: err}
	}

	if msg.Header != nil && msg.Header.Get(ErrorHeader) != "" {
		return nil, &InvocationError{Capability: c.manifest.Name, Err: errors.New(string(msg.Data))}
	}
	if len(msg.Data) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(msg.Data), nil
}
