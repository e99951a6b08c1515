package relay

import (
	"sync"

	relay "github.com/nurtureme/support-relay/internal/model/relay"
)

// Client is one live connection registered with the relay. The id is
// assigned by the relay at accept time and doubles as the session id
// for user connections. Outbound events are drained from Events() by
// a single writer owned by the transport layer.
type Client struct {
	id   string
	role relay.Role

	mu     sync.Mutex
	closed bool
	events chan relay.Event
}

// ID returns the opaque connection id.
func (c *Client) ID() string { return c.id }

// Role returns the role fixed at accept time.
func (c *Client) Role() relay.Role { return c.role }

// Events exposes the outbound event stream. The channel is closed when
// the client is removed or the relay shuts down.
func (c *Client) Events() <-chan relay.Event { return c.events }

// Send queues an event for delivery without blocking. It reports false
// when the client is closed or its buffer is full; delivery is
// fire-and-forget either way.
func (c *Client) Send(evt relay.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- evt:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}
