package core

import "time"

// Identity is an authenticated principal ID. The core never creates or
// destroys identities; the credential gate supplies them.
type Identity = string

// Conn is one live client connection bound to exactly one identity. An
// identity may own several connections at once (multiple tabs/devices);
// delivery fans out to all of them.
type Conn struct {
	ID        string
	Identity  Identity
	CreatedAt time.Time

	// Events carries server->client events. The hub and the typing
	// coordinator write to it; the transport write loop drains it.
	// Writes never block: slow consumers drop events.
	Events chan *Event

	// rooms is the set of room IDs this connection is subscribed to.
	// Owned by the hub goroutine.
	rooms map[string]struct{}
}

// NewConn constructs a connection with initialized channels.
func NewConn(id string, identity Identity) *Conn {
	return &Conn{
		ID:        id,
		Identity:  identity,
		CreatedAt: time.Now(),
		Events:    make(chan *Event, 16),
		rooms:     make(map[string]struct{}),
	}
}

// send queues an event, dropping it if the connection is backed up.
func (c *Conn) send(ev *Event) {
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
	}
}
