package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/store"
)

// Hub is the connection lifecycle manager. It owns the presence
// registry and the room table and is the only writer to either:
// attach, detach and send commands from all connections are serialized
// through a single goroutine, so per-connection command order is
// preserved end to end and presence snapshots broadcast in the order
// the transitions happened.
type Hub struct {
	presence *Presence
	rooms    *roomTable
	typing   *TypingCoordinator
	fanout   *FanoutEngine
	groups   GroupDirectory
	log      *zerolog.Logger

	attach   chan attachReq
	detach   chan *Conn
	commands chan *Command
	done     chan struct{}
}

// ErrHubStopped is returned for lifecycle calls made after Run exited.
var ErrHubStopped = errors.New("hub stopped")

type attachReq struct {
	conn  *Conn
	rooms []string
}

// HubOptions tunes hub behavior.
type HubOptions struct {
	// TypingQuiescence is how long a typing flag survives without a
	// refresh before typing_stopped fires.
	TypingQuiescence time.Duration
}

// DefaultTypingQuiescence is used when HubOptions leaves it zero.
const DefaultTypingQuiescence = 2 * time.Second

// NewHub constructs a hub over the given collaborators.
func NewHub(messages store.MessageStore, groups GroupDirectory, logger *zerolog.Logger, opts HubOptions) *Hub {
	if opts.TypingQuiescence <= 0 {
		opts.TypingQuiescence = DefaultTypingQuiescence
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	presence := NewPresence()
	rooms := newRoomTable()
	return &Hub{
		presence: presence,
		rooms:    rooms,
		typing:   NewTypingCoordinator(presence, opts.TypingQuiescence),
		fanout: &FanoutEngine{
			messages: messages,
			groups:   groups,
			presence: presence,
			rooms:    rooms,
			log:      logger,
		},
		groups:   groups,
		log:      logger,
		attach:   make(chan attachReq),
		detach:   make(chan *Conn),
		commands: make(chan *Command),
		done:     make(chan struct{}),
	}
}

// Presence exposes the registry for read-side collaborators (REST
// presence queries, tests). Mutation stays inside the hub.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Attach resolves the identity's group subscriptions and hands the
// connection to the hub loop, which registers presence and subscribes
// the rooms in one step. The caller must have authenticated the
// identity already; an unauthenticated connection never reaches here.
// Group membership is resolved once, at setup: changes take effect on
// the next reconnect.
func (h *Hub) Attach(ctx context.Context, c *Conn) error {
	roomIDs, err := h.groups.GroupsFor(ctx, c.Identity)
	if err != nil {
		return err
	}

	select {
	case h.attach <- attachReq{conn: c, rooms: roomIDs}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// Detach removes the connection. Safe to call for a connection that was
// never attached or is already detached, and returns immediately once
// the hub loop has exited so deferred teardown never hangs a handler.
func (h *Hub) Detach(c *Conn) {
	select {
	case h.detach <- c:
	case <-h.done:
	}
}

// Dispatch submits a client command for processing. Commands from one
// connection are processed in submission order.
func (h *Hub) Dispatch(ctx context.Context, cmd *Command) error {
	select {
	case h.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// Run processes lifecycle and send events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case req := <-h.attach:
			h.handleAttach(req)
		case c := <-h.detach:
			h.handleDetach(c)
		case cmd := <-h.commands:
			h.handleCommand(ctx, cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleAttach(req attachReq) {
	c := req.conn
	h.presence.Register(c)
	h.rooms.subscribe(c, req.rooms)
	h.broadcastPresence()

	h.log.Info().
		Str("conn_id", c.ID).
		Str("user_id", c.Identity).
		Int("rooms", len(req.rooms)).
		Msg("connection attached")
}

func (h *Hub) handleDetach(c *Conn) {
	h.rooms.unsubscribeAll(c)
	h.presence.Unregister(c)
	h.broadcastPresence()

	h.log.Info().
		Str("conn_id", c.ID).
		Str("user_id", c.Identity).
		Msg("connection detached")
}

func (h *Hub) handleCommand(ctx context.Context, cmd *Command) {
	switch cmd.Kind {
	case CommandSendDirect, CommandSendGroup:
		if _, cerr := h.fanout.Send(ctx, cmd); cerr != nil {
			cmd.Conn.send(&Event{Kind: EventError, Error: cerr})
		}
	case CommandStartTyping:
		if cmd.RecipientID == "" {
			cmd.Conn.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidIntent, "recipient is required")})
			return
		}
		h.typing.Start(cmd.Conn.Identity, cmd.RecipientID)
	case CommandStopTyping:
		if cmd.RecipientID == "" {
			cmd.Conn.send(&Event{Kind: EventError, Error: coreError(ErrCodeInvalidIntent, "recipient is required")})
			return
		}
		h.typing.Stop(cmd.Conn.Identity, cmd.RecipientID)
	}
}

// broadcastPresence pushes the current online snapshot to every
// registered connection. O(N) per presence change; fine for a single
// chat server.
func (h *Hub) broadcastPresence() {
	ev := &Event{Kind: EventPresenceSnapshot, Online: h.presence.Snapshot()}
	for _, c := range h.presence.All() {
		c.send(ev)
	}
}
