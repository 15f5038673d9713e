package core

import "github.com/pulsechat/pulsechat-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventDirectMessage delivers a persisted direct message.
	EventDirectMessage EventKind = iota
	// EventGroupMessage delivers a persisted group message.
	EventGroupMessage
	// EventPresenceSnapshot carries the full set of online identities.
	EventPresenceSnapshot
	// EventTypingStarted notifies that a peer began typing.
	EventTypingStarted
	// EventTypingStopped notifies that a peer stopped typing or went quiet.
	EventTypingStopped
	// EventError surfaces a domain error to one client.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message *store.Message // non-nil for message events
	Online  []Identity     // non-nil for presence snapshots
	Peer    Identity       // sender for typing events
	Error   *CoreError     // non-nil for EventError
}
