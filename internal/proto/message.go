package proto

import "encoding/json"

// Inbound is the envelope for intents coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeSendDirect  = "send_direct"
	InboundTypeSendGroup   = "send_group"
	InboundTypeStartTyping = "start_typing"
	InboundTypeStopTyping  = "stop_typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessageReceived      = "message_received"
	EventGroupMessageReceived = "group_message_received"
	EventPresenceSnapshot     = "presence_snapshot"
	EventTypingStarted        = "typing_started"
	EventTypingStopped        = "typing_stopped"
)

// FileRef is an opaque attachment reference. The server never inspects
// the contents behind it.
type FileRef struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// SendDirectData asks to deliver a message to one recipient.
type SendDirectData struct {
	RecipientID string   `json:"recipient_id"`
	Ciphertext  string   `json:"ciphertext"`
	File        *FileRef `json:"file,omitempty"`
}

// SendGroupData asks to deliver a message to all members of a group.
type SendGroupData struct {
	GroupID    string   `json:"group_id"`
	Ciphertext string   `json:"ciphertext"`
	File       *FileRef `json:"file,omitempty"`
}

// TypingData identifies the recipient of a typing signal.
type TypingData struct {
	RecipientID string `json:"recipient_id"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage carries one persisted message. Exactly one of
// RecipientID and GroupID is set, matching the destination.
type EventMessage struct {
	ID          int64    `json:"id"`
	SenderID    string   `json:"sender_id"`
	RecipientID string   `json:"recipient_id,omitempty"`
	GroupID     string   `json:"group_id,omitempty"`
	Ciphertext  string   `json:"ciphertext"`
	File        *FileRef `json:"file,omitempty"`
	TS          int64    `json:"ts"`
}

// EventPresence carries the full online-identity snapshot.
type EventPresence struct {
	Online []string `json:"online"`
}

// EventTyping identifies who is typing to the receiving client.
type EventTyping struct {
	SenderID string `json:"sender_id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
