package core

import "github.com/pulsechat/pulsechat-server/internal/store"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendDirect delivers a message to a single recipient.
	CommandSendDirect CommandKind = iota
	// CommandSendGroup delivers a message to all members of a group.
	CommandSendGroup
	// CommandStartTyping signals the sender began typing to a recipient.
	CommandStartTyping
	// CommandStopTyping signals the sender stopped typing.
	CommandStopTyping
)

// Command represents an action requested by a client. Conn is the
// connection the command arrived on; its identity is the authenticated
// sender.
type Command struct {
	Kind        CommandKind
	Conn        *Conn
	RecipientID Identity
	GroupID     string
	Ciphertext  string
	File        *store.FileRef
}
