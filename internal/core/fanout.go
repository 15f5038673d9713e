package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/store"
)

// GroupDirectory is the slice of the group-membership collaborator the
// fan-out engine and the hub consume.
type GroupDirectory interface {
	GroupsFor(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
}

// FanoutEngine validates send intents, persists them and delivers the
// stored message to every reachable intended recipient. The ciphertext
// payload is opaque to it.
type FanoutEngine struct {
	messages store.MessageStore
	groups   GroupDirectory
	presence *Presence
	rooms    *roomTable
	log      *zerolog.Logger
}

// Send processes one send command. The returned CoreError is nil on
// success; persistence failure aborts the whole operation and no
// fan-out happens. Recipients who are offline are skipped silently; the
// message stays durably stored for their next history fetch.
func (e *FanoutEngine) Send(ctx context.Context, cmd *Command) (*store.Message, *CoreError) {
	msg, cerr := e.validate(cmd)
	if cerr != nil {
		return nil, cerr
	}

	if msg.GroupID != "" {
		// The realtime channel is not an authorization boundary: the
		// client UI filters by membership, the server checks anyway.
		member, err := e.groups.IsMember(ctx, msg.SenderID, msg.GroupID)
		if err != nil {
			e.log.Error().Err(err).Str("group_id", msg.GroupID).Msg("membership check failed")
			return nil, coreError(ErrCodePersistence, "membership check failed, retry")
		}
		if !member {
			return nil, coreError(ErrCodeNotAMember, "sender is not a member of the group")
		}
	}

	saved, err := e.messages.AppendMessage(ctx, msg)
	if err != nil {
		e.log.Error().Err(err).Str("sender_id", msg.SenderID).Msg("message append failed")
		return nil, coreError(ErrCodePersistence, "message not saved, retry")
	}

	if saved.Direct() {
		e.deliverDirect(cmd.Conn, saved)
	} else {
		e.deliverGroup(cmd.Conn, saved)
	}
	return saved, nil
}

func (e *FanoutEngine) validate(cmd *Command) (*store.Message, *CoreError) {
	hasRecipient := cmd.RecipientID != ""
	hasGroup := cmd.GroupID != ""
	if hasRecipient == hasGroup {
		return nil, coreError(ErrCodeInvalidIntent, "exactly one of recipient and group is required")
	}
	if cmd.Ciphertext == "" && cmd.File == nil {
		return nil, coreError(ErrCodeInvalidIntent, "message has no payload")
	}
	return &store.Message{
		SenderID:    cmd.Conn.Identity,
		RecipientID: cmd.RecipientID,
		GroupID:     cmd.GroupID,
		Ciphertext:  cmd.Ciphertext,
		File:        cmd.File,
	}, nil
}

func (e *FanoutEngine) deliverDirect(sender *Conn, msg *store.Message) {
	ev := &Event{Kind: EventDirectMessage, Message: msg}
	for _, c := range e.presence.Lookup(msg.RecipientID) {
		c.send(ev)
	}
}

// deliverGroup broadcasts to the room, minus the connection the send
// arrived on: that client renders its message optimistically and must
// not see a duplicate. The sender's other connections still receive it.
func (e *FanoutEngine) deliverGroup(sender *Conn, msg *store.Message) {
	room := e.rooms.room(msg.GroupID)
	if room == nil {
		return
	}
	ev := &Event{Kind: EventGroupMessage, Message: msg}
	for _, c := range room.Conns() {
		if c == sender {
			continue
		}
		// Subscribed but already disconnected connections are filtered
		// out by the registry.
		if !e.presence.Contains(c) {
			continue
		}
		c.send(ev)
	}
}
