package http

import (
	"encoding/json"

	"github.com/pulsechat/pulsechat-server/internal/core"
	"github.com/pulsechat/pulsechat-server/internal/proto"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

func inboundToCommand(client *core.Conn, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeSendDirect:
		var data proto.SendDirectData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RecipientID == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidIntent, Msg: "recipient_id is required"}, nil
		}
		return &core.Command{
			Kind:        core.CommandSendDirect,
			Conn:        client,
			RecipientID: data.RecipientID,
			Ciphertext:  data.Ciphertext,
			File:        fileRefFromProto(data.File),
		}, nil, nil
	case proto.InboundTypeSendGroup:
		var data proto.SendGroupData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.GroupID == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidIntent, Msg: "group_id is required"}, nil
		}
		return &core.Command{
			Kind:       core.CommandSendGroup,
			Conn:       client,
			GroupID:    data.GroupID,
			Ciphertext: data.Ciphertext,
			File:       fileRefFromProto(data.File),
		}, nil, nil
	case proto.InboundTypeStartTyping, proto.InboundTypeStopTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RecipientID == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidIntent, Msg: "recipient_id is required"}, nil
		}
		kind := core.CommandStartTyping
		if inbound.Type == proto.InboundTypeStopTyping {
			kind = core.CommandStopTyping
		}
		return &core.Command{
			Kind:        kind,
			Conn:        client,
			RecipientID: data.RecipientID,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventDirectMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageReceived,
			Data:  eventMessageFromStore(event.Message),
		}
	case core.EventGroupMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventGroupMessageReceived,
			Data:  eventMessageFromStore(event.Message),
		}
	case core.EventPresenceSnapshot:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPresenceSnapshot,
			Data:  proto.EventPresence{Online: event.Online},
		}
	case core.EventTypingStarted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTypingStarted,
			Data:  proto.EventTyping{SenderID: event.Peer},
		}
	case core.EventTypingStopped:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTypingStopped,
			Data:  proto.EventTyping{SenderID: event.Peer},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventMessageFromStore(msg *store.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		GroupID:     msg.GroupID,
		Ciphertext:  msg.Ciphertext,
		TS:          msg.CreatedAt.Unix(),
	}
	if msg.File != nil {
		out.File = &proto.FileRef{URL: msg.File.URL, Type: msg.File.Type}
	}
	return out
}

func fileRefFromProto(f *proto.FileRef) *store.FileRef {
	if f == nil {
		return nil
	}
	return &store.FileRef{URL: f.URL, Type: f.Type}
}
