package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pulsechat/pulsechat-server/internal/core"
	"github.com/pulsechat/pulsechat-server/internal/e2ee"
	"github.com/pulsechat/pulsechat-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWSRefusesMissingToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/ws")
	if err != nil {
		t.Fatalf("ws request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", resp.StatusCode)
	}
}

func TestWSRefusesBadToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/ws?token=garbage")
	if err != nil {
		t.Fatalf("ws request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestDirectMessageEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceID, aliceToken := env.registerUser(t, "alice")
	bobID, bobToken := env.registerUser(t, "bob")

	connA := env.dialWS(t, ctx, aliceToken)
	connB := env.dialWS(t, ctx, bobToken)

	// Both see a presence snapshot that includes both identities.
	var snap proto.EventPresence
	readUntilEvent(t, ctx, connB, proto.EventPresenceSnapshot, &snap)

	conv := e2ee.Direct{A: aliceID, B: bobID}
	ciphertext, err := e2ee.Encrypt("hi", conv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	sendIntent(t, ctx, connA, proto.InboundTypeSendDirect, proto.SendDirectData{
		RecipientID: bobID,
		Ciphertext:  ciphertext,
	})

	var msg proto.EventMessage
	readUntilEvent(t, ctx, connB, proto.EventMessageReceived, &msg)
	if msg.SenderID != aliceID || msg.RecipientID != bobID {
		t.Fatalf("unexpected message event: %+v", msg)
	}

	plaintext, ok := e2ee.Decrypt(msg.Ciphertext, conv)
	if !ok || plaintext != "hi" {
		t.Fatalf("ciphertext did not decrypt: %q ok=%v", plaintext, ok)
	}
}

func TestGroupSendFromNonMemberOverWire(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceID, _ := env.registerUser(t, "alice")
	_, malloryToken := env.registerUser(t, "mallory")

	group, err := env.store.CreateGroup(ctx, "insiders", aliceID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	connM := env.dialWS(t, ctx, malloryToken)

	sendIntent(t, ctx, connM, proto.InboundTypeSendGroup, proto.SendGroupData{
		GroupID:    group.ID,
		Ciphertext: "whatever",
	})

	protoErr := readUntilError(t, ctx, connM)
	if protoErr.Code != core.ErrCodeNotAMember {
		t.Fatalf("expected not_a_member, got %+v", protoErr)
	}

	messages, err := env.store.ListGroupMessages(ctx, group.ID, 10, nil)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("rejected send must persist nothing, got %d", len(messages))
	}
}

func TestTypingIndicatorOverWire(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceID, aliceToken := env.registerUser(t, "alice")
	bobID, bobToken := env.registerUser(t, "bob")

	connA := env.dialWS(t, ctx, aliceToken)
	connB := env.dialWS(t, ctx, bobToken)

	sendIntent(t, ctx, connA, proto.InboundTypeStartTyping, proto.TypingData{RecipientID: bobID})

	var typing proto.EventTyping
	readUntilEvent(t, ctx, connB, proto.EventTypingStarted, &typing)
	if typing.SenderID != aliceID {
		t.Fatalf("unexpected typing sender: %s", typing.SenderID)
	}

	// No refresh: typing_stopped arrives after the quiescence window.
	readUntilEvent(t, ctx, connB, proto.EventTypingStopped, &typing)
	if typing.SenderID != aliceID {
		t.Fatalf("unexpected typing sender on stop: %s", typing.SenderID)
	}
}

func TestPresenceSnapshotOnDisconnectOverWire(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, aliceToken := env.registerUser(t, "alice")
	bobID, bobToken := env.registerUser(t, "bob")

	connA := env.dialWS(t, ctx, aliceToken)
	connB := env.dialWS(t, ctx, bobToken)

	// Wait until alice sees bob online.
	for {
		var snap proto.EventPresence
		readUntilEvent(t, ctx, connA, proto.EventPresenceSnapshot, &snap)
		if contains(snap.Online, bobID) {
			break
		}
	}

	connB.CloseNow()

	// Within one broadcast cycle alice's snapshot no longer has bob.
	for {
		var snap proto.EventPresence
		readUntilEvent(t, ctx, connA, proto.EventPresenceSnapshot, &snap)
		if !contains(snap.Online, bobID) {
			break
		}
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
