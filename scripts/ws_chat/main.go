// Interactive reference client. Encrypts before sending, decrypts on
// receive, and reconciles optimistic echoes against authoritative
// server events the way a UI client must.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pulsechat/pulsechat-server/internal/e2ee"
	"github.com/pulsechat/pulsechat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

// pending tracks optimistic messages awaiting their server echo, keyed
// by a locally generated temporary id.
type pending struct {
	mu       sync.Mutex
	byTempID map[string]pendingMessage
}

type pendingMessage struct {
	plaintext string
	sentAt    time.Time
}

func (p *pending) add(tempID, plaintext string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byTempID[tempID] = pendingMessage{plaintext: plaintext, sentAt: time.Now()}
}

// reconcile matches an authoritative echo against an optimistic entry
// by content and approximate time, and drops the entry so the message
// is not rendered twice.
func (p *pending) reconcile(plaintext string, ts time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for tempID, msg := range p.byTempID {
		if msg.plaintext == plaintext && ts.Sub(msg.sentAt) < 30*time.Second {
			delete(p.byTempID, tempID)
			return true
		}
	}
	return false
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "bearer token from /api/auth/login")
	selfID := flag.String("self", "", "own user id (for secret derivation)")
	peerID := flag.String("peer", "", "peer user id for direct messages")
	groupID := flag.String("group", "", "group id for group messages")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required")
	}
	if (*peerID == "") == (*groupID == "") {
		return fmt.Errorf("exactly one of -peer and -group is required")
	}

	var conv e2ee.Conversation
	if *peerID != "" {
		conv = e2ee.Direct{A: *selfID, B: *peerID}
	} else {
		conv = e2ee.Group{ID: *groupID}
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+*token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	echoes := &pending{byTempID: make(map[string]pendingMessage)}

	go func() {
		defer cancel()
		readLoop(ctx, conn, conv, *selfID, echoes)
	}()

	writeLoop(ctx, conn, conv, *peerID, *groupID, echoes)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, conv e2ee.Conversation, selfID string, echoes *pending) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if ctx.Err() != nil {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Type == proto.OutboundTypeError && outbound.Error != nil {
			fmt.Printf("!! %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventMessageReceived, proto.EventGroupMessageReceived:
			var evt proto.EventMessage
			if err := decode(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			plaintext := e2ee.DecryptOrPlaceholder(evt.Ciphertext, conv)
			if evt.SenderID == selfID && echoes.reconcile(plaintext, time.Unix(evt.TS, 0)) {
				// Already rendered optimistically.
				continue
			}
			fmt.Printf("[%s] %s\n", evt.SenderID, plaintext)
			if evt.File != nil {
				fmt.Printf("    attachment: %s (%s)\n", evt.File.URL, evt.File.Type)
			}
		case proto.EventPresenceSnapshot:
			var evt proto.EventPresence
			if err := decode(outbound.Data, &evt); err != nil {
				continue
			}
			fmt.Printf("-- online: %s\n", strings.Join(evt.Online, ", "))
		case proto.EventTypingStarted:
			var evt proto.EventTyping
			if err := decode(outbound.Data, &evt); err != nil {
				continue
			}
			fmt.Printf("-- %s is typing...\n", evt.SenderID)
		case proto.EventTypingStopped:
			var evt proto.EventTyping
			if err := decode(outbound.Data, &evt); err != nil {
				continue
			}
			fmt.Printf("-- %s stopped typing\n", evt.SenderID)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, conv e2ee.Conversation, peerID, groupID string, echoes *pending) {
	scanner := bufio.NewScanner(os.Stdin)
	seq := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		ciphertext, err := e2ee.Encrypt(text, conv)
		if err != nil {
			log.Printf("encrypt: %v", err)
			continue
		}

		var inbound proto.Inbound
		if peerID != "" {
			payload, _ := json.Marshal(proto.SendDirectData{RecipientID: peerID, Ciphertext: ciphertext})
			inbound = proto.Inbound{Type: proto.InboundTypeSendDirect, Data: payload}
		} else {
			payload, _ := json.Marshal(proto.SendGroupData{GroupID: groupID, Ciphertext: ciphertext})
			inbound = proto.Inbound{Type: proto.InboundTypeSendGroup, Data: payload}
		}

		// Optimistic render with a temporary id, reconciled (or rolled
		// back on error) against the authoritative event later.
		seq++
		tempID := fmt.Sprintf("tmp-%d-%d", time.Now().UnixNano(), seq)
		echoes.add(tempID, text)
		fmt.Printf("[me] %s\n", text)

		if err := wsjson.Write(ctx, conn, inbound); err != nil {
			log.Printf("send: %v", err)
			return
		}
	}
}

func decode(data any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
