package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/auth"
	"github.com/pulsechat/pulsechat-server/internal/config"
	"github.com/pulsechat/pulsechat-server/internal/core"
	"github.com/pulsechat/pulsechat-server/internal/proto"
	"github.com/pulsechat/pulsechat-server/internal/store/sqlite"
)

// testEnv is a fully wired server over an in-memory store.
type testEnv struct {
	ts      *httptest.Server
	store   *sqlite.SQLiteStore
	service *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	service := auth.NewService(st, jwtConfig)
	gate := auth.NewGate(jwtConfig, time.Second)

	logger := zerolog.Nop()
	hub := core.NewHub(st, st, &logger, core.HubOptions{
		TypingQuiescence: 200 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, gate, service, st, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, service: service}
}

// registerUser creates an account and returns its user id and token.
func (e *testEnv) registerUser(t *testing.T, username string) (string, string) {
	t.Helper()

	token, err := e.service.Register(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	claims, err := e.service.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	return claims.UserID, token
}

// dialWS opens an authenticated realtime connection.
func (e *testEnv) dialWS(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// readUntilEvent reads outbound frames until one matches the wanted
// event name, decoding its data into out.
func readUntilEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, out any) {
	t.Helper()

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			t.Fatalf("read waiting for %s: %v", event, err)
		}
		if outbound.Type == proto.OutboundTypeError {
			t.Fatalf("unexpected error frame waiting for %s: %+v", event, outbound.Error)
		}
		if outbound.Event != event {
			continue
		}
		if out == nil {
			return
		}
		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			t.Fatalf("marshal data: %v", err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("unmarshal %s data: %v", event, err)
		}
		return
	}
}

// readUntilError reads outbound frames until an error frame arrives.
func readUntilError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			t.Fatalf("read waiting for error: %v", err)
		}
		if outbound.Type == proto.OutboundTypeError {
			return outbound.Error
		}
	}
}

func sendIntent(t *testing.T, ctx context.Context, conn *websocket.Conn, intentType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: intentType, Data: payload}); err != nil {
		t.Fatalf("write intent: %v", err)
	}
}
