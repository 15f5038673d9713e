package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulsechat/pulsechat-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, within time.Duration) {
	t.Helper()

	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// fakeMessageStore is an in-memory append-only message store.
type fakeMessageStore struct {
	mu     sync.Mutex
	nextID int64
	saved  []*store.Message
	fail   bool
}

func (f *fakeMessageStore) AppendMessage(_ context.Context, msg *store.Message) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, errors.New("store unavailable")
	}
	f.nextID++
	saved := *msg
	saved.ID = f.nextID
	saved.CreatedAt = time.Now()
	f.saved = append(f.saved, &saved)
	return &saved, nil
}

func (f *fakeMessageStore) ListDirectMessages(context.Context, string, string, int, *int64) ([]*store.Message, error) {
	return nil, nil
}

func (f *fakeMessageStore) ListGroupMessages(context.Context, string, int, *int64) ([]*store.Message, error) {
	return nil, nil
}

func (f *fakeMessageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// fakeGroups is an in-memory group directory.
type fakeGroups struct {
	members map[string][]string // group -> member ids
}

func (f *fakeGroups) GroupsFor(_ context.Context, userID string) ([]string, error) {
	var out []string
	for g, members := range f.members {
		for _, m := range members {
			if m == userID {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeGroups) IsMember(_ context.Context, userID, groupID string) (bool, error) {
	for _, m := range f.members[groupID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

type hubFixture struct {
	hub      *Hub
	messages *fakeMessageStore
	groups   *fakeGroups
}

func newHubFixture(t *testing.T, opts HubOptions) *hubFixture {
	t.Helper()

	messages := &fakeMessageStore{}
	groups := &fakeGroups{members: make(map[string][]string)}
	hub := NewHub(messages, groups, nil, opts)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return &hubFixture{hub: hub, messages: messages, groups: groups}
}

func (f *hubFixture) connect(t *testing.T, connID string, identity Identity) *Conn {
	t.Helper()

	c := NewConn(connID, identity)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.hub.Attach(ctx, c); err != nil {
		t.Fatalf("attach %s: %v", connID, err)
	}
	return c
}

func (f *hubFixture) send(t *testing.T, cmd *Command) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.hub.Dispatch(ctx, cmd); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}
