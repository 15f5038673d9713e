package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func benchmarkGroupFanout(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := &fakeMessageStore{}
	members := []string{"sender"}
	for i := 0; i < recipients; i++ {
		members = append(members, fmt.Sprintf("user-%d", i))
	}
	groups := &fakeGroups{members: map[string][]string{"bench": members}}

	hub := NewHub(messages, groups, nil, HubOptions{})
	go hub.Run(ctx)

	attach := func(connID, identity string) *Conn {
		c := NewConn(connID, identity)
		attachCtx, attachCancel := context.WithTimeout(ctx, 2*time.Second)
		defer attachCancel()
		if err := hub.Attach(attachCtx, c); err != nil {
			b.Fatalf("attach: %v", err)
		}
		return c
	}

	sender := attach("conn-sender", "sender")

	conns := make([]*Conn, 0, recipients)
	for i := 0; i < recipients; i++ {
		conns = append(conns, attach(fmt.Sprintf("conn-%d", i), fmt.Sprintf("user-%d", i)))
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := conns[0]
	for _, c := range conns[1:] {
		go func(cl *Conn) {
			for range cl.Events {
			}
		}(c)
	}
	go func() {
		for range sender.Events {
		}
	}()

	// Drop queued presence snapshots from setup so the buffer is empty.
	for len(target.Events) > 0 {
		<-target.Events
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := hub.Dispatch(ctx, &Command{
			Kind:       CommandSendGroup,
			Conn:       sender,
			GroupID:    "bench",
			Ciphertext: "payload",
		}); err != nil {
			b.Fatalf("dispatch: %v", err)
		}
		for {
			ev := <-target.Events
			if ev.Kind == EventGroupMessage {
				break
			}
		}
	}
}

func BenchmarkGroupFanout_10(b *testing.B)  { benchmarkGroupFanout(b, 10) }
func BenchmarkGroupFanout_100(b *testing.B) { benchmarkGroupFanout(b, 100) }
func BenchmarkGroupFanout_500(b *testing.B) { benchmarkGroupFanout(b, 500) }
