package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHubPublisherBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{ID: "c1", UserID: "u1", Events: make(chan Event, 4)}
	hub.Register(client)

	pub := NewHubPublisher(hub)
	err := pub.Publish(context.Background(), []StockChanged{{
		ItemID: "item-1", Code: "W-001",
		Total: decimal.NewFromInt(6), Reserved: decimal.Zero, Free: decimal.NewFromInt(6),
		Reason: "PRODUCTION_IN", Reference: "2026PJ0001",
	}})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-client.Events:
		if ev.EventType != EventStockChanged {
			t.Errorf("event type = %s", ev.EventType)
		}
		var got StockChanged
		if err := json.Unmarshal([]byte(ev.Data), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Code != "W-001" || !got.Free.Equal(decimal.NewFromInt(6)) {
			t.Errorf("unexpected payload %+v", got)
		}
	default:
		t.Fatal("expected an event")
	}

	hub.Unregister("c1")
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d", hub.ClientCount())
	}
	if _, ok := <-client.Events; ok {
		t.Error("channel should be closed after unregister")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{ID: "c1", Events: make(chan Event, 1)}
	hub.Register(client)

	hub.Broadcast(Event{EventType: "a"})
	hub.Broadcast(Event{EventType: "b"})

	if len(client.Events) != 1 {
		t.Fatalf("buffered = %d, want 1", len(client.Events))
	}
	if ev := <-client.Events; ev.EventType != "a" {
		t.Errorf("kept %s, want first event", ev.EventType)
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, []StockChanged) error {
	f.calls++
	return context.DeadlineExceeded
}

func TestFanoutSwallowsErrors(t *testing.T) {
	bad := &failingPublisher{}
	hub := NewHub(nil)
	f := NewFanout(nil, bad, NewHubPublisher(hub))
	if err := f.Publish(context.Background(), []StockChanged{{ItemID: "x"}}); err != nil {
		t.Fatalf("fanout should not fail: %v", err)
	}
	if bad.calls != 1 {
		t.Errorf("calls = %d", bad.calls)
	}
}
