package api

import (
	"encoding/json"
	"testing"

	"github.com/talgya/streetsim/internal/game"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	ch := h.subscribe()
	defer h.unsubscribe(ch)

	events := []game.Event{
		{Seq: 1, Round: 1, Type: game.EventDiceRolled, Player: 1, Die: 3},
		{Seq: 2, Round: 1, Type: game.EventTileLanded, Player: 1, Tile: 3},
	}
	h.Broadcast(events)

	payload := <-ch
	var got []game.Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || got[0].Die != 3 || got[1].Tile != 3 {
		t.Fatalf("events = %+v", got)
	}

	// Empty batches are dropped.
	h.Broadcast(nil)
	select {
	case p := <-ch:
		t.Fatalf("unexpected payload %s", p)
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.subscribe()

	events := []game.Event{{Seq: 1, Round: 1, Type: game.EventTurnSettled, Player: 1}}
	// Fill the buffer without reading; the next broadcast closes us out.
	for i := 0; i < 64; i++ {
		h.Broadcast(events)
	}
	h.Broadcast(events)

	drained := 0
	for range ch {
		drained++
	}
	if drained != 64 {
		t.Fatalf("drained %d payloads, want 64", drained)
	}
	// Unsubscribing an already-dropped channel is a no-op.
	h.unsubscribe(ch)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		remote string
		xff    string
		want   string
	}{
		{"10.0.0.1:4321", "", "10.0.0.1"},
		{"10.0.0.1:4321", "203.0.113.9", "203.0.113.9"},
		{"10.0.0.1:4321", "203.0.113.9, 198.51.100.2", "203.0.113.9"},
	}
	for _, tc := range cases {
		r := newRequest(t, tc.remote, tc.xff)
		if got := clientIP(r); got != tc.want {
			t.Fatalf("clientIP(remote=%s xff=%q) = %s, want %s", tc.remote, tc.xff, got, tc.want)
		}
	}
}
