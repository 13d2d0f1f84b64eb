package events

import (
	"testing"
	"time"
)

func mustReadEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestHubPublishAssignsSequence(t *testing.T) {
	hub := NewHub(HubConfig{})
	_, ch, unsub, _ := hub.ReplayAndSubscribe(0)
	t.Cleanup(unsub)

	first := hub.Publish(Event{Type: TypeStateChanged})
	second := hub.Publish(Event{Type: TypeBatchStarted, BatchID: "b1"})
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("expected seq 1 and 2, got %d and %d", first.Seq, second.Seq)
	}
	if first.TS.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	if ev := mustReadEvent(t, ch); ev.Type != TypeStateChanged {
		t.Fatalf("expected state_changed, got %q", ev.Type)
	}
	if ev := mustReadEvent(t, ch); ev.BatchID != "b1" {
		t.Fatalf("expected batch id b1, got %q", ev.BatchID)
	}
	if hub.LastSeq() != 2 {
		t.Fatalf("expected last seq 2, got %d", hub.LastSeq())
	}
}

func TestHubReplaysSinceSequence(t *testing.T) {
	hub := NewHub(HubConfig{ReplaySize: 10})
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Type: TypeUnitCompleted})
	}

	replay, _, unsub, truncated := hub.ReplayAndSubscribe(3)
	t.Cleanup(unsub)
	if truncated {
		t.Fatalf("expected no truncation")
	}
	if len(replay) != 2 || replay[0].Seq != 4 || replay[1].Seq != 5 {
		t.Fatalf("expected events 4 and 5, got %+v", replay)
	}
}

func TestHubReportsTruncatedReplay(t *testing.T) {
	hub := NewHub(HubConfig{ReplaySize: 3})
	for i := 0; i < 6; i++ {
		hub.Publish(Event{Type: TypeUnitCompleted})
	}

	replay, _, unsub, truncated := hub.ReplayAndSubscribe(1)
	t.Cleanup(unsub)
	if !truncated {
		t.Fatalf("expected truncated replay")
	}
	if len(replay) != 3 || replay[0].Seq != 4 {
		t.Fatalf("expected last 3 events starting at 4, got %+v", replay)
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(HubConfig{SubscriberBufSize: 1})
	_, ch, unsub, _ := hub.ReplayAndSubscribe(0)
	t.Cleanup(unsub)

	done := make(chan struct{})
	go func() {
		hub.Publish(Event{Type: TypeUnitCompleted})
		hub.Publish(Event{Type: TypeUnitCompleted})
		hub.Publish(Event{Type: TypeUnitCompleted})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected publish to never block on a full subscriber")
	}
	if ev := mustReadEvent(t, ch); ev.Seq != 1 {
		t.Fatalf("expected first buffered event, got seq %d", ev.Seq)
	}
}
