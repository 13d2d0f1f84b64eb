package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"screenplay-wizard/internal/application/events"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*Message
	err  error
	sent chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, stream Stream, msg *Message) (string, error) {
	p.mu.Lock()
	p.msgs = append(p.msgs, msg)
	p.mu.Unlock()
	p.sent <- struct{}{}
	if p.err != nil {
		return "", p.err
	}
	return "1-0", nil
}

func TestJournalForwardsFinishedBatchesOnly(t *testing.T) {
	hub := events.NewHub(events.HubConfig{})
	// 启动前的事件不转发
	hub.Publish(events.Event{Type: events.TypeBatchFinished, BatchID: "old"})

	pub := &recordingPublisher{sent: make(chan struct{}, 4)}
	j := NewJournal(hub, pub, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	// 等待订阅建立
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("journal did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(events.Event{Type: events.TypeUnitCompleted, BatchID: "b1"})
	hub.Publish(events.Event{
		Type:        events.TypeBatchFinished,
		BatchID:     "b1",
		ProjectPath: "film-1",
		Data:        map[string]int{"succeeded": 3},
	})

	select {
	case <-pub.sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a published message")
	}
	cancel()
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.ID != "b1" || msg.ProjectPath != "film-1" || msg.Type != string(events.TypeBatchFinished) {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Metadata["seq"] != "3" {
		t.Fatalf("expected seq 3, got %q", msg.Metadata["seq"])
	}
	var payload map[string]int
	if err := msg.UnmarshalPayload(&payload); err != nil || payload["succeeded"] != 3 {
		t.Fatalf("unexpected payload %v (%v)", payload, err)
	}
}

func TestJournalSurvivesPublishErrors(t *testing.T) {
	hub := events.NewHub(events.HubConfig{})
	pub := &recordingPublisher{sent: make(chan struct{}, 4), err: errors.New("redis down")}
	j := NewJournal(hub, pub, "custom")

	ev := hub.Publish(events.Event{Type: events.TypeBatchFinished, BatchID: "b2"})
	j.forward(context.Background(), ev)
	j.forward(context.Background(), ev)

	if len(pub.msgs) != 2 {
		t.Fatalf("expected both attempts to reach the publisher, got %d", len(pub.msgs))
	}
	if j.stream != "custom" {
		t.Fatalf("expected custom stream, got %s", j.stream)
	}
}
