package memory

import (
	"context"
	"testing"
	"time"

	"screenplay-wizard/internal/domain/entity"
)

func TestMirrorRoundTripIsolatesSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(0)

	state := entity.NewProjectState("guest")
	state.ProjectPath = "heist"
	state.Structure["act_1"] = entity.Act{Name: "Setup"}
	if err := m.Put(ctx, "guest", state); err != nil {
		t.Fatalf("Put: %v", err)
	}
	state.Structure["act_1"] = entity.Act{Name: "Changed"}

	got, err := m.Get(ctx, "guest")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ProjectPath != "heist" {
		t.Fatalf("expected snapshot for heist, got %+v", got)
	}
	if got.Structure["act_1"].Name != "Setup" {
		t.Fatalf("expected snapshot to be isolated from later mutation, got %q", got.Structure["act_1"].Name)
	}
}

func TestMirrorMissingAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(0)

	got, err := m.Get(ctx, "nobody")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for missing mirror, got %v %v", got, err)
	}

	_ = m.Put(ctx, "guest", entity.NewProjectState("guest"))
	if err := m.Clear(ctx, "guest"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := m.Get(ctx, "guest"); got != nil {
		t.Fatalf("expected mirror to be cleared")
	}
}

func TestMirrorExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_ = m.Put(ctx, "guest", entity.NewProjectState("guest"))
	now = now.Add(2 * time.Minute)
	if got, _ := m.Get(ctx, "guest"); got != nil {
		t.Fatalf("expected expired snapshot to be dropped")
	}
}
