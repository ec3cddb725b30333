package cluster

import (
	"context"
	"testing"
	"time"
)

func TestRegistryRegister(t *testing.T) {
	r := New(time.Second)

	p := r.Register("127.0.0.1:9000", 1234)

	if p.ID == "" {
		t.Error("expected non-empty peer ID")
	}
	if p.Addr != "127.0.0.1:9000" {
		t.Errorf("expected addr 127.0.0.1:9000, got %s", p.Addr)
	}
	if p.PID != 1234 {
		t.Errorf("expected pid 1234, got %d", p.PID)
	}
	if r.Size() != 1 {
		t.Errorf("expected size 1, got %d", r.Size())
	}
}

func TestRegistryUniqueIDs(t *testing.T) {
	r := New(time.Second)

	p1 := r.Register("127.0.0.1:9000", 1)
	p2 := r.Register("127.0.0.1:9001", 2)

	if p1.ID == p2.ID {
		t.Errorf("expected distinct peer IDs, both were %s", p1.ID)
	}
	if r.Size() != 2 {
		t.Errorf("expected size 2, got %d", r.Size())
	}
}

func TestRegistryDeregister(t *testing.T) {
	r := New(time.Second)

	p := r.Register("127.0.0.1:9000", 1)

	if err := r.Deregister(p.ID); err != nil {
		t.Errorf("failed to deregister: %v", err)
	}
	if r.Size() != 0 {
		t.Errorf("expected size 0, got %d", r.Size())
	}

	// Deregistering an unknown peer should fail
	if err := r.Deregister("nope"); err == nil {
		t.Error("expected error for unknown peer")
	}
}

func TestRegistryGet(t *testing.T) {
	r := New(time.Second)

	p := r.Register("127.0.0.1:9000", 1)

	got, ok := r.Get(p.ID)
	if !ok {
		t.Fatal("expected peer to exist")
	}
	if got.Addr != p.Addr {
		t.Errorf("expected addr %s, got %s", p.Addr, got.Addr)
	}

	if _, ok := r.Get("unknown"); ok {
		t.Error("expected unknown peer to be absent")
	}
}

func TestRegistryLive(t *testing.T) {
	r := New(50 * time.Millisecond)

	p1 := r.Register("127.0.0.1:9000", 1)
	_ = r.Register("127.0.0.1:9001", 2)

	if r.LiveCount() != 2 {
		t.Errorf("expected 2 live peers, got %d", r.LiveCount())
	}

	// Let both go stale, then refresh only one
	time.Sleep(80 * time.Millisecond)

	if !r.Heartbeat(p1.ID) {
		t.Error("expected heartbeat to succeed")
	}

	live := r.Live()
	if len(live) != 1 {
		t.Fatalf("expected 1 live peer, got %d", len(live))
	}
	if live[0].ID != p1.ID {
		t.Errorf("expected live peer %s, got %s", p1.ID, live[0].ID)
	}

	// Registry still holds both entries
	if r.Size() != 2 {
		t.Errorf("expected size 2, got %d", r.Size())
	}
}

func TestRegistryHeartbeatUnknown(t *testing.T) {
	r := New(time.Second)

	if r.Heartbeat("unknown") {
		t.Error("expected heartbeat for unknown peer to fail")
	}
}

func TestRegistrySweeper(t *testing.T) {
	r := New(20 * time.Millisecond)

	r.Register("127.0.0.1:9000", 1)

	ctx := context.Background()
	r.StartSweeper(ctx)
	defer r.StopSweeper()

	// Peer goes silent for longer than 3x TTL and gets swept
	time.Sleep(120 * time.Millisecond)

	if r.Size() != 0 {
		t.Errorf("expected stale peer to be swept, size %d", r.Size())
	}
}

func TestRegistryDefaultTTL(t *testing.T) {
	r := New(0)
	if r.ttl != DefaultTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultTTL, r.ttl)
	}
}
