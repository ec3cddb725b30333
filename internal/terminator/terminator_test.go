package terminator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"chaos-pinger/internal/cluster"
)

func testConfig(killCommand []string) Config {
	return Config{
		ListTimeout: 100 * time.Millisecond,
		KillTimeout: time.Second,
		KillCommand: killCommand,
	}
}

func TestKillerRunsCommand(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "killed")

	registry := cluster.New(time.Second)
	registry.Register("127.0.0.1:9000", 1)

	k := New(registry, testConfig([]string{"touch", marker}))
	k.Kill(context.Background())

	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected kill command to run: %v", err)
	}
	if !k.Terminating() {
		t.Error("expected terminating flag to be set")
	}
}

func TestKillerIdempotent(t *testing.T) {
	dir := t.TempDir()

	k := New(nil, testConfig([]string{"sh", "-c", "mktemp -p " + dir}))

	k.Kill(context.Background())
	k.Kill(context.Background())

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one effective termination, got %d", len(entries))
	}
}

func TestKillerConcurrentKills(t *testing.T) {
	dir := t.TempDir()

	k := New(nil, testConfig([]string{"sh", "-c", "mktemp -p " + dir}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Kill(context.Background())
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected at most one effective termination, got %d", len(entries))
	}
}

func TestKillerNilRegistry(t *testing.T) {
	// Enumeration failure is swallowed; the kill still proceeds
	marker := filepath.Join(t.TempDir(), "killed")

	k := New(nil, testConfig([]string{"touch", marker}))
	k.Kill(context.Background())

	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected kill to proceed without registry: %v", err)
	}
}

func TestKillerNoCommand(t *testing.T) {
	k := New(nil, testConfig(nil))

	// Does not panic; flag is still set so later kills are no-ops
	k.Kill(context.Background())

	if !k.Terminating() {
		t.Error("expected terminating flag even without a command")
	}
}

func TestKillerCommandFailureLogged(t *testing.T) {
	// A failing command must not panic or propagate
	k := New(nil, testConfig([]string{"false"}))
	k.Kill(context.Background())

	if !k.Terminating() {
		t.Error("expected terminating flag after failed command")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.ListTimeout != 3*time.Second {
		t.Errorf("expected list timeout 3s, got %v", config.ListTimeout)
	}
	if config.KillTimeout != 10*time.Second {
		t.Errorf("expected kill timeout 10s, got %v", config.KillTimeout)
	}
	if len(config.KillCommand) == 0 {
		t.Error("expected a default kill command")
	}
}
