package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testMessage struct {
	value string
}

func (testMessage) Type() string { return "test" }

type recordingActor struct {
	id       string
	mu       sync.Mutex
	received []string
	fail     bool
}

func (a *recordingActor) ID() string                      { return a.id }
func (a *recordingActor) Start(ctx context.Context) error { return nil }
func (a *recordingActor) Stop(ctx context.Context) error  { return nil }

func (a *recordingActor) Receive(ctx context.Context, msg Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.received = append(a.received, msg.(testMessage).value)
	if a.fail {
		return errors.New("intentional failure")
	}
	return nil
}

func (a *recordingActor) messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.received))
	copy(out, a.received)
	return out
}

func TestActorProcessesInOrder(t *testing.T) {
	ctx := context.Background()
	system := NewSystem()

	rec := &recordingActor{id: "rec"}
	ref, err := system.Spawn(ctx, "rec", rec, 16)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	for _, v := range []string{"a", "b", "c"} {
		if err := ref.Send(testMessage{value: v}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	if err := system.StopAll(ctx); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	got := rec.messages()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Expected ordered delivery [a b c], got %v", got)
	}
}

func TestStopDrainsMailbox(t *testing.T) {
	ctx := context.Background()
	rec := &recordingActor{id: "drain"}
	ref := NewActorRef("drain", rec, 32)
	if err := ref.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 20; i++ {
		if err := ref.Send(testMessage{value: "msg"}); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ref.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := len(rec.messages()); got != 20 {
		t.Errorf("Expected all 20 queued messages processed before stop, got %d", got)
	}
}

func TestSendAfterStopFails(t *testing.T) {
	ctx := context.Background()
	ref := NewActorRef("stopped", &recordingActor{id: "stopped"}, 4)
	if err := ref.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := ref.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := ref.Send(testMessage{value: "late"}); err == nil {
		t.Error("Expected error sending to stopped actor")
	}
}

func TestSendFullMailbox(t *testing.T) {
	// Never started, so nothing consumes the mailbox.
	ref := NewActorRef("full", &recordingActor{id: "full"}, 1)
	if err := ref.Send(testMessage{value: "one"}); err != nil {
		t.Fatalf("First send should fit: %v", err)
	}
	if err := ref.Send(testMessage{value: "two"}); err == nil {
		t.Error("Expected error when mailbox is full")
	}
}

func TestReceiveErrorDoesNotStopActor(t *testing.T) {
	ctx := context.Background()
	rec := &recordingActor{id: "failing", fail: true}
	ref := NewActorRef("failing", rec, 8)
	if err := ref.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for _, v := range []string{"x", "y"} {
		if err := ref.Send(testMessage{value: v}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	if err := ref.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := len(rec.messages()); got != 2 {
		t.Errorf("Actor must keep processing after errors, got %d messages", got)
	}
}

func TestSpawnDuplicateID(t *testing.T) {
	ctx := context.Background()
	system := NewSystem()
	t.Cleanup(func() { system.StopAll(ctx) })

	if _, err := system.Spawn(ctx, "dup", &recordingActor{id: "dup"}, 4); err != nil {
		t.Fatalf("First spawn failed: %v", err)
	}
	if _, err := system.Spawn(ctx, "dup", &recordingActor{id: "dup"}, 4); err == nil {
		t.Error("Expected error spawning duplicate actor ID")
	}
}

func TestSystemGet(t *testing.T) {
	ctx := context.Background()
	system := NewSystem()
	t.Cleanup(func() { system.StopAll(ctx) })

	if _, err := system.Spawn(ctx, "known", &recordingActor{id: "known"}, 4); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if _, ok := system.Get("known"); !ok {
		t.Error("Expected to find spawned actor")
	}
	if _, ok := system.Get("unknown"); ok {
		t.Error("Did not expect to find unspawned actor")
	}
}
