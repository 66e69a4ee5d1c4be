package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bryangrimes/node-cubelets/protocol"
)

type sent struct {
	at  time.Time
	msg protocol.Message
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	busy bool
}

func (r *recordingSender) Send(m protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{at: time.Now(), msg: m})
	return nil
}

func (r *recordingSender) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

func (r *recordingSender) setBusy(b bool) {
	r.mu.Lock()
	r.busy = b
	r.mu.Unlock()
}

func (r *recordingSender) snapshot() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

func waitSent(t *testing.T, r *recordingSender, n int) []sent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := r.snapshot(); len(s) >= n {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sent %d commands, want %d", len(r.snapshot()), n)
	return nil
}

func TestQueueCoalesces(t *testing.T) {
	q := NewCommandQueue(&recordingSender{}, time.Second)

	a := &protocol.SetLEDCommand{ID: 1, Enable: false}
	other := &protocol.SetBlockValueCommand{ID: 2, Value: 5}
	b := &protocol.SetLEDCommand{ID: 1, Enable: true}

	q.Push(a)
	q.Push(other)
	q.Push(b)

	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	snap := q.Snapshot()
	if snap[0] != protocol.Message(b) {
		t.Errorf("first to send = %#v, want replacement in A's slot", snap[0])
	}
	if snap[1] != protocol.Message(other) {
		t.Errorf("second to send = %#v", snap[1])
	}
}

func TestQueueUnrelatedGoesToFront(t *testing.T) {
	q := NewCommandQueue(&recordingSender{}, time.Second)

	a := &protocol.SetLEDCommand{ID: 1}
	c := &protocol.ClassicResetCommand{}
	q.Push(a)
	q.Push(c)

	q.mu.Lock()
	front := q.items[0]
	q.mu.Unlock()
	if front != protocol.Message(c) {
		t.Errorf("front = %#v, want the unrelated command", front)
	}
}

func TestQueueDrainsFIFOAtInterval(t *testing.T) {
	r := &recordingSender{}
	q := NewCommandQueue(r, 100*time.Millisecond)

	cmds := []protocol.Message{
		&protocol.SetLEDCommand{ID: 1, Enable: true},
		&protocol.SetLEDCommand{ID: 2, Enable: true},
		&protocol.SetBlockValueCommand{ID: 3, Value: 1},
	}
	for _, m := range cmds {
		q.Push(m)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	got := waitSent(t, r, 3)
	for i, m := range cmds {
		if got[i].msg != m {
			t.Errorf("send %d = %#v, want %#v", i, got[i].msg, m)
		}
	}
	for i := 1; i < len(got); i++ {
		if gap := got[i].at.Sub(got[i-1].at); gap < 80*time.Millisecond {
			t.Errorf("gap %d = %s, want about 100ms", i, gap)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after drain", q.Len())
	}
}

func TestQueueWaitsWhileBusy(t *testing.T) {
	r := &recordingSender{busy: true}
	q := NewCommandQueue(r, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Push(&protocol.ClassicResetCommand{})
	time.Sleep(60 * time.Millisecond)
	if n := len(r.snapshot()); n != 0 {
		t.Fatalf("sent %d commands while busy", n)
	}
	r.setBusy(false)
	waitSent(t, r, 1)
}

func TestQueueRunStopsOnCancel(t *testing.T) {
	q := NewCommandQueue(&recordingSender{}, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
