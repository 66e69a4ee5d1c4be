package transport

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func expectState(t *testing.T, ch <-chan State, want State) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("state = %s, want %s", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func TestMemoryWriteRequiresConnection(t *testing.T) {
	m := NewMemory()
	if err := m.Write([]byte{1}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Write before Connect = %v, want ErrNotConnected", err)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	m.OnWrite(func(p []byte) {
		m.Inject(append([]byte("echo:"), p...))
	})
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	expectState(t, m.Lifecycle(), StateConnected)

	if err := m.Write([]byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case got := <-m.Receive():
		if !bytes.Equal(got, []byte("echo:hi")) {
			t.Errorf("received %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing received")
	}

	written := m.Written()
	if len(written) != 1 || !bytes.Equal(written[0], []byte("hi")) {
		t.Errorf("Written = %q", written)
	}
}

func TestMemoryDropRestore(t *testing.T) {
	m := NewMemory()
	_ = m.Connect(context.Background())
	expectState(t, m.Lifecycle(), StateConnected)

	m.Drop()
	expectState(t, m.Lifecycle(), StateDisconnected)
	if m.State() != StateDisconnected {
		t.Errorf("State = %s", m.State())
	}
	m.Restore()
	expectState(t, m.Lifecycle(), StateConnected)

	// repeated states are not reported twice
	m.Restore()
	select {
	case s := <-m.Lifecycle():
		t.Errorf("unexpected state change %s", s)
	default:
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateFailed:       "failed",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
