package transport

import (
	"context"
	"sync"
)

// Memory is an in-process transport. Bytes written by the client are handed
// to OnWrite; bytes for the client are queued with Inject. Drop and Restore
// simulate the device going away and coming back.
type Memory struct {
	life *lifecycle
	rx   chan []byte

	mu      sync.Mutex
	onWrite func([]byte)
	written [][]byte
}

// NewMemory returns a disconnected in-memory transport.
func NewMemory() *Memory {
	return &Memory{
		life: newLifecycle(),
		rx:   make(chan []byte, receiveBufferSize),
	}
}

// OnWrite installs the device side of the link. fn runs synchronously on
// the writer's goroutine and may call Inject.
func (m *Memory) OnWrite(fn func([]byte)) {
	m.mu.Lock()
	m.onWrite = fn
	m.mu.Unlock()
}

func (m *Memory) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.life.set(StateConnected)
	return nil
}

func (m *Memory) Disconnect() error {
	m.life.set(StateDisconnected)
	return nil
}

func (m *Memory) Write(p []byte) error {
	if m.life.get() != StateConnected {
		return ErrNotConnected
	}
	buf := append([]byte(nil), p...)
	m.mu.Lock()
	m.written = append(m.written, buf)
	fn := m.onWrite
	m.mu.Unlock()
	if fn != nil {
		fn(buf)
	}
	return nil
}

// Inject queues p for the client.
func (m *Memory) Inject(p []byte) {
	m.rx <- append([]byte(nil), p...)
}

// Drop reports the link as lost without a Disconnect call.
func (m *Memory) Drop() { m.life.set(StateDisconnected) }

// Restore reports the link as re-established.
func (m *Memory) Restore() { m.life.set(StateConnected) }

// Written returns a copy of every write so far.
func (m *Memory) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	copy(out, m.written)
	return out
}

func (m *Memory) Receive() <-chan []byte  { return m.rx }
func (m *Memory) Lifecycle() <-chan State { return m.life.ch }
func (m *Memory) State() State            { return m.life.get() }
