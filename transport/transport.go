// Package transport provides the byte links a client runs over: serial
// ports, TCP sockets, WebSocket bridges and an in-memory pair for tests.
//
// A Transport is an ordered, reliable byte stream once connected. It
// reports every change of link state on Lifecycle so callers can observe a
// device dropping off and coming back after a reset.
package transport

import (
	"context"
	"errors"
	"sync"
)

// State describes the current link status.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned by Write while the link is down.
var ErrNotConnected = errors.New("transport: not connected")

const (
	receiveBufferSize   = 1024
	lifecycleBufferSize = 64
)

// Transport is the abstraction over the physical links.
// Implementations must be safe for concurrent use.
type Transport interface {
	// Connect establishes the link. Once connected, a lost link is
	// re-established in the background until Disconnect is called.
	Connect(ctx context.Context) error

	// Disconnect tears down the link and stops reconnecting.
	Disconnect() error

	// Write sends p in order.
	Write(p []byte) error

	// Receive returns the channel of inbound byte chunks.
	Receive() <-chan []byte

	// Lifecycle returns the channel of link state changes.
	Lifecycle() <-chan State

	// State returns the current link state.
	State() State
}

// lifecycle tracks a link state and fans changes out on a buffered channel.
// Changes are dropped if nobody drains the channel.
type lifecycle struct {
	mu    sync.Mutex
	state State
	ch    chan State
}

func newLifecycle() *lifecycle {
	return &lifecycle{ch: make(chan State, lifecycleBufferSize)}
}

func (l *lifecycle) set(s State) {
	l.mu.Lock()
	changed := l.state != s
	l.state = s
	l.mu.Unlock()
	if !changed {
		return
	}
	select {
	case l.ch <- s:
	default:
	}
}

func (l *lifecycle) get() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
