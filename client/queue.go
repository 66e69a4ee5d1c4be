package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bryangrimes/node-cubelets/logging"
	"github.com/bryangrimes/node-cubelets/protocol"
)

// DefaultCommandInterval is the minimum spacing between queued commands.
const DefaultCommandInterval = 100 * time.Millisecond

const busyPoll = 10 * time.Millisecond

// Sender is what a CommandQueue transmits through. *Client implements it.
type Sender interface {
	Send(msg protocol.Message) error
	Busy() bool
}

// CommandQueue is a rate-limited, coalescing buffer for fire-and-forget
// commands. New commands go to the front; sending takes from the back, so
// commands that never coalesce go out in the order they were pushed. A
// queued command implementing protocol.Prioritizer is replaced in place by
// a newer command it ranks above zero.
type CommandQueue struct {
	sender  Sender
	limiter *rate.Limiter
	log     logging.Logger

	mu     sync.Mutex
	items  []protocol.Message
	signal chan struct{}
}

// NewCommandQueue returns a queue sending at most one command per interval.
func NewCommandQueue(s Sender, interval time.Duration) *CommandQueue {
	if interval <= 0 {
		interval = DefaultCommandInterval
	}
	return &CommandQueue{
		sender:  s,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     logging.Nop,
		signal:  make(chan struct{}, 1),
	}
}

// SetLogger sets a logger for send failures.
func (q *CommandQueue) SetLogger(l logging.Logger) {
	q.log = logging.OrNop(l)
}

// Push queues cmd.
func (q *CommandQueue) Push(cmd protocol.Message) {
	q.mu.Lock()
	replaced := false
	for i, queued := range q.items {
		if p, ok := queued.(protocol.Prioritizer); ok && p.Prioritize(cmd) > 0 {
			q.items[i] = cmd
			replaced = true
			break
		}
	}
	if !replaced {
		q.items = append(q.items, nil)
		copy(q.items[1:], q.items)
		q.items[0] = cmd
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns the queued commands in send order.
func (q *CommandQueue) Snapshot() []protocol.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]protocol.Message, len(q.items))
	for i, m := range q.items {
		out[len(out)-1-i] = m
	}
	return out
}

func (q *CommandQueue) pop() protocol.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n == 0 {
		return nil
	}
	m := q.items[n-1]
	q.items = q.items[:n-1]
	return m
}

// Run drains the queue until ctx is done. Nothing is sent while the sender
// is busy.
func (q *CommandQueue) Run(ctx context.Context) error {
	for {
		if q.Len() == 0 {
			select {
			case <-q.signal:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := q.limiter.Wait(ctx); err != nil {
			return err
		}
		for q.sender.Busy() {
			select {
			case <-time.After(busyPoll):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		cmd := q.pop()
		if cmd == nil {
			continue
		}
		if err := q.sender.Send(cmd); err != nil {
			q.log.Error("queued command failed", "mode", cmd.Mode().String(), "code", cmd.Code(), "error", err)
		}
	}
}
