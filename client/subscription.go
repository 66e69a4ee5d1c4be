package client

import (
	"context"
	"sync"
	"time"
)

// Subscription is a private, unbounded view of the inbound event stream
// from the moment it was created. It must be closed when its wait resolves.
type Subscription struct {
	c      *Client
	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	closed bool
}

// Subscribe registers a new subscription. A subscription made right after
// Open may still see the connect event Open produced.
func (c *Client) Subscribe() *Subscription {
	s := &Subscription{c: c, signal: make(chan struct{}, 1)}
	c.subMu.Lock()
	c.subs[s] = struct{}{}
	c.subMu.Unlock()
	return s
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.c.subMu.Lock()
	delete(s.c.subs, s)
	s.c.subMu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Event{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// Next returns the next event accepted by match, discarding the others.
// It fails with a *TimeoutError named op once timeout elapses (no deadline
// if timeout <= 0), with the context error if ctx is done, and with
// ErrClosed if the client is closed.
func (s *Subscription) Next(ctx context.Context, op string, timeout time.Duration, match Matcher) (Event, error) {
	return s.next(ctx, &TimeoutError{Op: op, Timeout: timeout}, match)
}

// NextStatus waits for the raw status byte b.
func (s *Subscription) NextStatus(ctx context.Context, b byte, timeout time.Duration) error {
	_, err := s.next(ctx, &TimeoutError{Op: "status byte", Status: b, Timeout: timeout}, RawByte(b))
	return err
}

func (s *Subscription) next(ctx context.Context, te *TimeoutError, match Matcher) (Event, error) {
	var expired <-chan time.Time
	if te.Timeout > 0 {
		t := time.NewTimer(te.Timeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		for {
			e, ok := s.pop()
			if !ok {
				break
			}
			if match(e) {
				return e, nil
			}
		}
		select {
		case <-s.signal:
		case <-expired:
			return Event{}, te
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.c.done:
			return Event{}, ErrClosed
		}
	}
}

// Expect subscribes, runs send, and waits for the next event accepted by
// match. The subscription is registered before send runs and removed when
// Expect returns.
func (c *Client) Expect(ctx context.Context, op string, timeout time.Duration, match Matcher, send func() error) (Event, error) {
	s := c.Subscribe()
	defer s.Close()
	if send != nil {
		if err := send(); err != nil {
			return Event{}, err
		}
	}
	return s.Next(ctx, op, timeout, match)
}

// Wait is Expect without a send.
func (c *Client) Wait(ctx context.Context, op string, timeout time.Duration, match Matcher) (Event, error) {
	return c.Expect(ctx, op, timeout, match, nil)
}

// ExpectStatus is Expect for a raw status byte. Timeouts carry the status.
func (c *Client) ExpectStatus(ctx context.Context, status byte, timeout time.Duration, send func() error) error {
	s := c.Subscribe()
	defer s.Close()
	if send != nil {
		if err := send(); err != nil {
			return err
		}
	}
	return s.NextStatus(ctx, status, timeout)
}
