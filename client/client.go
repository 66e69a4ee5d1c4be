// Package client runs the host side of one link: it frames outbound
// messages, decodes the inbound stream in the active protocol mode, and
// offers the request/response and event-wait primitives every higher layer
// is built from.
//
// # Usage
//
//	c := client.New(transport.NewSerial(transport.SerialConfig{Port: "/dev/rfcomm0"}))
//	if err := c.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	resp, err := c.Request(ctx, &protocol.ClassicNeighborsRequest{})
//
// # Waiting
//
// Every wait goes through a Subscription: it is registered before the
// triggering write, sees every inbound event from then on, and is removed
// when the wait resolves by match, timeout or cancellation.
//
// # Modes
//
// Exactly one protocol mode is active. Send refuses messages from another
// mode, and the Jump functions perform the legal transitions
// CLASSIC <-> BOOTSTRAP <-> IMAGO.
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryangrimes/node-cubelets/logging"
	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/transport"
)

// DefaultRequestTimeout bounds Request.
const DefaultRequestTimeout = 5 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a logger for link traffic.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = logging.OrNop(l) }
}

// WithRequestTimeout sets the deadline used by Request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithMode sets the initial protocol mode (CLASSIC by default).
func WithMode(m protocol.Mode) Option {
	return func(c *Client) {
		if m.Valid() {
			c.mode = m
		}
	}
}

// Client is the host end of one transport.
type Client struct {
	tr             transport.Transport
	log            logging.Logger
	requestTimeout time.Duration
	dec            *protocol.Decoder

	modeMu sync.Mutex
	mode   protocol.Mode

	subMu sync.Mutex
	subs  map[*Subscription]struct{}

	reqMu sync.Mutex
	held  atomic.Int32

	openMu sync.Mutex
	opened bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New returns a client over tr. Call Open before use.
func New(tr transport.Transport, opts ...Option) *Client {
	if tr == nil {
		panic("transport cannot be nil")
	}
	c := &Client{
		tr:             tr,
		log:            logging.Nop,
		requestTimeout: DefaultRequestTimeout,
		mode:           protocol.ModeClassic,
		subs:           make(map[*Subscription]struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dec = protocol.NewDecoder(protocol.HostSet(c.mode), protocol.Handlers{
		Message: func(m protocol.Message) {
			if u, ok := m.(*protocol.Unparsed); ok {
				c.log.Debug("unparsed frame", "mode", u.Mode().String(), "code", fmt.Sprintf("0x%02X", u.Code()), "len", len(u.Payload))
			}
			c.publish(Event{Kind: EventMessage, Message: m})
		},
		Raw: func(b byte) {
			c.publish(Event{Kind: EventRaw, Raw: b})
		},
		Error: func(err error) {
			c.log.Error("decode error", "error", err)
			c.publish(Event{Kind: EventDecodeError, Err: err})
		},
	})
	return c
}

// Open connects the transport and starts the inbound pump.
func (c *Client) Open(ctx context.Context) error {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if c.opened {
		return nil
	}
	if err := c.tr.Connect(ctx); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	c.opened = true
	c.wg.Add(1)
	go c.pump()
	return nil
}

// Close stops the pump and disconnects the transport. Pending waits fail
// with ErrClosed.
func (c *Client) Close() error {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)
	err := c.tr.Disconnect()
	c.wg.Wait()
	return err
}

func (c *Client) pump() {
	defer c.wg.Done()
	rx, life := c.tr.Receive(), c.tr.Lifecycle()
	for {
		select {
		case p := <-rx:
			_, _ = c.dec.Write(p)
		case s := <-life:
			switch s {
			case transport.StateConnected:
				c.log.Info("link connected")
				c.publish(Event{Kind: EventConnect, State: s})
			case transport.StateDisconnected:
				c.log.Info("link disconnected")
				c.publish(Event{Kind: EventDisconnect, State: s})
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) publish(e Event) {
	c.subMu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.subMu.Unlock()
	for _, s := range subs {
		s.push(e)
	}
}

// Mode returns the active protocol mode.
func (c *Client) Mode() protocol.Mode {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return c.mode
}

// SetMode switches local framing to m without talking to the device.
func (c *Client) SetMode(m protocol.Mode) {
	c.modeMu.Lock()
	prev := c.mode
	c.mode = m
	c.modeMu.Unlock()
	c.dec.SetMessageSet(protocol.HostSet(m))
	if prev != m {
		c.log.Debug("protocol mode", "from", prev.String(), "to", m.String())
	}
}

// SetRawMode turns byte-at-a-time delivery on or off.
func (c *Client) SetRawMode(raw bool) {
	c.dec.SetRaw(raw)
}

// Send frames and writes msg. It fails with a *ProtocolModeError if msg
// belongs to another mode.
func (c *Client) Send(msg protocol.Message) error {
	if cur := c.Mode(); msg.Mode() != cur {
		return &ProtocolModeError{Op: "send", Current: cur, Required: msg.Mode(), Reported: NoReport}
	}
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// WriteRaw writes p unframed.
func (c *Client) WriteRaw(p []byte) error {
	return c.write(p)
}

func (c *Client) write(p []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if err := c.tr.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Request sends req and waits up to the client's request timeout for the
// matching response.
func (c *Client) Request(ctx context.Context, req protocol.Request) (protocol.Message, error) {
	return c.RequestTimeout(ctx, req, c.requestTimeout)
}

// RequestTimeout sends req and waits up to d for the matching response.
// Only one request is outstanding at a time; concurrent callers queue.
func (c *Client) RequestTimeout(ctx context.Context, req protocol.Request, d time.Duration) (protocol.Message, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	op := fmt.Sprintf("%s response 0x%02X", req.Mode(), req.ResponseCode())
	e, err := c.Expect(ctx, op, d, responseTo(req), func() error { return c.Send(req) })
	if err != nil {
		return nil, err
	}
	return e.Message, nil
}

func responseTo(req protocol.Request) Matcher {
	addressed, hasID := req.(protocol.Addressed)
	return func(e Event) bool {
		if e.Kind != EventMessage {
			return false
		}
		m := e.Message
		if m.Kind() != protocol.KindResponse || m.Mode() != req.Mode() || m.Code() != req.ResponseCode() {
			return false
		}
		if hasID {
			a, ok := m.(protocol.Addressed)
			return ok && a.DeviceID() == addressed.DeviceID()
		}
		return true
	}
}

// Hold marks the link as exclusively owned until the returned release
// function is called. The command queue does not transmit while held.
func (c *Client) Hold() func() {
	c.held.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { c.held.Add(-1) })
	}
}

// Busy reports whether the link is held.
func (c *Client) Busy() bool {
	return c.held.Load() > 0
}
