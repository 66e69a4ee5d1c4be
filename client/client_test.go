package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/transport"
)

// fakeDevice answers framed requests decoded against the device set of the
// mode it is told to speak, and passes unframed writes to onRaw.
type fakeDevice struct {
	t     *testing.T
	mem   *transport.Memory
	mode  protocol.Mode
	onMsg func(protocol.Message)
	onRaw func([]byte)
}

func newTestClient(t *testing.T, dev *fakeDevice, opts ...Option) *Client {
	t.Helper()
	dev.t = t
	dev.mem = transport.NewMemory()
	dev.mem.OnWrite(func(p []byte) {
		if len(p) >= protocol.FrameOverhead && p[0] == protocol.StartOfFrame {
			m, err := protocol.DecodeFrame(protocol.DeviceSet(dev.mode), p)
			if err == nil && dev.onMsg != nil {
				dev.onMsg(m)
				return
			}
		}
		if dev.onRaw != nil {
			dev.onRaw(p)
		}
	})
	c := New(dev.mem, opts...)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func (d *fakeDevice) reply(m protocol.Message) {
	frame, err := protocol.Encode(m)
	if err != nil {
		d.t.Errorf("encode reply: %v", err)
		return
	}
	d.mem.Inject(frame)
}

func TestRequest(t *testing.T) {
	dev := &fakeDevice{mode: protocol.ModeClassic}
	dev.onMsg = func(m protocol.Message) {
		if _, ok := m.(*protocol.ClassicNeighborsRequest); ok {
			dev.reply(&protocol.ClassicNeighborsResponse{Origin: 7, Neighbors: protocol.NeighborMap{1: 9}})
		}
	}
	c := newTestClient(t, dev)

	resp, err := c.Request(context.Background(), &protocol.ClassicNeighborsRequest{})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	n, ok := resp.(*protocol.ClassicNeighborsResponse)
	if !ok || n.Origin != 7 || n.Neighbors[1] != 9 {
		t.Errorf("response = %#v", resp)
	}
}

func TestRequestCorrelatesByID(t *testing.T) {
	dev := &fakeDevice{mode: protocol.ModeImago}
	dev.onMsg = func(m protocol.Message) {
		req, ok := m.(*protocol.GetConfigurationRequest)
		if !ok {
			return
		}
		dev.reply(&protocol.GetConfigurationResponse{ID: req.ID + 1})
		dev.reply(&protocol.GetConfigurationResponse{ID: req.ID, BlockType: 4})
	}
	c := newTestClient(t, dev, WithMode(protocol.ModeImago))

	resp, err := c.Request(context.Background(), &protocol.GetConfigurationRequest{ID: 100})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	cfg := resp.(*protocol.GetConfigurationResponse)
	if cfg.ID != 100 || cfg.BlockType != 4 {
		t.Errorf("response = %#v, want id 100", cfg)
	}
}

func TestRequestTimeout(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeClassic})

	start := time.Now()
	_, err := c.RequestTimeout(context.Background(), &protocol.ClassicKeepAliveRequest{}, 50*time.Millisecond)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if te.Timeout != 50*time.Millisecond {
		t.Errorf("Timeout = %s", te.Timeout)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
	if n := len(c.subs); n != 0 {
		t.Errorf("%d subscriptions left registered", n)
	}
}

func TestSendRejectsOtherMode(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeClassic})

	err := c.Send(&protocol.ImagoResetCommand{})
	var pe *ProtocolModeError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProtocolModeError, got %v", err)
	}
	if pe.Current != protocol.ModeClassic || pe.Required != protocol.ModeImago {
		t.Errorf("error = %+v", pe)
	}
}

func TestRawStatus(t *testing.T) {
	dev := &fakeDevice{mode: protocol.ModeClassic}
	dev.onRaw = func(p []byte) {
		if len(p) == 1 && p[0] == '3' {
			dev.mem.Inject([]byte{'x', '4'})
		}
	}
	c := newTestClient(t, dev)
	c.SetRawMode(true)

	e, err := c.Expect(context.Background(), "ready", time.Second, RawByte('4'), func() error {
		return c.WriteRaw([]byte{'3'})
	})
	if err != nil {
		t.Fatalf("Expect: %v", err)
	}
	if e.Raw != '4' {
		t.Errorf("raw = %q", e.Raw)
	}
	if n := len(c.subs); n != 0 {
		t.Errorf("%d subscriptions left registered", n)
	}
}

func TestStatusTimeoutNamesStatus(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeClassic})
	c.SetRawMode(true)

	s := c.Subscribe()
	defer s.Close()
	err := s.NextStatus(context.Background(), '4', 20*time.Millisecond)
	var te *TimeoutError
	if !errors.As(err, &te) || te.Status != '4' {
		t.Fatalf("err = %v, want timeout on '4'", err)
	}
}

func TestSubscriptionSeesLifecycle(t *testing.T) {
	dev := &fakeDevice{mode: protocol.ModeClassic}
	c := newTestClient(t, dev)

	s := c.Subscribe()
	defer s.Close()
	dev.mem.Drop()
	if _, err := s.Next(context.Background(), "disconnect", time.Second, Disconnected); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	dev.mem.Restore()
	if _, err := s.Next(context.Background(), "connect", time.Second, Connected); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

func TestCloseFailsPendingWaits(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeClassic})

	errc := make(chan error, 1)
	go func() {
		_, err := c.Wait(context.Background(), "never", 0, RawByte('x'))
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not return after Close")
	}
	if err := c.Send(&protocol.ClassicResetCommand{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v", err)
	}
}

func TestHoldBusy(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeClassic})
	if c.Busy() {
		t.Fatal("new client is busy")
	}
	release := c.Hold()
	if !c.Busy() {
		t.Fatal("held client is not busy")
	}
	release()
	release()
	if c.Busy() {
		t.Fatal("release did not clear busy")
	}
}

func TestDecodeErrorsAreEvents(t *testing.T) {
	dev := &fakeDevice{mode: protocol.ModeClassic}
	c := newTestClient(t, dev)

	s := c.Subscribe()
	defer s.Close()
	dev.mem.Inject([]byte{'<', protocol.CodeClassicFlashProgress, 0, '>'})
	e, err := s.Next(context.Background(), "decode error", time.Second, func(e Event) bool { return e.Kind == EventDecodeError })
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !protocol.IsDecodeError(e.Err) {
		t.Errorf("Err = %v", e.Err)
	}
}
