package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryangrimes/node-cubelets/protocol"
)

func bootstrapDevice(reportMode func(requested byte) byte) *fakeDevice {
	dev := &fakeDevice{mode: protocol.ModeBootstrap}
	dev.onMsg = func(m protocol.Message) {
		if req, ok := m.(*protocol.SetBootstrapModeRequest); ok {
			dev.reply(&protocol.SetBootstrapModeResponse{Firmware: reportMode(req.Firmware)})
		}
	}
	return dev
}

func TestJumpToClassicFromImagoFails(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeImago}, WithMode(protocol.ModeImago))

	err := c.JumpToClassic(context.Background())
	var pe *ProtocolModeError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProtocolModeError, got %v", err)
	}
	if c.Mode() != protocol.ModeImago {
		t.Errorf("mode = %s, want imago", c.Mode())
	}
}

func TestJumpToImagoFromClassicFails(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeClassic})

	var pe *ProtocolModeError
	if err := c.JumpToImago(context.Background()); !errors.As(err, &pe) {
		t.Fatalf("expected *ProtocolModeError, got %v", err)
	}
	if c.Mode() != protocol.ModeClassic {
		t.Errorf("mode = %s, want classic", c.Mode())
	}
}

func TestJumpFromBootstrap(t *testing.T) {
	tests := []struct {
		name     string
		jump     func(*Client, context.Context) error
		report   func(byte) byte
		wantMode protocol.Mode
		wantErr  bool
	}{
		{"classic confirmed", (*Client).JumpToClassic, func(b byte) byte { return b }, protocol.ModeClassic, false},
		{"imago confirmed", (*Client).JumpToImago, func(b byte) byte { return b }, protocol.ModeImago, false},
		{"classic refused", (*Client).JumpToClassic, func(byte) byte { return protocol.FirmwareImago }, protocol.ModeBootstrap, true},
		{"imago refused", (*Client).JumpToImago, func(byte) byte { return protocol.FirmwareClassic }, protocol.ModeBootstrap, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, bootstrapDevice(tt.report), WithMode(protocol.ModeBootstrap))
			err := tt.jump(c, context.Background())
			if tt.wantErr {
				var pe *ProtocolModeError
				if !errors.As(err, &pe) {
					t.Fatalf("expected *ProtocolModeError, got %v", err)
				}
				if pe.Reported == NoReport {
					t.Error("error should carry the reported mode")
				}
			} else if err != nil {
				t.Fatalf("jump: %v", err)
			}
			if c.Mode() != tt.wantMode {
				t.Errorf("mode = %s, want %s", c.Mode(), tt.wantMode)
			}
		})
	}
}

func TestJumpNoOps(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeClassic})
	if err := c.JumpToClassic(context.Background()); err != nil {
		t.Errorf("JumpToClassic in classic: %v", err)
	}

	b := newTestClient(t, &fakeDevice{mode: protocol.ModeBootstrap}, WithMode(protocol.ModeBootstrap))
	found, err := b.JumpToDiscovery(context.Background())
	if err != nil || found != nil {
		t.Errorf("JumpToDiscovery in bootstrap = %v, %v", found, err)
	}
}

func TestJumpToDiscovery(t *testing.T) {
	for _, from := range []protocol.Mode{protocol.ModeClassic, protocol.ModeImago} {
		t.Run(from.String(), func(t *testing.T) {
			dev := &fakeDevice{mode: from}
			dev.onMsg = func(m protocol.Message) {
				switch m.(type) {
				case *protocol.ClassicResetCommand, *protocol.ImagoResetCommand:
					go func() {
						time.Sleep(60 * time.Millisecond)
						dev.reply(&protocol.BlockFoundEvent{Face: 3, Firmware: protocol.FirmwareClassic})
					}()
				}
			}
			c := newTestClient(t, dev, WithMode(from))

			found, err := c.JumpToDiscovery(context.Background(),
				WithDiscoveryDelay(10*time.Millisecond),
				WithDiscoveryTimeout(time.Second),
			)
			if err != nil {
				t.Fatalf("JumpToDiscovery: %v", err)
			}
			if found.Face != 3 {
				t.Errorf("face = %d, want 3", found.Face)
			}
			if c.Mode() != protocol.ModeBootstrap {
				t.Errorf("mode = %s, want bootstrap", c.Mode())
			}
		})
	}
}

func TestJumpToDiscoveryTimeoutRestoresMode(t *testing.T) {
	c := newTestClient(t, &fakeDevice{mode: protocol.ModeImago}, WithMode(protocol.ModeImago))

	_, err := c.JumpToDiscovery(context.Background(),
		WithDiscoveryDelay(0),
		WithDiscoveryTimeout(30*time.Millisecond),
	)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if c.Mode() != protocol.ModeImago {
		t.Errorf("mode = %s, want imago restored", c.Mode())
	}
}
