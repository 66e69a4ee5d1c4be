package mockdevice

import (
	"context"
	"testing"
	"time"

	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/protocol"
)

func open(t *testing.T, cfg Config, opts ...client.Option) (*Device, *client.Client) {
	t.Helper()
	d := New(cfg)
	c := client.New(d.Transport(), opts...)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		d.Close()
	})
	return d, c
}

func TestKeepAlivePayload(t *testing.T) {
	tests := []struct {
		gen  Generation
		want int
	}{
		{Classic, 0},
		{Bootstrap, 1},
	}
	for _, tt := range tests {
		t.Run(tt.gen.String(), func(t *testing.T) {
			_, c := open(t, Config{Host: Block{ID: 1, Generation: tt.gen}})
			resp, err := c.Request(context.Background(), &protocol.ClassicKeepAliveRequest{})
			if err != nil {
				t.Fatalf("Request: %v", err)
			}
			if got := len(resp.(*protocol.ClassicKeepAliveResponse).Payload); got != tt.want {
				t.Errorf("payload length = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestImagoHostIgnoresKeepAlive(t *testing.T) {
	_, c := open(t, Config{Host: Block{ID: 1, Generation: Imago}})
	_, err := c.RequestTimeout(context.Background(), &protocol.ClassicKeepAliveRequest{}, 50*time.Millisecond)
	if !client.IsTimeout(err) {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestDiscoveryRoundTrip(t *testing.T) {
	d, c := open(t, Config{
		Host:      Block{ID: 1, Generation: Bootstrap},
		Neighbors: []Block{{ID: 9, Face: 4, Type: device.Drive, MCU: device.MCUPIC, Generation: ImagoBootloader}},
	}, client.WithMode(protocol.ModeBootstrap))
	ctx := context.Background()

	if err := c.JumpToImago(ctx); err != nil {
		t.Fatalf("JumpToImago: %v", err)
	}
	if d.Mode() != protocol.ModeImago {
		t.Errorf("device mode = %s", d.Mode())
	}
	resp, err := c.Request(ctx, &protocol.ImagoNeighborsRequest{})
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if got := resp.(*protocol.ImagoNeighborsResponse).Neighbors[4]; got != 9 {
		t.Errorf("face 4 = %d, want 9", got)
	}
	cfg, err := c.Request(ctx, &protocol.GetConfigurationRequest{ID: 9})
	if err != nil {
		t.Fatalf("configuration: %v", err)
	}
	if !cfg.(*protocol.GetConfigurationResponse).InBootloader() {
		t.Error("bootloader block reports application mode")
	}

	found, err := c.JumpToDiscovery(ctx, client.WithDiscoveryDelay(0), client.WithDiscoveryTimeout(time.Second))
	if err != nil {
		t.Fatalf("JumpToDiscovery: %v", err)
	}
	if found.Face != 4 || !found.IsImago() {
		t.Errorf("block found = %+v", found)
	}
}

func TestClassicApplicationIgnoresReset(t *testing.T) {
	d, c := open(t, Config{
		Host:      Block{ID: 1, Generation: Classic},
		Neighbors: []Block{{ID: 9, Face: 0}},
	})
	if err := c.Send(&protocol.ClassicResetCommand{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if d.Mode() != protocol.ModeClassic {
		t.Errorf("mode = %s, want classic", d.Mode())
	}
}
