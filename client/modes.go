package client

import (
	"context"
	"fmt"
	"time"

	"github.com/bryangrimes/node-cubelets/internal/sequence"
	"github.com/bryangrimes/node-cubelets/protocol"
)

const (
	// DefaultDiscoveryDelay is the pause between the reset command and
	// switching local framing to BOOTSTRAP
	DefaultDiscoveryDelay = 500 * time.Millisecond

	// DefaultDiscoveryTimeout bounds the wait for the first BlockFoundEvent
	DefaultDiscoveryTimeout = 2500 * time.Millisecond
)

// JumpToClassic moves the link to CLASSIC. It is a no-op in CLASSIC and a
// *ProtocolModeError in IMAGO. From BOOTSTRAP the device must confirm mode 0;
// otherwise the local mode stays BOOTSTRAP.
func (c *Client) JumpToClassic(ctx context.Context) error {
	return c.jumpFromBootstrap(ctx, "jump to classic", protocol.ModeClassic, protocol.FirmwareClassic)
}

// JumpToImago moves the link to IMAGO. It is a no-op in IMAGO and a
// *ProtocolModeError in CLASSIC. From BOOTSTRAP the device must confirm mode 1.
func (c *Client) JumpToImago(ctx context.Context) error {
	return c.jumpFromBootstrap(ctx, "jump to imago", protocol.ModeImago, protocol.FirmwareImago)
}

func (c *Client) jumpFromBootstrap(ctx context.Context, op string, target protocol.Mode, firmware byte) error {
	cur := c.Mode()
	switch cur {
	case target:
		return nil
	case protocol.ModeBootstrap:
	default:
		return &ProtocolModeError{Op: op, Current: cur, Required: protocol.ModeBootstrap, Reported: NoReport}
	}

	resp, err := c.Request(ctx, &protocol.SetBootstrapModeRequest{Firmware: firmware})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r, ok := resp.(*protocol.SetBootstrapModeResponse)
	if !ok {
		return fmt.Errorf("%s: unexpected response %T", op, resp)
	}
	if r.Firmware != firmware {
		return &ProtocolModeError{Op: op, Current: cur, Required: target, Reported: int(r.Firmware)}
	}
	c.SetMode(target)
	return nil
}

type discoveryConfig struct {
	delay   time.Duration
	timeout time.Duration
}

// DiscoveryOption configures JumpToDiscovery.
type DiscoveryOption func(*discoveryConfig)

// WithDiscoveryDelay sets the pause after the reset command.
func WithDiscoveryDelay(d time.Duration) DiscoveryOption {
	return func(c *discoveryConfig) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithDiscoveryTimeout sets how long to wait for a BlockFoundEvent.
func WithDiscoveryTimeout(d time.Duration) DiscoveryOption {
	return func(c *discoveryConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// JumpToDiscovery moves the link to BOOTSTRAP. From CLASSIC or IMAGO it
// sends that mode's reset command, switches local framing and waits for a
// BlockFoundEvent as confirmation, which is returned. On timeout the
// previous local mode is restored. In BOOTSTRAP it is a no-op returning nil.
func (c *Client) JumpToDiscovery(ctx context.Context, opts ...DiscoveryOption) (*protocol.BlockFoundEvent, error) {
	cfg := discoveryConfig{delay: DefaultDiscoveryDelay, timeout: DefaultDiscoveryTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	prev := c.Mode()
	var reset protocol.Message
	switch prev {
	case protocol.ModeBootstrap:
		return nil, nil
	case protocol.ModeClassic:
		reset = &protocol.ClassicResetCommand{}
	case protocol.ModeImago:
		reset = &protocol.ImagoResetCommand{}
	default:
		return nil, &ProtocolModeError{Op: "jump to discovery", Current: prev, Required: protocol.ModeBootstrap, Reported: NoReport}
	}

	if err := c.Send(reset); err != nil {
		return nil, fmt.Errorf("jump to discovery: %w", err)
	}
	if err := sequence.Wait(ctx, cfg.delay); err != nil {
		return nil, err
	}

	s := c.Subscribe()
	defer s.Close()
	c.SetMode(protocol.ModeBootstrap)

	e, err := s.Next(ctx, "block found", cfg.timeout, MessageOf[*protocol.BlockFoundEvent](nil))
	if err != nil {
		c.SetMode(prev)
		return nil, fmt.Errorf("jump to discovery: %w", err)
	}
	return e.Message.(*protocol.BlockFoundEvent), nil
}

// JumpTo dispatches to the jump for target.
func (c *Client) JumpTo(ctx context.Context, target protocol.Mode) error {
	switch target {
	case protocol.ModeClassic:
		return c.JumpToClassic(ctx)
	case protocol.ModeImago:
		return c.JumpToImago(ctx)
	case protocol.ModeBootstrap:
		_, err := c.JumpToDiscovery(ctx)
		return err
	default:
		return fmt.Errorf("unknown mode %s", target)
	}
}
