package cmd

import (
	"context"
	"fmt"

	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/internal/config"
	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/transport"
)

func newTransport(c *config.Config) (transport.Transport, error) {
	if err := c.RequireLink(); err != nil {
		return nil, err
	}
	switch c.Transport {
	case config.TransportSerial:
		return transport.NewSerial(transport.SerialConfig{
			Port:     c.Serial.Port,
			BaudRate: c.Serial.Baud,
			Logger:   logger,
		}), nil
	case config.TransportTCP:
		return transport.NewTCP(c.TCP.Address, logger), nil
	case config.TransportWebSocket:
		return transport.NewWebSocket(c.WebSocket.URL, logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}
}

// openClient connects to the host block in mode.
func openClient(ctx context.Context, mode protocol.Mode) (*client.Client, error) {
	tr, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	c := client.New(tr,
		client.WithLogger(logger),
		client.WithRequestTimeout(cfg.RequestTimeout),
		client.WithMode(mode),
	)
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	logger.Debug("link open", "transport", cfg.Transport, "mode", mode.String())
	return c, nil
}

func parseMode(s string) (protocol.Mode, error) {
	for _, m := range []protocol.Mode{protocol.ModeClassic, protocol.ModeBootstrap, protocol.ModeImago} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q (classic, bootstrap, imago)", s)
}
