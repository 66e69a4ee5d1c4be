package transport

import (
	"context"
	"net"
	"time"

	"github.com/bryangrimes/node-cubelets/logging"
)

const tcpDialTimeout = 5 * time.Second

// TCP is a transport to a serial-over-TCP bridge.
type TCP struct {
	*stream
}

// NewTCP returns a disconnected TCP transport for addr ("host:port").
func NewTCP(addr string, log logging.Logger) *TCP {
	dial := func(ctx context.Context) (conn, error) {
		d := net.Dialer{Timeout: tcpDialTimeout}
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return newReaderConn(c), nil
	}
	return &TCP{stream: newStream("tcp", dial, log)}
}
