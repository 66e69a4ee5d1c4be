package transport

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/bryangrimes/node-cubelets/logging"
)

const (
	// DefaultBaudRate is the rate the host firmware listens at
	DefaultBaudRate = 115200

	serialReadTimeout = 100 * time.Millisecond
)

// SerialConfig configures a Serial transport.
type SerialConfig struct {
	Port     string
	BaudRate int
	Logger   logging.Logger
}

// Serial is a transport over an RFCOMM or USB serial port. The port handle
// vanishes when the host resets; it is reopened with backoff.
type Serial struct {
	*stream
}

// NewSerial returns a disconnected serial transport.
func NewSerial(cfg SerialConfig) *Serial {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	dial := func(ctx context.Context) (conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		port, err := serial.Open(cfg.Port, mode)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
		}
		if err := port.SetReadTimeout(serialReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
		return newReaderConn(port), nil
	}
	return &Serial{stream: newStream("serial", dial, cfg.Logger)}
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
