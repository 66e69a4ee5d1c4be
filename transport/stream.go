package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bryangrimes/node-cubelets/logging"
)

const (
	streamInitialBackoff = 500 * time.Millisecond
	streamMaxBackoff     = 10 * time.Second
	streamReadBufSize    = 4096
)

// conn is one established physical connection.
type conn interface {
	// read returns the next inbound bytes. An empty slice with a nil error
	// is a read timeout.
	read() ([]byte, error)
	write(p []byte) error
	Close() error
}

// readerConn adapts an io.ReadWriteCloser.
type readerConn struct {
	rwc io.ReadWriteCloser
	buf []byte
}

func newReaderConn(rwc io.ReadWriteCloser) *readerConn {
	return &readerConn{rwc: rwc, buf: make([]byte, streamReadBufSize)}
}

func (c *readerConn) read() ([]byte, error) {
	n, err := c.rwc.Read(c.buf)
	if n > 0 {
		return append([]byte(nil), c.buf[:n]...), nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *readerConn) write(p []byte) error {
	_, err := c.rwc.Write(p)
	return err
}

func (c *readerConn) Close() error { return c.rwc.Close() }

// stream is the shared dial / read / reconnect loop behind the serial, TCP
// and WebSocket transports.
type stream struct {
	name string
	dial func(ctx context.Context) (conn, error)
	log  logging.Logger
	life *lifecycle
	rx   chan []byte

	mu     sync.Mutex
	conn   conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newStream(name string, dial func(ctx context.Context) (conn, error), log logging.Logger) *stream {
	return &stream{
		name: name,
		dial: dial,
		log:  logging.OrNop(log),
		life: newLifecycle(),
		rx:   make(chan []byte, receiveBufferSize),
	}
}

// Connect dials once; failures are returned. After that the link is kept
// up in the background.
func (s *stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.life.set(StateConnecting)
	c, err := s.dial(ctx)
	if err != nil {
		s.life.set(StateFailed)
		return fmt.Errorf("%s: connect: %w", s.name, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.conn = c
	s.cancel = cancel
	s.mu.Unlock()
	s.life.set(StateConnected)
	s.log.Info(s.name+": connected")

	s.wg.Add(1)
	go s.loop(loopCtx, c)
	return nil
}

func (s *stream) Disconnect() error {
	s.mu.Lock()
	cancel, c := s.cancel, s.conn
	s.cancel, s.conn = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	var err error
	if c != nil {
		err = c.Close()
	}
	s.wg.Wait()
	s.life.set(StateDisconnected)
	return err
}

func (s *stream) Write(p []byte) error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	if err := c.write(p); err != nil {
		return fmt.Errorf("%s: write: %w", s.name, err)
	}
	return nil
}

func (s *stream) Receive() <-chan []byte  { return s.rx }
func (s *stream) Lifecycle() <-chan State { return s.life.ch }
func (s *stream) State() State            { return s.life.get() }

func (s *stream) loop(ctx context.Context, c conn) {
	defer s.wg.Done()

	for {
		s.readAll(ctx, c)

		s.mu.Lock()
		if s.conn == c {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = c.Close()
		if ctx.Err() != nil {
			return
		}
		s.life.set(StateDisconnected)
		s.log.Info(s.name + ": connection lost, reconnecting")

		next, err := s.redial(ctx)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = next
		s.mu.Unlock()
		s.life.set(StateConnected)
		s.log.Info(s.name + ": reconnected")
		c = next
	}
}

func (s *stream) readAll(ctx context.Context, c conn) {
	for {
		data, err := c.read()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Debug(s.name+": read", "error", err)
			}
			return
		}
		if len(data) == 0 {
			continue
		}
		select {
		case s.rx <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *stream) redial(ctx context.Context) (conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = streamInitialBackoff
	b.MaxInterval = streamMaxBackoff
	b.MaxElapsedTime = 0

	var c conn
	err := backoff.RetryNotify(func() error {
		s.life.set(StateConnecting)
		next, err := s.dial(ctx)
		if err != nil {
			s.life.set(StateFailed)
			return err
		}
		c = next
		return nil
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		s.log.Debug(s.name+": dial failed", "error", err, "retry_in", wait.String())
	})
	return c, err
}
