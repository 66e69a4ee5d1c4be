package transport

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func receive(t *testing.T, ch <-chan []byte, want []byte) {
	t.Helper()
	var got []byte
	deadline := time.After(2 * time.Second)
	for !bytes.Equal(got, want) {
		select {
		case p := <-ch:
			got = append(got, p...)
		case <-deadline:
			t.Fatalf("received %q, want %q", got, want)
		}
	}
}

func TestTCPEchoAndReconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	tr := NewTCP(ln.Addr().String(), nil)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()
	expectState(t, tr.Lifecycle(), StateConnecting)
	expectState(t, tr.Lifecycle(), StateConnected)

	server := <-accepted
	if err := tr.Write([]byte("<a\x00>")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 4)
	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := server.Read(buf); err != nil || string(buf) != "<a\x00>" {
		t.Fatalf("server read %q, %v", buf, err)
	}

	server.Write([]byte("4R"))
	receive(t, tr.Receive(), []byte("4R"))

	// losing the socket triggers a background reconnect
	server.Close()
	expectState(t, tr.Lifecycle(), StateDisconnected)
	expectState(t, tr.Lifecycle(), StateConnecting)
	expectState(t, tr.Lifecycle(), StateConnected)

	server = <-accepted
	defer server.Close()
	server.Write([]byte("Z"))
	receive(t, tr.Receive(), []byte("Z"))
}

func TestTCPConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	tr := NewTCP(addr, nil)
	if err := tr.Connect(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	if tr.State() != StateFailed {
		t.Errorf("State = %s, want failed", tr.State())
	}
	if err := tr.Write([]byte{1}); err != ErrNotConnected {
		t.Errorf("Write = %v, want ErrNotConnected", err)
	}
}

func TestWebSocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if err := c.WriteMessage(websocket.BinaryMessage, bytes.ToUpper(data)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	tr := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.Write([]byte("ok")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	receive(t, tr.Receive(), []byte("OK"))
}
