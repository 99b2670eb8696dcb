package socket

import (
	"net"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func loopbackEndpoint(t *testing.T, ln net.Listener) Endpoint {
	t.Helper()
	port := ln.Addr().(*net.TCPAddr).Port
	return Endpoint{Family: IPv4, Address: net.IPv4(127, 0, 0, 1).To4(), Port: uint16(port)}
}

func TestCreateSocket_SelectableAndNoDelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	h, err := CreateSocket(loopbackEndpoint(t, ln))
	if err != nil {
		t.Fatalf("CreateSocket: %v", err)
	}
	defer CloseSocket(h)

	if !IsSelectable(h) {
		t.Fatalf("freshly created socket must be selectable")
	}
	if v, err := unix.GetsockoptInt(int(h), unix.IPPROTO_TCP, unix.TCP_NODELAY); err != nil || v == 0 {
		t.Fatalf("freshly created socket must have TCP_NODELAY set (got %d, %v)", v, err)
	}
}

func TestCreateSocket_UnroutableFamilyFails(t *testing.T) {
	_, err := CreateSocket(Endpoint{Family: Unroutable})
	if err == nil {
		t.Fatalf("expected UnsupportedNetwork error")
	}
	connErr, ok := err.(*ConnError)
	if !ok || connErr.Kind != ErrUnsupportedNetwork {
		t.Fatalf("expected ErrUnsupportedNetwork, got %v", err)
	}
}

func TestConnectDirect_Success(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		accepted <- err
	}()

	endpoint := loopbackEndpoint(t, ln)
	h, err := CreateSocket(endpoint)
	if err != nil {
		t.Fatalf("CreateSocket: %v", err)
	}
	defer CloseSocket(h)

	if err := ConnectDirect(nil, endpoint, h, 2000, true); err != nil {
		t.Fatalf("ConnectDirect: %v", err)
	}
	if err := <-accepted; err != nil {
		t.Fatalf("accept: %v", err)
	}
}

func TestConnectDirect_InvalidHandle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	err = ConnectDirect(nil, loopbackEndpoint(t, ln), Handle(-1), 1000, true)
	connErr, ok := err.(*ConnError)
	if !ok || connErr.Kind != ErrInvalidHandle {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
}

func TestConnectDirect_Timeout(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET-1 (RFC 5737): reserved, never routed, so a
	// connect attempt should neither succeed nor be refused quickly, only
	// time out against our own deadline.
	endpoint := Endpoint{Family: IPv4, Address: []byte{192, 0, 2, 1}, Port: 81}
	h, err := CreateSocket(endpoint)
	if err != nil {
		t.Fatalf("CreateSocket: %v", err)
	}
	defer CloseSocket(h)

	start := time.Now()
	err = ConnectDirect(nil, endpoint, h, 300, true)
	elapsed := time.Since(start)

	connErr, ok := err.(*ConnError)
	if !ok || (connErr.Kind != ErrConnectTimeout && connErr.Kind != ErrConnectFailed) {
		t.Fatalf("expected ErrConnectTimeout or ErrConnectFailed (network-dependent), got %v", err)
	}
	if elapsed > 3*time.Second {
		t.Fatalf("connect attempt took suspiciously long: %v", elapsed)
	}
}

func TestSetNoDelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	h, err := CreateSocket(loopbackEndpoint(t, ln))
	if err != nil {
		t.Fatalf("CreateSocket: %v", err)
	}
	defer CloseSocket(h)

	if !SetNoDelay(h) {
		t.Fatalf("SetNoDelay should succeed on a live TCP socket")
	}
}

func TestCloseSocket_DoubleCloseReturnsFalse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	h, err := CreateSocket(loopbackEndpoint(t, ln))
	if err != nil {
		t.Fatalf("CreateSocket: %v", err)
	}
	if !CloseSocket(h) {
		t.Fatalf("first close should succeed")
	}
	if CloseSocket(h) {
		t.Fatalf("second close of the same fd should not report success")
	}
}

func TestIsSelectable_InvalidHandle(t *testing.T) {
	if IsSelectable(Handle(-1)) {
		t.Fatalf("a negative handle must never be selectable")
	}
}
