package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDevice binds a loopback UDP socket and runs handler for every
// datagram it receives. The socket closes with the test.
func fakeDevice(t *testing.T, handler func(conn *net.UDPConn, from netip.AddrPort, req []byte)) netip.AddrPort {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to bind fake device: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFromUDPAddrPort(buf)
			if err != nil {
				return
			}
			req := make([]byte, n)
			copy(req, buf[:n])
			handler(conn, from, req)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func TestExchange(t *testing.T) {
	dest := fakeDevice(t, func(conn *net.UDPConn, from netip.AddrPort, req []byte) {
		reply := append([]byte("echo:"), req...)
		conn.WriteToUDPAddrPort(reply, from)
	})

	client := NewClient()
	reply, err := client.Exchange(context.Background(), dest, []byte("ping"))
	if err != nil {
		t.Fatalf("Exchange() error: %v", err)
	}
	if !bytes.Equal(reply, []byte("echo:ping")) {
		t.Errorf("reply = %q, want %q", reply, "echo:ping")
	}
}

func TestExchangeResendsAfterSilentAttempt(t *testing.T) {
	var requests atomic.Int32
	dest := fakeDevice(t, func(conn *net.UDPConn, from netip.AddrPort, req []byte) {
		// Stay silent on the first attempt so the client must resend.
		if requests.Add(1) < 2 {
			return
		}
		conn.WriteToUDPAddrPort([]byte("ok"), from)
	})

	client := &Client{Timeout: 100 * time.Millisecond, Attempts: 3}
	reply, err := client.Exchange(context.Background(), dest, []byte("ping"))
	if err != nil {
		t.Fatalf("Exchange() error: %v", err)
	}
	if !bytes.Equal(reply, []byte("ok")) {
		t.Errorf("reply = %q, want %q", reply, "ok")
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("device saw %d requests, want 2", got)
	}
}

func TestExchangeDiscardsForeignSenders(t *testing.T) {
	intruder, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to bind intruder socket: %v", err)
	}
	t.Cleanup(func() { intruder.Close() })

	dest := fakeDevice(t, func(conn *net.UDPConn, from netip.AddrPort, req []byte) {
		// A foreign datagram lands first; the client must skip it and
		// keep waiting for the real reply.
		intruder.WriteToUDPAddrPort([]byte("junk"), from)
		conn.WriteToUDPAddrPort([]byte("real"), from)
	})

	client := NewClient()
	reply, err := client.Exchange(context.Background(), dest, []byte("ping"))
	if err != nil {
		t.Fatalf("Exchange() error: %v", err)
	}
	if !bytes.Equal(reply, []byte("real")) {
		t.Errorf("reply = %q, want %q", reply, "real")
	}
}

func TestExchangeTimesOut(t *testing.T) {
	var requests atomic.Int32
	dest := fakeDevice(t, func(conn *net.UDPConn, from netip.AddrPort, req []byte) {
		requests.Add(1)
	})

	client := &Client{Timeout: 50 * time.Millisecond, Attempts: 2}
	_, err := client.Exchange(context.Background(), dest, []byte("ping"))

	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if terr.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", terr.Attempts)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("device saw %d requests, want 2", got)
	}
}

func TestExchangeHonorsContext(t *testing.T) {
	dest := fakeDevice(t, func(conn *net.UDPConn, from netip.AddrPort, req []byte) {})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := &Client{Timeout: 5 * time.Second, Attempts: 3}
	start := time.Now()
	_, err := client.Exchange(ctx, dest, []byte("ping"))

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Exchange() returned after %s, want prompt cancellation", elapsed)
	}
}

func TestBroadcastCollectsRepliesFromMultipleSenders(t *testing.T) {
	// One probe, answered from two distinct sockets, stands in for two
	// devices on the segment answering the same broadcast.
	dest := fakeDevice(t, func(conn *net.UDPConn, from netip.AddrPort, req []byte) {
		conn.WriteToUDPAddrPort([]byte("one"), from)

		other, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
		if err != nil {
			return
		}
		defer other.Close()
		other.WriteToUDPAddrPort([]byte("two"), from)
	})

	client := &Client{Timeout: 300 * time.Millisecond, Attempts: 1}
	replies, err := client.Broadcast(context.Background(), dest, func(src netip.AddrPort) ([]byte, error) {
		if !src.Addr().IsValid() || src.Port() == 0 {
			t.Errorf("build callback got unusable source address %s", src)
		}
		return []byte("probe"), nil
	})
	if err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}

	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2", len(replies))
	}
	senders := map[netip.AddrPort]string{}
	for _, r := range replies {
		senders[r.From] = string(r.Data)
	}
	if len(senders) != 2 {
		t.Errorf("replies came from %d senders, want 2", len(senders))
	}
	if got := senders[dest]; got != "one" {
		t.Errorf("probed device replied %q, want %q", got, "one")
	}
}

func TestBroadcastEmptyWindow(t *testing.T) {
	dest := fakeDevice(t, func(conn *net.UDPConn, from netip.AddrPort, req []byte) {})

	client := &Client{Timeout: 100 * time.Millisecond, Attempts: 1}
	replies, err := client.Broadcast(context.Background(), dest, func(src netip.AddrPort) ([]byte, error) {
		return []byte("probe"), nil
	})
	if err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("got %d replies, want none", len(replies))
	}
}

func TestLocalIPv4(t *testing.T) {
	addr, err := LocalIPv4()
	if err != nil {
		t.Skipf("no outbound IPv4 route: %v", err)
	}
	if !addr.Is4() {
		t.Errorf("LocalIPv4() = %s, want an IPv4 address", addr)
	}
}
