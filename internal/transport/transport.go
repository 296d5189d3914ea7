package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/muurk/broadlink/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultDevicePort is the UDP port devices listen on.
	DefaultDevicePort = 80

	// DefaultTimeout is the per-attempt wait for a reply.
	DefaultTimeout = 1 * time.Second

	// DefaultAttempts is how many times a request is sent before giving up.
	DefaultAttempts = 3

	// maxDatagramSize bounds a single reply. Device packets are far
	// smaller, but learned RF codes can run long.
	maxDatagramSize = 2048
)

// LimitedBroadcast is the all-ones IPv4 broadcast address.
var LimitedBroadcast = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// TimeoutError reports that a device never answered.
type TimeoutError struct {
	// Addr is the destination that stayed silent
	Addr string
	// Attempts is how many times the request was sent
	Attempts int
	// Timeout is the per-attempt wait
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no reply from %s after %d attempts (%s each)", e.Addr, e.Attempts, e.Timeout)
}

// Reply pairs a raw datagram with its sender.
type Reply struct {
	From netip.AddrPort
	Data []byte
}

// Client performs UDP exchanges with devices. The zero value is not ready
// to use; call NewClient for defaults.
type Client struct {
	// Timeout is the per-attempt reply wait for Exchange and the
	// collection window for Broadcast.
	Timeout time.Duration

	// Attempts is how many times Exchange resends before reporting a
	// TimeoutError.
	Attempts int

	// ListenPort fixes the local UDP port for Broadcast sockets. Zero
	// picks an ephemeral port; the chosen port is handed to the build
	// callback either way.
	ListenPort uint16
}

// NewClient creates a client with default timeout and retry settings.
func NewClient() *Client {
	return &Client{
		Timeout:  DefaultTimeout,
		Attempts: DefaultAttempts,
	}
}

// Exchange sends req to dest and returns the first reply from dest. The
// request is resent after each timed-out attempt; datagrams from any other
// sender are discarded. A fresh socket is opened per call, so concurrent
// exchanges never mix replies.
func (c *Client) Exchange(ctx context.Context, dest netip.AddrPort, req []byte) ([]byte, error) {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	destAddr := net.UDPAddrFromAddrPort(dest)
	buf := make([]byte, maxDatagramSize)

	for attempt := 1; attempt <= c.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := conn.WriteToUDP(req, destAddr); err != nil {
			return nil, fmt.Errorf("failed to send to %s: %w", dest, err)
		}
		logging.LogDatagram(dest.String(), "sent", req)

		deadline := time.Now().Add(c.Timeout)
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to arm read deadline: %w", err)
		}

		for {
			n, from, err := conn.ReadFromUDPAddrPort(buf)
			if err != nil {
				if errors.Is(err, os.ErrDeadlineExceeded) {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return nil, ctxErr
					}
					logging.Debug("reply wait timed out",
						zap.String("remote_addr", dest.String()),
						zap.Int("attempt", attempt),
					)
					break
				}
				return nil, fmt.Errorf("failed to read from %s: %w", dest, err)
			}

			if from.Addr().Unmap() != dest.Addr().Unmap() || from.Port() != dest.Port() {
				logging.Debug("discarding datagram from unexpected sender",
					zap.String("remote_addr", from.String()),
					zap.String("expected", dest.String()),
				)
				continue
			}

			reply := make([]byte, n)
			copy(reply, buf[:n])
			logging.LogDatagram(dest.String(), "received", reply)
			return reply, nil
		}
	}

	return nil, &TimeoutError{Addr: dest.String(), Attempts: c.Attempts, Timeout: c.Timeout}
}

// Broadcast opens a socket routed toward dest, hands its local address to
// build so the packet can embed it, sends the packet once, and collects
// every reply that arrives before the Timeout window closes. An empty
// result is not an error; silence just means no device answered.
func (c *Client) Broadcast(ctx context.Context, dest netip.AddrPort, build func(src netip.AddrPort) ([]byte, error)) ([]Reply, error) {
	local, err := routeSource(dest)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: broadcastControl}
	pc, err := lc.ListenPacket(ctx, "udp4", netip.AddrPortFrom(local, c.ListenPort).String())
	if err != nil {
		return nil, fmt.Errorf("failed to open broadcast socket: %w", err)
	}
	conn := pc.(*net.UDPConn)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	src := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	pkt, err := build(src)
	if err != nil {
		return nil, err
	}

	if _, err := conn.WriteToUDP(pkt, net.UDPAddrFromAddrPort(dest)); err != nil {
		return nil, fmt.Errorf("failed to broadcast to %s: %w", dest, err)
	}
	logging.LogDatagram(dest.String(), "sent", pkt)

	if err := conn.SetReadDeadline(time.Now().Add(c.Timeout)); err != nil {
		return nil, fmt.Errorf("failed to arm read deadline: %w", err)
	}

	var replies []Reply
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return replies, nil
			}
			return nil, fmt.Errorf("failed to read broadcast replies: %w", err)
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		logging.LogDatagram(from.String(), "received", data)
		replies = append(replies, Reply{From: from, Data: data})
	}
}

// routeSource returns the local IPv4 address the kernel would use to reach
// dest. No packet is sent; connecting a UDP socket only selects a route.
func routeSource(dest netip.AddrPort) (netip.Addr, error) {
	// The control hook matters even here: connecting to a broadcast
	// address is refused unless SO_BROADCAST is set.
	d := net.Dialer{Control: broadcastControl}
	conn, err := d.Dial("udp4", dest.String())
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to resolve route to %s: %w", dest, err)
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).AddrPort().Addr().Unmap(), nil
}

// LocalIPv4 returns the machine's preferred outbound IPv4 address.
func LocalIPv4() (netip.Addr, error) {
	return routeSource(netip.AddrPortFrom(netip.AddrFrom4([4]byte{8, 8, 8, 8}), 53))
}
