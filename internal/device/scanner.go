package device

import (
	"context"
	"net/netip"
	"time"

	"github.com/muurk/broadlink/internal/logging"
	"github.com/muurk/broadlink/internal/protocol"
	"github.com/muurk/broadlink/internal/transport"
	"go.uber.org/zap"
)

// DefaultScanTimeout is the default collection window for discovery.
const DefaultScanTimeout = 5 * time.Second

// Scanner handles UDP broadcast device discovery
type Scanner struct {
	// Client performs the underlying exchanges. Its Timeout is the
	// collection window.
	Client *transport.Client

	// Dest is where the probe is sent. Defaults to the limited
	// broadcast address on the device port.
	Dest netip.AddrPort
}

// NewScanner creates a scanner with default settings
func NewScanner() *Scanner {
	client := transport.NewClient()
	client.Timeout = DefaultScanTimeout
	return &Scanner{
		Client: client,
		Dest:   netip.AddrPortFrom(transport.LimitedBroadcast, transport.DefaultDevicePort),
	}
}

// Scan broadcasts a discovery probe and returns every device that answered
// within the window. Unparseable replies are discarded silently: anything
// may answer a broadcast. Duplicate answers from one device collapse to a
// single entry.
func (s *Scanner) Scan(ctx context.Context) ([]Info, error) {
	replies, err := s.Client.Broadcast(ctx, s.Dest, func(src netip.AddrPort) ([]byte, error) {
		return protocol.BuildDiscoveryProbe(src.Addr(), src.Port(), time.Now())
	})
	if err != nil {
		return nil, err
	}

	var devices []Info
	seen := make(map[[6]byte]bool)
	for _, r := range replies {
		info, ok := parseReply(r)
		if !ok || seen[info.MAC] {
			continue
		}
		seen[info.MAC] = true
		devices = append(devices, info)
	}
	return devices, nil
}

// Probe sends a discovery probe to one address and returns its descriptor.
// Used when the device IP is already known and broadcast is undesirable.
func (s *Scanner) Probe(ctx context.Context, addr netip.AddrPort) (Info, error) {
	replies, err := s.Client.Broadcast(ctx, addr, func(src netip.AddrPort) ([]byte, error) {
		return protocol.BuildDiscoveryProbe(src.Addr(), src.Port(), time.Now())
	})
	if err != nil {
		return Info{}, err
	}

	for _, r := range replies {
		if r.From != addr {
			continue
		}
		info, err := protocol.ParseDiscoveryReply(r.Data)
		if err != nil {
			return Info{}, newMalformedReplyError(addr.String(), err)
		}
		return fromReply(r.From, info), nil
	}

	return Info{}, &Error{
		Type:      ErrTypeNoReply,
		Message:   "no discovery reply",
		Addr:      addr.String(),
		Retryable: true,
	}
}

// Scan is a convenience function that scans with default settings.
func Scan(ctx context.Context) ([]Info, error) {
	return NewScanner().Scan(ctx)
}

// FromAddr probes a known address with default settings.
func FromAddr(ctx context.Context, addr netip.AddrPort) (Info, error) {
	return NewScanner().Probe(ctx, addr)
}

func parseReply(r transport.Reply) (Info, bool) {
	reply, err := protocol.ParseDiscoveryReply(r.Data)
	if err != nil {
		logging.Debug("discarding unparseable discovery reply",
			zap.String("remote_addr", r.From.String()),
			zap.Error(err),
		)
		return Info{}, false
	}
	return fromReply(r.From, reply), true
}

func fromReply(from netip.AddrPort, reply *protocol.DiscoveryReply) Info {
	return Info{
		Addr:   from.Addr().Unmap(),
		Port:   from.Port(),
		MAC:    reply.MAC,
		Model:  reply.Model,
		Name:   reply.Name,
		Locked: reply.Locked,
	}
}
