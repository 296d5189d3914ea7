// Package transport moves raw protocol datagrams over UDP.
//
// Broadlink devices speak a connectionless request/reply protocol on UDP
// port 80. This package owns the socket handling around that: unicast
// exchanges with per-attempt timeouts and resends, and the broadcast
// fan-out used for discovery and provisioning. Packet contents are opaque
// here; framing and crypto live in the protocol package.
//
// # Unicast Exchanges
//
// A Client sends one request and waits for one reply, resending on
// timeout:
//
//	client := transport.NewClient()
//	reply, err := client.Exchange(ctx, dest, packet)
//
// Replies from any sender other than the destination are discarded
// silently, since other devices on the segment may answer broadcasts late.
//
// # Broadcast
//
// Broadcast opens a fresh socket, hands the caller its local address so
// the packet can embed it, then collects every reply that arrives before
// the window closes:
//
//	replies, err := client.Broadcast(ctx, dest, func(src netip.AddrPort) ([]byte, error) {
//	    return protocol.BuildDiscoveryProbe(src.Addr(), src.Port(), time.Now())
//	})
package transport
