package protocol

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"
)

const (
	// DiscoveryProbeSize is the fixed size of the plaintext discovery probe.
	DiscoveryProbeSize = 48

	// DiscoveryReplySize is the fixed size of a device's discovery reply.
	DiscoveryReplySize = 128

	// discoveryMagic marks a packet as a discovery probe.
	discoveryMagic = 0x06
)

// Discovery reply field offsets.
const (
	offReplyModel  = 0x34
	offReplyMAC    = 0x3A
	offReplyName   = 0x40
	offReplyLocked = 0x7F
)

// DiscoveryReply is the parsed form of a device's answer to a probe.
type DiscoveryReply struct {
	Model  uint16  // device-type code, selects the variant
	MAC    [6]byte // device MAC in transmission order
	Name   string  // device-reported friendly name
	Locked bool    // cloud-lock status
}

// BuildDiscoveryProbe builds the plaintext broadcast probe. The probe is
// stamped with the local wall-clock time and timezone offset and carries
// the address/port the caller listens on for replies. Only IPv4 addresses
// fit the wire format.
func BuildDiscoveryProbe(local netip.Addr, port uint16, now time.Time) ([]byte, error) {
	if !local.Is4() {
		return nil, fmt.Errorf("discovery probe requires an IPv4 local address, got %s", local)
	}

	pkt := make([]byte, DiscoveryProbeSize)

	_, gmtOffset := now.Zone()
	binary.LittleEndian.PutUint32(pkt[8:], uint32(int32(gmtOffset)))
	binary.LittleEndian.PutUint16(pkt[12:], uint16(now.Year()))
	pkt[14] = byte(now.Minute())
	pkt[15] = byte(now.Hour())
	pkt[16] = byte(now.Year() % 100)
	pkt[17] = isoWeekday(now.Weekday())
	pkt[18] = byte(now.Day())
	pkt[19] = byte(now.Month())

	ip := local.As4()
	pkt[24] = ip[3]
	pkt[25] = ip[2]
	pkt[26] = ip[1]
	pkt[27] = ip[0]
	binary.LittleEndian.PutUint16(pkt[28:], port)

	pkt[38] = discoveryMagic

	binary.LittleEndian.PutUint16(pkt[32:], Checksum(pkt))
	return pkt, nil
}

// ParseDiscoveryReply decodes a 128-byte discovery reply. Anything that is
// not exactly 128 bytes is rejected; discovery treats such replies as noise.
func ParseDiscoveryReply(pkt []byte) (*DiscoveryReply, error) {
	if len(pkt) != DiscoveryReplySize {
		return nil, fmt.Errorf("discovery reply must be %d bytes, got %d", DiscoveryReplySize, len(pkt))
	}

	reply := &DiscoveryReply{
		Model:  binary.LittleEndian.Uint16(pkt[offReplyModel:]),
		Locked: pkt[offReplyLocked] != 0,
	}

	// The device sends its MAC back-to-front.
	for i := 0; i < 6; i++ {
		reply.MAC[i] = pkt[offReplyMAC+5-i]
	}

	name := pkt[offReplyName:offReplyLocked]
	for i, b := range name {
		if b == 0 {
			name = name[:i]
			break
		}
	}
	reply.Name = string(name)

	return reply, nil
}

// isoWeekday maps Go's Sunday-based weekday onto the probe's encoding,
// where Monday is 1 and Sunday is 7.
func isoWeekday(d time.Weekday) byte {
	if d == time.Sunday {
		return 7
	}
	return byte(d)
}
