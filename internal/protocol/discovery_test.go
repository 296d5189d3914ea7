package protocol

import (
	"bytes"
	"net/netip"
	"testing"
	"time"
)

// discoveryFixture is the probe produced by the reference implementation
// for 1.2.3.4:42424 at 2000-02-14 10:30:55 in a zone 5 seconds west of UTC.
var discoveryFixture = []byte{
	0, 0, 0, 0, 0, 0, 0, 0, 251, 255, 255, 255, 208, 7, 30, 10,
	0, 1, 14, 2, 0, 0, 0, 0, 4, 3, 2, 1, 184, 165, 0, 0,
	36, 197, 0, 0, 0, 0, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func TestBuildDiscoveryProbeMatchesFixture(t *testing.T) {
	when := time.Date(2000, time.February, 14, 10, 30, 55, 0, time.FixedZone("", -5))

	probe, err := BuildDiscoveryProbe(netip.AddrFrom4([4]byte{1, 2, 3, 4}), 42424, when)
	if err != nil {
		t.Fatalf("BuildDiscoveryProbe() error: %v", err)
	}
	if !bytes.Equal(probe, discoveryFixture) {
		t.Errorf("BuildDiscoveryProbe() =\n% 02x\nwant\n% 02x", probe, discoveryFixture)
	}
}

func TestBuildDiscoveryProbeWeekdays(t *testing.T) {
	tests := []struct {
		name string
		when time.Time
		want byte
	}{
		{
			name: "monday encodes as 1",
			when: time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC),
			want: 1,
		},
		{
			name: "sunday encodes as 7",
			when: time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC),
			want: 7,
		},
	}

	local := netip.AddrFrom4([4]byte{192, 168, 0, 10})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe, err := BuildDiscoveryProbe(local, 42424, tt.when)
			if err != nil {
				t.Fatalf("BuildDiscoveryProbe() error: %v", err)
			}
			if probe[17] != tt.want {
				t.Errorf("weekday byte = %d, want %d", probe[17], tt.want)
			}
		})
	}
}

func TestBuildDiscoveryProbeRejectsIPv6(t *testing.T) {
	v6 := netip.MustParseAddr("fe80::1")
	if _, err := BuildDiscoveryProbe(v6, 42424, time.Now()); err == nil {
		t.Error("IPv6 local address should be rejected")
	}
}

// replyFixture builds a synthetic 128-byte discovery reply.
func replyFixture(model uint16, mac [6]byte, name string, locked bool) []byte {
	pkt := make([]byte, DiscoveryReplySize)
	pkt[offReplyModel] = byte(model)
	pkt[offReplyModel+1] = byte(model >> 8)
	for i := 0; i < 6; i++ {
		pkt[offReplyMAC+i] = mac[5-i]
	}
	copy(pkt[offReplyName:], name)
	if locked {
		pkt[offReplyLocked] = 1
	}
	return pkt
}

func TestParseDiscoveryReply(t *testing.T) {
	mac := [6]byte{0xE8, 0x16, 0x56, 0x01, 0x02, 0x03}
	reply, err := ParseDiscoveryReply(replyFixture(0x649B, mac, "Living room blaster", true))
	if err != nil {
		t.Fatalf("ParseDiscoveryReply() error: %v", err)
	}

	if reply.Model != 0x649B {
		t.Errorf("Model = 0x%04X, want 0x649B", reply.Model)
	}
	if reply.MAC != mac {
		t.Errorf("MAC = %v, want %v", reply.MAC, mac)
	}
	if reply.Name != "Living room blaster" {
		t.Errorf("Name = %q, want %q", reply.Name, "Living room blaster")
	}
	if !reply.Locked {
		t.Error("Locked = false, want true")
	}
}

func TestParseDiscoveryReplyRejectsWrongSize(t *testing.T) {
	for _, size := range []int{0, 64, 127, 129, 256} {
		if _, err := ParseDiscoveryReply(make([]byte, size)); err == nil {
			t.Errorf("reply of %d bytes should be rejected", size)
		}
	}
}
