//go:build ignore

// Decode-packet dissects a captured Broadlink UDP datagram.
//
// Feed it the hex dump of a packet (from tcpdump, Wireshark, or the
// BROADLINK_LOG_LEVEL=debug datagram log) and it prints the envelope
// fields and, where the factory or a supplied session key decrypts it,
// the payload. Useful when chasing firmware quirks without a debugger
// on the device.
//
// Usage:
//
//	go run tools/decode-packet.go <hex> [session-key-hex]
//	go run tools/decode-packet.go 5aa5aa555aa5aa5500...
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/muurk/broadlink/internal/protocol"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: decode-packet <hex> [session-key-hex]")
		fmt.Println("Example: decode-packet 5aa5aa555aa5aa5500...")
		os.Exit(1)
	}

	pkt, err := hex.DecodeString(cleanHex(os.Args[1]))
	if err != nil {
		fmt.Printf("Error parsing hex: %v\n", err)
		os.Exit(1)
	}

	ctx := protocol.DefaultContext()
	if len(os.Args) >= 3 {
		keyBytes, err := hex.DecodeString(cleanHex(os.Args[2]))
		if err != nil || len(keyBytes) != 16 {
			fmt.Println("Error: session key must be 16 hex-encoded bytes")
			os.Exit(1)
		}
		var key [16]byte
		copy(key[:], keyBytes)
		ctx = protocol.SessionContext(key)
	}

	fmt.Printf("=== Broadlink Packet Decoder ===\n")
	fmt.Printf("Length: %d bytes\n\n", len(pkt))

	switch {
	case len(pkt) == 48:
		fmt.Println("Looks like a discovery probe (48 bytes, cleartext).")
	case len(pkt) == 128:
		decodeDiscoveryReply(pkt)
		return
	}

	hdr, payload, err := protocol.ValidateAndStrip(pkt, ctx)
	if err != nil {
		fmt.Printf("Not a valid command envelope: %v\n", err)
		os.Exit(1)
	}

	printHeader(hdr)
	printPayload(hdr, payload)
}

func decodeDiscoveryReply(pkt []byte) {
	info, err := protocol.ParseDiscoveryReply(pkt)
	if err != nil {
		fmt.Printf("128 bytes but not a discovery reply: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Discovery reply:")
	fmt.Printf("  Model:  0x%04X\n", info.Model)
	fmt.Printf("  MAC:    %02x:%02x:%02x:%02x:%02x:%02x\n",
		info.MAC[0], info.MAC[1], info.MAC[2], info.MAC[3], info.MAC[4], info.MAC[5])
	fmt.Printf("  Name:   %q\n", info.Name)
	fmt.Printf("  Locked: %v\n", info.Locked)
}

func printHeader(hdr protocol.CommandHeader) {
	kind := "data"
	if hdr.PacketType == protocol.PacketTypeAuth {
		kind = "auth"
	}
	fmt.Println("Command envelope:")
	fmt.Printf("  Packet type: 0x%04X (%s)\n", hdr.PacketType, kind)
	fmt.Printf("  Device type: 0x%04X\n", hdr.DeviceType)
	fmt.Printf("  Count:       0x%04X\n", hdr.Count)
	fmt.Printf("  MAC:         %02x:%02x:%02x:%02x:%02x:%02x\n",
		hdr.MAC[0], hdr.MAC[1], hdr.MAC[2], hdr.MAC[3], hdr.MAC[4], hdr.MAC[5])
	fmt.Printf("  Auth ID:     0x%08X\n", hdr.AuthID)
	fmt.Printf("  Error code:  0x%04X\n", hdr.ErrorCode)
}

func printPayload(hdr protocol.CommandHeader, payload []byte) {
	if len(payload) == 0 {
		fmt.Println("\nNo payload.")
		return
	}

	fmt.Printf("\nDecrypted payload (%d bytes):\n", len(payload))
	dumpHex(payload)

	if hdr.PacketType != protocol.PacketTypeCommand {
		return
	}

	// Try the inner codecs; a capture could be either device class.
	if inner, err := protocol.UnpackRemoteData(payload); err == nil && inner != nil {
		fmt.Printf("\nRemote data message, inner payload %d bytes:\n", len(inner))
		dumpHex(inner)
	}
	if inner, err := protocol.UnpackHvacData(payload); err == nil {
		fmt.Printf("\nClimate data message, inner payload %d bytes:\n", len(inner))
		dumpHex(inner)
		if state, err := protocol.DecodeClimateState(inner); err == nil {
			fmt.Printf("  Decodes as climate state: power=%v mode=%d target=%.1f°C\n",
				state.Power, state.Mode, state.TargetTemp())
		}
	}
}

func dumpHex(data []byte) {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Printf("  %04x  % 02x\n", off, data[off:end])
	}
}

func cleanHex(s string) string {
	s = strings.ToLower(s)
	for _, cut := range []string{" ", "\t", "\n", ":", "0x"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	return s
}
