package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// AuthPayloadSize is the fixed size of the handshake payload.
	AuthPayloadSize = 0x50

	// AuthResponseSize is the minimum decrypted handshake reply: a 4-byte
	// session ID followed by the 16-byte session key.
	AuthResponseSize = 0x14
)

// BuildAuthPayload builds the plaintext handshake payload. The payload
// carries a constant identifier block where the vendor app sends the
// phone's IMEI, two protocol flags, and the device name padded into a
// 32-byte slot.
func BuildAuthPayload(name string) []byte {
	payload := make([]byte, AuthPayloadSize)

	// Identifier block. Any constant works; the device only echoes it
	// into its pairing table.
	for i := 0x04; i < 0x14; i++ {
		payload[i] = 0x31
	}
	payload[0x1E] = 0x01
	payload[0x2D] = 0x01

	nameBytes := []byte(name)
	if len(nameBytes) > 0x20 {
		nameBytes = nameBytes[:0x20]
	}
	copy(payload[0x30:], nameBytes)

	return payload
}

// ParseAuthResponse extracts the session ID and session key from a
// decrypted handshake reply. Replies shorter than the key region mean the
// handshake failed and no key material may be kept.
func ParseAuthResponse(payload []byte) (id uint32, key [16]byte, err error) {
	if len(payload) < AuthResponseSize {
		return 0, key, fmt.Errorf("auth response too short: %d bytes (minimum %d)", len(payload), AuthResponseSize)
	}

	id = binary.LittleEndian.Uint32(payload[0:4])
	copy(key[:], payload[0x04:0x14])

	if key == initialKey {
		return 0, [16]byte{}, fmt.Errorf("device echoed the factory key instead of a session key")
	}
	return id, key, nil
}
