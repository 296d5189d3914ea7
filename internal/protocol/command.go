package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Command envelope layout. Every authenticated exchange is a 0x38-byte
// header followed by the AES-CBC encrypted payload.
const (
	// CommandHeaderSize is the fixed size of the envelope header.
	CommandHeaderSize = 0x38

	// Header field offsets.
	offChecksum        = 0x20
	offErrorCode       = 0x22
	offDeviceType      = 0x24
	offPacketType      = 0x26
	offCount           = 0x28
	offMAC             = 0x2A
	offAuthID          = 0x30
	offPayloadChecksum = 0x34
)

// Packet types accepted by the envelope.
const (
	// PacketTypeAuth is the reserved handshake command code.
	PacketTypeAuth uint16 = 0x0065

	// PacketTypeCommand carries remote and air-conditioner data messages.
	PacketTypeCommand uint16 = 0x006A
)

// magicHeader opens every command envelope.
var magicHeader = [8]byte{0x5A, 0xA5, 0xAA, 0x55, 0x5A, 0xA5, 0xAA, 0x55}

// ChecksumError reports a mismatch between a packet's checksum slot and the
// checksum recomputed over the received bytes.
type ChecksumError struct {
	Want uint16 // value carried in the packet
	Got  uint16 // value recomputed locally
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: packet carries 0x%04X, computed 0x%04X", e.Want, e.Got)
}

// CommandHeader holds the variable fields of the envelope header. The MAC
// is stored in normal transmission order; it is reversed on the wire.
type CommandHeader struct {
	DeviceType uint16  // model code echo
	PacketType uint16  // PacketTypeAuth or PacketTypeCommand
	Count      uint16  // per-device sequence counter
	MAC        [6]byte // source MAC
	AuthID     uint32  // session ID, zero before authentication
	ErrorCode  uint16  // device status, only meaningful on replies
}

// BuildCommand frames a payload into a complete command packet: the payload
// is checksummed, encrypted with ctx, appended to the header, and the whole
// packet is checksummed into the reserved slot.
func BuildCommand(hdr CommandHeader, payload []byte, ctx *EncryptionContext) []byte {
	encrypted := ctx.Encrypt(payload)

	pkt := make([]byte, CommandHeaderSize+len(encrypted))
	copy(pkt, magicHeader[:])
	binary.LittleEndian.PutUint16(pkt[offDeviceType:], hdr.DeviceType)
	binary.LittleEndian.PutUint16(pkt[offPacketType:], hdr.PacketType)
	binary.LittleEndian.PutUint16(pkt[offCount:], hdr.Count|0x8000)
	for i := 0; i < 6; i++ {
		pkt[offMAC+i] = hdr.MAC[5-i]
	}
	binary.LittleEndian.PutUint32(pkt[offAuthID:], hdr.AuthID)
	binary.LittleEndian.PutUint16(pkt[offPayloadChecksum:], Checksum(payload))
	copy(pkt[CommandHeaderSize:], encrypted)

	// The packet checksum is computed with its own slot still zero.
	binary.LittleEndian.PutUint16(pkt[offChecksum:], Checksum(pkt))
	return pkt
}

// ValidateAndStrip verifies a received command packet and returns its header
// and decrypted payload. The packet checksum is validated before decryption
// is attempted; the payload checksum is validated after. Callers must treat
// any error as a poisoned packet and discard it whole.
func ValidateAndStrip(pkt []byte, ctx *EncryptionContext) (CommandHeader, []byte, error) {
	var hdr CommandHeader

	if len(pkt) < CommandHeaderSize {
		return hdr, nil, fmt.Errorf("command packet too short: %d bytes (minimum %d)", len(pkt), CommandHeaderSize)
	}
	if !bytes.Equal(pkt[:8], magicHeader[:]) {
		return hdr, nil, fmt.Errorf("invalid magic header: % 02x", pkt[:8])
	}

	want := binary.LittleEndian.Uint16(pkt[offChecksum:])
	scratch := make([]byte, len(pkt))
	copy(scratch, pkt)
	scratch[offChecksum] = 0
	scratch[offChecksum+1] = 0
	if got := Checksum(scratch); got != want {
		return hdr, nil, &ChecksumError{Want: want, Got: got}
	}

	hdr.DeviceType = binary.LittleEndian.Uint16(pkt[offDeviceType:])
	hdr.PacketType = binary.LittleEndian.Uint16(pkt[offPacketType:])
	hdr.Count = binary.LittleEndian.Uint16(pkt[offCount:])
	for i := 0; i < 6; i++ {
		hdr.MAC[i] = pkt[offMAC+5-i]
	}
	hdr.AuthID = binary.LittleEndian.Uint32(pkt[offAuthID:])
	hdr.ErrorCode = binary.LittleEndian.Uint16(pkt[offErrorCode:])

	if len(pkt) == CommandHeaderSize {
		return hdr, nil, nil
	}

	payload, err := ctx.Decrypt(pkt[CommandHeaderSize:])
	if err != nil {
		return hdr, nil, err
	}

	// The payload checksum covers the plaintext, so a decrypt with the
	// wrong key surfaces here instead of handing back garbage bytes.
	// Zero padding is sum-neutral, checksumming the padded payload is
	// equivalent. Some firmware replies leave the slot zero, in which
	// case there is nothing to verify against.
	if want := binary.LittleEndian.Uint16(pkt[offPayloadChecksum:]); want != 0 {
		if got := Checksum(payload); got != want {
			return hdr, nil, &CryptoError{
				Message: fmt.Sprintf("payload checksum mismatch (0x%04X != 0x%04X), wrong session key?", got, want),
			}
		}
	}

	return hdr, payload, nil
}
