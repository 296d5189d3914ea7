package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// RemoteCommand selects the operation carried by a remote data message.
type RemoteCommand byte

const (
	// RemoteSendCode blasts a previously learned code.
	RemoteSendCode RemoteCommand = 0x02

	// RemoteStartLearning puts the device into IR capture mode.
	RemoteStartLearning RemoteCommand = 0x03

	// RemoteGetCode reads back a captured code, if any.
	RemoteGetCode RemoteCommand = 0x04
)

// remoteDataHeaderSize is the fixed header in front of the code bytes:
// a 2-byte length, the command byte, and 3 bytes of padding.
const remoteDataHeaderSize = 0x06

// Code type markers, the first byte of a learned code payload.
const (
	CodeMarkerIR  = 0x26
	CodeMarkerRF  = 0xB2
	CodeMarkerRF2 = 0xD7
)

// PackRemoteData frames code bytes behind a remote data header. The length
// field counts the payload plus the 4-byte stop sequence the device
// appends on the wire.
func PackRemoteData(cmd RemoteCommand, code []byte) ([]byte, error) {
	if len(code) > math.MaxUint16-4 {
		return nil, fmt.Errorf("code too long: %d bytes", len(code))
	}

	msg := make([]byte, remoteDataHeaderSize+len(code))
	binary.LittleEndian.PutUint16(msg[0:], uint16(len(code))+4)
	msg[2] = byte(cmd)
	copy(msg[remoteDataHeaderSize:], code)
	return msg, nil
}

// UnpackRemoteData extracts the code bytes from a remote data reply.
//
// A device that has not captured anything answers with one to three junk
// bytes; that is the protocol's "no code yet" shape, reported here as a
// nil code with no error. Callers poll until the code is non-nil.
func UnpackRemoteData(msg []byte) ([]byte, error) {
	if len(msg) < remoteDataHeaderSize {
		return nil, nil
	}

	length := binary.LittleEndian.Uint16(msg[0:])
	end := int(length) + 2
	if end < remoteDataHeaderSize || end > len(msg) {
		return nil, fmt.Errorf("remote data length %d exceeds reply of %d bytes", length, len(msg))
	}

	code := make([]byte, end-remoteDataHeaderSize)
	copy(code, msg[remoteDataHeaderSize:end])
	return code, nil
}
