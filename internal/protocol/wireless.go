package protocol

import (
	"encoding/binary"
	"fmt"
)

// SecurityMode tags the authentication scheme of the target WiFi network.
type SecurityMode byte

const (
	SecurityOpen SecurityMode = 0
	SecurityWEP  SecurityMode = 1
	SecurityWPA1 SecurityMode = 2
	SecurityWPA2 SecurityMode = 3
	// SecurityWPA12 accepts either WPA1 or WPA2.
	SecurityWPA12 SecurityMode = 4
)

// String returns the conventional name of the mode.
func (m SecurityMode) String() string {
	switch m {
	case SecurityOpen:
		return "open"
	case SecurityWEP:
		return "wep"
	case SecurityWPA1:
		return "wpa1"
	case SecurityWPA2:
		return "wpa2"
	case SecurityWPA12:
		return "wpa1/2"
	default:
		return fmt.Sprintf("SecurityMode(%d)", byte(m))
	}
}

// NetworkCredentials carries the WiFi credentials pushed to a device in
// setup mode. Credentials are only ever held in memory for the duration of
// the provisioning broadcast.
type NetworkCredentials struct {
	Mode     SecurityMode
	SSID     string
	Password string
}

const (
	// WirelessMessageSize is the fixed size of the provisioning packet.
	WirelessMessageSize = 136

	// wirelessMagic marks a packet as a provisioning request.
	wirelessMagic = 0x14

	// maxCredentialLen bounds SSID and password to their wire slots.
	maxCredentialLen = 32
)

// BuildWirelessMessage encodes credentials into the broadcast provisioning
// packet. SSID and password each occupy a fixed 32-byte slot; longer values
// fail validation locally.
func BuildWirelessMessage(creds NetworkCredentials) ([]byte, error) {
	switch creds.Mode {
	case SecurityOpen, SecurityWEP, SecurityWPA1, SecurityWPA2, SecurityWPA12:
	default:
		return nil, &ValidationError{Field: "security mode", Message: fmt.Sprintf("unknown mode %d", creds.Mode)}
	}
	if len(creds.SSID) > maxCredentialLen {
		return nil, &ValidationError{
			Field:   "ssid",
			Message: fmt.Sprintf("%d bytes exceeds the %d-byte wire slot", len(creds.SSID), maxCredentialLen),
		}
	}
	if len(creds.Password) > maxCredentialLen {
		return nil, &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("%d bytes exceeds the %d-byte wire slot", len(creds.Password), maxCredentialLen),
		}
	}
	if creds.Mode == SecurityOpen && creds.Password != "" {
		return nil, &ValidationError{Field: "password", Message: "open networks take no password"}
	}

	pkt := make([]byte, WirelessMessageSize)
	pkt[38] = wirelessMagic
	copy(pkt[68:], creds.SSID)
	copy(pkt[100:], creds.Password)
	pkt[132] = byte(len(creds.SSID))
	pkt[133] = byte(len(creds.Password))
	pkt[134] = byte(creds.Mode)

	binary.LittleEndian.PutUint16(pkt[32:], Checksum(pkt))
	return pkt, nil
}
