package device

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/muurk/broadlink/internal/logging"
	"github.com/muurk/broadlink/internal/protocol"
	"github.com/muurk/broadlink/internal/transport"
	"go.uber.org/zap"
)

// clientName is the station name sent during the pairing handshake. The
// device stores it for display in the vendor app.
const clientName = "broadlink-go"

// Default learn-mode polling parameters. An IR remote press usually lands
// within a second or two; RF sweeps take longer.
const (
	DefaultLearnTimeout  = 30 * time.Second
	DefaultLearnInterval = 1 * time.Second
)

// Info describes a discovered device. It carries everything needed to
// construct a Device plus display metadata from the discovery reply.
type Info struct {
	// Addr is the device's IPv4 address
	Addr netip.Addr
	// Port is the device's UDP port (80 on real hardware)
	Port uint16
	// MAC is the device's hardware address
	MAC [6]byte
	// Model is the vendor's model code
	Model uint16
	// Name is the user-assigned friendly name
	Name string
	// Locked reports whether the device refuses new pairings
	Locked bool
}

// AddrPort returns the device's UDP endpoint.
func (i Info) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(i.Addr, i.Port)
}

// Kind returns the device's capability class.
func (i Info) Kind() Kind {
	return KindForModel(i.Model)
}

// ModelName returns the device's marketing name.
func (i Info) ModelName() string {
	return ModelName(i.Model)
}

// MACString formats the hardware address in the conventional colon form.
func (i Info) MACString() string {
	m := i.MAC
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Device is a paired (or pairable) Broadlink appliance. All methods are
// safe for concurrent use; the packet counter and session key are guarded
// by a mutex. A Device starts unpaired and must complete Authenticate
// before any command exchange.
type Device struct {
	info   Info
	client *transport.Client

	// LearnTimeout bounds how long LearnCode waits for a button press.
	LearnTimeout time.Duration
	// LearnInterval is the polling cadence during LearnCode.
	LearnInterval time.Duration

	mu            sync.Mutex
	count         uint16
	authID        uint32
	enc           *protocol.EncryptionContext
	authenticated bool
}

// New creates a Device for the given descriptor with default transport
// settings.
func New(info Info) *Device {
	return &Device{
		info:          info,
		client:        transport.NewClient(),
		LearnTimeout:  DefaultLearnTimeout,
		LearnInterval: DefaultLearnInterval,
		enc:           protocol.DefaultContext(),
	}
}

// Info returns the device descriptor.
func (d *Device) Info() Info {
	return d.info
}

// Authenticated reports whether the pairing handshake has completed.
func (d *Device) Authenticated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authenticated
}

// Authenticate performs the pairing handshake. On success the device has
// issued a session key and an auth id, and command exchanges become
// available. Re-authenticating discards any previous session.
func (d *Device) Authenticate(ctx context.Context) error {
	d.mu.Lock()
	// The handshake itself is always encrypted with the factory key.
	d.enc = protocol.DefaultContext()
	d.authID = 0
	d.authenticated = false
	d.mu.Unlock()

	payload, err := d.exchange(ctx, protocol.PacketTypeAuth, protocol.BuildAuthPayload(clientName))
	if err != nil {
		return &Error{
			Type:    ErrTypeHandshake,
			Message: "pairing exchange failed",
			Addr:    d.info.AddrPort().String(),
			Err:     err,
		}
	}

	id, key, err := protocol.ParseAuthResponse(payload)
	if err != nil {
		return &Error{
			Type:    ErrTypeHandshake,
			Message: "device sent an unusable pairing reply",
			Addr:    d.info.AddrPort().String(),
			Err:     err,
		}
	}

	d.mu.Lock()
	d.authID = id
	d.enc = protocol.SessionContext(key)
	d.authenticated = true
	d.mu.Unlock()

	logging.Info("Device paired",
		zap.String("remote_addr", d.info.AddrPort().String()),
		zap.String("mac", d.info.MACString()),
		zap.Uint32("auth_id", id),
	)
	return nil
}

// command frames payload into a data packet and performs the exchange.
// It is the entry point for every post-handshake operation.
func (d *Device) command(ctx context.Context, op string, payload []byte) ([]byte, error) {
	if !d.Authenticated() {
		return nil, newNotAuthenticatedError(op)
	}
	return d.exchange(ctx, protocol.PacketTypeCommand, payload)
}

// exchange builds a command packet around payload, sends it, and returns
// the decrypted reply payload. The packet counter advances exactly once
// per call, including on failures, so retries never reuse a count.
func (d *Device) exchange(ctx context.Context, packetType uint16, payload []byte) ([]byte, error) {
	addr := d.info.AddrPort()

	d.mu.Lock()
	d.count++
	hdr := protocol.CommandHeader{
		DeviceType: d.info.Model,
		PacketType: packetType,
		Count:      d.count,
		MAC:        d.info.MAC,
		AuthID:     d.authID,
	}
	enc := d.enc
	d.mu.Unlock()

	pkt := protocol.BuildCommand(hdr, payload, enc)
	reply, err := d.client.Exchange(ctx, addr, pkt)
	if err != nil {
		return nil, classifyExchangeError(addr.String(), err)
	}

	rhdr, rpayload, err := protocol.ValidateAndStrip(reply, enc)
	if err != nil {
		return nil, newMalformedReplyError(addr.String(), err)
	}
	if rhdr.ErrorCode != 0 {
		return nil, newRejectedError(addr.String(), rhdr.ErrorCode)
	}
	return rpayload, nil
}
