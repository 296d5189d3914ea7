package device

import (
	"context"
	"net/netip"

	"github.com/muurk/broadlink/internal/logging"
	"github.com/muurk/broadlink/internal/protocol"
	"github.com/muurk/broadlink/internal/transport"
	"go.uber.org/zap"
)

// Provisioner pushes WiFi credentials to a device in setup mode. A device
// in setup mode runs its own access point; the caller must already be
// associated with it.
type Provisioner struct {
	// Client sends the provisioning packet.
	Client *transport.Client

	// Dest is where the packet is broadcast. Defaults to the limited
	// broadcast address on the device port.
	Dest netip.AddrPort
}

// NewProvisioner creates a provisioner with default settings
func NewProvisioner() *Provisioner {
	return &Provisioner{
		Client: transport.NewClient(),
		Dest:   netip.AddrPortFrom(transport.LimitedBroadcast, transport.DefaultDevicePort),
	}
}

// ConnectToNetwork broadcasts the credentials and keeps the socket open
// for a short window. Any reply in that window counts as confirmation; a
// silent window is an ErrTypeNoConfirmation error, which is not proof of
// failure since the device reboots out of its access point either way.
func (p *Provisioner) ConnectToNetwork(ctx context.Context, creds protocol.NetworkCredentials) error {
	pkt, err := protocol.BuildWirelessMessage(creds)
	if err != nil {
		return err
	}

	replies, err := p.Client.Broadcast(ctx, p.Dest, func(netip.AddrPort) ([]byte, error) {
		return pkt, nil
	})
	if err != nil {
		return err
	}

	logging.Info("Provisioning packet sent",
		zap.String("ssid", creds.SSID),
		zap.String("security", creds.Mode.String()),
		zap.Int("replies", len(replies)),
	)

	if len(replies) == 0 {
		return &Error{
			Type:    ErrTypeNoConfirmation,
			Message: "no reply to the provisioning broadcast; the device may have joined anyway",
			Addr:    p.Dest.String(),
		}
	}
	return nil
}

// ConnectToNetwork broadcasts WiFi credentials with default settings.
func ConnectToNetwork(ctx context.Context, creds protocol.NetworkCredentials) error {
	return NewProvisioner().ConnectToNetwork(ctx, creds)
}
