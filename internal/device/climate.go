package device

import (
	"context"

	"github.com/muurk/broadlink/internal/protocol"
)

// GetClimateState reads the full state record from an air-conditioner
// unit. The returned state can be mutated and written back whole with
// SetClimateState.
func (d *Device) GetClimateState(ctx context.Context) (*protocol.ClimateState, error) {
	payload, err := d.hvac(ctx, "get climate state", protocol.HvacGetState, nil)
	if err != nil {
		return nil, err
	}
	state, err := protocol.DecodeClimateState(payload)
	if err != nil {
		return nil, newMalformedReplyError(d.info.AddrPort().String(), err)
	}
	return state, nil
}

// SetClimateState writes a full state record to the unit.
func (d *Device) SetClimateState(ctx context.Context, state *protocol.ClimateState) error {
	record, err := protocol.EncodeClimateState(state)
	if err != nil {
		return err
	}
	_, err = d.hvac(ctx, "set climate state", protocol.HvacSetState, record)
	return err
}

// GetClimateInfo reads the unit's power flag and ambient temperature.
func (d *Device) GetClimateInfo(ctx context.Context) (*protocol.ClimateInfo, error) {
	payload, err := d.hvac(ctx, "get climate info", protocol.HvacGetInfo, nil)
	if err != nil {
		return nil, err
	}
	info, err := protocol.DecodeClimateInfo(payload)
	if err != nil {
		return nil, newMalformedReplyError(d.info.AddrPort().String(), err)
	}
	return info, nil
}

// hvac frames an air-conditioner request, performs the exchange, and
// unpacks the checksummed reply envelope.
func (d *Device) hvac(ctx context.Context, op string, cmd protocol.HvacCommand, payload []byte) ([]byte, error) {
	msg, err := protocol.PackHvacData(cmd, payload)
	if err != nil {
		return nil, err
	}
	reply, err := d.command(ctx, op, msg)
	if err != nil {
		return nil, err
	}
	inner, err := protocol.UnpackHvacData(reply)
	if err != nil {
		return nil, newMalformedReplyError(d.info.AddrPort().String(), err)
	}
	return inner, nil
}
