package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeClimateState(t *testing.T) {
	state := &ClimateState{
		Power:   true,
		Mode:    ModeCool,
		Speed:   SpeedAuto,
		Preset:  PresetNormal,
		SwingH:  SwingHOff,
		SwingV:  SwingVOff,
		Display: true,
	}
	if err := state.SetTargetTemp(21.5); err != nil {
		t.Fatalf("SetTargetTemp() error: %v", err)
	}

	want := []byte{
		0x6F, 0x20, 0x8F, 0xA0, 0x00, 0x20, 0x00, 0x00,
		0x20, 0x00, 0x10, 0x00, 0x00,
	}

	got, err := EncodeClimateState(state)
	if err != nil {
		t.Fatalf("EncodeClimateState() error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeClimateState() = % 02x, want % 02x", got, want)
	}
}

func TestClimateStateRoundTrip(t *testing.T) {
	state := &ClimateState{
		Power:  true,
		Mode:   ModeHeat,
		Speed:  SpeedLow,
		Preset: PresetMute,
		SwingH: SwingHLeftRight,
		SwingV: SwingVPos3,
		Sleep:  true,
		IFeel:  true,
		Health: true,
		Clean:  true,
		Mildew: true,
	}
	if err := state.SetTargetTemp(17); err != nil {
		t.Fatalf("SetTargetTemp() error: %v", err)
	}

	buf, err := EncodeClimateState(state)
	if err != nil {
		t.Fatalf("EncodeClimateState() error: %v", err)
	}
	got, err := DecodeClimateState(buf)
	if err != nil {
		t.Fatalf("DecodeClimateState() error: %v", err)
	}

	if *got != *state {
		t.Errorf("round trip = %+v, want %+v", got, state)
	}
	if got.TargetTemp() != 17 {
		t.Errorf("TargetTemp() = %.1f, want 17.0", got.TargetTemp())
	}
}

func TestSetTargetTemp(t *testing.T) {
	tests := []struct {
		name    string
		temp    float64
		wantErr bool
	}{
		{name: "lower bound", temp: 16},
		{name: "upper bound", temp: 32},
		{name: "half degree", temp: 24.5},
		{name: "below range", temp: 15.5, wantErr: true},
		{name: "above range", temp: 32.5, wantErr: true},
		{name: "off grid", temp: 21.3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state ClimateState
			if err := state.SetTargetTemp(20); err != nil {
				t.Fatalf("SetTargetTemp(20) error: %v", err)
			}

			err := state.SetTargetTemp(tt.temp)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error = %v, want *ValidationError", err)
				}
				if state.TargetTemp() != 20 {
					t.Errorf("rejected value mutated state: TargetTemp() = %.1f", state.TargetTemp())
				}
				return
			}
			if err != nil {
				t.Fatalf("SetTargetTemp() error: %v", err)
			}
			if state.TargetTemp() != tt.temp {
				t.Errorf("TargetTemp() = %.1f, want %.1f", state.TargetTemp(), tt.temp)
			}
		})
	}
}

func TestEncodeClimateStateRejectsZeroValue(t *testing.T) {
	var state ClimateState

	var verr *ValidationError
	if _, err := EncodeClimateState(&state); !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
}

func TestDecodeClimateStateRejectsUnknownEnums(t *testing.T) {
	valid := func() []byte {
		return []byte{
			0x6F, 0x20, 0x8F, 0xA0, 0x00, 0x20, 0x00, 0x00,
			0x20, 0x00, 0x10, 0x00, 0x00,
		}
	}

	tests := []struct {
		name   string
		mutate func(buf []byte)
	}{
		{
			name:   "mode 5",
			mutate: func(buf []byte) { buf[5] = 5 << 5 },
		},
		{
			name:   "fan speed 4",
			mutate: func(buf []byte) { buf[3] = 4 << 5 },
		},
		{
			name:   "horizontal swing 3",
			mutate: func(buf []byte) { buf[1] = 3 << 5 },
		},
		{
			name:   "vertical swing 6",
			mutate: func(buf []byte) { buf[0] = buf[0]&0xF8 | 6 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := valid()
			tt.mutate(buf)
			if _, err := DecodeClimateState(buf); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := DecodeClimateState(valid()); err != nil {
		t.Errorf("unmutated record rejected: %v", err)
	}
}

func TestDecodeClimateStateShort(t *testing.T) {
	if _, err := DecodeClimateState(make([]byte, ClimateStateSize-1)); err == nil {
		t.Error("expected an error")
	}
}

func TestDecodeClimateInfo(t *testing.T) {
	buf := make([]byte, ClimateInfoSize)
	buf[1] = 0x01
	buf[5] = 23
	buf[21] = 5

	info, err := DecodeClimateInfo(buf)
	if err != nil {
		t.Fatalf("DecodeClimateInfo() error: %v", err)
	}
	if !info.Power {
		t.Error("Power = false, want true")
	}
	if info.AmbientTemp != 23.5 {
		t.Errorf("AmbientTemp = %.1f, want 23.5", info.AmbientTemp)
	}

	if _, err := DecodeClimateInfo(make([]byte, ClimateInfoSize-1)); err == nil {
		t.Error("expected an error for a short record")
	}
}

func TestPackHvacDataMatchesFixture(t *testing.T) {
	// HvacGetState with an empty payload: total length 12, data length 2,
	// command word 0x0111, trailing word checksum 0x7E2B.
	want := []byte{
		0x0C, 0x00, 0xBB, 0x00, 0x06, 0x80, 0x00, 0x00,
		0x02, 0x00, 0x11, 0x01, 0x2B, 0x7E,
	}

	got, err := PackHvacData(HvacGetState, nil)
	if err != nil {
		t.Fatalf("PackHvacData() error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("PackHvacData() = % 02x, want % 02x", got, want)
	}
}

func TestHvacDataPackUnpackRoundTrip(t *testing.T) {
	payload := []byte{0x6F, 0x20, 0x8F, 0xA0, 0x00, 0x20, 0x00, 0x00, 0x20, 0x00, 0x10, 0x00, 0x00}

	msg, err := PackHvacData(HvacSetState, payload)
	if err != nil {
		t.Fatalf("PackHvacData() error: %v", err)
	}
	got, err := UnpackHvacData(msg)
	if err != nil {
		t.Fatalf("UnpackHvacData() error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip = % 02x, want % 02x", got, payload)
	}
}

func TestUnpackHvacDataRejections(t *testing.T) {
	msg, err := PackHvacData(HvacGetState, []byte{0x01, 0x02, 0x03, 0x04})
	if err != nil {
		t.Fatalf("PackHvacData() error: %v", err)
	}

	t.Run("corrupted payload fails the checksum", func(t *testing.T) {
		bad := append([]byte(nil), msg...)
		bad[hvacHeaderSize] ^= 0xFF

		var cerr *ChecksumError
		if _, err := UnpackHvacData(bad); !errors.As(err, &cerr) {
			t.Fatalf("error = %v, want *ChecksumError", err)
		}
	})

	t.Run("truncated reply", func(t *testing.T) {
		if _, err := UnpackHvacData(msg[:len(msg)-1]); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("reply shorter than the envelope", func(t *testing.T) {
		if _, err := UnpackHvacData(make([]byte, hvacHeaderSize)); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("data length exceeding the reply", func(t *testing.T) {
		bad := append([]byte(nil), msg...)
		bad[8] = 0xF0
		if _, err := UnpackHvacData(bad); err == nil {
			t.Error("expected an error")
		}
	})
}
