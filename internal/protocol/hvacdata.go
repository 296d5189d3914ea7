package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HvacCommand selects the operation carried by an air-conditioner data
// message.
type HvacCommand byte

const (
	// HvacSetState writes a complete state record.
	HvacSetState HvacCommand = 0x00

	// HvacGetState reads the current state record.
	HvacGetState HvacCommand = 0x01

	// HvacGetInfo reads basic unit info (power, ambient temperature).
	HvacGetInfo HvacCommand = 0x02
)

// ClimateMode enumerates the unit's operating modes.
type ClimateMode byte

const (
	ModeAuto ClimateMode = 0
	ModeCool ClimateMode = 1
	ModeDry  ClimateMode = 2
	ModeHeat ClimateMode = 3
	ModeFan  ClimateMode = 4
)

// FanSpeed enumerates the fan speeds.
type FanSpeed byte

const (
	SpeedNone FanSpeed = 0
	SpeedHigh FanSpeed = 1
	SpeedMid  FanSpeed = 2
	SpeedLow  FanSpeed = 3
	SpeedAuto FanSpeed = 5
)

// ClimatePreset enumerates the comfort presets.
type ClimatePreset byte

const (
	PresetNormal ClimatePreset = 0
	PresetTurbo  ClimatePreset = 1
	PresetMute   ClimatePreset = 2
)

// SwingHorizontal enumerates the horizontal louver positions.
type SwingHorizontal byte

const (
	SwingHOn        SwingHorizontal = 0
	SwingHOff       SwingHorizontal = 1
	SwingHLeftFix   SwingHorizontal = 2
	SwingHRightFlap SwingHorizontal = 5
	SwingHRightFix  SwingHorizontal = 6
	SwingHLeftRight SwingHorizontal = 7
)

// SwingVertical enumerates the vertical louver positions.
type SwingVertical byte

const (
	SwingVOn   SwingVertical = 0
	SwingVPos1 SwingVertical = 1
	SwingVPos2 SwingVertical = 2
	SwingVPos3 SwingVertical = 3
	SwingVPos4 SwingVertical = 4
	SwingVPos5 SwingVertical = 5
	SwingVOff  SwingVertical = 7
)

// Target temperature bounds, degrees Celsius. The wire encodes the
// temperature as (t - 8) in five bits plus a half-degree flag.
const (
	MinTargetTemp = 16.0
	MaxTargetTemp = 32.0
)

// ClimateStateSize is the packed size of a state record.
const ClimateStateSize = 13

// ClimateInfoSize is the packed size of a basic info record.
const ClimateInfoSize = 22

// ValidationError reports a locally rejected value. Nothing carrying a
// ValidationError ever reaches the wire.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ClimateState is the full bit-packed state record of an air-conditioner
// unit. The wire format has no partial-update form: a state is read with
// HvacGetState, mutated through the typed setters, and written back whole
// with HvacSetState.
type ClimateState struct {
	Power   bool
	Mode    ClimateMode
	Speed   FanSpeed
	Preset  ClimatePreset
	SwingH  SwingHorizontal
	SwingV  SwingVertical
	Sleep   bool
	IFeel   bool
	Health  bool
	Clean   bool
	Display bool
	Mildew  bool

	// targetTemp is kept private so every mutation passes range and
	// granularity validation.
	targetTemp float64
}

// TargetTemp returns the target temperature in degrees Celsius.
func (s *ClimateState) TargetTemp() float64 { return s.targetTemp }

// SetTargetTemp validates and sets the target temperature. The unit
// accepts 16.0 through 32.0 in half-degree steps; anything else fails
// without mutating the state.
func (s *ClimateState) SetTargetTemp(t float64) error {
	if t < MinTargetTemp || t > MaxTargetTemp {
		return &ValidationError{
			Field:   "target temperature",
			Message: fmt.Sprintf("%.1f out of range (%.0f-%.0f)", t, MinTargetTemp, MaxTargetTemp),
		}
	}
	if half := t * 2; half != math.Trunc(half) {
		return &ValidationError{
			Field:   "target temperature",
			Message: fmt.Sprintf("%.2f is not a half-degree step", t),
		}
	}
	s.targetTemp = t
	return nil
}

// Bit positions use msb0 numbering: bit n lives in byte n/8 under the mask
// 0x80 >> (n%8). Offsets follow the vendor's packed layout.
func bit(buf []byte, n int) bool { return buf[n/8]&(0x80>>(n%8)) != 0 }

func setBit(buf []byte, n int, v bool) {
	if v {
		buf[n/8] |= 0x80 >> (n % 8)
	}
}

// EncodeClimateState packs a state record into its 13-byte wire form.
func EncodeClimateState(s *ClimateState) ([]byte, error) {
	if s.targetTemp < MinTargetTemp || s.targetTemp > MaxTargetTemp {
		return nil, &ValidationError{
			Field:   "target temperature",
			Message: fmt.Sprintf("%.1f out of range, state was never initialized from the device", s.targetTemp),
		}
	}

	buf := make([]byte, ClimateStateSize)

	tempInt := byte(s.targetTemp) - 8
	tempFract := s.targetTemp != math.Trunc(s.targetTemp)

	buf[0] = tempInt<<3 | byte(s.SwingV)&0x07
	buf[1] = byte(s.SwingH) << 5
	setBit(buf, 16, tempFract)
	buf[2] |= 0x0F // constant nibble, required by the firmware
	buf[3] = byte(s.Speed) << 5
	buf[4] = byte(s.Preset) & 0x03
	buf[5] = byte(s.Mode) << 5
	setBit(buf, 44, s.IFeel)
	setBit(buf, 45, s.Sleep)
	setBit(buf, 66, s.Power)
	setBit(buf, 69, s.Clean)
	setBit(buf, 70, s.Health)
	setBit(buf, 83, s.Display)
	setBit(buf, 84, s.Mildew)

	return buf, nil
}

// DecodeClimateState unpacks a 13-byte wire record, rejecting values that
// do not belong to the documented enums.
func DecodeClimateState(buf []byte) (*ClimateState, error) {
	if len(buf) < ClimateStateSize {
		return nil, fmt.Errorf("climate state too short: %d bytes (minimum %d)", len(buf), ClimateStateSize)
	}

	s := &ClimateState{
		SwingV:  SwingVertical(buf[0] & 0x07),
		SwingH:  SwingHorizontal(buf[1] >> 5),
		Speed:   FanSpeed(buf[3] >> 5),
		Preset:  ClimatePreset(buf[4] & 0x03),
		Mode:    ClimateMode(buf[5] >> 5),
		IFeel:   bit(buf, 44),
		Sleep:   bit(buf, 45),
		Power:   bit(buf, 66),
		Clean:   bit(buf, 69),
		Health:  bit(buf, 70),
		Display: bit(buf, 83),
		Mildew:  bit(buf, 84),
	}

	s.targetTemp = float64(buf[0]>>3) + 8
	if bit(buf, 16) {
		s.targetTemp += 0.5
	}

	switch s.Mode {
	case ModeAuto, ModeCool, ModeDry, ModeHeat, ModeFan:
	default:
		return nil, fmt.Errorf("climate state carries unknown mode %d", s.Mode)
	}
	switch s.Speed {
	case SpeedNone, SpeedHigh, SpeedMid, SpeedLow, SpeedAuto:
	default:
		return nil, fmt.Errorf("climate state carries unknown fan speed %d", s.Speed)
	}
	switch s.SwingH {
	case SwingHOn, SwingHOff, SwingHLeftFix, SwingHRightFlap, SwingHRightFix, SwingHLeftRight:
	default:
		return nil, fmt.Errorf("climate state carries unknown horizontal swing %d", s.SwingH)
	}
	switch s.SwingV {
	case SwingVOn, SwingVPos1, SwingVPos2, SwingVPos3, SwingVPos4, SwingVPos5, SwingVOff:
	default:
		return nil, fmt.Errorf("climate state carries unknown vertical swing %d", s.SwingV)
	}

	return s, nil
}

// ClimateInfo is the parsed basic info record: power plus the ambient
// temperature split over two fixed-point fields.
type ClimateInfo struct {
	Power       bool
	AmbientTemp float64
}

// DecodeClimateInfo unpacks a 22-byte basic info record.
func DecodeClimateInfo(buf []byte) (*ClimateInfo, error) {
	if len(buf) < ClimateInfoSize {
		return nil, fmt.Errorf("climate info too short: %d bytes (minimum %d)", len(buf), ClimateInfoSize)
	}

	return &ClimateInfo{
		Power:       buf[1]&0x01 != 0,
		AmbientTemp: float64(buf[5]&0x1F) + float64(buf[21]&0x1F)/10,
	}, nil
}

// hvacHeaderSize is the envelope in front of an air-conditioner payload:
// total length, three constant words, data length, and the command word.
const hvacHeaderSize = 12

// PackHvacData frames a payload into the air-conditioner data envelope and
// appends the trailing word checksum.
func PackHvacData(cmd HvacCommand, payload []byte) ([]byte, error) {
	if len(payload) > math.MaxUint16-hvacHeaderSize-2 {
		return nil, fmt.Errorf("payload too long: %d bytes", len(payload))
	}

	dataLen := uint16(len(payload)) + 2
	msg := make([]byte, hvacHeaderSize+len(payload)+2)
	binary.LittleEndian.PutUint16(msg[0:], dataLen+10)
	binary.LittleEndian.PutUint16(msg[2:], 0x00BB)
	binary.LittleEndian.PutUint16(msg[4:], 0x8006)
	binary.LittleEndian.PutUint16(msg[8:], dataLen)
	binary.LittleEndian.PutUint16(msg[10:], 0x0100|uint16(cmd)<<4|0x01)
	copy(msg[hvacHeaderSize:], payload)

	crc := WordChecksum(msg[2 : hvacHeaderSize+len(payload)])
	binary.LittleEndian.PutUint16(msg[hvacHeaderSize+len(payload):], crc)
	return msg, nil
}

// UnpackHvacData validates an air-conditioner data reply and returns the
// payload after the command echo.
func UnpackHvacData(msg []byte) ([]byte, error) {
	if len(msg) < hvacHeaderSize+2 {
		return nil, fmt.Errorf("hvac reply too short: %d bytes (minimum %d)", len(msg), hvacHeaderSize+2)
	}

	// The message may carry trailing zeros beyond the checksum: decrypted
	// payloads keep their cipher-block padding.
	total := binary.LittleEndian.Uint16(msg[0:])
	if int(total)+2 > len(msg) {
		return nil, fmt.Errorf("hvac reply length field %d exceeds %d received bytes", total, len(msg))
	}

	dataLen := binary.LittleEndian.Uint16(msg[8:])
	if dataLen < 2 || int(dataLen)+hvacHeaderSize > len(msg) || dataLen+10 != total {
		return nil, fmt.Errorf("hvac reply data length %d is inconsistent", dataLen)
	}

	crcOffset := int(total)
	want := binary.LittleEndian.Uint16(msg[crcOffset:])
	if got := WordChecksum(msg[2:crcOffset]); got != want {
		return nil, &ChecksumError{Want: want, Got: got}
	}

	payload := make([]byte, dataLen-2)
	copy(payload, msg[hvacHeaderSize:])
	return payload, nil
}
