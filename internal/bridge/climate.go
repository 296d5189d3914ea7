package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/muurk/broadlink/internal/protocol"
)

// climateMessage is the JSON shape published on climate/state and
// accepted on climate/set. Enumerations travel as lowercase names so
// the topics stay usable from a plain mosquitto_pub.
type climateMessage struct {
	Power       bool     `json:"power"`
	Mode        string   `json:"mode"`
	TargetTemp  float64  `json:"target_temp"`
	FanSpeed    string   `json:"fan_speed"`
	Preset      string   `json:"preset"`
	SwingH      string   `json:"swing_h"`
	SwingV      string   `json:"swing_v"`
	Sleep       bool     `json:"sleep"`
	Display     bool     `json:"display"`
	Health      bool     `json:"health"`
	Clean       bool     `json:"clean"`
	Mildew      bool     `json:"mildew"`
	AmbientTemp *float64 `json:"ambient_temp,omitempty"`
}

var modeNames = map[protocol.ClimateMode]string{
	protocol.ModeAuto: "auto",
	protocol.ModeCool: "cool",
	protocol.ModeDry:  "dry",
	protocol.ModeHeat: "heat",
	protocol.ModeFan:  "fan",
}

var speedNames = map[protocol.FanSpeed]string{
	protocol.SpeedNone: "none",
	protocol.SpeedHigh: "high",
	protocol.SpeedMid:  "mid",
	protocol.SpeedLow:  "low",
	protocol.SpeedAuto: "auto",
}

var presetNames = map[protocol.ClimatePreset]string{
	protocol.PresetNormal: "normal",
	protocol.PresetTurbo:  "turbo",
	protocol.PresetMute:   "mute",
}

var swingHNames = map[protocol.SwingHorizontal]string{
	protocol.SwingHOn:        "on",
	protocol.SwingHOff:       "off",
	protocol.SwingHLeftFix:   "left_fix",
	protocol.SwingHRightFlap: "right_flap",
	protocol.SwingHRightFix:  "right_fix",
	protocol.SwingHLeftRight: "left_right",
}

var swingVNames = map[protocol.SwingVertical]string{
	protocol.SwingVOn:   "on",
	protocol.SwingVPos1: "pos1",
	protocol.SwingVPos2: "pos2",
	protocol.SwingVPos3: "pos3",
	protocol.SwingVPos4: "pos4",
	protocol.SwingVPos5: "pos5",
	protocol.SwingVOff:  "off",
}

func nameFor[K comparable](names map[K]string, v K) string {
	if s, ok := names[v]; ok {
		return s
	}
	return "unknown"
}

func lookupName[K comparable](names map[K]string, field, s string) (K, error) {
	for k, v := range names {
		if v == s {
			return k, nil
		}
	}
	var zero K
	return zero, fmt.Errorf("unknown %s %q", field, s)
}

// encodeClimateMessage renders a device state as the wire JSON. The
// ambient temperature is optional; it comes from a separate query and
// may be unavailable.
func encodeClimateMessage(state *protocol.ClimateState, info *protocol.ClimateInfo) ([]byte, error) {
	msg := climateMessage{
		Power:      state.Power,
		Mode:       nameFor(modeNames, state.Mode),
		TargetTemp: state.TargetTemp(),
		FanSpeed:   nameFor(speedNames, state.Speed),
		Preset:     nameFor(presetNames, state.Preset),
		SwingH:     nameFor(swingHNames, state.SwingH),
		SwingV:     nameFor(swingVNames, state.SwingV),
		Sleep:      state.Sleep,
		Display:    state.Display,
		Health:     state.Health,
		Clean:      state.Clean,
		Mildew:     state.Mildew,
	}
	if info != nil {
		t := info.AmbientTemp
		msg.AmbientTemp = &t
	}
	return json.Marshal(msg)
}

// decodeClimateMessage parses a climate/set payload into a device state.
func decodeClimateMessage(payload []byte) (*protocol.ClimateState, error) {
	var msg climateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("climate payload: %w", err)
	}

	state := &protocol.ClimateState{
		Power:   msg.Power,
		Sleep:   msg.Sleep,
		Display: msg.Display,
		Health:  msg.Health,
		Clean:   msg.Clean,
		Mildew:  msg.Mildew,
	}

	var err error
	if state.Mode, err = lookupName(modeNames, "mode", msg.Mode); err != nil {
		return nil, err
	}
	if state.Speed, err = lookupName(speedNames, "fan_speed", msg.FanSpeed); err != nil {
		return nil, err
	}
	if state.Preset, err = lookupName(presetNames, "preset", msg.Preset); err != nil {
		return nil, err
	}
	if state.SwingH, err = lookupName(swingHNames, "swing_h", msg.SwingH); err != nil {
		return nil, err
	}
	if state.SwingV, err = lookupName(swingVNames, "swing_v", msg.SwingV); err != nil {
		return nil, err
	}
	if err = state.SetTargetTemp(msg.TargetTemp); err != nil {
		return nil, err
	}
	return state, nil
}
