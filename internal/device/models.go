package device

import "fmt"

// Kind classifies a device by capability. Model codes Broadlink has not
// published map to KindGeneric rather than failing: a generic device can
// still be discovered, paired, and inspected.
type Kind int

const (
	// KindGeneric is any device whose model code is not in the table.
	KindGeneric Kind = iota
	// KindRemote is an IR/RF transceiver (RM series).
	KindRemote
	// KindClimate is an air-conditioning unit.
	KindClimate
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindRemote:
		return "remote"
	case KindClimate:
		return "climate"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type modelEntry struct {
	kind Kind
	name string
}

// models maps the vendor's model codes to capabilities and marketing
// names. The table is deliberately closed; see KindForModel.
var models = map[uint16]modelEntry{
	0x6026: {KindRemote, "RM4 pro"},
	0x6184: {KindRemote, "RM4C pro"},
	0x61A2: {KindRemote, "RM4 pro"},
	0x649B: {KindRemote, "RM4 pro"},
	0x653C: {KindRemote, "RM4 pro"},
	0x4E2A: {KindClimate, "Air conditioner"},
}

// KindForModel returns the capability class for a model code. Unknown
// codes are generic, never an error: new hardware should still be usable
// for discovery and pairing.
func KindForModel(model uint16) Kind {
	return models[model].kind
}

// ModelName returns the marketing name for a model code, or a placeholder
// naming the raw code.
func ModelName(model uint16) string {
	if entry, ok := models[model]; ok {
		return entry.name
	}
	return fmt.Sprintf("Unknown device (0x%04X)", model)
}
