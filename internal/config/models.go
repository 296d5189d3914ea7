package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for devices and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device MAC address
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents user-defined metadata for a single appliance.
// This is keyed by the device's MAC address in the Registry. Everything in
// here is client-side only; the device itself stores none of it.
type Device struct {
	Nickname string            `yaml:"nickname,omitempty"`  // User-friendly name
	LastIP   string            `yaml:"last_ip,omitempty"`   // Last known IP address
	LastSeen time.Time         `yaml:"last_seen,omitempty"` // Last discovery/connection time
	Codes    map[string]string `yaml:"codes,omitempty"`     // Learned remote codes, hex-encoded, keyed by name
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	ScanTimeout int        `yaml:"scan_timeout"`   // Discovery collection window in seconds
	MQTT        *MQTTPrefs `yaml:"mqtt,omitempty"` // Bridge connection settings
}

// MQTTPrefs represents the MQTT bridge connection settings.
// Note: Broker passwords are NEVER stored - they are always prompted or
// taken from the environment.
type MQTTPrefs struct {
	Broker       string `yaml:"broker"`                  // e.g. "tcp://127.0.0.1:1883"
	ClientID     string `yaml:"client_id,omitempty"`     // MQTT client identifier
	Username     string `yaml:"username,omitempty"`      // Broker username
	TopicPrefix  string `yaml:"topic_prefix,omitempty"`  // Root of the published tree
	PollInterval int    `yaml:"poll_interval,omitempty"` // Climate state poll cadence in seconds
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			ScanTimeout: 5,
			MQTT: &MQTTPrefs{
				Broker:       "tcp://127.0.0.1:1883",
				TopicPrefix:  "broadlink",
				PollInterval: 30,
			},
		},
	}
}

// GetDevice retrieves device metadata by MAC address.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(mac string) *Device {
	return r.Devices[mac]
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new entry with default values.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(mac string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[mac]; exists {
		return device
	}

	device := &Device{
		Codes: make(map[string]string),
	}
	r.Devices[mac] = device
	return device
}

// UpdateDeviceLastSeen updates the last seen timestamp and IP for a device.
func (r *Registry) UpdateDeviceLastSeen(mac, ip string) {
	device := r.EnsureDevice(mac)
	device.LastSeen = time.Now()
	device.LastIP = ip
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(mac, nickname string) {
	device := r.EnsureDevice(mac)
	device.Nickname = nickname
}

// SaveCode stores a learned remote code under a name for later replay.
func (r *Registry) SaveCode(mac, name, hexCode string) {
	device := r.EnsureDevice(mac)
	if device.Codes == nil {
		device.Codes = make(map[string]string)
	}
	device.Codes[name] = hexCode
}

// GetCode retrieves a stored remote code by name.
// Returns the hex-encoded code and whether it exists.
func (r *Registry) GetCode(mac, name string) (string, bool) {
	device := r.GetDevice(mac)
	if device == nil {
		return "", false
	}
	code, ok := device.Codes[name]
	return code, ok
}
