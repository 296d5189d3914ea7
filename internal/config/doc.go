// Package config provides user configuration management for the Broadlink client.
//
// This package manages a YAML-based configuration file that stores user-defined
// metadata for Broadlink devices, including nicknames, saved remote codes, and
// application preferences such as the MQTT bridge connection. The configuration
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/broadlink/config.yaml or $HOME/.config/broadlink/config.yaml
//   - macOS: $HOME/.config/broadlink/config.yaml
//   - Windows: %LOCALAPPDATA%\broadlink\config.yaml
//
// # Security
//
// IMPORTANT: This package NEVER stores sensitive credentials such as WiFi
// passwords or broker passwords. These are always prompted from the user when
// needed.
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Remember a device and a learned code
//	registry.SetDeviceNickname("34:ea:34:01:02:03", "Living Room Blaster")
//	registry.SaveCode("34:ea:34:01:02:03", "tv_power", hex.EncodeToString(code.Data))
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
