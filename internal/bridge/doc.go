// Package bridge exposes discovered devices over MQTT.
//
// The bridge owns a set of authenticated devices and a single broker
// connection. Remote controls accept codes on <prefix>/<id>/blast and
// publish captures on <prefix>/<id>/code; climate units publish their
// state as retained JSON on <prefix>/<id>/climate/state and accept the
// same JSON on <prefix>/<id>/climate/set. Climate state is refreshed
// on a fixed poll interval and immediately after every accepted set.
//
// The broker connection uses a last-will message so consumers can tell
// a crashed bridge from a quiet one: <prefix>/bridge/state is "online"
// while connected and flips to "offline" on shutdown or connection
// loss.
package bridge
