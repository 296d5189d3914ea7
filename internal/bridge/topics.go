package bridge

import (
	"fmt"
	"strings"

	"github.com/muurk/broadlink/internal/device"
)

// Topic layout under the configured prefix:
//
//	<prefix>/bridge/state            bridge online/offline (retained, LWT)
//	<prefix>/<id>/blast              subscribe: hex code to transmit
//	<prefix>/<id>/learn              subscribe: any payload starts a capture
//	<prefix>/<id>/code               publish: last captured code, hex
//	<prefix>/<id>/climate/state      publish: climate state JSON (retained)
//	<prefix>/<id>/climate/set        subscribe: climate state JSON
//
// <id> is the device MAC in lowercase hex without separators.

const (
	actionBlast      = "blast"
	actionLearn      = "learn"
	actionCode       = "code"
	actionClimate    = "climate/state"
	actionClimateSet = "climate/set"
)

// deviceID derives the topic segment for a device.
func deviceID(info device.Info) string {
	m := info.MAC
	return fmt.Sprintf("%02x%02x%02x%02x%02x%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

func bridgeStateTopic(prefix string) string {
	return prefix + "/bridge/state"
}

func deviceTopic(prefix, id, action string) string {
	return prefix + "/" + id + "/" + action
}

// commandFilter is the wildcard subscription matching every per-device
// command topic under the prefix.
func commandFilter(prefix string) string {
	return prefix + "/+/#"
}

// parseCommandTopic splits a received topic into device id and action.
// Topics outside the prefix, or with an empty id or action, are rejected.
func parseCommandTopic(prefix, topic string) (id, action string, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return "", "", false
	}
	id, action, found = strings.Cut(rest, "/")
	if !found || id == "" || action == "" {
		return "", "", false
	}
	return id, action, true
}
