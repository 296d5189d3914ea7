// Package protocol implements the wire format spoken by Broadlink
// home-automation appliances: the checksummed command envelope, the
// AES-128-CBC payload encryption, and the binary codecs for discovery,
// authentication, IR/RF remote data, air-conditioner state, and WiFi
// provisioning messages.
//
// Everything in this package is a pure codec. No sockets are opened here;
// see the transport package for the UDP exchange and the device package
// for the operations built on top of these messages.
//
// Protocol reference: https://github.com/mjg59/python-broadlink/blob/master/protocol.md
package protocol
