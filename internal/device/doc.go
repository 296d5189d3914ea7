// Package device implements the client side of the Broadlink appliance
// protocol: discovery, the pairing handshake, and per-capability
// operations for remotes and air-conditioner units.
//
// # Lifecycle
//
// A device is found by broadcast discovery (or probed directly by
// address), paired, and then commanded:
//
//	infos, err := device.Scan(ctx)
//	dev := device.New(infos[0])
//	if err := dev.Authenticate(ctx); err != nil {
//	    return err
//	}
//	code, err := dev.LearnCode(ctx)
//
// Authentication issues a per-session AES key; every later exchange is
// encrypted with it. A Device that has not completed Authenticate rejects
// command operations locally with an ErrTypeNotAuthenticated error.
//
// # Capabilities
//
// The model code from discovery classifies a device as a remote
// (IR/RF transceivers), a climate unit, or generic. Unknown model codes
// are generic rather than an error, so new hardware can still be
// discovered and paired. Capability methods are not gated on the kind;
// calling a climate method on a remote simply earns a rejection from the
// device itself.
//
// # Errors
//
// All failures surface as *Error with a Type discriminator and Is*
// predicate helpers:
//
//	if device.IsNoReply(err) {
//	    // device offline or wrong address
//	}
//
// # Provisioning
//
// A factory-fresh device runs its own access point. Provisioner
// broadcasts WiFi credentials to it and listens briefly for any reply;
// a silent window is reported as ErrTypeNoConfirmation, though the
// device usually reboots onto the network without answering.
package device
