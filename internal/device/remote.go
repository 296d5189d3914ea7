package device

import (
	"context"
	"time"

	"github.com/muurk/broadlink/internal/logging"
	"github.com/muurk/broadlink/internal/protocol"
	"go.uber.org/zap"
)

// CodeType classifies a captured remote code by its leading marker byte.
type CodeType int

const (
	CodeUnknown CodeType = iota
	CodeIR
	CodeRF
)

// String returns a human-readable name for the code type
func (t CodeType) String() string {
	switch t {
	case CodeIR:
		return "ir"
	case CodeRF:
		return "rf"
	default:
		return "unknown"
	}
}

// LearnedCode is a raw remote code captured from the device. The bytes are
// opaque to this package beyond the leading marker; they replay verbatim
// through SendCode.
type LearnedCode struct {
	Data []byte
}

// Type inspects the leading marker byte.
func (c LearnedCode) Type() CodeType {
	if len(c.Data) == 0 {
		return CodeUnknown
	}
	switch c.Data[0] {
	case protocol.CodeMarkerIR:
		return CodeIR
	case protocol.CodeMarkerRF, protocol.CodeMarkerRF2:
		return CodeRF
	default:
		return CodeUnknown
	}
}

// EnterLearning puts the device into learn mode. The device's LED turns on
// and it captures the next IR/RF transmission it sees.
func (d *Device) EnterLearning(ctx context.Context) error {
	msg, err := protocol.PackRemoteData(protocol.RemoteStartLearning, nil)
	if err != nil {
		return err
	}
	_, err = d.command(ctx, "enter learning", msg)
	return err
}

// CheckCode asks the device for a captured code. It returns (nil, nil)
// when nothing has been captured yet, so callers can poll.
func (d *Device) CheckCode(ctx context.Context) (*LearnedCode, error) {
	msg, err := protocol.PackRemoteData(protocol.RemoteGetCode, nil)
	if err != nil {
		return nil, err
	}
	reply, err := d.command(ctx, "check code", msg)
	if err != nil {
		return nil, err
	}

	code, err := protocol.UnpackRemoteData(reply)
	if err != nil {
		return nil, newMalformedReplyError(d.info.AddrPort().String(), err)
	}
	if code == nil {
		return nil, nil
	}
	return &LearnedCode{Data: code}, nil
}

// LearnCode runs the whole capture flow: enter learn mode, then poll until
// a code arrives or LearnTimeout passes.
func (d *Device) LearnCode(ctx context.Context) (*LearnedCode, error) {
	if err := d.EnterLearning(ctx); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(d.LearnTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.LearnInterval):
		}

		code, err := d.CheckCode(ctx)
		if err != nil {
			return nil, err
		}
		if code != nil {
			logging.Info("Captured remote code",
				zap.String("remote_addr", d.info.AddrPort().String()),
				zap.String("code_type", code.Type().String()),
				zap.Int("length", len(code.Data)),
			)
			return code, nil
		}

		if time.Now().After(deadline) {
			return nil, &Error{
				Type:    ErrTypeLearnTimeout,
				Message: "no code captured before the learn window closed",
				Addr:    d.info.AddrPort().String(),
			}
		}
	}
}

// SendCode replays a previously captured code.
func (d *Device) SendCode(ctx context.Context, code []byte) error {
	if len(code) == 0 {
		return &protocol.ValidationError{Field: "code", Message: "empty"}
	}
	msg, err := protocol.PackRemoteData(protocol.RemoteSendCode, code)
	if err != nil {
		return err
	}
	_, err = d.command(ctx, "send code", msg)
	return err
}
